package alloc

// Arena is a typed slab of slots on top of an Allocator.
//
// The life cycle of a slot is Allocate -> Construct -> Destroy -> Deallocate,
// one slot at a time. Pointers returned by At are only valid until the next
// Allocate, because the slab may grow.
type Arena[T any] struct {
	allocator   Allocator
	slots       []T
	constructed []bool
	count       int64
}

func NewArena[T any](allocator Allocator) *Arena[T] {
	if allocator == nil {
		allocator = NewSlotAllocator()
	}
	return &Arena[T]{
		allocator: allocator,
	}
}

func (arena *Arena[T]) Allocator() Allocator {
	return arena.allocator
}

// Allocate reserves raw storage for one element.
func (arena *Arena[T]) Allocate() (Handle, error) {
	h, err := arena.allocator.Allocate()
	if err != nil {
		return NilHandle, err
	}
	if n := int(h) + 1; n > len(arena.slots) {
		if n <= cap(arena.slots) {
			arena.slots = arena.slots[:n]
			arena.constructed = arena.constructed[:n]
		} else {
			_cap := cap(arena.slots) << 1
			if _cap < n {
				_cap = n
			}
			if _cap < 16 {
				_cap = 16
			}
			slots := make([]T, n, _cap)
			copy(slots, arena.slots)
			constructed := make([]bool, n, _cap)
			copy(constructed, arena.constructed)
			arena.slots, arena.constructed = slots, constructed
		}
	}
	return h, nil
}

// Construct initializes the allocated slot h with v.
func (arena *Arena[T]) Construct(h Handle, v T) {
	if !arena.owns(h) || arena.constructed[h] {
		panic( /* debug assertion */ "[alloc] construct an unallocated or constructed slot")
	}
	arena.slots[h] = v
	arena.constructed[h] = true
	arena.count++
}

// Destroy resets the slot h to the zero value, the storage stays reserved.
func (arena *Arena[T]) Destroy(h Handle) {
	if !arena.owns(h) || !arena.constructed[h] {
		panic( /* debug assertion */ "[alloc] destroy an unconstructed slot")
	}
	var zero T
	arena.slots[h] = zero
	arena.constructed[h] = false
	arena.count--
}

// Deallocate releases the storage of a destroyed slot.
func (arena *Arena[T]) Deallocate(h Handle) {
	if !arena.owns(h) || arena.constructed[h] {
		panic( /* debug assertion */ "[alloc] deallocate a constructed slot")
	}
	arena.allocator.Deallocate(h)
}

// At returns the element in slot h. NilHandle yields nil.
func (arena *Arena[T]) At(h Handle) *T {
	if h == NilHandle {
		return nil
	}
	return &arena.slots[h]
}

// Alive reports whether slot h holds a constructed element.
func (arena *Arena[T]) Alive(h Handle) bool {
	return arena.owns(h) && arena.constructed[h]
}

// Constructed is the number of live elements in this arena.
func (arena *Arena[T]) Constructed() int64 {
	return arena.count
}

// Live is the number of slots reserved from the allocator.
func (arena *Arena[T]) Live() int64 {
	return arena.allocator.Live()
}

// Reset drops the slab storage. All slots must be destroyed and released.
func (arena *Arena[T]) Reset() {
	if arena.count != 0 {
		panic( /* debug assertion */ "[alloc] reset an arena with live elements")
	}
	clear(arena.slots)
	arena.slots = nil
	arena.constructed = nil
}

func (arena *Arena[T]) owns(h Handle) bool {
	return h != NilHandle && int(h) < len(arena.slots)
}
