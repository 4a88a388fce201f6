package alloc

var _ Allocator = (*slotAllocator)(nil)

// References:
// https://github.com/src-d/hercules/blob/master/internal/rbtree/rbtree.go
// Handles are dense indices, released handles are recycled LIFO.
type slotAllocator struct {
	free  []Handle
	inUse []bool
	next  Handle
	live  int64
	limit int64
}

func (a *slotAllocator) Allocate() (Handle, error) {
	if a.limit > 0 && a.live >= a.limit {
		return NilHandle, ErrOutOfSlots
	}

	var h Handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if a.next > maxHandle {
			return NilHandle, ErrOutOfSlots
		}
		h = a.next
		a.next++
		a.inUse = append(a.inUse, false)
	}
	a.inUse[h] = true
	a.live++
	return h, nil
}

func (a *slotAllocator) Deallocate(h Handle) {
	if h == NilHandle || int(h) >= len(a.inUse) || !a.inUse[h] {
		panic( /* debug assertion */ "[alloc] deallocate a slot that is not allocated")
	}
	a.inUse[h] = false
	a.free = append(a.free, h)
	a.live--
}

func (a *slotAllocator) Live() int64 {
	return a.live
}

func (a *slotAllocator) Equal(other Allocator) bool {
	if o, ok := other.(interface{ Unwrap() Allocator }); ok {
		other = o.Unwrap()
	}
	o, ok := other.(*slotAllocator)
	return ok && o == a
}

type SlotAllocatorOpt func(*slotAllocator)

// WithSlotLimit bounds the number of live slots. Zero means unbounded.
func WithSlotLimit(limit int64) SlotAllocatorOpt {
	return func(a *slotAllocator) {
		if limit > 0 {
			a.limit = limit
		}
	}
}

// WithSlotPrealloc reserves capacity for n slots up front.
func WithSlotPrealloc(n int) SlotAllocatorOpt {
	return func(a *slotAllocator) {
		if n > 0 {
			a.inUse = make([]bool, 1, n+1)
		}
	}
}

func NewSlotAllocator(opts ...SlotAllocatorOpt) Allocator {
	a := &slotAllocator{
		next: NilHandle + 1,
	}
	for _, o := range opts {
		if o != nil {
			o(a)
		}
	}
	if a.inUse == nil {
		// Slot 0 is reserved for NilHandle.
		a.inUse = make([]bool, 1, 64)
	}
	return a
}
