package alloc

import "errors"

// Handle addresses one slot handed out by an Allocator.
// Handles are stable for the slot's whole lifetime, so they can be used as
// links between slots instead of pointers.
type Handle uint32

// NilHandle is never handed out. It stands for "no slot".
const NilHandle Handle = 0

const maxHandle = Handle(^uint32(0) - 1)

var (
	ErrOutOfSlots = errors.New("[alloc] out of slots")
)

// Allocator hands out slot handles one at a time.
//
// Two allocators are interchangeable only if they compare Equal, which
// means slots allocated by one may be released through the other.
type Allocator interface {
	// Allocate reserves a new slot. On failure no state is changed.
	Allocate() (Handle, error)
	// Deallocate returns the slot so that its handle may be reused.
	Deallocate(h Handle)
	// Live is the number of slots currently reserved.
	Live() int64
	Equal(other Allocator) bool
}
