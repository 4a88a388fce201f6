package tree

import "github.com/benz9527/xcontainer/lib/alloc"

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	if c == Red {
		return "Red"
	}
	return "Black"
}

// RBDirection is the side of a child under its parent.
// Left and Right are mirrored by negation.
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (dir RBDirection) String() string {
	switch dir {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
	}
	return "Root"
}

func (dir RBDirection) opposite() RBDirection {
	return -dir
}

// RBNode is a read only view of a tree node.
// A nil RBNode is the black nil leaf.
type RBNode[K, V any] interface {
	Key() K
	Val() V
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is the read only surface shared by Set and Map.
// The rbtree rule validators work on it.
type RBTree[K, V any] interface {
	Len() int64
	Root() RBNode[K, V]
	Less(i, j K) bool
}

// Set is an ordered set of unique keys.
// It is not thread safe.
type Set[K any] interface {
	RBTree[K, struct{}]
	Empty() bool
	// Insert adds key if no equivalent key is present. The iterator always
	// refers to the resident node. The error is only non-nil if the node
	// allocation failed, then the set is unchanged.
	Insert(key K) (Iterator[K, struct{}], bool, error)
	// Erase removes key and returns the number of removed keys (0 or 1).
	Erase(key K) int
	// EraseAt removes the node of it and returns the iterator to its
	// in-order successor. it is invalidated.
	EraseAt(it Iterator[K, struct{}]) Iterator[K, struct{}]
	Find(key K) Iterator[K, struct{}]
	Contains(key K) bool
	Begin() Iterator[K, struct{}]
	Last() Iterator[K, struct{}]
	End() Iterator[K, struct{}]
	Foreach(action func(idx int64, key K) bool)
	Keys() []K
	Clear()
	Release()
	Allocator() alloc.Allocator
}

// Map is an ordered key/value map with unique keys.
// It is not thread safe.
type Map[K, V any] interface {
	RBTree[K, V]
	Empty() bool
	// Insert adds key with val if no equivalent key is present. A present
	// key keeps its first value. The error is only non-nil if the node
	// allocation failed, then the map is unchanged.
	Insert(key K, val V) (Iterator[K, V], bool, error)
	Get(key K) (V, bool)
	Erase(key K) int
	EraseAt(it Iterator[K, V]) Iterator[K, V]
	Find(key K) Iterator[K, V]
	Contains(key K) bool
	Begin() Iterator[K, V]
	Last() Iterator[K, V]
	End() Iterator[K, V]
	Foreach(action func(idx int64, key K, val V) bool)
	Keys() []K
	Clear()
	Release()
	Allocator() alloc.Allocator
}
