package tree

import (
	"github.com/benz9527/xcontainer/lib/alloc"
	"github.com/benz9527/xcontainer/lib/infra"
)

var _ Map[int, int] = (*rbMap[int, int])(nil)

type rbMap[K, V any] struct {
	*rbTree[K, V]
}

func (m *rbMap[K, V]) Insert(key K, val V) (Iterator[K, V], bool, error) {
	h, ok, err := m.insert(key, val)
	if err != nil {
		return m.End(), false, err
	}
	return Iterator[K, V]{tree: m.rbTree, h: h}, ok, nil
}

func (m *rbMap[K, V]) Get(key K) (V, bool) {
	if h := m.find(key); h != alloc.NilHandle {
		return m.node(h).val, true
	}
	var zero V
	return zero, false
}

func (m *rbMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	m.foreach(func(idx int64, h alloc.Handle) bool {
		n := m.node(h)
		return action(idx, n.key, n.val)
	})
}

// NewMap creates a map ordered by less.
func NewMap[K, V any](less infra.LessFn[K], opts ...RBTreeOpt[K]) Map[K, V] {
	return &rbMap[K, V]{
		rbTree: newRBTree[K, V](less, opts...),
	}
}

// NewOrderedMap creates a map in the natural order of K.
func NewOrderedMap[K infra.OrderedKey, V any](opts ...RBTreeOpt[K]) Map[K, V] {
	return NewMap[K, V](infra.OrderedLess[K], opts...)
}
