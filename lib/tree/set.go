package tree

import (
	"github.com/benz9527/xcontainer/lib/alloc"
	"github.com/benz9527/xcontainer/lib/infra"
)

var _ Set[int] = (*rbSet[int])(nil)

type rbSet[K any] struct {
	*rbTree[K, struct{}]
}

func (s *rbSet[K]) Insert(key K) (Iterator[K, struct{}], bool, error) {
	h, ok, err := s.insert(key, struct{}{})
	if err != nil {
		return s.End(), false, err
	}
	return Iterator[K, struct{}]{tree: s.rbTree, h: h}, ok, nil
}

func (s *rbSet[K]) Foreach(action func(idx int64, key K) bool) {
	s.foreach(func(idx int64, h alloc.Handle) bool {
		return action(idx, s.node(h).key)
	})
}

// NewSet creates a set ordered by less.
func NewSet[K any](less infra.LessFn[K], opts ...RBTreeOpt[K]) Set[K] {
	return &rbSet[K]{
		rbTree: newRBTree[K, struct{}](less, opts...),
	}
}

// NewOrderedSet creates a set in the natural order of K.
func NewOrderedSet[K infra.OrderedKey](opts ...RBTreeOpt[K]) Set[K] {
	return NewSet[K](infra.OrderedLess[K], opts...)
}
