package tree

import "github.com/benz9527/xcontainer/lib/alloc"

// Iterator is a cursor on one tree node, the zero handle is the end.
//
// It follows the node links, so it stays valid across the rotations caused
// by inserting or erasing other keys. It is invalidated only if its own
// node is erased.
type Iterator[K, V any] struct {
	tree *rbTree[K, V]
	h    alloc.Handle
}

// IsEnd reports whether it is the end sentinel (one past the last node).
func (it Iterator[K, V]) IsEnd() bool {
	return it.h == alloc.NilHandle
}

func (it Iterator[K, V]) Equal(other Iterator[K, V]) bool {
	return it.tree == other.tree && it.h == other.h
}

func (it Iterator[K, V]) mustNode() *rbNode[K, V] {
	if it.tree == nil || it.h == alloc.NilHandle {
		panic( /* debug assertion */ "[rbtree] dereference the end iterator")
	}
	return it.tree.node(it.h)
}

func (it Iterator[K, V]) Key() K {
	return it.mustNode().key
}

func (it Iterator[K, V]) Val() V {
	return it.mustNode().val
}

// SetVal replaces the value in place, the key and the order are untouched.
func (it Iterator[K, V]) SetVal(val V) {
	it.mustNode().val = val
}

func (it Iterator[K, V]) Color() RBColor {
	return it.mustNode().color
}

// Next moves to the in-order successor. Next of the end is the end.
func (it Iterator[K, V]) Next() Iterator[K, V] {
	if it.tree == nil {
		return it
	}
	return Iterator[K, V]{tree: it.tree, h: it.tree.succ(it.h)}
}

// Prev moves to the in-order predecessor. Prev of the end is the last node,
// Prev of the first node is the end.
func (it Iterator[K, V]) Prev() Iterator[K, V] {
	if it.tree == nil {
		return it
	}
	if it.h == alloc.NilHandle {
		return it.tree.Last()
	}
	return Iterator[K, V]{tree: it.tree, h: it.tree.pred(it.h)}
}

var _ RBNode[int, int] = nodeRef[int, int]{}

type nodeRef[K, V any] struct {
	tree *rbTree[K, V]
	h    alloc.Handle
}

func (tree *rbTree[K, V]) nodeRef(h alloc.Handle) RBNode[K, V] {
	if h == alloc.NilHandle {
		return nil
	}
	return nodeRef[K, V]{tree: tree, h: h}
}

func (ref nodeRef[K, V]) Key() K {
	return ref.tree.node(ref.h).key
}

func (ref nodeRef[K, V]) Val() V {
	return ref.tree.node(ref.h).val
}

func (ref nodeRef[K, V]) Color() RBColor {
	return ref.tree.node(ref.h).color
}

func (ref nodeRef[K, V]) Left() RBNode[K, V] {
	return ref.tree.nodeRef(ref.tree.node(ref.h).left)
}

func (ref nodeRef[K, V]) Right() RBNode[K, V] {
	return ref.tree.nodeRef(ref.tree.node(ref.h).right)
}

func (ref nodeRef[K, V]) Parent() RBNode[K, V] {
	return ref.tree.nodeRef(ref.tree.node(ref.h).parent)
}
