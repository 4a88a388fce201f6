package tree

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

func isBlack[K, V any](node RBNode[K, V]) bool {
	return isNilLeaf[K, V](node) || node.Color() == Black
}

func isRed[K, V any](node RBNode[K, V]) bool {
	return !isNilLeaf[K, V](node) && node.Color() == Red
}

func isNilLeaf[K, V any](node RBNode[K, V]) bool {
	return node == nil
}

func blackDepthTo[K, V any](target, to RBNode[K, V]) int {
	depth := 0
	for aux := target; aux != to; aux = aux.Parent() {
		if isBlack[K, V](aux) {
			depth++
		}
	}
	// The stop node itself.
	if isBlack[K, V](to) {
		depth++
	}
	return depth
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// Inorder traversal to visit every node once.
func inorder[K, V any](tree RBTree[K, V], action func(node RBNode[K, V]) error) error {
	// Walk the reachable nodes whatever Len says, CountValidate relies on it.
	aux := tree.Root()
	if isNilLeaf[K, V](aux) {
		return nil
	}

	stack := make([]RBNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()

	for ; !isNilLeaf[K, V](aux); aux = aux.Left() {
		stack = append(stack, aux)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		if err := action(aux); err != nil {
			return err
		}
		stack = stack[:size-1]
		for aux = aux.Right(); !isNilLeaf[K, V](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

func RootColorValidate[K, V any](tree RBTree[K, V]) error {
	if root := tree.Root(); isRed[K, V](root) {
		return errors.New("rbtree root is red")
	}
	return nil
}

// RedViolationValidate checks that no red node has a red child.
func RedViolationValidate[K, V any](tree RBTree[K, V]) error {
	return inorder[K, V](tree, func(node RBNode[K, V]) error {
		if isRed[K, V](node) && (isRed[K, V](node.Left()) || isRed[K, V](node.Right())) {
			return errors.New("rbtree red violation")
		}
		return nil
	})
}

// BFS traversal to load all nodes with at least one nil leaf.
func bfsLeaves[K, V any](tree RBTree[K, V]) []RBNode[K, V] {
	aux := tree.Root()
	if isNilLeaf[K, V](aux) {
		return nil
	}

	leaves := make([]RBNode[K, V], 0, 64)
	queue := make([]RBNode[K, V], 0, 64)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ isNilLeaf[K, V](l) || isNilLeaf[K, V](r) {
			leaves = append(leaves, aux)
		}
		if !isNilLeaf[K, V](l) {
			queue = append(queue, l)
		}
		if !isNilLeaf[K, V](r) {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
*/
func BlackViolationValidate[K, V any](tree RBTree[K, V]) error {
	leaves := bfsLeaves[K, V](tree)
	if leaves == nil {
		return nil
	}

	root := tree.Root()
	blackDepth := blackDepthTo[K, V](leaves[0], root)
	for i := 1; i < len(leaves); i++ {
		if depth := blackDepthTo[K, V](leaves[i], root); depth != blackDepth {
			return fmt.Errorf("rbtree black violation, black depth %d != %d", depth, blackDepth)
		}
	}
	return nil
}

// OrderValidate checks the inorder keys are strictly increasing.
func OrderValidate[K, V any](tree RBTree[K, V]) error {
	var prev RBNode[K, V]
	return inorder[K, V](tree, func(node RBNode[K, V]) error {
		if prev != nil && !tree.Less(prev.Key(), node.Key()) {
			return fmt.Errorf("rbtree order violation at key %v", node.Key())
		}
		prev = node
		return nil
	})
}

// LinkValidate checks every child links back to its parent.
func LinkValidate[K, V any](tree RBTree[K, V]) error {
	if root := tree.Root(); root != nil && root.Parent() != nil {
		return errors.New("rbtree root has a parent")
	}
	return inorder[K, V](tree, func(node RBNode[K, V]) error {
		for _, c := range [2]RBNode[K, V]{node.Left(), node.Right()} {
			if c != nil && c.Parent() != node {
				return fmt.Errorf("rbtree broken parent link under key %v", node.Key())
			}
		}
		return nil
	})
}

// CountValidate checks the number of reachable nodes equals Len.
func CountValidate[K, V any](tree RBTree[K, V]) error {
	count := int64(0)
	_ = inorder[K, V](tree, func(RBNode[K, V]) error {
		count++
		return nil
	})
	if count != tree.Len() {
		return fmt.Errorf("rbtree count %d != len %d", count, tree.Len())
	}
	return nil
}

// Validate runs all the rbtree rule validators and combines their errors.
func Validate[K, V any](tree RBTree[K, V]) error {
	return multierr.Combine(
		RootColorValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		OrderValidate[K, V](tree),
		LinkValidate[K, V](tree),
		CountValidate[K, V](tree),
	)
}
