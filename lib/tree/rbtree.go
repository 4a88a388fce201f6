package tree

import (
	"go.uber.org/zap"

	"github.com/benz9527/xcontainer/lib/alloc"
	"github.com/benz9527/xcontainer/lib/infra"
)

type rbNode[K, V any] struct {
	parent alloc.Handle
	left   alloc.Handle
	right  alloc.Handle
	key    K
	val    V
	color  RBColor
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
//
// Nodes live in an arena and link to each other by handles, so a node
// keeps its handle from insert until it is erased. Iterators rely on it.
type rbTree[K, V any] struct {
	arena  *alloc.Arena[rbNode[K, V]]
	less   infra.LessFn[K]
	logger *zap.Logger
	root   alloc.Handle
	count  int64
}

func (tree *rbTree[K, V]) node(h alloc.Handle) *rbNode[K, V] {
	return tree.arena.At(h)
}

func (tree *rbTree[K, V]) isRed(h alloc.Handle) bool {
	return h != alloc.NilHandle && tree.node(h).color == Red
}

func (tree *rbTree[K, V]) child(h alloc.Handle, dir RBDirection) alloc.Handle {
	if dir == Left {
		return tree.node(h).left
	}
	return tree.node(h).right
}

func (tree *rbTree[K, V]) setChild(h alloc.Handle, dir RBDirection, c alloc.Handle) {
	if dir == Left {
		tree.node(h).left = c
	} else {
		tree.node(h).right = c
	}
	if c != alloc.NilHandle {
		tree.node(c).parent = h
	}
}

func (tree *rbTree[K, V]) direction(h alloc.Handle) RBDirection {
	p := tree.node(h).parent
	if p == alloc.NilHandle {
		return Root
	}
	if tree.node(p).left == h {
		return Left
	}
	return Right
}

// replaceChild links c into the place old holds under parent p.
// A nil parent means old is the root.
func (tree *rbTree[K, V]) replaceChild(p, old, c alloc.Handle) {
	if p == alloc.NilHandle {
		tree.root = c
	} else if tree.node(p).left == old {
		tree.node(p).left = c
	} else {
		tree.node(p).right = c
	}
	if c != alloc.NilHandle {
		tree.node(c).parent = p
	}
}

func (tree *rbTree[K, V]) minimum(h alloc.Handle) alloc.Handle {
	for h != alloc.NilHandle && tree.node(h).left != alloc.NilHandle {
		h = tree.node(h).left
	}
	return h
}

func (tree *rbTree[K, V]) maximum(h alloc.Handle) alloc.Handle {
	for h != alloc.NilHandle && tree.node(h).right != alloc.NilHandle {
		h = tree.node(h).right
	}
	return h
}

// The succ node of the current node is its next node in sorted order.
func (tree *rbTree[K, V]) succ(h alloc.Handle) alloc.Handle {
	if h == alloc.NilHandle {
		return alloc.NilHandle
	}
	if r := tree.node(h).right; r != alloc.NilHandle {
		return tree.minimum(r)
	}
	// Backtrack to the first ancestor reached from its left link.
	p := tree.node(h).parent
	for p != alloc.NilHandle && h == tree.node(p).right {
		h = p
		p = tree.node(p).parent
	}
	return p
}

// The pred node of the current node is its previous node in sorted order.
func (tree *rbTree[K, V]) pred(h alloc.Handle) alloc.Handle {
	if h == alloc.NilHandle {
		return alloc.NilHandle
	}
	if l := tree.node(h).left; l != alloc.NilHandle {
		return tree.maximum(l)
	}
	p := tree.node(h).parent
	for p != alloc.NilHandle && h == tree.node(p).left {
		h = p
		p = tree.node(p).parent
	}
	return p
}

func (tree *rbTree[K, V]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K, V]) Empty() bool {
	return tree.count == 0
}

func (tree *rbTree[K, V]) Less(i, j K) bool {
	return tree.less(i, j)
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	return tree.nodeRef(tree.root)
}

func (tree *rbTree[K, V]) Allocator() alloc.Allocator {
	return tree.arena.Allocator()
}

/*
rotate(X, Left), the child opposite to the direction becomes the subtree root.

		 |                         |
		 X                         S
		/ \     rotate(X, Left)   / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc

rotate(S, Right) is the mirror image.
The outgoing root X is painted red and the new root S black.
*/
func (tree *rbTree[K, V]) rotate(x alloc.Handle, dir RBDirection) alloc.Handle {
	opp := dir.opposite()
	if x == alloc.NilHandle || tree.child(x, opp) == alloc.NilHandle {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] rotate node x is nil or its pivot is nil")
	}
	y := tree.child(x, opp)

	tree.replaceChild(tree.node(x).parent, x, y)
	tree.setChild(x, opp, tree.child(y, dir))
	tree.setChild(y, dir, x)

	tree.node(x).color = Red
	tree.node(y).color = Black
	return y
}

// doubleRotate rotates the far child of x away first, then x itself.
func (tree *rbTree[K, V]) doubleRotate(x alloc.Handle, dir RBDirection) alloc.Handle {
	tree.rotate(tree.child(x, dir.opposite()), dir.opposite())
	return tree.rotate(x, dir)
}

func (tree *rbTree[K, V]) find(key K) alloc.Handle {
	for aux := tree.root; aux != alloc.NilHandle; {
		n := tree.node(aux)
		if tree.less(key, n.key) {
			aux = n.left
		} else if tree.less(n.key, key) {
			aux = n.right
		} else {
			return aux
		}
	}
	return alloc.NilHandle
}

// i1: Empty rbtree, insert directly, but root node is painted to black.
// i2: An equivalent key is resident, nothing changes.
func (tree *rbTree[K, V]) insert(key K, val V) (alloc.Handle, bool, error) {
	var (
		y   = alloc.NilHandle
		dir = Root
	)
	for x := tree.root; x != alloc.NilHandle; {
		y = x
		n := tree.node(x)
		if /* less */ tree.less(key, n.key) {
			x, dir = n.left, Left
		} else /* greater */ if tree.less(n.key, key) {
			x, dir = n.right, Right
		} else /* i2 */ {
			return x, false, nil
		}
	}

	// Storage first, the tree is untouched if it fails.
	z, err := tree.arena.Allocate()
	if err != nil {
		err = infra.WrapErrorStackWithMessage(err, "[rbtree] insert node allocation failed")
		fields := []zap.Field{zap.Int64("len", tree.count)}
		if es, ok := err.(infra.ErrorStack); ok {
			fields = append(fields, zap.Inline(es))
		}
		tree.logger.Warn("[rbtree] node allocation failed", fields...)
		return alloc.NilHandle, false, err
	}
	tree.arena.Construct(z, rbNode[K, V]{
		key:   key,
		val:   val,
		color: Red,
	})

	if /* i1 */ y == alloc.NilHandle {
		tree.root = z
	} else {
		tree.setChild(y, dir, z)
		tree.insertRebalance(z)
	}
	tree.node(tree.root).color = Black
	tree.count++
	return z, true, nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: The parent P is black, nothing to do.

im2: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
Repaint P and U into black and G into red. G may be red-violation now,
continue to fix G.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im3: The parent P is red but the uncle U is black and X is the inner
grandchild. Double rotate G, X becomes the subtree root.

	  [G]                   [G]                 [X]
	  / \    rotate(P)      / \    rotate(G)    / \
	<P> [U]  ========>    <X> [U]  ========>  <P> <G>
	  \                   /                         \
	  <X>               <P>                         [U]

im4: The parent P is red, the uncle U is black and X is the outer
grandchild. Rotate G, P becomes the subtree root.

	    [G]                 [P]
	    / \    rotate(G)    / \
	  <P> [U]  ========>  <X> <G>
	  /                         \
	<X>                         [U]
*/
func (tree *rbTree[K, V]) insertRebalance(x alloc.Handle) {
	for /* im1 */ tree.isRed(tree.node(x).parent) {
		p := tree.node(x).parent
		g := tree.node(p).parent // A red parent is never the root.
		dir := tree.direction(p)
		u := tree.child(g, dir.opposite())

		if /* im2 */ tree.isRed(u) {
			tree.node(p).color = Black
			tree.node(u).color = Black
			tree.node(g).color = Red
			x = g
			continue
		}

		if /* im3 */ x == tree.child(p, dir.opposite()) {
			tree.doubleRotate(g, dir.opposite())
		} else /* im4 */ {
			tree.rotate(g, dir.opposite())
		}
		return
	}
}

/*
r1: Current node Z has at most one child, the child takes its place.

r2: Current node Z has left and right node.
Find the succ S (leftmost of the right subtree). S is spliced into Z's
structural place with Z's color, and S's old place, which has no left
child, is the one physically vacated. Nodes never swap keys and values,
so every other handle and iterator stays valid.

	  |                    |
	  Z                    S
	 / \                  / \
	L  ..   splice(S)    L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..               Sr  ..
	   \
	   Sr

r3: The vacated place was red, nothing to do.

r4: The vacated place was black but its replacement child is red, repaint
the child into black.

r5: The vacated place was black and its replacement is black (or NIL),
we have to rebalance. (black-violation)
*/
func (tree *rbTree[K, V]) removeNode(z alloc.Handle) {
	zn := tree.node(z)
	removedColor := zn.color
	var child, parent alloc.Handle

	if /* r1 */ zn.left == alloc.NilHandle || zn.right == alloc.NilHandle {
		child = zn.left
		if child == alloc.NilHandle {
			child = zn.right
		}
		parent = zn.parent
		tree.replaceChild(parent, z, child)
	} else /* r2 */ {
		s := tree.minimum(zn.right)
		removedColor = tree.node(s).color
		child = tree.node(s).right
		if s == zn.right {
			parent = s
		} else {
			parent = tree.node(s).parent
			tree.setChild(parent, Left, child)
			tree.setChild(s, Right, zn.right)
		}
		tree.replaceChild(zn.parent, z, s)
		tree.setChild(s, Left, zn.left)
		tree.node(s).color = zn.color
	}

	if removedColor == Black {
		if /* r4 */ tree.isRed(child) {
			tree.node(child).color = Black
		} else /* r5 */ {
			tree.removeRebalance(parent, child)
		}
	}

	tree.arena.Destroy(z)
	tree.arena.Deallocate(z)
	tree.count--
	if tree.root != alloc.NilHandle {
		tree.node(tree.root).color = Black
	}
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X is the black deficit place (may be NIL), P is its parent.
Sc is the sibling's child at the same direction as X.
Sd is the sibling's child at the opposite direction to X.

rm1: The sibling S is red, so P, Sc and Sd must be black.
Rotate P toward X, S becomes black and P red. X gets a new black sibling
(the former Sc), enter rm2-rm4 to fix.

	  [P]                   [S]
	  / \    rotate(P)      / \
	[X] <S>  ==========>  <P> [Sd]
	    / \               / \
	 [Sc] [Sd]          [X] [Sc]

rm2: The sibling S and both nephews are black, P is red.
Repaint S into red and P into black, the deficit is absorbed.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: P, S, Sc and Sd are all black. Repaint S into red, the whole
subtree of P is short of one black now, continue to fix P.

rm4: The sibling S is black with at least one red nephew.
If Sd is red, rotate P toward X. Otherwise Sc is red, double rotate P.
The new subtree root takes P's color and both of its children are
painted black, the deficit is absorbed.

	  {P}                   {S}
	  / \    rotate(P)      / \
	[X] [S]  ==========>  [P] [Sd]
	    / \               / \
	 {Sc} <Sd>          [X] {Sc}

	  {P}                       {Sc}
	  / \    double-rotate(P)   /  \
	[X] [S]  ==============>  [P]  [S]
	    / \                   /      \
	 <Sc> [Sd]              [X]      [Sd]
*/
func (tree *rbTree[K, V]) removeRebalance(parent, x alloc.Handle) {
	for parent != alloc.NilHandle {
		dir := Right
		if tree.node(parent).left == x {
			dir = Left
		}
		opp := dir.opposite()

		top := parent
		sibling := tree.child(parent, opp)
		if /* rm1 */ tree.isRed(sibling) {
			top = tree.rotate(parent, dir)
			sibling = tree.child(parent, opp)
		}
		if sibling == alloc.NilHandle {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove rebalance without sibling (black-violation)")
		}

		if !tree.isRed(tree.child(sibling, dir)) && !tree.isRed(tree.child(sibling, opp)) {
			tree.node(sibling).color = Red
			if /* rm2 */ tree.node(parent).color == Red {
				tree.node(parent).color = Black
				return
			}
			// rm3
			x = top
			parent = tree.node(top).parent
			continue
		}

		// rm4
		color := tree.node(parent).color
		if tree.isRed(tree.child(sibling, opp)) {
			top = tree.rotate(parent, dir)
		} else {
			top = tree.doubleRotate(parent, dir)
		}
		n := tree.node(top)
		n.color = color
		tree.node(n.left).color = Black
		tree.node(n.right).color = Black
		return
	}
}

func (tree *rbTree[K, V]) erase(key K) int {
	z := tree.find(key)
	if z == alloc.NilHandle {
		return 0
	}
	tree.removeNode(z)
	return 1
}

func (tree *rbTree[K, V]) eraseAt(h alloc.Handle) alloc.Handle {
	if !tree.arena.Alive(h) {
		panic( /* debug assertion */ "[rbtree] erase by an end or invalidated iterator")
	}
	next := tree.succ(h)
	tree.removeNode(h)
	return next
}

// Inorder traversal without stack, succ follows the parent links.
func (tree *rbTree[K, V]) foreach(action func(idx int64, h alloc.Handle) bool) {
	idx := int64(0)
	for aux := tree.minimum(tree.root); aux != alloc.NilHandle; aux = tree.succ(aux) {
		if !action(idx, aux) {
			return
		}
		idx++
	}
}

func (tree *rbTree[K, V]) Keys() []K {
	keys := make([]K, 0, tree.count)
	tree.foreach(func(_ int64, h alloc.Handle) bool {
		keys = append(keys, tree.node(h).key)
		return true
	})
	return keys
}

// Postorder traversal to destroy all nodes, a freed child is never revisited.
func (tree *rbTree[K, V]) Clear() {
	released := tree.count
	aux := tree.root
	tree.root = alloc.NilHandle
	for aux != alloc.NilHandle {
		n := tree.node(aux)
		if n.left != alloc.NilHandle {
			aux = n.left
			continue
		}
		if n.right != alloc.NilHandle {
			aux = n.right
			continue
		}
		p := n.parent
		if p != alloc.NilHandle {
			if pn := tree.node(p); pn.left == aux {
				pn.left = alloc.NilHandle
			} else {
				pn.right = alloc.NilHandle
			}
		}
		tree.arena.Destroy(aux)
		tree.arena.Deallocate(aux)
		tree.count--
		aux = p
	}
	tree.logger.Debug("[rbtree] cleared", zap.Int64("released", released))
}

// Release clears the tree and drops the arena storage.
func (tree *rbTree[K, V]) Release() {
	tree.Clear()
	tree.arena.Reset()
}

func (tree *rbTree[K, V]) Begin() Iterator[K, V] {
	return Iterator[K, V]{tree: tree, h: tree.minimum(tree.root)}
}

func (tree *rbTree[K, V]) Last() Iterator[K, V] {
	return Iterator[K, V]{tree: tree, h: tree.maximum(tree.root)}
}

func (tree *rbTree[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{tree: tree, h: alloc.NilHandle}
}

func (tree *rbTree[K, V]) Find(key K) Iterator[K, V] {
	return Iterator[K, V]{tree: tree, h: tree.find(key)}
}

func (tree *rbTree[K, V]) Contains(key K) bool {
	return tree.find(key) != alloc.NilHandle
}

func (tree *rbTree[K, V]) Erase(key K) int {
	return tree.erase(key)
}

func (tree *rbTree[K, V]) EraseAt(it Iterator[K, V]) Iterator[K, V] {
	if it.tree != tree {
		panic( /* debug assertion */ "[rbtree] erase by an iterator of another tree")
	}
	return Iterator[K, V]{tree: tree, h: tree.eraseAt(it.h)}
}

type rbTreeCfg[K any] struct {
	less      infra.LessFn[K]
	allocator alloc.Allocator
	logger    *zap.Logger
	isDesc    bool
}

type RBTreeOpt[K any] func(*rbTreeCfg[K])

// WithRBTreeLess replaces the key order.
func WithRBTreeLess[K any](less infra.LessFn[K]) RBTreeOpt[K] {
	return func(cfg *rbTreeCfg[K]) {
		if less != nil {
			cfg.less = less
		}
	}
}

// WithRBTreeComparator orders the keys by a three-way comparator.
func WithRBTreeComparator[K any](cmp infra.Comparator[K]) RBTreeOpt[K] {
	return func(cfg *rbTreeCfg[K]) {
		if cmp != nil {
			cfg.less = cmp.Less()
		}
	}
}

func WithRBTreeDesc[K any]() RBTreeOpt[K] {
	return func(cfg *rbTreeCfg[K]) {
		cfg.isDesc = true
	}
}

// WithRBTreeAllocator injects the node slot allocator.
// It is fixed for the lifetime of the tree.
func WithRBTreeAllocator[K any](allocator alloc.Allocator) RBTreeOpt[K] {
	return func(cfg *rbTreeCfg[K]) {
		cfg.allocator = allocator
	}
}

func WithRBTreeLogger[K any](logger *zap.Logger) RBTreeOpt[K] {
	return func(cfg *rbTreeCfg[K]) {
		cfg.logger = logger
	}
}

func newRBTree[K, V any](less infra.LessFn[K], opts ...RBTreeOpt[K]) *rbTree[K, V] {
	cfg := &rbTreeCfg[K]{
		less: less,
	}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	if cfg.less == nil {
		panic( /* debug assertion */ "[rbtree] key order is required")
	}
	if cfg.isDesc {
		cfg.less = infra.Reverse(cfg.less)
	}
	if cfg.allocator == nil {
		cfg.allocator = alloc.NewSlotAllocator()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &rbTree[K, V]{
		arena:  alloc.NewArena[rbNode[K, V]](cfg.allocator),
		less:   cfg.less,
		logger: cfg.logger.Named("rbtree"),
		root:   alloc.NilHandle,
	}
}
