package tree

import (
	"errors"
	randv2 "math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/benz9527/xcontainer/lib/alloc"
	"github.com/benz9527/xcontainer/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireColors(t *testing.T, tree *rbTree[uint64, uint64], expected []checkData) {
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.foreach(func(idx int64, h alloc.Handle) bool {
		n := tree.node(h)
		require.Equal(t, expected[idx].color, n.color)
		require.Equal(t, expected[idx].key, n.key)
		return true
	})
	require.NoError(t, Validate[uint64, uint64](tree))
}

func TestNilNode(t *testing.T) {
	tree := newRBTree[uint64, uint64](infra.OrderedLess[uint64])
	require.Nil(t, tree.Root())

	tree.insert(1, 1)
	root := tree.Root()
	require.NotNil(t, root)
	require.Nil(t, root.Parent())
	require.Nil(t, root.Left())
	require.Nil(t, root.Right())
	require.Equal(t, Black, root.Color())
	require.True(t, isBlack[uint64, uint64](root.Left()))
}

func TestRbtreeLeftAndRightRotate(t *testing.T) {
	tree := newRBTree[uint64, uint64](infra.OrderedLess[uint64])

	tree.insert(52, 1)
	requireColors(t, tree, []checkData{
		{Black, 52},
	})

	tree.insert(47, 1)
	requireColors(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	tree.insert(3, 1)
	requireColors(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})

	tree.insert(35, 1)
	requireColors(t, tree, []checkData{
		{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	tree.insert(24, 1)
	requireColors(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	// remove

	require.Equal(t, 1, tree.Erase(24))
	requireColors(t, tree, []checkData{
		{Red, 3}, {Black, 35}, {Black, 47}, {Black, 52},
	})

	require.Equal(t, 1, tree.Erase(47))
	requireColors(t, tree, []checkData{
		{Black, 3}, {Black, 35}, {Black, 52},
	})
	require.Equal(t, uint64(35), tree.Root().Key())

	require.Equal(t, 1, tree.Erase(52))
	requireColors(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	require.Equal(t, 1, tree.Erase(3))
	requireColors(t, tree, []checkData{
		{Black, 35},
	})

	require.Equal(t, 0, tree.Erase(3))
	require.Equal(t, 1, tree.Erase(35))
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtreeInsertDoubleRotate(t *testing.T) {
	tree := newRBTree[uint64, uint64](infra.OrderedLess[uint64])
	for _, key := range []uint64{3, 1, 2} {
		_, ok, err := tree.insert(key, key)
		require.NoError(t, err)
		require.True(t, ok)
	}

	root := tree.Root()
	require.Equal(t, uint64(2), root.Key())
	require.Equal(t, Black, root.Color())
	require.Equal(t, uint64(1), root.Left().Key())
	require.Equal(t, Red, root.Left().Color())
	require.Equal(t, uint64(3), root.Right().Key())
	require.Equal(t, Red, root.Right().Color())
	require.NoError(t, Validate[uint64, uint64](tree))
}

func TestRbtreeDoubleRotate(t *testing.T) {
	tree := newRBTree[uint64, uint64](infra.OrderedLess[uint64])
	for _, key := range []uint64{10, 5, 15, 12} {
		tree.insert(key, key)
	}
	require.NoError(t, Validate[uint64, uint64](tree))

	top := tree.doubleRotate(tree.root, Left)
	require.Equal(t, tree.root, top)

	root := tree.Root()
	require.Equal(t, uint64(12), root.Key())
	require.Equal(t, Black, root.Color())
	require.Equal(t, uint64(10), root.Left().Key())
	require.Equal(t, Red, root.Left().Color())
	require.Equal(t, uint64(5), root.Left().Left().Key())
	require.Nil(t, root.Left().Right())
	require.Equal(t, uint64(15), root.Right().Key())
	require.Equal(t, Red, root.Right().Color())

	// Only the structure, the colors are fixed by the callers.
	require.NoError(t, OrderValidate[uint64, uint64](tree))
	require.NoError(t, LinkValidate[uint64, uint64](tree))
	require.NoError(t, CountValidate[uint64, uint64](tree))
	require.Equal(t, []uint64{5, 10, 12, 15}, tree.Keys())
}

func TestRbtreeRotateNilPivot(t *testing.T) {
	tree := newRBTree[uint64, uint64](infra.OrderedLess[uint64])
	tree.insert(1, 1)
	require.Panics(t, func() {
		tree.rotate(tree.root, Left)
	})
	require.Panics(t, func() {
		tree.rotate(alloc.NilHandle, Right)
	})
}

func TestSetRoundTrip(t *testing.T) {
	set := NewOrderedSet[int]()
	for _, key := range []int{5, 3, 8, 1, 4, 7, 9, 2, 6, 0} {
		it, ok, err := set.Insert(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, key, it.Key())
		require.NoError(t, Validate[int, struct{}](set))
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, set.Keys())

	for _, key := range []int{3, 8, 0} {
		require.Equal(t, 1, set.Erase(key))
		require.NoError(t, Validate[int, struct{}](set))
	}
	require.Equal(t, []int{1, 2, 4, 5, 6, 7, 9}, set.Keys())
	require.Equal(t, int64(7), set.Len())
	require.False(t, set.Contains(3))
	require.True(t, set.Find(8).IsEnd())
	require.True(t, set.Contains(9))
}

func TestSetDuplicateInsert(t *testing.T) {
	set := NewOrderedSet[string]()
	first, ok, err := set.Insert("a")
	require.NoError(t, err)
	require.True(t, ok)

	again, ok, err := set.Insert("a")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, first.Equal(again))
	require.Equal(t, int64(1), set.Len())
	require.Equal(t, int64(1), set.Allocator().Live())
}

func TestMapDuplicateInsertKeepsFirst(t *testing.T) {
	m := NewOrderedMap[int, string]()
	_, ok, err := m.Insert(1, "first")
	require.NoError(t, err)
	require.True(t, ok)

	it, ok, err := m.Insert(1, "second")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "first", it.Val())

	val, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, "first", val)

	it.SetVal("third")
	val, _ = m.Get(1)
	require.Equal(t, "third", val)

	_, ok = m.Get(2)
	require.False(t, ok)
}

func TestMapForeach(t *testing.T) {
	m := NewOrderedMap[int, string]()
	for i, s := range []string{"c", "a", "b"} {
		m.Insert(i, s)
	}

	vals := make([]string, 0, 3)
	m.Foreach(func(idx int64, key int, val string) bool {
		require.Equal(t, int(idx), key)
		vals = append(vals, val)
		return true
	})
	require.Equal(t, []string{"c", "a", "b"}, vals)

	count := 0
	m.Foreach(func(idx int64, key int, val string) bool {
		count++
		return idx < 1
	})
	require.Equal(t, 2, count)
}

func TestSetFindEraseConsistency(t *testing.T) {
	set := NewOrderedSet[int]()
	for i := 0; i < 200; i++ {
		set.Insert(i)
	}
	for i := 0; i < 200; i += 3 {
		require.Equal(t, 1, set.Erase(i))
		require.Equal(t, 0, set.Erase(i))
	}
	for i := 0; i < 200; i++ {
		it := set.Find(i)
		if i%3 == 0 {
			require.True(t, it.IsEnd())
			require.False(t, set.Contains(i))
		} else {
			require.False(t, it.IsEnd())
			require.Equal(t, i, it.Key())
		}
	}
	require.NoError(t, Validate[int, struct{}](set))
}

func TestSetEraseAt(t *testing.T) {
	set := NewOrderedSet[int]()
	for i := 0; i < 10; i++ {
		set.Insert(i)
	}

	next := set.EraseAt(set.Find(4))
	require.Equal(t, 5, next.Key())
	require.False(t, set.Contains(4))

	end := set.EraseAt(set.Last())
	require.True(t, end.IsEnd())
	require.Equal(t, 8, set.Last().Key())

	// Erase the whole set by iterators.
	for it := set.Begin(); !it.IsEnd(); {
		it = set.EraseAt(it)
		require.NoError(t, Validate[int, struct{}](set))
	}
	require.True(t, set.Empty())
	require.Equal(t, int64(0), set.Allocator().Live())

	require.Panics(t, func() {
		set.EraseAt(set.End())
	})
	other := NewOrderedSet[int]()
	other.Insert(1)
	require.Panics(t, func() {
		set.EraseAt(other.Begin())
	})
}

func TestIteratorSurvivesRotations(t *testing.T) {
	m := NewOrderedMap[int, int]()
	first, _, err := m.Insert(1, 100)
	require.NoError(t, err)
	mid, _, err := m.Insert(50, 5000)
	require.NoError(t, err)

	for i := 2; i <= 100; i++ {
		m.Insert(i, i*100)
	}
	require.Equal(t, 1, first.Key())
	require.Equal(t, 100, first.Val())
	require.Equal(t, 2, first.Next().Key())
	require.Equal(t, 50, mid.Key())

	for i := 2; i <= 100; i += 2 {
		if i != 50 {
			m.Erase(i)
		}
	}
	require.Equal(t, 1, first.Key())
	require.Equal(t, 3, first.Next().Key())
	require.Equal(t, 50, mid.Key())
	require.Equal(t, 5000, mid.Val())
	require.Equal(t, 49, mid.Prev().Key())
	require.Equal(t, 51, mid.Next().Key())
	require.NoError(t, Validate[int, int](m))
}

func TestIteratorPrevNext(t *testing.T) {
	set := NewOrderedSet[int]()
	require.True(t, set.Begin().IsEnd())
	require.True(t, set.Last().IsEnd())
	require.True(t, set.End().Prev().IsEnd())

	for _, key := range []int{4, 2, 6, 1, 3, 5, 7} {
		set.Insert(key)
	}
	keys := make([]int, 0, 7)
	for it := set.End().Prev(); !it.IsEnd(); it = it.Prev() {
		keys = append(keys, it.Key())
	}
	require.Equal(t, []int{7, 6, 5, 4, 3, 2, 1}, keys)
	require.True(t, set.Begin().Prev().IsEnd())
	require.True(t, set.Last().Next().IsEnd())
	require.True(t, set.End().Next().IsEnd())
	require.Equal(t, 7, set.Last().Key())
	require.Equal(t, Black, set.Find(4).Color())

	require.Panics(t, func() {
		set.End().Key()
	})
	var zero Iterator[int, struct{}]
	require.True(t, zero.IsEnd())
	require.True(t, zero.Next().IsEnd())
}

func TestSetDesc(t *testing.T) {
	set := NewOrderedSet[int](WithRBTreeDesc[int]())
	for _, key := range []int{5, 3, 8, 1, 4} {
		set.Insert(key)
	}
	require.Equal(t, []int{8, 5, 4, 3, 1}, set.Keys())
	require.Equal(t, 8, set.Begin().Key())
	require.True(t, set.Less(8, 5))
	require.NoError(t, Validate[int, struct{}](set))
}

func TestSetComparator(t *testing.T) {
	set := NewSet[string](nil, WithRBTreeComparator[string](func(i, j string) int64 {
		return int64(strings.Compare(strings.ToLower(i), strings.ToLower(j)))
	}))
	set.Insert("b")
	set.Insert("A")
	_, ok, err := set.Insert("a")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []string{"A", "b"}, set.Keys())

	require.Panics(t, func() {
		NewSet[string](nil)
	})
}

func TestMapAllocationFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	allocator := alloc.NewSlotAllocator(alloc.WithSlotLimit(3))
	m := NewOrderedMap[int, string](
		WithRBTreeAllocator[int](allocator),
		WithRBTreeLogger[int](zap.New(core)),
	)
	for i := 1; i <= 3; i++ {
		_, ok, err := m.Insert(i, "v")
		require.NoError(t, err)
		require.True(t, ok)
	}

	it, ok, err := m.Insert(4, "v")
	require.Error(t, err)
	require.True(t, errors.Is(err, alloc.ErrOutOfSlots))
	require.False(t, ok)
	require.True(t, it.IsEnd())
	require.Equal(t, int64(3), m.Len())
	require.Equal(t, []int{1, 2, 3}, m.Keys())
	require.NoError(t, Validate[int, string](m))
	entries := logs.FilterMessage("[rbtree] node allocation failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "[rbtree] insert node allocation failed: [alloc] out of slots", entries[0].ContextMap()["error"])
	require.NotEmpty(t, entries[0].ContextMap()["errorStack"])

	// Present keys never allocate.
	_, ok, err = m.Insert(2, "v")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 1, m.Erase(2))
	_, ok, err = m.Insert(4, "v")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{1, 3, 4}, m.Keys())
	require.True(t, m.Allocator().Equal(allocator))
}

func TestSetsShareAllocator(t *testing.T) {
	allocator := alloc.NewSlotAllocator()
	s1 := NewOrderedSet[int](WithRBTreeAllocator[int](allocator))
	s2 := NewOrderedSet[int](WithRBTreeAllocator[int](allocator))
	s1.Insert(1)
	s2.Insert(1)
	s2.Insert(2)
	require.Equal(t, int64(3), allocator.Live())
	require.True(t, s1.Allocator().Equal(s2.Allocator()))

	s2.Clear()
	require.Equal(t, int64(1), allocator.Live())
	require.Equal(t, []int{1}, s1.Keys())
}

func TestRBTreeSequentialNumber_Clear(t *testing.T) {
	insertTotal := 10_000

	set := NewOrderedSet[int]()
	tree := set.(*rbSet[int]).rbTree
	for i := 0; i < insertTotal; i++ {
		_, ok, err := set.Insert(i)
		require.NoError(t, err)
		require.True(t, ok)
		if i%100 == 0 {
			require.NoError(t, Validate[int, struct{}](set))
		}
	}
	require.NoError(t, Validate[int, struct{}](set))
	set.Foreach(func(idx int64, key int) bool {
		require.Equal(t, int(idx), key)
		return true
	})

	// Erase all but one key in random order, validating after every erase.
	keys := randv2.Perm(insertTotal)
	for i, key := range keys[:insertTotal-1] {
		it := set.Find(key)
		require.False(t, it.IsEnd())
		next := set.EraseAt(it)
		if !next.IsEnd() {
			require.Less(t, key, next.Key())
		}
		require.NoError(t, Validate[int, struct{}](set))
		require.Equal(t, int64(insertTotal-1-i), set.Len())
		require.Equal(t, set.Len(), tree.arena.Constructed())
	}
	require.Equal(t, []int{keys[insertTotal-1]}, set.Keys())

	set.Clear()
	require.Equal(t, int64(0), set.Len())
	require.Nil(t, set.Root())
	require.Equal(t, int64(0), tree.arena.Constructed())
	require.Equal(t, int64(0), set.Allocator().Live())

	set.Insert(1)
	set.Release()
	require.True(t, set.Empty())
	require.Nil(t, set.Root())
	require.Equal(t, int64(0), tree.arena.Constructed())
	require.Equal(t, int64(0), set.Allocator().Live())
}

func rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t *testing.T, desc bool) {
	total := uint64(1000)
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	opts := make([]RBTreeOpt[uint64], 0, 1)
	if desc {
		opts = append(opts, WithRBTreeDesc[uint64]())
	}
	m := NewOrderedMap[uint64, uint64](opts...)
	keyAt := func(idx int64, n uint64) uint64 {
		if desc {
			return n - 1 - uint64(idx)
		}
		return uint64(idx)
	}

	for i := uint64(0); i < insertTotal; i++ {
		m.Insert(i, 1)
		require.NoError(t, Validate[uint64, uint64](m))
	}
	m.Foreach(func(idx int64, key uint64, val uint64) bool {
		require.Equal(t, keyAt(idx, insertTotal), key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		m.Insert(i, 1)
		require.NoError(t, Validate[uint64, uint64](m))
	}
	m.Foreach(func(idx int64, key uint64, val uint64) bool {
		require.Equal(t, keyAt(idx, insertTotal+removeTotal), key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		if i == 892 {
			it := m.Find(i)
			require.Equal(t, uint64(892), it.Key())
		}
		require.Equal(t, 1, m.Erase(i))
		require.NoError(t, Validate[uint64, uint64](m))
	}
	m.Foreach(func(idx int64, key uint64, val uint64) bool {
		require.Equal(t, keyAt(idx, insertTotal), key)
		return true
	})
}

func TestRbtreeRandomInsertAndRemove_SequentialNumber(t *testing.T) {
	type testcase struct {
		name string
		desc bool
	}
	testcases := []testcase{
		{
			name: "asc",
		},
		{
			name: "desc",
			desc: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveSequentialNumberRunCore(tt, tc.desc)
		})
	}
}

func rbtreeRandomInsertAndRemove_RandomNumberRunCore(t *testing.T, total uint64, violationCheck bool) {
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	// Disjoint keys, the insert elements are even and the remove elements odd.
	insertElements := make([]uint64, 0, insertTotal)
	removeElements := make([]uint64, 0, removeTotal)
	for num := uint64(0); uint64(len(insertElements)) < insertTotal || uint64(len(removeElements)) < removeTotal; num++ {
		if num&0x1 == 0 && uint64(len(insertElements)) < insertTotal {
			insertElements = append(insertElements, num)
		} else if num&0x1 == 1 && uint64(len(removeElements)) < removeTotal {
			removeElements = append(removeElements, num)
		}
	}
	randv2.Shuffle(len(insertElements), func(i, j int) {
		insertElements[i], insertElements[j] = insertElements[j], insertElements[i]
	})
	randv2.Shuffle(len(removeElements), func(i, j int) {
		removeElements[i], removeElements[j] = removeElements[j], removeElements[i]
	})

	m := NewOrderedMap[uint64, uint64]()
	for i := uint64(0); i < insertTotal; i++ {
		m.Insert(insertElements[i], i)
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](m))
		}
	}
	sort.Slice(insertElements, func(i, j int) bool {
		return insertElements[i] < insertElements[j]
	})
	m.Foreach(func(idx int64, key uint64, val uint64) bool {
		require.Equal(t, insertElements[idx], key)
		return true
	})

	for i := uint64(0); i < removeTotal; i++ {
		m.Insert(removeElements[i], 1)
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](m))
		}
	}
	require.NoError(t, Validate[uint64, uint64](m))

	for i := uint64(0); i < removeTotal; i++ {
		require.Equalf(t, 1, m.Erase(removeElements[i]), "key: %d\n", removeElements[i])
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](m))
		}
	}
	m.Foreach(func(idx int64, key uint64, val uint64) bool {
		require.Equal(t, insertElements[idx], key)
		return true
	})
	require.Equal(t, int64(insertTotal), m.Allocator().Live())
}

func TestRbtreeRandomInsertAndRemove_RandomNumber(t *testing.T) {
	type testcase struct {
		name           string
		total          uint64
		violationCheck bool
	}
	testcases := []testcase{
		{
			name:  "random 100000",
			total: 100000,
		},
		{
			name:           "violation check random 5000",
			total:          5000,
			violationCheck: true,
		},
	}
	t.Parallel()
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemove_RandomNumberRunCore(tt, tc.total, tc.violationCheck)
		})
	}
}

func BenchmarkRBTree_Random(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	m := NewOrderedMap[int, []byte]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := m.Insert(rngArr[i], testByBytes); err != nil {
			panic(err)
		}
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	m := NewOrderedMap[int, []byte]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		m.Insert(i, testByBytes)
	}
}
