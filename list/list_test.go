package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	link  Node[*item]
	value int
}

func newItem(v int) *item {
	it := &item{value: v}
	it.link.Value = it
	return it
}

func values(l *List[*item]) []int {
	var out []int
	l.Do(func(n *Node[*item]) bool {
		out = append(out, n.Value.value)
		return true
	})
	return out
}

func TestPushBackFront(t *testing.T) {
	var l List[*item]
	a, b, c := newItem(1), newItem(2), newItem(3)
	l.PushBack(&a.link)
	l.PushBack(&b.link)
	l.PushFront(&c.link)

	assert.Equal(t, []int{3, 1, 2}, values(&l))
	assert.Equal(t, 3, l.Len())
	assert.True(t, a.link.IsLinked())
	assert.Equal(t, c, l.Front().Value)
	assert.Equal(t, b, l.Back().Value)
}

func TestRemoveIsNoOpWhenUnlinked(t *testing.T) {
	var l List[*item]
	a := newItem(1)
	require.False(t, l.Remove(&a.link))

	l.PushBack(&a.link)
	require.True(t, l.Remove(&a.link))
	require.False(t, a.link.IsLinked())
	// Second remove is a documented no-op.
	require.False(t, l.Remove(&a.link))
}

func TestIterationBidirectional(t *testing.T) {
	var l List[*item]
	for i := 1; i <= 5; i++ {
		l.PushBack(&newItem(i).link)
	}
	n := l.Back()
	var rev []int
	for n != nil {
		rev = append(rev, n.Value.value)
		n = n.Prev()
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1}, rev)
}

func TestSplicePreservesOrder(t *testing.T) {
	var donor, recv List[*item]
	for i := 1; i <= 5; i++ {
		donor.PushBack(&newItem(i).link)
	}
	for i := 100; i <= 101; i++ {
		recv.PushBack(&newItem(i).link)
	}

	first := donor.Front().Next() // value 2
	last := donor.Back().Prev()   // value 4

	recv.Splice(recv.Front(), first, last)

	assert.Equal(t, []int{100, 2, 3, 4, 101}, values(&recv))
	assert.Equal(t, []int{1, 5}, values(&donor))
	assert.Equal(t, 2, donor.Len())
	assert.Equal(t, 5, recv.Len())
}

func TestPushBackListEmptiesDonor(t *testing.T) {
	var a, b List[*item]
	a.PushBack(&newItem(1).link)
	a.PushBack(&newItem(2).link)
	b.PushBack(&newItem(3).link)

	b.PushBackList(&a)
	assert.Equal(t, []int{3, 1, 2}, values(&b))
	assert.Equal(t, 0, a.Len())
	assert.Nil(t, a.Front())
}

func TestSwap(t *testing.T) {
	var a, b List[*item]
	a.PushBack(&newItem(1).link)
	a.PushBack(&newItem(2).link)
	b.PushBack(&newItem(9).link)

	a.Swap(&b)
	assert.Equal(t, []int{9}, values(&a))
	assert.Equal(t, []int{1, 2}, values(&b))
	assert.Same(t, &b, b.Front().List())
	assert.Same(t, &a, a.Front().List())
}

func TestReverse(t *testing.T) {
	var l List[*item]
	for i := 1; i <= 4; i++ {
		l.PushBack(&newItem(i).link)
	}
	l.Reverse()
	assert.Equal(t, []int{4, 3, 2, 1}, values(&l))
}

func TestUniqueCollapsesConsecutiveOnly(t *testing.T) {
	var l List[*item]
	for _, v := range []int{1, 1, 2, 2, 2, 1, 3} {
		l.PushBack(&newItem(v).link)
	}
	removed := l.Unique(func(a, b *item) bool { return a.value == b.value })
	assert.Equal(t, 3, removed)
	assert.Equal(t, []int{1, 2, 1, 3}, values(&l))
}

func TestRemoveFunc(t *testing.T) {
	var l List[*item]
	for i := 1; i <= 6; i++ {
		l.PushBack(&newItem(i).link)
	}
	removed := l.RemoveFunc(func(it *item) bool { return it.value%2 == 0 })
	assert.Equal(t, 3, removed)
	assert.Equal(t, []int{1, 3, 5}, values(&l))
}

func TestMergeStable(t *testing.T) {
	var a, b List[*item]
	for _, v := range []int{1, 3, 5} {
		a.PushBack(&newItem(v).link)
	}
	for _, v := range []int{2, 3, 4} {
		b.PushBack(&newItem(v).link)
	}
	less := func(x, y *item) bool { return x.value < y.value }
	a.Merge(&b, less)
	assert.Equal(t, []int{1, 2, 3, 3, 4, 5}, values(&a))
	assert.Equal(t, 0, b.Len())
}

func TestSortRandomish(t *testing.T) {
	var l List[*item]
	input := []int{9, 1, 8, 2, 7, 3, 6, 4, 5, 0, 9, 1, 8}
	for _, v := range input {
		l.PushBack(&newItem(v).link)
	}
	l.Sort(func(a, b *item) bool { return a.value < b.value })
	got := values(&l)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1], got[i])
	}
	assert.Equal(t, len(input), l.Len())
}

func TestClear(t *testing.T) {
	var l List[*item]
	nodes := make([]*item, 5)
	for i := range nodes {
		nodes[i] = newItem(i)
		l.PushBack(&nodes[i].link)
	}
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Front())
	for _, it := range nodes {
		assert.False(t, it.link.IsLinked())
	}
}
