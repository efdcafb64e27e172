package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wkalt/treeq/util"
)

func TestPriorityQueue(t *testing.T) {
	pq := util.NewPriorityQueue(func(a, b util.Pair[int, string]) bool {
		return a.First < b.First
	})
	_, ok := pq.Peek()
	assert.False(t, ok)

	pq.Push(util.NewPair(3, "c"))
	pq.Push(util.NewPair(1, "a"))
	pq.Push(util.NewPair(2, "b"))
	assert.Equal(t, 3, pq.Len())

	head, ok := pq.Peek()
	assert.True(t, ok)
	assert.Equal(t, "a", head.Second)

	assert.Equal(t, "a", pq.Pop().Second)
	assert.Equal(t, "b", pq.Pop().Second)
	assert.Equal(t, "c", pq.Pop().Second)
	assert.Equal(t, 0, pq.Len())
}
