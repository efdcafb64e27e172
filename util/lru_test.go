package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wkalt/treeq/util"
)

func TestLRU(t *testing.T) {
	t.Run("simple inserts", func(t *testing.T) {
		lru := util.NewLRU[string, int](100)
		lru.Put("a", 1)
		lru.Put("b", 2)
		lru.Put("c", 3)
		assert.Equal(t, "(3/100) [c:3 b:2 a:1]", lru.String())
		assert.Equal(t, 3, lru.Len())
	})
	t.Run("eviction", func(t *testing.T) {
		lru := util.NewLRU[string, int](2)
		evicted := []string{}
		lru.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })
		lru.Put("a", 1)
		lru.Put("b", 2)
		lru.Put("c", 3)
		assert.Equal(t, "(2/2) [c:3 b:2]", lru.String())
		assert.Equal(t, []string{"a"}, evicted)
	})
	t.Run("get key that does not exist", func(t *testing.T) {
		lru := util.NewLRU[string, int](100)
		_, ok := lru.Get("a")
		assert.False(t, ok)
	})
	t.Run("reset the cache", func(t *testing.T) {
		lru := util.NewLRU[string, int](100)
		lru.Put("a", 1)
		lru.Put("b", 2)
		lru.Reset()
		assert.Equal(t, "(0/100) []", lru.String())
	})
	t.Run("get moves items to front", func(t *testing.T) {
		lru := util.NewLRU[string, int](100)
		lru.Put("a", 1)
		lru.Put("b", 2)
		lru.Put("c", 3)
		_, ok := lru.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "(3/100) [a:1 c:3 b:2]", lru.String())
	})
	t.Run("overwrite moves item to the front", func(t *testing.T) {
		lru := util.NewLRU[string, int](100)
		lru.Put("a", 1)
		lru.Put("b", 2)
		lru.Put("a", 10)
		assert.Equal(t, "(2/100) [a:10 b:2]", lru.String())
	})
	t.Run("delete", func(t *testing.T) {
		lru := util.NewLRU[string, int](100)
		lru.Put("a", 1)
		assert.True(t, lru.Delete("a"))
		assert.False(t, lru.Delete("a"))
		assert.Equal(t, 0, lru.Len())
	})
}
