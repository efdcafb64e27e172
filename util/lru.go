package util

import (
	"fmt"
	"strings"
	"sync"
)

/*
LRU is a bounded cache used by the catalog to hold loaded documents. When an
entry is evicted the optional eviction callback is invoked outside of the
cache lock, so callbacks may log or release resources freely.
*/

////////////////////////////////////////////////////////////////////////////////

// LRU is a simple LRU cache.
type LRU[K comparable, V any] struct {
	cache      map[K]*listNode[K, V]
	head, tail *listNode[K, V]
	count      int64
	cap        int64
	onEvict    func(K, V)
	mtx        *sync.Mutex
}

type listNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *listNode[K, V]
}

// NewLRU returns a new LRU cache with the given capacity.
func NewLRU[K comparable, V any](capacity int64) *LRU[K, V] {
	head, tail := &listNode[K, V]{}, &listNode[K, V]{}
	head.next = tail
	tail.prev = head
	return &LRU[K, V]{
		cache: make(map[K]*listNode[K, V]),
		head:  head,
		tail:  tail,
		cap:   capacity,
		mtx:   &sync.Mutex{},
	}
}

// OnEvict registers a callback for evicted entries.
func (lru *LRU[K, V]) OnEvict(f func(K, V)) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.onEvict = f
}

// Reset clears the cache without invoking the eviction callback.
func (lru *LRU[K, V]) Reset() {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.cache = make(map[K]*listNode[K, V])
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	lru.count = 0
}

func (lru *LRU[K, V]) addToFront(node *listNode[K, V]) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRU[K, V]) removeNode(node *listNode[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// Put adds a new key-value pair to the cache. If the key already exists, the
// value is updated.
func (lru *LRU[K, V]) Put(key K, value V) {
	var evicted []*listNode[K, V]
	lru.mtx.Lock()
	if node, exists := lru.cache[key]; exists {
		node.value = value
		lru.removeNode(node)
		lru.addToFront(node)
	} else {
		node := &listNode[K, V]{key: key, value: value}
		lru.cache[key] = node
		lru.addToFront(node)
		lru.count++
	}
	for lru.count > lru.cap && lru.tail.prev != lru.head {
		node := lru.tail.prev
		lru.removeNode(node)
		delete(lru.cache, node.key)
		lru.count--
		evicted = append(evicted, node)
	}
	onEvict := lru.onEvict
	lru.mtx.Unlock()
	if onEvict != nil {
		for _, node := range evicted {
			onEvict(node.key, node.value)
		}
	}
}

// Get returns the value associated with the given key. The second return
// value is true if the key exists in the cache.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.removeNode(node)
		lru.addToFront(node)
		return node.value, true
	}
	var v V
	return v, false
}

// Delete removes a key. It reports whether the key was present.
func (lru *LRU[K, V]) Delete(key K) bool {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	node, exists := lru.cache[key]
	if !exists {
		return false
	}
	lru.removeNode(node)
	delete(lru.cache, key)
	lru.count--
	return true
}

// Len returns the number of cached entries.
func (lru *LRU[K, V]) Len() int {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	return int(lru.count)
}

// String returns a string representation of the cache.
func (lru *LRU[K, V]) String() string {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	sb := &strings.Builder{}
	sb.WriteString(fmt.Sprintf("(%d/%d) [", lru.count, lru.cap))
	for node := lru.head.next; node != lru.tail; node = node.next {
		sb.WriteString(fmt.Sprintf("%v:%v", node.key, node.value))
		if node.next != lru.tail {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
