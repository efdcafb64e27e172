package util

import "container/heap"

/*
PriorityQueue is a heap ordered by a caller-supplied comparison. We use it to
execute streaming merges over node iterators in document order.
*/

////////////////////////////////////////////////////////////////////////////////

// PriorityQueue is a min-heap of T under less.
type PriorityQueue[T any] struct {
	h *queueHeap[T]
}

type queueHeap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewPriorityQueue returns an empty queue ordered by less.
func NewPriorityQueue[T any](less func(a, b T) bool) *PriorityQueue[T] {
	return &PriorityQueue[T]{h: &queueHeap[T]{less: less}}
}

// Len returns the number of queued items.
func (pq *PriorityQueue[T]) Len() int {
	return pq.h.Len()
}

// Push adds an item.
func (pq *PriorityQueue[T]) Push(item T) {
	heap.Push(pq.h, item)
}

// Pop removes and returns the smallest item. It panics on an empty queue.
func (pq *PriorityQueue[T]) Pop() T {
	return heap.Pop(pq.h).(T)
}

// Peek returns the smallest item without removing it.
func (pq *PriorityQueue[T]) Peek() (T, bool) {
	if pq.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return pq.h.items[0], true
}

func (h queueHeap[T]) Len() int {
	return len(h.items)
}

func (h queueHeap[T]) Less(i, j int) bool {
	return h.less(h.items[i], h.items[j])
}

func (h queueHeap[T]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *queueHeap[T]) Push(item any) {
	value, ok := item.(T)
	if !ok {
		panic("invalid type")
	}
	h.items = append(h.items, value)
}

func (h *queueHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[0 : n-1]
	return item
}
