package index

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

/*
MemIndex is an in-memory range index. Entries are kept sorted by value so a
range lookup is two binary searches; the matching references are then sorted
into document order.
*/

////////////////////////////////////////////////////////////////////////////////

type entry struct {
	value float64
	ref   int
}

// MemIndex is an in-memory index over text and attribute values.
type MemIndex struct {
	entries map[Kind][]entry
	sorted  map[Kind]bool
	mtx     *sync.Mutex
}

// NewMemIndex returns an empty index.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		entries: make(map[Kind][]entry),
		sorted:  make(map[Kind]bool),
		mtx:     &sync.Mutex{},
	}
}

// Add records a reference with a numeric value.
func (m *MemIndex) Add(kind Kind, ref int, v float64) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.entries[kind] = append(m.entries[kind], entry{value: v, ref: ref})
	m.sorted[kind] = false
}

// Len returns the number of entries of a kind.
func (m *MemIndex) Len(kind Kind) int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.entries[kind])
}

// RangeIter returns the references in range, in ascending order.
func (m *MemIndex) RangeIter(_ context.Context, token RangeToken) (Iterator, error) {
	if token.Min > token.Max {
		return nil, ErrInvalidRange
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	entries := m.entries[token.Kind]
	if !m.sorted[token.Kind] {
		slices.SortFunc(entries, func(a, b entry) int {
			if c := cmp.Compare(a.value, b.value); c != 0 {
				return c
			}
			return cmp.Compare(a.ref, b.ref)
		})
		m.sorted[token.Kind] = true
	}
	lo, _ := slices.BinarySearchFunc(entries, token.Min, func(e entry, v float64) int {
		return cmp.Compare(e.value, v)
	})
	hi := lo
	for hi < len(entries) && entries[hi].value <= token.Max {
		hi++
	}
	refs := make([]int, 0, hi-lo)
	for _, e := range entries[lo:hi] {
		refs = append(refs, e.ref)
	}
	slices.Sort(refs)
	return NewSliceIterator(slices.Compact(refs)...), nil
}
