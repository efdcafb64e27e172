package executor

import (
	"context"
	"errors"
	"io"

	"github.com/wkalt/treeq/value"
)

/*
hashSet caches the items of the right operand of a hashed comparison. Items
are bucketed under every hash key that an equal item could have (see
value.HashKeys), and candidates found in a bucket are verified with a full
comparison. One representative per atomic type is kept so that comparisons
against an incomparable type fail with a type error, as they would under
pairwise evaluation. Untyped items are cast to the type they are compared
with, and whether the cast succeeds depends on the item, so every untyped item
is checked once per type searched for.

The set may be filled lazily: pending holds the unconsumed remainder of the
operand iterator, or nil once it has been drained.
*/

////////////////////////////////////////////////////////////////////////////////

type hashSet struct {
	op      value.Op
	coll    *value.Collation
	buckets map[value.HashKey][]value.Item
	items   []value.Item
	kinds   map[value.Type]value.Item
	untyped []value.Item
	checked map[value.Type]int
	pending Iter
}

func newHashSet(op value.Op, coll *value.Collation, pending Iter) *hashSet {
	return &hashSet{
		op:      op,
		coll:    coll,
		buckets: make(map[value.HashKey][]value.Item),
		kinds:   make(map[value.Type]value.Item),
		checked: make(map[value.Type]int),
		pending: pending,
	}
}

// empty reports whether the set is complete and holds no items.
func (h *hashSet) empty() bool {
	return h.pending == nil && len(h.items) == 0
}

// add inserts an item.
func (h *hashSet) add(item value.Item) error {
	atom, err := value.Atomize(item)
	if err != nil {
		return err
	}
	keys, err := value.HashKeys(atom, h.coll)
	if err != nil {
		return err
	}
	for _, key := range keys {
		h.buckets[key] = append(h.buckets[key], atom)
	}
	h.items = append(h.items, atom)
	if atom.Type() == value.TypeUntyped {
		h.untyped = append(h.untyped, atom)
	}
	if _, ok := h.kinds[atom.Type()]; !ok {
		h.kinds[atom.Type()] = atom
	}
	return nil
}

// pull adds the next pending item, reporting false when the operand is
// exhausted.
func (h *hashSet) pull(ctx context.Context) (value.Item, bool, error) {
	if h.pending == nil {
		return nil, false, nil
	}
	item, err := h.pending.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			h.pending = nil
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := h.add(item); err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// contains reports whether some cached item compares true against item.
func (h *hashSet) contains(item value.Item) (bool, error) {
	atom, err := value.Atomize(item)
	if err != nil {
		return false, err
	}
	for t, rep := range h.kinds {
		if t == atom.Type() || t == value.TypeUntyped {
			continue
		}
		if _, err := value.Compare(value.OpEq, atom, rep, h.coll); err != nil {
			return false, err
		}
	}
	if err := h.checkUntyped(atom); err != nil {
		return false, err
	}
	if h.op == value.OpNe {
		for _, x := range h.items {
			ok, err := value.Compare(value.OpNe, atom, x, h.coll)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	keys, err := value.HashKeys(atom, h.coll)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		for _, x := range h.buckets[key] {
			ok, err := value.Compare(value.OpEq, atom, x, h.coll)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

// checkUntyped compares atom against the untyped items not yet checked for
// its type.
func (h *hashSet) checkUntyped(atom value.Item) error {
	t := atom.Type()
	if t == value.TypeUntyped {
		return nil
	}
	for i := h.checked[t]; i < len(h.untyped); i++ {
		if _, err := value.Compare(value.OpEq, atom, h.untyped[i], h.coll); err != nil {
			return err
		}
		h.checked[t] = i + 1
	}
	return nil
}
