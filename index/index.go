package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
)

/*
The index package defines the contract between the evaluator and numeric
range indexes. An index answers a range token with a forward-only cursor of
positional references (pre-order numbers) in ascending document order. The
evaluator treats the cursor as a pure data source and never re-sorts it.

Two implementations are provided: an in-memory index built when a document is
loaded, and a SQLite-backed index that persists references for many data
sources in one table.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrInvalidRange is returned for tokens with min > max.
var ErrInvalidRange = errors.New("invalid range")

// Kind is the kind of node an index covers.
type Kind int

const (
	// Text indexes text node values.
	Text Kind = iota
	// Attribute indexes attribute values.
	Attribute
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Attribute:
		return "attribute"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// RangeToken selects the references whose numeric value lies in the inclusive
// range [Min, Max].
type RangeToken struct {
	Kind Kind
	Min  float64
	Max  float64
}

// NewRangeToken returns a new range token.
func NewRangeToken(kind Kind, lo, hi float64) (RangeToken, error) {
	if lo > hi {
		return RangeToken{}, fmt.Errorf("%w: %g > %g", ErrInvalidRange, lo, hi)
	}
	return RangeToken{Kind: kind, Min: lo, Max: hi}, nil
}

// Contains reports whether v lies in the range.
func (t RangeToken) Contains(v float64) bool {
	return v >= t.Min && v <= t.Max
}

// String returns a string representation of the token.
func (t RangeToken) String() string {
	return fmt.Sprintf("%s[%g, %g]", t.Kind, t.Min, t.Max)
}

// Iterator is a forward-only cursor over references. Next returns io.EOF when
// the cursor is exhausted.
type Iterator interface {
	Next(ctx context.Context) (int, error)
	Close() error
}

// Index answers range queries for a single data source.
type Index interface {
	RangeIter(ctx context.Context, token RangeToken) (Iterator, error)
}

// sliceIterator iterates over a precomputed slice of references.
type sliceIterator struct {
	refs []int
}

// NewSliceIterator returns an iterator over refs, which must already be in
// ascending order.
func NewSliceIterator(refs ...int) Iterator {
	return &sliceIterator{refs: refs}
}

func (it *sliceIterator) Next(ctx context.Context) (int, error) {
	if len(it.refs) == 0 {
		return 0, io.EOF
	}
	ref := it.refs[0]
	it.refs = it.refs[1:]
	return ref, nil
}

func (it *sliceIterator) Close() error {
	it.refs = nil
	return nil
}
