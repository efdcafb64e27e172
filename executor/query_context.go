package executor

import (
	"context"
	"math/rand"

	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/value"
)

/*
The query context holds the dynamic state of one evaluation: the frame of
variable values for the scope being evaluated, the context item, the data
source resolver and the caches of hashed comparisons whose right operand does
not change between evaluations.

A query context is not safe for concurrent use.
*/

////////////////////////////////////////////////////////////////////////////////

// DataSource is a document that can be queried by node position.
type DataSource interface {
	// Name returns the name the source is resolved by.
	Name() string
	// Index returns the range index of the source.
	Index() index.Index
	// Size returns the number of nodes.
	Size() int
	// NodeAt returns the node with the given pre-order position.
	NodeAt(pre int) (value.Node, error)
}

// Resolver resolves data source names.
type Resolver interface {
	Resolve(ctx context.Context, name string) (DataSource, error)
}

// QueryOption is a functional option for the query context.
type QueryOption func(*QueryContext)

// WithResolver sets the data source resolver.
func WithResolver(r Resolver) QueryOption {
	return func(qc *QueryContext) {
		qc.resolver = r
	}
}

// WithContextItem sets the context item.
func WithContextItem(item value.Item) QueryOption {
	return func(qc *QueryContext) {
		qc.focus = item
	}
}

// WithSeed seeds the random number generator.
func WithSeed(seed int64) QueryOption {
	return func(qc *QueryContext) {
		qc.rand = rand.New(rand.NewSource(seed)) // nolint:gosec
	}
}

// QueryContext is the state of an evaluation.
type QueryContext struct {
	frame    []value.Seq
	focus    value.Item
	resolver Resolver
	hashes   map[*Comparison]*hashSet
	rand     *rand.Rand
	depth    int
}

// NewQueryContext returns a new query context.
func NewQueryContext(opts ...QueryOption) *QueryContext {
	qc := &QueryContext{
		hashes: make(map[*Comparison]*hashSet),
		rand:   rand.New(rand.NewSource(rand.Int63())), // nolint:gosec
	}
	for _, opt := range opts {
		opt(qc)
	}
	return qc
}

// Resolve resolves a data source.
func (qc *QueryContext) Resolve(ctx context.Context, name string) (DataSource, error) {
	if qc.resolver == nil {
		return nil, UndefinedError{Kind: "data source", Name: name}
	}
	return qc.resolver.Resolve(ctx, name)
}

// Bind binds a variable of the current frame. It is used to supply external
// variables before evaluation.
func (qc *QueryContext) Bind(v *Var, seq value.Seq) {
	qc.set(v, seq)
}

func (qc *QueryContext) get(v *Var) (value.Seq, error) {
	if v.Slot >= len(qc.frame) || qc.frame[v.Slot] == nil {
		return nil, UndefinedError{Kind: "variable", Name: v.String()}
	}
	return qc.frame[v.Slot], nil
}

func (qc *QueryContext) set(v *Var, seq value.Seq) {
	if v.Slot >= len(qc.frame) {
		frame := make([]value.Seq, v.Slot+1)
		copy(frame, qc.frame)
		qc.frame = frame
	}
	if seq == nil {
		seq = value.Seq{}
	}
	qc.frame[v.Slot] = seq
}

// pushFrame installs a fresh frame and returns the previous one.
func (qc *QueryContext) pushFrame(size int) []value.Seq {
	old := qc.frame
	qc.frame = make([]value.Seq, size)
	return old
}

func (qc *QueryContext) popFrame(old []value.Seq) {
	qc.frame = old
}
