package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
RangeAccess exposes a range index lookup as a lazy node iterator. The data
source expression is evaluated to a name, the name is resolved through the
query context, and the index of the data source is asked for the references
in range. Each reference is turned into a node of the token's kind when it is
pulled.

The index delivers references in ascending document order, so the output is
never sorted here. Every call to Iter issues a fresh lookup.
*/

////////////////////////////////////////////////////////////////////////////////

// RangeAccess is an index-backed range lookup.
type RangeAccess struct {
	node
	token index.RangeToken
	db    Expr
}

// NewRangeAccess returns a range lookup on the data source named by db.
func NewRangeAccess(pos Pos, token index.RangeToken, db Expr) *RangeAccess {
	return &RangeAccess{node: node{pos: pos}, token: token, db: db}
}

// Token returns the range token.
func (r *RangeAccess) Token() index.RangeToken {
	return r.token
}

func (r *RangeAccess) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	db, err := r.db.Compile(ctx, cc)
	if err != nil {
		return nil, err
	}
	r.db = db
	return r.Optimize(ctx, cc)
}

func (r *RangeAccess) Optimize(context.Context, *CompileContext) (Expr, error) {
	return r, nil
}

func (r *RangeAccess) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	ds, err := resolveSource(ctx, qc, r.db)
	if err != nil {
		return nil, err
	}
	if !newStatFilter(r.token)(ds) {
		util.IncContextValue(ctx, "stats_pruned", 1)
		return newSeqIter(nil), nil
	}
	refs, err := ds.Index().RangeIter(ctx, r.token)
	if err != nil {
		return nil, withPos(r.pos, fmt.Errorf("failed to open range %s: %w", r.token, err))
	}
	return &rangeIter{access: r, source: ds, refs: refs}, nil
}

// resolveSource evaluates a data source name and resolves it.
func resolveSource(ctx context.Context, qc *QueryContext, e Expr) (DataSource, error) {
	item, err := EvalItem(ctx, qc, e)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, typeErrorf(e.Position(), "data source name expected, found ()")
	}
	atom, err := value.Atomize(item)
	if err != nil {
		return nil, withPos(e.Position(), err)
	}
	var name string
	switch v := atom.(type) {
	case value.Str:
		name = string(v)
	case value.Untyped:
		name = string(v)
	default:
		return nil, typeErrorf(e.Position(), "data source name expected, found %s", item)
	}
	ds, err := qc.Resolve(ctx, name)
	if err != nil {
		return nil, withPos(e.Position(), err)
	}
	return ds, nil
}

type rangeIter struct {
	access *RangeAccess
	source DataSource
	refs   index.Iterator
	done   bool
}

func (it *rangeIter) Next(ctx context.Context) (value.Item, error) {
	if it.done {
		return nil, io.EOF
	}
	if err := checkStop(ctx); err != nil {
		return nil, errors.Join(err, it.close())
	}
	ref, err := it.refs.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if err := it.close(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return nil, errors.Join(err, it.close())
	}
	n, err := it.source.NodeAt(ref)
	if err != nil {
		return nil, errors.Join(err, it.close())
	}
	if want := kindType(it.access.token.Kind); n.Type() != want {
		err := typeErrorf(it.access.pos, "reference %d of %s is not a %s node", ref, it.source.Name(), it.access.token.Kind)
		return nil, errors.Join(err, it.close())
	}
	util.IncContextValue(ctx, "index_hits", 1)
	return n, nil
}

func (it *rangeIter) close() error {
	if it.done {
		return nil
	}
	it.done = true
	if err := it.refs.Close(); err != nil {
		return fmt.Errorf("failed to close range iterator: %w", err)
	}
	return nil
}

// kindType returns the node type an index kind covers.
func kindType(kind index.Kind) value.Type {
	if kind == index.Attribute {
		return value.TypeAttribute
	}
	return value.TypeText
}

func (r *RangeAccess) Copy(cc *CompileContext, vm VarMap) Expr {
	return &RangeAccess{node: r.node, token: r.token, db: r.db.Copy(cc, vm)}
}

func (r *RangeAccess) SeqType() value.SeqType {
	return value.NewSeqType(kindType(r.token.Kind), value.ZeroOrMore)
}

// Has reports the flags of the data source expression. A lookup always reads
// external data, but it is deterministic within a query.
func (r *RangeAccess) Has(flag Flag) bool {
	return r.db.Has(flag)
}

func (r *RangeAccess) Count(v *Var) VarUsage {
	return r.db.Count(v)
}

func (r *RangeAccess) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	db, err := r.db.Inline(ctx, cc, v, e)
	if err != nil || db == nil {
		return nil, err
	}
	r.db = db
	return r.Optimize(ctx, cc)
}

func (r *RangeAccess) Size() int {
	return 1 + r.db.Size()
}

// DocOrdered is true: the index delivers references in ascending order.
func (r *RangeAccess) DocOrdered() bool {
	return true
}

func (r *RangeAccess) String() string {
	return fmt.Sprintf("db:%s-range(%s, %g, %g)", r.token.Kind, r.db, r.token.Min, r.token.Max)
}
