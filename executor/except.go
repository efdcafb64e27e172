package executor

import (
	"context"
	"errors"
	"io"
	"slices"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
Except computes the document-order difference of node sequences: the nodes of
the first operand that occur in none of the others.

When every operand is known to produce its nodes in ascending document order
without duplicates, Except streams: it keeps one cursor per operand and
advances the cursors of the excluded operands only as far as the current head
of the first operand. No operand is read further than needed, and an empty
first operand leaves the others untouched.

Otherwise the first operand is materialized, sorted and deduplicated, and the
nodes of the other operands are removed from it by binary search.
*/

////////////////////////////////////////////////////////////////////////////////

// ordered is implemented by expressions that can report whether they produce
// nodes in ascending document order without duplicates.
type ordered interface {
	DocOrdered() bool
}

func docOrdered(e Expr) bool {
	o, ok := e.(ordered)
	return ok && o.DocOrdered()
}

// Except is a document-order set difference.
type Except struct {
	node
	exprs    []Expr
	iterable bool
}

// NewExcept returns the difference of the first operand and the others.
func NewExcept(pos Pos, exprs ...Expr) *Except {
	return &Except{node: node{pos: pos}, exprs: exprs}
}

// Operands returns the operands.
func (x *Except) Operands() []Expr {
	return x.exprs
}

// Iterable reports whether the operator streams.
func (x *Except) Iterable() bool {
	return x.iterable
}

func (x *Except) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if err := compileAll(ctx, cc, x.exprs); err != nil {
		return nil, err
	}
	return x.Optimize(ctx, cc)
}

func (x *Except) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	if x.exprs[0].SeqType().Zero() {
		cc.Info(ctx, "remove except with empty operand", "expr", x.String())
		return Empty(x.pos), nil
	}
	exprs := x.exprs[:1]
	for _, e := range x.exprs[1:] {
		if e.SeqType().Zero() && !e.Has(FlagNDT) && !e.Has(FlagUPD) {
			cc.Info(ctx, "remove empty except operand", "expr", e.String())
			continue
		}
		exprs = append(exprs, e)
	}
	x.exprs = exprs
	for _, e := range x.exprs {
		if st := e.SeqType(); st.Type.Atomic() || st.Type == value.TypeFunction {
			return nil, typeErrorf(e.Position(), "nodes expected, found %s", st)
		}
	}
	x.iterable = true
	for _, e := range x.exprs {
		if !docOrdered(e) {
			x.iterable = false
			break
		}
	}
	switch {
	case len(x.exprs) == 1 && x.iterable:
		return x.exprs[0], nil
	case allConst(x.exprs):
		return cc.PreEval(ctx, x)
	}
	return x, nil
}

func (x *Except) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	if x.iterable {
		return &exceptIter{
			except:  x,
			qc:      qc,
			iters:   make([]Iter, len(x.exprs)),
			heads:   make([]value.Node, len(x.exprs)),
			started: make([]bool, len(x.exprs)),
		}, nil
	}
	seq, err := x.Value(ctx, qc)
	if err != nil {
		return nil, err
	}
	return newSeqIter(seq), nil
}

// Value computes the difference eagerly.
func (x *Except) Value(ctx context.Context, qc *QueryContext) (value.Seq, error) {
	if x.iterable {
		it, err := x.Iter(ctx, qc)
		if err != nil {
			return nil, err
		}
		return Drain(ctx, it)
	}
	left, err := x.nodes(ctx, qc, x.exprs[0])
	if err != nil {
		return nil, err
	}
	slices.SortFunc(left, value.Node.Diff)
	left = slices.CompactFunc(left, func(a, b value.Node) bool {
		return a.Diff(b) == 0
	})
	for _, e := range x.exprs[1:] {
		if len(left) == 0 {
			break
		}
		right, err := x.nodes(ctx, qc, e)
		if err != nil {
			return nil, err
		}
		for _, n := range right {
			if err := checkStop(ctx); err != nil {
				return nil, err
			}
			if i, found := slices.BinarySearchFunc(left, n, value.Node.Diff); found {
				left = slices.Delete(left, i, i+1)
				util.IncContextValue(ctx, "except_excluded", 1)
			}
		}
	}
	seq := make(value.Seq, len(left))
	for i, n := range left {
		seq[i] = n
	}
	return seq, nil
}

func (x *Except) nodes(ctx context.Context, qc *QueryContext, e Expr) ([]value.Node, error) {
	seq, err := Eval(ctx, qc, e)
	if err != nil {
		return nil, err
	}
	nodes := make([]value.Node, len(seq))
	for i, item := range seq {
		n, ok := item.(value.Node)
		if !ok {
			return nil, typeErrorf(e.Position(), "node expected, found %s", item)
		}
		nodes[i] = n
	}
	return nodes, nil
}

type exceptIter struct {
	except  *Except
	qc      *QueryContext
	iters   []Iter
	heads   []value.Node
	started []bool
}

// advance moves the cursor of operand i. The head is nil once the operand is
// exhausted.
func (it *exceptIter) advance(ctx context.Context, i int) error {
	if it.started[i] && it.heads[i] == nil {
		return nil
	}
	if !it.started[i] {
		iter, err := it.except.exprs[i].Iter(ctx, it.qc)
		if err != nil {
			return err
		}
		it.iters[i] = iter
		it.started[i] = true
	}
	item, err := it.iters[i].Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			it.heads[i] = nil
			return nil
		}
		return err
	}
	n, ok := item.(value.Node)
	if !ok {
		return typeErrorf(it.except.exprs[i].Position(), "node expected, found %s", item)
	}
	it.heads[i] = n
	return nil
}

func (it *exceptIter) Next(ctx context.Context) (value.Item, error) {
	if !it.started[0] {
		if err := it.advance(ctx, 0); err != nil {
			return nil, err
		}
	}
	for {
		if err := checkStop(ctx); err != nil {
			return nil, err
		}
		head := it.heads[0]
		if head == nil {
			return nil, io.EOF
		}
		excluded, err := it.excluded(ctx, head)
		if err != nil {
			return nil, err
		}
		if err := it.advance(ctx, 0); err != nil {
			return nil, err
		}
		if excluded {
			util.IncContextValue(ctx, "except_excluded", 1)
			continue
		}
		return head, nil
	}
}

// excluded advances the other cursors up to head and reports whether one of
// them holds it.
func (it *exceptIter) excluded(ctx context.Context, head value.Node) (bool, error) {
	for i := 1; i < len(it.heads); i++ {
		if !it.started[i] {
			if err := it.advance(ctx, i); err != nil {
				return false, err
			}
		}
		for it.heads[i] != nil && head.Diff(it.heads[i]) > 0 {
			if err := checkStop(ctx); err != nil {
				return false, err
			}
			if err := it.advance(ctx, i); err != nil {
				return false, err
			}
		}
		if it.heads[i] != nil && head.Diff(it.heads[i]) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (x *Except) Copy(cc *CompileContext, vm VarMap) Expr {
	return &Except{node: x.node, exprs: copyAll(cc, vm, x.exprs), iterable: x.iterable}
}

func (x *Except) SeqType() value.SeqType {
	st := x.exprs[0].SeqType()
	t := st.Type
	if !t.InstanceOf(value.TypeNode) {
		t = value.TypeNode
	}
	return value.NewSeqType(t, value.Occ{Min: 0, Max: st.Occ.Max})
}

func (x *Except) Has(flag Flag) bool {
	return hasAny(x.exprs, flag)
}

func (x *Except) Count(v *Var) VarUsage {
	return countAll(x.exprs, v)
}

func (x *Except) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed, err := inlineAll(ctx, cc, x.exprs, v, e)
	if err != nil || !changed {
		return nil, err
	}
	return x.Optimize(ctx, cc)
}

func (x *Except) Size() int {
	return 1 + sizeAll(x.exprs)
}

// DocOrdered is always true: both evaluation modes produce sorted, distinct
// nodes.
func (x *Except) DocOrdered() bool {
	return true
}

func (x *Except) String() string {
	return "(" + joinExprs(x.exprs, " except ") + ")"
}
