package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
Union merges node sequences into a single sequence in document order without
duplicates. When every operand is in document order the merge streams through
a priority queue that holds at most one node from each operand. When a node is
popped, the next node of the operand it came from is pushed, and equal nodes
from other operands are skipped.
*/

////////////////////////////////////////////////////////////////////////////////

// Union is a document-order set union.
type Union struct {
	node
	exprs    []Expr
	iterable bool
}

// NewUnion returns the union of the operands.
func NewUnion(pos Pos, exprs ...Expr) *Union {
	return &Union{node: node{pos: pos}, exprs: exprs}
}

func (u *Union) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if err := compileAll(ctx, cc, u.exprs); err != nil {
		return nil, err
	}
	return u.Optimize(ctx, cc)
}

func (u *Union) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	exprs := u.exprs[:0]
	for _, e := range u.exprs {
		if e.SeqType().Zero() && !e.Has(FlagNDT) && !e.Has(FlagUPD) {
			cc.Info(ctx, "remove empty union operand", "expr", e.String())
			continue
		}
		if st := e.SeqType(); st.Type.Atomic() || st.Type == value.TypeFunction {
			return nil, typeErrorf(e.Position(), "nodes expected, found %s", st)
		}
		exprs = append(exprs, e)
	}
	u.exprs = exprs
	u.iterable = true
	for _, e := range u.exprs {
		if !docOrdered(e) {
			u.iterable = false
			break
		}
	}
	switch {
	case len(u.exprs) == 0:
		return Empty(u.pos), nil
	case len(u.exprs) == 1 && u.iterable:
		return u.exprs[0], nil
	case allConst(u.exprs):
		return cc.PreEval(ctx, u)
	}
	return u, nil
}

type queueElement struct {
	node  value.Node
	index int
}

func (u *Union) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	if !u.iterable {
		seq, err := u.Value(ctx, qc)
		if err != nil {
			return nil, err
		}
		return newSeqIter(seq), nil
	}
	iters := make([]Iter, len(u.exprs))
	for i, e := range u.exprs {
		it, err := e.Iter(ctx, qc)
		if err != nil {
			return nil, err
		}
		iters[i] = it
	}
	return &mergeIter{
		union: u,
		iters: iters,
		pq: util.NewPriorityQueue(func(a, b queueElement) bool {
			if c := a.node.Diff(b.node); c != 0 {
				return c < 0
			}
			return a.index < b.index
		}),
	}, nil
}

// Value computes the union eagerly.
func (u *Union) Value(ctx context.Context, qc *QueryContext) (value.Seq, error) {
	if u.iterable {
		it, err := u.Iter(ctx, qc)
		if err != nil {
			return nil, err
		}
		return Drain(ctx, it)
	}
	nodes := []value.Node{}
	for _, e := range u.exprs {
		seq, err := Eval(ctx, qc, e)
		if err != nil {
			return nil, err
		}
		for _, item := range seq {
			n, ok := item.(value.Node)
			if !ok {
				return nil, typeErrorf(e.Position(), "node expected, found %s", item)
			}
			nodes = append(nodes, n)
		}
	}
	slices.SortStableFunc(nodes, value.Node.Diff)
	nodes = slices.CompactFunc(nodes, func(a, b value.Node) bool {
		return a.Diff(b) == 0
	})
	seq := make(value.Seq, len(nodes))
	for i, n := range nodes {
		seq[i] = n
	}
	return seq, nil
}

type mergeIter struct {
	union       *Union
	iters       []Iter
	pq          *util.PriorityQueue[queueElement]
	last        value.Node
	initialized bool
}

// push pulls the next node of operand i into the queue.
func (it *mergeIter) push(ctx context.Context, i int) error {
	item, err := it.iters[i].Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to get next node of operand %d: %w", i, err)
	}
	n, ok := item.(value.Node)
	if !ok {
		return typeErrorf(it.union.exprs[i].Position(), "node expected, found %s", item)
	}
	it.pq.Push(queueElement{node: n, index: i})
	return nil
}

func (it *mergeIter) initialize(ctx context.Context) error {
	for i := range it.iters {
		if err := it.push(ctx, i); err != nil {
			return err
		}
	}
	it.initialized = true
	return nil
}

func (it *mergeIter) Next(ctx context.Context) (value.Item, error) {
	if !it.initialized {
		if err := it.initialize(ctx); err != nil {
			return nil, err
		}
	}
	for it.pq.Len() > 0 {
		if err := checkStop(ctx); err != nil {
			return nil, err
		}
		element := it.pq.Pop()
		if err := it.push(ctx, element.index); err != nil {
			return nil, err
		}
		if it.last != nil && it.last.Diff(element.node) == 0 {
			continue
		}
		it.last = element.node
		return element.node, nil
	}
	return nil, io.EOF
}

func (u *Union) Copy(cc *CompileContext, vm VarMap) Expr {
	return &Union{node: u.node, exprs: copyAll(cc, vm, u.exprs), iterable: u.iterable}
}

func (u *Union) SeqType() value.SeqType {
	st := u.exprs[0].SeqType()
	occ := value.ZeroOrMore
	for _, e := range u.exprs {
		st = st.Union(e.SeqType())
		if e.SeqType().Occ.Min > 0 {
			occ = value.OneOrMore
		}
	}
	t := st.Type
	if !t.InstanceOf(value.TypeNode) {
		t = value.TypeNode
	}
	return value.NewSeqType(t, occ)
}

func (u *Union) Has(flag Flag) bool {
	return hasAny(u.exprs, flag)
}

func (u *Union) Count(v *Var) VarUsage {
	return countAll(u.exprs, v)
}

func (u *Union) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed, err := inlineAll(ctx, cc, u.exprs, v, e)
	if err != nil || !changed {
		return nil, err
	}
	return u.Optimize(ctx, cc)
}

func (u *Union) Size() int {
	return 1 + sizeAll(u.exprs)
}

// DocOrdered is always true.
func (u *Union) DocOrdered() bool {
	return true
}

func (u *Union) String() string {
	return "(" + joinExprs(u.exprs, " | ") + ")"
}
