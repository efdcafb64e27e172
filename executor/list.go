package executor

import (
	"context"
	"errors"
	"io"

	"github.com/wkalt/treeq/value"
)

// List is a sequence constructor: the concatenation of its operands.
type List struct {
	node
	exprs []Expr
}

// NewList returns a sequence constructor.
func NewList(pos Pos, exprs ...Expr) *List {
	return &List{node: node{pos: pos}, exprs: exprs}
}

func (l *List) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if err := compileAll(ctx, cc, l.exprs); err != nil {
		return nil, err
	}
	return l.Optimize(ctx, cc)
}

func (l *List) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	exprs := l.exprs[:0]
	for _, e := range l.exprs {
		if e.SeqType().Zero() && !e.Has(FlagNDT) && !e.Has(FlagUPD) {
			continue
		}
		exprs = append(exprs, e)
	}
	l.exprs = exprs
	switch {
	case len(l.exprs) == 0:
		return Empty(l.pos), nil
	case len(l.exprs) == 1:
		return l.exprs[0], nil
	case allConst(l.exprs):
		return cc.PreEval(ctx, l)
	}
	return l, nil
}

func (l *List) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	return &listIter{list: l, qc: qc}, nil
}

type listIter struct {
	list *List
	qc   *QueryContext
	pos  int
	cur  Iter
}

func (it *listIter) Next(ctx context.Context) (value.Item, error) {
	for {
		if it.cur == nil {
			if it.pos == len(it.list.exprs) {
				return nil, io.EOF
			}
			cur, err := it.list.exprs[it.pos].Iter(ctx, it.qc)
			if err != nil {
				return nil, err
			}
			it.cur = cur
			it.pos++
		}
		item, err := it.cur.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				it.cur = nil
				continue
			}
			return nil, err
		}
		return item, nil
	}
}

func (l *List) Copy(cc *CompileContext, vm VarMap) Expr {
	return NewList(l.pos, copyAll(cc, vm, l.exprs)...)
}

func (l *List) SeqType() value.SeqType {
	st := value.EmptySeq
	occ := value.Zero
	for i, e := range l.exprs {
		est := e.SeqType()
		if i == 0 {
			st = est
		} else {
			st = st.Union(est)
		}
		occ = occ.Add(est.Occ)
	}
	return st.WithOcc(occ)
}

func (l *List) Has(flag Flag) bool {
	return hasAny(l.exprs, flag)
}

func (l *List) Count(v *Var) VarUsage {
	return countAll(l.exprs, v)
}

func (l *List) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed, err := inlineAll(ctx, cc, l.exprs, v, e)
	if err != nil || !changed {
		return nil, err
	}
	return l.Optimize(ctx, cc)
}

func (l *List) Size() int {
	return 1 + sizeAll(l.exprs)
}

func (l *List) String() string {
	return "(" + joinExprs(l.exprs, ", ") + ")"
}
