package executor

import (
	"context"
	"fmt"

	"github.com/wkalt/treeq/value"
)

// TypeCheck promotes the result of an expression to a sequence type, failing
// with a type error if it does not match.
type TypeCheck struct {
	node
	expr Expr
	st   value.SeqType
}

// NewTypeCheck returns a type check.
func NewTypeCheck(pos Pos, expr Expr, st value.SeqType) *TypeCheck {
	return &TypeCheck{node: node{pos: pos}, expr: expr, st: st}
}

func (t *TypeCheck) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	e, err := t.expr.Compile(ctx, cc)
	if err != nil {
		return nil, err
	}
	t.expr = e
	return t.Optimize(ctx, cc)
}

func (t *TypeCheck) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	if t.expr.SeqType().InstanceOf(t.st) {
		cc.Info(ctx, "remove redundant type check", "expr", t.expr.String(), "type", t.st.String())
		return t.expr, nil
	}
	if c, ok := t.expr.(*Const); ok {
		seq, err := value.Promote(c.seq, t.st)
		if err != nil {
			return nil, withPos(t.pos, err)
		}
		return NewConst(c.pos, seq), nil
	}
	return t, nil
}

func (t *TypeCheck) Value(ctx context.Context, qc *QueryContext) (value.Seq, error) {
	seq, err := Eval(ctx, qc, t.expr)
	if err != nil {
		return nil, err
	}
	if seq, err = value.Promote(seq, t.st); err != nil {
		return nil, withPos(t.pos, err)
	}
	return seq, nil
}

func (t *TypeCheck) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	seq, err := t.Value(ctx, qc)
	if err != nil {
		return nil, err
	}
	return newSeqIter(seq), nil
}

func (t *TypeCheck) Copy(cc *CompileContext, vm VarMap) Expr {
	return NewTypeCheck(t.pos, t.expr.Copy(cc, vm), t.st)
}

func (t *TypeCheck) SeqType() value.SeqType {
	return t.st
}

func (t *TypeCheck) Has(flag Flag) bool {
	return t.expr.Has(flag)
}

func (t *TypeCheck) Count(v *Var) VarUsage {
	return t.expr.Count(v)
}

func (t *TypeCheck) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	inlined, err := t.expr.Inline(ctx, cc, v, e)
	if err != nil || inlined == nil {
		return nil, err
	}
	t.expr = inlined
	return t.Optimize(ctx, cc)
}

func (t *TypeCheck) Size() int {
	return 1 + t.expr.Size()
}

func (t *TypeCheck) String() string {
	return fmt.Sprintf("(%s treat as %s)", t.expr, t.st)
}

// Instance is an "instance of" test.
type Instance struct {
	node
	expr Expr
	st   value.SeqType
}

// NewInstance returns an instance test.
func NewInstance(pos Pos, expr Expr, st value.SeqType) *Instance {
	return &Instance{node: node{pos: pos}, expr: expr, st: st}
}

func (i *Instance) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	e, err := i.expr.Compile(ctx, cc)
	if err != nil {
		return nil, err
	}
	i.expr = e
	return i.Optimize(ctx, cc)
}

func (i *Instance) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	if _, ok := i.expr.(*Const); ok {
		return cc.PreEval(ctx, i)
	}
	return i, nil
}

func (i *Instance) Item(ctx context.Context, qc *QueryContext) (value.Item, error) {
	seq, err := Eval(ctx, qc, i.expr)
	if err != nil {
		return nil, err
	}
	return value.Bool(i.st.Instance(seq)), nil
}

func (i *Instance) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	return iterOf(ctx, qc, i)
}

func (i *Instance) Copy(cc *CompileContext, vm VarMap) Expr {
	return NewInstance(i.pos, i.expr.Copy(cc, vm), i.st)
}

func (i *Instance) SeqType() value.SeqType {
	return value.BooleanOne
}

func (i *Instance) Has(flag Flag) bool {
	return i.expr.Has(flag)
}

func (i *Instance) Count(v *Var) VarUsage {
	return i.expr.Count(v)
}

func (i *Instance) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	inlined, err := i.expr.Inline(ctx, cc, v, e)
	if err != nil || inlined == nil {
		return nil, err
	}
	i.expr = inlined
	return i.Optimize(ctx, cc)
}

func (i *Instance) Size() int {
	return 1 + i.expr.Size()
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s instance of %s", i.expr, i.st)
}
