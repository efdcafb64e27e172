package executor

import (
	"context"

	"github.com/wkalt/treeq/value"
)

// VarRef is a variable reference.
type VarRef struct {
	node
	v *Var
}

// NewVarRef returns a reference to v.
func NewVarRef(pos Pos, v *Var) *VarRef {
	return &VarRef{node: node{pos: pos}, v: v}
}

// Var returns the referenced variable.
func (r *VarRef) Var() *Var {
	return r.v
}

func (r *VarRef) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	return r.Optimize(ctx, cc)
}

func (r *VarRef) Optimize(context.Context, *CompileContext) (Expr, error) {
	return r, nil
}

func (r *VarRef) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	seq, err := r.Value(ctx, qc)
	if err != nil {
		return nil, err
	}
	return newSeqIter(seq), nil
}

func (r *VarRef) Value(_ context.Context, qc *QueryContext) (value.Seq, error) {
	seq, err := qc.get(r.v)
	if err != nil {
		return nil, withPos(r.pos, err)
	}
	return seq, nil
}

func (r *VarRef) Copy(_ *CompileContext, vm VarMap) Expr {
	return NewVarRef(r.pos, vm.lookup(r.v))
}

func (r *VarRef) SeqType() value.SeqType {
	return r.v.SeqType()
}

func (r *VarRef) Has(flag Flag) bool {
	return flag == FlagVAR
}

func (r *VarRef) Count(v *Var) VarUsage {
	if r.v == v {
		return Once
	}
	return Never
}

// Inline replaces the reference with a copy of e.
func (r *VarRef) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	if r.v != v {
		return nil, nil
	}
	return e.Copy(cc, VarMap{}).Optimize(ctx, cc)
}

func (r *VarRef) Size() int {
	return 1
}

// DocOrdered reports whether the bound value is known to be in document order.
func (r *VarRef) DocOrdered() bool {
	return r.v.ordered
}

func (r *VarRef) String() string {
	return r.v.String()
}
