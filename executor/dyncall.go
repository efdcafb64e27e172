package executor

import (
	"context"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

// DynCall is a dynamic function call.
type DynCall struct {
	node
	fn   Expr
	args []Expr
	tail bool
}

// NewDynCall returns a call of the function item fn produces.
func NewDynCall(pos Pos, fn Expr, args ...Expr) *DynCall {
	return &DynCall{node: node{pos: pos}, fn: fn, args: args}
}

// Tail reports whether the call is in tail position.
func (d *DynCall) Tail() bool {
	return d.tail
}

func (d *DynCall) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	fn, err := d.fn.Compile(ctx, cc)
	if err != nil {
		return nil, err
	}
	d.fn = fn
	if err := compileAll(ctx, cc, d.args); err != nil {
		return nil, err
	}
	return d.Optimize(ctx, cc)
}

func (d *DynCall) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	switch fn := d.fn.(type) {
	case *Closure:
		if len(fn.params) == len(d.args) {
			inlined, err := fn.InlineCall(ctx, cc, d.args)
			if err != nil || inlined != nil {
				return inlined, err
			}
		}
	case *Const:
		fv, ok := constFunction(fn)
		if !ok {
			break
		}
		if len(fv.params) != len(d.args) {
			return nil, withPos(d.pos, newArityError(fv.String(), pluralize(len(fv.params), "argument"), len(d.args)))
		}
		if fv.body.Size() < cc.Options().InlineLimit {
			inlined, err := fv.InlineCall(ctx, cc, d.args)
			if err != nil || inlined != nil {
				return inlined, err
			}
		}
		// Bodies that survive inlining may read data sources, which are
		// not available at compile time.
		if _, ok := fv.body.(*Const); ok && allConst(d.args) && !d.Has(FlagNDT) && !d.Has(FlagUPD) {
			return cc.PreEval(ctx, d)
		}
	}
	return d, nil
}

func (d *DynCall) Value(ctx context.Context, qc *QueryContext) (value.Seq, error) {
	item, err := EvalItem(ctx, qc, d.fn)
	if err != nil {
		return nil, err
	}
	fv, ok := item.(*FunctionValue)
	if !ok {
		return nil, typeErrorf(d.pos, "%s is not a function", describe(item))
	}
	args := make([]value.Seq, len(d.args))
	for i, arg := range d.args {
		if args[i], err = Eval(ctx, qc, arg); err != nil {
			return nil, err
		}
	}
	if d.tail {
		util.IncContextValue(ctx, "tail_calls", 1)
	}
	seq, err := fv.Invoke(ctx, qc, args)
	if err != nil {
		return nil, withPos(d.pos, err)
	}
	return seq, nil
}

func describe(item value.Item) string {
	if item == nil {
		return "()"
	}
	return item.String()
}

func (d *DynCall) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	seq, err := d.Value(ctx, qc)
	if err != nil {
		return nil, err
	}
	return newSeqIter(seq), nil
}

func (d *DynCall) Copy(cc *CompileContext, vm VarMap) Expr {
	return &DynCall{node: d.node, fn: d.fn.Copy(cc, vm), args: copyAll(cc, vm, d.args), tail: d.tail}
}

func (d *DynCall) SeqType() value.SeqType {
	if ft := d.fn.SeqType().Func; ft != nil {
		return ft.Ret
	}
	return value.ItemZM
}

func (d *DynCall) Has(flag Flag) bool {
	if flag == FlagUPD {
		if ft := d.fn.SeqType().Func; ft != nil && ft.Updating {
			return true
		}
	}
	if fv, ok := constFunction(d.fn); ok && flag != FlagVAR && fv.body.Has(flag) {
		return true
	}
	return d.fn.Has(flag) || hasAny(d.args, flag)
}

func (d *DynCall) Count(v *Var) VarUsage {
	return d.fn.Count(v).Plus(countAll(d.args, v))
}

func (d *DynCall) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	fn, err := d.fn.Inline(ctx, cc, v, e)
	if err != nil {
		return nil, err
	}
	changed := fn != nil
	if changed {
		d.fn = fn
	}
	argsChanged, err := inlineAll(ctx, cc, d.args, v, e)
	if err != nil {
		return nil, err
	}
	if !changed && !argsChanged {
		return nil, nil
	}
	return d.Optimize(ctx, cc)
}

func (d *DynCall) Size() int {
	return 1 + d.fn.Size() + sizeAll(d.args)
}

func (d *DynCall) MarkTailCalls() {
	d.tail = true
}

func (d *DynCall) String() string {
	return d.fn.String() + "(" + joinExprs(d.args, ", ") + ")"
}
