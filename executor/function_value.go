package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

// maxCallDepth bounds the nesting of function invocations.
const maxCallDepth = 10000

// FunctionValue is a function item produced by evaluating a closure. Its
// body has no free variables other than its parameters: captured values are
// bound by let clauses around it. A function value is immutable.
type FunctionValue struct {
	params    []*Var
	ft        *value.FuncType
	body      Expr
	stackSize int
}

// Type returns the item type.
func (f *FunctionValue) Type() value.Type {
	return value.TypeFunction
}

// FuncType returns the signature.
func (f *FunctionValue) FuncType() *value.FuncType {
	return f.ft
}

// Arity returns the number of parameters.
func (f *FunctionValue) Arity() int {
	return len(f.params)
}

// ParamNames returns the parameter names.
func (f *FunctionValue) ParamNames() []string {
	return util.Map(f.params, func(p *Var) string { return p.Name })
}

// Body returns the body.
func (f *FunctionValue) Body() Expr {
	return f.body
}

// StackSize returns the frame size required by the body.
func (f *FunctionValue) StackSize() int {
	return f.stackSize
}

// Invoke calls the function. Arguments are promoted to the parameter types.
// The result is fully materialized before the caller's frame is restored.
func (f *FunctionValue) Invoke(ctx context.Context, qc *QueryContext, args []value.Seq) (value.Seq, error) {
	if len(args) != len(f.params) {
		return nil, newArityError(f.String(), pluralize(len(f.params), "argument"), len(args))
	}
	promoted := make([]value.Seq, len(args))
	for i, arg := range args {
		seq, err := value.Promote(arg, f.ft.Args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, f, err)
		}
		if declared := f.params[i].Declared; declared != nil {
			if seq, err = value.Promote(seq, *declared); err != nil {
				return nil, fmt.Errorf("argument %d of %s: %w", i+1, f, err)
			}
		}
		promoted[i] = seq
	}
	if qc.depth >= maxCallDepth {
		return nil, ErrCallDepth
	}
	qc.depth++
	old := qc.pushFrame(f.stackSize)
	defer func() {
		qc.popFrame(old)
		qc.depth--
	}()
	for i, p := range f.params {
		qc.set(p, promoted[i])
	}
	return Eval(ctx, qc, f.body)
}

// CoerceTo returns a function value of type ft whose results are checked
// against the return type of ft.
func (f *FunctionValue) CoerceTo(ft *value.FuncType) (*FunctionValue, error) {
	if len(ft.Args) != len(f.params) {
		return nil, value.NewTypeError("%s cannot be coerced to %s", f, ft)
	}
	if f.ft.InstanceOf(ft) {
		return f, nil
	}
	return &FunctionValue{
		params:    f.params,
		ft:        ft,
		body:      NewTypeCheck(f.body.Position(), f.body, ft.Ret),
		stackSize: f.stackSize,
	}, nil
}

// InlineCall rewrites a call of the function with the given arguments into
// let bindings around a copy of the body. It returns nil if the body reads the
// context item.
func (f *FunctionValue) InlineCall(ctx context.Context, cc *CompileContext, args []Expr) (Expr, error) {
	if f.body.Has(FlagCTX) || len(args) != len(f.params) {
		return nil, nil
	}
	cc.Info(ctx, "inline function value call", "function", f.String())
	vm := VarMap{}
	lets := make([]Let, len(f.params))
	for i, p := range f.params {
		want := f.ft.Args[i]
		if p.Declared != nil {
			want = *p.Declared
		}
		lets[i] = paramLet(cc, vm, p, want, args[i])
	}
	body := f.body.Copy(cc, vm)
	if len(lets) == 0 {
		return body.Optimize(ctx, cc)
	}
	return NewFlwor(f.body.Position(), lets, body).Optimize(ctx, cc)
}

func (f *FunctionValue) String() string {
	return "function(" + strings.Join(f.ParamNames(), ", ") + ")#" + strconv.Itoa(len(f.params))
}

// paramLet binds an argument to a copy of a parameter. The copy keeps a
// declared type only if the argument is not statically known to match it.
func paramLet(cc *CompileContext, vm VarMap, p *Var, want value.SeqType, arg Expr) Let {
	v := cc.Copy(p, vm)
	v.Declared = nil
	if !arg.SeqType().InstanceOf(want) {
		v.Declared = &want
	}
	return Let{Var: v, Expr: arg}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
