package executor

import (
	"context"
	"strings"

	"github.com/wkalt/treeq/value"
)

/*
Flwor binds a list of variables and evaluates a return expression in their
scope. Bindings are evaluated in order when the iterator is created, so later
bindings may reference earlier ones.

Optimization removes bindings that are never referenced and inlines bindings
that are constant or referenced exactly once.
*/

////////////////////////////////////////////////////////////////////////////////

// Let is a single variable binding.
type Let struct {
	Var  *Var
	Expr Expr
}

// Flwor is a let expression.
type Flwor struct {
	node
	lets []Let
	ret  Expr
}

// NewFlwor returns a let expression.
func NewFlwor(pos Pos, lets []Let, ret Expr) *Flwor {
	return &Flwor{node: node{pos: pos}, lets: lets, ret: ret}
}

// Lets returns the bindings.
func (f *Flwor) Lets() []Let {
	return f.lets
}

// Return returns the return expression.
func (f *Flwor) Return() Expr {
	return f.ret
}

func (f *Flwor) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	for i, let := range f.lets {
		e, err := let.Expr.Compile(ctx, cc)
		if err != nil {
			return nil, err
		}
		f.lets[i].Expr = e
		let.Var.Refine(e.SeqType())
		let.Var.ordered = docOrdered(e)
	}
	ret, err := f.ret.Compile(ctx, cc)
	if err != nil {
		return nil, err
	}
	f.ret = ret
	return f.Optimize(ctx, cc)
}

func (f *Flwor) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	for i := 0; i < len(f.lets); i++ {
		let := f.lets[i]
		rest := f.rest(i)
		usage := countAll(rest, let.Var)
		pure := !let.Expr.Has(FlagNDT) && !let.Expr.Has(FlagUPD)
		_, isConst := let.Expr.(*Const)
		switch {
		case usage == Never && pure:
			cc.Info(ctx, "remove unused binding", "var", let.Var.String())
		case isConst && let.Var.Declared == nil, usage == Once && pure && let.Var.Declared == nil:
			cc.Info(ctx, "inline binding", "var", let.Var.String(), "expr", let.Expr.String())
			if _, err := inlineAll(ctx, cc, rest, let.Var, let.Expr); err != nil {
				return nil, err
			}
			f.setRest(i, rest)
		default:
			continue
		}
		f.lets = append(f.lets[:i], f.lets[i+1:]...)
		i--
	}
	if len(f.lets) == 0 {
		return f.ret, nil
	}
	return f, nil
}

// rest returns the expressions following binding i.
func (f *Flwor) rest(i int) []Expr {
	exprs := make([]Expr, 0, len(f.lets)-i)
	for _, let := range f.lets[i+1:] {
		exprs = append(exprs, let.Expr)
	}
	return append(exprs, f.ret)
}

func (f *Flwor) setRest(i int, exprs []Expr) {
	for j := range f.lets[i+1:] {
		f.lets[i+1+j].Expr = exprs[j]
	}
	f.ret = exprs[len(exprs)-1]
}

func (f *Flwor) children() []Expr {
	return f.rest(-1)
}

func (f *Flwor) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	if err := f.bind(ctx, qc); err != nil {
		return nil, err
	}
	return f.ret.Iter(ctx, qc)
}

func (f *Flwor) Value(ctx context.Context, qc *QueryContext) (value.Seq, error) {
	if err := f.bind(ctx, qc); err != nil {
		return nil, err
	}
	return Eval(ctx, qc, f.ret)
}

func (f *Flwor) bind(ctx context.Context, qc *QueryContext) error {
	for _, let := range f.lets {
		seq, err := Eval(ctx, qc, let.Expr)
		if err != nil {
			return err
		}
		if let.Var.Declared != nil {
			if seq, err = value.Promote(seq, *let.Var.Declared); err != nil {
				return withPos(let.Expr.Position(), err)
			}
		}
		qc.set(let.Var, seq)
	}
	return nil
}

func (f *Flwor) Copy(cc *CompileContext, vm VarMap) Expr {
	lets := make([]Let, len(f.lets))
	for i, let := range f.lets {
		e := let.Expr.Copy(cc, vm)
		lets[i] = Let{Var: cc.Copy(let.Var, vm), Expr: e}
	}
	return NewFlwor(f.pos, lets, f.ret.Copy(cc, vm))
}

func (f *Flwor) SeqType() value.SeqType {
	return f.ret.SeqType()
}

func (f *Flwor) Has(flag Flag) bool {
	return hasAny(f.children(), flag)
}

func (f *Flwor) Count(v *Var) VarUsage {
	return countAll(f.children(), v)
}

func (f *Flwor) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	exprs := f.children()
	changed, err := inlineAll(ctx, cc, exprs, v, e)
	if err != nil || !changed {
		return nil, err
	}
	f.setRest(-1, exprs)
	return f.Optimize(ctx, cc)
}

func (f *Flwor) Size() int {
	return 1 + sizeAll(f.children())
}

func (f *Flwor) MarkTailCalls() {
	f.ret.MarkTailCalls()
}

// DocOrdered reports whether the return expression is in document order.
func (f *Flwor) DocOrdered() bool {
	return docOrdered(f.ret)
}

func (f *Flwor) String() string {
	sb := &strings.Builder{}
	for _, let := range f.lets {
		sb.WriteString("let ")
		sb.WriteString(let.Var.String())
		sb.WriteString(" := ")
		sb.WriteString(let.Expr.String())
		sb.WriteString(" ")
	}
	sb.WriteString("return ")
	sb.WriteString(f.ret.String())
	return sb.String()
}
