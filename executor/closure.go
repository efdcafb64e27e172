package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/wkalt/treeq/value"
)

/*
Closure is an inline function expression. Besides its parameters and body it
holds the captures of the body: bindings from the variables the body reads
from enclosing scopes to the expressions defining them. The capture variables
live in the closure's own scope, alongside the parameters and the variables
declared in the body; the defining expressions live in the enclosing scope.

Compilation runs once per node. Optimization may run again whenever captures
are inlined into, and it:

  * inlines captures bound to constants into the body;
  * inlines small nested closures bound to captures that the body references
    at most once, moving their own captures up into this closure under fresh
    variables;
  * pre-evaluates the closure to a constant function value once no captures
    remain.

Evaluating a closure materializes a FunctionValue: captures are evaluated and
bound with let clauses around the body, and the declared return type is
enforced. Closures compare by identity only: two syntactically equal closures
may capture different bindings.
*/

////////////////////////////////////////////////////////////////////////////////

// Binding binds a captured variable to its defining expression.
type Binding struct {
	Var  *Var
	Expr Expr
}

// Closure is an inline function expression.
type Closure struct {
	node
	params   []*Var
	body     Expr
	declared *value.SeqType
	updating bool
	captures []Binding
	scope    *VarScope
	compiled bool
	st       value.SeqType
	flags    flagCache
}

// NewClosure returns a closure. Params, capture variables and the variables
// of the body must belong to scope.
func NewClosure(
	pos Pos,
	params []*Var,
	body Expr,
	declared *value.SeqType,
	updating bool,
	captures []Binding,
	scope *VarScope,
) *Closure {
	return &Closure{
		node:     node{pos: pos},
		params:   params,
		body:     body,
		declared: declared,
		updating: updating,
		captures: captures,
		scope:    scope,
		st:       value.NewSeqType(value.TypeFunction, value.ExactlyOne),
	}
}

// Params returns the parameters.
func (c *Closure) Params() []*Var {
	return c.params
}

// Body returns the body.
func (c *Closure) Body() Expr {
	return c.body
}

// Captures returns the captures in insertion order.
func (c *Closure) Captures() []Binding {
	return c.captures
}

// Updating reports whether the closure is annotated as updating.
func (c *Closure) Updating() bool {
	return c.updating
}

// FuncType returns the static function type. It is nil before optimization.
func (c *Closure) FuncType() *value.FuncType {
	return c.st.Func
}

func (c *Closure) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if c.compiled {
		return c, nil
	}
	c.compiled = true

	if err := c.checkUpdating(ctx, cc); err != nil {
		return nil, err
	}
	for i, b := range c.captures {
		e, err := b.Expr.Compile(ctx, cc)
		if err != nil {
			return nil, err
		}
		c.captures[i].Expr = e
		b.Var.Refine(e.SeqType())
		b.Var.ordered = docOrdered(e)
	}
	if err := c.inScope(cc, func() error {
		body, err := c.body.Compile(ctx, cc)
		if err != nil {
			return err
		}
		c.body = body
		return nil
	}); err != nil {
		return nil, err
	}
	c.body.MarkTailCalls()
	c.flags.reset()
	return c.Optimize(ctx, cc)
}

// inScope runs f with the closure's scope pushed.
func (c *Closure) inScope(cc *CompileContext, f func() error) error {
	cc.PushScope(c.scope)
	defer cc.PopScope(c.scope)
	return f()
}

// checkUpdating reconciles the updating annotation with the body.
func (c *Closure) checkUpdating(ctx context.Context, cc *CompileContext) error {
	updating := c.body.Has(FlagUPD)
	if updating != c.updating {
		if !c.updating {
			cc.Info(ctx, "annotate closure as updating", "closure", c.String())
			c.updating = true
		} else if !isVacuous(c.body) {
			return withPos(c.pos, UpdateConflictError{Msg: "updating function body expected"})
		}
	}
	if c.updating && c.declared != nil && !c.declared.Zero() {
		return withPos(c.pos, UpdateConflictError{
			Msg: fmt.Sprintf("updating function declares return type %s", c.declared),
		})
	}
	return nil
}

func (c *Closure) funcType() *value.FuncType {
	ret := c.body.SeqType()
	if c.declared != nil && !ret.InstanceOf(*c.declared) {
		ret = *c.declared
	}
	args := make([]value.SeqType, len(c.params))
	for i, p := range c.params {
		args[i] = value.ItemZM
		if p.Declared != nil {
			args[i] = *p.Declared
		}
	}
	return &value.FuncType{Args: args, Ret: ret, Updating: c.updating}
}

func (c *Closure) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	c.st = value.FuncSeqType(c.funcType())

	err := c.inScope(cc, func() error {
		var kept, added []Binding
		for _, b := range c.captures {
			switch def := b.Expr.(type) {
			case *Const:
				seq := def.seq
				if b.Var.Declared != nil {
					promoted, err := value.Promote(seq, *b.Var.Declared)
					if err != nil {
						return withPos(def.pos, err)
					}
					seq = promoted
				}
				cc.Info(ctx, "inline captured value", "var", b.Var.String(), "value", def.String())
				if err := c.inlineBody(ctx, cc, b.Var, NewConst(def.pos, seq)); err != nil {
					return err
				}
				continue
			case *Closure:
				if c.canInline(cc, b.Var, def) {
					cc.Info(ctx, "inline nested closure", "var", b.Var.String(), "closure", def.String())
					for i, nested := range def.captures {
						v := cc.Copy(nested.Var, nil)
						added = append(added, Binding{Var: v, Expr: nested.Expr})
						def.captures[i].Expr = NewVarRef(nested.Expr.Position(), v)
					}
					def.flags.reset()
					if err := c.inlineBody(ctx, cc, b.Var, def); err != nil {
						return err
					}
					continue
				}
			}
			kept = append(kept, b)
		}
		c.captures = append(kept, added...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.flags.reset()
	c.st = value.FuncSeqType(c.funcType())

	if len(c.captures) == 0 {
		return cc.PreEval(ctx, c)
	}
	return c, nil
}

func (c *Closure) inlineBody(ctx context.Context, cc *CompileContext, v *Var, e Expr) error {
	inlined, err := c.body.Inline(ctx, cc, v, e)
	if err != nil {
		return err
	}
	if inlined != nil {
		c.body = inlined
	}
	return nil
}

// canInline reports whether a nested closure bound to v can be inlined into
// the body.
func (c *Closure) canInline(cc *CompileContext, v *Var, nested *Closure) bool {
	opts := cc.Options()
	return !nested.Has(FlagNDT) &&
		!nested.Has(FlagUPD) &&
		len(nested.captures) < opts.MaxInlineCaptures &&
		c.body.Count(v) != MoreThanOnce &&
		nested.Size() < opts.InlineLimit
}

// Item materializes the closure into a function value.
func (c *Closure) Item(ctx context.Context, qc *QueryContext) (value.Item, error) {
	ft := c.st.Func
	if ft == nil {
		return nil, fmt.Errorf("closure %s was not compiled", c)
	}
	body := c.body
	if len(c.captures) > 0 {
		lets := make([]Let, len(c.captures))
		for i, b := range c.captures {
			seq, err := Eval(ctx, qc, b.Expr)
			if err != nil {
				return nil, err
			}
			lets[i] = Let{Var: b.Var, Expr: NewConst(b.Expr.Position(), seq)}
		}
		body = NewFlwor(c.pos, lets, c.body)
	}
	checked, err := c.checkReturn(body)
	if err != nil {
		return nil, err
	}
	return &FunctionValue{
		params:    c.params,
		ft:        ft,
		body:      checked,
		stackSize: c.scope.StackSize(),
	}, nil
}

// checkReturn enforces the declared return type on a materialized body.
func (c *Closure) checkReturn(body Expr) (Expr, error) {
	st := body.SeqType()
	if c.declared == nil || st.InstanceOf(*c.declared) {
		return body, nil
	}
	declared := *c.declared
	if fv, ok := constFunction(body); ok && declared.Func != nil {
		if !declared.Occ.Check(1) {
			return nil, typeErrorf(c.pos, "%s does not match %s", fv, declared)
		}
		coerced, err := fv.CoerceTo(declared.Func)
		if err != nil {
			return nil, withPos(c.pos, err)
		}
		return NewConst(body.Position(), value.Seq{coerced}), nil
	}
	if k, ok := body.(*Const); ok {
		seq, err := value.Promote(k.seq, declared)
		if err != nil {
			return nil, withPos(c.pos, err)
		}
		return NewConst(k.pos, seq), nil
	}
	if st.Type.InstanceOf(declared.Type) && !body.Has(FlagNDT) && !body.Has(FlagUPD) {
		if _, ok := st.Occ.Intersect(declared.Occ); !ok {
			return nil, typeErrorf(c.pos, "%s cannot match %s", st, declared)
		}
	}
	return NewTypeCheck(c.pos, body, declared), nil
}

func (c *Closure) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	return iterOf(ctx, qc, c)
}

// InlineCall rewrites a call of the closure with the given arguments into let
// bindings around a copy of the body. It returns nil if the body reads the
// context item.
func (c *Closure) InlineCall(ctx context.Context, cc *CompileContext, args []Expr) (Expr, error) {
	if c.body.Has(FlagCTX) {
		return nil, nil
	}
	cc.Info(ctx, "inline function call", "closure", c.String())
	vm := VarMap{}
	lets := make([]Let, 0, len(c.params)+len(c.captures))
	for i, p := range c.params {
		want := value.ItemZM
		if p.Declared != nil {
			want = *p.Declared
		}
		lets = append(lets, paramLet(cc, vm, p, want, args[i]))
	}
	for _, b := range c.captures {
		lets = append(lets, Let{Var: cc.Copy(b.Var, vm), Expr: b.Expr})
	}
	body := c.body.Copy(cc, vm)
	if c.declared != nil {
		checked, err := NewTypeCheck(c.pos, body, *c.declared).Optimize(ctx, cc)
		if err != nil {
			return nil, err
		}
		body = checked
	}
	if len(lets) == 0 {
		return body, nil
	}
	return NewFlwor(c.pos, lets, body).Optimize(ctx, cc)
}

func (c *Closure) Copy(cc *CompileContext, vm VarMap) Expr {
	outer := make([]Expr, len(c.captures))
	for i, b := range c.captures {
		outer[i] = b.Expr.Copy(cc, vm)
	}
	scope := NewVarScope()
	cc.PushScope(scope)
	defer cc.PopScope(scope)

	inner := VarMap{}
	for _, v := range c.scope.Vars() {
		cc.Copy(v, inner)
	}
	params := make([]*Var, len(c.params))
	for i, p := range c.params {
		params[i] = inner.lookup(p)
	}
	captures := make([]Binding, len(c.captures))
	for i, b := range c.captures {
		captures[i] = Binding{Var: inner.lookup(b.Var), Expr: outer[i]}
	}
	body := c.body.Copy(cc, inner)
	body.MarkTailCalls()
	return &Closure{
		node:     c.node,
		params:   params,
		body:     body,
		declared: c.declared,
		updating: c.updating,
		captures: captures,
		scope:    scope,
		compiled: c.compiled,
		st:       c.st,
	}
}

func (c *Closure) SeqType() value.SeqType {
	return c.st
}

// Has reports a flag of the closure. Creating a function value never
// performs updates; the other flags follow the body and captures.
func (c *Closure) Has(flag Flag) bool {
	return c.flags.lookup(flag, func() bool {
		if flag == FlagUPD {
			return false
		}
		return c.body.Has(flag) || c.captureHas(flag)
	})
}

func (c *Closure) captureHas(flag Flag) bool {
	for _, b := range c.captures {
		if b.Expr.Has(flag) {
			return true
		}
	}
	return false
}

func (c *Closure) Count(v *Var) VarUsage {
	usage := Never
	for _, b := range c.captures {
		if usage = usage.Plus(b.Expr.Count(v)); usage == MoreThanOnce {
			break
		}
	}
	return usage
}

func (c *Closure) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed := false
	for i, b := range c.captures {
		inlined, err := b.Expr.Inline(ctx, cc, v, e)
		if err != nil {
			return nil, err
		}
		if inlined != nil {
			c.captures[i].Expr = inlined
			changed = true
		}
	}
	if !changed {
		return nil, nil
	}
	return c.Optimize(ctx, cc)
}

func (c *Closure) Size() int {
	size := 1 + c.body.Size()
	for _, b := range c.captures {
		size += b.Expr.Size()
	}
	return size
}

// Vacuous reports whether the closure is declared to return the empty
// sequence without updating.
func (c *Closure) Vacuous() bool {
	return c.declared != nil && c.declared.Zero() && !c.Has(FlagUPD)
}

func (c *Closure) String() string {
	sb := &strings.Builder{}
	if len(c.captures) > 0 {
		sb.WriteString("(")
		for _, b := range c.captures {
			fmt.Fprintf(sb, "let %s := %s ", b.Var, b.Expr)
		}
		sb.WriteString("return ")
	}
	if c.updating {
		sb.WriteString("%updating ")
	}
	sb.WriteString("function(")
	for i, p := range c.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
		if p.Declared != nil {
			sb.WriteString(" as " + p.Declared.String())
		}
	}
	sb.WriteString(") ")
	if c.declared != nil {
		sb.WriteString("as " + c.declared.String() + " ")
	}
	sb.WriteString("{ " + c.body.String() + " }")
	if len(c.captures) > 0 {
		sb.WriteString(")")
	}
	return sb.String()
}

// vacuous is implemented by expressions that never produce items and never
// update.
type vacuous interface {
	Vacuous() bool
}

func isVacuous(e Expr) bool {
	v, ok := e.(vacuous)
	return ok && v.Vacuous()
}
