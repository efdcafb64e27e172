package plan

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/ql"
	"github.com/wkalt/treeq/value"
)

/*
The plan module is responsible for converting raw query AST into an executor
expression tree. It resolves variable names lexically, allocates variables in
the scope that owns them and computes the capture list of every inline
function.

Each inline function opens a frame with its own variable scope. A reference
to a variable of an enclosing frame is turned into a capture: the function
gets a local variable bound to a reference to the outer one. Captures chain
through intermediate functions, so every closure only refers to its direct
parent's variables.
*/

////////////////////////////////////////////////////////////////////////////////

type binding struct {
	name string
	v    *executor.Var
}

type frame struct {
	scope    *executor.VarScope
	names    []binding
	captures []executor.Binding
	captured map[int]*executor.Var
	parent   *frame
}

func newFrame(scope *executor.VarScope, parent *frame) *frame {
	return &frame{scope: scope, captured: make(map[int]*executor.Var), parent: parent}
}

// Option is a functional option for the planner.
type Option func(*Planner)

// WithCollation sets the collation of the general comparisons of the query.
func WithCollation(coll *value.Collation) Option {
	return func(p *Planner) {
		p.coll = coll
	}
}

// Planner converts query AST to expressions.
type Planner struct {
	cc    *executor.CompileContext
	coll  *value.Collation
	frame *frame
}

// New returns a planner allocating variables through cc.
func New(cc *executor.CompileContext, opts ...Option) *Planner {
	p := &Planner{cc: cc, frame: newFrame(cc.Root(), nil)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Declare declares an external variable in the main module. Its value is
// supplied to the query context before evaluation.
func (p *Planner) Declare(name string, declared *value.SeqType) *executor.Var {
	v := p.newVar(p.frame.scope, name, declared)
	p.frame.names = append(p.frame.names, binding{name: name, v: v})
	return v
}

// Plan converts a query to an uncompiled expression.
func (p *Planner) Plan(query *ql.Query) (executor.Expr, error) {
	return p.expr(query.Body)
}

func pos(p lexer.Position) executor.Pos {
	return executor.Pos{Line: p.Line, Col: p.Column}
}

func (p *Planner) newVar(scope *executor.VarScope, name string, declared *value.SeqType) *executor.Var {
	p.cc.PushScope(scope)
	defer p.cc.PopScope(scope)
	return p.cc.NewVar(name, declared)
}

// lookup resolves a name in f, capturing it from enclosing frames if
// required.
func (p *Planner) lookup(f *frame, name string) (*executor.Var, bool) {
	for i := len(f.names) - 1; i >= 0; i-- {
		if f.names[i].name == name {
			return f.names[i].v, true
		}
	}
	if f.parent == nil {
		return nil, false
	}
	outer, ok := p.lookup(f.parent, name)
	if !ok {
		return nil, false
	}
	if local, ok := f.captured[outer.ID]; ok {
		return local, true
	}
	local := p.newVar(f.scope, name, nil)
	f.captured[outer.ID] = local
	f.captures = append(f.captures, executor.Binding{Var: local, Expr: executor.NewVarRef(executor.Pos{}, outer)})
	return local, true
}

func (p *Planner) expr(e *ql.Expr) (executor.Expr, error) {
	exprs := make([]executor.Expr, len(e.Items))
	for i, item := range e.Items {
		x, err := p.exprSingle(item)
		if err != nil {
			return nil, err
		}
		exprs[i] = x
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return executor.NewList(pos(e.Pos), exprs...), nil
}

func (p *Planner) exprSingle(e *ql.ExprSingle) (executor.Expr, error) {
	if e.Let != nil {
		return p.let(e.Let)
	}
	return p.comparison(e.Comparison)
}

func (p *Planner) let(l *ql.Let) (executor.Expr, error) {
	depth := len(p.frame.names)
	defer func() {
		p.frame.names = p.frame.names[:depth]
	}()
	lets := make([]executor.Let, len(l.Bindings))
	for i, b := range l.Bindings {
		x, err := p.exprSingle(b.Expr)
		if err != nil {
			return nil, err
		}
		var declared *value.SeqType
		if b.Type != nil {
			st, err := seqType(b.Type)
			if err != nil {
				return nil, err
			}
			declared = &st
			x = executor.NewTypeCheck(pos(b.Pos), x, st)
		}
		name := strings.TrimPrefix(b.Var, "$")
		v := p.newVar(p.frame.scope, name, declared)
		p.frame.names = append(p.frame.names, binding{name: name, v: v})
		lets[i] = executor.Let{Var: v, Expr: x}
	}
	ret, err := p.exprSingle(l.Return)
	if err != nil {
		return nil, err
	}
	return executor.NewFlwor(pos(l.Pos), lets, ret), nil
}

var comparisonOps = map[string]value.Op{ // nolint:gochecknoglobals
	"=":  value.OpEq,
	"!=": value.OpNe,
	"<":  value.OpLt,
	"<=": value.OpLe,
	">":  value.OpGt,
	">=": value.OpGe,
}

func (p *Planner) comparison(c *ql.Comparison) (executor.Expr, error) {
	left, err := p.additive(c.Left)
	if err != nil {
		return nil, err
	}
	if c.Right == nil {
		return left, nil
	}
	right, err := p.additive(c.Right)
	if err != nil {
		return nil, err
	}
	return executor.NewComparison(pos(c.Pos), comparisonOps[c.Op], p.coll, left, right), nil
}

func (p *Planner) additive(a *ql.Additive) (executor.Expr, error) {
	left, err := p.multiplicative(a.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range a.Rest {
		right, err := p.multiplicative(op.Right)
		if err != nil {
			return nil, err
		}
		arith := executor.OpAdd
		if op.Op == "-" {
			arith = executor.OpSub
		}
		left = executor.NewArith(pos(op.Pos), arith, left, right)
	}
	return left, nil
}

func (p *Planner) multiplicative(m *ql.Multiplicative) (executor.Expr, error) {
	left, err := p.union(m.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range m.Rest {
		right, err := p.union(op.Right)
		if err != nil {
			return nil, err
		}
		left = executor.NewArith(pos(op.Pos), executor.OpMul, left, right)
	}
	return left, nil
}

func (p *Planner) union(u *ql.Union) (executor.Expr, error) {
	operands := make([]executor.Expr, 0, len(u.Rest)+1)
	for _, e := range append([]*ql.Except{u.Left}, u.Rest...) {
		x, err := p.except(e)
		if err != nil {
			return nil, err
		}
		operands = append(operands, x)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return executor.NewUnion(pos(u.Pos), operands...), nil
}

func (p *Planner) except(e *ql.Except) (executor.Expr, error) {
	operands := make([]executor.Expr, 0, len(e.Rest)+1)
	for _, i := range append([]*ql.InstanceOf{e.Left}, e.Rest...) {
		x, err := p.instanceOf(i)
		if err != nil {
			return nil, err
		}
		operands = append(operands, x)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return executor.NewExcept(pos(e.Pos), operands...), nil
}

func (p *Planner) instanceOf(i *ql.InstanceOf) (executor.Expr, error) {
	x, err := p.postfix(i.Expr)
	if err != nil {
		return nil, err
	}
	if i.Type == nil {
		return x, nil
	}
	st, err := seqType(i.Type)
	if err != nil {
		return nil, err
	}
	return executor.NewInstance(pos(i.Pos), x, st), nil
}

func (p *Planner) postfix(e *ql.Postfix) (executor.Expr, error) {
	x, err := p.primary(e.Primary)
	if err != nil {
		return nil, err
	}
	for _, call := range e.Calls {
		args, err := p.args(call.Args)
		if err != nil {
			return nil, err
		}
		x = executor.NewDynCall(pos(call.Pos), x, args...)
	}
	return x, nil
}

func (p *Planner) args(items []*ql.ExprSingle) ([]executor.Expr, error) {
	args := make([]executor.Expr, len(items))
	for i, item := range items {
		x, err := p.exprSingle(item)
		if err != nil {
			return nil, err
		}
		args[i] = x
	}
	return args, nil
}

func (p *Planner) primary(e *ql.Primary) (executor.Expr, error) {
	at := pos(e.Pos)
	switch {
	case e.Float != nil:
		return executor.NewConst(at, value.Seq{value.Dbl(*e.Float)}), nil
	case e.Integer != nil:
		return executor.NewConst(at, value.Seq{value.Int(*e.Integer)}), nil
	case e.String != nil:
		return executor.NewConst(at, value.Seq{value.Str(*e.String)}), nil
	case e.Var != nil:
		name := strings.TrimPrefix(*e.Var, "$")
		v, ok := p.lookup(p.frame, name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", at, executor.UndefinedError{Kind: "variable", Name: *e.Var})
		}
		return executor.NewVarRef(at, v), nil
	case e.Function != nil:
		return p.function(e.Function)
	case e.Call != nil:
		args, err := p.args(e.Call.Args)
		if err != nil {
			return nil, err
		}
		return executor.NewCall(at, e.Call.Name, args...)
	case e.Paren != nil:
		if e.Paren.Expr == nil {
			return executor.Empty(at), nil
		}
		return p.expr(e.Paren.Expr)
	case e.Context:
		return executor.NewContextItem(at), nil
	}
	return nil, fmt.Errorf("%s: empty expression", at)
}

func (p *Planner) function(f *ql.InlineFunction) (executor.Expr, error) {
	scope := executor.NewVarScope()
	fr := newFrame(scope, p.frame)
	params := make([]*executor.Var, len(f.Params))
	for i, param := range f.Params {
		var declared *value.SeqType
		if param.Type != nil {
			st, err := seqType(param.Type)
			if err != nil {
				return nil, err
			}
			declared = &st
		}
		name := strings.TrimPrefix(param.Var, "$")
		params[i] = p.newVar(scope, name, declared)
		fr.names = append(fr.names, binding{name: name, v: params[i]})
	}
	var ret *value.SeqType
	if f.Return != nil {
		st, err := seqType(f.Return)
		if err != nil {
			return nil, err
		}
		ret = &st
	}
	outer := p.frame
	p.frame = fr
	body, err := p.expr(f.Body)
	p.frame = outer
	if err != nil {
		return nil, err
	}
	return executor.NewClosure(pos(f.Pos), params, body, ret, f.Updating, fr.captures, scope), nil
}

var atomicTypes = map[string]value.Type{ // nolint:gochecknoglobals
	"xs:anyAtomicType": value.TypeAtomic,
	"xs:numeric":       value.TypeNumeric,
	"xs:integer":       value.TypeInteger,
	"xs:double":        value.TypeDouble,
	"xs:string":        value.TypeString,
	"xs:untypedAtomic": value.TypeUntyped,
	"xs:boolean":       value.TypeBoolean,
	"xs:dateTime":      value.TypeDateTime,
}

var nodeTypes = map[string]value.Type{ // nolint:gochecknoglobals
	"item":          value.TypeItem,
	"node":          value.TypeNode,
	"text":          value.TypeText,
	"element":       value.TypeElement,
	"attribute":     value.TypeAttribute,
	"document-node": value.TypeDocument,
}

var occurrences = map[string]value.Occ{ // nolint:gochecknoglobals
	"":  value.ExactlyOne,
	"?": value.ZeroOrOne,
	"*": value.ZeroOrMore,
	"+": value.OneOrMore,
}

func seqType(st *ql.SeqType) (value.SeqType, error) {
	if st.Empty {
		return value.EmptySeq, nil
	}
	occ := occurrences[st.Occ]
	switch {
	case st.Item.Function:
		return value.NewSeqType(value.TypeFunction, occ), nil
	case st.Item.Kind != "":
		return value.NewSeqType(nodeTypes[st.Item.Kind], occ), nil
	}
	t, ok := atomicTypes[st.Item.Atomic]
	if !ok {
		return value.SeqType{}, fmt.Errorf("%s: %w", pos(st.Pos), executor.UndefinedError{Kind: "type", Name: st.Item.Atomic})
	}
	return value.NewSeqType(t, occ), nil
}
