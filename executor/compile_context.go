package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/util/log"
	"github.com/wkalt/treeq/value"
)

/*
The compile context is threaded through compilation and optimization. It owns
the scope stack, allocates variables, pre-evaluates constant expressions and
collects diagnostics about the rewrites performed.

Scopes must be pushed and popped in strict nesting order. An imbalance is a
programming error and panics.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	// DefaultInlineLimit is the maximum size of a closure that is inlined.
	DefaultInlineLimit = 50
	// DefaultMaxInlineCaptures bounds the captures of an inlined closure.
	DefaultMaxInlineCaptures = 5
)

// CompileOption is a functional option for the compile context.
type CompileOption func(*CompileOptions)

// CompileOptions contains options for compilation.
type CompileOptions struct {
	InlineLimit       int
	MaxInlineCaptures int
}

// WithInlineLimit sets the maximum expression size of inlined closures.
func WithInlineLimit(limit int) CompileOption {
	return func(opts *CompileOptions) {
		opts.InlineLimit = limit
	}
}

// WithMaxInlineCaptures sets the exclusive upper bound on the number of
// captured variables of an inlined closure.
func WithMaxInlineCaptures(n int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxInlineCaptures = n
	}
}

// CompileContext is the state of a compilation.
type CompileContext struct {
	opts        CompileOptions
	scopes      []*VarScope
	nextID      int
	diagnostics []string
	qc          *QueryContext
}

// NewCompileContext returns a compile context with an empty root scope.
func NewCompileContext(opts ...CompileOption) *CompileContext {
	options := CompileOptions{
		InlineLimit:       DefaultInlineLimit,
		MaxInlineCaptures: DefaultMaxInlineCaptures,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &CompileContext{
		opts:   options,
		scopes: []*VarScope{NewVarScope()},
		qc:     NewQueryContext(),
	}
}

// Options returns the options of the context.
func (cc *CompileContext) Options() CompileOptions {
	return cc.opts
}

// Root returns the scope of the main module.
func (cc *CompileContext) Root() *VarScope {
	return cc.scopes[0]
}

// Scope returns the current scope.
func (cc *CompileContext) Scope() *VarScope {
	return cc.scopes[len(cc.scopes)-1]
}

// PushScope enters a scope.
func (cc *CompileContext) PushScope(s *VarScope) {
	cc.scopes = append(cc.scopes, s)
}

// PopScope leaves a scope, which must be the current one.
func (cc *CompileContext) PopScope(s *VarScope) {
	if len(cc.scopes) < 2 || cc.Scope() != s {
		panic("compile context: unbalanced scope stack")
	}
	cc.scopes = cc.scopes[:len(cc.scopes)-1]
}

// Depth returns the number of scopes entered above the root.
func (cc *CompileContext) Depth() int {
	return len(cc.scopes) - 1
}

// NewVar allocates a variable in the current scope.
func (cc *CompileContext) NewVar(name string, declared *value.SeqType) *Var {
	v := newVar(cc.nextID, name, declared)
	cc.nextID++
	cc.Scope().add(v)
	return v
}

// Copy allocates a fresh copy of v in the current scope and records the
// mapping in vm, if vm is non-nil.
func (cc *CompileContext) Copy(v *Var, vm VarMap) *Var {
	nv := cc.NewVar(v.Name, v.Declared)
	nv.refined = v.refined
	nv.ordered = v.ordered
	if vm != nil {
		vm[v.ID] = nv
	}
	return nv
}

// PreEval evaluates an expression at compile time and returns the result as
// a constant.
func (cc *CompileContext) PreEval(ctx context.Context, e Expr) (Expr, error) {
	seq, err := Eval(ctx, cc.qc, e)
	if err != nil {
		return nil, err
	}
	c := NewConst(e.Position(), seq)
	cc.Info(ctx, "pre-evaluate", "expr", e.String(), "value", c.String())
	return c, nil
}

// Info records a rewrite diagnostic.
func (cc *CompileContext) Info(ctx context.Context, msg string, keyvals ...any) {
	sb := &strings.Builder{}
	sb.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(sb, " %v=%v", keyvals[i], keyvals[i+1])
	}
	cc.diagnostics = append(cc.diagnostics, sb.String())
	util.IncContextValue(ctx, "rewrites", 1)
	log.Debugw(ctx, msg, keyvals...)
}

// Diagnostics returns the recorded diagnostics in order.
func (cc *CompileContext) Diagnostics() []string {
	return cc.diagnostics
}
