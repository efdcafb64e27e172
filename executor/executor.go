package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
The executor package compiles and evaluates query expressions over tree data.

Expressions arrive from the planner as a tree of Expr nodes with resolved
variable scopes. Compilation walks the tree depth-first: each node compiles its
children and then calls Optimize, which may return a different node. Common
rewrites are constant pre-evaluation, variable inlining and the selection of an
evaluation strategy for general comparisons.

Evaluation is pull-based. Iter returns an iterator, and callers pull items
with Next until io.EOF. The context passed to Next is the cancellation token;
every loop that may run for an unbounded number of items polls it and fails
with ErrCancelled rather than truncating its output.

Operators in this package:
  * comparison: general comparison with atomic, hashed and pairwise strategies
  * closure: inline function expressions, their captures and inlining
  * except: document-order set difference of node sequences
  * union: document-order merge of node sequences
  * range access: index-backed numeric range lookups
  * flwor, list, arith, type checks and builtin function calls
*/

////////////////////////////////////////////////////////////////////////////////

// Pos is a source location.
type Pos struct {
	Line int
	Col  int
}

// String returns the location as line:col.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Flag is a property of an expression that restricts how it may be rewritten.
type Flag int

const (
	// FlagNDT marks non-deterministic expressions.
	FlagNDT Flag = iota
	// FlagUPD marks updating expressions.
	FlagUPD
	// FlagCTX marks expressions that read the context item.
	FlagCTX
	// FlagVAR marks expressions that read a variable.
	FlagVAR

	numFlags
)

// String returns the flag name.
func (f Flag) String() string {
	switch f {
	case FlagNDT:
		return "NDT"
	case FlagUPD:
		return "UPD"
	case FlagCTX:
		return "CTX"
	case FlagVAR:
		return "VAR"
	default:
		return fmt.Sprintf("flag(%d)", int(f))
	}
}

// VarUsage classifies how often a variable is referenced.
type VarUsage int

const (
	Never VarUsage = iota
	Once
	MoreThanOnce
)

// Plus combines two usages.
func (u VarUsage) Plus(o VarUsage) VarUsage {
	return min(u+o, MoreThanOnce)
}

func (u VarUsage) String() string {
	switch u {
	case Never:
		return "never"
	case Once:
		return "once"
	default:
		return "more than once"
	}
}

// Iter is a lazy iterator over items. Next returns io.EOF when exhausted.
type Iter interface {
	Next(ctx context.Context) (value.Item, error)
}

// Expr is an expression node.
type Expr interface {
	// Compile compiles the children of the node and optimizes it. The
	// returned expression replaces the receiver.
	Compile(ctx context.Context, cc *CompileContext) (Expr, error)
	// Optimize rewrites the node using the static information available.
	Optimize(ctx context.Context, cc *CompileContext) (Expr, error)
	// Iter returns an iterator over the result.
	Iter(ctx context.Context, qc *QueryContext) (Iter, error)
	// Copy returns a deep copy, allocating fresh identities for the
	// variables declared inside the expression and recording them in vm.
	Copy(cc *CompileContext, vm VarMap) Expr
	// SeqType returns the static type of the result.
	SeqType() value.SeqType
	// Has reports whether the expression has a property.
	Has(flag Flag) bool
	// Count reports how often a variable is referenced.
	Count(v *Var) VarUsage
	// Inline replaces references to v with e. It returns nil if nothing
	// was changed.
	Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error)
	// Size returns the number of nodes in the expression tree.
	Size() int
	// MarkTailCalls marks calls in tail position.
	MarkTailCalls()
	// Position returns the source location.
	Position() Pos
	String() string
}

// valuer is implemented by expressions that compute their full result more
// cheaply than by iteration.
type valuer interface {
	Value(ctx context.Context, qc *QueryContext) (value.Seq, error)
}

// itemer is implemented by expressions that produce at most one item.
type itemer interface {
	Item(ctx context.Context, qc *QueryContext) (value.Item, error)
}

// Eval evaluates an expression to a sequence.
func Eval(ctx context.Context, qc *QueryContext, e Expr) (value.Seq, error) {
	if v, ok := e.(valuer); ok {
		return v.Value(ctx, qc)
	}
	it, err := e.Iter(ctx, qc)
	if err != nil {
		return nil, err
	}
	return Drain(ctx, it)
}

// EvalItem evaluates an expression that must produce at most one item. It
// returns nil for the empty sequence.
func EvalItem(ctx context.Context, qc *QueryContext, e Expr) (value.Item, error) {
	if x, ok := e.(itemer); ok {
		return x.Item(ctx, qc)
	}
	it, err := e.Iter(ctx, qc)
	if err != nil {
		return nil, err
	}
	first, err := it.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := it.Next(ctx); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, typeErrorf(e.Position(), "%s produces more than one item", e)
	}
	return first, nil
}

// Drain reads an iterator to exhaustion.
func Drain(ctx context.Context, it Iter) (value.Seq, error) {
	seq := value.Seq{}
	for {
		if err := checkStop(ctx); err != nil {
			return nil, err
		}
		item, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return seq, nil
			}
			return nil, err
		}
		seq = append(seq, item)
	}
}

// Run evaluates an expression and writes one serialized item per line.
func Run(ctx context.Context, w io.Writer, qc *QueryContext, e Expr) (int, error) {
	it, err := e.Iter(ctx, qc)
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		item, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, err
		}
		if _, err := fmt.Fprintln(w, item.String()); err != nil {
			return count, fmt.Errorf("failed to write item: %w", err)
		}
		count++
	}
}

// checkStop polls the cancellation token.
func checkStop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// node carries the fields shared by all expressions.
type node struct {
	pos Pos
}

func (n node) Position() Pos {
	return n.pos
}

func (node) MarkTailCalls() {}

// seqIter iterates over a materialized sequence.
type seqIter struct {
	seq value.Seq
}

func newSeqIter(seq value.Seq) *seqIter {
	return &seqIter{seq: seq}
}

func (it *seqIter) Next(_ context.Context) (value.Item, error) {
	if len(it.seq) == 0 {
		return nil, io.EOF
	}
	item := it.seq[0]
	it.seq = it.seq[1:]
	return item, nil
}

// itemIter returns an iterator over a single item, or an empty iterator for
// a nil item.
func itemIter(item value.Item) Iter {
	if item == nil {
		return newSeqIter(nil)
	}
	return newSeqIter(value.Seq{item})
}

// iterOf adapts an itemer to the iterator contract.
func iterOf(ctx context.Context, qc *QueryContext, x itemer) (Iter, error) {
	item, err := x.Item(ctx, qc)
	if err != nil {
		return nil, err
	}
	return itemIter(item), nil
}

func compileAll(ctx context.Context, cc *CompileContext, exprs []Expr) error {
	for i, e := range exprs {
		compiled, err := e.Compile(ctx, cc)
		if err != nil {
			return err
		}
		exprs[i] = compiled
	}
	return nil
}

func inlineAll(ctx context.Context, cc *CompileContext, exprs []Expr, v *Var, e Expr) (bool, error) {
	changed := false
	for i, x := range exprs {
		inlined, err := x.Inline(ctx, cc, v, e)
		if err != nil {
			return false, err
		}
		if inlined != nil {
			exprs[i] = inlined
			changed = true
		}
	}
	return changed, nil
}

func copyAll(cc *CompileContext, vm VarMap, exprs []Expr) []Expr {
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.Copy(cc, vm)
	}
	return out
}

func countAll(exprs []Expr, v *Var) VarUsage {
	usage := Never
	for _, e := range exprs {
		if usage = usage.Plus(e.Count(v)); usage == MoreThanOnce {
			break
		}
	}
	return usage
}

func hasAny(exprs []Expr, flag Flag) bool {
	for _, e := range exprs {
		if e.Has(flag) {
			return true
		}
	}
	return false
}

// joinExprs renders exprs separated by sep.
func joinExprs(exprs []Expr, sep string) string {
	return strings.Join(util.Map(exprs, func(e Expr) string { return e.String() }), sep)
}

func sizeAll(exprs []Expr) int {
	size := 0
	for _, e := range exprs {
		size += e.Size()
	}
	return size
}

func allConst(exprs []Expr) bool {
	for _, e := range exprs {
		if _, ok := e.(*Const); !ok {
			return false
		}
	}
	return true
}
