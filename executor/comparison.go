package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
Comparison implements general comparison: "a op b" is true if some item of a
compares true against some item of b.

The evaluation strategy is chosen once, when an undecided comparison is
optimized, and a new node is built with that strategy:

  * atomic: both operands produce at most one item. One item is pulled from
    each side and compared once.
  * hashed: equality and inequality over larger operands. The left operand is
    streamed; the right operand is consumed lazily into a hash set, at most
    once per evaluation, and not at all if the left operand is empty.
  * pairwise: the remaining operators. The right operand is materialized
    once and scanned for each left item.

A hashed comparison whose right operand is invariant keeps its hash set in the
query context across evaluations, so that repeated evaluation inside a
function body consumes the operand only once. Copies never share this state.
*/

////////////////////////////////////////////////////////////////////////////////

// Strategy is the evaluation strategy of a comparison.
type Strategy int

const (
	Undecided Strategy = iota
	Atomic
	Hashed
	Pairwise
)

func (s Strategy) String() string {
	switch s {
	case Atomic:
		return "atomic"
	case Hashed:
		return "hashed"
	case Pairwise:
		return "pairwise"
	default:
		return "undecided"
	}
}

// Comparison is a general comparison.
type Comparison struct {
	node
	op       value.Op
	coll     *value.Collation
	operands []Expr
	strategy Strategy
}

// NewComparison returns an undecided general comparison.
func NewComparison(pos Pos, op value.Op, coll *value.Collation, a, b Expr) *Comparison {
	return newComparison(pos, op, coll, Undecided, a, b)
}

func newComparison(pos Pos, op value.Op, coll *value.Collation, strategy Strategy, a, b Expr) *Comparison {
	return &Comparison{
		node:     node{pos: pos},
		op:       op,
		coll:     coll,
		operands: []Expr{a, b},
		strategy: strategy,
	}
}

// Strategy returns the evaluation strategy.
func (c *Comparison) Strategy() Strategy {
	return c.strategy
}

// Operands returns the operands.
func (c *Comparison) Operands() (Expr, Expr) {
	return c.operands[0], c.operands[1]
}

func (c *Comparison) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if err := compileAll(ctx, cc, c.operands); err != nil {
		return nil, err
	}
	return c.Optimize(ctx, cc)
}

func (c *Comparison) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	if allConst(c.operands) {
		return cc.PreEval(ctx, c)
	}
	if c.strategy != Undecided {
		return c, nil
	}
	a, b := c.operands[0].SeqType(), c.operands[1].SeqType()
	strategy := Pairwise
	switch {
	case a.ZeroOrOne() && b.ZeroOrOne():
		strategy = Atomic
	case c.op == value.OpEq || c.op == value.OpNe:
		strategy = Hashed
	}
	cc.Info(ctx, "select comparison strategy", "expr", c.String(), "strategy", strategy.String())
	return newComparison(c.pos, c.op, c.coll, strategy, c.operands[0], c.operands[1]), nil
}

func (c *Comparison) Item(ctx context.Context, qc *QueryContext) (value.Item, error) {
	util.IncContextValue(ctx, "cmp_evaluations", 1)
	var result bool
	var err error
	switch c.strategy {
	case Atomic:
		result, err = c.atomic(ctx, qc)
	case Hashed:
		result, err = c.hashed(ctx, qc)
	default:
		result, err = c.pairwise(ctx, qc)
	}
	if err != nil {
		return nil, err
	}
	return value.Bool(result), nil
}

func (c *Comparison) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	return iterOf(ctx, qc, c)
}

func (c *Comparison) compare(a, b value.Item) (bool, error) {
	ok, err := value.Compare(c.op, a, b, c.coll)
	if err != nil {
		return false, withPos(c.pos, err)
	}
	return ok, nil
}

func (c *Comparison) atomic(ctx context.Context, qc *QueryContext) (bool, error) {
	a, err := EvalItem(ctx, qc, c.operands[0])
	if err != nil || a == nil {
		return false, err
	}
	b, err := EvalItem(ctx, qc, c.operands[1])
	if err != nil || b == nil {
		return false, err
	}
	return c.compare(a, b)
}

// invariant reports whether the right operand yields the same sequence on
// every evaluation within a query context.
func (c *Comparison) invariant() bool {
	b := c.operands[1]
	return !b.Has(FlagVAR) && !b.Has(FlagCTX) && !b.Has(FlagNDT)
}

func (c *Comparison) hashed(ctx context.Context, qc *QueryContext) (bool, error) {
	iter1, err := c.operands[0].Iter(ctx, qc)
	if err != nil {
		return false, err
	}
	item, err := iter1.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	invariant := c.invariant()
	var cache *hashSet
	if invariant {
		cache = qc.hashes[c]
	}
	if cache == nil {
		iter2, err := c.operands[1].Iter(ctx, qc)
		if err != nil {
			return false, err
		}
		cache = newHashSet(c.op, c.coll, iter2)
		if invariant {
			qc.hashes[c] = cache
		}
		// an empty right operand needs no cache
		first, ok, err := cache.pull(ctx)
		if err != nil {
			return false, withPos(c.pos, err)
		}
		if !ok {
			return false, nil
		}
		if match, err := c.compare(item, first); err != nil || match {
			return match, err
		}
	} else {
		util.IncContextValue(ctx, "cmp_hash_cached", 1)
	}
	if cache.empty() {
		return false, nil
	}

	for {
		if err := checkStop(ctx); err != nil {
			return false, err
		}
		found, err := cache.contains(item)
		if err != nil {
			return false, withPos(c.pos, err)
		}
		if found {
			return true, nil
		}
		for {
			if err := checkStop(ctx); err != nil {
				return false, err
			}
			cached, ok, err := cache.pull(ctx)
			if err != nil {
				return false, withPos(c.pos, err)
			}
			if !ok {
				break
			}
			if match, err := c.compare(item, cached); err != nil || match {
				return match, err
			}
		}
		item, err = iter1.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
	}
}

func (c *Comparison) pairwise(ctx context.Context, qc *QueryContext) (bool, error) {
	iter1, err := c.operands[0].Iter(ctx, qc)
	if err != nil {
		return false, err
	}
	var seq2 value.Seq
	for {
		if err := checkStop(ctx); err != nil {
			return false, err
		}
		a, err := iter1.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if seq2 == nil {
			if seq2, err = Eval(ctx, qc, c.operands[1]); err != nil {
				return false, err
			}
			if len(seq2) == 0 {
				return false, nil
			}
		}
		for _, b := range seq2 {
			if err := checkStop(ctx); err != nil {
				return false, err
			}
			match, err := c.compare(a, b)
			if err != nil || match {
				return match, err
			}
		}
	}
}

func (c *Comparison) Copy(cc *CompileContext, vm VarMap) Expr {
	return newComparison(c.pos, c.op, c.coll, c.strategy,
		c.operands[0].Copy(cc, vm), c.operands[1].Copy(cc, vm))
}

func (c *Comparison) SeqType() value.SeqType {
	return value.BooleanOne
}

func (c *Comparison) Has(flag Flag) bool {
	return hasAny(c.operands, flag)
}

func (c *Comparison) Count(v *Var) VarUsage {
	return countAll(c.operands, v)
}

func (c *Comparison) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed, err := inlineAll(ctx, cc, c.operands, v, e)
	if err != nil || !changed {
		return nil, err
	}
	return c.Optimize(ctx, cc)
}

func (c *Comparison) Size() int {
	return 1 + sizeAll(c.operands)
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.operands[0], c.op, c.operands[1])
}
