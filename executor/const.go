package executor

import (
	"context"

	"github.com/wkalt/treeq/value"
)

// Const is a precomputed sequence.
type Const struct {
	node
	seq value.Seq
	st  value.SeqType
}

// NewConst returns a constant expression.
func NewConst(pos Pos, seq value.Seq) *Const {
	if seq == nil {
		seq = value.Seq{}
	}
	return &Const{node: node{pos: pos}, seq: seq, st: seqTypeOf(seq)}
}

// Empty returns the empty sequence.
func Empty(pos Pos) *Const {
	return NewConst(pos, nil)
}

// seqTypeOf returns the most specific type of a sequence.
func seqTypeOf(seq value.Seq) value.SeqType {
	if len(seq) == 0 {
		return value.EmptySeq
	}
	st := value.NewSeqType(seq[0].Type(), value.Occ{Min: len(seq), Max: len(seq)})
	for _, item := range seq[1:] {
		st.Type = st.Type.Union(item.Type())
	}
	if st.Type == value.TypeFunction && len(seq) == 1 {
		st.Func = seq[0].(value.FunctionItem).FuncType()
	}
	return st
}

// Seq returns the value.
func (c *Const) Seq() value.Seq {
	return c.seq
}

func (c *Const) Compile(context.Context, *CompileContext) (Expr, error) {
	return c, nil
}

func (c *Const) Optimize(context.Context, *CompileContext) (Expr, error) {
	return c, nil
}

func (c *Const) Iter(context.Context, *QueryContext) (Iter, error) {
	return newSeqIter(c.seq), nil
}

func (c *Const) Value(context.Context, *QueryContext) (value.Seq, error) {
	return c.seq, nil
}

func (c *Const) Copy(*CompileContext, VarMap) Expr {
	cp := *c
	return &cp
}

func (c *Const) SeqType() value.SeqType {
	return c.st
}

func (c *Const) Has(Flag) bool {
	return false
}

func (c *Const) Count(*Var) VarUsage {
	return Never
}

func (c *Const) Inline(context.Context, *CompileContext, *Var, Expr) (Expr, error) {
	return nil, nil
}

func (c *Const) Size() int {
	return 1
}

// DocOrdered reports whether the value is a strictly ascending node sequence.
func (c *Const) DocOrdered() bool {
	var prev value.Node
	for _, item := range c.seq {
		n, ok := item.(value.Node)
		if !ok || (prev != nil && prev.Diff(n) >= 0) {
			return false
		}
		prev = n
	}
	return true
}

func (c *Const) String() string {
	if len(c.seq) == 0 {
		return "()"
	}
	return c.seq.String()
}

// constFunction returns the function value held by a constant, if any.
func constFunction(e Expr) (*FunctionValue, bool) {
	c, ok := e.(*Const)
	if !ok || len(c.seq) != 1 {
		return nil, false
	}
	fv, ok := c.seq[0].(*FunctionValue)
	return fv, ok
}
