package executor

import (
	"context"

	"github.com/wkalt/treeq/value"
)

// ContextItem is the context item expression ".".
type ContextItem struct {
	node
}

// NewContextItem returns a context item expression.
func NewContextItem(pos Pos) *ContextItem {
	return &ContextItem{node: node{pos: pos}}
}

func (c *ContextItem) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	return c, nil
}

func (c *ContextItem) Optimize(context.Context, *CompileContext) (Expr, error) {
	return c, nil
}

func (c *ContextItem) Item(_ context.Context, qc *QueryContext) (value.Item, error) {
	if qc.focus == nil {
		return nil, withPos(c.pos, UndefinedError{Kind: "context item"})
	}
	return qc.focus, nil
}

func (c *ContextItem) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	return iterOf(ctx, qc, c)
}

func (c *ContextItem) Copy(*CompileContext, VarMap) Expr {
	return &ContextItem{node: c.node}
}

func (c *ContextItem) SeqType() value.SeqType {
	return value.NewSeqType(value.TypeItem, value.ExactlyOne)
}

func (c *ContextItem) Has(flag Flag) bool {
	return flag == FlagCTX
}

func (c *ContextItem) Count(*Var) VarUsage {
	return Never
}

func (c *ContextItem) Inline(context.Context, *CompileContext, *Var, Expr) (Expr, error) {
	return nil, nil
}

func (c *ContextItem) Size() int {
	return 1
}

func (c *ContextItem) String() string {
	return "."
}
