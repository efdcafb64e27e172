package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/value"
)

var pos = executor.Pos{Line: 1, Col: 1} // nolint:gochecknoglobals

func compile(t *testing.T, cc *executor.CompileContext, e executor.Expr) executor.Expr {
	t.Helper()
	compiled, err := e.Compile(context.Background(), cc)
	require.NoError(t, err)
	return compiled
}

func eval(t *testing.T, qc *executor.QueryContext, e executor.Expr) value.Seq {
	t.Helper()
	seq, err := executor.Eval(context.Background(), qc, e)
	require.NoError(t, err)
	return seq
}

func ints(xs ...int64) value.Seq {
	seq := make(value.Seq, len(xs))
	for i, x := range xs {
		seq[i] = value.Int(x)
	}
	return seq
}

func konst(items ...value.Item) *executor.Const {
	return executor.NewConst(pos, items)
}

func typed(t value.Type, occ value.Occ, items ...value.Item) *executor.MockExpr {
	m := executor.NewMockExpr(items...)
	m.Type = value.NewSeqType(t, occ)
	return m
}

func pres(seq value.Seq) []int {
	out := make([]int, len(seq))
	for i, item := range seq {
		out[i] = item.(*executor.MockNode).Pre
	}
	return out
}

func seqType(t value.Type, occ value.Occ) *value.SeqType {
	st := value.NewSeqType(t, occ)
	return &st
}
