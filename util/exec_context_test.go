package util_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/util"
)

func TestWithContext(t *testing.T) {
	ctx := context.Background()
	t.Run("inc context value", func(t *testing.T) {
		ctx := util.WithContext(ctx, "query")
		util.IncContextValue(ctx, "cmp_evaluations", 1)
		util.IncContextValue(ctx, "cmp_evaluations", 1)
		data, err := util.FromContext(ctx).JSON()
		require.NoError(t, err)
		require.JSONEq(t,
			`{"name":"query","values":{"cmp_evaluations":2},"data":{},"children":null}`,
			string(data),
		)
	})

	t.Run("set value and data", func(t *testing.T) {
		ctx := util.WithContext(ctx, "query")
		util.SetContextValue(ctx, "index_hits", 10)
		util.SetContextData(ctx, "id", "abc")
		data, err := util.FromContext(ctx).JSON()
		require.NoError(t, err)
		require.JSONEq(t,
			`{"name":"query","values":{"index_hits":10},"data":{"id":"abc"},"children":null}`,
			string(data),
		)
	})

	t.Run("values sum over children", func(t *testing.T) {
		pctx := util.WithContext(ctx, "query")
		util.IncContextValue(pctx, "except_excluded", 1)
		cctx, _ := util.WithChildContext(pctx, "evaluate")
		util.IncContextValue(cctx, "except_excluded", 2)
		require.Equal(t, 3.0, util.FromContext(pctx).Value("except_excluded"))
		require.Equal(t, 2.0, util.FromContext(cctx).Value("except_excluded"))
	})

	t.Run("missing context discards values", func(t *testing.T) {
		util.IncContextValue(ctx, "index_hits", 1)
		require.Equal(t, 0.0, util.FromContext(ctx).Value("index_hits"))
	})

	t.Run("print", func(t *testing.T) {
		pctx := util.WithContext(ctx, "query")
		util.SetContextData(pctx, "id", "q1")
		cctx, _ := util.WithChildContext(pctx, "compile")
		util.IncContextValue(cctx, "rewrites", 2)
		ectx, _ := util.WithChildContext(pctx, "evaluate")
		util.IncContextValue(ectx, "elapsed_ms", 1.5)
		expected := "Query [id=q1]\n" +
			"  Compile\n" +
			"    rewrites: 2\n" +
			"  Evaluate\n" +
			"    elapsed_ms: 1.500\n"
		require.Equal(t, expected, util.FromContext(pctx).Print())
	})
}
