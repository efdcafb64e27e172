package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/value"
)

func call(t *testing.T, name string, args ...executor.Expr) *executor.Call {
	t.Helper()
	c, err := executor.NewCall(pos, name, args...)
	require.NoError(t, err)
	return c
}

func TestBuiltins(t *testing.T) {
	uca := "http://www.w3.org/2013/collation/UCA?lang=en&strength=primary"
	dt, err := value.Cast(value.Untyped("2024-01-02T03:04:05Z"), value.TypeDateTime)
	require.NoError(t, err)
	cases := []struct {
		assertion string
		name      string
		args      []executor.Expr
		expected  value.Seq
	}{
		{"true", "true", nil, value.Seq{value.Bool(true)}},
		{"false", "false", nil, value.Seq{value.Bool(false)}},
		{"count", "count", []executor.Expr{executor.NewMockExpr(ints(1, 2, 3)...)}, ints(3)},
		{"count of nothing", "count", []executor.Expr{executor.NewMockExpr()}, ints(0)},
		{"empty", "empty", []executor.Expr{executor.NewMockExpr()}, value.Seq{value.Bool(true)}},
		{"exists", "exists", []executor.Expr{executor.NewMockExpr(ints(1)...)}, value.Seq{value.Bool(true)}},
		{"not", "not", []executor.Expr{executor.NewMockExpr(ints(0)...)}, value.Seq{value.Bool(true)}},
		{
			"index-of",
			"index-of",
			[]executor.Expr{executor.NewMockExpr(ints(1, 2, 1)...), konst(value.Int(1))},
			ints(1, 3),
		},
		{
			"index-of skips incomparable items",
			"index-of",
			[]executor.Expr{executor.NewMockExpr(value.Int(1), value.Str("1")), konst(value.Int(1))},
			ints(1),
		},
		{
			"index-of with collation",
			"index-of",
			[]executor.Expr{
				executor.NewMockExpr(value.Str("A"), value.Str("b"), value.Str("a")),
				konst(value.Str("a")),
				konst(value.Str(uca)),
			},
			ints(1, 3),
		},
		{
			"subsequence",
			"subsequence",
			[]executor.Expr{executor.NewMockExpr(ints(1, 2, 3, 4, 5)...), konst(value.Int(2)), konst(value.Int(2))},
			ints(2, 3),
		},
		{
			"subsequence without length",
			"subsequence",
			[]executor.Expr{executor.NewMockExpr(ints(1, 2, 3)...), konst(value.Int(2))},
			ints(2, 3),
		},
		{
			"subsequence of length zero",
			"subsequence",
			[]executor.Expr{executor.NewMockExpr(ints(1, 2, 3)...), konst(value.Int(1)), konst(value.Int(0))},
			nil,
		},
		{
			"subsequence past the end",
			"subsequence",
			[]executor.Expr{executor.NewMockExpr(ints(1, 2, 3)...), konst(value.Int(5))},
			nil,
		},
		{"xs:dateTime", "xs:dateTime", []executor.Expr{konst(value.Str("2024-01-02T03:04:05Z"))}, value.Seq{dt}},
		{"xs:dateTime of nothing", "xs:dateTime", []executor.Expr{executor.NewMockExpr()}, nil},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			e := compile(t, executor.NewCompileContext(), call(t, c.name, c.args...))
			seq := eval(t, executor.NewQueryContext(), e)
			if len(c.expected) == 0 {
				require.Empty(t, seq)
				return
			}
			require.Equal(t, c.expected, seq)
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	ctx := context.Background()
	t.Run("unknown function", func(t *testing.T) {
		_, err := executor.NewCall(pos, "frobnicate", konst(value.Int(1)))
		require.ErrorIs(t, err, executor.UndefinedError{})
		require.Contains(t, err.Error(), "frobnicate#1")
	})
	t.Run("wrong number of arguments", func(t *testing.T) {
		_, err := executor.NewCall(pos, "count")
		require.ErrorIs(t, err, executor.ArityError{})
		_, err = executor.NewCall(pos, "index-of", konst())
		require.ErrorIs(t, err, executor.ArityError{})
		require.Contains(t, err.Error(), "2 to 3 arguments")
	})
	t.Run("subsequence start out of bounds", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "subsequence", executor.NewMockExpr(ints(1)...), konst(value.Int(0))))
		_, err := executor.Eval(ctx, executor.NewQueryContext(), e)
		require.ErrorIs(t, err, executor.ArityError{})
		require.Contains(t, err.Error(), "start 0 out of bounds")
	})
	t.Run("subsequence length out of bounds is raised at compile time", func(t *testing.T) {
		c := call(t, "subsequence", konst(ints(1, 2)...), konst(value.Int(1)), konst(value.Int(-1)))
		_, err := c.Compile(ctx, executor.NewCompileContext())
		require.ErrorIs(t, err, executor.ArityError{})
		require.Contains(t, err.Error(), "length -1 out of bounds")
	})
	t.Run("error with defaults", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "error"))
		_, err := executor.Eval(ctx, executor.NewQueryContext(), e)
		var ue executor.UserError
		require.ErrorAs(t, err, &ue)
		require.Equal(t, "FOER0000", ue.Code)
	})
	t.Run("error with code and message", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "error",
			konst(value.Str("E1")), konst(value.Str("boom")), konst(ints(7)...)))
		_, ok := e.(*executor.Call)
		require.True(t, ok, "error calls are not evaluated at compile time")
		_, err := executor.Eval(ctx, executor.NewQueryContext(), e)
		var ue executor.UserError
		require.ErrorAs(t, err, &ue)
		require.Equal(t, executor.UserError{Code: "E1", Message: "boom", Value: ints(7)}, ue)
	})
	t.Run("invalid dateTime", func(t *testing.T) {
		c := call(t, "xs:dateTime", executor.NewMockExpr(value.Str("yesterday")))
		e := compile(t, executor.NewCompileContext(), c)
		_, err := executor.Eval(ctx, executor.NewQueryContext(), e)
		require.Error(t, err)
	})
	t.Run("unknown collation", func(t *testing.T) {
		c := call(t, "index-of", executor.NewMockExpr(value.Str("a")), konst(value.Str("a")), konst(value.Str("http://example.com")))
		e := compile(t, executor.NewCompileContext(), c)
		_, err := executor.Eval(ctx, executor.NewQueryContext(), e)
		require.Error(t, err)
	})
}

func TestBuiltinCompilation(t *testing.T) {
	t.Run("constant arguments are pre-evaluated", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "count", konst(ints(1, 2)...)))
		k, ok := e.(*executor.Const)
		require.True(t, ok)
		require.Equal(t, ints(2), k.Seq())
	})
	t.Run("index-of on empty input is removed", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "index-of", typed(value.TypeInteger, value.Zero), executor.NewMockExpr(ints(1)...)))
		k, ok := e.(*executor.Const)
		require.True(t, ok)
		require.Empty(t, k.Seq())
	})
	t.Run("random is never pre-evaluated", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "random"))
		require.IsType(t, &executor.Call{}, e)
		require.True(t, e.Has(executor.FlagNDT))
		a := eval(t, executor.NewQueryContext(executor.WithSeed(7)), e)
		b := eval(t, executor.NewQueryContext(executor.WithSeed(7)), e)
		require.Equal(t, a, b)
	})
	t.Run("builtins are listed in order", func(t *testing.T) {
		names := executor.Builtins()
		require.Contains(t, names, "db:text-range")
		require.IsIncreasing(t, names)
	})
}

func TestDataSourceBuiltins(t *testing.T) {
	ctx := context.Background()
	source := textSource(6, 1, 3, 4)
	qc := executor.NewQueryContext(executor.WithResolver(executor.MockResolver{"doc": source}))

	t.Run("constant bounds become a range access", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "db:text-range",
			konst(value.Str("doc")), konst(value.Int(2)), konst(value.Dbl(5))))
		access, ok := e.(*executor.RangeAccess)
		require.True(t, ok)
		require.Equal(t, index.RangeToken{Kind: index.Text, Min: 2, Max: 5}, access.Token())
		require.Equal(t, []int{3, 4}, pres(eval(t, qc, e)))
	})
	t.Run("runtime bounds", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "db:text-range",
			konst(value.Str("doc")), executor.NewMockExpr(value.Int(0)), konst(value.Int(3))))
		require.IsType(t, &executor.Call{}, e)
		require.Equal(t, []int{1, 3}, pres(eval(t, qc, e)))
	})
	t.Run("inverted constant bounds", func(t *testing.T) {
		c := call(t, "db:attribute-range", konst(value.Str("doc")), konst(value.Int(5)), konst(value.Int(2)))
		_, err := c.Compile(ctx, executor.NewCompileContext())
		require.ErrorIs(t, err, index.ErrInvalidRange)
	})
	t.Run("open", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "db:open", konst(value.Str("doc"))))
		require.IsType(t, &executor.Call{}, e)
		require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pres(eval(t, qc, e)))
	})
	t.Run("open an unknown source", func(t *testing.T) {
		e := compile(t, executor.NewCompileContext(), call(t, "db:open", konst(value.Str("nope"))))
		_, err := executor.Eval(ctx, qc, e)
		require.ErrorIs(t, err, executor.UndefinedError{})
	})
}
