package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/plan"
	"github.com/wkalt/treeq/ql"
	"github.com/wkalt/treeq/util/testutils"
	"github.com/wkalt/treeq/value"
)

func planQuery(t *testing.T, p *plan.Planner, query string) (executor.Expr, error) {
	t.Helper()
	ast, err := ql.NewParser().ParseString("", query)
	require.NoError(t, err)
	return p.Plan(ast)
}

func run(t *testing.T, query string) value.Seq {
	t.Helper()
	ctx := context.Background()
	cc := executor.NewCompileContext()
	e, err := planQuery(t, plan.New(cc), query)
	require.NoError(t, err)
	compiled, err := e.Compile(ctx, cc)
	require.NoError(t, err)
	seq, err := executor.Eval(ctx, executor.NewQueryContext(), compiled)
	require.NoError(t, err)
	return seq
}

func TestPlan(t *testing.T) {
	cases := []struct {
		assertion string
		query     string
		expected  value.Seq
	}{
		{"arithmetic", "1 + 2 * 3", value.Seq{value.Int(7)}},
		{"sequence", "1, 2, 3", testutils.Ints(1, 2, 3)},
		{"empty sequence", "()", value.Seq{}},
		{"general comparison", "(1, 2) = (2, 3)", value.Seq{value.Bool(true)}},
		{"mixed comparison", "(1, 2) != 1", value.Seq{value.Bool(true)}},
		{"let binding", "let $x := 2 return $x * 3", value.Seq{value.Int(6)}},
		{"chained let", "let $x := 2, $y := $x + 1 return $x * $y", value.Seq{value.Int(6)}},
		{"shadowing", "let $x := 1 return let $x := $x + 1 return $x", value.Seq{value.Int(2)}},
		{"typed binding", "let $x as xs:integer := 4 return $x", value.Seq{value.Int(4)}},
		{"instance of", "1 instance of xs:integer", value.Seq{value.Bool(true)}},
		{"instance of occurrence", "(1, 2) instance of xs:integer?", value.Seq{value.Bool(false)}},
		{"inline function call", "let $f := function($a) { $a + 1 } return $f(2)", value.Seq{value.Int(3)}},
		{"captured variable", "let $y := 10 return function($a) { $a + $y }(1)", value.Seq{value.Int(11)}},
		{
			"capture through an intermediate function",
			"let $y := 10 let $f := function() { function($a) { $a + $y } } return $f()(1)",
			value.Seq{value.Int(11)},
		},
		{"builtin call", "count((1, 2, 3))", value.Seq{value.Int(3)}},
		{"strings", `"a" < "b"`, value.Seq{value.Bool(true)}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, run(t, c.query))
		})
	}
}

func TestPlanErrors(t *testing.T) {
	cases := []struct {
		assertion string
		query     string
	}{
		{"unknown variable", "$z"},
		{"variable out of scope", "let $x := 1 return $x, $x"},
		{"parameter out of scope", "function($a) { $a }, $a"},
		{"unknown type", "1 instance of xs:bogus"},
		{"unknown parameter type", "function($a as xs:bogus) { $a }"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := planQuery(t, plan.New(executor.NewCompileContext()), c.query)
			require.ErrorIs(t, err, executor.UndefinedError{})
		})
	}

	t.Run("unknown function", func(t *testing.T) {
		_, err := planQuery(t, plan.New(executor.NewCompileContext()), "frobnicate(1)")
		require.ErrorIs(t, err, executor.UndefinedError{})
	})
}

func TestCaptures(t *testing.T) {
	cc := executor.NewCompileContext()
	e, err := planQuery(t, plan.New(cc), "let $y := 1, $z := 2 return function() { $y + $y + $z }")
	require.NoError(t, err)
	flwor := testutils.Must[*executor.Flwor](t, e)
	closure := testutils.Must[*executor.Closure](t, flwor.Return())
	captures := closure.Captures()
	require.Len(t, captures, 2)
	require.Equal(t, "y", captures[0].Var.Name)
	require.Equal(t, "z", captures[1].Var.Name)
	require.Equal(t, "$y", captures[0].Expr.String())
}

func TestDeclare(t *testing.T) {
	ctx := context.Background()
	cc := executor.NewCompileContext()
	p := plan.New(cc)
	st := value.NewSeqType(value.TypeInteger, value.ZeroOrMore)
	v := p.Declare("input", &st)
	e, err := planQuery(t, p, "count($input)")
	require.NoError(t, err)
	compiled, err := e.Compile(ctx, cc)
	require.NoError(t, err)
	qc := executor.NewQueryContext()
	qc.Bind(v, value.Seq{value.Int(1), value.Int(2)})
	seq, err := executor.Eval(ctx, qc, compiled)
	require.NoError(t, err)
	require.Equal(t, value.Seq{value.Int(2)}, seq)
}

func TestCollation(t *testing.T) {
	ctx := context.Background()
	coll, err := value.NewCollation("http://www.w3.org/2013/collation/UCA?lang=en&strength=primary")
	require.NoError(t, err)
	cc := executor.NewCompileContext()
	e, err := planQuery(t, plan.New(cc, plan.WithCollation(coll)), `"ABC" = "abc"`)
	require.NoError(t, err)
	compiled, err := e.Compile(ctx, cc)
	require.NoError(t, err)
	seq, err := executor.Eval(ctx, executor.NewQueryContext(), compiled)
	require.NoError(t, err)
	require.Equal(t, value.Seq{value.Bool(true)}, seq)
}
