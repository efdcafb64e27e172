package engine_test

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/engine"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/nodestore"
	"github.com/wkalt/treeq/storage"
	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/util/testutils"
	"github.com/wkalt/treeq/value"
)

func newNodestore(t *testing.T) *nodestore.Nodestore {
	t.Helper()
	ns := nodestore.New(storage.NewMemStore(), util.NewLRU[string, *nodestore.Document](10))
	require.NoError(t, ns.Put(context.Background(), "docs/a.json", []byte(`{"v": [1, 2, 3]}`)))
	return ns
}

func TestEval(t *testing.T) {
	ctx := context.Background()
	ns := newNodestore(t)
	cases := []struct {
		assertion string
		opts      []engine.Option
		query     string
		expected  value.Seq
	}{
		{"constant", nil, "1 + 1", testutils.Ints(2)},
		{
			"external variable",
			[]engine.Option{engine.WithVariable("x", value.Seq{value.Int(3)})},
			"$x * 2",
			value.Seq{value.Int(6)},
		},
		{
			"context item",
			[]engine.Option{engine.WithContextItem(value.Str("a"))},
			". = \"a\"",
			value.Seq{value.Bool(true)},
		},
		{
			"collation",
			[]engine.Option{engine.WithCollation("http://www.w3.org/2013/collation/UCA?lang=en&strength=primary")},
			`"A" = "a"`,
			value.Seq{value.Bool(true)},
		},
		{
			"range access",
			[]engine.Option{engine.WithResolver(ns)},
			`count(db:text-range("docs/a.json", 2, 3))`,
			testutils.Ints(2),
		},
		{
			"comparison against indexed nodes",
			[]engine.Option{engine.WithResolver(ns)},
			`db:text-range("docs/a.json", 2, 3) = 3`,
			value.Seq{value.Bool(true)},
		},
		{
			"except over a data source",
			[]engine.Option{engine.WithResolver(ns)},
			`count(db:open("docs/a.json") except db:text-range("docs/a.json", 1, 3))`,
			value.Seq{value.Int(4)},
		},
		{
			"inline limit disables inlining without changing results",
			[]engine.Option{engine.WithInlineLimit(0)},
			"let $f := function($a) { $a * $a } return $f(4)",
			value.Seq{value.Int(16)},
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			e, err := engine.New(c.opts...)
			require.NoError(t, err)
			seq, err := e.Eval(ctx, c.query)
			require.NoError(t, err)
			require.Equal(t, c.expected, seq)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New()
	require.NoError(t, err)

	_, err = e.Eval(ctx, "1 +")
	require.ErrorContains(t, err, "failed to parse query")

	_, err = e.Eval(ctx, "$undeclared")
	require.ErrorIs(t, err, executor.UndefinedError{})

	_, err = e.Eval(ctx, `db:open("docs/a.json")`)
	require.ErrorIs(t, err, executor.UndefinedError{})

	_, err = engine.New(engine.WithCollation("http://example.com/collation"))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	ctx := util.WithContext(context.Background(), "query")
	e, err := engine.New(engine.WithResolver(newNodestore(t)))
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	n, err := e.Run(ctx, buf, `db:text-range("docs/a.json", 2, 3)`)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "2\n3\n", buf.String())

	exec := util.FromContext(ctx)
	require.Len(t, exec.Children, 2)
	require.Equal(t, "compile", exec.Children[0].Name)
	require.Equal(t, "evaluate", exec.Children[1].Name)
	require.Equal(t, 2.0, exec.Value("items_out"))
	require.Equal(t, 2.0, exec.Value("index_hits"))
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New()
	require.NoError(t, err)
	q, err := e.Compile(ctx, "1 + 2")
	require.NoError(t, err)
	require.NotEmpty(t, q.ID)
	require.NotEmpty(t, q.Diagnostics())
	require.IsType(t, &executor.Const{}, q.Expr())

	out, err := e.Explain(ctx, "1 + 2")
	require.NoError(t, err)
	require.Equal(t, "3 type: xs:integer", testutils.StripSpace(strings.SplitN(out, "--", 2)[0]))
	require.Contains(t, out, "-- pre-evaluate")
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(engine.WithSeed(7))
	require.NoError(t, err)
	a, err := e.Eval(ctx, "random()")
	require.NoError(t, err)
	b, err := e.Eval(ctx, "random()")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestStreamStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New()
	require.NoError(t, err)
	q, err := e.Compile(ctx, "(1, 2, 3)")
	require.NoError(t, err)
	n, err := e.Stream(ctx, q, func(value.Item) error {
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, n)
}

func TestSQLIndexSingleConnection(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	sqlidx, err := index.NewSQLIndex(db)
	require.NoError(t, err)
	ns := nodestore.New(
		storage.NewMemStore(),
		util.NewLRU[string, *nodestore.Document](10),
		nodestore.WithSQLIndex(sqlidx),
	)
	require.NoError(t, ns.Put(context.Background(), "docs/a.json", []byte(`{"v": [1, 2, 3]}`)))
	e, err := engine.New(engine.WithResolver(ns))
	require.NoError(t, err)

	cases := []struct {
		assertion string
		query     string
		expected  value.Seq
	}{
		{"early exit comparison", `db:text-range("docs/a.json", 1, 6) = 1`, value.Seq{value.Bool(true)}},
		{"lookup after early exit", `count(db:text-range("docs/a.json", 1, 6))`, testutils.Ints(3)},
		{"two lookups in a comparison", `db:text-range("docs/a.json", 1, 3) = db:text-range("docs/a.json", 2, 2)`, value.Seq{value.Bool(true)}},
		{"two lookups in except", `count(db:text-range("docs/a.json", 1, 6) except db:text-range("docs/a.json", 3, 3))`, testutils.Ints(2)},
		{"subsequence limit", `count(subsequence(db:text-range("docs/a.json", 1, 6), 1, 1))`, testutils.Ints(1)},
		{"lookup after limit", `count(db:text-range("docs/a.json", 2, 3))`, testutils.Ints(2)},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			actual, err := e.Eval(ctx, c.query)
			require.NoError(t, err)
			require.Equal(t, c.expected, actual)
		})
	}
}
