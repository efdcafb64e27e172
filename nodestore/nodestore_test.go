package nodestore_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/nodestore"
	"github.com/wkalt/treeq/storage"
	"github.com/wkalt/treeq/util"
)

func newNodestore(t *testing.T, opts ...nodestore.Option) (*nodestore.Nodestore, storage.Provider) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemStore()
	ns := nodestore.New(store, util.NewLRU[string, *nodestore.Document](2), opts...)
	docs := map[string]string{
		"docs/a.json":        `{"v": [1, 2, 3]}`,
		"docs/b.json":        `{"v": [10, 20]}`,
		"docs/nested/c.json": `{"@n": "5"}`,
		"other.json":         `{}`,
	}
	for name, data := range docs {
		require.NoError(t, ns.Put(ctx, name, []byte(data)))
	}
	return ns, store
}

func TestNodestoreGet(t *testing.T) {
	ctx := util.WithContext(context.Background(), "test")
	ns, _ := newNodestore(t)

	a, err := ns.Get(ctx, "docs/a.json")
	require.NoError(t, err)
	require.Equal(t, 7, a.Size())
	again, err := ns.Get(ctx, "docs/a.json")
	require.NoError(t, err)
	require.Same(t, a, again)

	b, err := ns.Get(ctx, "docs/b.json")
	require.NoError(t, err)
	require.Greater(t, b.ID(), a.ID())

	stats := util.FromContext(ctx)
	require.Equal(t, 2.0, stats.Value("documents_loaded"))
	require.Equal(t, 1.0, stats.Value("document_cache_hits"))

	_, err = ns.Get(ctx, "missing.json")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestNodestorePut(t *testing.T) {
	ctx := context.Background()
	ns, store := newNodestore(t)
	a, err := ns.Get(ctx, "docs/a.json")
	require.NoError(t, err)

	require.NoError(t, ns.Put(ctx, "docs/a.json", []byte(`{"v": 1}`)))
	replaced, err := ns.Get(ctx, "docs/a.json")
	require.NoError(t, err)
	require.NotSame(t, a, replaced)
	require.Equal(t, 3, replaced.Size())

	err = ns.Put(ctx, "bad.json", []byte(`{`))
	require.ErrorIs(t, err, nodestore.InvalidDocumentError{})
	_, err = store.Get(ctx, "bad.json")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)

	require.NoError(t, ns.Delete(ctx, "docs/a.json"))
	_, err = ns.Get(ctx, "docs/a.json")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestNodestoreResolve(t *testing.T) {
	ctx := context.Background()
	ns, _ := newNodestore(t)
	ds, err := ns.Resolve(ctx, "docs/b.json")
	require.NoError(t, err)
	require.Equal(t, "docs/b.json", ds.Name())
	_, ok := ds.(executor.StatsSource)
	require.True(t, ok)

	_, err = ns.Resolve(ctx, "nope.json")
	require.ErrorIs(t, err, executor.UndefinedError{})
}

func TestNodestoreMatch(t *testing.T) {
	ctx := context.Background()
	ns, _ := newNodestore(t)
	cases := []struct {
		assertion string
		pattern   string
		expected  []string
	}{
		{"single level", "docs/*.json", []string{"docs/a.json", "docs/b.json"}},
		{"any depth", "docs/**/*.json", []string{"docs/a.json", "docs/b.json", "docs/nested/c.json"}},
		{"top level", "*.json", []string{"other.json"}},
		{"no match", "logs/*.json", []string{}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			names, err := ns.Match(ctx, c.pattern)
			require.NoError(t, err)
			require.Equal(t, c.expected, names)
		})
	}
	_, err := ns.Match(ctx, "docs/[")
	require.Error(t, err)
}

func TestNodestorePrefetch(t *testing.T) {
	ctx := util.WithContext(context.Background(), "test")
	ns, _ := newNodestore(t, nodestore.WithPrefetchConcurrency(2))
	names := []string{"docs/a.json", "docs/b.json"}
	require.NoError(t, ns.Prefetch(ctx, names))
	require.Equal(t, 2.0, util.FromContext(ctx).Value("documents_loaded"))
	for _, name := range names {
		_, err := ns.Get(ctx, name)
		require.NoError(t, err)
	}
	require.Equal(t, 2.0, util.FromContext(ctx).Value("document_cache_hits"))

	err := ns.Prefetch(ctx, []string{"docs/a.json", "missing.json"})
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestNodestoreSummary(t *testing.T) {
	ctx := context.Background()
	ns, _ := newNodestore(t)
	summary, err := ns.Summary(ctx, []string{"docs/a.json", "docs/b.json", "docs/nested/c.json"})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Documents)
	require.Equal(t, 5, summary.NumStats[index.Text].Count)
	require.Equal(t, 20.0, summary.NumStats[index.Text].Max)
	require.Equal(t, 5.0, summary.NumStats[index.Attribute].Min)
}

func TestNodestoreSQLIndex(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	sqlidx, err := index.NewSQLIndex(db)
	require.NoError(t, err)

	ns, _ := newNodestore(t, nodestore.WithSQLIndex(sqlidx))
	doc, err := ns.Get(ctx, "docs/b.json")
	require.NoError(t, err)
	require.Equal(t, []int{4}, refs(t, doc.Index(), index.RangeToken{Kind: index.Text, Min: 15, Max: 25}))
	require.Equal(t, []int{4}, refs(t, sqlidx.Source("docs/b.json"), index.RangeToken{Kind: index.Text, Min: 15, Max: 25}))

	require.NoError(t, ns.Delete(ctx, "docs/b.json"))
	require.Empty(t, refs(t, sqlidx.Source("docs/b.json"), index.RangeToken{Kind: index.Text, Min: 0, Max: 100}))
}
