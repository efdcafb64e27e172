package index_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/index"
)

func drain(t *testing.T, it index.Iterator) []int {
	t.Helper()
	ctx := context.Background()
	refs := []int{}
	for {
		ref, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return refs
}

func TestRangeToken(t *testing.T) {
	_, err := index.NewRangeToken(index.Text, 5, 2)
	require.ErrorIs(t, err, index.ErrInvalidRange)

	token, err := index.NewRangeToken(index.Attribute, 2, 5)
	require.NoError(t, err)
	require.True(t, token.Contains(2))
	require.True(t, token.Contains(5))
	require.False(t, token.Contains(5.5))
	require.Equal(t, "attribute[2, 5]", token.String())
}

func TestIndexes(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	sqlidx, err := index.NewSQLIndex(db)
	require.NoError(t, err)

	mem := index.NewMemIndex()
	entries := []struct {
		kind  index.Kind
		ref   int
		value float64
	}{
		{index.Text, 6, 6},
		{index.Text, 1, 1},
		{index.Text, 4, 4},
		{index.Text, 3, 3},
		{index.Text, 9, 3},
		{index.Attribute, 2, 4},
	}
	for _, e := range entries {
		mem.Add(e.kind, e.ref, e.value)
		require.NoError(t, sqlidx.Put(ctx, "doc", e.kind, e.ref, e.value))
	}

	cases := []struct {
		assertion string
		token     index.RangeToken
		expected  []int
	}{
		{"inner range", index.RangeToken{Kind: index.Text, Min: 2, Max: 5}, []int{3, 4, 9}},
		{"inclusive bounds", index.RangeToken{Kind: index.Text, Min: 1, Max: 1}, []int{1}},
		{"empty range", index.RangeToken{Kind: index.Text, Min: 7, Max: 8}, []int{}},
		{"attribute kind", index.RangeToken{Kind: index.Attribute, Min: 0, Max: 10}, []int{2}},
	}
	indexes := map[string]index.Index{
		"memory": mem,
		"sql":    sqlidx.Source("doc"),
	}
	for name, idx := range indexes {
		for _, c := range cases {
			t.Run(name+" "+c.assertion, func(t *testing.T) {
				it, err := idx.RangeIter(ctx, c.token)
				require.NoError(t, err)
				require.Equal(t, c.expected, drain(t, it))
			})
		}
	}

	t.Run("other sources are invisible", func(t *testing.T) {
		it, err := sqlidx.Source("other").RangeIter(ctx, index.RangeToken{Kind: index.Text, Min: 0, Max: 10})
		require.NoError(t, err)
		require.Empty(t, drain(t, it))
	})
}
