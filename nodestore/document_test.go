package nodestore_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/nodestore"
	"github.com/wkalt/treeq/value"
)

const storeJSON = `{"store": {
	"book": [{"title": "A", "price": 3}, {"title": "B", "price": 12.5}],
	"@id": "7",
	"open": true,
	"owner": null
}}`

func parse(t *testing.T, name string, id uint64, data string) *nodestore.Document {
	t.Helper()
	doc, err := nodestore.Parse(name, id, strings.NewReader(data))
	require.NoError(t, err)
	return doc
}

func node(t *testing.T, doc *nodestore.Document, pre int) *nodestore.Node {
	t.Helper()
	n, err := doc.NodeAt(pre)
	require.NoError(t, err)
	return n.(*nodestore.Node)
}

func refs(t *testing.T, idx index.Index, token index.RangeToken) []int {
	t.Helper()
	ctx := context.Background()
	it, err := idx.RangeIter(ctx, token)
	require.NoError(t, err)
	out := []int{}
	for {
		ref, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, ref)
	}
}

func TestParse(t *testing.T) {
	doc := parse(t, "store.json", 1, storeJSON)
	require.Equal(t, "store.json", doc.Name())
	require.Equal(t, 16, doc.Size())

	cases := []struct {
		assertion string
		pre       int
		kind      value.Type
		name      string
		value     string
	}{
		{"document", 0, value.TypeDocument, "", "A3B12.5true"},
		{"root element", 1, value.TypeElement, "store", "A3B12.5true"},
		{"attributes come first", 2, value.TypeAttribute, "id", "7"},
		{"array members repeat the element", 8, value.TypeElement, "book", "B12.5"},
		{"numbers keep their literal", 12, value.TypeText, "", "12.5"},
		{"booleans", 14, value.TypeText, "", "true"},
		{"null has no content", 15, value.TypeElement, "owner", ""},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			n := node(t, doc, c.pre)
			require.Equal(t, c.kind, n.Type())
			require.Equal(t, c.name, n.Name())
			require.Equal(t, c.value, n.StringValue())
		})
	}

	t.Run("navigation", func(t *testing.T) {
		store := node(t, doc, 1)
		pres := []int{}
		for _, c := range store.Children() {
			pres = append(pres, c.Pre())
		}
		require.Equal(t, []int{2, 3, 8, 13, 15}, pres)
		require.Equal(t, 4, node(t, doc, 5).Parent().Pre())
		require.Nil(t, node(t, doc, 0).Parent())
	})
	t.Run("serialization", func(t *testing.T) {
		require.Equal(t,
			`<store id="7"><book><title>A</title><price>3</price></book>`+
				`<book><title>B</title><price>12.5</price></book><open>true</open><owner/></store>`,
			node(t, doc, 1).String())
		require.Equal(t, `id="7"`, node(t, doc, 2).String())
	})
	t.Run("out of range", func(t *testing.T) {
		_, err := doc.NodeAt(16)
		require.ErrorIs(t, err, nodestore.ErrNodeNotFound)
	})
}

func TestParseTopLevelValues(t *testing.T) {
	doc := parse(t, "list", 1, `[1, [2], "<x>"]`)
	require.Equal(t, `<item>1</item><item><item>2</item></item><item>&lt;x&gt;</item>`, node(t, doc, 0).String())

	doc = parse(t, "scalar", 1, `42`)
	require.Equal(t, 2, doc.Size())
	require.Equal(t, "42", node(t, doc, 0).StringValue())
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
	}{
		{"empty input", ""},
		{"malformed", `{"a": }`},
		{"trailing data", `{} {}`},
		{"attribute with an object value", `{"a": {"@b": {}}}`},
		{"empty key", `{"": 1}`},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := nodestore.Parse("bad", 1, strings.NewReader(c.input))
			require.ErrorIs(t, err, nodestore.InvalidDocumentError{})
		})
	}
}

func TestDocumentOrder(t *testing.T) {
	a := parse(t, "a", 1, storeJSON)
	b := parse(t, "b", 2, storeJSON)
	require.Negative(t, node(t, a, 3).Diff(node(t, a, 4)))
	require.Zero(t, node(t, a, 3).Diff(node(t, a, 3)))
	require.Positive(t, node(t, a, 5).Diff(node(t, a, 1)))
	require.Negative(t, node(t, a, 15).Diff(node(t, b, 0)))
	require.Positive(t, node(t, b, 0).Diff(node(t, a, 15)))
}

func TestDocumentIndex(t *testing.T) {
	doc := parse(t, "store.json", 1, storeJSON)
	require.Equal(t, []int{7, 12}, refs(t, doc.Index(), index.RangeToken{Kind: index.Text, Min: 0, Max: 100}))
	require.Equal(t, []int{7}, refs(t, doc.Index(), index.RangeToken{Kind: index.Text, Min: 3, Max: 12}))
	require.Equal(t, []int{2}, refs(t, doc.Index(), index.RangeToken{Kind: index.Attribute, Min: 7, Max: 7}))

	stats, ok := doc.Stats(index.Text)
	require.True(t, ok)
	require.Equal(t, 2, stats.Count)
	require.Equal(t, 3.0, stats.Min)
	require.Equal(t, 12.5, stats.Max)

	entries := 0
	require.NoError(t, doc.Entries(func(index.Kind, int, float64) error {
		entries++
		return nil
	}))
	require.Equal(t, 3, entries)

	empty := parse(t, "empty", 2, `{"a": "x"}`)
	stats, ok = empty.Stats(index.Attribute)
	require.True(t, ok)
	require.Zero(t, stats.Count)
}

func TestStatistics(t *testing.T) {
	a := parse(t, "a", 1, `{"v": [1, 5]}`).Statistics()
	b := parse(t, "b", 2, `{"v": [-2, "NaN", "Inf"], "@w": "4"}`).Statistics()
	a.Add(b)
	require.Equal(t, 2, a.Documents)
	text := a.NumStats[index.Text]
	require.Equal(t, 3, text.Count)
	require.Equal(t, -2.0, text.Min)
	require.Equal(t, 5.0, text.Max)
	require.Equal(t, 4.0, text.Sum)
	require.Equal(t, 1, a.NumStats[index.Attribute].Count)
	require.Equal(t, "(documents=2 text=[count=3 min=-2 max=5 mean=1.3333333333333333] attribute=[count=1 min=4 max=4 mean=4])", a.String())
}
