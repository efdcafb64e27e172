package testutils_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/util/testutils"
	"github.com/wkalt/treeq/value"
)

func TestGetOpenPort(t *testing.T) {
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	require.Positive(t, port)
}

func TestFlatten(t *testing.T) {
	cases := []struct {
		assertion string
		input     [][]int
		expected  []int
	}{
		{"empty", [][]int{}, nil},
		{"single", [][]int{{1, 2}}, []int{1, 2}},
		{"several", [][]int{{1}, {}, {2, 3}}, []int{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, testutils.Flatten(c.input...))
		})
	}
}

func TestStripSpace(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
		expected  string
	}{
		{"no space", "abc", "abc"},
		{"runs of spaces", "a   b  c", "a b c"},
		{"line breaks", "let $x := 1\n  return $x\r\n", "let $x := 1 return $x"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, testutils.StripSpace(c.input))
		})
	}
}

func TestMust(t *testing.T) {
	var item value.Item = value.Int(3)
	require.Equal(t, value.Int(3), testutils.Must[value.Int](t, item))
}

func TestInts(t *testing.T) {
	require.Equal(t, value.Seq{value.Int(1), value.Int(2)}, testutils.Ints(1, 2))
	require.Equal(t, value.Seq{}, testutils.Ints())
}
