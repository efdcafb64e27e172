package executor_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/executor"
)

func TestUnion(t *testing.T) {
	cases := []struct {
		assertion string
		operands  [][]int
		expected  []int
	}{
		{"two operands", [][]int{{1, 3, 5}, {2, 4, 6}}, []int{1, 2, 3, 4, 5, 6}},
		{"three operands", [][]int{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"shared nodes appear once", [][]int{{1, 2, 3}, {2, 3, 4}}, []int{1, 2, 3, 4}},
		{"empty operand", [][]int{{}, {1, 2}}, []int{1, 2}},
		{"all empty", [][]int{{}, {}}, []int{}},
	}
	for _, c := range cases {
		for _, ordered := range []bool{true, false} {
			name := c.assertion + " streaming"
			if !ordered {
				name = c.assertion + " eager"
			}
			t.Run(name, func(t *testing.T) {
				operands := make([]executor.Expr, len(c.operands))
				for i, ps := range c.operands {
					m := nodes(ps...)
					m.Ordered = ordered
					operands[i] = m
				}
				cc := executor.NewCompileContext()
				e := compile(t, cc, executor.NewUnion(pos, operands...))
				require.Equal(t, c.expected, pres(eval(t, executor.NewQueryContext(), e)))
			})
		}
	}
}

func TestUnionUnorderedInput(t *testing.T) {
	cc := executor.NewCompileContext()
	e := compile(t, cc, executor.NewUnion(pos, nodes(5, 1, 5), nodes(3)))
	require.Equal(t, []int{1, 3, 5}, pres(eval(t, executor.NewQueryContext(), e)))
}
