package ql_test

import (
	"testing"

	"github.com/alecthomas/participle/v2"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/ql"
)

func TestParse(t *testing.T) {
	parser := ql.NewParser()
	cases := []struct {
		assertion string
		input     string
	}{
		{"integer", "10"},
		{"float", "10.5"},
		{"scientific notation", "1.0e6"},
		{"string", `"a\"b"`},
		{"empty sequence", "()"},
		{"sequence", "(1, 2, 3)"},
		{"comment", "(: one :) 1"},
		{"comparison", "(1, 2) = (2, 3)"},
		{"arithmetic", "1 + 2 * 3 - 4"},
		{"let", "let $x := 1, $y as xs:integer := 2 return $x + $y"},
		{"chained let", "let $x := 1 let $y := $x return $y"},
		{"inline function", "function($a as xs:integer?, $b) as item()* { $a, $b }"},
		{"updating function", "%updating function() { () }"},
		{"dynamic call", "let $f := function($a) { $a } return $f(1)(2)"},
		{"builtin call", `db:text-range("doc", 1, 5)`},
		{"hyphenated builtin", "index-of((1, 2), 2)"},
		{"set operations", `db:open("a") except db:open("b") | db:open("c")`},
		{"instance of", "1 instance of xs:integer+"},
		{"empty sequence type", "() instance of empty-sequence()"},
		{"function type", "function() {1} instance of function(*)"},
		{"context item", ". = 1"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := parser.ParseString("", c.input)
			require.NoError(t, err)
		})
	}
}

func TestParseErrors(t *testing.T) {
	parser := ql.NewParser()
	cases := []struct {
		assertion string
		input     string
	}{
		{"unterminated sequence", "(1, 2"},
		{"let without return", "let $x := 1"},
		{"missing function body", "function($a) as xs:integer"},
		{"trailing tokens", "1 2"},
		{"bad sequence type", "1 instance of"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := parser.ParseString("", c.input)
			require.Error(t, err)
		})
	}
}

func TestParseStructure(t *testing.T) {
	parser := ql.NewParser()
	t.Run("let bindings", func(t *testing.T) {
		ast, err := parser.ParseString("", "let $x as xs:double? := 1 return $x")
		require.NoError(t, err)
		let := ast.Body.Items[0].Let
		require.NotNil(t, let)
		require.Len(t, let.Bindings, 1)
		require.Equal(t, "$x", let.Bindings[0].Var)
		require.Equal(t, "xs:double", let.Bindings[0].Type.Item.Atomic)
		require.Equal(t, "?", let.Bindings[0].Type.Occ)
	})
	t.Run("positions", func(t *testing.T) {
		ast, err := parser.ParseString("", "1,\n  $y")
		require.NoError(t, err)
		require.Len(t, ast.Body.Items, 2)
		primary := ast.Body.Items[1].Comparison.Left.Left.Left.Left.Left.Expr.Primary
		require.Equal(t, "$y", *primary.Var)
		require.Equal(t, 2, primary.Pos.Line)
		require.Equal(t, 3, primary.Pos.Column)
	})
	t.Run("value", func(t *testing.T) {
		parser, err := participle.Build[ql.Primary](ql.Options...)
		require.NoError(t, err)
		ast, err := parser.ParseString("", "3.5")
		require.NoError(t, err)
		require.InEpsilon(t, 3.5, *ast.Float, 1e-9)
		ast, err = parser.ParseString("", `"x"`)
		require.NoError(t, err)
		require.Equal(t, "x", *ast.String)
	})
}
