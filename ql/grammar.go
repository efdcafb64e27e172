package ql

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
This file contains a participle grammar for the treeq expression language, a
small XQuery subset: let bindings, inline functions and dynamic calls,
builtin calls, general comparisons, arithmetic, the union and except set
operators, instance of, and sequence constructors.

Precedence follows XQuery, from loosest to tightest: let, comparison,
additive, multiplicative, union, except, instance of, postfix calls.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	Options = []participle.Option{ // nolint:gochecknoglobals
		participle.Lexer(
			lexer.MustSimple([]lexer.SimpleRule{
				{Name: "comment", Pattern: `\(:(?:[^:]|:[^)])*:\)`},
				{Name: "whitespace", Pattern: `\s+`},
				{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
				{Name: "Float", Pattern: `\d+\.\d*(?:[eE][-+]?\d+)?|\.\d+(?:[eE][-+]?\d+)?|\d+[eE][-+]?\d+`},
				{Name: "Integer", Pattern: `\d+`},
				{Name: "Var", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_]*`},
				{Name: "Name", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*(?:-[a-zA-Z_][a-zA-Z0-9_]*)*(?::[a-zA-Z_][a-zA-Z0-9_]*(?:-[a-zA-Z_][a-zA-Z0-9_]*)*)?`},
				{Name: "Operators", Pattern: `:=|!=|<=|>=|[=<>(){},|+\-*?%.]`},
			}),
		),
		participle.Unquote("String"),
		participle.UseLookahead(4),
	}
)

// Query is a complete query.
type Query struct {
	Pos  lexer.Position
	Body *Expr `@@`
}

// Expr is a comma-separated sequence of expressions.
type Expr struct {
	Pos   lexer.Position
	Items []*ExprSingle `@@ ( "," @@ )*`
}

type ExprSingle struct {
	Let        *Let        `  @@`
	Comparison *Comparison `| @@`
}

// Let binds one or more variables for its return expression.
type Let struct {
	Pos      lexer.Position
	Bindings []*Binding  `"let" @@ ( ( "," "let"? | "let" ) @@ )*`
	Return   *ExprSingle `"return" @@`
}

type Binding struct {
	Pos  lexer.Position
	Var  string      `@Var`
	Type *SeqType    `( "as" @@ )?`
	Expr *ExprSingle `":=" @@`
}

type Comparison struct {
	Pos   lexer.Position
	Left  *Additive `@@`
	Op    string    `( @( "=" | "!=" | "<=" | ">=" | "<" | ">" )`
	Right *Additive `  @@ )?`
}

type Additive struct {
	Left *Multiplicative `@@`
	Rest []*AddOp        `@@*`
}

type AddOp struct {
	Pos   lexer.Position
	Op    string          `@( "+" | "-" )`
	Right *Multiplicative `@@`
}

type Multiplicative struct {
	Left *Union   `@@`
	Rest []*MulOp `@@*`
}

type MulOp struct {
	Pos   lexer.Position
	Op    string `@"*"`
	Right *Union `@@`
}

type Union struct {
	Pos  lexer.Position
	Left *Except   `@@`
	Rest []*Except `( ( "union" | "|" ) @@ )*`
}

type Except struct {
	Pos  lexer.Position
	Left *InstanceOf   `@@`
	Rest []*InstanceOf `( "except" @@ )*`
}

type InstanceOf struct {
	Pos  lexer.Position
	Expr *Postfix `@@`
	Type *SeqType `( "instance" "of" @@ )?`
}

// Postfix is a primary expression followed by dynamic calls.
type Postfix struct {
	Pos     lexer.Position
	Primary *Primary   `@@`
	Calls   []*ArgList `@@*`
}

type ArgList struct {
	Pos  lexer.Position
	Args []*ExprSingle `"(" ( @@ ( "," @@ )* )? ")"`
}

type Primary struct {
	Pos      lexer.Position
	Float    *float64        `  @Float`
	Integer  *int64          `| @Integer`
	String   *string         `| @String`
	Var      *string         `| @Var`
	Function *InlineFunction `| @@`
	Call     *Call           `| @@`
	Paren    *Paren          `| @@`
	Context  bool            `| @"."`
}

// Paren is a parenthesized expression. Empty parentheses are the empty
// sequence.
type Paren struct {
	Expr *Expr `"(" @@? ")"`
}

// Call is a call of a named builtin function.
type Call struct {
	Pos  lexer.Position
	Name string        `@Name`
	Args []*ExprSingle `"(" ( @@ ( "," @@ )* )? ")"`
}

// InlineFunction is a function literal.
type InlineFunction struct {
	Pos      lexer.Position
	Updating bool     `@( "%" "updating" )?`
	Params   []*Param `"function" "(" ( @@ ( "," @@ )* )? ")"`
	Return   *SeqType `( "as" @@ )?`
	Body     *Expr    `"{" @@ "}"`
}

type Param struct {
	Pos  lexer.Position
	Var  string   `@Var`
	Type *SeqType `( "as" @@ )?`
}

// SeqType is a sequence type.
type SeqType struct {
	Pos   lexer.Position
	Empty bool      `  @( "empty-sequence" "(" ")" )`
	Item  *ItemType `| ( @@`
	Occ   string    `    @( "?" | "*" | "+" )? )`
}

type ItemType struct {
	Kind     string `  @( "item" | "node" | "text" | "element" | "attribute" | "document-node" ) "(" ")"`
	Function bool   `| @( "function" "(" "*" ")" )`
	Atomic   string `| @Name`
}

// NewParser returns a new query parser.
func NewParser() *participle.Parser[Query] {
	return participle.MustBuild[Query](Options...)
}
