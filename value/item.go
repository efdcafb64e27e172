package value

import (
	"strconv"
	"strings"
	"time"
)

/*
Items are the unit of evaluation: an atomic value, a node supplied by the node
model, or a function item supplied by the executor. A sequence is an ordered
slice of items; sequences never nest.
*/

////////////////////////////////////////////////////////////////////////////////

// Item is a single atomic value, node or function item.
type Item interface {
	Type() Type
	String() string
}

// Node is a structured-data element with a total document order.
type Node interface {
	Item
	// Name returns the element or attribute name, empty for other kinds.
	Name() string
	// StringValue returns the concatenated text content.
	StringValue() string
	// Diff compares two nodes in document order, returning a negative
	// number, zero or a positive number.
	Diff(other Node) int
}

// FunctionItem is implemented by function items.
type FunctionItem interface {
	Item
	FuncType() *FuncType
}

// Seq is a sequence of items.
type Seq []Item

// String returns the sequence in surface syntax.
func (s Seq) String() string {
	if len(s) == 1 {
		return s[0].String()
	}
	parts := make([]string, len(s))
	for i, it := range s {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Int is an xs:integer.
type Int int64

func (Int) Type() Type { return TypeInteger }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Dbl is an xs:double.
type Dbl float64

func (Dbl) Type() Type { return TypeDouble }

func (d Dbl) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }

// Str is an xs:string.
type Str string

func (Str) Type() Type { return TypeString }

func (s Str) String() string { return strconv.Quote(string(s)) }

// Untyped is an xs:untypedAtomic, the atomized value of a node.
type Untyped string

func (Untyped) Type() Type { return TypeUntyped }

func (u Untyped) String() string { return strconv.Quote(string(u)) }

// Bool is an xs:boolean.
type Bool bool

func (Bool) Type() Type { return TypeBoolean }

func (b Bool) String() string {
	if b {
		return "true()"
	}
	return "false()"
}

// DateTime is an xs:dateTime.
type DateTime struct {
	time.Time
}

func (DateTime) Type() Type { return TypeDateTime }

func (d DateTime) String() string {
	return `xs:dateTime("` + d.Time.Format(time.RFC3339Nano) + `")`
}

// Atomize returns the atomic value of an item. Nodes atomize to their untyped
// string value; function items cannot be atomized.
func Atomize(it Item) (Item, error) {
	switch it := it.(type) {
	case Node:
		return Untyped(it.StringValue()), nil
	case FunctionItem:
		return nil, NewTypeError("function item %s cannot be atomized", it)
	default:
		return it, nil
	}
}

// EffectiveBoolean returns the effective boolean value of a sequence.
func EffectiveBoolean(seq Seq) (bool, error) {
	if len(seq) == 0 {
		return false, nil
	}
	if _, ok := seq[0].(Node); ok {
		return true, nil
	}
	if len(seq) > 1 {
		return false, NewTypeError("effective boolean value not defined for %s", seq)
	}
	switch it := seq[0].(type) {
	case Bool:
		return bool(it), nil
	case Int:
		return it != 0, nil
	case Dbl:
		return it != 0 && it == it, nil
	case Str:
		return it != "", nil
	case Untyped:
		return it != "", nil
	}
	return false, NewTypeError("effective boolean value not defined for %s", seq[0])
}
