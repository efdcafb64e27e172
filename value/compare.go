package value

import (
	"cmp"
	"math"
	"strconv"
	"strings"

	"github.com/relvacode/iso8601"
)

/*
Comparison of atomic items under general-comparison rules. Untyped operands
are cast to the type of the other operand (double for numerics), so that
atomized nodes compare naturally against literals.
*/

////////////////////////////////////////////////////////////////////////////////

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// String returns the operator in surface syntax.
func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// ParseOp parses an operator.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "=":
		return OpEq, true
	case "!=":
		return OpNe, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLe, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGe, true
	}
	return OpEq, false
}

func (op Op) holds(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	default:
		return c >= 0
	}
}

// Comparable reports whether atomic items of the two types can be compared.
func Comparable(a, b Type) bool {
	switch {
	case a == TypeUntyped || b == TypeUntyped:
		return a.Atomic() && b.Atomic()
	case a.InstanceOf(TypeNumeric):
		return b.InstanceOf(TypeNumeric)
	default:
		return a == b
	}
}

// Compare evaluates "a op b" for two items under general-comparison rules.
func Compare(op Op, a, b Item, coll *Collation) (bool, error) {
	x, err := Atomize(a)
	if err != nil {
		return false, err
	}
	y, err := Atomize(b)
	if err != nil {
		return false, err
	}
	x, y, err = unifyUntyped(x, y)
	if err != nil {
		return false, err
	}
	if !Comparable(x.Type(), y.Type()) {
		return false, NewTypeError("items %s and %s are not comparable with %s", a, b, op)
	}
	if x.Type().InstanceOf(TypeNumeric) {
		return compareNumeric(op, x, y), nil
	}
	switch x := x.(type) {
	case Str:
		return op.holds(coll.CompareStrings(string(x), stringOf(y))), nil
	case Untyped:
		return op.holds(coll.CompareStrings(string(x), stringOf(y))), nil
	case Bool:
		return op.holds(compareBool(bool(x), bool(y.(Bool)))), nil
	case DateTime:
		return op.holds(x.Time.Compare(y.(DateTime).Time)), nil
	}
	return false, NewTypeError("items %s and %s are not comparable with %s", a, b, op)
}

// unifyUntyped casts an untyped operand to the type of the other operand.
// Untyped against a numeric is cast to double; untyped against untyped or
// string stays a string comparison.
func unifyUntyped(x, y Item) (Item, Item, error) {
	xu := x.Type() == TypeUntyped
	yu := y.Type() == TypeUntyped
	if xu == yu {
		return x, y, nil
	}
	var err error
	if xu {
		x, err = castUntypedFor(x.(Untyped), y.Type())
	} else {
		y, err = castUntypedFor(y.(Untyped), x.Type())
	}
	return x, y, err
}

func castUntypedFor(u Untyped, t Type) (Item, error) {
	switch {
	case t.InstanceOf(TypeNumeric):
		return Cast(u, TypeDouble)
	case t == TypeString || !t.Atomic():
		return u, nil
	default:
		return Cast(u, t)
	}
}

func stringOf(it Item) string {
	switch it := it.(type) {
	case Str:
		return string(it)
	case Untyped:
		return string(it)
	}
	return it.String()
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareNumeric(op Op, x, y Item) bool {
	xi, xok := x.(Int)
	yi, yok := y.(Int)
	if xok && yok {
		return op.holds(cmp.Compare(xi, yi))
	}
	xf, yf := toFloat(x), toFloat(y)
	if math.IsNaN(xf) || math.IsNaN(yf) {
		return op == OpNe
	}
	return op.holds(cmp.Compare(xf, yf))
}

func toFloat(it Item) float64 {
	switch it := it.(type) {
	case Int:
		return float64(it)
	case Dbl:
		return float64(it)
	}
	return math.NaN()
}

// Cast converts an atomic item to the target type. Only the conversions needed
// by comparison and promotion are supported.
func Cast(it Item, t Type) (Item, error) {
	if it.Type().InstanceOf(t) {
		return it, nil
	}
	fail := func() (Item, error) {
		return nil, NewTypeError("cannot cast %s to %s", it, t)
	}
	var s string
	switch it := it.(type) {
	case Untyped:
		s = strings.TrimSpace(string(it))
	case Str:
		if t != TypeUntyped {
			return fail()
		}
		return Untyped(it), nil
	case Int:
		if t == TypeDouble || t == TypeNumeric {
			return Dbl(it), nil
		}
		return fail()
	default:
		return fail()
	}
	switch t {
	case TypeDouble, TypeNumeric:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail()
		}
		return Dbl(f), nil
	case TypeInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fail()
		}
		return Int(i), nil
	case TypeString, TypeAtomic:
		return Str(string(it.(Untyped))), nil
	case TypeBoolean:
		switch s {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return fail()
	case TypeDateTime:
		tm, err := iso8601.ParseString(s)
		if err != nil {
			return fail()
		}
		return DateTime{tm}, nil
	}
	return fail()
}

// Promote converts a sequence to the given type using the promotion rules:
// nodes are atomized when an atomic type is expected, untyped values are cast
// and integers are promoted to doubles.
func Promote(seq Seq, st SeqType) (Seq, error) {
	if st.Instance(seq) {
		return seq, nil
	}
	if !st.Occ.Check(len(seq)) {
		return nil, NewTypeError("%s does not match %s", seq, st)
	}
	out := make(Seq, len(seq))
	for i, it := range seq {
		if st.instanceItem(it) {
			out[i] = it
			continue
		}
		if !st.Type.Atomic() {
			return nil, NewTypeError("%s does not match %s", it, st)
		}
		atom, err := Atomize(it)
		if err != nil {
			return nil, err
		}
		switch {
		case atom.Type().InstanceOf(st.Type):
			out[i] = atom
		case atom.Type() == TypeUntyped, atom.Type() == TypeInteger && st.Type == TypeDouble:
			if out[i], err = Cast(atom, st.Type); err != nil {
				return nil, err
			}
		default:
			return nil, NewTypeError("%s does not match %s", it, st)
		}
	}
	return out, nil
}
