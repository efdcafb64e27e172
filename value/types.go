package value

import (
	"fmt"
	"strings"
)

/*
Sequence types describe the static shape of an expression result: an item kind
from a small fixed hierarchy, paired with an occurrence indicator. Occurrence
indicators are modeled as closed ranges so that intersections and unions are
plain interval arithmetic.
*/

////////////////////////////////////////////////////////////////////////////////

// Type is an item kind.
type Type int

const (
	// TypeItem is the root of the hierarchy.
	TypeItem Type = iota
	TypeAtomic
	TypeNumeric
	TypeInteger
	TypeDouble
	TypeString
	TypeUntyped
	TypeBoolean
	TypeDateTime
	TypeNode
	TypeDocument
	TypeElement
	TypeText
	TypeAttribute
	TypeFunction
)

func (t Type) parent() Type {
	switch t {
	case TypeAtomic, TypeNode, TypeFunction:
		return TypeItem
	case TypeNumeric, TypeString, TypeUntyped, TypeBoolean, TypeDateTime:
		return TypeAtomic
	case TypeInteger, TypeDouble:
		return TypeNumeric
	case TypeDocument, TypeElement, TypeText, TypeAttribute:
		return TypeNode
	default:
		return TypeItem
	}
}

// InstanceOf reports whether t is t2 or one of its descendants.
func (t Type) InstanceOf(t2 Type) bool {
	for x := t; ; x = x.parent() {
		if x == t2 {
			return true
		}
		if x == TypeItem {
			return false
		}
	}
}

// Union returns the closest common ancestor of two types.
func (t Type) Union(t2 Type) Type {
	for x := t; ; x = x.parent() {
		if t2.InstanceOf(x) {
			return x
		}
	}
}

// Intersect returns the more specific of two related types. The second return
// value is false if the types are unrelated.
func (t Type) Intersect(t2 Type) (Type, bool) {
	if t.InstanceOf(t2) {
		return t, true
	}
	if t2.InstanceOf(t) {
		return t2, true
	}
	return t, false
}

// Atomic reports whether the type is atomic.
func (t Type) Atomic() bool {
	return t.InstanceOf(TypeAtomic)
}

// String returns the type in surface syntax.
func (t Type) String() string {
	switch t {
	case TypeItem:
		return "item()"
	case TypeAtomic:
		return "xs:anyAtomicType"
	case TypeNumeric:
		return "xs:numeric"
	case TypeInteger:
		return "xs:integer"
	case TypeDouble:
		return "xs:double"
	case TypeString:
		return "xs:string"
	case TypeUntyped:
		return "xs:untypedAtomic"
	case TypeBoolean:
		return "xs:boolean"
	case TypeDateTime:
		return "xs:dateTime"
	case TypeNode:
		return "node()"
	case TypeDocument:
		return "document-node()"
	case TypeElement:
		return "element()"
	case TypeText:
		return "text()"
	case TypeAttribute:
		return "attribute()"
	case TypeFunction:
		return "function(*)"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType resolves a type name as written in surface syntax, without the
// parentheses of kind tests.
func ParseType(name string) (Type, bool) {
	switch name {
	case "item":
		return TypeItem, true
	case "xs:anyAtomicType":
		return TypeAtomic, true
	case "xs:numeric":
		return TypeNumeric, true
	case "xs:integer":
		return TypeInteger, true
	case "xs:double", "xs:decimal":
		return TypeDouble, true
	case "xs:string":
		return TypeString, true
	case "xs:untypedAtomic":
		return TypeUntyped, true
	case "xs:boolean":
		return TypeBoolean, true
	case "xs:dateTime":
		return TypeDateTime, true
	case "node":
		return TypeNode, true
	case "document-node":
		return TypeDocument, true
	case "element":
		return TypeElement, true
	case "text":
		return TypeText, true
	case "attribute":
		return TypeAttribute, true
	case "function":
		return TypeFunction, true
	}
	return TypeItem, false
}

// Occ is an occurrence indicator, modeled as the closed range [Min, Max]. A
// negative Max is unbounded.
type Occ struct {
	Min int
	Max int
}

var (
	Zero       = Occ{0, 0}   // nolint:gochecknoglobals
	ZeroOrOne  = Occ{0, 1}   // nolint:gochecknoglobals
	ExactlyOne = Occ{1, 1}   // nolint:gochecknoglobals
	OneOrMore  = Occ{1, -1}  // nolint:gochecknoglobals
	ZeroOrMore = Occ{0, -1}  // nolint:gochecknoglobals
)

// Check reports whether a sequence of n items satisfies the indicator.
func (o Occ) Check(n int) bool {
	return n >= o.Min && (o.Max < 0 || n <= o.Max)
}

// InstanceOf reports whether o is contained in o2.
func (o Occ) InstanceOf(o2 Occ) bool {
	if o.Min < o2.Min {
		return false
	}
	if o2.Max < 0 {
		return true
	}
	return o.Max >= 0 && o.Max <= o2.Max
}

// Intersect returns the intersection of two indicators. The second return
// value is false if the intersection is provably empty.
func (o Occ) Intersect(o2 Occ) (Occ, bool) {
	lo := max(o.Min, o2.Min)
	hi := o.Max
	if hi < 0 || (o2.Max >= 0 && o2.Max < hi) {
		hi = o2.Max
	}
	if hi >= 0 && lo > hi {
		return o, false
	}
	return Occ{lo, hi}, true
}

// Union returns the smallest indicator containing both.
func (o Occ) Union(o2 Occ) Occ {
	hi := max(o.Max, o2.Max)
	if o.Max < 0 || o2.Max < 0 {
		hi = -1
	}
	return Occ{min(o.Min, o2.Min), hi}
}

// Add returns the indicator of the concatenation of two sequences.
func (o Occ) Add(o2 Occ) Occ {
	hi := o.Max + o2.Max
	if o.Max < 0 || o2.Max < 0 {
		hi = -1
	}
	return Occ{o.Min + o2.Min, hi}
}

// String returns the indicator suffix in surface syntax.
func (o Occ) String() string {
	switch {
	case o == ExactlyOne:
		return ""
	case o.Max == 1:
		return "?"
	case o.Max < 0 && o.Min == 0:
		return "*"
	case o.Max < 0:
		return "+"
	default:
		return fmt.Sprintf("{%d,%d}", o.Min, o.Max)
	}
}

// FuncType is the signature of a function item.
type FuncType struct {
	Args     []SeqType
	Ret      SeqType
	Updating bool
}

// InstanceOf reports whether a function of type f can be used where ft is
// expected. Arguments are contravariant, the return type covariant.
func (f *FuncType) InstanceOf(ft *FuncType) bool {
	if ft == nil {
		return true
	}
	if len(f.Args) != len(ft.Args) || f.Updating != ft.Updating {
		return false
	}
	for i := range f.Args {
		if !ft.Args[i].InstanceOf(f.Args[i]) {
			return false
		}
	}
	return f.Ret.InstanceOf(ft.Ret)
}

// String returns the signature in surface syntax.
func (f *FuncType) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	prefix := ""
	if f.Updating {
		prefix = "%updating "
	}
	return fmt.Sprintf("%sfunction(%s) as %s", prefix, strings.Join(args, ", "), f.Ret)
}

// SeqType is a sequence type.
type SeqType struct {
	Type Type
	Occ  Occ
	Func *FuncType
}

var (
	ItemZM     = SeqType{Type: TypeItem, Occ: ZeroOrMore}    // nolint:gochecknoglobals
	EmptySeq   = SeqType{Type: TypeItem, Occ: Zero}          // nolint:gochecknoglobals
	BooleanOne = SeqType{Type: TypeBoolean, Occ: ExactlyOne} // nolint:gochecknoglobals
	IntegerZM  = SeqType{Type: TypeInteger, Occ: ZeroOrMore} // nolint:gochecknoglobals
	NodeZM     = SeqType{Type: TypeNode, Occ: ZeroOrMore}    // nolint:gochecknoglobals
)

// NewSeqType returns a sequence type.
func NewSeqType(t Type, occ Occ) SeqType {
	return SeqType{Type: t, Occ: occ}
}

// FuncSeqType returns the exactly-one sequence type of a function signature.
func FuncSeqType(ft *FuncType) SeqType {
	return SeqType{Type: TypeFunction, Occ: ExactlyOne, Func: ft}
}

// Zero reports whether the type only admits the empty sequence.
func (s SeqType) Zero() bool {
	return s.Occ.Max == 0
}

// ZeroOrOne reports whether the type admits at most one item.
func (s SeqType) ZeroOrOne() bool {
	return s.Occ.Max >= 0 && s.Occ.Max <= 1
}

// One reports whether the type admits exactly one item.
func (s SeqType) One() bool {
	return s.Occ == ExactlyOne
}

// WithOcc returns a copy of s with a different occurrence indicator.
func (s SeqType) WithOcc(o Occ) SeqType {
	s.Occ = o
	return s
}

// InstanceOf reports whether every sequence of type s is also of type s2.
func (s SeqType) InstanceOf(s2 SeqType) bool {
	if s.Zero() {
		return s2.Occ.Min == 0
	}
	if !s.Occ.InstanceOf(s2.Occ) || !s.Type.InstanceOf(s2.Type) {
		return false
	}
	if s2.Func != nil {
		return s.Func != nil && s.Func.InstanceOf(s2.Func)
	}
	return true
}

// Instance reports whether a concrete sequence matches the type.
func (s SeqType) Instance(seq Seq) bool {
	if !s.Occ.Check(len(seq)) {
		return false
	}
	for _, it := range seq {
		if !s.instanceItem(it) {
			return false
		}
	}
	return true
}

func (s SeqType) instanceItem(it Item) bool {
	if !it.Type().InstanceOf(s.Type) {
		return false
	}
	if s.Func == nil {
		return true
	}
	fi, ok := it.(FunctionItem)
	return ok && fi.FuncType().InstanceOf(s.Func)
}

// Union returns a type admitting the sequences of both types.
func (s SeqType) Union(s2 SeqType) SeqType {
	switch {
	case s.Zero():
		return s2.WithOcc(s2.Occ.Union(Zero))
	case s2.Zero():
		return s.WithOcc(s.Occ.Union(Zero))
	}
	out := SeqType{Type: s.Type.Union(s2.Type), Occ: s.Occ.Union(s2.Occ)}
	if s.Func != nil && s2.Func != nil && s.Func.InstanceOf(s2.Func) && s2.Func.InstanceOf(s.Func) {
		out.Func = s.Func
	}
	return out
}

// Narrow refines s with the information in s2 without ever widening: the item
// type and occurrence indicator are each replaced only by a more specific one.
func (s SeqType) Narrow(s2 SeqType) SeqType {
	out := s
	if t, ok := s.Type.Intersect(s2.Type); ok {
		out.Type = t
	}
	if occ, ok := s.Occ.Intersect(s2.Occ); ok {
		out.Occ = occ
	}
	if out.Type == TypeFunction && s2.Func != nil && (s.Func == nil || s2.Func.InstanceOf(s.Func)) {
		out.Func = s2.Func
	}
	return out
}

// String returns the type in surface syntax.
func (s SeqType) String() string {
	if s.Zero() {
		return "empty-sequence()"
	}
	if s.Func != nil {
		if s.Occ == ExactlyOne {
			return s.Func.String()
		}
		return "(" + s.Func.String() + ")" + s.Occ.String()
	}
	return s.Type.String() + s.Occ.String()
}
