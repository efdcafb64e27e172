package nodestore

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/value"
)

/*
A Document is an immutable tree stored as parallel arrays in pre-order. The
position of a node in the arrays is its pre-order number, so document order
is integer order and a subtree is the contiguous range [pre, pre+size).

Documents are data sources for the evaluator: they expose their nodes by
position, a range index over the numeric text and attribute values, and
statistics over the same values.
*/

////////////////////////////////////////////////////////////////////////////////

type indexEntry struct {
	kind  index.Kind
	ref   int
	value float64
}

// Document is a parsed tree document.
type Document struct {
	id   uint64
	name string

	kinds   []value.Type
	names   []string
	parents []int
	sizes   []int
	values  []string

	entries []indexEntry
	idx     index.Index
	stats   *Statistics
}

// Name returns the name the document was loaded under.
func (d *Document) Name() string {
	return d.name
}

// ID returns the document identity used to order nodes across documents.
func (d *Document) ID() uint64 {
	return d.id
}

// Size returns the number of nodes.
func (d *Document) Size() int {
	return len(d.kinds)
}

// Index returns the range index of the document.
func (d *Document) Index() index.Index {
	return d.idx
}

// SetIndex replaces the range index, for instance with a persistent one
// holding the same entries.
func (d *Document) SetIndex(idx index.Index) {
	d.idx = idx
}

// Entries calls f for every range index entry of the document.
func (d *Document) Entries(f func(kind index.Kind, ref int, v float64) error) error {
	for _, e := range d.entries {
		if err := f(e.kind, e.ref, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Statistics returns the value statistics of the document.
func (d *Document) Statistics() *Statistics {
	return d.stats
}

// Stats returns the statistics of the values of one index kind.
func (d *Document) Stats(kind index.Kind) (executor.Statistics, bool) {
	summary, ok := d.stats.NumStats[kind]
	if !ok {
		return executor.Statistics{}, true
	}
	return executor.Statistics{Count: summary.Count, Min: summary.Min, Max: summary.Max}, true
}

// NodeAt returns the node at a pre-order position.
func (d *Document) NodeAt(pre int) (value.Node, error) {
	if pre < 0 || pre >= len(d.kinds) {
		return nil, fmt.Errorf("%w: %d in %s", ErrNodeNotFound, pre, d.name)
	}
	return &Node{doc: d, pre: pre}, nil
}

// Node is a node of a document.
type Node struct {
	doc *Document
	pre int
}

// Pre returns the pre-order position of the node.
func (n *Node) Pre() int {
	return n.pre
}

// Document returns the document of the node.
func (n *Node) Document() *Document {
	return n.doc
}

func (n *Node) Type() value.Type {
	return n.doc.kinds[n.pre]
}

func (n *Node) Name() string {
	return n.doc.names[n.pre]
}

// Parent returns the parent node, or nil for the document node.
func (n *Node) Parent() *Node {
	parent := n.doc.parents[n.pre]
	if parent < 0 {
		return nil
	}
	return &Node{doc: n.doc, pre: parent}
}

// Children returns the attribute and child nodes in document order.
func (n *Node) Children() []*Node {
	children := []*Node{}
	end := n.pre + n.doc.sizes[n.pre]
	for pre := n.pre + 1; pre < end; pre += n.doc.sizes[pre] {
		children = append(children, &Node{doc: n.doc, pre: pre})
	}
	return children
}

// StringValue returns the value of a text or attribute node, or the
// concatenated text descendants of other nodes.
func (n *Node) StringValue() string {
	switch n.Type() {
	case value.TypeText, value.TypeAttribute:
		return n.doc.values[n.pre]
	}
	sb := &strings.Builder{}
	end := n.pre + n.doc.sizes[n.pre]
	for pre := n.pre + 1; pre < end; pre++ {
		if n.doc.kinds[pre] == value.TypeText {
			sb.WriteString(n.doc.values[pre])
		}
	}
	return sb.String()
}

// Diff orders nodes by document, then by position. Nodes of other
// implementations sort last.
func (n *Node) Diff(other value.Node) int {
	o, ok := other.(*Node)
	if !ok {
		return -1
	}
	if c := cmp.Compare(n.doc.id, o.doc.id); c != 0 {
		return c
	}
	return cmp.Compare(n.pre, o.pre)
}

// String serializes the subtree.
func (n *Node) String() string {
	sb := &strings.Builder{}
	n.serialize(sb)
	return sb.String()
}

func (n *Node) serialize(sb *strings.Builder) {
	switch n.Type() {
	case value.TypeText:
		_ = xml.EscapeText(sb, []byte(n.doc.values[n.pre]))
	case value.TypeAttribute:
		sb.WriteString(n.Name() + `="`)
		_ = xml.EscapeText(sb, []byte(n.doc.values[n.pre]))
		sb.WriteString(`"`)
	case value.TypeDocument:
		for _, c := range n.Children() {
			c.serialize(sb)
		}
	default:
		children := n.Children()
		sb.WriteString("<" + n.Name())
		i := 0
		for ; i < len(children) && children[i].Type() == value.TypeAttribute; i++ {
			sb.WriteString(" ")
			children[i].serialize(sb)
		}
		if i == len(children) {
			sb.WriteString("/>")
			return
		}
		sb.WriteString(">")
		for _, c := range children[i:] {
			c.serialize(sb)
		}
		sb.WriteString("</" + n.Name() + ">")
	}
}
