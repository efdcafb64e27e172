package executor

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/value"
)

/*
The mocks in this file simulate leaf expressions, nodes and data sources in
tests, without a storage dependency.
*/

////////////////////////////////////////////////////////////////////////////////

// MockNode is a node identified by its pre-order position.
type MockNode struct {
	Pre   int
	Kind  value.Type
	Value string
}

// NewMockNodes returns element nodes at the given positions.
func NewMockNodes(pres ...int) []*MockNode {
	nodes := make([]*MockNode, len(pres))
	for i, pre := range pres {
		nodes[i] = &MockNode{Pre: pre, Kind: value.TypeElement}
	}
	return nodes
}

func (n *MockNode) Type() value.Type {
	return n.Kind
}

func (n *MockNode) Name() string {
	return ""
}

func (n *MockNode) StringValue() string {
	return n.Value
}

// Diff compares positions. Nodes of other implementations sort first.
func (n *MockNode) Diff(other value.Node) int {
	o, ok := other.(*MockNode)
	if !ok {
		return 1
	}
	return cmp.Compare(n.Pre, o.Pre)
}

func (n *MockNode) String() string {
	return fmt.Sprintf("node(%d)", n.Pre)
}

// MockExpr is a leaf expression that produces a fixed sequence and counts how
// often it is opened and pulled. Copies share the receiver, so the counts
// cover every copy.
type MockExpr struct {
	node
	Items   value.Seq
	Type    value.SeqType
	Flags   []Flag
	Ordered bool
	Opened  int
	Pulls   int
}

// NewMockExpr returns a mock producing items, with static type item()*.
func NewMockExpr(items ...value.Item) *MockExpr {
	return &MockExpr{Items: items, Type: value.ItemZM}
}

// NewMockNodeExpr returns a mock producing nodes in the given order. It
// reports document order if the nodes are strictly ascending.
func NewMockNodeExpr(nodes ...*MockNode) *MockExpr {
	items := make(value.Seq, len(nodes))
	for i, n := range nodes {
		items[i] = n
	}
	ascending := true
	for i := 1; i < len(nodes); i++ {
		if nodes[i-1].Pre >= nodes[i].Pre {
			ascending = false
		}
	}
	return &MockExpr{Items: items, Type: value.NodeZM, Ordered: ascending}
}

func (m *MockExpr) Compile(context.Context, *CompileContext) (Expr, error) {
	return m, nil
}

func (m *MockExpr) Optimize(context.Context, *CompileContext) (Expr, error) {
	return m, nil
}

func (m *MockExpr) Iter(context.Context, *QueryContext) (Iter, error) {
	m.Opened++
	return &mockIter{expr: m, items: m.Items}, nil
}

type mockIter struct {
	expr  *MockExpr
	items value.Seq
}

func (it *mockIter) Next(context.Context) (value.Item, error) {
	if len(it.items) == 0 {
		return nil, io.EOF
	}
	it.expr.Pulls++
	item := it.items[0]
	it.items = it.items[1:]
	return item, nil
}

func (m *MockExpr) Copy(*CompileContext, VarMap) Expr {
	return m
}

func (m *MockExpr) SeqType() value.SeqType {
	return m.Type
}

func (m *MockExpr) Has(flag Flag) bool {
	return slices.Contains(m.Flags, flag)
}

func (m *MockExpr) Count(*Var) VarUsage {
	return Never
}

func (m *MockExpr) Inline(context.Context, *CompileContext, *Var, Expr) (Expr, error) {
	return nil, nil
}

func (m *MockExpr) Size() int {
	return 1
}

func (m *MockExpr) DocOrdered() bool {
	return m.Ordered
}

func (m *MockExpr) String() string {
	return "mock" + m.Items.String()
}

// MockSource is a data source over a slice of nodes indexed by position.
type MockSource struct {
	SourceName string
	Nodes      []value.Node
	Idx        index.Index
}

func (s *MockSource) Name() string {
	return s.SourceName
}

func (s *MockSource) Index() index.Index {
	return s.Idx
}

func (s *MockSource) Size() int {
	return len(s.Nodes)
}

func (s *MockSource) NodeAt(pre int) (value.Node, error) {
	if pre < 0 || pre >= len(s.Nodes) {
		return nil, fmt.Errorf("node %d out of range", pre)
	}
	return s.Nodes[pre], nil
}

// MockResolver resolves data sources from a map.
type MockResolver map[string]DataSource

func (r MockResolver) Resolve(_ context.Context, name string) (DataSource, error) {
	ds, ok := r[name]
	if !ok {
		return nil, UndefinedError{Kind: "data source", Name: name}
	}
	return ds, nil
}
