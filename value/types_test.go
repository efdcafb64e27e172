package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/value"
)

func TestOccIntersect(t *testing.T) {
	cases := []struct {
		assertion string
		a, b      value.Occ
		expected  value.Occ
		ok        bool
	}{
		{"one and zero-or-more", value.ExactlyOne, value.ZeroOrMore, value.ExactlyOne, true},
		{"one and zero", value.ExactlyOne, value.Zero, value.ExactlyOne, false},
		{"one-or-more and zero-or-one", value.OneOrMore, value.ZeroOrOne, value.ExactlyOne, true},
		{"zero-or-more and zero", value.ZeroOrMore, value.Zero, value.Zero, true},
		{"one-or-more and zero", value.OneOrMore, value.Zero, value.OneOrMore, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			actual, ok := c.a.Intersect(c.b)
			require.Equal(t, c.ok, ok)
			if ok {
				require.Equal(t, c.expected, actual)
			}
		})
	}
}

func TestOccInstanceOf(t *testing.T) {
	assert.True(t, value.ExactlyOne.InstanceOf(value.ZeroOrMore))
	assert.True(t, value.Zero.InstanceOf(value.ZeroOrOne))
	assert.False(t, value.ZeroOrMore.InstanceOf(value.ZeroOrOne))
	assert.False(t, value.ZeroOrOne.InstanceOf(value.ExactlyOne))
	assert.True(t, value.OneOrMore.InstanceOf(value.OneOrMore))
}

func TestTypeHierarchy(t *testing.T) {
	assert.True(t, value.TypeInteger.InstanceOf(value.TypeNumeric))
	assert.True(t, value.TypeText.InstanceOf(value.TypeItem))
	assert.False(t, value.TypeText.InstanceOf(value.TypeAtomic))
	assert.Equal(t, value.TypeNumeric, value.TypeInteger.Union(value.TypeDouble))
	assert.Equal(t, value.TypeNode, value.TypeText.Union(value.TypeAttribute))
	assert.Equal(t, value.TypeItem, value.TypeText.Union(value.TypeString))
}

func TestSeqTypeNarrow(t *testing.T) {
	declared := value.NewSeqType(value.TypeAtomic, value.ZeroOrMore)
	t.Run("narrows", func(t *testing.T) {
		refined := declared.Narrow(value.NewSeqType(value.TypeInteger, value.ExactlyOne))
		require.Equal(t, value.NewSeqType(value.TypeInteger, value.ExactlyOne), refined)
	})
	t.Run("never widens", func(t *testing.T) {
		narrow := value.NewSeqType(value.TypeInteger, value.ExactlyOne)
		require.Equal(t, narrow, narrow.Narrow(value.ItemZM))
	})
	t.Run("ignores unrelated information", func(t *testing.T) {
		narrow := value.NewSeqType(value.TypeInteger, value.ExactlyOne)
		require.Equal(t, narrow, narrow.Narrow(value.NewSeqType(value.TypeString, value.Zero)))
	})
}

func TestSeqTypeInstance(t *testing.T) {
	cases := []struct {
		assertion string
		st        value.SeqType
		seq       value.Seq
		expected  bool
	}{
		{"empty against zero-or-one", value.NewSeqType(value.TypeInteger, value.ZeroOrOne), value.Seq{}, true},
		{"empty against one", value.NewSeqType(value.TypeInteger, value.ExactlyOne), value.Seq{}, false},
		{"integer against numeric", value.NewSeqType(value.TypeNumeric, value.ExactlyOne), value.Seq{value.Int(1)}, true},
		{"string against integer", value.NewSeqType(value.TypeInteger, value.ExactlyOne), value.Seq{value.Str("a")}, false},
		{"two against zero-or-one", value.NewSeqType(value.TypeItem, value.ZeroOrOne), value.Seq{value.Int(1), value.Int(2)}, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, c.st.Instance(c.seq))
		})
	}
}

func TestSeqTypeString(t *testing.T) {
	assert.Equal(t, "xs:integer?", value.NewSeqType(value.TypeInteger, value.ZeroOrOne).String())
	assert.Equal(t, "item()*", value.ItemZM.String())
	assert.Equal(t, "empty-sequence()", value.EmptySeq.String())
	ft := &value.FuncType{Args: []value.SeqType{value.ItemZM}, Ret: value.BooleanOne}
	assert.Equal(t, "function(item()*) as xs:boolean", value.FuncSeqType(ft).String())
}
