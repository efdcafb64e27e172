package util_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wkalt/treeq/util"
)

func TestOkeys(t *testing.T) {
	m := map[int]string{3: "c", 1: "a", 2: "b"}
	for i := 0; i < 1000; i++ {
		assert.Equal(t, []int{1, 2, 3}, util.Okeys(m))
	}
}

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, util.Map([]int{1, 2}, strconv.Itoa))
	assert.Equal(t, []string{}, util.Map([]int{}, strconv.Itoa))
}

func TestWhen(t *testing.T) {
	cases := []struct {
		assertion string
		cond      bool
		expected  string
	}{
		{"true", true, "a"},
		{"false", false, "b"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			assert.Equal(t, c.expected, util.When(c.cond, "a", "b"))
		})
	}
}
