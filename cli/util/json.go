package util

import (
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
	"github.com/wkalt/treeq/value"
)

// Encoder writes items as newline-delimited JSON.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

type jsonNode struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// Encode writes one item. Numbers and booleans keep their JSON types, nodes
// become objects carrying their kind, name and string value, and anything
// else is written as its string form.
func (e *Encoder) Encode(item value.Item) error {
	var v any
	switch x := item.(type) {
	case value.Int:
		v = int64(x)
	case value.Dbl:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v = x.String()
		} else {
			v = f
		}
	case value.Bool:
		v = bool(x)
	case value.Str:
		v = string(x)
	case value.Untyped:
		v = string(x)
	case value.Node:
		v = jsonNode{Type: x.Type().String(), Name: x.Name(), Value: x.StringValue()}
	default:
		v = item.String()
	}
	if err := e.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}
	return nil
}
