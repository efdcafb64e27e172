package nodestore

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/value"
)

/*
Parse maps a JSON document to a tree. The document node holds the top-level
value. Object members become elements named by their key; array members
repeat the element once per item, and nested arrays produce "item" elements.
Members whose key starts with "@" become attributes of the enclosing element
and must have scalar values. Scalars become text nodes and null produces no
node.

Attributes precede the other children of an element regardless of their
position in the object, so the JSON is read into a small intermediate tree
before nodes are emitted.
*/

////////////////////////////////////////////////////////////////////////////////

const attributePrefix = "@"

type jsonKind uint8

const (
	jsonNull jsonKind = iota
	jsonScalar
	jsonObject
	jsonArray
)

type jsonMember struct {
	key   string
	value *jsonValue
}

type jsonValue struct {
	kind    jsonKind
	scalar  string
	members []jsonMember
	items   []*jsonValue
}

// Parse reads a JSON document.
func Parse(name string, id uint64, r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	root, err := readValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, InvalidDocumentError{Name: name, Reason: "empty input"}
		}
		return nil, InvalidDocumentError{Name: name, Reason: err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, InvalidDocumentError{Name: name, Reason: "trailing data after top-level value"}
	}
	b := &builder{
		doc: &Document{
			id:    id,
			name:  name,
			stats: NewStatistics(),
		},
		mem: index.NewMemIndex(),
	}
	pre := b.add(value.TypeDocument, "", -1, "")
	if err := b.content(pre, root); err != nil {
		return nil, InvalidDocumentError{Name: name, Reason: err.Error()}
	}
	b.close(pre)
	b.doc.idx = b.mem
	return b.doc, nil
}

func readValue(dec *json.Decoder) (*jsonValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %s", t)
	case nil:
		return &jsonValue{kind: jsonNull}, nil
	case string:
		return &jsonValue{kind: jsonScalar, scalar: t}, nil
	case json.Number:
		return &jsonValue{kind: jsonScalar, scalar: t.String()}, nil
	case bool:
		return &jsonValue{kind: jsonScalar, scalar: strconv.FormatBool(t)}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func readObject(dec *json.Decoder) (*jsonValue, error) {
	v := &jsonValue{kind: jsonObject}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, found %v", tok)
		}
		member, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		v.members = append(v.members, jsonMember{key: key, value: member})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

func readArray(dec *json.Decoder) (*jsonValue, error) {
	v := &jsonValue{kind: jsonArray}
	for dec.More() {
		item, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		v.items = append(v.items, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

type builder struct {
	doc *Document
	mem *index.MemIndex
}

func (b *builder) add(kind value.Type, name string, parent int, v string) int {
	d := b.doc
	pre := len(d.kinds)
	d.kinds = append(d.kinds, kind)
	d.names = append(d.names, name)
	d.parents = append(d.parents, parent)
	d.sizes = append(d.sizes, 1)
	d.values = append(d.values, v)
	switch kind {
	case value.TypeText:
		b.observe(index.Text, pre, v)
	case value.TypeAttribute:
		b.observe(index.Attribute, pre, v)
	}
	return pre
}

// close fixes the subtree size of a node once its descendants are emitted.
func (b *builder) close(pre int) {
	b.doc.sizes[pre] = len(b.doc.kinds) - pre
}

// observe indexes a value if it is numeric.
func (b *builder) observe(kind index.Kind, pre int, v string) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	b.mem.Add(kind, pre, f)
	b.doc.entries = append(b.doc.entries, indexEntry{kind: kind, ref: pre, value: f})
	b.doc.stats.observeNumeric(kind, f)
}

func (b *builder) content(parent int, v *jsonValue) error {
	switch v.kind {
	case jsonNull:
		return nil
	case jsonScalar:
		b.add(value.TypeText, "", parent, v.scalar)
		return nil
	case jsonArray:
		for _, item := range v.items {
			if err := b.element(parent, "item", item); err != nil {
				return err
			}
		}
		return nil
	}
	for _, m := range v.members {
		name, ok := strings.CutPrefix(m.key, attributePrefix)
		if !ok {
			continue
		}
		switch m.value.kind {
		case jsonNull:
		case jsonScalar:
			b.add(value.TypeAttribute, name, parent, m.value.scalar)
		default:
			return fmt.Errorf("attribute %s must have a scalar value", name)
		}
	}
	for _, m := range v.members {
		if strings.HasPrefix(m.key, attributePrefix) {
			continue
		}
		if m.value.kind == jsonArray {
			for _, item := range m.value.items {
				if err := b.element(parent, m.key, item); err != nil {
					return err
				}
			}
			continue
		}
		if err := b.element(parent, m.key, m.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) element(parent int, name string, v *jsonValue) error {
	if name == "" {
		return errors.New("empty element name")
	}
	pre := b.add(value.TypeElement, name, parent, "")
	if err := b.content(pre, v); err != nil {
		return err
	}
	b.close(pre)
	return nil
}
