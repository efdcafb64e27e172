package util

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

/*
The exec context collects evaluation statistics for a query. Each phase of a
query (compile, evaluate) gets a child context; operators increment named
counters on whichever context they find in their context.Context. The result
is rendered by the explain command or serialized to JSON for logging.
*/

////////////////////////////////////////////////////////////////////////////////

type contextKey int

const (
	ContextKey contextKey = iota
)

// Context is a node in the statistics tree of a query.
type Context struct {
	Name     string             `json:"name"`
	Values   map[string]float64 `json:"values"`
	Data     map[string]string  `json:"data"`
	Children []*Context         `json:"children"`

	mtx *sync.Mutex
}

func newContext(name string) *Context {
	return &Context{
		Name:   name,
		Values: make(map[string]float64),
		Data:   make(map[string]string),
		mtx:    &sync.Mutex{},
	}
}

// WithContext attaches a new root statistics context.
func WithContext(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKey, newContext(name))
}

// IncContextValue increments a counter.
func IncContextValue(ctx context.Context, name string, inc float64) {
	c := FromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Values[name] += inc
}

// SetContextValue sets a counter.
func SetContextValue(ctx context.Context, name string, value float64) {
	c := FromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Values[name] = value
}

// SetContextData sets a label.
func SetContextData(ctx context.Context, key string, data string) {
	c := FromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Data[key] = data
}

// FromContext returns the statistics context of ctx. If there is none, a
// detached context is returned and anything recorded on it is discarded.
func FromContext(ctx context.Context) *Context {
	if c, ok := ctx.Value(ContextKey).(*Context); ok {
		return c
	}
	return newContext("")
}

// WithChildContext attaches a child statistics context.
func WithChildContext(ctx context.Context, name string) (context.Context, *Context) {
	c := FromContext(ctx)
	child := newContext(name)
	c.mtx.Lock()
	c.Children = append(c.Children, child)
	c.mtx.Unlock()
	return context.WithValue(ctx, ContextKey, child), child
}

// Value returns a counter of the context or any of its descendants, summed.
func (c *Context) Value(name string) float64 {
	c.mtx.Lock()
	sum := c.Values[name]
	children := c.Children
	c.mtx.Unlock()
	for _, child := range children {
		sum += child.Value(name)
	}
	return sum
}

// JSON returns the statistics tree as JSON.
func (c *Context) JSON() ([]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize exec context: %w", err)
	}
	return data, nil
}

// Print renders the statistics tree for display.
func (c *Context) Print() string {
	buf := &bytes.Buffer{}
	caser := cases.Title(language.English)
	stack := []Pair[int, *Context]{NewPair(0, c)}
	for len(stack) > 0 {
		pair := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		indent, node := pair.First, pair.Second

		var labels string
		if len(node.Data) > 0 {
			parts := make([]string, 0, len(node.Data))
			for _, key := range Okeys(node.Data) {
				parts = append(parts, key+"="+node.Data[key])
			}
			labels = " [" + strings.Join(parts, " ") + "]"
		}
		fmt.Fprintf(buf, "%s%s%s\n", strings.Repeat("  ", indent), caser.String(node.Name), labels)
		for _, key := range Okeys(node.Values) {
			fmt.Fprintf(buf, "%s  %s: %s\n", strings.Repeat("  ", indent), key,
				strings.TrimSuffix(fmt.Sprintf("%.3f", node.Values[key]), ".000"))
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, NewPair(indent+1, node.Children[i]))
		}
	}
	return buf.String()
}
