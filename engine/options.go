package engine

import (
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/value"
)

// Option is a functional option for the engine.
type Option func(*Options)

// Options contains options for the engine.
type Options struct {
	InlineLimit       int
	MaxInlineCaptures int
	Collation         string
	Seed              *int64
	ContextItem       value.Item
	Variables         map[string]value.Seq
	Resolver          executor.Resolver
}

func defaultOptions() Options {
	return Options{
		InlineLimit:       executor.DefaultInlineLimit,
		MaxInlineCaptures: executor.DefaultMaxInlineCaptures,
		Collation:         value.CodepointURI,
		Variables:         make(map[string]value.Seq),
	}
}

// WithInlineLimit sets the largest function body, in expression nodes, that
// is inlined at a call site.
func WithInlineLimit(limit int) Option {
	return func(opts *Options) {
		opts.InlineLimit = limit
	}
}

// WithMaxInlineCaptures sets the number of captured variables above which a
// closure is not inlined.
func WithMaxInlineCaptures(n int) Option {
	return func(opts *Options) {
		opts.MaxInlineCaptures = n
	}
}

// WithCollation sets the default collation URI of general comparisons.
func WithCollation(uri string) Option {
	return func(opts *Options) {
		opts.Collation = uri
	}
}

// WithSeed seeds the random number generator of random().
func WithSeed(seed int64) Option {
	return func(opts *Options) {
		opts.Seed = &seed
	}
}

// WithContextItem sets the initial context item.
func WithContextItem(item value.Item) Option {
	return func(opts *Options) {
		opts.ContextItem = item
	}
}

// WithVariable binds an external variable. The variable is visible to the
// query as $name.
func WithVariable(name string, seq value.Seq) Option {
	return func(opts *Options) {
		opts.Variables[name] = seq
	}
}

// WithResolver sets the resolver of data-source names.
func WithResolver(r executor.Resolver) Option {
	return func(opts *Options) {
		opts.Resolver = r
	}
}
