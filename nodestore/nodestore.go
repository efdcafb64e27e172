package nodestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/storage"
	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/util/log"
	"golang.org/x/sync/errgroup"
)

/*
The nodestore loads documents from a storage provider and keeps the parsed
trees in an LRU cache. It is the resolver through which queries reach their
data sources: a name is looked up in the cache, and on a miss the object of
the same name is read from storage and parsed.

When a SQL index is configured, the range index entries of every loaded
document are written to it and lookups on the document go through the SQL
index instead of the in-memory one.
*/

////////////////////////////////////////////////////////////////////////////////

const defaultPrefetchConcurrency = 8

// Option is a functional option for the nodestore.
type Option func(*Nodestore)

// WithSQLIndex persists range index entries in idx.
func WithSQLIndex(idx *index.SQLIndex) Option {
	return func(n *Nodestore) {
		n.sqlidx = idx
	}
}

// WithPrefetchConcurrency bounds the number of documents loaded in parallel
// by Prefetch.
func WithPrefetchConcurrency(limit int) Option {
	return func(n *Nodestore) {
		n.concurrency = limit
	}
}

// Nodestore is a cached document store.
type Nodestore struct {
	store       storage.Provider
	cache       *util.LRU[string, *Document]
	sqlidx      *index.SQLIndex
	concurrency int
	nextDocID   atomic.Uint64
}

// New returns a nodestore over store.
func New(store storage.Provider, cache *util.LRU[string, *Document], opts ...Option) *Nodestore {
	n := &Nodestore{
		store:       store,
		cache:       cache,
		concurrency: defaultPrefetchConcurrency,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Put validates and stores a document, replacing any cached version.
func (n *Nodestore) Put(ctx context.Context, name string, data []byte) error {
	if _, err := Parse(name, 0, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := n.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	n.cache.Delete(name)
	return nil
}

// Delete removes a document.
func (n *Nodestore) Delete(ctx context.Context, name string) error {
	if err := n.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	n.cache.Delete(name)
	if n.sqlidx != nil {
		if err := n.sqlidx.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a document, loading it on a cache miss.
func (n *Nodestore) Get(ctx context.Context, name string) (*Document, error) {
	if doc, ok := n.cache.Get(name); ok {
		util.IncContextValue(ctx, "document_cache_hits", 1)
		return doc, nil
	}
	r, err := n.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	defer r.Close()
	doc, err := Parse(name, n.nextDocID.Add(1), r)
	if err != nil {
		return nil, err
	}
	if n.sqlidx != nil {
		if err := n.persistIndex(ctx, doc); err != nil {
			return nil, err
		}
	}
	log.Debugf(ctx, "loaded %s with %d nodes", name, doc.Size())
	util.IncContextValue(ctx, "documents_loaded", 1)
	n.cache.Put(name, doc)
	return doc, nil
}

func (n *Nodestore) persistIndex(ctx context.Context, doc *Document) error {
	if err := n.sqlidx.Delete(ctx, doc.Name()); err != nil {
		return err
	}
	err := doc.Entries(func(kind index.Kind, ref int, v float64) error {
		return n.sqlidx.Put(ctx, doc.Name(), kind, ref, v)
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", doc.Name(), err)
	}
	doc.SetIndex(n.sqlidx.Source(doc.Name()))
	return nil
}

// Resolve returns the document of the given name as a data source.
func (n *Nodestore) Resolve(ctx context.Context, name string) (executor.DataSource, error) {
	doc, err := n.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, executor.UndefinedError{Kind: "data source", Name: name}
		}
		return nil, err
	}
	return doc, nil
}

// Match returns the names of the stored documents matching a glob pattern.
func (n *Nodestore) Match(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	prefix, _ := doublestar.SplitPattern(pattern)
	if prefix == "." {
		prefix = ""
	} else {
		prefix += "/"
	}
	names, err := n.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	matches := []string{}
	for _, name := range names {
		if ok, _ := doublestar.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// Prefetch loads documents in parallel so that queries find them cached.
func (n *Nodestore) Prefetch(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for _, name := range names {
		g.Go(func() error {
			_, err := n.Get(ctx, name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to prefetch documents: %w", err)
	}
	return nil
}

// Summary merges the statistics of the named documents.
func (n *Nodestore) Summary(ctx context.Context, names []string) (*Statistics, error) {
	summary := &Statistics{NumStats: make(map[index.Kind]*NumericalSummary)}
	for _, name := range names {
		doc, err := n.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		summary.Add(doc.Statistics())
	}
	return summary, nil
}
