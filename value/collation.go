package value

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

/*
Collations implement locale-aware string ordering on top of x/text/collate. A
nil *Collation is the Unicode codepoint collation, which is also the default.

Collation URIs take the forms

	http://www.w3.org/2005/xpath-functions/collation/codepoint
	http://www.w3.org/2013/collation/UCA?lang=de&strength=primary
	?lang=de

Collators are not safe for concurrent use, so each Collation serializes access
to its collator.
*/

////////////////////////////////////////////////////////////////////////////////

// CodepointURI is the URI of the default collation.
const CodepointURI = "http://www.w3.org/2005/xpath-functions/collation/codepoint"

// Collation is a string ordering.
type Collation struct {
	uri string
	col *collate.Collator
	buf *collate.Buffer
	mtx *sync.Mutex
}

// NewCollation resolves a collation URI. The codepoint collation resolves to
// nil.
func NewCollation(uri string) (*Collation, error) {
	if uri == "" || uri == CodepointURI {
		return nil, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid collation %s: %w", uri, err)
	}
	query := u.Query()
	lang := query.Get("lang")
	if lang == "" {
		return nil, fmt.Errorf("unsupported collation %s", uri)
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid collation language %s: %w", lang, err)
	}
	var opts []collate.Option
	switch strings.ToLower(query.Get("strength")) {
	case "primary":
		opts = append(opts, collate.IgnoreCase, collate.IgnoreDiacritics)
	case "secondary":
		opts = append(opts, collate.IgnoreCase)
	}
	return &Collation{
		uri: uri,
		col: collate.New(tag, opts...),
		buf: &collate.Buffer{},
		mtx: &sync.Mutex{},
	}, nil
}

// URI returns the collation URI.
func (c *Collation) URI() string {
	if c == nil {
		return CodepointURI
	}
	return c.uri
}

// CompareStrings compares two strings under the collation.
func (c *Collation) CompareStrings(a, b string) int {
	if c == nil {
		return strings.Compare(a, b)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.col.CompareString(a, b)
}

// Key returns a sort key for s. Two strings compare equal under the collation
// iff their keys are equal.
func (c *Collation) Key(s string) []byte {
	if c == nil {
		return []byte(s)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	key := c.col.KeyFromString(c.buf, s)
	out := make([]byte, len(key))
	copy(out, key)
	c.buf.Reset()
	return out
}
