package storage

import (
	"context"
	"errors"
	"io"
)

/*
Storage providers hold the source documents queried through the catalog.
Objects are addressed by slash-separated names; List returns the names under
a prefix in sorted order so that glob selection is deterministic.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface of a document store.
type Provider interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, id string) error
}
