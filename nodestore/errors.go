package nodestore

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned for positions outside a document.
var ErrNodeNotFound = errors.New("node not found")

// InvalidDocumentError is returned when a source cannot be mapped to a tree.
type InvalidDocumentError struct {
	Name   string
	Reason string
}

func (e InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document %s: %s", e.Name, e.Reason)
}

func (e InvalidDocumentError) Is(target error) bool {
	_, ok := target.(InvalidDocumentError)
	return ok
}
