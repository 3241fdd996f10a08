// Package documents stores uploaded lecture PDFs and the text extracted from them.
package documents

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Storage when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// Storage is the object store holding the PDF files.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
