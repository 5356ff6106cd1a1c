// Package documents stores PDOC attachment blobs. Metadata lives in
// postgres; this package only moves bytes. Two backends exist: a local
// filesystem store for development and an S3 store for production.
package documents

import (
	"context"
	"io"
)

// BlobStore reads and writes attachment content by storage key.
type BlobStore interface {
	// Put stores the content under key, overwriting any existing blob.
	Put(ctx context.Context, key string, content io.Reader, contentType string) error

	// Get returns a reader over the blob. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
