package storage

import (
	"context"
	"io"
)

// BlobStore is the durable store for session logs and finished tracks.
type BlobStore interface {
	// Upload writes an object and returns its stored path.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)

	// AppendLog persists one flush of a session's event log. Writes for the
	// same session and offset overwrite each other, which keeps retried
	// flushes idempotent.
	AppendLog(ctx context.Context, sessionID string, offset int, data []byte) error
}
