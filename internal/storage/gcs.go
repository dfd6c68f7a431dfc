package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/doccast/doccast/internal/utils"
)

type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	const op = "storage.NewGCSStore"
	if bucket == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "bucket name is required", nil)
	}
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeConfiguration, op, "creating gcs client", err)
	}
	return &GCSStore{client: c, bucket: bucket}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	const op = "GCSStore.Upload"

	obj := s.client.Bucket(s.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", utils.E(utils.CodeTransient, op, "writing object", err)
	}
	if err := w.Close(); err != nil {
		return "", utils.E(utils.CodeTransient, op, "closing object writer", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// AppendLog writes one flush as its own object. The offset in the name makes
// a retried flush overwrite its earlier, failed attempt instead of
// duplicating entries.
func (s *GCSStore) AppendLog(ctx context.Context, sessionID string, offset int, data []byte) error {
	name := fmt.Sprintf("sessions/%s/log-%06d.jsonl", sessionID, offset)
	_, err := s.Upload(ctx, name, "application/x-ndjson", bytes.NewReader(data))
	return err
}
