// Package gcs reads block-list resources from a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to read from GCS.
type Config struct {
	Bucket string
	// Prefix is prepended to every object name, e.g. "lists/".
	Prefix string
}

// Source reads list objects from a configured GCS bucket.
type Source struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed source.
func New(client *storage.Client, cfg Config) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Source{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectName returns the object key for name.
func (s *Source) ObjectName(name string) string {
	return objectName(s.prefix, name)
}

// Open returns a reader for the named object.
func (s *Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	object := s.ObjectName(name)
	reader, err := s.client.Bucket(s.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, object, err)
	}
	return reader, nil
}

func objectName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}
