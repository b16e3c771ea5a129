package backup

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSSink uploads backups to a Cloud Storage bucket using application
// default credentials.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSSink(ctx context.Context, bucket, prefix string) (*GCSSink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs sink: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSSink) Deliver(ctx context.Context, file File) (string, error) {
	path := s.prefix + file.Name
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = file.ContentType
	if _, err := w.Write(file.Content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

func (s *GCSSink) Close() error {
	return s.client.Close()
}
