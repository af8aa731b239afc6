package storage

import (
	"context"
	"fmt"

	"estore/internal/config"
)

// レポートなどの文書置き場
type DocumentStore interface {
	Put(ctx context.Context, key string, contentType string, body []byte) (string, error)
}

// bucketがあればS3、無ければローカル
func New(ctx context.Context, aws config.AWSConfig, localDir string) (DocumentStore, error) {
	if aws.ReportBucket == "" {
		return NewLocalStore(localDir), nil
	}
	s, err := NewS3Store(ctx, aws)
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w", err)
	}
	return s, nil
}
