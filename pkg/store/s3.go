package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// S3Store uploads the JSON corpus as a single object
type S3Store struct {
	client *minio.Client
	bucket string
	key    string

	bucketOnce sync.Once
	bucketErr  error
}

// NewS3Store creates a client for an S3-compatible endpoint. No request is
// made until the first Persist.
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 storage needs an endpoint and a bucket")
	}
	key := cfg.Key
	if key == "" {
		key = "crawled_data.json"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, key: key}, nil
}

// Key returns the object key the corpus is written to
func (s *S3Store) Key() string {
	return s.key
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
				s.bucketErr = fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
			}
		}
	})
	return s.bucketErr
}

// Persist uploads records, replacing any previous object at the key
func (s *S3Store) Persist(ctx context.Context, records []models.PageRecord) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	data, err := json.MarshalIndent(nonNil(records), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Close is a no-op
func (s *S3Store) Close() error {
	return nil
}
