// Package store persists crawled page records. Every backend writes the whole
// collection in one operation; a failed Persist leaves no partial result
// behind.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// ErrUnknownStorage is returned by New for an unrecognised storage type
var ErrUnknownStorage = errors.New("unknown storage type")

// Store persists a crawl's page records
type Store interface {
	Persist(ctx context.Context, records []models.PageRecord) error
	Close() error
}

// New opens the backend selected by cfg.Type
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case config.StorageFile:
		return NewJSONFileStore(cfg.Path), nil
	case config.StorageSQLite:
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageS3:
		s, err := NewS3Store(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Type)
	}
}

func nonNil(records []models.PageRecord) []models.PageRecord {
	if records == nil {
		return []models.PageRecord{}
	}
	return records
}
