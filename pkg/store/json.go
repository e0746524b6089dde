package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// JSONFileStore writes records as an indented JSON array to a single file
type JSONFileStore struct {
	path string
}

// NewJSONFileStore creates a store writing to path
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the destination file
func (s *JSONFileStore) Path() string {
	return s.path
}

// Persist writes records to a temporary file next to the destination and
// renames it into place, so readers see either the old file or the new one.
func (s *JSONFileStore) Persist(ctx context.Context, records []models.PageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(nonNil(records), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	return WriteFileAtomic(s.path, data)
}

// Close is a no-op
func (s *JSONFileStore) Close() error {
	return nil
}

// WriteFileAtomic replaces path with data via a temp file and rename
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a corpus written by JSONFileStore
func LoadJSON(path string) ([]models.PageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	var records []models.PageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	return nonNil(records), nil
}
