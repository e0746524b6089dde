package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// SQLiteStore keeps every persisted batch as a run with its pages
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		persisted_at DATETIME NOT NULL,
		page_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		content TEXT,
		metadata TEXT,
		entities TEXT,
		links TEXT,
		crawl_depth INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Persist stores records as a new run inside one transaction
func (s *SQLiteStore) Persist(ctx context.Context, records []models.PageRecord) error {
	_, err := s.PersistRun(ctx, records)
	return err
}

// PersistRun is Persist returning the id assigned to the run
func (s *SQLiteStore) PersistRun(ctx context.Context, records []models.PageRecord) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, persisted_at, page_count) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), len(records),
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (run_id, position, url, title, content, metadata, entities, links, crawl_depth, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal metadata for %s: %w", rec.URL, err)
		}
		entities, err := json.Marshal(nonNilStrings(rec.Entities))
		if err != nil {
			return "", fmt.Errorf("failed to marshal entities for %s: %w", rec.URL, err)
		}
		links, err := json.Marshal(nonNilStrings(rec.Links))
		if err != nil {
			return "", fmt.Errorf("failed to marshal links for %s: %w", rec.URL, err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, i, rec.URL, rec.Title, rec.Content,
			string(meta), string(entities), string(links),
			rec.CrawlDepth, rec.Timestamp.UTC(),
		); err != nil {
			return "", fmt.Errorf("failed to insert page %s: %w", rec.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// Records returns the pages of a run in the order they were persisted
func (s *SQLiteStore) Records(ctx context.Context, runID string) ([]models.PageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, content, metadata, entities, links, crawl_depth, timestamp
		FROM pages WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	records := []models.PageRecord{}
	for rows.Next() {
		var (
			rec                   models.PageRecord
			meta, entities, links string
		)
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.Content, &meta, &entities, &links, &rec.CrawlDepth, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", rec.URL, err)
		}
		if err := json.Unmarshal([]byte(entities), &rec.Entities); err != nil {
			return nil, fmt.Errorf("failed to decode entities for %s: %w", rec.URL, err)
		}
		if err := json.Unmarshal([]byte(links), &rec.Links); err != nil {
			return nil, fmt.Errorf("failed to decode links for %s: %w", rec.URL, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunCount returns the number of persisted runs
func (s *SQLiteStore) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
