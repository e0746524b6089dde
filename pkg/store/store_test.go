package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

func sampleRecords(t *testing.T) []models.PageRecord {
	t.Helper()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	home, err := models.NewPageRecord("https://ex.test/", "Home", "welcome",
		models.Metadata{URL: "https://ex.test/", Title: "Home", ContentType: "text/html"},
		[]string{"ISRO"}, []string{"https://ex.test/a"}, 0, ts)
	require.NoError(t, err)
	child, err := models.NewPageRecord("https://ex.test/a", "A", "child page",
		models.Metadata{URL: "https://ex.test/a", Title: "A", Keywords: []string{"x", "y"}},
		nil, nil, 1, ts.Add(time.Second))
	require.NoError(t, err)
	return []models.PageRecord{home, child}
}

func TestJSONFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "crawled_data.json")
	s := NewJSONFileStore(path)
	records := sampleRecords(t)

	require.NoError(t, s.Persist(context.Background(), records))
	require.NoError(t, s.Close())

	loaded, err := LoadJSON(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "https://ex.test/", loaded[0].URL)
	assert.Equal(t, []string{"x", "y"}, loaded[1].Metadata.Keywords)
	assert.True(t, records[1].Timestamp.Equal(loaded[1].Timestamp))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestJSONFileStoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, NewJSONFileStore(path).Persist(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestJSONFileStoreReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	records := sampleRecords(t)
	require.NoError(t, NewJSONFileStore(path).Persist(context.Background(), records[:1]))

	loaded, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestJSONFileStoreUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := NewJSONFileStore(filepath.Join(blocker, "out.json")).Persist(context.Background(), sampleRecords(t))
	assert.Error(t, err)
}

func TestLoadJSONErrors(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadJSON(bad)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "corpus.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	records := sampleRecords(t)

	runID, err := s.PersistRun(ctx, records)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	require.NoError(t, s.Persist(ctx, records[:1]))

	n, err := s.RunCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := s.Records(ctx, runID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records[0].URL, loaded[0].URL)
	assert.Equal(t, records[0].Entities, loaded[0].Entities)
	assert.Equal(t, records[0].Links, loaded[0].Links)
	assert.Equal(t, "text/html", loaded[0].Metadata.ContentType)
	assert.Equal(t, []string{}, loaded[1].Entities)
	assert.Equal(t, 1, loaded[1].CrawlDepth)
	assert.True(t, records[1].Timestamp.Equal(loaded[1].Timestamp))
}

func TestSQLiteStoreRejectsDuplicateURLAtomically(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	defer s.Close()

	records := sampleRecords(t)
	dup := append(records, records[0])

	ctx := context.Background()
	assert.Error(t, s.Persist(ctx, dup))

	n, err := s.RunCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// fakeS3 accepts bucket checks and object uploads
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if r.Method == http.MethodPut {
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	}
	w.WriteHeader(http.StatusOK)
}

func TestS3StorePersist(t *testing.T) {
	fake := &fakeS3{}
	server := httptest.NewServer(fake)
	defer server.Close()

	s, err := NewS3Store(config.S3Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		Bucket:    "corpus",
		Key:       "crawl/crawled_data.json",
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "crawl/crawled_data.json", s.Key())

	require.NoError(t, s.Persist(context.Background(), sampleRecords(t)))
	require.NoError(t, s.Close())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.requests, "PUT /corpus/crawl/crawled_data.json")
	assert.True(t, strings.HasPrefix(fake.requests[0], "HEAD /corpus"))
}

func TestNewS3StoreValidation(t *testing.T) {
	_, err := NewS3Store(config.S3Config{Bucket: "corpus"})
	assert.Error(t, err)

	s, err := NewS3Store(config.S3Config{Endpoint: "localhost:9000", Bucket: "corpus"})
	require.NoError(t, err)
	assert.Equal(t, "crawled_data.json", s.Key())
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(config.StorageConfig{Type: "file", Path: filepath.Join(dir, "a.json")})
	require.NoError(t, err)
	assert.IsType(t, &JSONFileStore{}, s)

	s, err = New(config.StorageConfig{Type: "sqlite", Path: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = New(config.StorageConfig{Type: "s3", S3: config.S3Config{Endpoint: "localhost:9000", Bucket: "b"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s)

	_, err = New(config.StorageConfig{Type: "redis"})
	assert.ErrorIs(t, err, ErrUnknownStorage)
}

func TestNewAcceptsExactlyTheValidatedTypes(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := config.Load(nil, "")
	require.NoError(t, err)

	for _, typ := range []string{config.StorageFile, config.StorageSQLite, config.StorageS3, "json", "", "tape"} {
		t.Run("type="+typ, func(t *testing.T) {
			cfg := *base
			cfg.Storage.Type = typ
			cfg.Storage.Path = filepath.Join(t.TempDir(), "corpus")
			cfg.Storage.S3.Endpoint = "localhost:9000"
			cfg.Storage.S3.Bucket = "corpus"

			validateErr := cfg.Validate()
			s, newErr := New(cfg.Storage)
			if s != nil {
				require.NoError(t, s.Close())
			}
			assert.Equal(t, validateErr == nil, newErr == nil, "Validate: %v, New: %v", validateErr, newErr)
		})
	}
}
