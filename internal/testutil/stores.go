package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"agriledger/internal/document"
	"agriledger/internal/history"
	"agriledger/internal/ledger"
	"agriledger/internal/media"
	"agriledger/internal/model"
)

// NewTestDocumentStore creates an initialized FileStore under a fresh temp
// dir with the default seed.
func NewTestDocumentStore(t *testing.T, clock ledger.Clock) *document.FileStore {
	t.Helper()
	store := document.NewFileStore(t.TempDir(), model.DefaultSeed(), clock, ledger.NewNopLogger())
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initializing document store: %v", err)
	}
	return store
}

// NewTestMediaStore creates a media store rooted at root.
func NewTestMediaStore(t *testing.T, root string) *media.FileSystemStore {
	t.Helper()
	return media.NewFileSystemStore(root, nil, ledger.NewNopLogger())
}

// NewTestHistory creates an in-memory operation history, closed when the
// test completes.
func NewTestHistory(t *testing.T) ledger.History {
	t.Helper()
	h, err := history.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

// WriteFile creates dir/name with content and returns its absolute path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}
