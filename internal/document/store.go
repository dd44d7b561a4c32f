package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
)

// errUnchanged aborts a write cycle that found nothing to change.
var errUnchanged = errors.New("unchanged")

// FileStore keeps the ledger document as a single JSON file:
//
//	<root>/
//	  db.json
//	  media/
//
// Every mutator is a full load-modify-write cycle. Cycles are serialized
// by a single-slot semaphore and each write replaces the file atomically,
// so readers never see a partial document.
type FileStore struct {
	root     string
	path     string
	mediaDir string
	seed     model.Seed
	clock    ledger.Clock
	logger   ledger.Logger
	lock     *semaphore.Weighted
}

// NewFileStore creates a store rooted at root. Nothing is touched on disk
// until Initialize or the first write.
func NewFileStore(root string, seed model.Seed, clock ledger.Clock, logger ledger.Logger) *FileStore {
	return &FileStore{
		root:     root,
		path:     filepath.Join(root, model.DocumentFileName),
		mediaDir: filepath.Join(root, model.MediaDirName),
		seed:     seed,
		clock:    clock,
		logger:   logger,
		lock:     semaphore.NewWeighted(1),
	}
}

// Path returns the location of the document file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}

	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lock.Release(1)

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking document: %w", err)
	}

	s.logger.Info("writing default document", "path", s.path)
	return s.write(model.DefaultDocument(s.clock.Now(), s.seed))
}

func (s *FileStore) Load(ctx context.Context) ledger.LoadResult {
	if err := ctx.Err(); err != nil {
		return ledger.LoadResult{Status: ledger.LoadFatal, Err: err}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ledger.LoadResult{Doc: s.defaultDocument(), Status: ledger.LoadRecovered}
		}
		return ledger.LoadResult{Status: ledger.LoadFatal, Err: fmt.Errorf("reading document: %w", err)}
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ledger.LoadResult{
			Doc:    s.defaultDocument(),
			Status: ledger.LoadRecovered,
			Err:    fmt.Errorf("parsing %s: %w", model.DocumentFileName, err),
		}
	}
	// A verbatim restore can leave an older document generation on disk.
	ledger.NormalizeGeneration(&doc)
	return ledger.LoadResult{Doc: &doc, Status: ledger.LoadOK}
}

func (s *FileStore) GetCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	result := s.Load(ctx)
	switch {
	case result.Status == ledger.LoadFatal:
		return nil, result.Err
	case result.Err != nil:
		s.logger.Warn("document unreadable, using defaults", "path", s.path, "error", result.Err)
	}
	return result.Doc.Collection(name), nil
}

func (s *FileStore) SetCollection(ctx context.Context, name string, items []json.RawMessage) error {
	return s.Mutate(ctx, func(doc *model.Document) error {
		doc.SetCollection(name, items)
		return nil
	})
}

func (s *FileStore) Append(ctx context.Context, name string, item json.RawMessage) ([]json.RawMessage, error) {
	var updated []json.RawMessage
	err := s.Mutate(ctx, func(doc *model.Document) error {
		current := doc.Collection(name)
		updated = make([]json.RawMessage, 0, len(current)+1)
		updated = append(updated, item)
		updated = append(updated, current...)
		doc.SetCollection(name, updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *FileStore) UpdateByID(ctx context.Context, name, idField, idValue string, patch map[string]any) ([]json.RawMessage, error) {
	var updated []json.RawMessage
	err := s.Mutate(ctx, func(doc *model.Document) error {
		updated = doc.Collection(name)
		for i, raw := range updated {
			if key, ok := model.ItemKey(raw, idField); !ok || key != idValue {
				continue
			}
			merged, err := model.MergeObject(raw, patch)
			if err != nil {
				return fmt.Errorf("updating %s item %s: %w", name, idValue, err)
			}
			updated[i] = merged
			doc.SetCollection(name, updated)
			return nil
		}
		return errUnchanged
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}
	return updated, nil
}

func (s *FileStore) RemoveByID(ctx context.Context, name, idField, idValue string) ([]json.RawMessage, error) {
	var updated []json.RawMessage
	err := s.Mutate(ctx, func(doc *model.Document) error {
		current := doc.Collection(name)
		updated = make([]json.RawMessage, 0, len(current))
		for _, raw := range current {
			if key, ok := model.ItemKey(raw, idField); ok && key == idValue {
				continue
			}
			updated = append(updated, raw)
		}
		if len(updated) == len(current) {
			updated = current
			return errUnchanged
		}
		doc.SetCollection(name, updated)
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}
	return updated, nil
}

func (s *FileStore) Mutate(ctx context.Context, fn func(doc *model.Document) error) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lock.Release(1)

	result := s.Load(ctx)
	if result.Status == ledger.LoadFatal {
		return result.Err
	}

	if err := fn(result.Doc); err != nil {
		return err
	}

	if result.Status == ledger.LoadRecovered && result.Err != nil {
		if err := s.preserveCorrupt(); err != nil {
			return err
		}
	}
	return s.write(result.Doc)
}

func (s *FileStore) ReadRaw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return json.Marshal(s.defaultDocument())
		}
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return data, nil
}

func (s *FileStore) ReplaceRaw(ctx context.Context, content []byte) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lock.Release(1)
	return s.writeFile(content)
}

func (s *FileStore) defaultDocument() *model.Document {
	return model.DefaultDocument(s.clock.Now(), s.seed)
}

// preserveCorrupt moves an unparseable document aside before it is
// overwritten, as db.json.corrupt-<timestamp>.
func (s *FileStore) preserveCorrupt() error {
	dest := s.path + ".corrupt-" + s.clock.Now().UTC().Format("20060102T150405Z")
	if err := os.Rename(s.path, dest); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("preserving corrupt document: %w", err)
	}
	s.logger.Warn("corrupt document preserved", "path", dest)
	return nil
}

func (s *FileStore) write(doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return s.writeFile(data)
}

// writeFile replaces the document file atomically (temp file + fsync +
// rename in the same directory).
func (s *FileStore) writeFile(data []byte) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync document: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ ledger.DocumentStore = (*FileStore)(nil)
