package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"agriledger/internal/model"
)

// LedgerService is the orchestration layer the CLI (and any other front end)
// talks to. It owns the domain rules that sit on top of the generic
// collection primitives: validation, cascades across denormalized names,
// backup and restore.
type LedgerService struct {
	documents DocumentStore
	media     MediaStore
	sharer    Sharer
	encryptor Encryptor
	history   History
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	cacheDir  string
}

// NewLedgerService creates a LedgerService with the provided dependencies.
// encryptor may be nil, in which case exported archives are not sealed.
// cacheDir is where archives are assembled before they are shared.
func NewLedgerService(documents DocumentStore, media MediaStore, sharer Sharer, encryptor Encryptor, history History, logger Logger, clock Clock, idgen IDGenerator, cacheDir string) *LedgerService {
	return &LedgerService{
		documents: documents,
		media:     media,
		sharer:    sharer,
		encryptor: encryptor,
		history:   history,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		cacheDir:  cacheDir,
	}
}

// Initialize prepares the data directory. Safe to call before every command.
func (s *LedgerService) Initialize(ctx context.Context) error {
	if err := s.documents.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing document store: %w", err)
	}
	return nil
}

// DocumentStatus reports whether the live document loads cleanly.
func (s *LedgerService) DocumentStatus(ctx context.Context) LoadResult {
	return s.documents.Load(ctx)
}

// ResolveMedia returns the absolute location of a stored media reference.
func (s *LedgerService) ResolveMedia(relativeID string) string {
	return s.media.Resolve(relativeID)
}

// decodeAll decodes the items of a collection, skipping items that do not
// fit T instead of failing the whole listing.
func decodeAll[T any](logger Logger, name string, items []json.RawMessage) []T {
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warn("skipping unreadable item", "collection", name, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// stringSet reads a string collection from a loaded document.
func stringSet(doc *model.Document, name string) ([]string, error) {
	values, err := doc.Strings(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return values, nil
}

// cleanName trims a user-supplied name and rejects blanks.
func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is empty", ErrInvalidInput, kind)
	}
	return name, nil
}

// renameInList replaces oldName with newName in a string set.
func renameInList(kind string, values []string, oldName, newName string) ([]string, error) {
	if !slices.Contains(values, oldName) {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, oldName)
	}
	if oldName != newName && slices.Contains(values, newName) {
		return nil, fmt.Errorf("%w: %s %q", ErrDuplicate, kind, newName)
	}
	out := make([]string, len(values))
	for i, v := range values {
		if v == oldName {
			v = newName
		}
		out[i] = v
	}
	return out, nil
}

// cascadeField rewrites field from one value to another on every object
// item. Items are patched in place so unrelated fields, including legacy
// ones, are preserved. It returns the number of items changed.
func cascadeField(items []json.RawMessage, field, from, to string) ([]json.RawMessage, int, error) {
	out := make([]json.RawMessage, len(items))
	changed := 0
	for i, raw := range items {
		out[i] = raw
		value, ok := model.ItemKey(raw, field)
		if !ok || value != from {
			continue
		}
		patched, err := model.MergeObject(raw, map[string]any{field: to})
		if err != nil {
			return nil, 0, fmt.Errorf("patching item %d: %w", i, err)
		}
		out[i] = patched
		changed++
	}
	return out, changed, nil
}

// dropMatching removes every object item whose field equals value.
func dropMatching(items []json.RawMessage, field, value string) ([]json.RawMessage, int) {
	out := make([]json.RawMessage, 0, len(items))
	for _, raw := range items {
		if v, ok := model.ItemKey(raw, field); ok && v == value {
			continue
		}
		out = append(out, raw)
	}
	return out, len(items) - len(out)
}

// containsID reports whether any item carries the given id.
func containsID(items []json.RawMessage, id string) bool {
	for _, raw := range items {
		if v, ok := model.ItemKey(raw, "id"); ok && v == id {
			return true
		}
	}
	return false
}
