package ledger

import (
	"context"
	"encoding/json"

	"agriledger/internal/model"
)

// LoadStatus tells callers how a document load went.
type LoadStatus int

const (
	// LoadOK means the document file was read and parsed.
	LoadOK LoadStatus = iota
	// LoadRecovered means the file was missing or unparseable and a
	// default document was substituted.
	LoadRecovered
	// LoadFatal means the file could not be read at all.
	LoadFatal
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadRecovered:
		return "recovered"
	default:
		return "fatal"
	}
}

// LoadResult is the outcome of DocumentStore.Load. Doc is always non-nil
// unless Status is LoadFatal. Err carries the parse error for a recovered
// load so that "empty because new" and "empty because corrupt" differ.
type LoadResult struct {
	Doc    *model.Document
	Status LoadStatus
	Err    error
}

// DocumentStore owns the single JSON document. Every mutator performs a
// full load-modify-write cycle; concurrent callers are serialized.
//
// String collections (workers, taxonomy lists) are addressed with an empty
// idField: the item itself is the identity.
type DocumentStore interface {
	// Initialize ensures the media directory and the document file exist,
	// writing a default document when the file is absent. Idempotent.
	Initialize(ctx context.Context) error

	// Load reads and parses the document, degrading to a default document
	// on parse failure.
	Load(ctx context.Context) LoadResult

	// GetCollection returns the named collection, or an empty one when the
	// key is absent. It never writes.
	GetCollection(ctx context.Context, name string) ([]json.RawMessage, error)

	// SetCollection replaces the named collection wholesale.
	SetCollection(ctx context.Context, name string, items []json.RawMessage) error

	// Append inserts item at the front of the named collection and returns
	// the updated collection.
	Append(ctx context.Context, name string, item json.RawMessage) ([]json.RawMessage, error)

	// UpdateByID merges patch into the first item whose idField equals
	// idValue. Other items pass through unchanged.
	UpdateByID(ctx context.Context, name, idField, idValue string, patch map[string]any) ([]json.RawMessage, error)

	// RemoveByID drops every item whose idField equals idValue.
	RemoveByID(ctx context.Context, name, idField, idValue string) ([]json.RawMessage, error)

	// Mutate runs fn against the loaded document and writes the result in
	// the same locked cycle. Nothing is written if fn returns an error.
	Mutate(ctx context.Context, fn func(doc *model.Document) error) error

	// ReadRaw returns the document file bytes verbatim.
	ReadRaw(ctx context.Context) ([]byte, error)

	// ReplaceRaw overwrites the document file with content verbatim.
	ReplaceRaw(ctx context.Context, content []byte) error
}
