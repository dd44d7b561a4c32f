package ledger

import (
	"context"
	"io"
)

// MediaStore keeps photos and voice notes in a single managed directory
// and hands out relative identifiers of the form "media/<filename>".
type MediaStore interface {
	// Save copies the file at source (an absolute path, a file:// URI or an
	// existing relative id) into the media directory and returns its
	// relative id. An empty source yields "" and no error. A missing
	// source yields ErrSourceNotFound. Saving a file that already lives in
	// the media directory under the same name performs no copy.
	Save(ctx context.Context, source string) (string, error)

	// Resolve joins the data root and a relative id. "" resolves to "".
	Resolve(relativeID string) string

	// List returns the names of all files in the media directory, sorted.
	List(ctx context.Context) ([]string, error)

	// Open opens a media file by name for reading.
	Open(name string) (io.ReadCloser, error)

	// WriteIfAbsent stores r under the basename of name unless a file of
	// that name already exists. Existing files are never overwritten.
	WriteIfAbsent(ctx context.Context, name string, r io.Reader) (written bool, err error)
}
