package ledger

import "errors"

var (
	// ErrInvalidInput is returned when a caller passes a value the ledger
	// refuses to store (non-positive amount, unknown type, blank name).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when an addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when adding a name that already exists.
	ErrDuplicate = errors.New("already exists")

	// ErrSourceNotFound is returned by MediaStore.Save when the source file
	// is missing.
	ErrSourceNotFound = errors.New("media source not found")

	// ErrShareUnavailable is returned when no share target is configured.
	ErrShareUnavailable = errors.New("sharing is not available")

	// ErrInvalidBackup is returned when an imported file lacks the
	// minimum document shape. The live document is left untouched.
	ErrInvalidBackup = errors.New("invalid backup")

	// ErrUnsupportedFile is returned when the picked file is neither a
	// JSON document nor an archive.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrPassphraseRequired is returned when a sealed archive is imported
	// without a way to unlock it.
	ErrPassphraseRequired = errors.New("archive is sealed and no passphrase was provided")

	// ErrPartialRestore is returned when the merged document was written
	// but some media files could not be copied.
	ErrPartialRestore = errors.New("restore completed with media errors")
)

// errNoChange aborts a Mutate cycle that has nothing to write.
var errNoChange = errors.New("no change")
