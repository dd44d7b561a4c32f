package ledger

import "context"

// Content types understood by the restore path.
const (
	ContentTypeJSON          = "application/json"
	ContentTypeZip           = "application/zip"
	ContentTypeZipCompressed = "application/x-zip-compressed"
	ContentTypeSealed        = "application/age"
)

// RestoreContentTypes is the filter handed to the picker on import.
var RestoreContentTypes = []string{
	ContentTypeZip,
	ContentTypeZipCompressed,
	ContentTypeJSON,
	ContentTypeSealed,
}

// Selection is the outcome of a file pick.
type Selection struct {
	Canceled    bool
	Path        string // local location of the picked file
	Name        string // original file name
	ContentType string
}

// Picker asks the user for a file to import.
type Picker interface {
	// Pick returns a selection restricted to the accepted content types.
	// A dismissed picker yields Selection{Canceled: true} and no error.
	Pick(ctx context.Context, accept []string) (*Selection, error)
}
