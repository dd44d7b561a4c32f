package ledger

import "context"

// Sharer hands a finished archive to wherever backups are sent.
type Sharer interface {
	// Available reports whether this target can accept a file.
	Available(ctx context.Context) bool

	// Share delivers the file at localPath under displayName. It returns
	// once the target has accepted the file.
	Share(ctx context.Context, localPath string, displayName string) error
}
