package share

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"agriledger/internal/ledger"
)

// FileSystemSharer copies archives into a directory, such as a synced
// folder or a mounted USB drive.
type FileSystemSharer struct {
	dir    string
	logger ledger.Logger
}

// NewFileSystemSharer creates a sharer that writes into dir.
func NewFileSystemSharer(dir string, logger ledger.Logger) *FileSystemSharer {
	return &FileSystemSharer{dir: dir, logger: logger}
}

// Available reports whether the target directory exists or can be created.
func (s *FileSystemSharer) Available(context.Context) bool {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Warn("share directory unavailable", "dir", s.dir, "error", err)
		return false
	}
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Share copies localPath to <dir>/<displayName>, replacing an older copy
// of the same name.
func (s *FileSystemSharer) Share(ctx context.Context, localPath, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(s.dir, filepath.Base(displayName))
	if err := writeFile(destPath, src); err != nil {
		return err
	}
	s.logger.Info("archive shared", "path", destPath)
	return nil
}

// writeFile writes data from r to destPath using atomic write (temp file + rename).
func writeFile(destPath string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
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

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ ledger.Sharer = (*FileSystemSharer)(nil)
