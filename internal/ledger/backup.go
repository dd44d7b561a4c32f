package ledger

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"agriledger/internal/model"
)

// ArchiveExtension is appended to sealed archive names.
const ArchiveExtension = ".age"

// ExportResult describes a produced backup archive.
type ExportResult struct {
	Path       string
	Name       string
	Size       int64
	MediaCount int
	Sealed     bool
}

// ArchiveName returns the backup file name for the given time.
func ArchiveName(t time.Time) string {
	return "AgriLedger_Backup_" + t.Format("2006-01-02") + ".zip"
}

// Export packages the document and every media file into a zip archive in
// the cache directory and hands it to the sharer. When an encryptor is
// configured the archive is sealed and gets the .age extension.
func (s *LedgerService) Export(ctx context.Context) (*ExportResult, error) {
	if s.sharer == nil || !s.sharer.Available(ctx) {
		return nil, ErrShareUnavailable
	}

	doc, err := s.documents.ReadRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	names, err := s.media.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}

	sealed := s.encryptor != nil
	name := ArchiveName(s.clock.Now())
	if sealed {
		name += ArchiveExtension
	}

	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	path := filepath.Join(s.cacheDir, name)

	if err := s.writeArchiveFile(ctx, path, doc, names, sealed); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive size: %w", err)
	}

	s.logger.Info("archive created", "path", path, "media", len(names), "sealed", sealed, "size", info.Size())

	if err := s.sharer.Share(ctx, path, name); err != nil {
		return nil, fmt.Errorf("sharing archive: %w", err)
	}

	return &ExportResult{
		Path:       path,
		Name:       name,
		Size:       info.Size(),
		MediaCount: len(names),
		Sealed:     sealed,
	}, nil
}

// writeArchiveFile writes the archive to a temp file next to path and
// renames it into place, so a failed export never leaves a truncated
// archive under the final name.
func (s *LedgerService) writeArchiveFile(ctx context.Context, path string, doc []byte, names []string, sealed bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-archive-*")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if sealed {
		err = s.writeSealed(ctx, tmp, doc, names)
	} else {
		err = s.writeArchive(ctx, tmp, doc, names)
	}
	if err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming archive: %w", err)
	}
	return nil
}

// writeSealed streams the zip through the encryptor.
func (s *LedgerService) writeSealed(ctx context.Context, w io.Writer, doc []byte, names []string) error {
	pr, pw := io.Pipe()
	zipErrCh := make(chan error, 1)
	go func() {
		err := s.writeArchive(ctx, pw, doc, names)
		pw.CloseWithError(err)
		zipErrCh <- err
	}()

	encryptErr := s.encryptor.Encrypt(pr, w)
	pr.CloseWithError(encryptErr) // unblock the writer if Encrypt stopped early
	zipErr := <-zipErrCh

	if zipErr != nil {
		return zipErr
	}
	if encryptErr != nil {
		return fmt.Errorf("sealing archive: %w", encryptErr)
	}
	return nil
}

// writeArchive writes db.json, the media/ directory entry and every media
// file byte-for-byte.
func (s *LedgerService) writeArchive(ctx context.Context, w io.Writer, doc []byte, names []string) error {
	zw := zip.NewWriter(w)
	now := s.clock.Now()

	f, err := zw.CreateHeader(&zip.FileHeader{Name: model.DocumentFileName, Method: zip.Deflate, Modified: now})
	if err != nil {
		return fmt.Errorf("adding %s: %w", model.DocumentFileName, err)
	}
	if _, err := f.Write(doc); err != nil {
		return fmt.Errorf("writing %s: %w", model.DocumentFileName, err)
	}

	if _, err := zw.CreateHeader(&zip.FileHeader{Name: model.MediaDirName + "/", Modified: now}); err != nil {
		return fmt.Errorf("adding media directory: %w", err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.addMediaEntry(zw, name, now); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

func (s *LedgerService) addMediaEntry(zw *zip.Writer, name string, modified time.Time) error {
	src, err := s.media.Open(name)
	if err != nil {
		return fmt.Errorf("opening media %s: %w", name, err)
	}
	defer src.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     model.MediaDirName + "/" + name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("adding media %s: %w", name, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("writing media %s: %w", name, err)
	}
	return nil
}
