package ledger

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"agriledger/internal/model"
)

// RestoreOutcome tells the caller whether the live data changed.
type RestoreOutcome int

const (
	// OutcomeUnchanged means nothing was written (picker dismissed).
	OutcomeUnchanged RestoreOutcome = iota
	// OutcomeReplaced means a legacy JSON file overwrote the document.
	OutcomeReplaced
	// OutcomeMerged means an archive was merged into the live data.
	OutcomeMerged
)

func (o RestoreOutcome) String() string {
	switch o {
	case OutcomeReplaced:
		return "replaced"
	case OutcomeMerged:
		return "merged"
	default:
		return "unchanged"
	}
}

// ImportResult describes the effect of an Import.
type ImportResult struct {
	Outcome      RestoreOutcome
	Source       string
	Sealed       bool
	Merge        MergeStats
	MediaWritten int
	MediaSkipped int
	MediaFailed  int
}

// Import asks picker for a backup and applies it.
//
// A .json file replaces the live document wholesale. A zip archive is
// merged into the live data: records are added by id, lists are unioned
// and media files are copied only when no local file has the same name.
// unlock is called only when the picked file is sealed.
func (s *LedgerService) Import(ctx context.Context, picker Picker, unlock UnlockFunc) (*ImportResult, error) {
	sel, err := picker.Pick(ctx, RestoreContentTypes)
	if err != nil {
		return nil, fmt.Errorf("picking backup: %w", err)
	}
	if sel == nil || sel.Canceled {
		s.logger.Info("import canceled")
		return &ImportResult{Outcome: OutcomeUnchanged}, nil
	}

	result := &ImportResult{Source: sel.Name}
	src, name := sel.Path, sel.Name

	if isSealed(sel) {
		if unlock == nil {
			return nil, ErrPassphraseRequired
		}
		plain, err := s.decryptToTemp(src, unlock)
		if err != nil {
			return nil, err
		}
		defer os.Remove(plain)
		src, name = plain, strings.TrimSuffix(name, ArchiveExtension)
		result.Sealed = true
	}

	if isJSONName(name) || (!result.Sealed && sel.ContentType == ContentTypeJSON) {
		if err := s.restoreDocument(ctx, src); err != nil {
			return nil, err
		}
		result.Outcome = OutcomeReplaced
		s.logger.Info("document replaced from backup", "source", sel.Name)
		return result, nil
	}

	if !result.Sealed && !isArchiveType(sel.ContentType) && !strings.HasSuffix(strings.ToLower(name), ".zip") {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFile, sel.Name, sel.ContentType)
	}

	if err := s.restoreArchive(ctx, src, result); err != nil {
		return result, err
	}
	return result, nil
}

// restoreDocument is the legacy single-file restore: the file must look
// like a ledger document and then overwrites db.json verbatim.
func (s *LedgerService) restoreDocument(ctx context.Context, src string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if !doc.HasKey(model.PaymentTypes) || !doc.HasKey(model.Payments) {
		return fmt.Errorf("%w: missing %s or %s", ErrInvalidBackup, model.PaymentTypes, model.Payments)
	}

	if err := s.documents.ReplaceRaw(ctx, content); err != nil {
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}

// restoreArchive merges the archive's document and then its media. The
// document write happens first; media failures after it are reported as
// ErrPartialRestore with the merged document already in place.
func (s *LedgerService) restoreArchive(ctx context.Context, src string, result *ImportResult) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: opening archive: %v", ErrInvalidBackup, err)
	}
	defer zr.Close()

	imported, err := readArchiveDocument(&zr.Reader)
	if err != nil {
		return err
	}
	NormalizeGeneration(imported)

	err = s.documents.Mutate(ctx, func(live *model.Document) error {
		NormalizeGeneration(live)
		merged, stats := MergeDocuments(live, imported)
		*live = *merged
		result.Merge = stats
		return nil
	})
	if err != nil {
		return fmt.Errorf("merging document: %w", err)
	}
	result.Outcome = OutcomeMerged
	s.logger.Info("document merged from backup", "added", result.Merge.TotalAdded())

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		base, ok := mediaEntryName(f)
		if !ok {
			continue
		}
		written, err := s.restoreMediaEntry(ctx, f, base)
		switch {
		case err != nil:
			result.MediaFailed++
			s.logger.Error("restoring media failed", "name", f.Name, "error", err)
		case written:
			result.MediaWritten++
		default:
			result.MediaSkipped++
		}
	}

	s.logger.Info("media restored", "written", result.MediaWritten, "skipped", result.MediaSkipped, "failed", result.MediaFailed)
	if result.MediaFailed > 0 {
		total := result.MediaWritten + result.MediaSkipped + result.MediaFailed
		return fmt.Errorf("%w: %d of %d media files failed", ErrPartialRestore, result.MediaFailed, total)
	}
	return nil
}

func (s *LedgerService) restoreMediaEntry(ctx context.Context, f *zip.File, base string) (bool, error) {
	rc, err := f.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()
	return s.media.WriteIfAbsent(ctx, base, rc)
}

// readArchiveDocument reads and validates db.json from the archive root.
func readArchiveDocument(zr *zip.Reader) (*model.Document, error) {
	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == model.DocumentFileName {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no %s in archive", ErrInvalidBackup, model.DocumentFileName)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrInvalidBackup, model.DocumentFileName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidBackup, model.DocumentFileName, err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if !doc.HasKey(model.PaymentTypes) {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidBackup, model.PaymentTypes)
	}
	return &doc, nil
}

// mediaEntryName returns the basename of a file entry under media/.
func mediaEntryName(f *zip.File) (string, bool) {
	if !strings.HasPrefix(f.Name, model.MediaDirName+"/") || f.FileInfo().IsDir() {
		return "", false
	}
	base := path.Base(f.Name)
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", false
	}
	return base, true
}

// decryptToTemp decrypts a sealed archive into the cache directory.
func (s *LedgerService) decryptToTemp(src string, unlock UnlockFunc) (string, error) {
	dctx, err := unlock()
	if err != nil {
		return "", fmt.Errorf("unlocking archive key: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening sealed archive: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	out, err := os.CreateTemp(s.cacheDir, ".tmp-restore-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if err := dctx.Decrypt(in, out); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("decrypting archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("closing decrypted archive: %w", err)
	}
	return out.Name(), nil
}

func isSealed(sel *Selection) bool {
	return sel.ContentType == ContentTypeSealed || strings.HasSuffix(strings.ToLower(sel.Name), ArchiveExtension)
}

func isJSONName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

func isArchiveType(contentType string) bool {
	return contentType == ContentTypeZip || contentType == ContentTypeZipCompressed
}
