package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
)

// FileSystemStore keeps media files in <root>/media and hands out ids of
// the form "media/<filename>".
type FileSystemStore struct {
	root   string
	dir    string
	ignore *IgnoreMatcher
	logger ledger.Logger
}

// NewFileSystemStore creates a media store under the data root. ignore
// lists extra glob patterns left out of List.
func NewFileSystemStore(root string, ignore []string, logger ledger.Logger) *FileSystemStore {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &FileSystemStore{
		root:   root,
		dir:    filepath.Join(root, model.MediaDirName),
		ignore: NewIgnoreMatcher(ignore),
		logger: logger,
	}
}

// Dir returns the managed media directory.
func (s *FileSystemStore) Dir() string {
	return s.dir
}

func (s *FileSystemStore) Save(ctx context.Context, source string) (string, error) {
	if source == "" {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	srcPath, err := s.sourcePath(source)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ledger.ErrSourceNotFound, source)
		}
		return "", fmt.Errorf("checking media source: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("media source is a directory: %s", source)
	}

	name, existing, err := s.destName(srcPath)
	if err != nil {
		return "", err
	}
	id := model.MediaDirName + "/" + name
	if existing {
		return id, nil
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening media source: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}
	if err := s.writeFile(filepath.Join(s.dir, name), src); err != nil {
		return "", err
	}

	s.logger.Debug("media saved", "id", id, "source", source)
	return id, nil
}

func (s *FileSystemStore) Resolve(relativeID string) string {
	if relativeID == "" {
		return ""
	}
	return filepath.Join(s.root, filepath.FromSlash(relativeID))
}

func (s *FileSystemStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading media directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || s.ignore.Match(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileSystemStore) Open(name string) (io.ReadCloser, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("opening media %s: %w", name, err)
	}
	return f, nil
}

func (s *FileSystemStore) WriteIfAbsent(ctx context.Context, name string, r io.Reader) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}

	destPath := filepath.Join(s.dir, name)
	if _, err := os.Lstat(destPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking media %s: %w", name, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("creating media directory: %w", err)
	}
	if err := s.writeFile(destPath, r); err != nil {
		return false, err
	}
	return true, nil
}

// destName picks the media file name for srcPath, starting from its
// basename. existing is true when srcPath already is, or has the same
// content as, media/<name>. A name taken by different content gets a _N
// suffix before the extension.
func (s *FileSystemStore) destName(srcPath string) (string, bool, error) {
	name := filepath.Base(srcPath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 1; ; n++ {
		destPath := filepath.Join(s.dir, candidate)
		if srcPath == destPath {
			return candidate, true, nil
		}
		if _, err := os.Lstat(destPath); err != nil {
			if os.IsNotExist(err) {
				return candidate, false, nil
			}
			return "", false, fmt.Errorf("checking media %s: %w", candidate, err)
		}
		same, err := sameContent(srcPath, destPath)
		if err != nil {
			return "", false, err
		}
		if same {
			return candidate, true, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
}

// sameContent reports whether the files at a and b hold the same bytes.
func sameContent(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("opening media source: %w", err)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("opening media: %w", err)
	}
	defer fb.Close()

	ia, err := fa.Stat()
	if err != nil {
		return false, err
	}
	ib, err := fb.Stat()
	if err != nil {
		return false, err
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	bufA := make([]byte, 32*1024)
	bufB := make([]byte, 32*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		switch {
		case doneA || doneB:
			return doneA && doneB, nil
		case errA != nil:
			return false, errA
		case errB != nil:
			return false, errB
		}
	}
}

// sourcePath turns a save source into a clean absolute path. Accepted
// forms are file:// URIs, stored ids ("media/x.jpg") and filesystem paths.
func (s *FileSystemStore) sourcePath(source string) (string, error) {
	if strings.Contains(source, "://") {
		u, err := url.Parse(source)
		if err != nil {
			return "", fmt.Errorf("parsing media source: %w", err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("unsupported media source scheme %q", u.Scheme)
		}
		return filepath.Clean(filepath.FromSlash(u.Path)), nil
	}

	if strings.HasPrefix(source, model.MediaDirName+"/") {
		return filepath.Join(s.root, filepath.FromSlash(source)), nil
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolving media source: %w", err)
	}
	return abs, nil
}

// writeFile copies r to destPath atomically (temp file + rename).
func (s *FileSystemStore) writeFile(destPath string, r io.Reader) error {
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
		return fmt.Errorf("failed to write media: %w", err)
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

// cleanName reduces name to its basename and rejects empty and
// dot names.
func cleanName(name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid media name %q", name)
	}
	return base, nil
}

var _ ledger.MediaStore = (*FileSystemStore)(nil)
