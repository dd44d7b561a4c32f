// Package picker selects the file an import reads from. On a terminal
// there is no system file dialog, so a path comes from a flag or a prompt.
package picker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"agriledger/internal/encryption"
	"agriledger/internal/ledger"
)

// PathPicker returns a fixed path. An empty path behaves like a dismissed
// picker.
type PathPicker struct {
	Path string
}

func NewPathPicker(path string) *PathPicker {
	return &PathPicker{Path: path}
}

func (p *PathPicker) Pick(ctx context.Context, accept []string) (*ledger.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return selectPath(p.Path, accept)
}

// PromptPicker asks for a path on out and reads one line from in.
// A blank line cancels.
type PromptPicker struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptPicker(in io.Reader, out io.Writer) *PromptPicker {
	return &PromptPicker{in: bufio.NewReader(in), out: out}
}

func (p *PromptPicker) Pick(ctx context.Context, accept []string) (*ledger.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fmt.Fprint(p.out, "Backup file to import (blank to cancel): ")
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading path: %w", err)
	}
	return selectPath(strings.TrimSpace(line), accept)
}

func selectPath(path string, accept []string) (*ledger.Selection, error) {
	if path == "" {
		return &ledger.Selection{Canceled: true}, nil
	}
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	contentType, err := DetectContentType(abs)
	if err != nil {
		return nil, err
	}
	if len(accept) > 0 && !slices.Contains(accept, contentType) {
		return nil, fmt.Errorf("%w: %s (%s)", ledger.ErrUnsupportedFile, filepath.Base(abs), contentType)
	}

	return &ledger.Selection{
		Path:        abs,
		Name:        filepath.Base(abs),
		ContentType: contentType,
	}, nil
}

// DetectContentType classifies a backup candidate. Sealed headers are
// checked first, then file content, then the extension.
func DetectContentType(path string) (string, error) {
	head, err := readHead(path, 64)
	if err != nil {
		return "", err
	}
	if encryption.LooksSealed(head) {
		return ledger.ContentTypeSealed, nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting type of %s: %w", path, err)
	}
	switch {
	case mt.Is(ledger.ContentTypeZip):
		return ledger.ContentTypeZip, nil
	case mt.Is(ledger.ContentTypeJSON):
		return ledger.ContentTypeJSON, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ledger.ContentTypeJSON, nil
	case ".zip":
		return ledger.ContentTypeZip, nil
	case ledger.ArchiveExtension:
		return ledger.ContentTypeSealed, nil
	}
	return mt.String(), nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return buf[:read], nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

var (
	_ ledger.Picker = (*PathPicker)(nil)
	_ ledger.Picker = (*PromptPicker)(nil)
)
