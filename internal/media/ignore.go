package media

import (
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns are always applied. Temp files from an
// interrupted atomic write must never end up in an archive.
var defaultIgnorePatterns = []string{".tmp-*"}

// IgnoreMatcher checks media file names against glob patterns. The media
// directory is flat, so patterns match the basename only.
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings plus
// the default patterns. Blank lines and lines starting with '#' are
// skipped, as are patterns filepath.Match rejects.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []string
	for _, raw := range append(append([]string(nil), defaultIgnorePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if _, err := filepath.Match(raw, ""); err != nil {
			continue
		}
		patterns = append(patterns, raw)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether name should be left out of listings.
func (m *IgnoreMatcher) Match(name string) bool {
	base := filepath.Base(name)
	for _, p := range m.patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
