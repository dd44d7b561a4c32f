package media

import "testing"

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		file     string
		want     bool
	}{
		{"temp files always ignored", nil, ".tmp-12345", true},
		{"plain file kept", nil, "photo.jpg", false},
		{"glob matches", []string{"*.part"}, "voice.m4a.part", true},
		{"glob does not match other extension", []string{"*.part"}, "voice.m4a", false},
		{"exact name", []string{".DS_Store"}, ".DS_Store", true},
		{"comments and blanks skipped", []string{"", "# *.jpg"}, "photo.jpg", false},
		{"bad pattern skipped", []string{"[", "*.log"}, "x.log", true},
		{"matches basename of nested name", []string{"*.log"}, "sub/x.log", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.file); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}
