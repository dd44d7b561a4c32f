package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Archive describes a backup archive to build in a test.
type Archive struct {
	Document string            // db.json content; empty omits the entry
	Media    map[string][]byte // basename -> content
	Extra    map[string][]byte // arbitrary entry name -> content
}

// Bytes renders the archive.
func (a Archive) Bytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, content []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	if a.Document != "" {
		add("db.json", []byte(a.Document))
	}
	if len(a.Media) > 0 {
		if _, err := zw.Create("media/"); err != nil {
			t.Fatalf("adding media dir: %v", err)
		}
	}
	for _, name := range sortedKeys(a.Media) {
		add("media/"+name, a.Media[name])
	}
	for _, name := range sortedKeys(a.Extra) {
		add(name, a.Extra[name])
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

// Write renders the archive to dir/name and returns the path.
func (a Archive) Write(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, a.Bytes(t), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

// ReadArchive returns every file entry of a zip by name.
func ReadArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		var b bytes.Buffer
		if _, err := b.ReadFrom(rc); err != nil {
			rc.Close()
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = b.Bytes()
	}
	return out
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
