package media_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"agriledger/internal/ledger"
	"agriledger/internal/media"
)

func newStore(t *testing.T) (*media.FileSystemStore, string) {
	t.Helper()
	root := t.TempDir()
	return media.NewFileSystemStore(root, nil, ledger.NewNopLogger()), root
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	return path
}

func TestFileSystemStore_Save(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)
	src := writeSource(t, t.TempDir(), "receipt.jpg", "jpeg bytes")

	tests := []struct {
		name   string
		source string
	}{
		{"absolute path", src},
		{"file uri", "file://" + filepath.ToSlash(src)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := store.Save(ctx, tt.source)
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if id != "media/receipt.jpg" {
				t.Errorf("Save() = %q, want media/receipt.jpg", id)
			}
			got, err := os.ReadFile(filepath.Join(root, "media", "receipt.jpg"))
			if err != nil {
				t.Fatalf("reading stored file: %v", err)
			}
			if string(got) != "jpeg bytes" {
				t.Errorf("stored content = %q, want %q", got, "jpeg bytes")
			}
		})
	}
}

func TestFileSystemStore_Save_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)
	src := writeSource(t, t.TempDir(), "note.m4a", "audio")

	first, err := store.Save(ctx, src)
	if err != nil {
		t.Fatalf("first Save() error = %v", err)
	}

	for _, again := range []string{first, store.Resolve(first), "file://" + filepath.ToSlash(store.Resolve(first))} {
		id, err := store.Save(ctx, again)
		if err != nil {
			t.Fatalf("Save(%q) error = %v", again, err)
		}
		if id != first {
			t.Errorf("Save(%q) = %q, want %q", again, id, first)
		}
	}

	entries, err := os.ReadDir(filepath.Join(root, "media"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("media dir has %d entries, want 1", len(entries))
	}
}

func TestFileSystemStore_Save_NameTaken(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)

	first, err := store.Save(ctx, writeSource(t, t.TempDir(), "photo.jpg", "first"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		content string
		wantID  string
	}{
		{"same content reuses the file", "first", "media/photo.jpg"},
		{"different content gets a new name", "second", "media/photo_1.jpg"},
		{"next different content", "third", "media/photo_2.jpg"},
		{"content matching a suffixed file", "second", "media/photo_1.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := store.Save(ctx, writeSource(t, t.TempDir(), "photo.jpg", tt.content))
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if id != tt.wantID {
				t.Errorf("Save() = %q, want %q", id, tt.wantID)
			}
			got, err := os.ReadFile(store.Resolve(id))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.content {
				t.Errorf("%s = %q, want %q", id, got, tt.content)
			}
		})
	}

	if got, _ := os.ReadFile(filepath.Join(root, "media", "photo.jpg")); string(got) != "first" {
		t.Errorf("%s overwritten: %q", first, got)
	}
}

func TestFileSystemStore_Save_RelativeRoot(t *testing.T) {
	ctx := context.Background()
	t.Chdir(t.TempDir())
	store := media.NewFileSystemStore("data", nil, ledger.NewNopLogger())

	src := writeSource(t, t.TempDir(), "bill.jpg", "bill")
	first, err := store.Save(ctx, src)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !filepath.IsAbs(store.Dir()) {
		t.Errorf("Dir() = %q, want an absolute path", store.Dir())
	}

	stored := store.Resolve(first)
	before, err := os.Stat(stored)
	if err != nil {
		t.Fatal(err)
	}
	for _, again := range []string{stored, "file://" + filepath.ToSlash(stored), filepath.Join("data", "media", "bill.jpg")} {
		id, err := store.Save(ctx, again)
		if err != nil {
			t.Fatalf("Save(%q) error = %v", again, err)
		}
		if id != first {
			t.Errorf("Save(%q) = %q, want %q", again, id, first)
		}
	}

	after, err := os.Stat(stored)
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(before, after) {
		t.Error("re-saving a stored file replaced it")
	}
}

func TestFileSystemStore_Save_EmptyAndMissing(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	id, err := store.Save(ctx, "")
	if err != nil || id != "" {
		t.Errorf("Save(\"\") = (%q, %v), want (\"\", nil)", id, err)
	}

	_, err = store.Save(ctx, filepath.Join(t.TempDir(), "gone.jpg"))
	if !errors.Is(err, ledger.ErrSourceNotFound) {
		t.Errorf("Save(missing) error = %v, want ErrSourceNotFound", err)
	}

	if _, err := store.Save(ctx, "content://photos/1"); err == nil {
		t.Error("Save(content://) succeeded, want error")
	}
}

func TestFileSystemStore_Resolve(t *testing.T) {
	store, root := newStore(t)

	if got := store.Resolve(""); got != "" {
		t.Errorf("Resolve(\"\") = %q, want empty", got)
	}
	want := filepath.Join(root, "media", "x.jpg")
	if got := store.Resolve("media/x.jpg"); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestFileSystemStore_List(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := media.NewFileSystemStore(root, []string{"*.part"}, ledger.NewNopLogger())

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() on missing dir error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want empty", names)
	}

	dir := filepath.Join(root, "media")
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"b.jpg", "a.m4a", ".tmp-123", "upload.part"} {
		writeSource(t, dir, n, n)
	}

	names, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"a.m4a", "b.jpg"}; !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestFileSystemStore_WriteIfAbsent(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)

	written, err := store.WriteIfAbsent(ctx, "media/x.jpg", strings.NewReader("C"))
	if err != nil || !written {
		t.Fatalf("first WriteIfAbsent() = (%v, %v), want (true, nil)", written, err)
	}

	written, err = store.WriteIfAbsent(ctx, "x.jpg", strings.NewReader("C'"))
	if err != nil || written {
		t.Fatalf("second WriteIfAbsent() = (%v, %v), want (false, nil)", written, err)
	}

	got, err := os.ReadFile(filepath.Join(root, "media", "x.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "C" {
		t.Errorf("content = %q, want local content C", got)
	}

	if _, err := store.WriteIfAbsent(ctx, "..", strings.NewReader("x")); err == nil {
		t.Error("WriteIfAbsent(..) succeeded, want error")
	}
}

func TestFileSystemStore_Open(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	if _, err := store.WriteIfAbsent(ctx, "v.m4a", bytes.NewReader([]byte("voice"))); err != nil {
		t.Fatal(err)
	}

	rc, err := store.Open("v.m4a")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "voice" {
		t.Errorf("Open() content = %q, want voice", data)
	}
}
