package ledger_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agriledger/internal/ledger"
	"agriledger/internal/testutil"
)

func TestArchiveName(t *testing.T) {
	if got := ledger.ArchiveName(testutil.FixedClock().Now()); got != "AgriLedger_Backup_2024-01-15.zip" {
		t.Errorf("ArchiveName() = %q", got)
	}
}

func TestLedgerService_Export(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := env.Service

	photo := testutil.WriteFile(t, t.TempDir(), "receipt.jpg", []byte("jpeg-bytes"))
	if _, err := svc.AddPayment(ctx, ledger.PaymentInput{Amount: 12, Type: "General", Category: "Seeds", ImageSources: []string{photo}}); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, env.Media.Dir(), ".tmp-partial", []byte("ignored"))

	result, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Name != "AgriLedger_Backup_2024-01-15.zip" || result.Sealed {
		t.Errorf("Export() = %+v", result)
	}
	if result.MediaCount != 1 || result.Size <= 0 {
		t.Errorf("Export() media %d size %d", result.MediaCount, result.Size)
	}
	if filepath.Dir(result.Path) != env.CacheDir {
		t.Errorf("archive built in %s, want cache dir %s", filepath.Dir(result.Path), env.CacheDir)
	}

	shared, ok := env.Sharer.Get(result.Name)
	if !ok {
		t.Fatalf("archive not shared; shared names = %v", env.Sharer.Names())
	}
	entries := testutil.ReadArchive(t, shared)

	live, err := env.Documents.ReadRaw(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(entries["db.json"], live) {
		t.Error("db.json in archive differs from the live document")
	}
	if _, ok := entries["media/"]; !ok {
		t.Error("media/ directory entry missing")
	}
	if string(entries["media/receipt.jpg"]) != "jpeg-bytes" {
		t.Errorf("media/receipt.jpg = %q", entries["media/receipt.jpg"])
	}
	if _, ok := entries["media/.tmp-partial"]; ok {
		t.Error("temp file exported")
	}

	leftovers, _ := filepath.Glob(filepath.Join(env.CacheDir, ".tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left in cache dir: %v", leftovers)
	}
}

func TestLedgerService_Export_EmptyMedia(t *testing.T) {
	env := testutil.NewEnv(t)
	result, err := env.Service.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	shared, _ := env.Sharer.Get(result.Name)
	entries := testutil.ReadArchive(t, shared)
	if len(entries) != 2 {
		t.Errorf("entries = %d, want db.json and media/ only", len(entries))
	}
}

func TestLedgerService_Export_ShareUnavailable(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Sharer.SetAvailable(false)

	if _, err := env.Service.Export(context.Background()); !errors.Is(err, ledger.ErrShareUnavailable) {
		t.Errorf("Export() error = %v, want ErrShareUnavailable", err)
	}
	if _, err := os.Stat(env.CacheDir); !os.IsNotExist(err) {
		t.Error("archive built although sharing is unavailable")
	}
}

func TestLedgerService_Export_Sealed(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithSealing())

	result, err := env.Service.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !result.Sealed || !strings.HasSuffix(result.Name, ".zip"+ledger.ArchiveExtension) {
		t.Errorf("Export() = %+v, want sealed .zip.age", result)
	}
	shared, _ := env.Sharer.Get(result.Name)
	if bytes.HasPrefix(shared, []byte("PK")) {
		t.Error("sealed archive is a plain zip")
	}
}
