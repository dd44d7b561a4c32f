package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agriledger/internal/config"
	"agriledger/internal/ledger"
	"agriledger/internal/testutil"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Share = config.ShareConfig{Type: "memory"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *LedgerApp {
	t.Helper()
	a, err := newLedgerApp(context.Background(), cfg, operation, io.Discard, testutil.FixedClock())
	if err != nil {
		t.Fatalf("newLedgerApp() error = %v", err)
	}
	return a
}

func historyOf(t *testing.T, cfg *config.Config) []*ledger.Operation {
	t.Helper()
	a := newTestApp(t, cfg, "history")
	defer a.Close()
	ops, err := a.GetHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	return ops
}

func TestNewLedgerApp_initializesDataDir(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "init")
	defer a.Close()

	if _, err := os.Stat(a.DocumentPath()); err != nil {
		t.Errorf("document not created: %v", err)
	}
	if info, err := os.Stat(a.MediaDir()); err != nil || !info.IsDir() {
		t.Errorf("media directory not created: %v", err)
	}
	if got := a.DocumentStatus(context.Background()).Status; got != ledger.LoadOK {
		t.Errorf("DocumentStatus = %v, want %v", got, ledger.LoadOK)
	}
}

func TestNewLedgerApp_invalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing data dir", func(c *config.Config) { c.DataDir = "" }},
		{"unknown share type", func(c *config.Config) { c.Share.Type = "carrier-pigeon" }},
		{"unknown encryption type", func(c *config.Config) { c.Encryption.Type = "rot13" }},
		{"unknown history type", func(c *config.Config) { c.History.Type = "postgres" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.mutate(cfg)
			if _, err := newLedgerApp(context.Background(), cfg, "init", io.Discard, testutil.FixedClock()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLedgerApp_recordsMutatingOperations(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	a := newTestApp(t, cfg, "payment add")
	if _, err := a.AddPayment(ctx, ledger.PaymentInput{Amount: 50, Type: "General", Category: "Seeds"}); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ops := historyOf(t, cfg)
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	op := ops[0]
	if op.Operation != "payment add" || op.Status != StatusSuccess {
		t.Errorf("operation = %q status %q", op.Operation, op.Status)
	}
	if !strings.Contains(op.Parameters, "amount=50") || !strings.Contains(op.Parameters, "category=Seeds") {
		t.Errorf("Parameters = %q", op.Parameters)
	}
	if !op.FinishedAt.Valid {
		t.Error("operation not finished")
	}
}

func TestLedgerApp_readsAreNotRecorded(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	a := newTestApp(t, cfg, "payment list")
	if _, err := a.ListPayments(ctx, ledger.PaymentFilter{}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ListWorkers(ctx); err != nil {
		t.Fatal(err)
	}
	a.Close()

	if ops := historyOf(t, cfg); len(ops) != 0 {
		t.Errorf("got %d operations, want 0", len(ops))
	}
}

func TestLedgerApp_recordsFailure(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	a := newTestApp(t, cfg, "payment add")
	_, err := a.AddPayment(ctx, ledger.PaymentInput{Amount: -1, Type: "General", Category: "Seeds"})
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("AddPayment() error = %v, want ErrInvalidInput", err)
	}
	a.Close()

	ops := historyOf(t, cfg)
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if ops[0].Status != StatusError || !strings.Contains(ops[0].Detail, "amount") {
		t.Errorf("status %q detail %q", ops[0].Status, ops[0].Detail)
	}
}

func TestLedgerApp_exportAndImport(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Share = config.ShareConfig{Type: "filesystem", Dir: t.TempDir()}

	a := newTestApp(t, cfg, "backup export")
	if _, err := a.AddWorker(ctx, "Ravi"); err != nil {
		t.Fatal(err)
	}
	res, err := a.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	a.Close()

	if res.Name != ledger.ArchiveName(testutil.FixedClock().Now()) {
		t.Errorf("Name = %q", res.Name)
	}

	other := newTestConfig(t)
	b := newTestApp(t, other, "backup import")
	defer b.Close()

	shared := filepath.Join(cfg.Share.Dir, res.Name)
	imported, err := b.Import(ctx, &fixedPicker{path: shared}, nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if imported.Outcome != ledger.OutcomeMerged {
		t.Errorf("Outcome = %v, want merged", imported.Outcome)
	}
	workers, err := b.ListWorkers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(workers) != 1 || workers[0] != "Ravi" {
		t.Errorf("workers = %v, want [Ravi]", workers)
	}
}

func TestLedgerApp_Unlock(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		a := newTestApp(t, newTestConfig(t), "backup import")
		defer a.Close()

		_, err := a.Unlock(func() (string, error) { return "x", nil })()
		if err == nil || !strings.Contains(err.Error(), "no keys") {
			t.Errorf("Unlock() error = %v", err)
		}
	})

	t.Run("configured encryptor without prompt", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Encryption.Type = "test"
		a := newTestApp(t, cfg, "backup import")
		defer a.Close()

		if _, err := a.Unlock(nil)(); !errors.Is(err, ledger.ErrPassphraseRequired) {
			t.Errorf("Unlock() error = %v, want ErrPassphraseRequired", err)
		}
	})

	t.Run("prompt error", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Encryption.Type = "test"
		a := newTestApp(t, cfg, "backup import")
		defer a.Close()

		boom := errors.New("no tty")
		if _, err := a.Unlock(func() (string, error) { return "", boom })(); !errors.Is(err, boom) {
			t.Errorf("Unlock() error = %v, want %v", err, boom)
		}
	})
}

func TestLedgerApp_SetupEncryption(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "config keys")
	defer a.Close()

	recipient, err := a.SetupEncryption(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("SetupEncryption() error = %v", err)
	}
	if !strings.HasPrefix(recipient, "age1") {
		t.Errorf("recipient = %q", recipient)
	}

	// Encryption is still "none", so Unlock falls back to the key files.
	if _, err := a.Unlock(func() (string, error) { return "wrong", nil })(); err == nil {
		t.Error("expected wrong passphrase to fail")
	}
	if _, err := a.Unlock(func() (string, error) { return "hunter2", nil })(); err != nil {
		t.Errorf("Unlock() error = %v", err)
	}

	if _, err := a.SetupEncryption(context.Background(), "again"); err == nil {
		t.Error("expected second setup to fail")
	}
}

func TestLedgerApp_WriteAttendanceReport(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t), "attendance report")
	defer a.Close()

	if _, err := a.AddWorker(ctx, "Meena"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.LogAttendance(ctx, ledger.AttendanceInput{Worker: "Meena", Duration: "Full Day"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := a.WriteAttendanceReport(ctx, &buf, ""); err != nil {
		t.Fatalf("WriteAttendanceReport() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

type fixedPicker struct {
	path string
}

func (p *fixedPicker) Pick(context.Context, []string) (*ledger.Selection, error) {
	return &ledger.Selection{Path: p.path, Name: filepath.Base(p.path), ContentType: ledger.ContentTypeZip}, nil
}
