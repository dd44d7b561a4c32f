package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"agriledger/internal/config"
	"agriledger/internal/document"
	"agriledger/internal/encryption"
	"agriledger/internal/history"
	"agriledger/internal/ledger"
	"agriledger/internal/media"
	"agriledger/internal/model"
	"agriledger/internal/report"
	"agriledger/internal/share"
)

// PassphraseFunc asks the user for the archive passphrase.
type PassphraseFunc func() (string, error)

// LedgerApp is the application layer between the CLI and LedgerService.
// It constructs all dependencies from config, records mutating commands in
// the operation history and releases resources on Close.
type LedgerApp struct {
	cfg       *config.Config
	documents *document.FileStore
	media     *media.FileSystemStore
	encryptor ledger.Encryptor
	history   ledger.History
	service   *ledger.LedgerService
	clock     ledger.Clock
	op        *Operation
	logFile   *os.File
}

// NewLedgerApp creates a fully wired LedgerApp from the given config.
// operation names the CLI command being run (e.g. "payment add").
// The caller must call Close when done.
func NewLedgerApp(ctx context.Context, cfg *config.Config, operation string) (*LedgerApp, error) {
	return newLedgerApp(ctx, cfg, operation, os.Stderr, ledger.RealClock{})
}

func newLedgerApp(ctx context.Context, cfg *config.Config, operation string, console io.Writer, clock ledger.Clock) (*LedgerApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opID := clock.Now().UTC().Format("20060102T150405Z")
	l, logFile, err := newLogger(cfg.LogDir, opID, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	fail := func(err error) (*LedgerApp, error) {
		logFile.Close()
		return nil, err
	}

	sharer, err := share.NewSharerFromConfig(ctx, cfg.Share, logger)
	if err != nil {
		return fail(fmt.Errorf("creating share target: %w", err))
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fail(fmt.Errorf("creating encryptor: %w", err))
	}

	hist, err := history.NewHistoryFromConfig(cfg.History)
	if err != nil {
		return fail(fmt.Errorf("opening history: %w", err))
	}

	docs := document.NewFileStore(cfg.DataDir, cfg.SeedOrDefault(), clock, logger)
	store := media.NewFileSystemStore(cfg.DataDir, cfg.Media.Ignore, logger)
	svc := ledger.NewLedgerService(docs, store, sharer, enc, hist, logger, clock, ledger.UUIDGenerator{}, cfg.CacheDir)

	if err := svc.Initialize(ctx); err != nil {
		hist.Close()
		return fail(err)
	}

	return &LedgerApp{
		cfg:       cfg,
		documents: docs,
		media:     store,
		encryptor: enc,
		history:   hist,
		service:   svc,
		clock:     clock,
		op:        NewOperation(operation, "", clock.Now()),
		logFile:   logFile,
	}, nil
}

// Service exposes the underlying LedgerService for read-only use.
func (a *LedgerApp) Service() *ledger.LedgerService {
	return a.service
}

// DocumentPath returns the location of the live document file.
func (a *LedgerApp) DocumentPath() string {
	return a.documents.Path()
}

// MediaDir returns the managed media directory.
func (a *LedgerApp) MediaDir() string {
	return a.media.Dir()
}

// persistOperation records the running operation in the history, giving it
// an auto-increment ID. Only mutating commands call this.
func (a *LedgerApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	id, err := a.history.Start(ctx, a.op.Operation, a.op.Parameters, a.op.StartedAt)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// tracked runs fn as the app's recorded operation.
func tracked[T any](ctx context.Context, a *LedgerApp, parameters string, fn func() (T, error)) (T, error) {
	if err := a.persistOperation(ctx, parameters); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn()
	a.op.Record(err)
	return v, err
}

func params(kv ...any) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
	}
	return strings.Join(parts, " ")
}

// Payments

func (a *LedgerApp) AddPayment(ctx context.Context, in ledger.PaymentInput) (*model.Payment, error) {
	return tracked(ctx, a, params("amount", in.Amount, "type", in.Type, "category", in.Category), func() (*model.Payment, error) {
		return a.service.AddPayment(ctx, in)
	})
}

func (a *LedgerApp) EditPayment(ctx context.Context, id string, patch ledger.PaymentPatch) (*model.Payment, error) {
	return tracked(ctx, a, params("id", id), func() (*model.Payment, error) {
		return a.service.EditPayment(ctx, id, patch)
	})
}

func (a *LedgerApp) DeletePayment(ctx context.Context, id string) error {
	_, err := tracked(ctx, a, params("id", id), func() (struct{}, error) {
		return struct{}{}, a.service.DeletePayment(ctx, id)
	})
	return err
}

func (a *LedgerApp) ListPayments(ctx context.Context, filter ledger.PaymentFilter) ([]model.Payment, error) {
	return a.service.ListPayments(ctx, filter)
}

func (a *LedgerApp) PaymentAttachments(ctx context.Context, id string) ([]string, error) {
	return a.service.PaymentAttachments(ctx, id)
}

// Taxonomy

func (a *LedgerApp) ListTaxonomy(ctx context.Context, t ledger.Taxonomy) ([]string, error) {
	return a.service.ListTaxonomy(ctx, t)
}

func (a *LedgerApp) AddTaxonomyEntry(ctx context.Context, t ledger.Taxonomy, name string) ([]string, error) {
	return tracked(ctx, a, params("name", name), func() ([]string, error) {
		return a.service.AddTaxonomyEntry(ctx, t, name)
	})
}

func (a *LedgerApp) RenameTaxonomyEntry(ctx context.Context, t ledger.Taxonomy, oldName, newName string) (int, error) {
	return tracked(ctx, a, params("from", oldName, "to", newName), func() (int, error) {
		return a.service.RenameTaxonomyEntry(ctx, t, oldName, newName)
	})
}

func (a *LedgerApp) DeleteTaxonomyEntry(ctx context.Context, t ledger.Taxonomy, name, reassignTo string) (int, error) {
	return tracked(ctx, a, params("name", name, "reassign", reassignTo), func() (int, error) {
		return a.service.DeleteTaxonomyEntry(ctx, t, name, reassignTo)
	})
}

// Workers and attendance

func (a *LedgerApp) ListWorkers(ctx context.Context) ([]string, error) {
	return a.service.ListWorkers(ctx)
}

func (a *LedgerApp) AddWorker(ctx context.Context, name string) ([]string, error) {
	return tracked(ctx, a, params("name", name), func() ([]string, error) {
		return a.service.AddWorker(ctx, name)
	})
}

func (a *LedgerApp) RenameWorker(ctx context.Context, oldName, newName string) (int, error) {
	return tracked(ctx, a, params("from", oldName, "to", newName), func() (int, error) {
		return a.service.RenameWorker(ctx, oldName, newName)
	})
}

func (a *LedgerApp) DeleteWorker(ctx context.Context, name string, purge bool) (int, error) {
	return tracked(ctx, a, params("name", name, "purge", purge), func() (int, error) {
		return a.service.DeleteWorker(ctx, name, purge)
	})
}

func (a *LedgerApp) LogAttendance(ctx context.Context, in ledger.AttendanceInput) (*model.AttendanceRecord, error) {
	return tracked(ctx, a, params("worker", in.Worker, "duration", in.Duration), func() (*model.AttendanceRecord, error) {
		return a.service.LogAttendance(ctx, in)
	})
}

func (a *LedgerApp) ListAttendance(ctx context.Context, worker string) ([]model.AttendanceRecord, error) {
	return a.service.ListAttendance(ctx, worker)
}

func (a *LedgerApp) DeleteAttendance(ctx context.Context, id string) error {
	_, err := tracked(ctx, a, params("id", id), func() (struct{}, error) {
		return struct{}{}, a.service.DeleteAttendance(ctx, id)
	})
	return err
}

func (a *LedgerApp) ClearWorkerAttendance(ctx context.Context, worker string) (int, error) {
	return tracked(ctx, a, params("worker", worker), func() (int, error) {
		return a.service.ClearWorkerAttendance(ctx, worker)
	})
}

func (a *LedgerApp) AttendanceSummary(ctx context.Context) ([]ledger.WorkerSummary, error) {
	return a.service.AttendanceSummary(ctx)
}

// WriteAttendanceReport renders the attendance records, optionally for one
// worker, as a PDF to w.
func (a *LedgerApp) WriteAttendanceReport(ctx context.Context, w io.Writer, worker string) error {
	records, err := a.service.ListAttendance(ctx, worker)
	if err != nil {
		return err
	}
	summaries, err := a.service.AttendanceSummary(ctx)
	if err != nil {
		return err
	}
	return report.WriteAttendancePDF(w, records, summaries, report.AttendanceOptions{
		Worker:      worker,
		GeneratedAt: a.clock.Now(),
	})
}

// Stats

func (a *LedgerApp) ExpenseSummary(ctx context.Context, period ledger.Period, paymentType string) (*ledger.Summary, error) {
	return a.service.ExpenseSummary(ctx, period, paymentType)
}

// Backup and restore

func (a *LedgerApp) Export(ctx context.Context) (*ledger.ExportResult, error) {
	return tracked(ctx, a, "", func() (*ledger.ExportResult, error) {
		return a.service.Export(ctx)
	})
}

func (a *LedgerApp) Import(ctx context.Context, p ledger.Picker, prompt PassphraseFunc) (*ledger.ImportResult, error) {
	return tracked(ctx, a, "", func() (*ledger.ImportResult, error) {
		return a.service.Import(ctx, p, a.Unlock(prompt))
	})
}

// Unlock returns the UnlockFunc used when a sealed archive is imported. It
// uses the configured encryptor, or the age key pair when encryption is
// switched off but keys exist from an earlier setup.
func (a *LedgerApp) Unlock(prompt PassphraseFunc) ledger.UnlockFunc {
	return func() (ledger.DecryptionContext, error) {
		enc := a.encryptor
		if enc == nil {
			age := encryption.NewAgeEncryptor(a.cfg.Encryption)
			if !age.IsConfigured() {
				return nil, fmt.Errorf("archive is sealed but no keys are configured")
			}
			enc = age
		}
		if prompt == nil {
			return nil, ledger.ErrPassphraseRequired
		}
		passphrase, err := prompt()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return enc.Unlock(passphrase)
	}
}

// SetupEncryption generates the archive key pair protected by passphrase.
// It returns the public key recipient string.
func (a *LedgerApp) SetupEncryption(ctx context.Context, passphrase string) (string, error) {
	return tracked(ctx, a, "", func() (string, error) {
		age := encryption.NewAgeEncryptor(a.cfg.Encryption)
		if err := age.Setup(passphrase); err != nil {
			return "", err
		}
		return age.Recipient()
	})
}

// GetHistory returns the most recent recorded operations.
func (a *LedgerApp) GetHistory(ctx context.Context, limit int) ([]*ledger.Operation, error) {
	return a.service.GetHistory(ctx, limit)
}

// DocumentStatus reports whether the live document loads cleanly.
func (a *LedgerApp) DocumentStatus(ctx context.Context) ledger.LoadResult {
	return a.service.DocumentStatus(ctx)
}

// Close finalizes the operation record and closes all resources.
func (a *LedgerApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		// A fresh context: the command's may already be canceled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.history.Finish(ctx, a.op.ID, a.op.Status, a.op.Detail, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
