package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"agriledger/internal/document"
	"agriledger/internal/encryption"
	"agriledger/internal/ledger"
	"agriledger/internal/media"
	"agriledger/internal/model"
	"agriledger/internal/share"
)

// Env is a fully wired LedgerService over temp directories.
type Env struct {
	Service   *ledger.LedgerService
	Documents *document.FileStore
	Media     *media.FileSystemStore
	Sharer    *share.MemorySharer
	Encryptor *encryption.TestEncryptor // nil unless WithSealing
	History   ledger.History
	Clock     *StubClock
	IDs       *StubIDGenerator
	Root      string
	CacheDir  string
}

type envOptions struct {
	sealed   bool
	idPrefix string
	seed     model.Seed
}

// EnvOption configures NewEnv.
type EnvOption func(*envOptions)

// WithSealing wires a TestEncryptor so exports are sealed.
func WithSealing() EnvOption {
	return func(o *envOptions) { o.sealed = true }
}

// WithIDPrefix sets the record ID prefix.
func WithIDPrefix(prefix string) EnvOption {
	return func(o *envOptions) { o.idPrefix = prefix }
}

// WithSeed overrides the default taxonomy.
func WithSeed(seed model.Seed) EnvOption {
	return func(o *envOptions) { o.seed = seed }
}

// NewEnv builds and initializes a service for one simulated device.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()
	o := envOptions{idPrefix: "id", seed: model.DefaultSeed()}
	for _, opt := range opts {
		opt(&o)
	}

	root := t.TempDir()
	clock := FixedClock()
	env := &Env{
		Documents: document.NewFileStore(root, o.seed, clock, ledger.NewNopLogger()),
		Media:     NewTestMediaStore(t, root),
		Sharer:    share.NewMemorySharer(),
		History:   NewTestHistory(t),
		Clock:     clock,
		IDs:       NewPrefixedIDGenerator(o.idPrefix),
		Root:      root,
		CacheDir:  filepath.Join(t.TempDir(), "cache"),
	}

	var enc ledger.Encryptor
	if o.sealed {
		env.Encryptor = encryption.NewTestEncryptor()
		enc = env.Encryptor
	}

	env.Service = ledger.NewLedgerService(env.Documents, env.Media, env.Sharer, enc, env.History,
		ledger.NewNopLogger(), env.Clock, env.IDs, env.CacheDir)
	if err := env.Service.Initialize(context.Background()); err != nil {
		t.Fatalf("initializing service: %v", err)
	}
	return env
}

// Unlock returns an UnlockFunc backed by the env's encryptor, or by a
// fresh TestEncryptor when the env is not sealed.
func (e *Env) Unlock(passphrase string) ledger.UnlockFunc {
	enc := e.Encryptor
	if enc == nil {
		enc = encryption.NewTestEncryptor()
	}
	return func() (ledger.DecryptionContext, error) {
		return enc.Unlock(passphrase)
	}
}

// Load returns the parsed live document.
func (e *Env) Load(t *testing.T) *model.Document {
	t.Helper()
	result := e.Documents.Load(context.Background())
	if result.Status != ledger.LoadOK {
		t.Fatalf("loading document: status %s, err %v", result.Status, result.Err)
	}
	return result.Doc
}
