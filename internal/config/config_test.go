package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"agriledger/internal/model"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		DataDir:  "/home/user/.local/share/agriledger/data",
		LogDir:   "/home/user/.local/share/agriledger/log",
		CacheDir: "/home/user/.local/share/agriledger/cache",
		Share: ShareConfig{
			Type:       "s3",
			S3Bucket:   "farm-backups",
			S3Prefix:   "ledger/",
			S3Region:   "ap-south-1",
			S3Endpoint: "http://localhost:9000",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/keys/agriledger.pub",
			PrivateKeyPath: "/keys/agriledger.key",
		},
		History: HistoryConfig{Type: "sqlite", DataDir: "/home/user/.local/share/agriledger/db"},
		Media:   MediaConfig{Ignore: []string{"*.part", ".DS_Store"}},
		Seed: model.Seed{
			PaymentTypes:      []string{"Income", "Expense"},
			PaymentCategories: []string{"Seeds"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip mismatch:\ngot  = %+v\nwant = %+v", got, original)
	}
}

func TestManager_Read_Sections(t *testing.T) {
	input := `
data_dir = "/d"
cache_dir = "/c"

[share]
type = "filesystem"
dir = "/exports"

[seed]
payment_types = ["General", "Expense"]
`
	cfg, err := (&Manager{}).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Share.Type != "filesystem" || cfg.Share.Dir != "/exports" {
		t.Errorf("Share = %+v, want filesystem /exports", cfg.Share)
	}

	seed := cfg.SeedOrDefault()
	if !reflect.DeepEqual(seed.PaymentTypes, []string{"General", "Expense"}) {
		t.Errorf("PaymentTypes = %v", seed.PaymentTypes)
	}
	if !reflect.DeepEqual(seed.PaymentCategories, model.DefaultSeed().PaymentCategories) {
		t.Errorf("PaymentCategories = %v, want defaults", seed.PaymentCategories)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/agriledger")

	tests := []struct {
		field, got, want string
	}{
		{"DataDir", cfg.DataDir, "/data/agriledger/data"},
		{"LogDir", cfg.LogDir, "/data/agriledger/log"},
		{"CacheDir", cfg.CacheDir, "/data/agriledger/cache"},
		{"Share.Type", cfg.Share.Type, "filesystem"},
		{"Share.Dir", cfg.Share.Dir, "/data/agriledger/exports"},
		{"Encryption.Type", cfg.Encryption.Type, "none"},
		{"Encryption.PublicKeyPath", cfg.Encryption.PublicKeyPath, "/data/agriledger/keys/agriledger.pub"},
		{"History.Type", cfg.History.Type, "sqlite"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{CacheDir: "/c"}).Validate(); err == nil {
		t.Error("Validate() with empty data_dir succeeded")
	}
	if err := (&Config{DataDir: "/d"}).Validate(); err == nil {
		t.Error("Validate() with empty cache_dir succeeded")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "agriledger.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("config permissions = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "agriledger.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "agriledger.toml")
		cfg := NewConfig(dir)
		cfg.History = HistoryConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.History.Type != "memory" {
			t.Errorf("History.Type = %q, want memory", got.History.Type)
		}
		if got.DataDir != cfg.DataDir {
			t.Errorf("DataDir = %q, want %q", got.DataDir, cfg.DataDir)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/agriledger.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
