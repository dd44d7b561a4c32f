package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"agriledger/internal/model"
)

// Config represents the main configuration for agriledger.
type Config struct {
	DataDir    string           `toml:"data_dir"`
	LogDir     string           `toml:"log_dir"`
	CacheDir   string           `toml:"cache_dir"`
	Share      ShareConfig      `toml:"share"`
	Encryption EncryptionConfig `toml:"encryption"`
	History    HistoryConfig    `toml:"history"`
	Media      MediaConfig      `toml:"media"`
	Seed       model.Seed       `toml:"seed"`
}

// ShareConfig selects where exported archives are handed off to.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ShareConfig struct {
	Type string `toml:"type"` // "filesystem", "s3", "memory" or "none"

	// FileSystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to seal archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// HistoryConfig represents configuration for the operation history database.
type HistoryConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// MediaConfig holds media directory settings.
type MediaConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a Config rooted at homeDir with default locations.
// Exports go to <homeDir>/exports until a share target is configured.
func NewConfig(homeDir string) *Config {
	return &Config{
		DataDir:  filepath.Join(homeDir, "data"),
		LogDir:   filepath.Join(homeDir, "log"),
		CacheDir: filepath.Join(homeDir, "cache"),
		Share: ShareConfig{
			Type: "filesystem",
			Dir:  filepath.Join(homeDir, "exports"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(homeDir, "keys", "agriledger.pub"),
			PrivateKeyPath: filepath.Join(homeDir, "keys", "agriledger.key"),
		},
		History: HistoryConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(homeDir, "db"),
		},
		Seed: model.DefaultSeed(),
	}
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must be set")
	}
	return nil
}

// SeedOrDefault returns the configured seed, falling back to the default
// taxonomy for each empty list.
func (c *Config) SeedOrDefault() model.Seed {
	seed := c.Seed
	def := model.DefaultSeed()
	if len(seed.PaymentTypes) == 0 {
		seed.PaymentTypes = def.PaymentTypes
	}
	if len(seed.PaymentCategories) == 0 {
		seed.PaymentCategories = def.PaymentCategories
	}
	return seed
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path. The file may
// carry S3 credentials, so it is created owner-readable only.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
