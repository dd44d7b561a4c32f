package ledger

import "io"

// Encryptor seals exported archives. Sealing uses the public key only, so
// export needs no user interaction. Opening a sealed archive requires the
// passphrase that protects the private key.
type Encryptor interface {
	// Setup generates the key pair and protects the private key with
	// passphrase. Called once from `agriledger config init`.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether the key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key for one import.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// UnlockFunc is called only when a sealed archive is picked, so the user
// is asked for a passphrase only when one is needed.
type UnlockFunc func() (DecryptionContext, error)
