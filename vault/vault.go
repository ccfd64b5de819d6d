package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const checkPlaintext = "devdeck-vault-check"

var (
	ErrNotInitialized = errors.New("vault not initialized: run 'devdeck vault init'")
	ErrBadPassphrase  = errors.New("invalid passphrase")
	ErrExists         = errors.New("vault already initialized")
)

// Config is the on-disk description of the vault. It never holds the key,
// only what is needed to re-derive and verify it.
type Config struct {
	Salt          string `json:"salt"` // base64
	KDFIterations int    `json:"kdf_iterations"`
	KDFAlgorithm  string `json:"kdf_algorithm"`
	Check         string `json:"check"` // sealed checkPlaintext
}

// LoadConfig reads the vault config at path. A missing file yields
// ErrNotInitialized.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to read vault config: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse vault config: %w", err)
	}
	return &c, nil
}

// SaveConfig writes c to path with owner-only permissions.
func SaveConfig(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write vault config: %w", err)
	}
	return nil
}

// Init creates a new vault config at path protected by passphrase and
// returns an unlocked Sealer.
func Init(path, passphrase string) (*Sealer, error) {
	return initWithIterations(path, passphrase, PBKDF2Iterations)
}

func initWithIterations(path, passphrase string, iterations int) (*Sealer, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrExists
	}
	salt, err := randomBytes(SaltLength)
	if err != nil {
		return nil, err
	}
	key := DeriveKey(passphrase, salt, iterations)
	defer zero(key)

	s, err := NewSealer(key)
	if err != nil {
		return nil, err
	}
	check, err := s.Seal(checkPlaintext)
	if err != nil {
		return nil, err
	}

	c := &Config{
		Salt:          base64.StdEncoding.EncodeToString(salt),
		KDFIterations: iterations,
		KDFAlgorithm:  "pbkdf2-sha256",
		Check:         check,
	}
	if err := SaveConfig(path, c); err != nil {
		return nil, err
	}
	return s, nil
}

// Unlock re-derives the key from passphrase and verifies it against the
// stored check value.
func Unlock(path, passphrase string) (*Sealer, error) {
	c, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(c.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}

	key := DeriveKey(passphrase, salt, c.KDFIterations)
	defer zero(key)
	return verify(c, key)
}

// UnlockWithKey builds a Sealer from a cached key, checking it still
// matches the vault at path.
func UnlockWithKey(path string, key []byte) (*Sealer, error) {
	c, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return verify(c, key)
}

func verify(c *Config, key []byte) (*Sealer, error) {
	s, err := NewSealer(key)
	if err != nil {
		return nil, err
	}
	got, err := s.Open(c.Check)
	if err != nil || got != checkPlaintext {
		s.Lock()
		return nil, ErrBadPassphrase
	}
	return s, nil
}
