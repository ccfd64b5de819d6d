package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
)

// Keyring entries used by devdeck.
const (
	SessionKeyUser = "session-key"
	DriveTokenUser = "drive-token"
)

// ErrKeyNotFound is returned when no value is stored under a user name.
var ErrKeyNotFound = errors.New("key not found")

// Keyring stores small secrets in the OS keyring. When the keyring is
// unavailable (headless systems) values go to 0600 files under FallbackDir.
type Keyring struct {
	Service     string
	FallbackDir string

	once     sync.Once
	fallback bool
}

func NewKeyring(service, fallbackDir string) *Keyring {
	return &Keyring{Service: service, FallbackDir: fallbackDir}
}

func (k *Keyring) useFallback() bool {
	k.once.Do(func() {
		probe := "devdeck-keyring-probe"
		if err := keyring.Set(k.Service, probe, "probe"); err != nil {
			k.fallback = true
			return
		}
		_ = keyring.Delete(k.Service, probe)
	})
	return k.fallback
}

// Mode describes where values are stored.
func (k *Keyring) Mode() string {
	if k.useFallback() {
		return "file-based (keyring unavailable)"
	}
	return "system-keyring"
}

func (k *Keyring) Set(user, value string) error {
	if !k.useFallback() {
		if err := keyring.Set(k.Service, user, value); err != nil {
			return fmt.Errorf("failed to store %s in keyring: %w", user, err)
		}
		return nil
	}

	if err := os.MkdirAll(k.FallbackDir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath(user), []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write fallback key: %w", err)
	}
	return nil
}

func (k *Keyring) Get(user string) (string, error) {
	if !k.useFallback() {
		v, err := keyring.Get(k.Service, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrKeyNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s from keyring: %w", user, err)
		}
		return v, nil
	}

	data, err := os.ReadFile(k.fallbackPath(user))
	if os.IsNotExist(err) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read fallback key: %w", err)
	}
	return string(data), nil
}

// Delete removes user from both stores. Missing entries are not errors.
func (k *Keyring) Delete(user string) error {
	if !k.useFallback() {
		if err := keyring.Delete(k.Service, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete %s from keyring: %w", user, err)
		}
	}
	if err := os.Remove(k.fallbackPath(user)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete fallback key: %w", err)
	}
	return nil
}

func (k *Keyring) fallbackPath(user string) string {
	return filepath.Join(k.FallbackDir, "."+user)
}
