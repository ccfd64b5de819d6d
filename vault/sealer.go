package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// SealedPrefix marks a value written by Seal.
const SealedPrefix = "enc:v1:"

// ErrLocked is returned by a Sealer after Lock.
var ErrLocked = errors.New("vault is locked")

// Sealer encrypts and decrypts single string values with AES-256-GCM.
type Sealer struct {
	mu  sync.RWMutex
	key []byte
}

// NewSealer copies key into a new Sealer.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("invalid key length: expected %d, got %d", KeyLength, len(key))
	}
	k := make([]byte, KeyLength)
	copy(k, key)
	return &Sealer{key: k}, nil
}

// IsSealed reports whether s carries the sealed-value prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, SealedPrefix)
}

// Seal returns enc:v1:<nonce>:<ciphertext>, both standard base64.
func (s *Sealer) Seal(plain string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return "", ErrLocked
	}

	ct, nonce, err := encrypt([]byte(plain), s.key)
	if err != nil {
		return "", err
	}
	return SealedPrefix + base64.StdEncoding.EncodeToString(nonce) + ":" +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal. Values without the prefix are returned unchanged so
// plaintext written before sealing was enabled still loads.
func (s *Sealer) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return sealed, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return "", ErrLocked
	}

	nonceB64, ctB64, ok := strings.Cut(strings.TrimPrefix(sealed, SealedPrefix), ":")
	if !ok {
		return "", fmt.Errorf("malformed sealed value")
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	plain, err := decrypt(ct, nonce, s.key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Key returns a copy of the key, e.g. to cache it in the keyring.
func (s *Sealer) Key() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrLocked
	}
	out := make([]byte, len(s.key))
	copy(out, s.key)
	return out, nil
}

// Lock zeroes the key. Every later Seal/Open of a sealed value fails.
func (s *Sealer) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	zero(s.key)
	s.key = nil
}
