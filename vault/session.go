package vault

import (
	"encoding/base64"
	"fmt"
)

// Remember caches the sealer's key in kr so later commands can open the
// vault without asking for the passphrase again.
func Remember(kr *Keyring, s *Sealer) error {
	key, err := s.Key()
	if err != nil {
		return err
	}
	defer zero(key)
	return kr.Set(SessionKeyUser, base64.StdEncoding.EncodeToString(key))
}

// Resume returns a Sealer from the cached session key. It returns
// ErrKeyNotFound when the vault is locked.
func Resume(kr *Keyring, path string) (*Sealer, error) {
	encoded, err := kr.Get(SessionKeyUser)
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session key: %w", err)
	}
	defer zero(key)
	return UnlockWithKey(path, key)
}

// Forget drops the cached session key.
func Forget(kr *Keyring) error {
	return kr.Delete(SessionKeyUser)
}
