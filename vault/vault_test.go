package vault

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// low iteration count keeps the tests fast
const testIterations = 1000

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := randomBytes(KeyLength)
	require.NoError(t, err)
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	cases := []struct {
		name  string
		plain string
	}{
		{"simple", "sk_live_123"},
		{"empty", ""},
		{"unicode", "pässwörd 🔐"},
		{"colons", "a:b:c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := s.Seal(tc.plain)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(sealed, SealedPrefix))

			got, err := s.Open(sealed)
			require.NoError(t, err)
			assert.Equal(t, tc.plain, got)
		})
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	a, err := s.Seal("same")
	require.NoError(t, err)
	b, err := s.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenPassesPlaintextThrough(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	got, err := s.Open("legacy-plaintext")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext", got)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	a, _ := NewSealer(testKey(t))
	b, _ := NewSealer(testKey(t))

	sealed, err := a.Seal("secret")
	require.NoError(t, err)
	_, err = b.Open(sealed)
	assert.Error(t, err)

	_, err = a.Open(SealedPrefix + "garbage")
	assert.Error(t, err)
}

func TestLockedSealerRefuses(t *testing.T) {
	s, _ := NewSealer(testKey(t))
	sealed, _ := s.Seal("secret")
	s.Lock()

	_, err := s.Seal("x")
	assert.ErrorIs(t, err, ErrLocked)
	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestNewSealerRejectsShortKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestInitAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	s, err := initWithIterations(path, "correct horse", testIterations)
	require.NoError(t, err)
	sealed, err := s.Seal("db-password")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = initWithIterations(path, "again", testIterations)
	assert.ErrorIs(t, err, ErrExists)

	reopened, err := Unlock(path, "correct horse")
	require.NoError(t, err)
	got, err := reopened.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "db-password", got)

	_, err = Unlock(path, "wrong")
	assert.ErrorIs(t, err, ErrBadPassphrase)
}

func TestUnlockMissingVault(t *testing.T) {
	_, err := Unlock(filepath.Join(t.TempDir(), "vault.json"), "x")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestKeyringSessionRoundTrip(t *testing.T) {
	keyring.MockInit()
	kr := NewKeyring("devdeck-test", t.TempDir())
	path := filepath.Join(t.TempDir(), "vault.json")

	s, err := initWithIterations(path, "passphrase", testIterations)
	require.NoError(t, err)
	require.NoError(t, Remember(kr, s))
	assert.Equal(t, "system-keyring", kr.Mode())

	resumed, err := Resume(kr, path)
	require.NoError(t, err)
	sealed, _ := s.Seal("token")
	got, err := resumed.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", got)

	require.NoError(t, Forget(kr))
	_, err = Resume(kr, path)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeyringFallsBackToFiles(t *testing.T) {
	keyring.MockInitWithError(assert.AnError)
	dir := t.TempDir()
	kr := NewKeyring("devdeck-test", dir)

	require.NoError(t, kr.Set(DriveTokenUser, `{"access_token":"abc"}`))
	assert.Equal(t, "file-based (keyring unavailable)", kr.Mode())

	info, err := os.Stat(filepath.Join(dir, "."+DriveTokenUser))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	v, err := kr.Get(DriveTokenUser)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"abc"}`, v)

	require.NoError(t, kr.Delete(DriveTokenUser))
	_, err = kr.Get(DriveTokenUser)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
