package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"

	"devdeck/errs"
	"devdeck/vault"
)

type memTokens struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemTokens() *memTokens { return &memTokens{values: map[string]string{}} }

func (m *memTokens) Get(user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[user]
	if !ok {
		return "", vault.ErrKeyNotFound
	}
	return v, nil
}

func (m *memTokens) Set(user, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[user] = value
	return nil
}

func (m *memTokens) Delete(user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, user)
	return nil
}

// newDeviceServer answers the device code request and then the token poll
// with tokenStatus/tokenBody.
func newDeviceServer(t *testing.T, tokenStatus int, tokenBody string) oauth2.Endpoint {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/device/code", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		assert.Equal(t, DriveFileScope, r.Form.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev-code","user_code":"ABCD-EFGH","verification_url":"https://example.test/device","expires_in":60,"interval":1}`))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "dev-code", r.Form.Get("device_code"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		_, _ = w.Write([]byte(tokenBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return oauth2.Endpoint{
		DeviceAuthURL: srv.URL + "/device/code",
		TokenURL:      srv.URL + "/token",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
}

func TestOAuthLoginStoresToken(t *testing.T) {
	endpoint := newDeviceServer(t, http.StatusOK, `{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`)
	tokens := newMemTokens()
	c := NewOAuthClientWithEndpoint("client-1", "secret-1", endpoint, tokens)

	var userCode string
	tok, err := c.Login(context.Background(), func(da *oauth2.DeviceAuthResponse) { userCode = da.UserCode })
	require.NoError(t, err)
	assert.Equal(t, "ABCD-EFGH", userCode)
	assert.Equal(t, "access-1", tok.AccessToken)

	stored, err := c.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestOAuthLoginAccessDenied(t *testing.T) {
	endpoint := newDeviceServer(t, http.StatusBadRequest, `{"error":"access_denied"}`)
	tokens := newMemTokens()
	c := NewOAuthClientWithEndpoint("client-1", "secret-1", endpoint, tokens)

	_, err := c.Login(context.Background(), func(*oauth2.DeviceAuthResponse) {})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeForbidden), "got %v", err)

	_, err = c.Token()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestOAuthLoginRequiresClientID(t *testing.T) {
	c := NewOAuthClient("", "", newMemTokens())
	_, err := c.Login(context.Background(), func(*oauth2.DeviceAuthResponse) {})
	assert.True(t, errs.IsCode(err, errs.CodeInvalid))
}

func TestOAuthHTTPClientAttachesBearer(t *testing.T) {
	var auth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"user":{}}`))
	}))
	defer api.Close()

	tokens := newMemTokens()
	tokens.values[vault.DriveTokenUser] = `{"access_token":"access-2","token_type":"Bearer","expiry":"2999-01-01T00:00:00Z"}`
	c := NewOAuthClient("client-1", "secret-1", tokens)

	hc, err := c.HTTPClient(context.Background())
	require.NoError(t, err)
	require.NoError(t, NewDriveClient(hc).WithBaseURL(api.URL).Connected(context.Background()))
	assert.Equal(t, "Bearer access-2", auth)

	require.NoError(t, c.Logout())
	_, err = c.HTTPClient(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRefreshedTokenSaveFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var saved []string
	src := &persistingSource{
		base: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-3"}),
		last: "access-2",
		save: func(tok *oauth2.Token) error {
			saved = append(saved, tok.AccessToken)
			return errors.New("keyring locked")
		},
		log: zap.New(core),
	}

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-3", tok.AccessToken)
	assert.Equal(t, []string{"access-3"}, saved)

	entries := logs.FilterMessage("failed to persist refreshed token").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "keyring locked", entries[0].ContextMap()["error"])

	// same token again: no second write, no second warning
	_, err = src.Token()
	require.NoError(t, err)
	assert.Len(t, saved, 1)
	assert.Equal(t, 1, logs.Len())
}
