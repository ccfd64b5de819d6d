package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"devdeck/errs"
	"devdeck/vault"
)

// Google endpoints for the device authorization grant.
var GoogleDeviceEndpoint = oauth2.Endpoint{
	AuthURL:       "https://accounts.google.com/o/oauth2/auth",
	DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
	TokenURL:      "https://oauth2.googleapis.com/token",
	AuthStyle:     oauth2.AuthStyleInParams,
}

// DriveFileScope limits access to files devdeck created.
const DriveFileScope = "https://www.googleapis.com/auth/drive.file"

// loginTimeout bounds how long Login waits for the user to authorize.
const loginTimeout = 10 * time.Minute

// TokenStore keeps the serialized token. vault.Keyring satisfies it.
type TokenStore interface {
	Get(user string) (string, error)
	Set(user, value string) error
	Delete(user string) error
}

// OAuthClient runs the OAuth 2.0 device flow and hands out authorized HTTP
// clients backed by the stored token.
type OAuthClient struct {
	config *oauth2.Config
	tokens TokenStore
	user   string
	log    *zap.Logger
}

// NewOAuthClient returns a client for Google Drive.
func NewOAuthClient(clientID, clientSecret string, tokens TokenStore) *OAuthClient {
	return NewOAuthClientWithEndpoint(clientID, clientSecret, GoogleDeviceEndpoint, tokens)
}

// NewOAuthClientWithEndpoint is NewOAuthClient against arbitrary endpoints.
func NewOAuthClientWithEndpoint(clientID, clientSecret string, endpoint oauth2.Endpoint, tokens TokenStore) *OAuthClient {
	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{DriveFileScope},
		},
		tokens: tokens,
		user:   vault.DriveTokenUser,
		log:    zap.NewNop(),
	}
}

// WithLogger sets the logger used for token refresh failures.
func (c *OAuthClient) WithLogger(l *zap.Logger) *OAuthClient {
	if l != nil {
		c.log = l
	}
	return c
}

// Login starts the device flow, calls prompt with the code the user must
// enter, and waits for authorization. The token is stored on success.
func (c *OAuthClient) Login(ctx context.Context, prompt func(*oauth2.DeviceAuthResponse)) (*oauth2.Token, error) {
	if c.config.ClientID == "" {
		return nil, errs.New(errs.CodeInvalid, "OAuth not configured: set DEVDECK_DRIVE_CLIENT_ID and DEVDECK_DRIVE_CLIENT_SECRET")
	}

	da, err := c.config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start device flow: %w", err)
	}
	prompt(da)

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	tok, err := c.config.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, deviceFlowError(err)
	}
	if err := c.saveToken(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func deviceFlowError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "expired_token":
			return errs.Wrap(err, errs.CodeUnauthorized, "device code expired: user took too long to authorize")
		case "access_denied":
			return errs.Wrap(err, errs.CodeForbidden, "access denied: user cancelled authorization")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(err, errs.CodeUnauthorized, "authentication timeout: user did not authorize in time")
	}
	return fmt.Errorf("failed to obtain token: %w", err)
}

// Token returns the stored token or ErrNotConnected.
func (c *OAuthClient) Token() (*oauth2.Token, error) {
	raw, err := c.tokens.Get(c.user)
	if errors.Is(err, vault.ErrKeyNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("failed to parse stored token: %w", err)
	}
	return &tok, nil
}

// HTTPClient returns a client that attaches and refreshes the bearer
// token. Refreshed tokens are written back to the store.
func (c *OAuthClient) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := c.Token()
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base: c.config.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: c.saveToken,
		log:  c.log,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Logout forgets the stored token.
func (c *OAuthClient) Logout() error {
	return c.tokens.Delete(c.user)
}

func (c *OAuthClient) saveToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := c.tokens.Set(c.user, string(data)); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// persistingSource saves every token that differs from the last one seen.
type persistingSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	last string
	save func(*oauth2.Token) error
	log  *zap.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.save(tok); err != nil {
			s.log.Warn("failed to persist refreshed token", zap.Error(err))
		}
	}
	return tok, nil
}
