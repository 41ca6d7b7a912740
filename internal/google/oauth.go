package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	// ErrNoCredentials is returned when credentials.json cannot be read.
	ErrNoCredentials = errors.New("no OAuth client credentials")

	// ErrNoToken is returned when no user token has been stored yet.
	ErrNoToken = errors.New("no Google OAuth token found, run: suiviclientpro auth url")
)

// LoadConfig reads the OAuth client from the credentials file.
func LoadConfig(credentialsPath string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	return conf, nil
}

// AuthURL returns the consent page URL. Offline access is requested so the token
// carries a refresh token.
func AuthURL(conf *oauth2.Config, state string) string {
	if state == "" {
		state = "state"
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, conf *oauth2.Config, store *TokenStore, code string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := store.Save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// HTTPClient returns a client authorised with the stored token. Refreshed tokens are
// written back to store.
func HTTPClient(ctx context.Context, conf *oauth2.Config, store *TokenStore) (*http.Client, error) {
	ts, err := TokenSource(ctx, conf, store)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}
