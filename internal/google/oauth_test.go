package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	doc := fmt.Sprintf(`{"installed": {
		"client_id": "client-123.apps.googleusercontent.com",
		"client_secret": "secret",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": %q,
		"redirect_uris": ["http://localhost"]
	}}`, tokenURL)
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func tokenServer(t *testing.T, accessToken string, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": %q, "token_type": "Bearer", "expires_in": 3600, "refresh_token": "refresh-1"}`, accessToken)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadConfig(t *testing.T) {
	conf, err := LoadConfig(writeCredentials(t, "https://oauth2.googleapis.com/token"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if conf.ClientID != "client-123.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", conf.ClientID)
	}
	if len(conf.Scopes) != 1 || conf.Scopes[0] != DefaultOAuthScopes[0] {
		t.Errorf("Scopes = %v, want %v", conf.Scopes, DefaultOAuthScopes)
	}

	u, err := url.Parse(AuthURL(conf, ""))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("access_type") != "offline" {
		t.Errorf("access_type = %q, want offline", q.Get("access_type"))
	}
	if !strings.Contains(q.Get("scope"), "gmail.readonly") {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("LoadConfig() error = %v, want ErrNoCredentials", err)
	}
}

func TestTokenStore(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), DefaultTokenPath))

	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty store error = %v, want ErrNoToken", err)
	}
	if store.Exists() {
		t.Error("Exists() = true before Save")
	}

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := store.Save(tok); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Errorf("Load() = %+v", got)
	}

	info, err := os.Stat(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("token file permissions = %v, want owner-only", perm)
	}
}

func TestExchange(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "access-1", &calls)
	conf, err := LoadConfig(writeCredentials(t, srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	store := NewTokenStore(filepath.Join(t.TempDir(), DefaultTokenPath))

	if _, err := Exchange(context.Background(), conf, store, "  "); err == nil {
		t.Error("Exchange() with empty code succeeded")
	}

	tok, err := Exchange(context.Background(), conf, store, "code-xyz")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
	if !store.Exists() {
		t.Error("token not stored after Exchange")
	}
}

func TestTokenSource_PersistsRefresh(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "refreshed", &calls)
	conf, err := LoadConfig(writeCredentials(t, srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	store := NewTokenStore(filepath.Join(t.TempDir(), DefaultTokenPath))
	expired := &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-1", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour)}
	if err := store.Save(expired); err != nil {
		t.Fatal(err)
	}

	ts, err := TokenSource(context.Background(), conf, store)
	if err != nil {
		t.Fatalf("TokenSource() error = %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "refreshed" {
		t.Errorf("AccessToken = %q, want refreshed", tok.AccessToken)
	}
	if calls != 1 {
		t.Errorf("token endpoint calls = %d, want 1", calls)
	}

	stored, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessToken != "refreshed" {
		t.Errorf("stored AccessToken = %q, want refreshed", stored.AccessToken)
	}
}

func TestTokenSource_NoToken(t *testing.T) {
	conf := &oauth2.Config{}
	_, err := TokenSource(context.Background(), conf, NewTokenStore(filepath.Join(t.TempDir(), "token.json")))
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("TokenSource() error = %v, want ErrNoToken", err)
	}
}
