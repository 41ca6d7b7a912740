package google

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
)

// DefaultTokenPath is the token location relative to the working directory.
const DefaultTokenPath = "token.json"

// TokenStore keeps the user token in a JSON file.
type TokenStore struct {
	Path string
}

// NewTokenStore returns a store for the token at path.
func NewTokenStore(path string) *TokenStore {
	if path == "" {
		path = DefaultTokenPath
	}
	return &TokenStore{Path: path}
}

// Load reads the stored token. It returns ErrNoToken when none was stored.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	var tok oauth2.Token
	found, err := jsonfile.Read(s.Path, &tok)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !found || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return nil, ErrNoToken
	}
	return &tok, nil
}

// Save writes tok atomically. The file is created with owner-only permissions.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	if err := jsonfile.Write(s.Path, tok); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Exists reports whether a token has been stored.
func (s *TokenStore) Exists() bool {
	_, err := s.Load()
	return err == nil
}

// TokenSource returns a token source seeded with the stored token that saves every
// token it obtains by refresh.
func TokenSource(ctx context.Context, conf *oauth2.Config, store *TokenStore) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		base:  conf.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}, nil
}

type persistingTokenSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store *TokenStore
	last  string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.store.Save(tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
