// Package auth handles the OAuth2 authorization flow and token storage.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrTokenNotSet indicates no OAuth token is available.
var ErrTokenNotSet = errors.New("no token defined")

// Authorization states expire if the browser round trip takes longer.
const stateTTL = 5 * time.Minute

// Token guards the account's OAuth2 token for concurrent use and
// persists it as JSON on disk.
type Token struct {
	mu            sync.RWMutex
	cfg           *oauth2.Config
	token         *oauth2.Token
	persistPath   string
	pendingStates map[string]time.Time
}

// NewToken creates a Token manager, loading a previously persisted
// token when persistPath names an existing file.
func NewToken(cfg *oauth2.Config, persistPath string) (*Token, error) {
	t := &Token{
		cfg:           cfg,
		persistPath:   persistPath,
		pendingStates: map[string]time.Time{},
	}
	if persistPath == "" {
		return t, nil
	}

	tok, err := loadToken(persistPath)
	if err != nil {
		return nil, err
	}
	t.token = tok

	return t, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("token file does not exist yet, will be created on persist", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}

	return tok, nil
}

// RedirectURL generates the OAuth2 authorization URL with a secure random state.
func (t *Token) RedirectURL() (string, error) {
	state, err := t.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return t.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (t *Token) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.pendingStates[state] = now.Add(stateTTL)

	for s, exp := range t.pendingStates {
		if exp.Before(now) {
			delete(t.pendingStates, s)
		}
	}

	return state, nil
}

func (t *Token) validateState(state string) bool {
	if state == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, exists := t.pendingStates[state]
	if !exists {
		return false
	}

	// One-shot: a state is consumed on first use.
	delete(t.pendingStates, state)

	return !time.Now().After(expiry)
}

// AuthorizeCode exchanges an authorization code for an access token
// after validating the state parameter.
func (t *Token) AuthorizeCode(ctx context.Context, code string, state string) error {
	if !t.validateState(state) {
		return errors.New("invalid or expired state parameter")
	}

	// Exchange is a network call; keep it outside the lock.
	tok, err := t.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	t.mu.Lock()
	t.token = tok
	t.mu.Unlock()

	return nil
}

// OAuthToken returns the current OAuth2 token.
func (t *Token) OAuthToken() (*oauth2.Token, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token == nil {
		return nil, ErrTokenNotSet
	}

	return t.token, nil
}

// Persist saves the token to disk. A manager without a persist path or
// without a token is a no-op.
func (t *Token) Persist() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.persistPath == "" || t.token == nil {
		return nil
	}

	raw, err := json.Marshal(t.token)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	if err := os.WriteFile(t.persistPath, raw, 0600); err != nil {
		return fmt.Errorf("os.WriteFile failed: %w", err)
	}

	return nil
}
