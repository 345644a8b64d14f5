package session

import (
	"fmt"
	"sync"
)

// Tokens holds the credentials of the signed-in user.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticated reports whether an access token is present.
func (t Tokens) Authenticated() bool {
	return t.AccessToken != ""
}

// Store persists the session tokens. Load returns zero Tokens when nothing
// has been stored.
type Store interface {
	Load() (Tokens, error)
	Save(tokens Tokens) error
	Clear() error
}

// UpdateTokens stores a freshly issued access token. The stored refresh
// token is kept when the issuer did not rotate it.
func UpdateTokens(store Store, accessToken, refreshToken string) error {
	if refreshToken == "" {
		current, err := store.Load()
		if err != nil {
			return fmt.Errorf("failed to load current session: %w", err)
		}
		refreshToken = current.RefreshToken
	}
	return store.Save(Tokens{AccessToken: accessToken, RefreshToken: refreshToken})
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (Tokens, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens, nil
}

func (m *MemoryStore) Save(tokens Tokens) error {
	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.tokens = Tokens{}
	m.mu.Unlock()
	return nil
}
