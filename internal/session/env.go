package session

import "os"

const (
	AccessTokenEnvVar  = "LEARNHUB_ACCESS_TOKEN"
	RefreshTokenEnvVar = "LEARNHUB_REFRESH_TOKEN"
)

// EnvStore is a memory store seeded from environment variables. Refreshed
// tokens live in memory only; the environment is never written.
type EnvStore struct {
	*MemoryStore
}

// NewEnvStore creates a store seeded from LEARNHUB_ACCESS_TOKEN and
// LEARNHUB_REFRESH_TOKEN.
func NewEnvStore() *EnvStore {
	s := &EnvStore{MemoryStore: NewMemoryStore()}
	s.tokens = Tokens{
		AccessToken:  os.Getenv(AccessTokenEnvVar),
		RefreshToken: os.Getenv(RefreshTokenEnvVar),
	}
	return s
}
