package session

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	keychainService = "learnhub-session"
	keychainAccount = "learnhub"
)

// KeychainStore keeps the session as a generic password in the macOS
// keychain, using the security command line tool.
type KeychainStore struct {
	mu      sync.Mutex
	service string
	logger  *zerolog.Logger
	// run executes security with the given arguments and returns stdout.
	run func(args ...string) ([]byte, error)
}

// NewKeychainStore creates a keychain-backed store
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{
		service: keychainService,
		run:     runSecurity,
	}
}

// NewKeychainStoreWithLogger creates a keychain-backed store with logger
func NewKeychainStoreWithLogger(logger zerolog.Logger) *KeychainStore {
	k := NewKeychainStore()
	k.logger = &logger
	return k
}

func (k *KeychainStore) Load() (Tokens, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	output, err := k.run("find-generic-password", "-s", k.service, "-w")
	if err != nil {
		// security exits non-zero when the item does not exist
		if k.logger != nil {
			k.logger.Debug().Err(err).Msg("No session found in keychain")
		}
		return Tokens{}, nil
	}

	var t Tokens
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(output))), &t); err != nil {
		return Tokens{}, fmt.Errorf("failed to parse JSON from keychain: %w", err)
	}
	return t, nil
}

func (k *KeychainStore) Save(tokens Tokens) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if _, err := k.run("add-generic-password", "-s", k.service, "-a", keychainAccount, "-w", string(data), "-U"); err != nil {
		return fmt.Errorf("failed to update keychain: %w", err)
	}
	return nil
}

func (k *KeychainStore) Clear() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	// Deleting a missing item is not an error for our purposes.
	if _, err := k.run("delete-generic-password", "-s", k.service); err != nil && k.logger != nil {
		k.logger.Debug().Err(err).Msg("Keychain delete returned an error")
	}
	return nil
}

func runSecurity(args ...string) ([]byte, error) {
	return exec.Command("security", args...).Output()
}
