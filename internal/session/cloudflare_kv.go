//go:build js && wasm

package session

import (
	"encoding/json"
	"fmt"

	"github.com/syumai/workers/cloudflare/kv"
)

const (
	kvNamespaceBinding = "learnhub_session_kv"
	kvSessionKey       = "learnhub_session"
)

// KVStore keeps the session in a Cloudflare KV namespace
type KVStore struct {
	kvStore *kv.Namespace
}

// NewKVStore binds the learnhub_session_kv namespace configured in wrangler.toml
func NewKVStore() (*KVStore, error) {
	kvStore, err := kv.NewNamespace(kvNamespaceBinding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &KVStore{kvStore: kvStore}, nil
}

func (c *KVStore) Load() (Tokens, error) {
	raw, err := c.kvStore.GetString(kvSessionKey, nil)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to get session from KV: %w", err)
	}
	if raw == "" {
		return Tokens{}, nil
	}

	var t Tokens
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Tokens{}, fmt.Errorf("failed to parse session JSON: %w", err)
	}
	return t, nil
}

func (c *KVStore) Save(tokens Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := c.kvStore.PutString(kvSessionKey, string(data), nil); err != nil {
		return fmt.Errorf("failed to store session in KV: %w", err)
	}
	return nil
}

func (c *KVStore) Clear() error {
	if err := c.kvStore.Delete(kvSessionKey); err != nil {
		return fmt.Errorf("failed to delete session from KV: %w", err)
	}
	return nil
}
