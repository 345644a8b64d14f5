package app

import (
	"fmt"

	"github.com/learnhub/learnhub-web/internal/apiclient"
	"github.com/learnhub/learnhub-web/internal/config"
	"github.com/learnhub/learnhub-web/internal/server"
	"github.com/learnhub/learnhub-web/internal/session"
	"github.com/rs/zerolog"
)

// NewStore builds the session store selected by cfg.StoreKind.
func NewStore(cfg config.Config, logger zerolog.Logger) (session.Store, error) {
	switch cfg.StoreKind {
	case config.StoreMemory, "":
		return session.NewMemoryStore(), nil
	case config.StoreEnv:
		return session.NewEnvStore(), nil
	case config.StoreKeychain:
		return session.NewKeychainStoreWithLogger(logger), nil
	case config.StoreFile:
		path := cfg.SessionPath
		if path == "" {
			path = session.DefaultPath()
		}
		if path == "" {
			return nil, fmt.Errorf("could not determine session file path")
		}
		return session.NewFileStore(path), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.StoreKind)
}

// NewClient creates the authenticated backend client for cfg.
func NewClient(cfg config.Config, store session.Store, logger zerolog.Logger) (*apiclient.Client, error) {
	return apiclient.New(cfg.APIURL, store,
		apiclient.WithHTTPClient(apiclient.NewHTTPClient(cfg.HTTPTimeout)),
		apiclient.WithLogger(logger.With().Str("component", "apiclient").Logger()),
	)
}

// NewServer creates a server instance backed by the given session store
func NewServer(cfg config.Config, store session.Store, logger zerolog.Logger) (*server.Server, error) {
	client, err := NewClient(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	return server.New(logger, client, server.Options{AdminAPIKey: cfg.AdminAPIKey}), nil
}
