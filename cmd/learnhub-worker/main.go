//go:build js && wasm

package main

import (
	"github.com/learnhub/learnhub-web/internal/app"
	"github.com/learnhub/learnhub-web/internal/config"
	"github.com/learnhub/learnhub-web/internal/logger"
	"github.com/learnhub/learnhub-web/internal/session"
	"github.com/syumai/workers"
)

func main() {
	cfg, err := config.FromEnv()
	log := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Msg("📦 Using Cloudflare KV session store")
	store, err := session.NewKVStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Cloudflare KV store")
	}

	srv, err := app.NewServer(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(srv)
}
