package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/learnhub/learnhub-web/internal/app"
	"github.com/learnhub/learnhub-web/internal/config"
	"github.com/learnhub/learnhub-web/internal/logger"
	"github.com/learnhub/learnhub-web/internal/observability"
	"github.com/learnhub/learnhub-web/internal/session"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDevelopment()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	storeKind := flag.String("session-store", cfg.StoreKind, "Session store: memory, file, env or keychain")
	sessionPath := flag.String("session-path", cfg.SessionPath, "Path of the session file when -session-store=file")
	apiURL := flag.String("api-url", cfg.APIURL, "LearnHub backend base URL")
	flag.Parse()

	cfg.StoreKind = *storeKind
	cfg.SessionPath = *sessionPath
	cfg.APIURL = *apiURL

	log := logger.New(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		log.Error().Err(err).Msg("Failed to initialise Sentry")
	}
	defer observability.FlushSentry()

	store, err := app.NewStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session store")
	}
	log.Info().Str("store", cfg.StoreKind).Msg("🔑 Using session store")

	validateSessionAtStartup(store, log)

	srv, err := app.NewServer(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("addr", cfg.Addr()).Str("api_url", cfg.APIURL).Msg("Starting server")
	if err := http.ListenAndServe(cfg.Addr(), srv); err != nil {
		log.Error().Err(err).Msg("Server failed to start")
		observability.FlushSentry()
		os.Exit(1)
	}
}

func validateSessionAtStartup(store session.Store, log zerolog.Logger) {
	tokens, err := store.Load()
	if err != nil {
		log.Error().Err(err).Msg("⚠️  Failed to load session at startup")
		return
	}

	if !tokens.Authenticated() {
		log.Info().Msg("No stored session, waiting for login")
		return
	}

	if tokens.RefreshToken == "" {
		log.Warn().Msg("⚠️  Stored session has no refresh token, it will end on the first 401")
	}

	expiresAt, err := session.ExpiresAt(tokens.AccessToken)
	if err != nil {
		log.Info().Int("token_length", len(tokens.AccessToken)).Msg("✅ Session loaded")
		return
	}

	minutesUntilExpiry := int64(time.Until(expiresAt).Minutes())
	if minutesUntilExpiry <= 0 {
		log.Warn().
			Int64("minutes_expired", -minutesUntilExpiry).
			Msg("⚠️  Access token is already expired, will refresh on first 401")
	} else {
		log.Info().
			Int64("minutes_until_expiry", minutesUntilExpiry).
			Msg("✅ Session loaded")
	}
}
