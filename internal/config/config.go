package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envEnvVar          = "ENV"
	portEnvVar         = "PORT"
	apiURLEnvVar       = "LEARNHUB_API_URL"
	storeEnvVar        = "LEARNHUB_SESSION_STORE"
	sessionPathEnvVar  = "LEARNHUB_SESSION_PATH"
	httpTimeoutEnvVar  = "LEARNHUB_HTTP_TIMEOUT"
	adminAPIKeyEnvVar  = "ADMIN_API_KEY"
	sentryDSNEnvVar    = "SENTRY_DSN"
	logLevelEnvVar     = "LOG_LEVEL"
	defaultPort        = "8080"
	defaultStoreKind   = StoreMemory
	defaultEnvironment = "development"
)

// Session store backends selectable through LEARNHUB_SESSION_STORE.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreEnv      = "env"
	StoreKeychain = "keychain"
)

type Config struct {
	Env         string
	Port        string
	APIURL      string
	StoreKind   string
	SessionPath string
	HTTPTimeout time.Duration
	AdminAPIKey string
	SentryDSN   string
	LogLevel    string
}

// Load reads a .env file when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Env:         GetEnv(envEnvVar, defaultEnvironment),
		Port:        GetEnv(portEnvVar, defaultPort),
		APIURL:      strings.TrimRight(GetEnv(apiURLEnvVar, ""), "/"),
		StoreKind:   strings.ToLower(GetEnv(storeEnvVar, defaultStoreKind)),
		SessionPath: GetEnv(sessionPathEnvVar, ""),
		AdminAPIKey: GetEnv(adminAPIKeyEnvVar, ""),
		SentryDSN:   GetEnv(sentryDSNEnvVar, ""),
		LogLevel:    GetEnv(logLevelEnvVar, "info"),
	}

	if raw := GetEnv(httpTimeoutEnvVar, ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", httpTimeoutEnvVar, raw, err)
		}
		cfg.HTTPTimeout = d
	}

	switch cfg.StoreKind {
	case StoreMemory, StoreFile, StoreEnv, StoreKeychain:
	default:
		return Config{}, fmt.Errorf("unknown %s %q", storeEnvVar, cfg.StoreKind)
	}

	return cfg, nil
}

// Validate checks the settings a host needs before it can serve.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%s is required", apiURLEnvVar)
	}
	return nil
}

// IsDevelopment mirrors the logger's environment check.
func (c Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func GetEnv(envVar, defaultValue string) string {
	value := getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
