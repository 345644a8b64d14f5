package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/learnhub/learnhub-web/internal/apiclient"
	"github.com/learnhub/learnhub-web/internal/observability"
	"github.com/rs/zerolog"
)

// Server is the web host in front of the LearnHub backend. It owns one
// session, forwards API calls through the authenticated client and drops
// its user state when the client reports an unrecoverable auth failure.
type Server struct {
	client      *apiclient.Client
	router      *mux.Router
	logger      zerolog.Logger
	adminAPIKey string

	mu           sync.RWMutex
	user         json.RawMessage
	userEpoch    uint64
	authFailures atomic.Int64
}

type Options struct {
	// AdminAPIKey guards /admin routes. Empty disables them.
	AdminAPIKey string
}

func New(logger zerolog.Logger, client *apiclient.Client, opts Options) *Server {
	s := &Server{
		client:      client,
		router:      mux.NewRouter(),
		logger:      logger,
		adminAPIKey: opts.AdminAPIKey,
	}

	client.SetOnAuthFailure(s.handleAuthFailure)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/auth/login", s.loginHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/auth/logout", s.logoutHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/auth/me", s.meHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/auth/status", s.statusHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/admin/credentials", s.adminMiddleware(s.credentialsHandler)).Methods(http.MethodPost)
	s.router.PathPrefix("/api/").HandlerFunc(s.proxyHandler)
	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(s.router).ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

// handleAuthFailure runs once per failed refresh cycle.
func (s *Server) handleAuthFailure() {
	s.clearUser()
	n := s.authFailures.Add(1)
	s.logger.Warn().Int64("auth_failures", n).Msg("Session could not be refreshed, user signed out")
	observability.ReportAuthFailure("refresh token rejected or missing")
}

// AuthFailures returns how many refresh cycles have failed since start.
func (s *Server) AuthFailures() int64 {
	return s.authFailures.Load()
}

func (s *Server) cachedUser() json.RawMessage {
	user, _ := s.loadUser()
	return user
}

// loadUser returns the cached profile and the epoch it was read at. Every
// sign-out starts a new epoch.
func (s *Server) loadUser() (json.RawMessage, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.userEpoch
}

// setUser caches user unless the session was signed out since epoch.
func (s *Server) setUser(user json.RawMessage, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userEpoch != epoch {
		return false
	}
	s.user = user
	return true
}

func (s *Server) clearUser() {
	s.mu.Lock()
	s.user = nil
	s.userEpoch++
	s.mu.Unlock()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
