package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/learnhub/learnhub-web/internal/apiclient"
	"github.com/learnhub/learnhub-web/internal/session"
)

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds apiclient.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		http.Error(w, "Missing required fields: email, password", http.StatusBadRequest)
		return
	}

	if _, err := s.client.Login(r.Context(), creds); err != nil {
		s.logger.Warn().Err(err).Msg("Login failed")
		s.writeClientError(w, r, err)
		return
	}

	s.clearUser()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearUser()
	if err := s.client.Logout(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear session")
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// meHandler serves the cached profile, fetching it once per session.
func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	cached, epoch := s.loadUser()
	if cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	var user json.RawMessage
	if err := s.client.Me(r.Context(), &user); err != nil {
		s.writeClientError(w, r, err)
		return
	}
	if !s.setUser(user, epoch) {
		s.logger.Debug().Msg("Session signed out while fetching profile, not caching it")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(user)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.client.Store().Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load session")
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	status := map[string]interface{}{
		"authenticated":     tokens.Authenticated(),
		"has_refresh_token": tokens.RefreshToken != "",
		"auth_failures":     s.AuthFailures(),
	}

	// Only JWT access tokens carry an expiry we can report.
	if tokens.Authenticated() {
		if expiresAt, err := session.ExpiresAt(tokens.AccessToken); err == nil {
			status["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
			status["minutes_until_expiry"] = int64(time.Until(expiresAt).Minutes())
		}
	}

	writeJSON(w, http.StatusOK, status)
}
