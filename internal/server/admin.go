package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/learnhub/learnhub-web/internal/session"
)

// adminMiddleware checks for valid admin API key from either
// 'Authorization: Bearer <key>' or 'X-API-Key: <key>' headers.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey == "" {
			s.logger.Error().Msg("ADMIN_API_KEY environment variable not set")
			http.Error(w, "Admin API not configured", http.StatusInternalServerError)
			return
		}

		var providedToken string
		authHeader := r.Header.Get("Authorization")
		xAPIKeyHeader := r.Header.Get("X-API-Key")

		if authHeader != "" {
			// Expect "Bearer <token>" format, case-insensitive
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				s.logger.Warn().
					Str("method", r.Method).
					Str("uri", r.RequestURI).
					Str("remote_addr", r.RemoteAddr).
					Msg("Invalid Authorization header format for admin endpoint")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			providedToken = parts[1]
		} else if xAPIKeyHeader != "" {
			providedToken = xAPIKeyHeader
		} else {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Missing required Authorization or X-API-Key header for admin endpoint")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedToken), []byte(s.adminAPIKey)) != 1 {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Invalid admin API key provided")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// credentialsHandler seeds the session with tokens obtained elsewhere.
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	var tokens session.Tokens
	if err := json.NewDecoder(r.Body).Decode(&tokens); err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if tokens.AccessToken == "" {
		http.Error(w, "Missing required field: access_token", http.StatusBadRequest)
		return
	}

	if err := s.client.Store().Save(tokens); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store session tokens")
		http.Error(w, "Failed to update credentials", http.StatusInternalServerError)
		return
	}
	s.clearUser()

	s.logger.Info().Bool("refresh_token", tokens.RefreshToken != "").Msg("Session credentials updated")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Credentials updated successfully",
	})
}
