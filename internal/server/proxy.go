package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/learnhub/learnhub-web/internal/apiclient"
)

const loginPath = "/auth/login"

// sessionRoutes are backend endpoints that change the session itself. They
// are only reachable through the /auth handlers, which never refresh on 401.
var sessionRoutes = map[string]string{
	"/login":   loginPath,
	"/logout":  "/auth/logout",
	"/refresh": "",
}

// proxyHandler forwards /api/<path> to the backend's /<path>. The path is
// forwarded in its escaped form so encoded separators stay inside their
// segment.
func (s *Server) proxyHandler(w http.ResponseWriter, r *http.Request) {
	decoded := strings.TrimRight(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	if use, ok := sessionRoutes[decoded]; ok {
		resp := map[string]string{"error": "not available through /api"}
		if use != "" {
			resp["use"] = use
		}
		writeJSON(w, http.StatusNotFound, resp)
		return
	}

	path := strings.TrimPrefix(r.URL.EscapedPath(), "/api")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	req := &apiclient.Request{Method: r.Method, Path: path}
	if len(body) > 0 {
		req.Body = body
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header = http.Header{"Content-Type": []string{ct}}
	}

	resp, err := s.client.Do(r.Context(), req)
	if err != nil {
		s.writeClientError(w, r, err)
		return
	}

	relay(w, resp.StatusCode, resp.Header, resp.Body)
}

// writeClientError maps a client error onto the host's response. Refresh
// failures become a 401 pointing at the login route.
func (s *Server) writeClientError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apiclient.ErrRefreshFailed) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "session expired",
			"login": loginPath,
		})
		return
	}

	var httpErr *apiclient.HTTPError
	if errors.As(err, &httpErr) {
		relay(w, httpErr.StatusCode, httpErr.Header, httpErr.Body)
		return
	}

	s.logger.Error().Err(err).Str("uri", r.RequestURI).Msg("Error communicating with backend")
	http.Error(w, "Failed to communicate with backend", http.StatusBadGateway)
}

func relay(w http.ResponseWriter, status int, header http.Header, body []byte) {
	if ct := header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(status)
	w.Write(body)
}
