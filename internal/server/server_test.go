package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/learnhub/learnhub-web/internal/apiclient"
	"github.com/learnhub/learnhub-web/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "admin-secret"

type testEnv struct {
	server       *Server
	store        *session.MemoryStore
	meCalls      atomic.Int32
	refreshCalls atomic.Int32
	refreshOK    atomic.Bool
	lastURI      atomic.Value

	holdMe    atomic.Bool
	meStarted chan struct{}
	meRelease chan struct{}
}

// newTestEnv wires a Server to a backend that accepts only "T2" and whose
// /refresh issues T2 when refreshOK is set.
func newTestEnv(t *testing.T, tokens session.Tokens) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     session.NewMemoryStore(),
		meStarted: make(chan struct{}, 1),
		meRelease: make(chan struct{}),
	}
	require.NoError(t, env.store.Save(tokens))

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			var creds apiclient.Credentials
			json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message":"invalid credentials"}`))
				return
			}
			w.Write([]byte(`{"access_token":"T2","refresh_token":"R2"}`))
			return
		case "/logout":
			w.WriteHeader(http.StatusNoContent)
			return
		case "/refresh":
			env.refreshCalls.Add(1)
			if !env.refreshOK.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"access_token":"T2"}`))
			return
		}

		env.lastURI.Store(r.URL.RequestURI())
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/me":
			env.meCalls.Add(1)
			if env.holdMe.Load() {
				env.meStarted <- struct{}{}
				<-env.meRelease
			}
			w.Write([]byte(`{"name":"Ana"}`))
		case "/courses":
			w.Write([]byte(`{"query":"` + r.URL.RawQuery + `","method":"` + r.Method + `"}`))
		case "/quiz-attempts":
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	t.Cleanup(backend.Close)

	client, err := apiclient.New(backend.URL, env.store)
	require.NoError(t, err)
	env.server = New(zerolog.Nop(), client, Options{AdminAPIKey: testAdminKey})
	return env
}

func (e *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, session.Tokens{})
	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProxyForwardsThroughClient(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T2", RefreshToken: "R2"})

	rec := env.do(http.MethodGet, "/api/courses?page=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"query":"page=2","method":"GET"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/quiz-attempts", `{"answers":[1,2]}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"answers":[1,2]}`, rec.Body.String())
}

func TestProxyRelaysBackendErrors(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T2", RefreshToken: "R2"})

	rec := env.do(http.MethodGet, "/api/courses/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"not found"}`, rec.Body.String())
	assert.Equal(t, int32(0), env.refreshCalls.Load())
}

func TestProxyRefreshesExpiredSession(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T1", RefreshToken: "R1"})
	env.refreshOK.Store(true)

	rec := env.do(http.MethodGet, "/api/courses", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), env.refreshCalls.Load())

	tokens, _ := env.store.Load()
	assert.Equal(t, "T2", tokens.AccessToken)
}

func TestProxyKeepsEscapedPathSegments(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T2", RefreshToken: "R2"})

	env.do(http.MethodGet, "/api/courses/a%2Fb%3Fadmin=1", "")
	assert.Equal(t, "/courses/a%2Fb%3Fadmin=1", env.lastURI.Load())

	env.do(http.MethodGet, "/api/courses/go%20basics?page=1", "")
	assert.Equal(t, "/courses/go%20basics?page=1", env.lastURI.Load())
}

func TestProxyRefusesSessionRoutes(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T1", RefreshToken: "R1"})

	tests := []struct {
		target string
		want   string
	}{
		{"/api/login", `{"error":"not available through /api","use":"/auth/login"}`},
		{"/api/logout/", `{"error":"not available through /api","use":"/auth/logout"}`},
		{"/api/refresh", `{"error":"not available through /api"}`},
		{"/api/%6Cogin", `{"error":"not available through /api","use":"/auth/login"}`},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := env.do(http.MethodPost, tt.target, `{"email":"ana@example.com","password":"wrong"}`)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}

	assert.Equal(t, int32(0), env.refreshCalls.Load())
	assert.Equal(t, int64(0), env.server.AuthFailures())
	tokens, _ := env.store.Load()
	assert.Equal(t, session.Tokens{AccessToken: "T1", RefreshToken: "R1"}, tokens)
}

func TestProfileFetchedBeforeSignOutIsNotCached(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T2", RefreshToken: "R2"})
	env.holdMe.Store(true)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- env.do(http.MethodGet, "/auth/me", "") }()

	select {
	case <-env.meStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("profile request never reached the backend")
	}
	env.server.handleAuthFailure()
	close(env.meRelease)

	rec := <-done
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.server.cachedUser())
}

func TestAuthFailureSignsUserOut(t *testing.T) {
	env := newTestEnv(t, session.Tokens{AccessToken: "T2", RefreshToken: "R1"})

	rec := env.do(http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.server.cachedUser())

	// The backend starts rejecting T2 and will not refresh.
	require.NoError(t, env.store.Save(session.Tokens{AccessToken: "T1", RefreshToken: "R1"}))

	rec = env.do(http.MethodGet, "/api/courses", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"session expired","login":"/auth/login"}`, rec.Body.String())

	assert.Equal(t, int64(1), env.server.AuthFailures())
	assert.Nil(t, env.server.cachedUser())

	tokens, _ := env.store.Load()
	assert.Equal(t, session.Tokens{}, tokens)
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t, session.Tokens{})

	rec := env.do(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int32(0), env.refreshCalls.Load())

	rec = env.do(http.MethodPost, "/auth/login", `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	tokens, _ := env.store.Load()
	assert.Equal(t, session.Tokens{AccessToken: "T2", RefreshToken: "R2"}, tokens)

	rec = env.do(http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/auth/me", "")
	assert.JSONEq(t, `{"name":"Ana"}`, rec.Body.String())
	assert.Equal(t, int32(1), env.meCalls.Load(), "profile is cached after the first fetch")

	rec = env.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	tokens, _ = env.store.Load()
	assert.False(t, tokens.Authenticated())
	assert.Nil(t, env.server.cachedUser())
}

func TestStatus(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute)
	jwtToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	env := newTestEnv(t, session.Tokens{AccessToken: jwtToken, RefreshToken: "R1"})

	rec := env.do(http.MethodGet, "/auth/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["authenticated"])
	assert.Equal(t, true, status["has_refresh_token"])
	assert.Contains(t, status, "expires_at")
	assert.InDelta(t, 29, status["minutes_until_expiry"], 1)
}

func TestAdminCredentials(t *testing.T) {
	env := newTestEnv(t, session.Tokens{})
	body := `{"access_token":"T2","refresh_token":"R9"}`

	rec := env.do(http.MethodPost, "/admin/credentials", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/admin/credentials", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/admin/credentials", body, "Authorization", "Token "+testAdminKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/admin/credentials", `{"refresh_token":"R9"}`, "X-API-Key", testAdminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/admin/credentials", body, "X-API-Key", testAdminKey)
	require.Equal(t, http.StatusOK, rec.Code)

	tokens, _ := env.store.Load()
	assert.Equal(t, session.Tokens{AccessToken: "T2", RefreshToken: "R9"}, tokens)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, session.Tokens{})
	rec := env.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
