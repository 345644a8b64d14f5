package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/learnhub/learnhub-web/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginMeLogout(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Write([]byte(`{"access_token":"T1","refresh_token":"R1"}`))
		case "/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/me":
			if r.Header.Get("Authorization") != "Bearer T1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"name":"Ana"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	sessionPath := filepath.Join(t.TempDir(), "session.json")
	common := []string{"--api-url", backend.URL, "--session-path", sessionPath}

	out, err := run(t, append([]string{"login", "--email", "ana@example.com", "--password", "secret"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as ana@example.com")

	tokens, err := session.NewFileStore(sessionPath).Load()
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{AccessToken: "T1", RefreshToken: "R1"}, tokens)

	out, err = run(t, append([]string{"me"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Ana"`)

	_, err = run(t, append([]string{"get", "/missing"}, common...)...)
	assert.Error(t, err)

	out, err = run(t, append([]string{"logout"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.NoFileExists(t, sessionPath)
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Setenv("LEARNHUB_PASSWORD", "")
	_, err := run(t, "login", "--api-url", "http://localhost:1", "--email", "ana@example.com")
	assert.Error(t, err)
}

func TestPrintJSONFallsBackToRawText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, []byte("plain text\n")))
	assert.Equal(t, "plain text\n", out.String())
}
