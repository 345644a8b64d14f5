package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

const maxErrorBody = 300

var (
	// ErrRefreshFailed is returned to every request that waited on a refresh
	// cycle that did not produce a new access token.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNoRefreshToken means the session has no refresh token to exchange.
	ErrNoRefreshToken = fmt.Errorf("%w: no refresh token stored", ErrRefreshFailed)
	// ErrMalformedTokenResponse means the backend answered without an access token.
	ErrMalformedTokenResponse = errors.New("token response is missing access_token")
)

// HTTPError is a completed request whose final status was not 2xx.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	}
	body := string(e.Body)
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "…(truncated)"
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// *HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend or a failed
// refresh cycle.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrRefreshFailed) || StatusCode(err) == http.StatusUnauthorized
}
