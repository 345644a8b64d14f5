package apiclient

import "net/http"

// Request describes one backend call. Body is kept as bytes so the request
// can be replayed after a token refresh.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Credentials is the body of POST /login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by /login and /refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
