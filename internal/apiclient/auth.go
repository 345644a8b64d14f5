package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/learnhub/learnhub-web/internal/session"
)

// Login exchanges credentials for a session and stores both tokens. A 401
// here means bad credentials and never starts a refresh.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	resp, err := c.do(ctx, &Request{Method: http.MethodPost, Path: "/login", Body: body}, false)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeBody(resp, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, ErrMalformedTokenResponse
	}

	if err := c.store.Save(session.Tokens{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	c.logger.Info().Bool("refresh_token", tokenResp.RefreshToken != "").Msg("Logged in")
	return &tokenResp, nil
}

// Logout notifies the backend and clears the local session whatever the
// backend answers. Only a failure to clear the store is returned.
func (c *Client) Logout(ctx context.Context) error {
	tokens, err := c.store.Load()
	if err == nil && tokens.Authenticated() {
		if _, err := c.do(ctx, &Request{Method: http.MethodPost, Path: "/logout"}, false); err != nil {
			c.logger.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/me", out)
}
