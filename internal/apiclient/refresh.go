package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/learnhub/learnhub-web/internal/session"
)

// refreshCycle is one exchange of the refresh token. done is closed once
// token or err is set; every waiter reads the same outcome.
type refreshCycle struct {
	done  chan struct{}
	token string
	err   error
}

func (c *Client) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Refresh exchanges the refresh token for a new access token, joining the
// cycle already in flight if there is one.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.awaitRefresh(ctx, c.currentGeneration())
}

// awaitRefresh resolves the refresh cycle that a request sent at generation
// sentAt belongs to. At most one cycle runs at a time. A request sent before
// the most recent cycle settled takes that cycle's outcome instead of
// starting another one.
func (c *Client) awaitRefresh(ctx context.Context, sentAt uint64) (string, error) {
	c.mu.Lock()
	cycle := c.refreshing
	switch {
	case cycle != nil:
	case c.generation != sentAt && c.last != nil:
		last := c.last
		c.mu.Unlock()
		if last.err != nil {
			return "", last.err
		}
		tokens, err := c.store.Load()
		if err != nil {
			return "", fmt.Errorf("failed to load session: %w", err)
		}
		if tokens.AccessToken == "" {
			return "", ErrRefreshFailed
		}
		return tokens.AccessToken, nil
	default:
		cycle = &refreshCycle{done: make(chan struct{})}
		c.refreshing = cycle
		go c.runRefresh(context.WithoutCancel(ctx), cycle)
	}
	c.mu.Unlock()

	select {
	case <-cycle.done:
		return cycle.token, cycle.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) runRefresh(ctx context.Context, cycle *refreshCycle) {
	c.logger.Info().Msg("🔄 Access token rejected, refreshing...")

	token, err := c.refresh(ctx)

	c.mu.Lock()
	cycle.token, cycle.err = token, err
	c.refreshing = nil
	c.last = cycle
	c.generation++
	onAuthFailure := c.onAuthFailure
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("❌ Failed to refresh access token")
		if onAuthFailure != nil {
			onAuthFailure()
		}
	} else {
		c.logger.Info().Msg("✅ Access token refreshed successfully")
	}

	close(cycle.done)
}

// refresh performs the single call to the refresh endpoint. Any failure
// clears both stored tokens.
func (c *Client) refresh(ctx context.Context) (string, error) {
	token, err := c.exchangeRefreshToken(ctx)
	if err != nil {
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("Failed to clear session after refresh failure")
		}
		return "", err
	}
	return token, nil
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	tokens, err := c.store.Load()
	if err != nil {
		return "", fmt.Errorf("%w: failed to load session: %w", ErrRefreshFailed, err)
	}
	if tokens.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal refresh request: %w", ErrRefreshFailed, err)
	}

	req := c.prepare(&Request{Method: http.MethodPost, Path: c.refreshPath, Body: body})
	resp, err := c.send(ctx, req, "")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if _, err := c.finish(req, resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	var tokenResp TokenResponse
	if err := decodeBody(resp, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrMalformedTokenResponse)
	}

	if err := session.UpdateTokens(c.store, tokenResp.AccessToken, tokenResp.RefreshToken); err != nil {
		return "", fmt.Errorf("%w: failed to store refreshed tokens: %w", ErrRefreshFailed, err)
	}
	return tokenResp.AccessToken, nil
}
