package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/learnhub/learnhub-web/internal/session"
	"github.com/rs/zerolog"
)

const (
	DefaultRefreshPath = "/refresh"
	requestIDHeader    = "X-Request-ID"
)

// Client issues authenticated requests to the LearnHub backend. It attaches
// the stored access token to every call, and when the backend answers 401 it
// joins a single shared refresh cycle and replays the request once with the
// new token.
type Client struct {
	baseURL     string
	store       session.Store
	httpClient  HTTPClient
	logger      zerolog.Logger
	refreshPath string
	headers     http.Header

	mu            sync.Mutex
	refreshing    *refreshCycle
	last          *refreshCycle
	generation    uint64
	onAuthFailure func()
}

type Option func(*Client)

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithRefreshPath(path string) Option {
	return func(c *Client) { c.refreshPath = path }
}

// New creates a client for the backend at baseURL. The store is shared with
// the host application and is the only place tokens are kept.
func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	c := &Client{
		baseURL:     baseURL,
		store:       store,
		httpClient:  NewHTTPClient(0),
		logger:      zerolog.Nop(),
		refreshPath: DefaultRefreshPath,
		headers: http.Header{
			"Accept":       []string{"application/json"},
			"Content-Type": []string{"application/json"},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetOnAuthFailure registers the callback invoked once per failed refresh
// cycle. The host uses it to drop its user state and send the user to login.
func (c *Client) SetOnAuthFailure(fn func()) {
	c.mu.Lock()
	c.onAuthFailure = fn
	c.mu.Unlock()
}

// Store returns the session store the client reads tokens from.
func (c *Client) Store() session.Store {
	return c.store
}

// Do sends req. Non-2xx responses are returned as *HTTPError. A 401 is
// retried once after the shared refresh cycle settles; a second 401 is final.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.do(ctx, req, true)
}

func (c *Client) do(ctx context.Context, req *Request, retryOnUnauthorized bool) (*Response, error) {
	req = c.prepare(req)
	sentAt := c.currentGeneration()

	tokens, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	resp, err := c.send(ctx, req, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || !retryOnUnauthorized || c.isRefreshPath(req.Path) {
		return c.finish(req, resp)
	}

	c.logger.Warn().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Msg("Received 401 Unauthorized, waiting for token refresh")

	token, err := c.awaitRefresh(ctx, sentAt)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, req, token)
	if err != nil {
		return nil, fmt.Errorf("retry request failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Error().
			Str("path", req.Path).
			Msg("Still received 401 after token refresh, giving up")
	} else {
		c.logger.Debug().
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Msg("Request succeeded after token refresh")
	}

	return c.finish(req, resp)
}

// prepare copies req and fills in default headers and a request ID. The
// caller's request is never mutated.
func (c *Client) prepare(req *Request) *Request {
	out := &Request{
		Method: req.Method,
		Path:   req.Path,
		Body:   req.Body,
		Header: c.headers.Clone(),
	}
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if !strings.HasPrefix(out.Path, "/") {
		out.Path = "/" + out.Path
	}
	for k, v := range req.Header {
		out.Header[k] = append([]string(nil), v...)
	}
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}
	return out
}

// send performs one attempt of req with the given access token.
func (c *Client) send(ctx context.Context, req *Request, accessToken string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = req.Header.Clone()
	c.authorize(httpReq, req.Path, accessToken)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// authorize attaches the bearer token. The refresh endpoint never receives
// the access token.
func (c *Client) authorize(httpReq *http.Request, path, accessToken string) {
	httpReq.Header.Del("Authorization")
	if accessToken == "" || c.isRefreshPath(path) {
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
}

func (c *Client) isRefreshPath(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.TrimRight(path, "/") == strings.TrimRight(c.refreshPath, "/")
}

func (c *Client) finish(req *Request, resp *Response) (*Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	return nil, &HTTPError{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}
}

// GetJSON performs a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON encodes in as the request body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// DeleteJSON performs a DELETE and decodes the body into out.
func (c *Client) DeleteJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	req := &Request{Method: method, Path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = b
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeBody(resp, out)
}

func decodeBody(resp *Response, out any) error {
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
