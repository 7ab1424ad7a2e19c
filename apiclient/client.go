// Package apiclient is the single chokepoint for backend calls: it resolves
// paths against the API root, attaches the bearer token and request ID, and
// maps responses onto the client's error taxonomy. It never refreshes tokens
// itself; a 401 surfaces to the caller like any other status.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenSource supplies the current access token at call construction time.
// An empty string means "no token" and suppresses the Authorization header.
type TokenSource interface {
	AccessToken() string
}

// Client performs all outbound backend calls.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenSource
	uploadTimeout time.Duration
	logger        zerolog.Logger
}

// Option modifies a Client instance.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUploadTimeout overrides the file upload time limit.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.uploadTimeout = d
	}
}

// WithLogger sets the request trace logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a gateway client rooted at baseURL. tokens may not be nil;
// pass a source returning "" for unauthenticated use.
func New(baseURL string, tokens TokenSource, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[apiclient.New] baseURL is required")
	}
	if tokens == nil {
		return nil, errors.New("[apiclient.New] token source is required")
	}

	client := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		tokens:        tokens,
		uploadTimeout: 180 * time.Second,
		logger:        zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// Call executes a JSON request against path and decodes the response into
// out when out is non-nil. Non-2xx responses return an *APIError with the
// status preserved; malformed success bodies return an ErrParse chain.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Call] encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Call] building request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	c.logger.Debug().Str("method", method).Str("path", path).Msg("api call")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Call] %s %s", method, path)
	}
	defer resp.Body.Close()

	if !successStatus(resp.StatusCode) {
		return errors.Wrapf(responseError(resp), "[Call] %s %s", method, path)
	}

	return decodeBody(resp.Body, out, method, path)
}

// setCommonHeaders attaches the bearer token, when one exists, and a fresh
// request ID. A present-but-empty token is treated as no token.
func (c *Client) setCommonHeaders(req *http.Request) {
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
}

func successStatus(code int) bool {
	return code >= 200 && code <= 299
}

// decodeBody decodes a successful response into out. A nil out drains the
// body; an empty body leaves out untouched (confirm/reject return nothing).
func decodeBody(body io.Reader, out any, method, path string) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrapf(err, "[decodeBody] reading %s %s", method, path)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(ErrParse, "[decodeBody] %s %s: %s", method, path, err)
	}
	return nil
}
