// Package apiclient talks to the remote quiz backend over its REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quizmaster-web/internal/domain"
)

// DefaultBaseURL is the hosted backend origin.
const DefaultBaseURL = "https://quizzes-2.onrender.com"

// Paths lets deployments point at the alternate profile and leaderboard routes.
type Paths struct {
	Profile     string
	Leaderboard string
}

// DefaultPaths are the routes of the current backend version.
var DefaultPaths = Paths{
	Profile:     "/api/profile/me",
	Leaderboard: "/api/results/public",
}

// Client issues one request per backend operation.
type Client struct {
	baseURL string
	paths   Paths
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPaths overrides the profile and leaderboard routes. Empty fields keep the defaults.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		if p.Profile != "" {
			c.paths.Profile = p.Profile
		}
		if p.Leaderboard != "" {
			c.paths.Leaderboard = p.Leaderboard
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   DefaultPaths,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	op      string
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

// do sends the request and decodes a successful JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, req, out)
	observe(req.op, status, time.Since(start))
	if err != nil {
		c.logger.Warn("backend call failed", "op", req.op, "method", req.method, "path", req.path, "status", status, "error", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) (int, error) {
	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("%s: encode body: %w", req.op, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%s: %w", req.op, ctx.Err())
		}
		return 0, &RequestError{Op: req.op, Message: err.Error(), Err: errors.Join(domain.ErrNetwork, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, &RequestError{Op: req.op, Status: resp.StatusCode, Message: err.Error(), Err: errors.Join(domain.ErrNetwork, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newStatusError(req.op, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, &RequestError{
			Op:      req.op,
			Status:  resp.StatusCode,
			Message: "Unexpected response from the server.",
			Err:     errors.Join(domain.ErrServer, fmt.Errorf("decode response: %w", err)),
		}
	}
	return resp.StatusCode, nil
}
