// Package processor calls the remote summarization function that turns a
// feed URL into a finished podcast record.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const (
	// DefaultApp and DefaultFunction name the deployed summarization function.
	DefaultApp      = "corise-podcast-project"
	DefaultFunction = "process_podcast"
	// DefaultLocalPath is the fixed second argument the function expects.
	DefaultLocalPath = "/"

	maxResponseBytes = 8 << 20
	errorSnippetSize = 512
)

// Config captures the runtime settings required to reach the function.
type Config struct {
	Endpoint  string
	App       string
	Function  string
	LocalPath string
	Token     string
	// Timeout bounds one call; zero waits for the remote side.
	Timeout time.Duration
}

// Client invokes the function over HTTP.
type Client struct {
	cfg        Config
	target     string
	httpClient *http.Client
}

var _ podcast.Processor = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient validates cfg and builds the invocation URL <endpoint>/<app>/<function>.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		return nil, errors.New("processor endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("processor endpoint: %w", err)
	}
	if cfg.App == "" {
		cfg.App = DefaultApp
	}
	if cfg.Function == "" {
		cfg.Function = DefaultFunction
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = DefaultLocalPath
	}
	c := &Client{
		cfg:        cfg,
		target:     cfg.Endpoint + "/" + url.PathEscape(cfg.App) + "/" + url.PathEscape(cfg.Function),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Target returns the URL calls are posted to.
func (c *Client) Target() string {
	return c.target
}

// StatusError reports a non-2xx reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("processor request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type invokeRequest struct {
	Args []string `json:"args"`
}

// ProcessFeed blocks until the function returns the record for feedURL.
// There is no retry: a call can run for minutes and is not idempotent.
func (c *Client) ProcessFeed(ctx context.Context, feedURL string) (rec podcast.Record, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProcessor(err, time.Since(start)) }()

	body, err := json.Marshal(invokeRequest{Args: []string{feedURL, c.cfg.LocalPath}})
	if err != nil {
		return podcast.Record{}, fmt.Errorf("encode processor request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target, bytes.NewReader(body))
	if err != nil {
		return podcast.Record{}, fmt.Errorf("build processor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return podcast.Record{}, fmt.Errorf("processor request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body drained below

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetSize))
		return podcast.Record{}, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return podcast.Record{}, fmt.Errorf("read processor response: %w", err)
	}
	rec, err = podcast.Decode(data)
	if err != nil {
		return podcast.Record{}, fmt.Errorf("processor response: %w", err)
	}
	return rec, nil
}
