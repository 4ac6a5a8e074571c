// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/citechat/internal/util"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	DefaultBaseURL               = "http://127.0.0.1:5000"
	DefaultChatPath              = "/chat"
	DefaultConnectTimeout        = 5 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultUserAgent             = "citechat"

	// statusExcerptLen bounds how much of an error body is logged.
	statusExcerptLen = 512
)

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:5000)
	BaseURL string

	// ChatPath is appended to BaseURL for the chat request (default: /chat)
	ChatPath string

	// ConnectTimeout bounds dialing the backend (default: 5s)
	ConnectTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers (default: 60s).
	// There is no overall timeout: a reply may stream for as long as it needs.
	ResponseHeaderTimeout time.Duration

	// UserAgent sent with every request (default: citechat)
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:               DefaultBaseURL,
		ChatPath:              DefaultChatPath,
		ConnectTimeout:        DefaultConnectTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		UserAgent:             DefaultUserAgent,
	}
}

// chatRequest is the request body for the chat endpoint.
type chatRequest struct {
	Message string `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens chat response streams over HTTP.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	c := client.New(client.DefaultConfig())
//	body, err := c.Open(ctx, "What does the report say?")
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client. A nil config uses DefaultConfig; zero fields are
// filled with defaults.
func New(config *ClientConfig, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatPath == "" {
		cfg.ChatPath = DefaultChatPath
	}
	if !strings.HasPrefix(cfg.ChatPath, "/") {
		cfg.ChatPath = "/" + cfg.ChatPath
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ResponseHeaderTimeout == 0 {
		cfg.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout

	c := &Client{
		config:     &cfg,
		httpClient: &http.Client{Transport: transport},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

// Endpoint returns the full chat URL.
func (c *Client) Endpoint() string {
	return c.config.BaseURL + c.config.ChatPath
}

// =============================================================================
// CHAT STREAM
// =============================================================================

// Open posts the utterance to the chat endpoint and returns the response body
// for streaming. The caller must close it. Cancelling ctx aborts the request
// and any read in progress on the body. Non-2xx responses are errors.
func (c *Client) Open(ctx context.Context, utterance string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{Message: utterance})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeRequest, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, statusExcerptLen))
		resp.Body.Close()
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("body", util.Excerpt(string(excerpt), statusExcerptLen)).
			Msg("chat request rejected")
		return nil, &ClientError{
			Type:    ErrTypeStatus,
			Status:  resp.StatusCode,
			Message: "chat request failed: " + resp.Status,
		}
	}

	if resp.StatusCode == http.StatusNoContent || resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &ClientError{Type: ErrTypeNoBody, Message: "chat response has no body"}
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("header_latency", time.Since(start)).
		Msg("chat stream opened")
	return resp.Body, nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Health verifies that the backend is reachable. Any HTTP response below 500
// counts as healthy; the chat endpoint only accepts POST.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, statusExcerptLen))

	if resp.StatusCode >= 500 {
		return &ClientError{
			Type:    ErrTypeStatus,
			Status:  resp.StatusCode,
			Message: "backend unhealthy: " + resp.Status,
		}
	}
	return nil
}

// classify maps an http.Client error to a ClientError. Context errors stay
// reachable through Unwrap.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "backend unreachable", Cause: err}
}
