// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the client's default endpoint.
	DefaultAddr = "127.0.0.1:5000"

	// MaxRequestBodySize bounds the request body (64KB).
	MaxRequestBodySize = 64 * 1024

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// Server replays a scripted transcript over the chat wire protocol.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server
	log    zerolog.Logger
	cors   *CORSConfig

	transcript Transcript
	served     atomic.Int64
	started    time.Time

	mu sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and lifecycle logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithCORS replaces the default CORS configuration.
func WithCORS(c *CORSConfig) Option {
	return func(s *Server) {
		s.cors = c
	}
}

// New creates a server on addr replaying t. An empty addr uses DefaultAddr.
func New(addr string, t Transcript, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:       addr,
		router:     http.NewServeMux(),
		log:        zerolog.Nop(),
		cors:       DefaultCORSConfig(),
		transcript: t,
		started:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// SetTranscript swaps the transcript for later requests.
func (s *Server) SetTranscript(t Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = t
}

// Transcript returns the current transcript.
func (s *Server) Transcript() Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript
}

// Served returns how many replies have been streamed.
func (s *Server) Served() int64 {
	return s.served.Load()
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /{$}", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.log),
		LoggingMiddleware(s.log),
		CORSMiddleware(s.cors),
	)(s.router)
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleChat handles POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		s.log.Debug().Err(err).Msg("invalid request body")
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	t := s.Transcript()
	lines, err := t.Lines(req.Message)
	if err != nil {
		s.log.Error().Err(err).Msg("transcript cannot be encoded")
		s.writeError(w, http.StatusInternalServerError, "Transcript unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.served.Add(1)
	s.log.Debug().Str("message", req.Message).Int("lines", len(lines)).Msg("replaying transcript")

	ctx := r.Context()
	for i, line := range lines {
		if i > 0 && t.Delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.Delay):
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", line); err != nil {
			return
		}
		flusher.Flush()
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Served  int64  `json:"served"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Served:  s.Served(),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info().Str("addr", s.addr).Str("version", Version).Msg("replay server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	s.log.Info().Int64("served", s.Served()).Msg("replay server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("failed to write response")
	}
}

// writeError writes {"error": message}, the shape the chat backend uses.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
