// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - Shared setup for commands that talk to the chat backend.

package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/citechat/internal/chat"
	"github.com/jeranaias/citechat/internal/client"
	"github.com/jeranaias/citechat/internal/config"
	"github.com/jeranaias/citechat/internal/logging"
	"github.com/jeranaias/citechat/internal/metrics"
)

// logTarget selects where a command's logs go.
type logTarget int

const (
	// logToFile keeps logs off the terminal; used by commands that own it.
	logToFile logTarget = iota
	// logToStderr is used by servers and diagnostics.
	logToStderr
)

// Runtime bundles the configured components of one command invocation.
type Runtime struct {
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *metrics.Metrics
	Client  *client.Client
	Session *chat.Session

	closers []func()
}

// loadConfig loads the config named by --config (or the default location)
// and applies command-line overrides on top of file and environment values.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Endpoint != "" {
		cfg.Server.Endpoint = args.Endpoint
	}
	if args.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(args.LogLevel)
	}
	if args.Citations != "" {
		cfg.UI.Citations = strings.ToLower(args.Citations)
	}
	if args.NoMarkdown {
		cfg.UI.Markdown = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// NewRuntime loads configuration and wires logger, metrics, client and
// session. Close releases everything it opened.
func NewRuntime(args Args, target logTarget) (*Runtime, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg}
	rt.Log = rt.openLog(target)

	rt.Metrics = metrics.New()
	if cfg.Metrics.Listen != "" {
		if err := rt.serveMetrics(cfg.Metrics.Listen); err != nil {
			rt.Close()
			return nil, err
		}
	}

	rt.Client = client.New(cfg.ClientConfig(),
		client.WithLogger(logging.Component(rt.Log, "client")))

	rt.Session = chat.NewSession(rt.Client,
		chat.WithLogger(logging.Component(rt.Log, "session")),
		chat.WithMetrics(rt.Metrics),
		chat.WithErrorText(cfg.ErrorText),
		chat.WithStreamOptions(cfg.StreamOptions()...),
	)

	rt.Log.Debug().
		Str("endpoint", rt.Client.Endpoint()).
		Str("citations", cfg.CitationPolicy().String()).
		Msg("runtime ready")
	return rt, nil
}

func (rt *Runtime) openLog(target logTarget) zerolog.Logger {
	var out io.Writer = os.Stderr
	if target == logToFile {
		path, err := rt.Config.LogFilePath()
		if err == nil {
			var f *os.File
			if f, err = logging.OpenFile(path); err == nil {
				out = f
				rt.closers = append(rt.closers, func() { _ = f.Close() })
			}
		}
		if err != nil {
			// No file to write to; stay quiet on the terminal.
			return logging.Nop()
		}
	}
	return logging.New(rt.Config.LoggingConfig(out))
}

func (rt *Runtime) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return NewCommandError("metrics", "listen", "cannot listen on "+addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	rt.Log.Info().Str("addr", ln.Addr().String()).Msg("metrics listening")

	rt.closers = append(rt.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return nil
}

// Close cancels any in-flight send and releases resources in reverse order.
func (rt *Runtime) Close() {
	if rt.Session != nil {
		rt.Session.Cancel()
		rt.Session.Wait()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
