// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// replay.go - Scripted backend for demos and offline testing.
//
// Command: replay (alias: serve)
//
// Serves POST /chat with a fixed transcript so the client can be exercised
// without the real backend.
//
// Examples:
//   citechat replay
//   citechat replay --listen 127.0.0.1:5050 --transcript demo.toml

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/citechat/internal/logging"
	"github.com/jeranaias/citechat/internal/server"
)

// shutdownTimeout bounds graceful shutdown of the replay server.
const shutdownTimeout = 5 * time.Second

// HandleReplay handles "citechat replay".
func HandleReplay(ctx context.Context, args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	lc := cfg.LoggingConfig(os.Stderr)
	lc.Pretty = lc.Pretty || IsTTY()
	log := logging.Component(logging.New(lc), "replay")

	transcript := server.DefaultTranscript()
	if args.Transcript != "" {
		if transcript, err = server.LoadTranscript(args.Transcript); err != nil {
			return NewCommandError("replay", "load transcript", args.Transcript, err)
		}
	}

	addr := args.Listen
	if addr == "" {
		addr = server.DefaultAddr
	}
	srv := server.New(addr, transcript, server.WithLogger(log))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return NewCommandError("replay", "listen", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return NewCommandError("replay", "shutdown", "", err)
	}
	return <-errCh
}
