// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat interface (the default command).

package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/citechat/internal/logging"
	chatview "github.com/jeranaias/citechat/internal/ui/chat"
	"github.com/jeranaias/citechat/internal/ui/styles"
)

// HandleTUI starts the Bubble Tea chat view. Logs go to the log file so they
// never draw over the interface.
func HandleTUI(ctx context.Context, args Args) error {
	if !IsTTY() || !IsStdoutTTY() {
		return NewValidationErrorWithExample("terminal", "", "the TUI needs an interactive terminal",
			`citechat ask "When are expense reports due?"`)
	}

	rt, err := NewRuntime(args, logToFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := rt.Config
	view := chatview.New(rt.Session, chatview.Options{
		Theme:    styles.NewTheme(os.Stdout, cfg.UI.Theme),
		Policy:   cfg.CitationPolicy(),
		MaxFPS:   cfg.UI.MaxFPS,
		Markdown: cfg.UI.Markdown,
		Title:    fmt.Sprintf("citechat - %s", rt.Client.Endpoint()),
		Logger:   logging.Component(rt.Log, "tui"),
		Context:  ctx,
	})
	defer view.Close()

	p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return NewCommandError("tui", "run", "terminal program failed", err)
	}
	return nil
}
