// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders completed reply text with glamour.
type Markdown struct {
	r *glamour.TermRenderer
}

// NewMarkdown creates a renderer that picks its style from the terminal
// background and wraps at width.
func NewMarkdown(width int) (*Markdown, error) {
	return newMarkdown(glamour.WithAutoStyle(), width)
}

// NewMarkdownWithStyle creates a renderer with a fixed glamour style such as
// "dark", "light", "ascii" or "notty".
func NewMarkdownWithStyle(style string, width int) (*Markdown, error) {
	return newMarkdown(glamour.WithStandardStyle(style), width)
}

func newMarkdown(style glamour.TermRendererOption, width int) (*Markdown, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	return &Markdown{r: r}, nil
}

// Render renders s, returning it unchanged when rendering fails or the
// renderer is nil.
func (m *Markdown) Render(s string) string {
	if m == nil || m.r == nil {
		return s
	}
	out, err := m.r.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}
