// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used to draw a conversation.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	ErrorBody      lipgloss.Style
	StateNote      lipgloss.Style

	// ==========================================================================
	// CITATION STYLES
	// ==========================================================================

	CitationRef        lipgloss.Style // resolved and interactive
	CitationRefFocused lipgloss.Style
	CitationRefPassive lipgloss.Style // resolved, not yet interactive
	CitationUnresolved lipgloss.Style
	Footer             lipgloss.Style
	Rule               lipgloss.Style

	CardBox     lipgloss.Style
	CardTitle   lipgloss.Style
	CardMeta    lipgloss.Style
	CardContent lipgloss.Style

	// ==========================================================================
	// CHROME STYLES
	// ==========================================================================

	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Spinner   lipgloss.Style
	Hint      lipgloss.Style
}

// NewTheme builds a theme for the terminal behind w. mode is "auto", "dark"
// or "light"; auto asks the terminal for its background.
func NewTheme(w io.Writer, mode string) *Theme {
	if w == nil {
		w = os.Stdout
	}
	out := termenv.NewOutput(w)

	isDark := true
	switch mode {
	case "light":
		isDark = false
	case "dark":
	default:
		isDark = out.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	return newTheme(isDark, out.Profile)
}

// DefaultTheme returns a dark theme without probing the terminal.
func DefaultTheme() *Theme {
	return newTheme(true, termenv.ANSI256)
}

func newTheme(isDark bool, profile termenv.Profile) *Theme {
	t := &Theme{IsDark: isDark, ColorProfile: profile}

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ErrorBody = lipgloss.NewStyle().Foreground(Rose)
	t.StateNote = lipgloss.NewStyle().Foreground(Amber).Italic(true)

	t.CitationRef = lipgloss.NewStyle().Foreground(Cyan).Bold(true).Underline(true)
	t.CitationRefFocused = t.CitationRef.Background(SelectionBg)
	t.CitationRefPassive = lipgloss.NewStyle().Foreground(Cyan)
	t.CitationUnresolved = lipgloss.NewStyle().Foreground(TextMuted)
	t.Footer = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Rule = lipgloss.NewStyle().Foreground(Overlay)

	t.CardBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)
	t.CardTitle = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.CardMeta = lipgloss.NewStyle().Foreground(TextSecondary)
	t.CardContent = lipgloss.NewStyle().Foreground(TextPrimary)

	t.Header = lipgloss.NewStyle().Foreground(Purple).Bold(true).Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}
