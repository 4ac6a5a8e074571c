// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/ui/render"
	"github.com/jeranaias/citechat/internal/ui/styles"
)

const emptyHint = "Ask a question to get started. Answers cite their sources; press Tab to inspect them."

// =============================================================================
// LAYOUT
// =============================================================================

// refresh rebuilds the transcript and resizes the viewport around the
// citation card and help.
func (m *Model) refresh() {
	msgs := m.session.Snapshot()

	card := m.renderCard(msgs)
	m.layout(card)

	m.viewport.SetContent(m.renderTranscript(msgs))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) layout(card string) {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	const (
		headerHeight = 1
		inputHeight  = 2 // rule + input line
	)
	m.help.ShowAll = m.showHelp

	reserved := headerHeight + inputHeight + lipgloss.Height(m.renderStatus())
	if card != "" {
		reserved += lipgloss.Height(card)
	}

	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-reserved, 1)
}

func (m Model) contentWidth() int {
	if m.width <= 2 {
		return 78
	}
	return m.width - 2
}

// =============================================================================
// RENDERING
// =============================================================================

func (m Model) renderChat() string {
	msgs := m.session.Snapshot()

	parts := []string{m.renderHeader(msgs), m.viewport.View()}
	if card := m.renderCard(msgs); card != "" {
		parts = append(parts, card)
	}
	parts = append(parts,
		render.Rule(m.theme, m.contentWidth()),
		m.input.View(),
		m.renderStatus(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader(msgs []model.Message) string {
	title := m.theme.Header.Render(m.title)
	count := lo.CountBy(msgs, func(msg model.Message) bool {
		return msg.Role == model.RoleAssistant
	})
	meta := m.theme.Hint.Render(fmt.Sprintf("%d replies · citations %s", count, m.policy))
	return title + " " + meta
}

func (m Model) renderTranscript(msgs []model.Message) string {
	if len(msgs) == 0 {
		return m.theme.Hint.Render(emptyHint)
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		opts := render.Options{
			Theme:    m.theme,
			Width:    m.contentWidth(),
			Policy:   m.policy,
			Focused:  -1,
			Markdown: m.markdown,
		}
		if m.focused != nil && m.focused.MessageID == msg.ID {
			opts.Focused = m.focused.Index
		}
		blocks = append(blocks, render.Message(msg, citation.Resolve(msg.Text, msg.Citations), opts))
	}
	return strings.Join(blocks, "\n\n")
}

// renderCard draws the focused citation, or nothing when none is focused.
func (m Model) renderCard(msgs []model.Message) string {
	c, ok := m.focusedCitation(msgs)
	if !ok {
		return ""
	}
	return render.CitationCard(m.theme, c, min(m.contentWidth(), 72))
}

func (m Model) renderStatus() string {
	if m.session.IsStreaming() {
		return m.theme.StatusBar.Render(
			m.spinner.View() + " " + styles.RenderInfo("streaming") + " " + m.theme.Hint.Render("Esc to cancel"),
		)
	}
	return m.theme.StatusBar.Render(m.help.View(m.keys))
}
