// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// conversationChangedMsg reports that the session history changed.
type conversationChangedMsg struct{}

// subscriptionClosedMsg reports that the session subscription ended.
type subscriptionClosedMsg struct{}

// renderTickMsg fires when a throttled redraw may run.
type renderTickMsg struct {
	Time time.Time
}

// waitForChange blocks on the session subscription and reports the next
// change to the Bubble Tea loop.
func waitForChange(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return subscriptionClosedMsg{}
		}
		return conversationChangedMsg{}
	}
}
