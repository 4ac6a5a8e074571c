// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
)

// =============================================================================
// RENDER THROTTLE
// =============================================================================

const (
	// DefaultMaxFPS caps redraws while a reply streams.
	DefaultMaxFPS = 30

	maxFPSLimit = 120
)

// RenderThrottle caps how often the transcript is re-rendered. A stream can
// deliver hundreds of deltas a second; redrawing for each one wastes CPU and
// flickers.
//
// Only the Bubble Tea loop touches a throttle, so it needs no locking.
type RenderThrottle struct {
	limiter *rate.Limiter
	pending bool
}

// NewRenderThrottle creates a throttle allowing maxFPS redraws a second.
// Out-of-range values fall back to DefaultMaxFPS.
func NewRenderThrottle(maxFPS int) *RenderThrottle {
	if maxFPS <= 0 || maxFPS > maxFPSLimit {
		maxFPS = DefaultMaxFPS
	}
	return &RenderThrottle{limiter: rate.NewLimiter(rate.Limit(maxFPS), 1)}
}

// Allow reports whether a redraw may happen now and consumes the slot if so.
func (t *RenderThrottle) Allow() bool {
	return t.limiter.Allow()
}

// Defer schedules a single renderTickMsg for when the next slot opens. It
// returns nil when a tick is already scheduled.
func (t *RenderThrottle) Defer() tea.Cmd {
	if t.pending {
		return nil
	}
	t.pending = true

	r := t.limiter.Reserve()
	delay := r.Delay()
	r.Cancel()
	if delay <= 0 {
		delay = time.Millisecond
	}
	return tea.Tick(delay, func(now time.Time) tea.Msg {
		return renderTickMsg{Time: now}
	})
}

// Fired clears the scheduled tick.
func (t *RenderThrottle) Fired() {
	t.pending = false
}

// Pending reports whether a deferred redraw is scheduled.
func (t *RenderThrottle) Pending() bool {
	return t.pending
}
