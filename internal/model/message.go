// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// STATE TYPE
// =============================================================================

// State is the lifecycle state of a message.
//
// Assistant messages move pending -> streaming -> complete. Errored and
// canceled are terminal and reachable from pending or streaming.
// User messages are created complete.
type State int

const (
	StatePending State = iota
	StateStreaming
	StateComplete
	StateErrored
	StateCanceled
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateErrored:
		return "errored"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further frames may be applied in this state.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateErrored || s == StateCanceled
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a source reference attached to an assistant message.
type Citation struct {
	ID      int    `json:"id"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Content string `json:"content"`
}

// cloneCitations copies a citation set so callers never share backing arrays.
// A nil input stays nil; an empty input becomes an empty, non-nil slice.
func cloneCitations(set []Citation) []Citation {
	if set == nil {
		return nil
	}
	out := make([]Citation, len(set))
	copy(out, set)
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a read-only snapshot of one turn in the conversation.
//
// Messages handed out by Conversation are copies; mutating them has no effect
// on the history.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Text string `json:"text"`

	// Citations is the most recent citation set delivered for this message.
	// HasCitations is false until the first citation-set frame arrives, which
	// distinguishes "no set yet" from "an empty set".
	Citations    []Citation `json:"citations,omitempty"`
	HasCitations bool       `json:"-"`

	State State `json:"-"`
}

// newMessage creates a message with a fresh identifier.
func newMessage(role Role, text string, state State) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
		State:     state,
	}
}

// Complete reports whether the message has stopped receiving frames.
func (m Message) Complete() bool {
	return m.State.Terminal()
}

// IsStreaming reports whether the message is still receiving frames.
func (m Message) IsStreaming() bool {
	return !m.State.Terminal()
}

// Citation looks up a citation in the message's current set by id.
func (m Message) Citation(id int) (Citation, bool) {
	for _, c := range m.Citations {
		if c.ID == id {
			return c, true
		}
	}
	return Citation{}, false
}

// Preview returns the message text on one line, truncated to a display
// width. Double-width characters count as two columns.
func (m Message) Preview(width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(strings.Join(strings.Fields(m.Text), " "), width, "...")
}
