// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by Conversation mutators.
var (
	ErrInFlight       = errors.New("an assistant reply is still in flight")
	ErrUnknownMessage = errors.New("message not found")
	ErrMessageClosed  = errors.New("message no longer accepts updates")
	ErrNotAssistant   = errors.New("message is not an assistant reply")
	ErrEmptyUtterance = errors.New("utterance is empty")
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// entry is the mutable record behind a Message.
type entry struct {
	msg  Message
	text strings.Builder
}

func (e *entry) snapshot() Message {
	m := e.msg
	m.Text = e.text.String()
	m.Citations = cloneCitations(e.msg.Citations)
	return m
}

// Conversation is the append-only, chronologically ordered message history.
//
// At most one message is incomplete at any time: the in-flight assistant
// reply. Writers go through the mutators below; readers take snapshots.
// The Conversation is safe for concurrent use.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	entries  []*entry
	index    map[string]*entry
	inFlight string
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        "conv_" + uuid.NewString(),
		CreatedAt: time.Now(),
		index:     make(map[string]*entry),
	}
}

// =============================================================================
// READERS
// =============================================================================

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return c.Len() == 0
}

// InFlight returns the id of the incomplete assistant message, if any.
func (c *Conversation) InFlight() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight, c.inFlight != ""
}

// Snapshot returns a copy of every message in chronological order.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.snapshot()
	}
	return out
}

// Get returns a copy of the message with the given id.
func (c *Conversation) Get(id string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.index[id]
	if !ok {
		return Message{}, false
	}
	return e.snapshot(), true
}

// Last returns a copy of the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return Message{}, false
	}
	return c.entries[len(c.entries)-1].snapshot(), true
}

// =============================================================================
// MUTATORS
// =============================================================================

// Begin appends a completed user message followed by a pending assistant
// message and returns both ids. It fails with ErrInFlight while another
// assistant reply is incomplete and with ErrEmptyUtterance for blank input.
func (c *Conversation) Begin(utterance string) (userID, assistantID string, err error) {
	if strings.TrimSpace(utterance) == "" {
		return "", "", ErrEmptyUtterance
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight != "" {
		return "", "", ErrInFlight
	}

	user := c.appendLocked(newMessage(RoleUser, "", StateComplete))
	user.text.WriteString(utterance)

	assistant := c.appendLocked(newMessage(RoleAssistant, "", StatePending))
	c.inFlight = assistant.msg.ID

	return user.msg.ID, assistant.msg.ID, nil
}

func (c *Conversation) appendLocked(m Message) *entry {
	e := &entry{msg: m}
	e.msg.Text = ""
	c.entries = append(c.entries, e)
	c.index[m.ID] = e
	return e
}

// open returns the entry for id if it is an assistant message that still
// accepts updates. Caller must hold the write lock.
func (c *Conversation) open(id string) (*entry, error) {
	e, ok := c.index[id]
	if !ok {
		return nil, ErrUnknownMessage
	}
	if e.msg.Role != RoleAssistant {
		return nil, ErrNotAssistant
	}
	if e.msg.State.Terminal() {
		return nil, ErrMessageClosed
	}
	return e, nil
}

// MarkStreaming moves a pending assistant message to streaming.
// It is a no-op for a message that is already streaming.
func (c *Conversation) MarkStreaming(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.open(id)
	if err != nil {
		return err
	}
	e.msg.State = StateStreaming
	return nil
}

// AppendText appends a text delta to an open assistant message.
func (c *Conversation) AppendText(id, delta string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.open(id)
	if err != nil {
		return err
	}
	e.text.WriteString(delta)
	return nil
}

// ReplaceCitations replaces the citation set of an open assistant message.
// The previous set is discarded, not merged.
func (c *Conversation) ReplaceCitations(id string, set []Citation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.open(id)
	if err != nil {
		return err
	}
	if set == nil {
		set = []Citation{}
	}
	e.msg.Citations = cloneCitations(set)
	e.msg.HasCitations = true
	return nil
}

// Finish marks an open assistant message complete.
func (c *Conversation) Finish(id string) error {
	return c.terminate(id, StateComplete, nil)
}

// Fail replaces the text of an open assistant message with errorText and
// marks it errored. Any partial text is discarded.
func (c *Conversation) Fail(id, errorText string) error {
	return c.terminate(id, StateErrored, &errorText)
}

// Cancel marks an open assistant message canceled, keeping its text.
func (c *Conversation) Cancel(id string) error {
	return c.terminate(id, StateCanceled, nil)
}

func (c *Conversation) terminate(id string, state State, replacement *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.open(id)
	if err != nil {
		return err
	}
	if replacement != nil {
		e.text.Reset()
		e.text.WriteString(*replacement)
	}
	e.msg.State = state
	if c.inFlight == id {
		c.inFlight = ""
	}
	return nil
}
