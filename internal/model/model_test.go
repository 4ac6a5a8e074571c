// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// STATE TESTS
// =============================================================================

func TestState_Terminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StatePending, false},
		{StateStreaming, false},
		{StateComplete, true},
		{StateErrored, true},
		{StateCanceled, true},
	}

	for _, tc := range tests {
		t.Run(tc.state.String(), func(t *testing.T) {
			if got := tc.state.Terminal(); got != tc.want {
				t.Errorf("Terminal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q, want 'You'", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("RoleAssistant.DisplayName() = %q, want 'Assistant'", RoleAssistant.DisplayName())
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_Begin(t *testing.T) {
	conv := NewConversation()

	userID, replyID, err := conv.Begin("hi")
	require.NoError(t, err)
	require.NotEqual(t, userID, replyID)

	msgs := conv.Snapshot()
	require.Len(t, msgs, 2)

	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.True(t, msgs[0].Complete(), "user messages are always complete")

	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, StatePending, msgs[1].State)
	assert.Empty(t, msgs[1].Text)
	assert.False(t, msgs[1].HasCitations)

	inFlight, ok := conv.InFlight()
	assert.True(t, ok)
	assert.Equal(t, replyID, inFlight)
}

func TestConversation_BeginRejectedWhileInFlight(t *testing.T) {
	conv := NewConversation()
	_, _, err := conv.Begin("first")
	require.NoError(t, err)

	_, _, err = conv.Begin("second")
	require.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, 2, conv.Len())
}

func TestConversation_BeginRejectsBlank(t *testing.T) {
	conv := NewConversation()

	_, _, err := conv.Begin("  \n\t")
	require.ErrorIs(t, err, ErrEmptyUtterance)
	assert.True(t, conv.IsEmpty())
}

func TestConversation_AppendTextInOrder(t *testing.T) {
	conv := NewConversation()
	_, id, err := conv.Begin("q")
	require.NoError(t, err)

	deltas := []string{"He", "llo", ", ", "wör", "ld"}
	for _, d := range deltas {
		require.NoError(t, conv.AppendText(id, d))
	}

	msg, ok := conv.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Hello, wörld", msg.Text)
}

func TestConversation_ReplaceCitations(t *testing.T) {
	conv := NewConversation()
	_, id, err := conv.Begin("q")
	require.NoError(t, err)

	a := []Citation{{ID: 1, Source: "a.pdf", Page: 1}, {ID: 2, Source: "a.pdf", Page: 2}}
	b := []Citation{{ID: 3, Source: "b.pdf", Page: 9}}

	require.NoError(t, conv.ReplaceCitations(id, a))
	require.NoError(t, conv.ReplaceCitations(id, b))

	msg, _ := conv.Get(id)
	assert.True(t, msg.HasCitations)
	assert.Equal(t, b, msg.Citations, "second set replaces the first, no merge")

	_, found := msg.Citation(1)
	assert.False(t, found)
}

func TestConversation_ReplaceCitationsEmptySet(t *testing.T) {
	conv := NewConversation()
	_, id, _ := conv.Begin("q")

	require.NoError(t, conv.ReplaceCitations(id, []Citation{{ID: 1}}))
	require.NoError(t, conv.ReplaceCitations(id, nil))

	msg, _ := conv.Get(id)
	assert.True(t, msg.HasCitations)
	assert.NotNil(t, msg.Citations)
	assert.Empty(t, msg.Citations)
}

func TestConversation_SnapshotIsolation(t *testing.T) {
	conv := NewConversation()
	_, id, _ := conv.Begin("q")
	set := []Citation{{ID: 1, Source: "orig"}}
	require.NoError(t, conv.ReplaceCitations(id, set))

	// Mutating the input or a snapshot must not leak into the history.
	set[0].Source = "mutated-input"
	snap, _ := conv.Get(id)
	snap.Citations[0].Source = "mutated-snapshot"
	snap.Text = "mutated"

	again, _ := conv.Get(id)
	assert.Equal(t, "orig", again.Citations[0].Source)
	assert.Empty(t, again.Text)
}

func TestConversation_Finish(t *testing.T) {
	conv := NewConversation()
	_, id, _ := conv.Begin("q")
	require.NoError(t, conv.AppendText(id, "done"))
	require.NoError(t, conv.Finish(id))

	msg, _ := conv.Get(id)
	assert.Equal(t, StateComplete, msg.State)
	assert.Equal(t, "done", msg.Text)

	_, ok := conv.InFlight()
	assert.False(t, ok)

	// Closed messages reject further updates.
	assert.ErrorIs(t, conv.AppendText(id, "more"), ErrMessageClosed)
	assert.ErrorIs(t, conv.ReplaceCitations(id, nil), ErrMessageClosed)
	assert.ErrorIs(t, conv.Finish(id), ErrMessageClosed)
}

func TestConversation_FailReplacesPartialText(t *testing.T) {
	conv := NewConversation()
	_, id, _ := conv.Begin("q")
	require.NoError(t, conv.AppendText(id, "Hello wor"))
	require.NoError(t, conv.Fail(id, "Error: Failed to get response"))

	msg, _ := conv.Get(id)
	assert.Equal(t, StateErrored, msg.State)
	assert.Equal(t, "Error: Failed to get response", msg.Text)
	assert.True(t, msg.Complete())
}

func TestConversation_CancelKeepsText(t *testing.T) {
	conv := NewConversation()
	_, id, _ := conv.Begin("q")
	require.NoError(t, conv.AppendText(id, "partial"))
	require.NoError(t, conv.Cancel(id))

	msg, _ := conv.Get(id)
	assert.Equal(t, StateCanceled, msg.State)
	assert.Equal(t, "partial", msg.Text)

	// A new send is allowed once the reply is terminal.
	_, _, err := conv.Begin("next")
	assert.NoError(t, err)
}

func TestConversation_MutatorErrors(t *testing.T) {
	conv := NewConversation()
	userID, _, _ := conv.Begin("q")

	assert.ErrorIs(t, conv.AppendText("missing", "x"), ErrUnknownMessage)
	assert.ErrorIs(t, conv.AppendText(userID, "x"), ErrNotAssistant)
}

func TestConversation_ConcurrentReaders(t *testing.T) {
	conv := NewConversation()
	_, id, _ := conv.Begin("q")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = conv.Snapshot()
			}
		}()
	}

	for i := 0; i < 500; i++ {
		require.NoError(t, conv.AppendText(id, "x"))
	}
	wg.Wait()

	msg, _ := conv.Get(id)
	assert.Len(t, msg.Text, 500)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_Preview(t *testing.T) {
	msg := Message{Text: "Hello, world"}

	assert.Equal(t, "Hello, world", msg.Preview(20))
	assert.Equal(t, "Hello...", msg.Preview(8))
	assert.Equal(t, "", msg.Preview(0))

	multi := Message{Text: "line one\n\nline  two"}
	assert.Equal(t, "line one line two", multi.Preview(40))
}
