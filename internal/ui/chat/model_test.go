// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	core "github.com/jeranaias/citechat/internal/chat"
	"github.com/jeranaias/citechat/internal/chat/mocks"
	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/model"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

const citedStream = `data: {"citations":[{"id":1,"source":"handbook.pdf","page":3,"content":"File within thirty days."},{"id":2,"source":"policy.pdf","page":12,"content":"Managers approve travel."}]}
data: {"chunk":"File in 30 days [1]. "}
data: {"chunk":"Ask your manager [2]."}
data: [DONE]
`

func body(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func newView(t *testing.T, transport core.Transport, policy citation.Policy) Model {
	t.Helper()
	m := New(core.NewSession(transport), Options{Policy: policy, MaxFPS: maxFPSLimit})
	t.Cleanup(m.Close)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: k})
	return updated.(Model), cmd
}

func typeText(m Model, s string) Model {
	m.input.SetValue(s)
	return m
}

// =============================================================================
// THROTTLE TESTS
// =============================================================================

func TestRenderThrottle_DefaultsAndDefer(t *testing.T) {
	th := NewRenderThrottle(0)
	assert.Equal(t, float64(DefaultMaxFPS), float64(th.limiter.Limit()))

	assert.True(t, th.Allow())
	assert.False(t, th.Allow(), "burst is a single frame")

	cmd := th.Defer()
	require.NotNil(t, cmd)
	assert.True(t, th.Pending())
	assert.Nil(t, th.Defer(), "only one tick is scheduled at a time")

	th.Fired()
	assert.False(t, th.Pending())
}

func TestRenderThrottle_TickDelivers(t *testing.T) {
	th := NewRenderThrottle(100)
	require.True(t, th.Allow())

	msg := th.Defer()()
	_, ok := msg.(renderTickMsg)
	assert.True(t, ok)
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestModel_SubmitStreamsReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Open(gomock.Any(), "expenses?").Return(body(citedStream), nil).Times(1)

	m := newView(t, transport, citation.PolicyWhenComplete)
	m = typeText(m, "expenses?")

	m, cmd := press(t, m, tea.KeyEnter)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.InputValue())

	m.Session().Wait()
	updated, _ := m.Update(conversationChangedMsg{})
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "expenses?")
	assert.Contains(t, view, "Ask your manager [2].")
}

func TestModel_BlankInputIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)

	m := newView(t, transport, citation.PolicyAlways)
	m = typeText(m, "   ")

	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, "   ", m.InputValue())
	assert.True(t, m.Session().Conversation().IsEmpty())
	assert.Contains(t, m.View(), "Ask a question to get started")
}

func TestModel_EnterIgnoredWhileStreamingAndEscCancels(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Open(gomock.Any(), "first").Return(pr, nil).Times(1)

	m := newView(t, transport, citation.PolicyAlways)
	m = typeText(m, "first")
	m, _ = press(t, m, tea.KeyEnter)

	_, err := pw.Write([]byte("data: {\"chunk\":\"partial\"}\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		last, _ := m.Session().Conversation().Last()
		return last.Text == "partial"
	}, 2*time.Second, 5*time.Millisecond)

	m = typeText(m, "second")
	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, "second", m.InputValue(), "enter is a no-op while streaming")
	assert.Contains(t, m.View(), "Esc to cancel")

	m, _ = press(t, m, tea.KeyEsc)
	m.Session().Wait()

	last, _ := m.Session().Conversation().Last()
	assert.Equal(t, model.StateCanceled, last.State)
	assert.Equal(t, "partial", last.Text)
}

func TestModel_QuitCancelsAndQuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newView(t, mocks.NewMockTransport(ctrl), citation.PolicyAlways)

	_, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// =============================================================================
// CITATION FOCUS TESTS
// =============================================================================

func TestModel_TabCyclesCitations(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Open(gomock.Any(), gomock.Any()).Return(body(citedStream), nil)

	m := newView(t, transport, citation.PolicyWhenComplete)
	require.True(t, m.Session().Send(m.ctx, "q"))

	m, _ = press(t, m, tea.KeyTab)
	require.NotNil(t, m.focused)
	assert.Equal(t, 0, m.focused.Index)
	assert.Contains(t, m.View(), "[1] handbook.pdf")

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, 1, m.focused.Index)
	assert.Contains(t, m.View(), "Managers approve travel.")

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, 0, m.focused.Index, "focus wraps")

	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, 1, m.focused.Index)

	m, _ = press(t, m, tea.KeyEsc)
	assert.Nil(t, m.focused)
	assert.NotContains(t, m.View(), "Managers approve travel.")
}

func TestModel_TabWithoutCitations(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newView(t, mocks.NewMockTransport(ctrl), citation.PolicyAlways)

	m, _ = press(t, m, tea.KeyTab)
	assert.Nil(t, m.focused)
}

func TestCitationTargets_Policy(t *testing.T) {
	set := []model.Citation{{ID: 1, Source: "a.pdf"}}
	msgs := []model.Message{
		{ID: "u", Role: model.RoleUser, Text: "see [1]", State: model.StateComplete},
		{ID: "a", Role: model.RoleAssistant, Text: "yes [1] and [4]", State: model.StateStreaming, Citations: set},
	}

	assert.Empty(t, citationTargets(msgs, citation.PolicyWhenComplete))

	targets := citationTargets(msgs, citation.PolicyAlways)
	require.Len(t, targets, 1, "user text and unresolved markers are skipped")
	assert.Equal(t, focus{MessageID: "a", Index: 0}, targets[0].focus)
	assert.Equal(t, "a.pdf", targets[0].Citation.Source)

	msgs[1].State = model.StateComplete
	assert.Len(t, citationTargets(msgs, citation.PolicyWhenComplete), 1)
}
