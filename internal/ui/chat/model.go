// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	core "github.com/jeranaias/citechat/internal/chat"
	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/ui/render"
	"github.com/jeranaias/citechat/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat view.
type Options struct {
	Theme    *styles.Theme
	Policy   citation.Policy
	MaxFPS   int
	Markdown bool
	Title    string
	Logger   zerolog.Logger

	// Context bounds every send started from the view.
	Context context.Context
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// focus identifies the selected citation marker: the message and the index
// among that message's interactive refs.
type focus struct {
	MessageID string
	Index     int
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session *core.Session
	updates <-chan struct{}
	stop    func()
	ctx     context.Context
	log     zerolog.Logger

	theme    *styles.Theme
	policy   citation.Policy
	markdown *render.Markdown
	useMD    bool
	title    string

	keys     KeyMap
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	throttle *RenderThrottle

	width  int
	height int

	focused  *focus
	showHelp bool
	follow   bool
}

// New creates a chat view over session and subscribes to its changes.
// Call Close once the program exits.
func New(session *core.Session, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.DefaultTheme()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Title == "" {
		opts.Title = "citechat"
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = opts.Theme.Spinner

	updates, stop := session.Subscribe()

	m := Model{
		session:  session,
		updates:  updates,
		stop:     stop,
		ctx:      opts.Context,
		log:      opts.Logger,
		theme:    opts.Theme,
		policy:   opts.Policy,
		useMD:    opts.Markdown,
		title:    opts.Title,
		keys:     DefaultKeyMap(),
		viewport: vp,
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		throttle: NewRenderThrottle(opts.MaxFPS),
		follow:   true,
	}
	m.refresh()
	return m
}

// Close unsubscribes from the session and cancels any send in progress.
func (m Model) Close() {
	m.session.Cancel()
	if m.stop != nil {
		m.stop()
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.updates))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case conversationChangedMsg:
		return m.handleChange()

	case renderTickMsg:
		m.throttle.Fired()
		m.refresh()
		return m, nil

	case subscriptionClosedMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.session.IsStreaming() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the whole screen.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	const promptLen = 2 // "> "
	m.input.Width = max(m.width-promptLen-2, 10)
	m.help.Width = m.width

	if m.useMD {
		style := "dark"
		if !m.theme.IsDark {
			style = "light"
		}
		md, err := render.NewMarkdownWithStyle(style, m.contentWidth())
		if err != nil {
			m.log.Warn().Err(err).Msg("markdown renderer unavailable")
		}
		m.markdown = md
	}

	m.refresh()
	return m, nil
}

// handleChange redraws now when the throttle allows and otherwise defers
// one redraw. Terminal transitions always redraw so the final state is
// never held back.
func (m Model) handleChange() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForChange(m.updates)}

	streaming := m.session.IsStreaming()
	switch {
	case !streaming || m.throttle.Allow():
		m.refresh()
	default:
		if cmd := m.throttle.Defer(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if streaming {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		switch {
		case m.focused != nil:
			m.focused = nil
		case m.session.IsStreaming():
			m.session.Cancel()
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NextCitation):
		m.cycleCitation(1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PrevCitation):
		m.cycleCitation(-1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		m.follow = false
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		m.follow = true
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line. Enter is ignored while a reply streams and
// blank input is left in place.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.session.IsStreaming() {
		return m, nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if !m.session.SendAsync(m.ctx, text) {
		return m, nil
	}

	m.input.Reset()
	m.focused = nil
	m.follow = true
	m.refresh()
	return m, m.spinner.Tick
}

// =============================================================================
// CITATION FOCUS
// =============================================================================

// citeTarget is one interactive marker in the transcript.
type citeTarget struct {
	focus
	Citation model.Citation
}

// citationTargets lists the interactive markers of msgs in display order.
func citationTargets(msgs []model.Message, policy citation.Policy) []citeTarget {
	var targets []citeTarget
	for _, msg := range msgs {
		if msg.Role != model.RoleAssistant {
			continue
		}
		segs := citation.Resolve(msg.Text, msg.Citations)
		for i, seg := range policy.InteractiveRefs(segs, msg.Complete()) {
			targets = append(targets, citeTarget{
				focus:    focus{MessageID: msg.ID, Index: i},
				Citation: *seg.Citation,
			})
		}
	}
	return targets
}

// cycleCitation moves the focus by step through the interactive markers,
// wrapping at either end.
func (m *Model) cycleCitation(step int) {
	targets := citationTargets(m.session.Snapshot(), m.policy)
	if len(targets) == 0 {
		m.focused = nil
		return
	}

	cur := -1
	if m.focused != nil {
		for i, t := range targets {
			if t.focus == *m.focused {
				cur = i
				break
			}
		}
	}

	next := 0
	switch {
	case cur >= 0:
		next = (cur + step + len(targets)) % len(targets)
	case step < 0:
		next = len(targets) - 1
	}
	f := targets[next].focus
	m.focused = &f
	m.follow = false
}

// focusedCitation returns the selected citation, if it still exists.
func (m Model) focusedCitation(msgs []model.Message) (model.Citation, bool) {
	if m.focused == nil {
		return model.Citation{}, false
	}
	for _, t := range citationTargets(msgs, m.policy) {
		if t.focus == *m.focused {
			return t.Citation, true
		}
	}
	return model.Citation{}, false
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Session returns the session the view drives.
func (m Model) Session() *core.Session {
	return m.session
}

// InputValue returns the current input line.
func (m Model) InputValue() string {
	return m.input.Value()
}
