// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how a message is drawn.
type Options struct {
	Theme  *styles.Theme
	Width  int
	Policy citation.Policy

	// Focused is the index of the selected interactive ref within this
	// message, or -1 for none.
	Focused int

	// Markdown renders completed assistant replies when set.
	Markdown *Markdown

	ShowTimestamp bool
}

func (o Options) theme() *styles.Theme {
	if o.Theme == nil {
		return styles.DefaultTheme()
	}
	return o.Theme
}

// =============================================================================
// MESSAGE
// =============================================================================

const (
	streamingCursor = "▌"
	placeholderFmt  = "CITECHATREF%dX"
)

// Message renders one message: a role label line followed by the body.
// segs are the resolved segments of msg.Text.
func Message(msg model.Message, segs []citation.Segment, opts Options) string {
	th := opts.theme()

	var b strings.Builder
	b.WriteString(header(msg, th, opts.ShowTimestamp))
	b.WriteByte('\n')

	switch {
	case msg.Role == model.RoleUser:
		b.WriteString(wrap(th.Body.Render(msg.Text), opts.Width))
	case msg.State == model.StateErrored:
		b.WriteString(wrap(th.ErrorBody.Render(msg.Text), opts.Width))
	case msg.State == model.StatePending:
		b.WriteString(th.Hint.Render("waiting for reply..."))
	default:
		b.WriteString(body(msg, segs, opts, th))
	}
	return b.String()
}

func header(msg model.Message, th *styles.Theme, timestamp bool) string {
	label := th.AssistantLabel.Render(msg.Role.DisplayName())
	if msg.Role == model.RoleUser {
		label = th.UserLabel.Render(msg.Role.DisplayName())
	}
	if timestamp {
		label += " " + th.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}
	return label
}

// body draws assistant text with styled markers, then the footer.
func body(msg model.Message, segs []citation.Segment, opts Options, th *styles.Theme) string {
	complete := msg.Complete()
	var (
		text     strings.Builder
		footer   string
		refs     []string
		interact int
	)

	useMarkdown := opts.Markdown != nil && msg.State == model.StateComplete
	for _, seg := range segs {
		switch seg.Kind {
		case citation.SegmentPlain:
			text.WriteString(seg.Text)
		case citation.SegmentReferencesFooter:
			footer = seg.Text
		case citation.SegmentCitationRef:
			styled := styleRef(seg, opts, th, complete, &interact)
			if useMarkdown {
				fmt.Fprintf(&text, placeholderFmt, len(refs))
				refs = append(refs, styled)
			} else {
				text.WriteString(styled)
			}
		}
	}

	var out string
	if useMarkdown {
		out = opts.Markdown.Render(text.String())
		for i, styled := range refs {
			out = strings.Replace(out, fmt.Sprintf(placeholderFmt, i), styled, 1)
		}
	} else {
		out = wrap(th.Body.Render(text.String()), opts.Width)
	}

	if msg.State == model.StateStreaming {
		out += th.Spinner.Render(streamingCursor)
	}
	if footer != "" {
		out += "\n" + Rule(th, opts.Width) + "\n" + wrap(th.Footer.Render(strings.TrimSpace(footer)), opts.Width)
	}
	if msg.State == model.StateCanceled {
		out += "\n" + th.StateNote.Render("(canceled)")
	}
	return out
}

// styleRef picks the style for a marker. counter tracks the index among
// interactive refs so the focused one can be highlighted.
func styleRef(seg citation.Segment, opts Options, th *styles.Theme, complete bool, counter *int) string {
	switch {
	case opts.Policy.Interactive(seg, complete):
		idx := *counter
		*counter++
		if idx == opts.Focused {
			return th.CitationRefFocused.Render(seg.Text)
		}
		return th.CitationRef.Render(seg.Text)
	case seg.Resolved():
		return th.CitationRefPassive.Render(seg.Text)
	default:
		return th.CitationUnresolved.Render(seg.Text)
	}
}

// Rule draws a horizontal separator.
func Rule(th *styles.Theme, width int) string {
	if width <= 0 {
		width = 40
	}
	return th.Rule.Render(strings.Repeat("─", width))
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// =============================================================================
// SOURCES
// =============================================================================

// Sources lists the citations referenced by segs, one per line, in first-use
// order. Citations never referenced in the text are omitted.
func Sources(msg model.Message, segs []citation.Segment) []string {
	sum := citation.Summarize(segs)
	return lo.FilterMap(sum.Cited, func(id int, _ int) (string, bool) {
		c, ok := msg.Citation(id)
		if !ok {
			return "", false
		}
		return SourceLine(c), true
	})
}

// SourceLine formats a citation as "[id] source, p. N".
func SourceLine(c model.Citation) string {
	if c.Page > 0 {
		return fmt.Sprintf("[%d] %s, p. %d", c.ID, c.Source, c.Page)
	}
	return fmt.Sprintf("[%d] %s", c.ID, c.Source)
}
