// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Command: ask <question>
//
// Sends one question, streams the reply to stdout as it arrives and lists
// the sources the reply cites.
//
// Examples:
//   citechat ask "When are expense reports due?"
//   citechat ask --json "What is the travel per diem?"
//   citechat ask -q --no-markdown "Summarize the leave policy"

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/citechat/internal/chat"
	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/ui/render"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes a growing reply incrementally. When the text stops
// being an extension of what was printed (an error replaced it) the new text
// is written on a fresh line.
type streamPrinter struct {
	w       io.Writer
	printed string
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w}
}

// Update prints whatever part of text has not been printed yet.
func (p *streamPrinter) Update(text string) {
	if text == p.printed {
		return
	}
	if strings.HasPrefix(text, p.printed) {
		fmt.Fprint(p.w, text[len(p.printed):])
	} else {
		if p.printed != "" {
			fmt.Fprintln(p.w)
		}
		fmt.Fprint(p.w, text)
	}
	p.printed = text
}

// Finish terminates the current line if anything was printed.
func (p *streamPrinter) Finish() {
	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.w)
	}
}

// =============================================================================
// SEND AND FOLLOW
// =============================================================================

// followReply sends utterance and calls onUpdate with the latest reply each
// time the conversation changes. It returns the reply once it is terminal.
// ok is false when the session ignored the send.
func followReply(ctx context.Context, sess *chat.Session, utterance string, onUpdate func(model.Message)) (reply model.Message, ok bool) {
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	if !sess.SendAsync(ctx, utterance) {
		return model.Message{}, false
	}

	done := make(chan struct{})
	go func() {
		sess.Wait()
		close(done)
	}()

	latest := func() model.Message {
		msg, _ := sess.Conversation().Last()
		return msg
	}

	for {
		select {
		case <-updates:
			if onUpdate != nil {
				onUpdate(latest())
			}
		case <-done:
			reply = latest()
			if onUpdate != nil {
				onUpdate(reply)
			}
			return reply, true
		}
	}
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// AskResult is the JSON payload of ask --json.
type AskResult struct {
	Question   string           `json:"question"`
	Reply      string           `json:"reply"`
	State      string           `json:"state"`
	Citations  []model.Citation `json:"citations"`
	Cited      []int            `json:"cited"`
	Unresolved int              `json:"unresolved"`
	HasFooter  bool             `json:"has_footer"`
}

// HandleAsk handles "citechat ask".
// An explicit --log-level sends logs to stderr instead of the log file.
func HandleAsk(ctx context.Context, args Args, w io.Writer) error {
	target := logToFile
	if args.LogLevel != "" {
		target = logToStderr
	}
	rt, err := NewRuntime(args, target)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ask(ctx, rt, args, w, IsStdoutTTY())
}

// ask runs one question against rt. tty selects markdown rendering of the
// finished reply instead of incremental output.
func ask(ctx context.Context, rt *Runtime, args Args, w io.Writer, tty bool) error {
	renderMarkdown := tty && !args.JSON && rt.Config.UI.Markdown

	var onUpdate func(model.Message)
	printer := newStreamPrinter(w)
	if !args.JSON && !renderMarkdown {
		onUpdate = func(m model.Message) {
			if m.Role == model.RoleAssistant {
				printer.Update(m.Text)
			}
		}
	}

	reply, ok := followReply(ctx, rt.Session, args.Query, onUpdate)
	if !ok {
		return ErrMissingArgument("question", `citechat ask "When are expense reports due?"`)
	}
	printer.Finish()

	segs := citation.Resolve(reply.Text, reply.Citations)
	sum := citation.Summarize(segs)

	if args.JSON {
		result := AskResult{
			Question:   args.Query,
			Reply:      reply.Text,
			State:      reply.State.String(),
			Citations:  reply.Citations,
			Cited:      sum.Cited,
			Unresolved: sum.Unresolved,
			HasFooter:  sum.HasFooter,
		}
		if result.Citations == nil {
			result.Citations = []model.Citation{}
		}
		if result.Cited == nil {
			result.Cited = []int{}
		}
		if reply.State == model.StateErrored {
			_ = NewJSONErrorResponse("ask", result, ErrReplyFailed).Write(w)
			return ErrReplyFailed
		}
		return NewJSONResponse("ask", result).Write(w)
	}

	if renderMarkdown {
		text := reply.Text
		if reply.State == model.StateComplete {
			if md, err := render.NewMarkdown(GetTerminalWidth()); err == nil {
				text = md.Render(text)
			}
		}
		fmt.Fprintln(w, text)
	}

	switch reply.State {
	case model.StateErrored:
		return ErrReplyFailed
	case model.StateCanceled:
		fmt.Fprintln(w, WarningStyle.Render("[Canceled]"))
		return nil
	}

	if !args.Quiet {
		printSources(w, reply, segs)
	}
	return nil
}

// printSources lists the citations the reply actually refers to.
func printSources(w io.Writer, reply model.Message, segs []citation.Segment) {
	lines := render.Sources(reply, segs)
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Sources:"))
	for _, line := range lines {
		fmt.Fprintln(w, "  "+line)
	}
}
