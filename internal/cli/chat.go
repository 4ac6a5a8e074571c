// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode interactive chat.
//
// Command: chat
//
// A readline-style loop over one conversation. Replies stream to the
// terminal; Ctrl+C cancels a reply in progress and exits at the prompt.
//
// Slash commands:
//   /help      Show commands
//   /sources   List the sources of the last reply
//   /history   Show the conversation so far
//   /quit      Exit (also: exit, quit, Ctrl+D)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/config"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// historyFileName lives in the config directory.
const historyFileName = "chat_history"

// LineEditor provides input history and line editing for interactive chat.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a LineEditor and loads saved history.
func NewLineEditor() *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	e := &LineEditor{line: line, historyFile: filepath.Join(dir, historyFileName)}
	e.loadHistory()
	return e
}

func (e *LineEditor) loadHistory() {
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine prompts for one line. Non-blank input is added to history.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (e *LineEditor) Close() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat handles "citechat chat".
func HandleChat(ctx context.Context, args Args) error {
	rt, err := NewRuntime(args, logToFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	editor := NewLineEditor()
	defer editor.Close()

	// Ctrl+C while a reply streams cancels it. At the prompt liner sees the
	// key itself and aborts.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if rt.Session.IsStreaming() {
				rt.Session.Cancel()
			}
		}
	}()

	repl := &chatREPL{rt: rt, out: os.Stdout, quiet: args.Quiet}
	repl.printWelcome()

	for {
		input, err := editor.ReadLine(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				rt.Log.Debug().Err(err).Msg("prompt closed")
			}
			fmt.Fprintln(repl.out)
			return nil
		}
		if !repl.handle(ctx, input) {
			return nil
		}
	}
}

// chatREPL evaluates one line of input at a time.
type chatREPL struct {
	rt    *Runtime
	out   io.Writer
	quiet bool
}

// handle processes one line. It returns false when the user asked to leave.
func (r *chatREPL) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return true
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return false
	case strings.HasPrefix(input, "/"):
		return r.command(input)
	}

	printer := newStreamPrinter(r.out)
	fmt.Fprint(r.out, AssistantStyle.Render("assistant> "))
	reply, ok := followReply(ctx, r.rt.Session, input, func(m model.Message) {
		if m.Role == model.RoleAssistant {
			printer.Update(m.Text)
		}
	})
	if !ok {
		fmt.Fprintln(r.out)
		return true
	}
	printer.Finish()

	switch reply.State {
	case model.StateCanceled:
		fmt.Fprintln(r.out, WarningStyle.Render("[Canceled]"))
	case model.StateComplete:
		if !r.quiet {
			printSources(r.out, reply, citation.Resolve(reply.Text, reply.Citations))
		}
	}
	fmt.Fprintln(r.out)
	return true
}

// command runs a slash command. It returns false on /quit.
func (r *chatREPL) command(input string) bool {
	name := strings.ToLower(strings.Fields(input)[0])
	switch name {
	case "/quit", "/exit", "/q":
		return false
	case "/help", "/h", "/?":
		r.printHelp()
	case "/sources":
		r.printLastSources()
	case "/history":
		r.printHistory()
	default:
		fmt.Fprintf(r.out, "%s unknown command %s (try /help)\n", ErrorStyle.Render("[Error]"), name)
	}
	return true
}

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out, TitleStyle.Render("citechat"))
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Backend:"), ValueStyle.Render(r.rt.Client.Endpoint()))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+C to cancel a reply, Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printHelp() {
	fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/sources", "List the sources of the last reply"},
		{"/history", "Show the conversation so far"},
		{"/help", "Show this help"},
		{"/quit", "Exit"},
	} {
		fmt.Fprintf(r.out, "  %s%s\n", RenderLabel(row[0]), DimStyle.Render(row[1]))
	}
}

func (r *chatREPL) printLastSources() {
	last, ok := r.rt.Session.Conversation().Last()
	if !ok || last.Role != model.RoleAssistant {
		fmt.Fprintln(r.out, DimStyle.Render("No reply yet."))
		return
	}
	segs := citation.Resolve(last.Text, last.Citations)
	if len(citation.Summarize(segs).Cited) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("The last reply cites no sources."))
		return
	}
	printSources(r.out, last, segs)
}

func (r *chatREPL) printHistory() {
	if r.rt.Session.Conversation().IsEmpty() {
		fmt.Fprintln(r.out, DimStyle.Render("No messages yet."))
		return
	}
	msgs := r.rt.Session.Snapshot()
	width := GetTerminalWidth() - 12
	for _, m := range msgs {
		style := PromptStyle
		if m.Role == model.RoleAssistant {
			style = AssistantStyle
		}
		label := style.Render(util.PadRight(m.Role.DisplayName(), 10))
		fmt.Fprintf(r.out, "%s %s\n", label, m.Preview(width))
	}
}
