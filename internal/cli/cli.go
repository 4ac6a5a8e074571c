// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for citechat.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdReplay
	CmdDoctor
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdReplay:
		return "replay"
	case CmdDoctor:
		return "doctor"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Endpoint   string
	ConfigPath string
	LogLevel   string
	Citations  string
	JSON       bool
	Quiet      bool
	NoMarkdown bool

	// Command-specific
	Query       string // ask
	Subcommand  string // config
	ConfigKey   string // config set
	ConfigValue string // config set
	Transcript  string // replay
	Listen      string // replay

	// Raw positional args after the command name
	Raw []string
}

// boolFlagNames never consume the following argument.
var boolFlagNames = []string{"json", "quiet", "q", "no-markdown", "help", "h", "version", "v"}

const usageText = `citechat - streaming chat client with source citations

Usage:
  citechat [flags]                  Start the TUI (default)
  citechat ask [flags] <question>   Ask one question and print the reply
  citechat chat [flags]             Line-mode interactive chat
  citechat replay [flags]           Serve a scripted reply backend
  citechat doctor                   Check configuration and backend
  citechat config [subcommand]      show, path, init, set <key> <value>, reset
  citechat version                  Show version information
  citechat help                     Show this help

Global Flags:
  --endpoint URL       Chat backend base URL (default: http://127.0.0.1:5000)
  --config FILE        Config file (default: ~/.citechat/config.toml)
  --log-level LEVEL    trace, debug, info, warn, error or disabled
  --citations POLICY   When markers become selectable: always or when_complete
  --json               Machine-readable output (ask, doctor, config, version)
  -q, --quiet          Suppress the source list after a reply
  --no-markdown        Print replies without markdown rendering

Replay Flags:
  --listen ADDR        Listen address (default: 127.0.0.1:5000)
  --transcript FILE    TOML transcript to serve (default: built-in sample)

Environment:
  CITECHAT_ENDPOINT, CITECHAT_CHAT_PATH, CITECHAT_LOG_LEVEL,
  CITECHAT_CITATIONS, CITECHAT_ERROR_TEXT, CITECHAT_METRICS_LISTEN,
  CITECHAT_MAX_FPS. A .env file in the working directory is read first.

Examples:
  citechat ask "When are expense reports due?"
  citechat --endpoint http://10.0.0.5:5000 chat
  citechat replay --listen 127.0.0.1:5050

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "citechat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name). Flags may appear
// before or after the command.
func ParseArgs(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlagNames...)

	args := Args{
		Endpoint:   p.Flag("endpoint"),
		ConfigPath: p.Flag("config"),
		LogLevel:   p.Flag("log-level"),
		Citations:  p.Flag("citations"),
		JSON:       p.BoolFlag("json"),
		Quiet:      p.BoolFlag("quiet") || p.BoolFlag("q"),
		NoMarkdown: p.BoolFlag("no-markdown"),
		Transcript: p.Flag("transcript"),
		Listen:     p.Flag("listen"),
		Raw:        p.PositionalFrom(1),
	}

	if p.BoolFlag("help") || p.BoolFlag("h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") || p.BoolFlag("v") {
		return CmdVersion, args, nil
	}

	switch cmd := strings.ToLower(p.Subcommand()); cmd {
	case "", "tui":
		return CmdTUI, args, nil

	case "ask":
		args.Query = JoinPositionalArgs(p, 1)
		if strings.TrimSpace(args.Query) == "" {
			return CmdAsk, args, ErrMissingArgument("question", `citechat ask "When are expense reports due?"`)
		}
		return CmdAsk, args, nil

	case "chat":
		return CmdChat, args, nil

	case "replay", "serve":
		return CmdReplay, args, nil

	case "doctor":
		return CmdDoctor, args, nil

	case "config":
		args.Subcommand = p.Positional(1)
		args.ConfigKey = p.Positional(2)
		args.ConfigValue = JoinPositionalArgs(p, 3)
		return CmdConfig, args, nil

	case "version":
		return CmdVersion, args, nil

	case "help":
		return CmdHelp, args, nil

	default:
		return CmdHelp, args, NewValidationErrorWithExample("command", cmd, "unknown command", "citechat help")
	}
}

// Run executes cmd and returns the process exit code.
func Run(ctx context.Context, cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdTUI:
		err = HandleTUI(ctx, args)
	case CmdAsk:
		err = HandleAsk(ctx, args, os.Stdout)
	case CmdChat:
		err = HandleChat(ctx, args)
	case CmdReplay:
		err = HandleReplay(ctx, args)
	case CmdDoctor:
		err = HandleDoctor(ctx, args, os.Stdout)
	case CmdConfig:
		err = HandleConfig(args, os.Stdout)
	case CmdVersion:
		err = HandleVersion(args, os.Stdout)
	default:
		PrintUsage(os.Stdout)
	}

	if err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// HandleVersion prints version information as text or JSON.
func HandleVersion(args Args, w io.Writer) error {
	if args.JSON {
		return NewJSONResponse("version", map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		}).Write(w)
	}
	PrintVersion(w)
	return nil
}
