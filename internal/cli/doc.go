// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for citechat.
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	if err != nil {
//	    cli.DisplayError(err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	os.Exit(cli.Run(ctx, cmd, args))
//
// # Commands
//
//   - tui (default): full-screen chat with selectable citations
//   - ask: one question, reply streamed to stdout
//   - chat: line-mode interactive chat
//   - replay: scripted backend for demos and tests
//   - doctor: configuration and backend checks
//   - config: show and edit the config file
//
// ask, doctor, config and version accept --json.
package cli
