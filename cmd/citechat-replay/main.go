// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides citechat-replay, a scripted chat backend.
//
// It serves the same wire protocol as the real backend from a TOML
// transcript so the client can be demonstrated and tested offline. It is
// equivalent to "citechat replay".
//
// Usage:
//
//	citechat-replay [--listen ADDR] [--transcript FILE] [--log-level LEVEL]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/citechat/internal/cli"
	"github.com/jeranaias/citechat/internal/server"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			printHelp()
			return
		}
		if arg == "--version" || arg == "-v" {
			fmt.Printf("citechat-replay v%s\n", server.Version)
			return
		}
	}

	_, args, err := cli.ParseArgs(append([]string{"replay"}, os.Args[1:]...))
	if err != nil {
		cli.DisplayError(err, false)
		os.Exit(cli.GetExitCode(err))
	}

	if err := cli.HandleReplay(context.Background(), args); err != nil {
		cli.DisplayError(err, false)
		os.Exit(cli.GetExitCode(err))
	}
}

// printHelp shows usage information
func printHelp() {
	fmt.Println(`citechat-replay v` + server.Version + `

Usage: citechat-replay [OPTIONS]

Options:
  --listen ADDR        Listen address (default: ` + server.DefaultAddr + `)
  --transcript FILE    TOML transcript to serve (default: built-in sample)
  --log-level LEVEL    trace, debug, info, warn, error or disabled
  --help, -h           Show this help
  --version, -v        Show version

Transcript format:

  echo = true
  delay = "50ms"

  [[frame]]
  citations = [{ id = 1, source = "handbook.pdf", page = 4, content = "..." }]

  [[frame]]
  chunk = "Reports are due in 30 days [1]."`)
}
