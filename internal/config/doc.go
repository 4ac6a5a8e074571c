// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for citechat.
//
// Configuration is read from a TOML file with defaults for every missing
// value, environment variable overrides and struct-tag validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by package cli)
//   - Environment variables (CITECHAT_*), including a .env file
//   - ~/.citechat/config.toml
//   - Built-in defaults
//
// # Example File
//
//	error_text = "Error: Failed to get response"
//
//	[server]
//	endpoint = "http://127.0.0.1:5000"
//	chat_path = "/chat"
//	connect_timeout = "5s"
//
//	[ui]
//	citations = "when_complete"
//	max_fps = 30
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	c := client.New(cfg.ClientConfig())
package config
