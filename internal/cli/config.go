// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration as TOML
//   path                Show the configuration file path
//   init                Write a default config file if none exists
//   set <key> <value>   Set one value in the config file
//   reset               Overwrite the config file with defaults
//
// Examples:
//   citechat config
//   citechat config set server.endpoint http://10.0.0.5:5000
//   citechat config set ui.citations when_complete
//   citechat config path --json

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/citechat/internal/config"
)

// configFile returns --config or the default path.
func configFile(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

// HandleConfig handles "citechat config".
func HandleConfig(args Args, w io.Writer) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return handleConfigShow(args, w)
	case "path":
		return handleConfigPath(args, w)
	case "init":
		return handleConfigWrite(args, w, false)
	case "reset":
		return handleConfigWrite(args, w, true)
	case "set":
		return handleConfigSet(args, w)
	default:
		return NewValidationErrorWithExample("config subcommand", args.Subcommand,
			"expected show, path, init, set or reset", "citechat config show")
	}
}

func handleConfigShow(args Args, w io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config show", cfg).Write(w)
	}
	fmt.Fprint(w, cfg.String())
	return nil
}

func handleConfigPath(args Args, w io.Writer) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if args.JSON {
		return NewJSONResponse("config path", map[string]any{
			"path":   path,
			"exists": exists,
		}).Write(w)
	}
	fmt.Fprintln(w, path)
	if !exists {
		fmt.Fprintln(w, DimStyle.Render("(not created yet; run: citechat config init)"))
	}
	return nil
}

// handleConfigWrite writes defaults. Without overwrite an existing file is
// left alone.
func handleConfigWrite(args Args, w io.Writer, overwrite bool) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return NewCommandError("config", "init", "file already exists: "+path+" (use config reset)", nil)
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return NewCommandError("config", "write", path, err)
	}
	fmt.Fprintf(w, "%s wrote %s\n", RenderStatus("ok"), path)
	return nil
}

// =============================================================================
// CONFIG SET
// =============================================================================

// configSetters maps dotted keys to field setters. Values are checked by
// Config.Validate before saving.
var configSetters = map[string]func(*config.Config, string) error{
	"error_text":                     func(c *config.Config, v string) error { c.ErrorText = v; return nil },
	"server.endpoint":                func(c *config.Config, v string) error { c.Server.Endpoint = v; return nil },
	"server.chat_path":               func(c *config.Config, v string) error { c.Server.ChatPath = v; return nil },
	"server.user_agent":              func(c *config.Config, v string) error { c.Server.UserAgent = v; return nil },
	"server.connect_timeout":         durationSetter(func(c *config.Config) *time.Duration { return &c.Server.ConnectTimeout }),
	"server.response_header_timeout": durationSetter(func(c *config.Config) *time.Duration { return &c.Server.ResponseHeaderTimeout }),
	"stream.max_line_size":           intSetter(func(c *config.Config) *int { return &c.Stream.MaxLineSize }),
	"stream.read_size":               intSetter(func(c *config.Config) *int { return &c.Stream.ReadSize }),
	"ui.citations":                   func(c *config.Config, v string) error { c.UI.Citations = strings.ToLower(v); return nil },
	"ui.max_fps":                     intSetter(func(c *config.Config) *int { return &c.UI.MaxFPS }),
	"ui.markdown":                    boolSetter(func(c *config.Config) *bool { return &c.UI.Markdown }),
	"ui.theme":                       func(c *config.Config, v string) error { c.UI.Theme = strings.ToLower(v); return nil },
	"log.level":                      func(c *config.Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	"log.pretty":                     boolSetter(func(c *config.Config) *bool { return &c.Log.Pretty }),
	"log.file":                       func(c *config.Config, v string) error { c.Log.File = v; return nil },
	"metrics.listen":                 func(c *config.Config, v string) error { c.Metrics.Listen = v; return nil },
}

func intSetter(field func(*config.Config) *int) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %s", v)
		}
		*field(c) = n
		return nil
	}
}

func boolSetter(field func(*config.Config) *bool) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		b, err := ParseBoolString(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func durationSetter(field func(*config.Config) *time.Duration) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("not a duration: %s", v)
		}
		*field(c) = d
		return nil
	}
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// handleConfigSet edits the file itself, so environment overrides never
// leak into it.
func handleConfigSet(args Args, w io.Writer) error {
	if args.ConfigKey == "" || args.ConfigValue == "" {
		return ErrMissingArgument("key and value", "citechat config set ui.citations when_complete")
	}

	key := strings.ToLower(args.ConfigKey)
	set, ok := configSetters[key]
	if !ok {
		return NewValidationErrorWithExample("config key", key,
			"known keys: "+strings.Join(configKeys(), ", "), "citechat config set log.level debug")
	}

	path, err := configFile(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if err := config.LoadTOML(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewCommandError("config", "read", path, err)
	}
	if err := set(cfg, args.ConfigValue); err != nil {
		return NewValidationErrorWithExample(key, args.ConfigValue, err.Error(), "")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return NewCommandError("config", "write", path, err)
	}

	fmt.Fprintf(w, "%s %s = %s\n", RenderStatus("ok"), key, args.ConfigValue)
	return nil
}
