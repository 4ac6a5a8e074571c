// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Configuration and backend health checks.
//
// Command: doctor
//
// Checks:
//   Config      the config file (if any) parses and validates
//   Config dir  the history and log directory is writable
//   Backend     the chat endpoint answers
//
// Exit codes:
//   0   All checks passed (warnings allowed)
//   1   One or more checks failed

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/jeranaias/citechat/internal/client"
	"github.com/jeranaias/citechat/internal/config"
	"github.com/jeranaias/citechat/internal/logging"
)

// healthTimeout bounds the backend probe.
const healthTimeout = 5 * time.Second

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

// String returns the lowercase name used in JSON output.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// HealthCheck is a single check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`

	status CheckStatus
}

func newCheck(name string, status CheckStatus, message, fix string) HealthCheck {
	return HealthCheck{Name: name, Status: status.String(), Message: message, Fix: fix, status: status}
}

// Render formats the check for terminal output.
func (c HealthCheck) Render() string {
	line := fmt.Sprintf("%s %s%s", RenderStatus(c.Status), RenderLabel(c.Name), ValueStyle.Render(c.Message))
	if c.status != CheckPass && c.Fix != "" {
		line += "\n       " + DimStyle.Render("-> "+c.Fix)
	}
	return line
}

// DoctorReport is the JSON payload of doctor --json.
type DoctorReport struct {
	Checks []HealthCheck `json:"checks"`
	Passed int           `json:"passed"`
	Warned int           `json:"warned"`
	Failed int           `json:"failed"`
}

// =============================================================================
// DOCTOR COMMAND
// =============================================================================

// HandleDoctor handles "citechat doctor".
func HandleDoctor(ctx context.Context, args Args, w io.Writer) error {
	checks := runChecks(ctx, args)

	report := DoctorReport{
		Checks: checks,
		Passed: lo.CountBy(checks, func(c HealthCheck) bool { return c.status == CheckPass }),
		Warned: lo.CountBy(checks, func(c HealthCheck) bool { return c.status == CheckWarn }),
		Failed: lo.CountBy(checks, func(c HealthCheck) bool { return c.status == CheckFail }),
	}

	var failure error
	if report.Failed > 0 {
		failure = NewCommandError("doctor", "health check", fmt.Sprintf("%d check(s) failed", report.Failed), nil)
	}

	if args.JSON {
		if failure != nil {
			_ = NewJSONErrorResponse("doctor", report, failure).Write(w)
			return failure
		}
		return NewJSONResponse("doctor", report).Write(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("citechat doctor"))
	for _, c := range checks {
		fmt.Fprintln(w, c.Render())
	}
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintf(w, "%d passed, %d warning(s), %d failed\n", report.Passed, report.Warned, report.Failed)
	return failure
}

// runChecks runs every check in order. A config that fails to load still
// lets the later checks run against defaults.
func runChecks(ctx context.Context, args Args) []HealthCheck {
	cfg, cfgCheck := checkConfig(args)
	return []HealthCheck{
		cfgCheck,
		checkConfigDir(),
		checkBackend(ctx, cfg),
	}
}

func checkConfig(args Args) (*config.Config, HealthCheck) {
	path := args.ConfigPath
	if path == "" {
		if p, err := config.ConfigPath(); err == nil {
			path = p
		}
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return config.Default(), newCheck("Config", CheckFail, err.Error(), "citechat config show")
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return cfg, newCheck("Config", CheckWarn, "no config file, using defaults", "citechat config init")
	}
	return cfg, newCheck("Config", CheckPass, path, "")
}

func checkConfigDir() HealthCheck {
	dir, err := config.ConfigDir()
	if err != nil {
		return newCheck("Config dir", CheckFail, err.Error(), "set HOME")
	}

	probe := filepath.Join(dir, ".doctor-probe")
	f, err := logging.OpenFile(probe)
	if err != nil {
		return newCheck("Config dir", CheckWarn, "not writable: "+err.Error(),
			"chat history and TUI logs will not be saved")
	}
	f.Close()
	_ = os.Remove(probe)
	return newCheck("Config dir", CheckPass, dir, "")
}

func checkBackend(ctx context.Context, cfg *config.Config) HealthCheck {
	c := client.New(cfg.ClientConfig())

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	start := time.Now()
	if err := c.Health(ctx); err != nil {
		return newCheck("Backend", CheckFail, err.Error(), "start the backend or pass --endpoint")
	}
	return newCheck("Backend", CheckPass,
		fmt.Sprintf("%s (%s)", cfg.Server.Endpoint, time.Since(start).Round(time.Millisecond)), "")
}
