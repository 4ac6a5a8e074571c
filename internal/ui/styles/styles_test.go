// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"bytes"
	"strings"
	"testing"
)

// =============================================================================
// THEME TESTS
// =============================================================================

func TestNewTheme_FixedModes(t *testing.T) {
	var buf bytes.Buffer

	if th := NewTheme(&buf, "light"); th.IsDark {
		t.Error("light mode should not be dark")
	}
	if th := NewTheme(&buf, "dark"); !th.IsDark {
		t.Error("dark mode should be dark")
	}
}

func TestDefaultTheme_RendersText(t *testing.T) {
	th := DefaultTheme()

	for name, s := range map[string]string{
		"user":       th.UserLabel.Render("You"),
		"citation":   th.CitationRef.Render("[1]"),
		"unresolved": th.CitationUnresolved.Render("[9]"),
		"footer":     th.Footer.Render("References:"),
	} {
		if s == "" {
			t.Errorf("%s style rendered empty output", name)
		}
	}
}

// =============================================================================
// STATUS HELPER TESTS
// =============================================================================

func TestRenderStatus(t *testing.T) {
	tests := []struct {
		name      string
		got       string
		indicator string
	}{
		{"success", RenderStatus(true, "connected"), StatusIndicators.Success},
		{"error", RenderStatus(false, "unreachable"), StatusIndicators.Error},
		{"warning", RenderWarning("slow"), StatusIndicators.Warning},
		{"info", RenderInfo("note"), StatusIndicators.Info},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(tc.got, tc.indicator) {
				t.Errorf("output %q missing indicator %q", tc.got, tc.indicator)
			}
		})
	}
}
