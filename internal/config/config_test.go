// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citechat/internal/citation"
)

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Error: Failed to get response", cfg.ErrorText)
	assert.Equal(t, "/chat", cfg.Server.ChatPath)
	assert.Equal(t, citation.PolicyAlways, cfg.CitationPolicy())
}

// =============================================================================
// LOADING
// =============================================================================

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromPath_PartialFileFillsDefaults(t *testing.T) {
	path := writeFile(t, `
error_text = "Backend unavailable"

[server]
endpoint = "http://backend.internal:8080"
connect_timeout = "2s"

[ui]
citations = "when_complete"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "Backend unavailable", cfg.ErrorText)
	assert.Equal(t, "http://backend.internal:8080", cfg.Server.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Server.ConnectTimeout)
	assert.Equal(t, "/chat", cfg.Server.ChatPath, "missing keys take defaults")
	assert.Equal(t, Default().Stream.MaxLineSize, cfg.Stream.MaxLineSize)
	assert.Equal(t, citation.PolicyWhenComplete, cfg.CitationPolicy())
}

func TestLoadFromPath_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "[server\nendpoint=", "failed to decode TOML"},
		{"unknown key", "[server]\nendpont = \"http://x\"", "unknown config keys: server.endpont"},
		{"bad policy", "[ui]\ncitations = \"sometimes\"", "ui.citations"},
		{"bad url", "[server]\nendpoint = \"not a url\"", "server.endpoint"},
		{"bad path", "[server]\nchat_path = \"chat\"", "server.chat_path"},
		{"bad fps", "[ui]\nmax_fps = 1000", "ui.max_fps"},
		{"bad listen", "[metrics]\nlisten = \"nonsense\"", "metrics.listen"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromPath(writeFile(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Endpoint, cfg.Server.Endpoint)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Server.Endpoint = "http://example.test:9000"
	cfg.Server.ResponseHeaderTimeout = 90 * time.Second
	cfg.UI.Citations = "when_complete"
	cfg.Metrics.Listen = ":9090"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.ErrorText = ""
	cfg.Log.Level = "loud"
	cfg.Stream.ReadSize = 0

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"error_text", "log.level", "stream.read_size"}, fields)
	assert.True(t, strings.Contains(err.Error(), "log.level: invalid value \"loud\""))
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CITECHAT_ENDPOINT", "http://env.test")
	t.Setenv("CITECHAT_CHAT_PATH", "/v2/chat")
	t.Setenv("CITECHAT_LOG_LEVEL", "DEBUG")
	t.Setenv("CITECHAT_CITATIONS", "when_complete")
	t.Setenv("CITECHAT_ERROR_TEXT", "nope")
	t.Setenv("CITECHAT_METRICS_LISTEN", "127.0.0.1:9100")
	t.Setenv("CITECHAT_MAX_FPS", "12")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://env.test", cfg.Server.Endpoint)
	assert.Equal(t, "/v2/chat", cfg.Server.ChatPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "when_complete", cfg.UI.Citations)
	assert.Equal(t, "nope", cfg.ErrorText)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Listen)
	assert.Equal(t, 12, cfg.UI.MaxFPS)
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// COMPONENT CONFIG
// =============================================================================

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.Endpoint = "http://x.test"
	cc := cfg.ClientConfig()

	assert.Equal(t, "http://x.test", cc.BaseURL)
	assert.Equal(t, cfg.Server.ChatPath, cc.ChatPath)
	assert.Equal(t, cfg.Server.ConnectTimeout, cc.ConnectTimeout)
	assert.Len(t, cfg.StreamOptions(), 2)
}

func TestLogFilePath(t *testing.T) {
	cfg := Default()
	cfg.Log.File = "/var/log/citechat.log"
	path, err := cfg.LogFilePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/log/citechat.log", path)

	t.Setenv("HOME", "/home/test")
	cfg.Log.File = "citechat.log"
	path, err = cfg.LogFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/test", ".citechat", "citechat.log"), path)
}

// =============================================================================
// GLOBAL
// =============================================================================

func TestGlobal_ConcurrentAccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestSetGlobal(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Default()
	cfg.ErrorText = "custom"
	SetGlobal(cfg)
	assert.Equal(t, "custom", Global().ErrorText)
}
