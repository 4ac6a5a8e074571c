// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/client"
	"github.com/jeranaias/citechat/internal/logging"
	"github.com/jeranaias/citechat/internal/stream"
	"github.com/jeranaias/citechat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete citechat configuration.
type Config struct {
	// ErrorText replaces a reply whose stream failed.
	ErrorText string `toml:"error_text" validate:"required,max=200"`

	Server  ServerConfig  `toml:"server"`
	Stream  StreamConfig  `toml:"stream"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig describes the chat backend.
type ServerConfig struct {
	Endpoint              string        `toml:"endpoint" validate:"required,url"`
	ChatPath              string        `toml:"chat_path" validate:"required,startswith=/"`
	ConnectTimeout        time.Duration `toml:"connect_timeout" validate:"gt=0"`
	ResponseHeaderTimeout time.Duration `toml:"response_header_timeout" validate:"gt=0"`
	UserAgent             string        `toml:"user_agent" validate:"required,max=200"`
}

// StreamConfig bounds the stream decoder.
type StreamConfig struct {
	MaxLineSize int `toml:"max_line_size" validate:"gte=1024,lte=67108864"`
	ReadSize    int `toml:"read_size" validate:"gte=1,lte=1048576"`
}

// UIConfig contains renderer settings.
type UIConfig struct {
	// Citations is when markers become selectable: always or when_complete.
	Citations string `toml:"citations" validate:"oneof=always when_complete"`
	MaxFPS    int    `toml:"max_fps" validate:"gte=1,lte=240"`
	Markdown  bool   `toml:"markdown"`
	Theme     string `toml:"theme" validate:"oneof=auto dark light"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `toml:"pretty"`
	// File receives TUI logs. Relative paths are under the config dir.
	File string `toml:"file"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		ErrorText: "Error: Failed to get response",

		Server: ServerConfig{
			Endpoint:              client.DefaultBaseURL,
			ChatPath:              client.DefaultChatPath,
			ConnectTimeout:        client.DefaultConnectTimeout,
			ResponseHeaderTimeout: client.DefaultResponseHeaderTimeout,
			UserAgent:             client.DefaultUserAgent,
		},

		Stream: StreamConfig{
			MaxLineSize: stream.DefaultMaxLineSize,
			ReadSize:    stream.DefaultReadSize,
		},

		UI: UIConfig{
			Citations: citation.PolicyAlways.String(),
			MaxFPS:    30,
			Markdown:  true,
			Theme:     "auto",
		},

		Log: LogConfig{
			Level: "info",
			File:  "citechat.log",
		},
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.ErrorText == "" {
		cfg.ErrorText = defaults.ErrorText
	}

	// Server
	if cfg.Server.Endpoint == "" {
		cfg.Server.Endpoint = defaults.Server.Endpoint
	}
	if cfg.Server.ChatPath == "" {
		cfg.Server.ChatPath = defaults.Server.ChatPath
	}
	if cfg.Server.ConnectTimeout == 0 {
		cfg.Server.ConnectTimeout = defaults.Server.ConnectTimeout
	}
	if cfg.Server.ResponseHeaderTimeout == 0 {
		cfg.Server.ResponseHeaderTimeout = defaults.Server.ResponseHeaderTimeout
	}
	if cfg.Server.UserAgent == "" {
		cfg.Server.UserAgent = defaults.Server.UserAgent
	}

	// Stream
	if cfg.Stream.MaxLineSize == 0 {
		cfg.Stream.MaxLineSize = defaults.Stream.MaxLineSize
	}
	if cfg.Stream.ReadSize == 0 {
		cfg.Stream.ReadSize = defaults.Stream.ReadSize
	}

	// UI
	if cfg.UI.Citations == "" {
		cfg.UI.Citations = defaults.UI.Citations
	}
	if cfg.UI.MaxFPS == 0 {
		cfg.UI.MaxFPS = defaults.UI.MaxFPS
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaults.Log.File
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the citechat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".citechat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogFilePath resolves Log.File against the config directory.
func (c *Config) LogFilePath() (string, error) {
	if filepath.IsAbs(c.Log.File) {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Log.File), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the configuration from ~/.citechat/config.toml, falling back to
// defaults when the file does not exist. A .env file in the working
// directory is read first; environment overrides are applied last.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return load(path, true)
}

// LoadFromPath loads configuration from a specific file, which must exist.
func LoadFromPath(path string) (*Config, error) {
	_ = godotenv.Load()
	return load(path, false)
}

func load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if err := LoadTOML(cfg, path); err != nil {
		if !optional || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg and fills any missing values.
// Unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return DecodeTOML(cfg, f)
}

// DecodeTOML decodes TOML from r over cfg and fills any missing values.
func DecodeTOML(cfg *Config, r io.Reader) error {
	meta, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# citechat configuration file\n")
	buf.WriteString("# Environment variables CITECHAT_* override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("error encoding config: %v", err)
	}
	return buf.String()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var validate = newValidator()

// newValidator reports fields by their TOML key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration and returns ValidateErrors on failure.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	if c.Metrics.Listen != "" {
		if _, port, err := net.SplitHostPort(c.Metrics.Listen); err != nil || port == "" {
			errs = append(errs, ValidationError{
				Field:   "metrics.listen",
				Message: fmt.Sprintf("invalid listen address %q, want host:port or :port", c.Metrics.Listen),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("invalid URL %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("invalid value %q, must be one of: %s",
			fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - CITECHAT_ENDPOINT: overrides server.endpoint
//   - CITECHAT_CHAT_PATH: overrides server.chat_path
//   - CITECHAT_LOG_LEVEL: overrides log.level
//   - CITECHAT_CITATIONS: overrides ui.citations
//   - CITECHAT_ERROR_TEXT: overrides error_text
//   - CITECHAT_METRICS_LISTEN: overrides metrics.listen
//   - CITECHAT_MAX_FPS: overrides ui.max_fps
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CITECHAT_ENDPOINT"); v != "" {
		c.Server.Endpoint = v
	}
	if v := os.Getenv("CITECHAT_CHAT_PATH"); v != "" {
		c.Server.ChatPath = v
	}
	if v := os.Getenv("CITECHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CITECHAT_CITATIONS"); v != "" {
		c.UI.Citations = strings.ToLower(v)
	}
	if v := os.Getenv("CITECHAT_ERROR_TEXT"); v != "" {
		c.ErrorText = v
	}
	if v := os.Getenv("CITECHAT_METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
	}
	if v := os.Getenv("CITECHAT_MAX_FPS"); v != "" {
		if fps, err := strconv.Atoi(v); err == nil {
			c.UI.MaxFPS = fps
		}
	}
}

// =============================================================================
// COMPONENT CONFIG
// =============================================================================

// ClientConfig returns the transport configuration.
func (c *Config) ClientConfig() *client.ClientConfig {
	return &client.ClientConfig{
		BaseURL:               c.Server.Endpoint,
		ChatPath:              c.Server.ChatPath,
		ConnectTimeout:        c.Server.ConnectTimeout,
		ResponseHeaderTimeout: c.Server.ResponseHeaderTimeout,
		UserAgent:             c.Server.UserAgent,
	}
}

// StreamOptions returns the decoder options.
func (c *Config) StreamOptions() []stream.Option {
	return []stream.Option{
		stream.WithMaxLineSize(c.Stream.MaxLineSize),
		stream.WithReadSize(c.Stream.ReadSize),
	}
}

// CitationPolicy returns the parsed citation policy. Validate guarantees the
// value parses; anything else falls back to PolicyAlways.
func (c *Config) CitationPolicy() citation.Policy {
	p, err := citation.ParsePolicy(c.UI.Citations)
	if err != nil {
		return citation.PolicyAlways
	}
	return p
}

// LoggingConfig returns the logger configuration writing to out.
func (c *Config) LoggingConfig(out io.Writer) logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		Output: out,
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
