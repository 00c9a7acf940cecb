// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for hyshell.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.hyshell/config.toml
//   - ~/.hyshell/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/hyshell/internal/cloud"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete hyshell configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API configuration for the Fireworks endpoint
	API APIConfig `toml:"api" json:"api"`

	// Stream configuration for the live response display
	Stream StreamConfig `toml:"stream" json:"stream"`

	// Context configuration for shell/conversation history
	Context ContextConfig `toml:"context" json:"context"`

	// Shell executor configuration
	Shell ShellConfig `toml:"shell" json:"shell"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig contains Fireworks API settings.
type APIConfig struct {
	// Key is the Fireworks API key. The FIREWORKS_API_KEY environment
	// variable overrides it.
	Key string `toml:"key" json:"key"`
	// Model is the chat model identifier. FIREWORKS_MODEL overrides it.
	Model string `toml:"model" json:"model"`
	// BaseURL is the API base URL.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds a whole exchange, streaming included.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimitRPS is the client-side request rate limit.
	RateLimitRPS float64 `toml:"rate_limit_rps" json:"rate_limit_rps"`
	// MaxRetries is the retry count for pre-stream failures.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// StreamConfig contains live display and sampling settings.
type StreamConfig struct {
	// MaxVisibleLines is the rolling display window height.
	MaxVisibleLines int `toml:"max_visible_lines" json:"max_visible_lines"`
	// MaxTokens caps the response length.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Temperature is the sampling temperature.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TopP is nucleus sampling probability mass.
	TopP float64 `toml:"top_p" json:"top_p"`
	// TopK limits sampling to the K most likely tokens.
	TopK int `toml:"top_k" json:"top_k"`
	// PresencePenalty discourages reusing tokens already present.
	PresencePenalty float64 `toml:"presence_penalty" json:"presence_penalty"`
	// FrequencyPenalty discourages frequent-token repetition.
	FrequencyPenalty float64 `toml:"frequency_penalty" json:"frequency_penalty"`
}

// ContextConfig contains context store settings.
type ContextConfig struct {
	// MaxShellEntries caps the stored shell context.
	MaxShellEntries int `toml:"max_shell_entries" json:"max_shell_entries"`
	// MaxConversation caps the stored conversation messages.
	MaxConversation int `toml:"max_conversation" json:"max_conversation"`
	// HistoryFile is the conversation persistence file name, resolved
	// relative to the config directory.
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// ShellConfig contains shell executor settings.
type ShellConfig struct {
	// CommandTimeoutSecs bounds captured command execution.
	CommandTimeoutSecs int `toml:"command_timeout_secs" json:"command_timeout_secs"`
	// MaxOutputKB caps captured command output.
	MaxOutputKB int `toml:"max_output_kb" json:"max_output_kb"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is the color theme name.
	Theme string `toml:"theme" json:"theme"`
	// Markdown enables glamour rendering of completed responses.
	Markdown bool `toml:"markdown" json:"markdown"`
	// SyntaxHighlight enables chroma highlighting of file output.
	SyntaxHighlight bool `toml:"syntax_highlight" json:"syntax_highlight"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "0.1.0",
		API: APIConfig{
			BaseURL:      cloud.DefaultFireworksURL,
			Model:        cloud.DefaultModel,
			TimeoutSecs:  120,
			RateLimitRPS: 2,
			MaxRetries:   cloud.DefaultMaxRetries,
		},
		Stream: StreamConfig{
			MaxVisibleLines:  20,
			MaxTokens:        16000,
			Temperature:      0.6,
			TopP:             1,
			TopK:             40,
			PresencePenalty:  0,
			FrequencyPenalty: 0,
		},
		Context: ContextConfig{
			MaxShellEntries: 10,
			MaxConversation: 20,
			HistoryFile:     "history.json",
		},
		Shell: ShellConfig{
			CommandTimeoutSecs: 30,
			MaxOutputKB:        100,
		},
		UI: UIConfig{
			Theme:           "dark",
			Markdown:        true,
			SyntaxHighlight: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the hyshell configuration directory. The
// HYSHELL_CONFIG_DIR environment variable overrides the default ~/.hyshell.
func ConfigDir() (string, error) {
	if dir := os.Getenv("HYSHELL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".hyshell"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// HistoryPath returns the absolute conversation history path.
func (c *Config) HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Context.HistoryFile), nil
}

// InputHistoryPath returns the REPL input history path.
func InputHistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "input_history"), nil
}

// ShellHistoryDBPath returns the shell command history database path.
func ShellHistoryDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shell_history.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes permissions on config files.
// SECURITY: Config files hold the API key; keep them 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s). Tries TOML first, then
// JSON, and falls back to defaults. Environment overrides apply last.
//
// Load always returns a usable config: when a file parses but carries
// invalid values, the returned config is the validated defaults and the
// error describes the rejection. Callers may warn and keep going.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishFileLoad(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishFileLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(Default())
	if err != nil {
		return Default(), err
	}
	return cfg, loadErr
}

// finishFileLoad validates a file-sourced config. A config the file made
// invalid degrades to the validated defaults so the caller always gets a
// working config alongside the error.
func finishFileLoad(cfg *Config) (*Config, error) {
	finished, err := finishLoad(cfg)
	if err == nil {
		return finished, nil
	}
	fallback, ferr := finishLoad(Default())
	if ferr != nil {
		return Default(), err
	}
	return fallback, err
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. Used by the hot-reload watcher.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.Model == "" {
		cfg.API.Model = defaults.API.Model
	}
	if cfg.API.TimeoutSecs <= 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.RateLimitRPS <= 0 {
		cfg.API.RateLimitRPS = defaults.API.RateLimitRPS
	}
	if cfg.API.MaxRetries <= 0 {
		cfg.API.MaxRetries = defaults.API.MaxRetries
	}

	if cfg.Stream.MaxVisibleLines <= 0 {
		cfg.Stream.MaxVisibleLines = defaults.Stream.MaxVisibleLines
	}
	if cfg.Stream.MaxTokens <= 0 {
		cfg.Stream.MaxTokens = defaults.Stream.MaxTokens
	}
	if cfg.Stream.Temperature == 0 {
		cfg.Stream.Temperature = defaults.Stream.Temperature
	}
	if cfg.Stream.TopP == 0 {
		cfg.Stream.TopP = defaults.Stream.TopP
	}
	if cfg.Stream.TopK == 0 {
		cfg.Stream.TopK = defaults.Stream.TopK
	}

	if cfg.Context.MaxShellEntries <= 0 {
		cfg.Context.MaxShellEntries = defaults.Context.MaxShellEntries
	}
	if cfg.Context.MaxConversation <= 0 {
		cfg.Context.MaxConversation = defaults.Context.MaxConversation
	}
	if cfg.Context.HistoryFile == "" {
		cfg.Context.HistoryFile = defaults.Context.HistoryFile
	}

	if cfg.Shell.CommandTimeoutSecs <= 0 {
		cfg.Shell.CommandTimeoutSecs = defaults.Shell.CommandTimeoutSecs
	}
	if cfg.Shell.MaxOutputKB <= 0 {
		cfg.Shell.MaxOutputKB = defaults.Shell.MaxOutputKB
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// =============================================================================
// ENV OVERRIDES AND VALIDATION
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("FIREWORKS_API_KEY"); key != "" {
		c.API.Key = key
	}
	if model := os.Getenv("FIREWORKS_MODEL"); model != "" {
		c.API.Model = model
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.Stream.Temperature < 0 || c.Stream.Temperature > 2 {
		return fmt.Errorf("stream.temperature must be in [0, 2], got %v", c.Stream.Temperature)
	}
	if c.Stream.TopP < 0 || c.Stream.TopP > 1 {
		return fmt.Errorf("stream.top_p must be in [0, 1], got %v", c.Stream.TopP)
	}
	if c.Stream.MaxVisibleLines > 200 {
		return fmt.Errorf("stream.max_visible_lines too large: %d", c.Stream.MaxVisibleLines)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Config files are created 0600 to protect the API key.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# hyshell configuration file")
	fmt.Fprintln(file, "# Generated by hyshell - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Options converts the stream settings to API sampling options.
func (c *Config) Options() cloud.Options {
	return cloud.Options{
		MaxTokens:        c.Stream.MaxTokens,
		Temperature:      c.Stream.Temperature,
		TopP:             c.Stream.TopP,
		TopK:             c.Stream.TopK,
		PresencePenalty:  c.Stream.PresencePenalty,
		FrequencyPenalty: c.Stream.FrequencyPenalty,
	}
}

// APITimeout returns the exchange timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// CommandTimeout returns the shell command timeout as a duration.
func (c ShellConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSecs) * time.Second
}

// NewClient builds a Fireworks client from the configuration.
func (c *Config) NewClient() *cloud.Client {
	return cloud.NewClient(c.API.Key).
		WithBaseURL(c.API.BaseURL).
		WithModel(c.API.Model).
		WithTimeout(c.APITimeout()).
		WithMaxRetries(c.API.MaxRetries).
		WithRateLimit(c.API.RateLimitRPS)
}
