// Package config provides the process-wide configuration schema and loader
// for speakcast.
//
// Config is loaded once at startup from a YAML file and is immutable for the
// lifetime of the process. Runtime-editable preferences (default voice,
// default chunk strategy, cleaning flags) live in the Settings row managed by
// internal/store and internal/library instead — they are not part of Config.
package config

import "time"

// LogLevel controls slog verbosity. Valid values: "debug", "info", "warn", "error".
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether lvl is one of the recognised level names.
func (lvl LogLevel) IsValid() bool {
	switch lvl {
	case "", LogDebug, LogInfo, LogWarn, LogError:
		return true
	default:
		return false
	}
}

// Config is the root configuration structure for speakcast.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// DataDir is the single directory beneath which the relational store,
	// source blobs, cover art, and generated audio live (spec §6). Required.
	DataDir string `yaml:"data_dir"`

	// VoicesDir optionally points at a directory of local/custom voice
	// definitions consumed by voice-cloning-capable TTS providers.
	VoicesDir string `yaml:"voices_dir"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// Host is the interface address the (externally owned) HTTP transport
	// should bind to. speakcast's core does not open a listener itself, but
	// carries the value through since it is part of the documented process
	// configuration (spec §6).
	Host string `yaml:"host"`

	// Port is the TCP port paired with Host.
	Port int `yaml:"port"`

	// UndoWindow bounds how long a regenerate-with-settings UndoTicket stays
	// redeemable (spec §4.7, §9 Open Question — resolved here as configurable).
	UndoWindow time.Duration `yaml:"undo_window"`

	// TTS selects and configures the TTS collaborator adapter.
	TTS ProviderEntry `yaml:"tts"`

	// Codec selects and configures the audio codec collaborator adapter(s).
	Codec ProviderEntry `yaml:"codec"`
}

// ProviderEntry is the configuration block shared by the TTS and codec
// collaborator slots. The Name field is used to look up the constructor in
// the [Registry].
type ProviderEntry struct {
	// Name selects the registered adapter implementation (e.g. "openai", "mock").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, when applicable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Options holds adapter-specific configuration not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// defaultUndoWindow is used when UndoWindow is zero after loading.
const defaultUndoWindow = 120 * time.Second

// applyDefaults fills in zero-valued fields with their documented defaults.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.UndoWindow <= 0 {
		c.UndoWindow = defaultUndoWindow
	}
}
