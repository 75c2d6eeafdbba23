// Package config loads the wexpr settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatYAML SettingsFormat = "yaml"
)

const (
	DefaultTimeoutMS = 50
	DefaultLoopLimit = 256
)

type SettingsFormat string

type Settings struct {
	TimeoutMS int               `toml:"timeout_ms" yaml:"timeout_ms"`
	LoopLimit *int              `toml:"loop_limit" yaml:"loop_limit"`
	Workers   int               `toml:"workers"    yaml:"workers"`
	MaxVolume int               `toml:"max_volume" yaml:"max_volume"`
	History   string            `toml:"history"    yaml:"history"`
	Telemetry TelemetrySettings `toml:"telemetry"  yaml:"telemetry"`
}

type TelemetrySettings struct {
	Endpoint    string            `toml:"endpoint"     yaml:"endpoint"`
	Insecure    bool              `toml:"insecure"     yaml:"insecure"`
	ServiceName string            `toml:"service_name" yaml:"service_name"`
	Headers     map[string]string `toml:"headers"      yaml:"headers"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	limit := DefaultLoopLimit
	return Settings{
		TimeoutMS: DefaultTimeoutMS,
		LoopLimit: &limit,
	}
}

// Timeout returns the evaluation budget; zero or negative disables it.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Loops returns the per-loop iteration cap; zero disables it.
func (s Settings) Loops() int {
	if s.LoopLimit == nil {
		return DefaultLoopLimit
	}
	return *s.LoopLimit
}

// Dir returns the directory holding the settings file.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wexpr")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "wexpr")
	}
	return "."
}

// DefaultPath returns the settings file looked up when none is named.
func DefaultPath() string {
	return filepath.Join(Dir(), "settings.toml")
}

// Load reads the settings at path, or at DefaultPath when path is empty. A
// missing file yields Default. Files ending in .yaml or .yml are YAML; any
// other file is tried as TOML first and then as YAML.
func Load(path string) (Settings, error) {
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %q: %w", path, err)
	}

	formats := []SettingsFormat{SettingsFormatTOML, SettingsFormatYAML}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		formats = []SettingsFormat{SettingsFormatYAML}
	}

	var accumulated error
	for _, format := range formats {
		settings, err := Decode(data, format)
		if err == nil {
			return settings, nil
		}
		accumulated = errors.Join(accumulated, fmt.Errorf("%s: %w", format, err))
	}
	return Settings{}, fmt.Errorf("parse settings %q: %w", path, accumulated)
}

// Decode parses data in the given format on top of Default.
func Decode(data []byte, format SettingsFormat) (Settings, error) {
	settings := Default()
	settings.LoopLimit = nil
	switch format {
	case SettingsFormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatYAML:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	if settings.Workers < 0 {
		return Settings{}, fmt.Errorf("workers must not be negative, got %d", settings.Workers)
	}
	if settings.MaxVolume < 0 {
		return Settings{}, fmt.Errorf("max_volume must not be negative, got %d", settings.MaxVolume)
	}
	if settings.LoopLimit != nil && *settings.LoopLimit < 0 {
		return Settings{}, fmt.Errorf("loop_limit must not be negative, got %d", *settings.LoopLimit)
	}
	return settings, nil
}
