package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// Settings holds user-level settings that persist across projects.
type Settings struct {
	// Home is the store root where hook repositories are cloned.
	Home          string        `yaml:"home"`
	ContainerTTL  time.Duration `yaml:"container_ttl"`
	AllowNoConfig bool          `yaml:"-"` // from HOOKWARDEN_ALLOW_NO_CONFIG only
	OutputColor   bool          `yaml:"-"` // derived from Output.Color
	OutputVerbose bool          `yaml:"-"` // derived from Output.Verbose
	Output        OutputConfig  `yaml:"output"`
}

// OutputConfig holds output-related user preferences.
type OutputConfig struct {
	Color   *bool `yaml:"color"`
	Verbose *bool `yaml:"verbose"`
}

const defaultContainerTTL = 5 * time.Minute

// LoadSettings reads user-level configuration from ~/.config/hookwarden/config.yaml.
// If the file does not exist, default values are returned (not an error).
// Environment variables override file values.
func (l *Loader) LoadSettings(ctx context.Context) (*Settings, error) {
	home, err := l.fs.UserHomeDir()
	if err != nil {
		cfg := l.defaultSettings("")
		applyEnvOverrides(cfg, l.getenv, logger.FromContext(ctx))
		return cfg, nil
	}
	path := filepath.Join(home, ".config", "hookwarden", "config.yaml")
	return l.LoadSettingsFrom(ctx, path)
}

// LoadSettingsFrom reads user-level configuration from a specific path.
// If the file does not exist, default values are returned (not an error).
// Environment variables override file values.
func (l *Loader) LoadSettingsFrom(ctx context.Context, path string) (*Settings, error) {
	log := logger.FromContext(ctx)
	log.Debug("loading settings", "path", path)

	home, _ := l.fs.UserHomeDir()
	cfg := l.defaultSettings(home)

	path = filepath.Clean(path)

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if l.fs.IsNotExist(err) {
			applyEnvOverrides(cfg, l.getenv, log)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	if cfg.Output.Color != nil {
		cfg.OutputColor = *cfg.Output.Color
	}
	if cfg.Output.Verbose != nil {
		cfg.OutputVerbose = *cfg.Output.Verbose
	}

	applyEnvOverrides(cfg, l.getenv, log)

	return cfg, nil
}

// LoadSettings reads user-level configuration using the real file system.
func LoadSettings(ctx context.Context) (*Settings, error) {
	return NewLoader(&RealFileSystem{}).LoadSettings(ctx)
}

func (l *Loader) defaultSettings(home string) *Settings {
	cfg := &Settings{
		ContainerTTL: defaultContainerTTL,
		OutputColor:  true,
	}
	switch {
	case l.getenv("XDG_CACHE_HOME") != "":
		cfg.Home = filepath.Join(l.getenv("XDG_CACHE_HOME"), "hookwarden")
	case home != "":
		cfg.Home = filepath.Join(home, ".cache", "hookwarden")
	default:
		cfg.Home = filepath.Join(".cache", "hookwarden")
	}
	return cfg
}

// applyEnvOverrides applies environment variable overrides to the settings.
func applyEnvOverrides(cfg *Settings, getenv func(string) string, log *slog.Logger) {
	if home := getenv("HOOKWARDEN_HOME"); home != "" {
		cfg.Home = home
	}

	if ttlStr := getenv("HOOKWARDEN_CONTAINER_TTL"); ttlStr != "" {
		d, err := time.ParseDuration(ttlStr)
		if err != nil {
			log.Warn("invalid HOOKWARDEN_CONTAINER_TTL value, using default", "value", ttlStr, "error", err)
		} else {
			cfg.ContainerTTL = d
		}
	}

	if isTruthy(getenv("HOOKWARDEN_NO_COLOR")) {
		cfg.OutputColor = false
	}

	if isTruthy(getenv("HOOKWARDEN_ALLOW_NO_CONFIG")) {
		cfg.AllowNoConfig = true
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
