// Package config loads and saves the midifade configuration file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds API server settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Config is the main configuration structure
type Config struct {
	OutputDir       string       `yaml:"output_dir"`
	PresetsFile     string       `yaml:"presets_file"`
	Backend         string       `yaml:"backend"`
	ExternalCommand []string     `yaml:"external_command,omitempty"`
	Workers         int          `yaml:"workers"`
	LogLevel        string       `yaml:"log_level"`
	Server          ServerConfig `yaml:"server"`

	path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	dataDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, "Documents", "MIDI-Fade-Generator")
	}

	return &Config{
		OutputDir:   filepath.Join(dataDir, "generated_midi"),
		PresetsFile: filepath.Join(dataDir, "esitykset.json"),
		Backend:     "native",
		Workers:     1,
		LogLevel:    "info",
		Server:      ServerConfig{Port: 8080},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midifade"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config from the default location, or returns defaults if
// there is none
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.OutputDir = expandHome(cfg.OutputDir)
	cfg.PresetsFile = expandHome(cfg.PresetsFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Backend {
	case "native", "":
	case "external":
		if len(c.ExternalCommand) == 0 {
			return errors.New("backend \"external\" needs external_command")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// Path returns the file the config was loaded from, if any
func (c *Config) Path() string {
	return c.path
}

// Save writes the config back to where it was loaded from, or to the
// default location
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating parent directories
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	c.path = path
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
