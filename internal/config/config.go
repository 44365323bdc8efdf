// Package config loads and persists the manager's dotfile configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"conduit-manager/internal/conduit"
)

const (
	appDirName = "conduit-manager"
	fileName   = "config.yaml"

	// DefaultImage is the conduit workload image deployed when the config
	// does not override it.
	DefaultImage = "ghcr.io/psiphon-labs/conduit:latest"

	// DefaultContainerName is the fixed name the managed container runs under.
	DefaultContainerName = "conduit"

	// DefaultVolumeName is the named volume holding the node identity key.
	DefaultVolumeName = "conduit-data"
)

// Config is everything the manager persists between runs.
type Config struct {
	Settings      conduit.Settings `yaml:"settings"`
	Image         string           `yaml:"image"`
	ContainerName string           `yaml:"container_name"`
	VolumeName    string           `yaml:"volume_name"`
	LogLevel      string           `yaml:"log_level"`
	LogFile       string           `yaml:"log_file"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		Settings:      conduit.DefaultSettings,
		Image:         DefaultImage,
		ContainerName: DefaultContainerName,
		VolumeName:    DefaultVolumeName,
		LogLevel:      "info",
	}
}

// Path resolves the config file location: explicit path if given, otherwise
// $XDG_CONFIG_HOME/conduit-manager/config.yaml with a ~/.config fallback.
func Path(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDirName, fileName), nil
}

// Load reads the config file at path. A missing file is not an error; the
// defaults are returned so first runs work without any setup.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.applyFallbacks()

	if err := cfg.Settings.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save validates and writes the config, creating parent directories as
// needed. The file is written 0600 since it lives next to key backups.
func Save(path string, cfg Config) error {
	if err := cfg.Settings.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

// applyFallbacks fills fields an older or hand-edited file may omit.
func (c *Config) applyFallbacks() {
	def := Default()
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.ContainerName == "" {
		c.ContainerName = def.ContainerName
	}
	if c.VolumeName == "" {
		c.VolumeName = def.VolumeName
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Settings.MemoryLimit == "" {
		c.Settings.MemoryLimit = def.Settings.MemoryLimit
	}
	if c.Settings.CPULimit == 0 {
		c.Settings.CPULimit = def.Settings.CPULimit
	}
	if c.Settings.MaxClients == 0 {
		c.Settings.MaxClients = def.Settings.MaxClients
	}
	if c.Settings.BandwidthMbps == 0 {
		c.Settings.BandwidthMbps = def.Settings.BandwidthMbps
	}
}
