package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ConfigPath returns the default configuration file path: ~/.sakit/config.json.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sakit/config.json"
	}
	return filepath.Join(home, ".sakit", "config.json")
}

// DataDir returns the sakit data directory: ~/.sakit.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sakit"
	}
	return filepath.Join(home, ".sakit")
}

// Load reads and parses the config file at path.
// If path is empty, ConfigPath() is used.
// On parse failure it prints a warning and returns DefaultConfig().
// Secrets left empty are filled from credentials.toml and the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	creds, credPath, err := LoadCredentials()
	if err != nil {
		slog.Warn("config: credentials file ignored", "path", credPath, "err", err)
		creds = nil
	}
	cfg.ApplyCredentials(creds)
	return cfg, nil
}

// LoadFile reads path without applying credentials or the environment.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	return readConfigFile(path)
}

func readConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("config: failed to parse, using defaults", "path", path, "err", err)
		cfg2 := DefaultConfig()
		return &cfg2, nil
	}

	return &cfg, nil
}

// Save writes cfg to path as indented JSON.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
