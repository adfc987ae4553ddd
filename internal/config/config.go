package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Tournament TournamentRuntimeConfig `toml:"tournament"`
	Raw        map[string]any          `toml:"-"`
	Path       string                  `toml:"-"`
}

type TournamentRuntimeConfig struct {
	DBPath        string   `toml:"db_path"`
	ScenarioCount int      `toml:"scenario_count"`
	SampleQuota   int      `toml:"sample_quota"`
	Workers       int      `toml:"workers"`
	Agents        []string `toml:"agents"`
	Seed          int64    `toml:"seed"`
	TargetWorths  []int    `toml:"target_worths"`
}

// Load reads the TOML config at path, expanding a leading "~". An empty path
// falls back to the default location; a missing file at the default location
// is not an error, the zero config is returned instead.
func Load(path string) (Config, error) {
	usingDefault := path == ""
	resolved := path
	if resolved == "" {
		resolved = defaultConfigPath()
	}
	if strings.HasPrefix(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(resolved, "~")
		trimmed = strings.TrimPrefix(trimmed, "\\")
		trimmed = strings.TrimPrefix(trimmed, "/")
		resolved = filepath.Join(home, trimmed)
	}
	resolved = filepath.Clean(resolved)

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if usingDefault && os.IsNotExist(err) {
			return Config{Path: resolved}, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	var raw map[string]any
	if _, err := toml.Decode(string(bytes), &raw); err != nil {
		return Config{}, fmt.Errorf("decode raw config: %w", err)
	}
	cfg.Raw = raw
	cfg.Path = resolved
	return cfg, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hagglebench/config.toml"
	}
	return filepath.Join(home, ".hagglebench", "config.toml")
}
