// Package config handles reading and writing the pct configuration file (~/.pct/config.toml).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPython is the interpreter used for the Open3D bridge when none is configured.
const DefaultPython = "python3"

// DefaultRANSACIterations bounds RANSAC plane fitting when none is configured.
const DefaultRANSACIterations = 1000

// Config holds pct configuration settings.
type Config struct {
	HistoryPath      string `toml:"history_path,omitempty" json:"history_path,omitempty"`
	HistoryBackend   string `toml:"history_backend,omitempty" json:"history_backend,omitempty"`
	Python           string `toml:"python,omitempty" json:"python,omitempty"`
	RANSACIterations int    `toml:"ransac_iterations,omitempty" json:"ransac_iterations,omitempty"`
	DefaultFormat    string `toml:"default_format,omitempty" json:"default_format,omitempty"`
}

// validKeys lists the allowed configuration keys.
var validKeys = map[string]bool{
	"default_format":    true,
	"history_backend":   true,
	"history_path":      true,
	"python":            true,
	"ransac_iterations": true,
}

// ValidKeys returns the sorted list of valid configuration keys.
func ValidKeys() []string {
	return []string{"default_format", "history_backend", "history_path", "python", "ransac_iterations"}
}

// Path returns the default config file path (~/.pct/config.toml).
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".pct", "config.toml")
	}
	return filepath.Join(home, ".pct", "config.toml")
}

// LoadFrom reads the config from a specific path. Returns an empty Config if
// the file does not exist. Supports both TOML and JSON formats (detected by
// file extension; defaults to TOML).
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// SaveTo writes the config to a specific path, creating parent directories as needed.
// Writes TOML format regardless of file extension.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// PythonOrDefault returns the configured interpreter or DefaultPython.
func (c *Config) PythonOrDefault() string {
	if c.Python == "" {
		return DefaultPython
	}
	return c.Python
}

// RANSACIterationsOrDefault returns the configured iteration count or
// DefaultRANSACIterations.
func (c *Config) RANSACIterationsOrDefault() int {
	if c.RANSACIterations <= 0 {
		return DefaultRANSACIterations
	}
	return c.RANSACIterations
}

// Get returns the string value of a configuration key.
func (c *Config) Get(key string) (string, error) {
	if !validKeys[key] {
		return "", unknownKeyError(key)
	}
	switch key {
	case "history_path":
		return c.HistoryPath, nil
	case "history_backend":
		return c.HistoryBackend, nil
	case "python":
		return c.Python, nil
	case "ransac_iterations":
		if c.RANSACIterations == 0 {
			return "", nil
		}
		return strconv.Itoa(c.RANSACIterations), nil
	case "default_format":
		return c.DefaultFormat, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Set assigns a value to a configuration key.
func (c *Config) Set(key, value string) error {
	if !validKeys[key] {
		return unknownKeyError(key)
	}
	switch key {
	case "history_path":
		c.HistoryPath = value
	case "history_backend":
		if value != "" && value != "json" && value != "sqlite" {
			return fmt.Errorf("history_backend must be \"json\" or \"sqlite\", got %q", value)
		}
		c.HistoryBackend = value
	case "python":
		c.Python = value
	case "ransac_iterations":
		if value == "" {
			c.RANSACIterations = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("ransac_iterations must be a positive integer, got %q", value)
		}
		c.RANSACIterations = n
	case "default_format":
		if value != "" && value != "table" && value != "json" {
			return fmt.Errorf("default_format must be \"table\" or \"json\", got %q", value)
		}
		c.DefaultFormat = value
	}
	return nil
}

// unknownKeyError names the closest valid key when key looks like a typo.
func unknownKeyError(key string) error {
	best, bestDist := "", 3
	for _, k := range ValidKeys() {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	if best != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", key, best)
	}
	return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(ValidKeys(), ", "))
}
