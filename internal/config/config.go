// Package config loads the optional .kunai.yaml file that supplies defaults
// for flags and for new sources. Flags always override config values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/kunai/internal/logging"
)

// DefaultPath is where the config file is looked up when no --config flag is
// given.
const DefaultPath = ".kunai.yaml"

// Config holds tool-wide defaults.
type Config struct {
	SourceFile string      `yaml:"source_file"`
	LogLevel   string      `yaml:"log_level"`
	Add        AddDefaults `yaml:"add"`
}

// AddDefaults apply to new sources when the corresponding add flag is not
// given.
type AddDefaults struct {
	Unpack          *bool  `yaml:"unpack"`
	ShortHashLength int    `yaml:"short_hash_length"`
	TagPrefix       string `yaml:"tag_prefix"`
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads and validates a config file. A missing file is not an error:
// it yields the zero config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &cfg, nil
}

// Validate checks a Config for semantic correctness. Returns a list of
// validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.LogLevel != "" {
		if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
			errs = append(errs, fmt.Sprintf("log_level: %s", err))
		}
	}

	if cfg.Add.ShortHashLength < 0 {
		errs = append(errs, "add.short_hash_length must not be negative")
	}

	return errs
}
