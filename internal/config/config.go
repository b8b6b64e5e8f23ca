// Package config loads phpbundle settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".phpbundle.yaml"

// Duplicate policies for top-level names declared by more than one file.
const (
	DuplicatesKeep  = "keep"
	DuplicatesError = "error"
)

const defaultMaxFileSize = 1_000_000 // 1 MB

// Config represents the bundler configuration.
type Config struct {
	Source      string   `yaml:"source"`
	Output      string   `yaml:"output"`
	Keep        []string `yaml:"keep,omitempty"`
	KeepMagic   bool     `yaml:"keep_magic"`
	Exclude     []string `yaml:"exclude,omitempty"`
	MaxFileSize int      `yaml:"max_file_size"`
	Duplicates  string   `yaml:"duplicates"`
	Iterate     bool     `yaml:"iterate"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Source:      "src",
		Output:      "index.php",
		MaxFileSize: defaultMaxFileSize,
		Duplicates:  DuplicatesKeep,
	}
}

// Load reads configuration from path, filling unset fields from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFileParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists. A missing file yields Default;
// any other failure is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Source == "" {
		return ErrSourceEmpty
	}
	if c.Output == "" {
		return ErrOutputEmpty
	}
	switch c.Duplicates {
	case DuplicatesKeep, DuplicatesError:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDuplicates, c.Duplicates)
	}
	if c.MaxFileSize < 0 {
		return ErrInvalidMaxFileSize
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
