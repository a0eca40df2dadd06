// Package config provides configuration loading and management for voxutil.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voxutil/pkg/difference"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Region extraction parameters
	Region struct {
		// Isotropic expands the bounding box by its longest axis on every axis
		Isotropic bool `yaml:"isotropic"`
	} `yaml:"region"`

	// Comparison parameters
	Comparison struct {
		// Threshold is the minimum difference for two samples to differ
		Threshold float64 `yaml:"threshold"`

		// Radius is the distance searched for a matching sample
		Radius int `yaml:"radius"`

		// PixelTolerance is the number of differing samples allowed before a
		// comparison fails
		PixelTolerance int `yaml:"pixelTolerance"`
	} `yaml:"comparison"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// PreviewDir is where JPEG previews are written; empty disables them
		PreviewDir string `yaml:"previewDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Region.Isotropic = true

	cfg.Comparison.Threshold = 0
	cfg.Comparison.Radius = 0
	cfg.Comparison.PixelTolerance = difference.DefaultPixelTolerance

	cfg.Output.Verbose = false
	cfg.Output.PreviewDir = ""

	return cfg
}

// Tolerance converts the comparison section into a difference configuration
func (c *Config) Tolerance() difference.ToleranceConfig {
	return difference.ToleranceConfig{
		Threshold:      c.Comparison.Threshold,
		Radius:         c.Comparison.Radius,
		PixelTolerance: c.Comparison.PixelTolerance,
	}
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if err := c.Tolerance().Validate(); err != nil {
		return err
	}
	if c.Comparison.PixelTolerance < 0 {
		return fmt.Errorf("pixelTolerance must be non-negative, got %d", c.Comparison.PixelTolerance)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
