// Package config provides configuration loading and management for the nngp driver.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/lawlerem/staRVe/pkg/covariance"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Engine parameters
	Engine struct {
		// Workers bounds the goroutines used for per-block evaluation
		Workers int `yaml:"workers"`

		// Calibrate enables the one-time kernel reparameterisation at construction
		Calibrate bool `yaml:"calibrate"`

		// Seed for simulation; 0 uses the unseeded package-level source
		Seed uint64 `yaml:"seed"`
	} `yaml:"engine"`

	// Covariance kernel parameters, used when the problem file has none
	Kernel struct {
		// Model is one of exponential, matern32, matern52
		Model string `yaml:"model"`

		// Range is the kernel range parameter
		Range float64 `yaml:"range"`

		// MarginalSd is the marginal standard deviation of the field
		MarginalSd float64 `yaml:"marginalSd"`
	} `yaml:"kernel"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging on stderr
		Verbose bool `yaml:"verbose"`

		// Precision is the number of decimals printed for results
		Precision int `yaml:"precision"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Engine.Workers = runtime.NumCPU()
	cfg.Engine.Calibrate = true
	cfg.Engine.Seed = 0

	cfg.Kernel.Model = covariance.Exponential.String()
	cfg.Kernel.Range = 1.0
	cfg.Kernel.MarginalSd = 1.0

	cfg.Output.Verbose = false
	cfg.Output.Precision = 6

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1, got %d", c.Engine.Workers)
	}
	if _, err := covariance.ParseModel(c.Kernel.Model); err != nil {
		return fmt.Errorf("kernel.model: %w", err)
	}
	if c.Kernel.Range <= 0 || c.Kernel.MarginalSd <= 0 {
		return fmt.Errorf("kernel.range and kernel.marginalSd must be positive")
	}
	if c.Output.Precision < 0 {
		return fmt.Errorf("output.precision must not be negative, got %d", c.Output.Precision)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

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
	// Create directory if it doesn't exist
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
