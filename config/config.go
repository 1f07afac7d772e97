// Package config handles grid build configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/achilleasa/gridtrace/log"
	"gopkg.in/yaml.v3"
)

// Config holds all build settings.
type Config struct {
	Grid    GridConfig    `yaml:"grid"`
	Device  DeviceConfig  `yaml:"device"`
	Logging LoggingConfig `yaml:"logging"`
}

// GridConfig controls the grid resolution heuristic.
type GridConfig struct {
	// Target average number of triangles per cell.
	Density float32 `yaml:"density"`

	// Upper bound for the number of cells along each axis.
	MaxAxisResolution uint32 `yaml:"max_axis_resolution"`
}

// DeviceConfig selects and tunes the compute device.
type DeviceConfig struct {
	// Select the first device whose name contains this value; empty
	// selects the first available device.
	Name string `yaml:"name"`

	// Number of work groups executed concurrently; 0 uses the device default.
	ComputeUnits int `yaml:"compute_units"`

	// Work group size used for kernel dispatches; 0 lets the device pick.
	LocalWorkSize int `yaml:"local_work_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config with the default build settings.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Density:           5,
			MaxAxisResolution: 512,
		},
		Logging: LoggingConfig{
			Level:      "notice",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads a YAML config file on top of the default settings. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that all settings are within their allowed ranges.
func (c *Config) Validate() error {
	var errs []error
	if !(c.Grid.Density > 0) {
		errs = append(errs, fmt.Errorf("grid.density must be positive; got %v", c.Grid.Density))
	}
	if c.Grid.MaxAxisResolution == 0 {
		errs = append(errs, errors.New("grid.max_axis_resolution must be at least 1"))
	}
	if c.Device.ComputeUnits < 0 {
		errs = append(errs, fmt.Errorf("device.compute_units must not be negative; got %d", c.Device.ComputeUnits))
	}
	if c.Device.LocalWorkSize < 0 {
		errs = append(errs, fmt.Errorf("device.local_work_size must not be negative; got %d", c.Device.LocalWorkSize))
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LogFileConfig returns the rotating file sink settings.
func (c *Config) LogFileConfig() log.FileConfig {
	return log.FileConfig{
		Path:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}
