// Package config provides configuration loading and management for neurontrace.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Tracing holds the parameters of the backtracking tracer
type Tracing struct {
	// LengthThreshold is the node count a branch must exceed for band-limited
	// erasure, and the node count below which leaf branches may be pruned
	LengthThreshold int `yaml:"lengthThreshold"`

	// Coverage is the fraction of foreground voxels that must be explained
	// before tracing stops
	Coverage float64 `yaml:"coverage"`

	// Gap is the tolerated number of consecutive background steps. It is
	// tracked and logged but does not stop a branch.
	Gap int `yaml:"gap"`

	// EraseRatio inflates each node's radius when erasing the traced region
	EraseRatio float64 `yaml:"eraseRatio"`

	// StepSize is the fixed RK4 integration step in voxels
	StepSize float64 `yaml:"stepSize"`

	// SomaRatio scales the soma radius to give the soma-reached distance
	SomaRatio float64 `yaml:"somaRatio"`

	// OnlineConfidence is the running foreground ratio below which a branch
	// is abandoned mid-trace
	OnlineConfidence float64 `yaml:"onlineConfidence"`

	// ForwardConfidence is the whole-path foreground ratio a branch must
	// exceed to be kept
	ForwardConfidence float64 `yaml:"forwardConfidence"`

	// PruneConfidence is the mean local density below which short leaves are pruned
	PruneConfidence float64 `yaml:"pruneConfidence"`

	// ReachSteps is how many extra steps a branch may take inside traced
	// territory while looking for a node to connect to
	ReachSteps int `yaml:"reachSteps"`

	// StaleWindow is how many steps back the orbit check looks
	StaleWindow int `yaml:"staleWindow"`

	// RepairRadius is the matching radius used to reconnect pending branch ends
	RepairRadius float64 `yaml:"repairRadius"`

	// MaxSteps caps the length of a single branch; zero means the voxel count
	MaxSteps int `yaml:"maxSteps"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	Tracing Tracing `yaml:"tracing"`

	// Output parameters
	Output struct {
		// Render enables drawing accepted branches to RenderFile
		Render bool `yaml:"render"`

		// RenderFile is the image the rendered projection is saved to
		RenderFile string `yaml:"renderFile"`

		// RenderAxis is the axis the rendering projects along (x, y or z)
		RenderAxis string `yaml:"renderAxis"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultTracing returns the default tracer parameters
func DefaultTracing() Tracing {
	return Tracing{
		LengthThreshold:   6,
		Coverage:          0.98,
		Gap:               15,
		EraseRatio:        1.2,
		StepSize:          1,
		SomaRatio:         1.5,
		OnlineConfidence:  0.25,
		ForwardConfidence: 0.5,
		PruneConfidence:   0.5,
		ReachSteps:        20,
		StaleWindow:       15,
		RepairRadius:      3,
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{Tracing: DefaultTracing()}

	cfg.Output.Render = false
	cfg.Output.RenderFile = "trace.png"
	cfg.Output.RenderAxis = "z"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that every setting is usable
func (t Tracing) Validate() error {
	switch {
	case t.LengthThreshold < 1:
		return fmt.Errorf("%w: lengthThreshold must be at least 1, got %d", ErrInvalidConfig, t.LengthThreshold)
	case t.Coverage <= 0 || t.Coverage > 1:
		return fmt.Errorf("%w: coverage must be in (0, 1], got %g", ErrInvalidConfig, t.Coverage)
	case t.Gap < 0:
		return fmt.Errorf("%w: gap must not be negative, got %d", ErrInvalidConfig, t.Gap)
	case t.EraseRatio < 1:
		return fmt.Errorf("%w: eraseRatio must be at least 1, got %g", ErrInvalidConfig, t.EraseRatio)
	case t.StepSize <= 0:
		return fmt.Errorf("%w: stepSize must be positive, got %g", ErrInvalidConfig, t.StepSize)
	case t.SomaRatio <= 0:
		return fmt.Errorf("%w: somaRatio must be positive, got %g", ErrInvalidConfig, t.SomaRatio)
	case t.OnlineConfidence < 0 || t.OnlineConfidence > 1:
		return fmt.Errorf("%w: onlineConfidence must be in [0, 1], got %g", ErrInvalidConfig, t.OnlineConfidence)
	case t.ForwardConfidence < 0 || t.ForwardConfidence > 1:
		return fmt.Errorf("%w: forwardConfidence must be in [0, 1], got %g", ErrInvalidConfig, t.ForwardConfidence)
	case t.PruneConfidence < 0 || t.PruneConfidence > 1:
		return fmt.Errorf("%w: pruneConfidence must be in [0, 1], got %g", ErrInvalidConfig, t.PruneConfidence)
	case t.ReachSteps < 1:
		return fmt.Errorf("%w: reachSteps must be at least 1, got %d", ErrInvalidConfig, t.ReachSteps)
	case t.StaleWindow < 1:
		return fmt.Errorf("%w: staleWindow must be at least 1, got %d", ErrInvalidConfig, t.StaleWindow)
	case t.RepairRadius <= 0:
		return fmt.Errorf("%w: repairRadius must be positive, got %g", ErrInvalidConfig, t.RepairRadius)
	case t.MaxSteps < 0:
		return fmt.Errorf("%w: maxSteps must not be negative, got %d", ErrInvalidConfig, t.MaxSteps)
	}
	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	switch c.Output.RenderAxis {
	case "x", "y", "z":
	default:
		return fmt.Errorf("%w: renderAxis must be x, y or z, got %q", ErrInvalidConfig, c.Output.RenderAxis)
	}
	if c.Output.Render && c.Output.RenderFile == "" {
		return fmt.Errorf("%w: renderFile is required when render is enabled", ErrInvalidConfig)
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

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults so omitted keys keep their default
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
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

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
