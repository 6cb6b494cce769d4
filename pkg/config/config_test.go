package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the documented defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tracing.LengthThreshold != 6 {
		t.Errorf("Expected length threshold 6, got %d", cfg.Tracing.LengthThreshold)
	}
	if cfg.Tracing.Coverage != 0.98 {
		t.Errorf("Expected coverage 0.98, got %f", cfg.Tracing.Coverage)
	}
	if cfg.Tracing.Gap != 15 {
		t.Errorf("Expected gap 15, got %d", cfg.Tracing.Gap)
	}
	if cfg.Tracing.EraseRatio != 1.2 {
		t.Errorf("Expected erase ratio 1.2, got %f", cfg.Tracing.EraseRatio)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should be valid: %v", err)
	}
}

// TestLoadMissingFile verifies that a missing file yields the defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tracing != DefaultTracing() {
		t.Errorf("Expected default tracing parameters, got %+v", cfg.Tracing)
	}
}

// TestSaveAndLoad verifies that settings survive a save and load
func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Tracing.Coverage = 0.9
	cfg.Tracing.EraseRatio = 1.5
	cfg.Output.Render = true
	cfg.Output.RenderAxis = "x"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Tracing != cfg.Tracing {
		t.Errorf("Tracing mismatch: saved %+v, loaded %+v", cfg.Tracing, loaded.Tracing)
	}
	if !loaded.Output.Render || loaded.Output.RenderAxis != "x" {
		t.Errorf("Output settings not restored: %+v", loaded.Output)
	}
}

// TestPartialFile verifies that omitted keys keep their defaults
func TestPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("tracing:\n  coverage: 0.5\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tracing.Coverage != 0.5 {
		t.Errorf("Expected coverage 0.5, got %f", cfg.Tracing.Coverage)
	}
	if cfg.Tracing.LengthThreshold != 6 {
		t.Errorf("Expected default length threshold, got %d", cfg.Tracing.LengthThreshold)
	}
}

// TestValidate verifies rejection of out-of-range settings
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero coverage", func(c *Config) { c.Tracing.Coverage = 0 }},
		{"coverage above one", func(c *Config) { c.Tracing.Coverage = 1.5 }},
		{"shrinking erase ratio", func(c *Config) { c.Tracing.EraseRatio = 0.5 }},
		{"zero step", func(c *Config) { c.Tracing.StepSize = 0 }},
		{"zero length", func(c *Config) { c.Tracing.LengthThreshold = 0 }},
		{"bad axis", func(c *Config) { c.Output.RenderAxis = "w" }},
		{"render without file", func(c *Config) { c.Output.Render = true; c.Output.RenderFile = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestLoadInvalidYAML verifies parse errors are reported
func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("tracing: [1, 2"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}
