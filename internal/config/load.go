// Package config loads and validates imgset.yaml.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Load reads and validates an imgset.yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates configuration data. name is used in errors.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", name, err)
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d, only version 1 is supported", cfg.Version))
	}

	if cfg.SourceDir == "" {
		errs = append(errs, "'source_dir' is required")
	}

	if len(cfg.Include) == 0 {
		errs = append(errs, "at least one 'include' pattern is required")
	}
	for i, p := range cfg.Include {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Sprintf("include[%d]: invalid pattern '%s'", i, p))
		}
	}
	for i, p := range cfg.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Sprintf("exclude[%d]: invalid pattern '%s'", i, p))
		}
	}

	if len(cfg.Scalings) == 0 {
		errs = append(errs, "at least one scaling is required")
	}
	for i, s := range cfg.Scalings {
		if s <= 0 {
			errs = append(errs, fmt.Sprintf("scalings[%d]: scale %d must be a positive integer", i, s))
		}
	}

	if cfg.Output.Dir == "" {
		errs = append(errs, "output: 'dir' is required")
	}
	if p := cfg.Output.Path; p != "" && (path.IsAbs(p) || strings.HasPrefix(path.Clean(p), "..")) {
		errs = append(errs, fmt.Sprintf("output: path '%s' must be relative to 'dir'", p))
	}
	if n := cfg.Output.Name; n != "" && !strings.Contains(n, "[ext]") {
		errs = append(errs, fmt.Sprintf("output: name '%s' must contain [ext]", n))
	}
	if n := cfg.Output.Name; n != "" && !strings.Contains(n, "[scale]") && !strings.Contains(n, "[hash]") {
		errs = append(errs, fmt.Sprintf("output: name '%s' must contain [scale] or [hash] so density variants do not collide", n))
	}

	if ext := cfg.Module.Extension; ext != "" && !strings.HasPrefix(ext, ".") {
		errs = append(errs, fmt.Sprintf("module: extension '%s' must start with '.'", ext))
	}

	if cfg.Concurrency < 0 {
		errs = append(errs, fmt.Sprintf("concurrency %d must not be negative", cfg.Concurrency))
	}

	return errs
}

// Abs resolves p against the directory of the config file at cfgPath.
func Abs(cfgPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(cfgPath), p)
}
