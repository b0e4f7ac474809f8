// Package manifest reads and writes the build manifest.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the manifest location relative to the project root.
const DefaultPath = ".imgset/manifest.yaml"

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &m, nil
}

// Save writes a manifest atomically using a temp file and rename, creating
// the parent directory when needed.
func Save(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp manifest %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp manifest to %s: %w", path, err)
	}

	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest) []string {
	var errs []string

	if m.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d, only version 1 is supported", m.Version))
	}

	sources := make(map[string]bool)
	for i, a := range m.Assets {
		prefix := fmt.Sprintf("asset[%d]", i)
		if a.Source != "" {
			prefix = fmt.Sprintf("asset '%s'", a.Source)
		}

		if a.Source == "" {
			errs = append(errs, fmt.Sprintf("%s: 'source' is required", prefix))
		} else if sources[a.Source] {
			errs = append(errs, fmt.Sprintf("%s: duplicate asset", prefix))
		} else {
			sources[a.Source] = true
		}

		for j, art := range a.Artifacts {
			if art.Path == "" {
				errs = append(errs, fmt.Sprintf("%s: artifact[%d]: 'path' is required", prefix, j))
			} else if filepath.IsAbs(art.Path) || strings.HasPrefix(art.Path, "../") {
				errs = append(errs, fmt.Sprintf("%s: artifact[%d]: path '%s' must be relative to the output directory", prefix, j, art.Path))
			}
			if art.Scale <= 0 {
				errs = append(errs, fmt.Sprintf("%s: artifact[%d]: scale must be positive", prefix, j))
			}
		}
	}

	for i, p := range m.Stale {
		if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "../") {
			errs = append(errs, fmt.Sprintf("stale[%d]: invalid path '%s'", i, p))
		}
	}

	return errs
}
