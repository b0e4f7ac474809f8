package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the name of the project configuration file.
const FileName = "imgset.yaml"

// ErrNotFound is returned by Discover when no configuration file exists in
// the start directory or any of its parents.
var ErrNotFound = errors.New("no " + FileName + " found")

// Discover searches start and its parent directories for imgset.yaml and
// returns the first path found.
func Discover(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("searching from %s: %w", start, ErrNotFound)
		}
		dir = parent
	}
}
