// Package sandbox confines generated files to an output root.
package sandbox

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned for paths that resolve outside the root.
var ErrEscapesRoot = errors.New("path escapes output root")

// Resolve returns the absolute path of rel inside root after following
// symlinks. Neither root nor rel need to exist yet.
func Resolve(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %w", rel, ErrEscapesRoot)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving output root: %w", err)
	}
	realRoot, err := resolveExisting(filepath.Clean(absRoot))
	if err != nil {
		return "", fmt.Errorf("resolving output root symlinks: %w", err)
	}

	resolved, err := resolveExisting(filepath.Join(realRoot, rel))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", rel, err)
	}

	// Trailing separator keeps "out2" from matching root "out".
	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%s resolves to %s: %w", rel, resolved, ErrEscapesRoot)
	}
	return resolved, nil
}

// resolveExisting follows symlinks along the longest existing prefix of path
// and appends the rest unchanged.
func resolveExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		return path, nil
	}
	parent, err := resolveExisting(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, base), nil
}

// WriteFile atomically writes content to rel inside root. It reports false
// without touching the file when the existing content is identical.
func WriteFile(root, rel string, content []byte, perm os.FileMode) (bool, error) {
	target, err := Resolve(root, rel)
	if err != nil {
		return false, err
	}

	if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(dir, ".imgset-*.tmp")
	if err != nil {
		return false, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return false, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return false, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return false, fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return false, fmt.Errorf("renaming temp file to %s: %w", target, err)
	}

	success = true
	return true, nil
}

// Remove deletes rel inside root and then any parent directories it leaves
// empty, stopping at root.
func Remove(root, rel string) error {
	target, err := Resolve(root, rel)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		return err
	}

	realRoot, err := Resolve(root, ".")
	if err != nil {
		return err
	}
	for dir := filepath.Dir(target); dir != realRoot && strings.HasPrefix(dir, realRoot); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}
