package cache

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Cache is a durable key-value byte store rooted at a directory.
// Keys are content addressed, so an entry is written once and never
// overwritten; concurrent writers of the same key produce identical values.
type Cache struct {
	dir string
}

// New opens the Cache at dir, creating it if needed. It returns an error when
// the directory cannot be created or written to; callers decide whether that
// is fatal.
func New(dir string) (*Cache, error) {
	objDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}

	probe, err := os.CreateTemp(objDir, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("cache directory %s is not writable: %w", objDir, err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return &Cache{dir: dir}, nil
}

// DefaultDir returns the default cache directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/imgset.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "imgset")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return filepath.Join(os.TempDir(), "imgset-cache")
		}
		return filepath.Join("/tmp", "imgset-cache")
	}
	return filepath.Join(home, ".cache", "imgset")
}

// Key builds an entry key from a raw content hash and a format tag, e.g.
// "<base64url(sum)>.webp".
func Key(sum []byte, tag string) string {
	return base64.RawURLEncoding.EncodeToString(sum) + "." + tag
}

// Get retrieves an entry.
// Returns the content and true if found.
// Returns nil, false, nil if not cached.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	path, err := c.objectPath(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	return data, true, nil
}

// Put stores content under key.
// No-op if already cached.
func (c *Cache) Put(key string, content []byte) error {
	path, err := c.objectPath(key)
	if err != nil {
		return err
	}

	// Entries are immutable.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache subdirectory: %w", err)
	}

	// Atomic write: temp file + rename.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
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
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming cache temp file: %w", err)
	}

	success = true
	return nil
}

// Stats returns the number of entries and their total size in bytes.
func (c *Cache) Stats() (entries int, size int64, err error) {
	err = filepath.WalkDir(filepath.Join(c.dir, "objects"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries++
		size += info.Size()
		return nil
	})
	return entries, size, err
}

// Clean removes every entry and leaves an empty cache behind.
func (c *Cache) Clean() error {
	objDir := filepath.Join(c.dir, "objects")
	if err := os.RemoveAll(objDir); err != nil {
		return fmt.Errorf("removing cache entries: %w", err)
	}
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}
	return nil
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}

func (c *Cache) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	if len(key) < 2 {
		return filepath.Join(c.dir, "objects", key), nil
	}
	return filepath.Join(c.dir, "objects", key[:2], key), nil
}
