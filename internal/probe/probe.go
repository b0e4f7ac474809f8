// Package probe looks up sibling image files on disk.
package probe

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotRegular is returned by ReadRegular for directories, devices and other
// non-regular files.
var ErrNotRegular = errors.New("not a regular file")

// FS abstracts the filesystem operations used to probe variants.
type FS interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FS using the real operating system filesystem.
type OSFS struct{}

func (OSFS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (OSFS) ReadFile(path string) ([]byte, error)  { return os.ReadFile(path) }

// ReadRegular returns the content of path if it is a regular file.
// Absent files report an error satisfying errors.Is(err, fs.ErrNotExist).
func ReadRegular(fsys FS, path string) ([]byte, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
