// Package emit names and persists resolved variants as build artifacts.
package emit

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/bianoble/imgset/internal/format"
	"github.com/bianoble/imgset/internal/naming"
	"github.com/bianoble/imgset/internal/resolve"
	"github.com/bianoble/imgset/internal/sandbox"
)

// DefaultName is the default artifact name template.
const DefaultName = "[hash][scale].[ext]"

// hashLen is the number of hex digits substituted for [hash].
const hashLen = 20

// Options configures artifact naming and placement.
type Options struct {
	// Dir is the output root on disk. Every artifact is written below it.
	Dir string
	// Path is a slash-separated prefix for artifacts inside Dir.
	Path string
	// PublicPath is prepended to file names to build public URLs. When empty
	// the URL is the artifact path below Dir, rooted at "/".
	PublicPath string
	// Name is the file name template. Supported placeholders are [name],
	// [path], [hash], [ext] and [scale].
	Name string
	// DryRun computes artifacts without writing them.
	DryRun bool
}

// Artifact is a persisted variant or module.
type Artifact struct {
	// Path is slash-separated and relative to the output root.
	Path     string
	URL      string
	Scale    int
	MimeType string
	Size     int
	// Changed reports whether the file on disk was created or modified, or
	// in a dry run whether it would be.
	Changed bool
}

// Emitter writes artifacts below an output root.
type Emitter struct {
	opts Options
	log  *slog.Logger
}

// New returns an Emitter. A nil logger discards output.
func New(opts Options, log *slog.Logger) *Emitter {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Emitter{opts: opts, log: log}
}

// FileName expands the name template for v. rel is the slash-separated path
// of the asset's source relative to the source root.
func (e *Emitter) FileName(rel string, v resolve.Variant) (string, error) {
	parsed, err := naming.Parse(rel)
	if err != nil {
		return "", err
	}

	ext := parsed.Ext
	if v.Derived {
		m, ok := format.ModernByMime(v.MimeType)
		if !ok {
			return "", fmt.Errorf("no extension for derived type %s", v.MimeType)
		}
		ext = m.Ext
	}

	dir := strings.ReplaceAll(parsed.Dir, `\`, "/")
	if dir != "" {
		dir += "/"
	}

	name := strings.NewReplacer(
		"[name]", parsed.Base,
		"[path]", dir,
		"[hash]", digest.FromBytes(v.Bytes).Encoded()[:hashLen],
		"[ext]", ext,
		"[scale]", naming.Suffix(v.Scale),
	).Replace(e.opts.Name)

	if name == "" || path.IsAbs(name) || strings.HasPrefix(path.Clean(name), "../") {
		return "", fmt.Errorf("artifact name %q for %s is not a relative path", name, rel)
	}
	return path.Clean(name), nil
}

// URL returns the public reference for an artifact named fileName.
func (e *Emitter) URL(fileName string) string {
	if e.opts.PublicPath != "" {
		return strings.TrimSuffix(e.opts.PublicPath, "/") + "/" + fileName
	}
	return "/" + e.outputPath(fileName)
}

func (e *Emitter) outputPath(fileName string) string {
	if e.opts.Path == "" {
		return fileName
	}
	return path.Join(e.opts.Path, fileName)
}

// Variant persists v and returns its artifact.
func (e *Emitter) Variant(rel string, v resolve.Variant) (Artifact, error) {
	fileName, err := e.FileName(rel, v)
	if err != nil {
		return Artifact{}, err
	}

	a := Artifact{
		Path:     e.outputPath(fileName),
		URL:      e.URL(fileName),
		Scale:    v.Scale,
		MimeType: v.MimeType,
		Size:     len(v.Bytes),
	}
	if a.Changed, err = e.write(a.Path, v.Bytes); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Module persists generated module source at modulePath, a slash-separated
// path relative to the output root.
func (e *Emitter) Module(modulePath string, src []byte) (Artifact, error) {
	a := Artifact{Path: modulePath, Size: len(src)}
	changed, err := e.write(modulePath, src)
	if err != nil {
		return Artifact{}, err
	}
	a.Changed = changed
	return a, nil
}

// DryRun reports whether the Emitter only plans writes.
func (e *Emitter) DryRun() bool {
	return e.opts.DryRun
}

func (e *Emitter) write(rel string, data []byte) (bool, error) {
	if e.opts.DryRun {
		target, err := sandbox.Resolve(e.opts.Dir, filepath.FromSlash(rel))
		if err != nil {
			return false, fmt.Errorf("writing %s: %w", rel, err)
		}
		existing, err := os.ReadFile(target)
		return err != nil || !bytes.Equal(existing, data), nil
	}
	changed, err := sandbox.WriteFile(e.opts.Dir, filepath.FromSlash(rel), data, 0644)
	if err != nil {
		return false, fmt.Errorf("writing %s: %w", rel, err)
	}
	if changed {
		e.log.Debug("wrote artifact", "path", rel, "bytes", len(data))
	}
	return changed, nil
}
