package engine

import (
	"github.com/bianoble/imgset/internal/cache"
	"github.com/bianoble/imgset/internal/config"
	"github.com/bianoble/imgset/internal/format"
	"github.com/bianoble/imgset/internal/manifest"
)

// InfoResult holds tool information for the info command.
type InfoResult struct {
	Version      string
	ConfigPath   string
	ManifestPath string
	SourceDir    string
	OutputDir    string
	CacheDir     string
	CacheEntries int
	CacheSize    int64
	// CacheErr is set when the cache could not be opened or measured.
	CacheErr error
	Formats  []format.Modern
	Scalings []int
	Assets   int
	Stale    int
}

// Info gathers tool information. c and m may be nil.
func Info(version string, cfg *config.Config, c *cache.Cache, m *manifest.Manifest, configPath, manifestPath string) *InfoResult {
	r := &InfoResult{
		Version:      version,
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
	}

	if cfg != nil {
		r.SourceDir = config.Abs(configPath, cfg.SourceDir)
		r.OutputDir = config.Abs(configPath, cfg.Output.Dir)
		r.Formats = format.ModernFormats(cfg.Formats)
		r.Scalings = cfg.Scalings
	}

	if c != nil {
		r.CacheDir = c.Path()
		r.CacheEntries, r.CacheSize, r.CacheErr = c.Stats()
	}

	if m != nil {
		r.Assets = len(m.Assets)
		r.Stale = len(m.Stale)
	}

	return r
}
