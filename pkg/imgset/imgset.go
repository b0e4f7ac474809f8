// Package imgset provides the public Go library API for imgset.
//
// imgset turns source images into density and format variant sets: for every
// image it finds the @2x/@3x siblings, derives AVIF and WebP versions of
// raster originals, writes the artifacts and generates a small module that
// describes them.
//
// # Basic Usage
//
//	client, err := imgset.New(imgset.Options{
//	    ConfigPath: "/path/to/project/imgset.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Build every asset and record the outputs in the manifest
//	result, err := client.Build(ctx, imgset.BuildOptions{})
//
//	// Remove outputs the latest build no longer produces
//	pruned, err := client.Prune(ctx, imgset.PruneOptions{})
package imgset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bianoble/imgset/internal/cache"
	"github.com/bianoble/imgset/internal/codec"
	"github.com/bianoble/imgset/internal/config"
	"github.com/bianoble/imgset/internal/convert"
	"github.com/bianoble/imgset/internal/descriptor"
	"github.com/bianoble/imgset/internal/emit"
	"github.com/bianoble/imgset/internal/engine"
	"github.com/bianoble/imgset/internal/manifest"
	"github.com/bianoble/imgset/internal/probe"
	"github.com/bianoble/imgset/internal/resolve"
	"github.com/bianoble/imgset/internal/watch"
)

// BuildOptions configures a build operation.
type BuildOptions struct {
	// DryRun reports what would be written without touching the output
	// directory or the manifest.
	DryRun   bool
	FailFast bool
	// Only restricts the build to the listed primary paths, relative to the
	// source directory. Assets not rebuilt keep their manifest entries.
	Only []string
}

// PruneOptions configures a prune operation.
type PruneOptions struct {
	DryRun bool
}

// Builder builds every asset of a project.
type Builder interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
}

// Pruner removes artifacts that earlier builds wrote and the latest build no
// longer produces.
type Pruner interface {
	Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error)
}

// Resolver resolves a single image without writing anything.
type Resolver interface {
	Resolve(ctx context.Context, file string) (*AssetResult, error)
}

// Options configures an imgset client.
type Options struct {
	// ProjectRoot is the directory holding the manifest.
	// If empty, defaults to the directory containing ConfigPath.
	ProjectRoot string

	// ConfigPath is the path to the config file. Default: "imgset.yaml".
	ConfigPath string

	// ManifestPath is the path to the build manifest.
	// Default: ".imgset/manifest.yaml" under ProjectRoot.
	ManifestPath string

	// CacheDir is the conversion cache directory. It overrides cache_dir in
	// the config; if both are empty, uses the default (~/.cache/imgset).
	CacheDir string

	// Concurrency overrides the config's concurrency when positive.
	Concurrency int

	// Codec encodes derived formats. Default: codec.Native.
	Codec codec.Codec

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Client is the main entry point for the imgset library.
// It implements Builder, Pruner and Resolver.
type Client struct {
	projectRoot  string
	configPath   string
	manifestPath string
	cacheDir     string
	concurrency  int
	codec        codec.Codec
	log          *slog.Logger
}

// New creates a new imgset Client. The config file is read by each
// operation, so edits between calls are picked up.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.FileName
	}
	cfgPath, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	root := opts.ProjectRoot
	if root == "" {
		root = filepath.Dir(cfgPath)
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = filepath.Join(root, filepath.FromSlash(manifest.DefaultPath))
	}
	if opts.Codec == nil {
		opts.Codec = codec.Native{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		projectRoot:  root,
		configPath:   cfgPath,
		manifestPath: opts.ManifestPath,
		cacheDir:     opts.CacheDir,
		concurrency:  opts.Concurrency,
		codec:        opts.Codec,
		log:          opts.Logger,
	}, nil
}

// ConfigPath returns the absolute path of the config file.
func (c *Client) ConfigPath() string {
	return c.configPath
}

// ManifestPath returns the path of the build manifest.
func (c *Client) ManifestPath() string {
	return c.manifestPath
}

func (c *Client) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// loadManifest returns the previous manifest, or an empty one before the
// first build.
func (c *Client) loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.Load(c.manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &manifest.Manifest{Version: 1}, nil
	}
	return m, err
}

func (c *Client) resolveCacheDir(cfg *config.Config) string {
	switch {
	case c.cacheDir != "":
		return c.cacheDir
	case cfg.CacheDir != "":
		return config.Abs(c.configPath, cfg.CacheDir)
	default:
		return cache.DefaultDir()
	}
}

// openCache opens the conversion cache. A cache that cannot be opened only
// disables caching.
func (c *Client) openCache(cfg *config.Config) *cache.Cache {
	dir := c.resolveCacheDir(cfg)
	ch, err := cache.New(dir)
	if err != nil {
		c.log.Warn("conversion cache unavailable, converting without it", "dir", dir, "err", err)
		return nil
	}
	return ch
}

func (c *Client) buildEngine(cfg *config.Config, dryRun bool) *engine.BuildEngine {
	opts := []convert.Option{convert.WithLogger(c.log)}
	if ch := c.openCache(cfg); ch != nil {
		opts = append(opts, convert.WithStore(ch))
	}

	concurrency := cfg.Concurrency
	if c.concurrency > 0 {
		concurrency = c.concurrency
	}
	classPath := cfg.Module.ClassPath
	if classPath == "" {
		classPath = descriptor.DefaultClassPath
	}
	outDir := c.outputDir(cfg)

	return &engine.BuildEngine{
		Resolver: &resolve.Resolver{
			Converter: convert.New(c.codec, opts...),
			FS:        probe.OSFS{},
			Formats:   cfg.Formats,
			Log:       c.log,
		},
		Emitter: emit.New(emit.Options{
			Dir:        outDir,
			Path:       cfg.Output.Path,
			PublicPath: cfg.Output.PublicPath,
			Name:       cfg.Output.Name,
			DryRun:     dryRun,
		}, c.log),
		SourceDir:   c.sourceDir(cfg),
		OutputDir:   outDir,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		Scalings:    cfg.Scalings,
		Module:      descriptor.ModuleOptions{ESModule: cfg.Module.ESModule, ClassPath: classPath},
		ModuleExt:   cfg.Module.Extension,
		Concurrency: concurrency,
		Log:         c.log,
	}
}

func (c *Client) sourceDir(cfg *config.Config) string {
	return config.Abs(c.configPath, cfg.SourceDir)
}

func (c *Client) outputDir(cfg *config.Config) string {
	return config.Abs(c.configPath, cfg.Output.Dir)
}

// Build builds every asset and, unless opts.DryRun is set, records the
// outputs in the manifest. The manifest is also written when the build stops
// early, keeping the entries of assets that were not rebuilt.
func (c *Client) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	prev, err := c.loadManifest()
	if err != nil {
		return nil, err
	}

	eng := c.buildEngine(cfg, opts.DryRun)
	result, buildErr := eng.Build(ctx, engine.BuildOptions{FailFast: opts.FailFast, Only: opts.Only})
	if result == nil || opts.DryRun {
		return result, buildErr
	}

	next := engine.NextManifest(prev, result, len(opts.Only) > 0 || buildErr != nil)
	if err := manifest.Save(c.manifestPath, next); err != nil {
		return result, errors.Join(buildErr, err)
	}
	return result, buildErr
}

// Prune removes the stale artifacts recorded in the manifest. Paths that
// could not be removed stay recorded for the next prune.
func (c *Client) Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := c.loadManifest()
	if err != nil {
		return nil, err
	}

	eng := &engine.PruneEngine{OutputDir: c.outputDir(cfg), Log: c.log}
	result, err := eng.Prune(ctx, m, engine.PruneOptions{DryRun: opts.DryRun})
	if err != nil || opts.DryRun || len(m.Stale) == 0 {
		return result, err
	}

	m.Stale = result.Kept
	if err := manifest.Save(c.manifestPath, m); err != nil {
		return result, err
	}
	return result, nil
}

// Resolve resolves the asset at file and returns its variants, descriptor and
// the artifacts a build would write. Nothing is written. file must be inside
// the configured source directory.
func (c *Client) Resolve(ctx context.Context, file string) (*AssetResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", file, err)
	}
	srcDir := c.sourceDir(cfg)
	rel, err := filepath.Rel(srcDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is outside the source directory %s", file, srcDir)
	}

	return c.buildEngine(cfg, true).BuildAsset(ctx, filepath.ToSlash(rel))
}

// Info gathers information about the tool, its configuration and cache.
// A missing or invalid config is reported in the result rather than failing.
func (c *Client) Info(version string) *InfoResult {
	cfg, err := c.loadConfig()
	if err != nil {
		c.log.Debug("config unavailable", "path", c.configPath, "err", err)
		cfg = nil
	}

	var ch *cache.Cache
	if cfg != nil {
		ch = c.openCache(cfg)
	} else if opened, err := cache.New(c.resolveCacheDir(config.Default())); err == nil {
		ch = opened
	}

	m, err := c.loadManifest()
	if err != nil {
		c.log.Debug("manifest unavailable", "path", c.manifestPath, "err", err)
		m = nil
	}

	return engine.Info(version, cfg, ch, m, c.configPath, c.manifestPath)
}

// CleanCache removes every conversion cache entry and returns the cache
// directory that was cleaned.
func (c *Client) CleanCache() (string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		cfg = config.Default()
	}
	dir := c.resolveCacheDir(cfg)
	ch, err := cache.New(dir)
	if err != nil {
		return dir, fmt.Errorf("opening cache: %w", err)
	}
	return dir, ch.Clean()
}

// Watch builds every asset, then rebuilds whenever a matching source file
// changes until ctx is cancelled. report is called after every build.
func (c *Client) Watch(ctx context.Context, opts BuildOptions, report func(*BuildResult, error)) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if report == nil {
		report = func(*BuildResult, error) {}
	}

	rebuild := func(ctx context.Context) {
		result, err := c.Build(ctx, BuildOptions{DryRun: opts.DryRun, FailFast: opts.FailFast})
		if ctx.Err() == nil {
			report(result, err)
		}
	}
	rebuild(ctx)
	if ctx.Err() != nil {
		return nil
	}

	srcDir := c.sourceDir(cfg)
	ignore := append([]string(nil), cfg.Exclude...)
	if rel, err := filepath.Rel(srcDir, c.outputDir(cfg)); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		ignore = append(ignore, filepath.ToSlash(rel)+"/**")
	}

	w, err := watch.New(watch.Config{
		Dir:      srcDir,
		Patterns: cfg.Include,
		Ignore:   ignore,
		Log:      c.log,
		OnChange: func(ctx context.Context, changed []string) error {
			c.log.Info("rebuilding", "changed", len(changed))
			rebuild(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
