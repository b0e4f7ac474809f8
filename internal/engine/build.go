package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bianoble/imgset/internal/descriptor"
	"github.com/bianoble/imgset/internal/dimension"
	"github.com/bianoble/imgset/internal/emit"
	"github.com/bianoble/imgset/internal/resolve"
)

// BuildEngine orchestrates the build operation: discover assets, resolve
// their variants, emit artifacts and generate a module per asset.
type BuildEngine struct {
	Resolver *resolve.Resolver
	Emitter  *emit.Emitter
	// SourceDir is the directory asset paths are relative to.
	SourceDir string
	// OutputDir is skipped during discovery.
	OutputDir   string
	Include     []string
	Exclude     []string
	Scalings    []int
	Module      descriptor.ModuleOptions
	ModuleExt   string
	Concurrency int
	Log         *slog.Logger
}

// BuildOptions configures a build operation.
type BuildOptions struct {
	// FailFast stops at the first asset error instead of collecting them.
	FailFast bool
	// Only restricts the build to the listed source-relative paths.
	Only []string
}

// Build discovers and builds every asset. Per-asset failures are collected in
// the result; the returned error is reserved for failures that stop the whole
// build (discovery, cancellation, or the first asset error with FailFast).
func (e *BuildEngine) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	assets, parseErrs, err := Discover(e.SourceDir, e.Include, e.Exclude, e.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("discovering assets: %w", err)
	}
	if len(opts.Only) > 0 {
		assets = slices.DeleteFunc(assets, func(a Asset) bool { return !slices.Contains(opts.Only, a.Primary) })
	}

	result := &BuildResult{Errors: parseErrs}
	if opts.FailFast && len(parseErrs) > 0 {
		return result, parseErrs[0]
	}

	slots := make([]*AssetResult, len(assets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit())
	for i, a := range assets {
		g.Go(func() error {
			ar, err := e.BuildAsset(gctx, a.Primary)
			if err != nil {
				ae := AssetError{Asset: a.Primary, Err: err}
				if opts.FailFast || errors.Is(err, context.Canceled) {
					return ae
				}
				e.logger().Warn("asset failed", "asset", a.Primary, "err", err)
				mu.Lock()
				result.Errors = append(result.Errors, ae)
				mu.Unlock()
				return nil
			}
			slots[i] = ar
			return nil
		})
	}
	waitErr := g.Wait()

	for _, ar := range slots {
		if ar == nil {
			continue
		}
		result.Assets = append(result.Assets, *ar)
		for _, art := range append(slices.Clone(ar.Artifacts), ar.Module) {
			e.record(result, art)
		}
	}
	slices.SortFunc(result.Errors, func(a, b AssetError) int { return strings.Compare(a.Asset, b.Asset) })

	if waitErr != nil {
		var ae AssetError
		if errors.As(waitErr, &ae) {
			result.Errors = append(result.Errors, ae)
		}
		return result, waitErr
	}
	return result, nil
}

func (e *BuildEngine) record(result *BuildResult, art emit.Artifact) {
	switch {
	case art.Changed && e.Emitter.DryRun():
		result.Written = append(result.Written, FileAction{Path: art.Path, Action: "planned"})
	case art.Changed:
		result.Written = append(result.Written, FileAction{Path: art.Path, Action: "written"})
	default:
		result.Skipped = append(result.Skipped, FileAction{Path: art.Path, Action: "unchanged"})
	}
}

// BuildAsset builds a single asset. rel is the slash-separated path of its
// primary file relative to SourceDir.
func (e *BuildEngine) BuildAsset(ctx context.Context, rel string) (*AssetResult, error) {
	abs := filepath.Join(e.SourceDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	variants, err := e.Resolver.Resolve(ctx, abs, data, e.Scalings)
	if err != nil {
		return nil, err
	}

	ar := &AssetResult{Source: rel}
	refs := make([]descriptor.Ref, 0, len(variants))
	for _, v := range variants {
		art, err := e.Emitter.Variant(rel, v)
		if err != nil {
			return nil, err
		}
		ar.Artifacts = append(ar.Artifacts, art)
		refs = append(refs, descriptor.Ref{Scale: v.Scale, MimeType: v.MimeType, URL: art.URL})
	}

	primary := variants[0]
	size, err := dimension.Probe(primary.Bytes, primary.MimeType, primary.Scale)
	if errors.Is(err, dimension.ErrUnsupported) {
		e.logger().Warn("image size unknown", "asset", rel, "type", primary.MimeType)
	} else if err != nil {
		return nil, err
	}

	ar.Descriptor = descriptor.Assemble(refs[0], refs, size)
	src, err := descriptor.RenderModule(e.Module, ar.Descriptor)
	if err != nil {
		return nil, err
	}
	if ar.Module, err = e.Emitter.Module(ModulePath(rel, e.ModuleExt), src); err != nil {
		return nil, err
	}

	e.logger().Debug("built asset", "asset", rel, "variants", len(variants))
	return ar, nil
}

// ModulePath returns where the module for the asset at rel is written,
// relative to the output root.
func ModulePath(rel, ext string) string {
	if ext == "" {
		ext = ".js"
	}
	return rel + ext
}

func (e *BuildEngine) limit() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (e *BuildEngine) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}
