package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bianoble/imgset/internal/manifest"
	"github.com/bianoble/imgset/internal/sandbox"
)

// PruneEngine removes artifacts earlier builds wrote that the latest build no
// longer produces.
type PruneEngine struct {
	OutputDir string
	Log       *slog.Logger
}

// PruneOptions configures a prune operation.
type PruneOptions struct {
	DryRun bool
}

// Prune removes every stale path recorded in m. Paths that could not be
// removed are returned in Kept so the caller can keep tracking them.
func (e *PruneEngine) Prune(ctx context.Context, m *manifest.Manifest, opts PruneOptions) (*PruneResult, error) {
	result := &PruneResult{}

	for _, p := range m.Stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		// A later build may have produced the same file again.
		if m.Owns(p) {
			continue
		}

		if opts.DryRun {
			result.Removed = append(result.Removed, FileAction{Path: p, Action: "planned"})
			result.Kept = append(result.Kept, p)
			continue
		}

		err := sandbox.Remove(e.OutputDir, filepath.FromSlash(p))
		switch {
		case err == nil:
			result.Removed = append(result.Removed, FileAction{Path: p, Action: "removed"})
		case errors.Is(err, fs.ErrNotExist):
			result.Removed = append(result.Removed, FileAction{Path: p, Action: "missing"})
		default:
			e.logger().Warn("could not remove stale artifact", "path", p, "err", err)
			result.Errors = append(result.Errors, AssetError{Asset: p, Err: err})
			result.Kept = append(result.Kept, p)
		}
	}

	return result, nil
}

func (e *PruneEngine) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}
