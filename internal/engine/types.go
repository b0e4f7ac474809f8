package engine

import (
	"github.com/bianoble/imgset/internal/descriptor"
	"github.com/bianoble/imgset/internal/emit"
)

// FileAction represents an action taken on a single file during build or prune.
type FileAction struct {
	Path   string
	Action string // "written", "unchanged", "planned", "removed", "missing"
}

// AssetError represents an error associated with a specific asset.
type AssetError struct {
	Asset string
	Err   error
}

func (e AssetError) Error() string {
	return e.Asset + ": " + e.Err.Error()
}

func (e AssetError) Unwrap() error {
	return e.Err
}

// AssetResult is everything produced for one logical image.
type AssetResult struct {
	// Source is the slash-separated primary path relative to the source dir.
	Source     string
	Module     emit.Artifact
	Descriptor descriptor.Descriptor
	Artifacts  []emit.Artifact
}

// BuildResult holds the outcome of a build operation.
type BuildResult struct {
	Assets  []AssetResult
	Written []FileAction
	Skipped []FileAction
	Errors  []AssetError
}

// Failed reports whether any asset failed to build.
func (r *BuildResult) Failed() bool {
	return len(r.Errors) > 0
}

// PruneResult holds the outcome of a prune operation.
type PruneResult struct {
	Removed []FileAction
	Kept    []string
	Errors  []AssetError
}
