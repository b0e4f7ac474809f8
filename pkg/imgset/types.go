package imgset

import (
	"github.com/bianoble/imgset/internal/descriptor"
	"github.com/bianoble/imgset/internal/emit"
	"github.com/bianoble/imgset/internal/engine"
	"github.com/bianoble/imgset/internal/resolve"
)

// Type aliases re-export engine result types as the public API.

type FileAction = engine.FileAction
type AssetError = engine.AssetError
type AssetResult = engine.AssetResult
type BuildResult = engine.BuildResult
type PruneResult = engine.PruneResult
type InfoResult = engine.InfoResult
type Artifact = emit.Artifact
type Variant = resolve.Variant
type Descriptor = descriptor.Descriptor
