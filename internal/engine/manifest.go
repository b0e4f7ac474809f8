package engine

import (
	"slices"

	"github.com/bianoble/imgset/internal/manifest"
)

// NextManifest returns the manifest describing result. Assets that failed,
// and with partial every asset that was not rebuilt, keep their entries from
// prev. Paths prev owned that the new manifest does not become stale.
func NextManifest(prev *manifest.Manifest, result *BuildResult, partial bool) *manifest.Manifest {
	next := &manifest.Manifest{Version: 1}

	built := make(map[string]bool, len(result.Assets))
	for _, ar := range result.Assets {
		built[ar.Source] = true
		next.Assets = append(next.Assets, assetEntry(ar))
	}

	if prev != nil {
		failed := make(map[string]bool, len(result.Errors))
		for _, ae := range result.Errors {
			failed[ae.Asset] = true
		}
		for _, a := range prev.Assets {
			if built[a.Source] {
				continue
			}
			if partial || failed[a.Source] {
				next.Assets = append(next.Assets, a)
			}
		}
	}
	slices.SortFunc(next.Assets, func(a, b manifest.Asset) int {
		switch {
		case a.Source < b.Source:
			return -1
		case a.Source > b.Source:
			return 1
		}
		return 0
	})

	if prev != nil {
		owned := make(map[string]bool)
		for _, p := range next.Paths() {
			owned[p] = true
		}
		var stale []string
		for _, p := range append(slices.Clone(prev.Stale), prev.Paths()...) {
			if !owned[p] {
				stale = append(stale, p)
			}
		}
		slices.Sort(stale)
		next.Stale = slices.Compact(stale)
	}

	return next
}

func assetEntry(ar AssetResult) manifest.Asset {
	a := manifest.Asset{
		Source: ar.Source,
		Module: ar.Module.Path,
		Width:  ar.Descriptor.Width,
		Height: ar.Descriptor.Height,
	}
	for _, art := range ar.Artifacts {
		a.Artifacts = append(a.Artifacts, manifest.Artifact{
			Path:  art.Path,
			URL:   art.URL,
			Scale: art.Scale,
			Type:  art.MimeType,
		})
	}
	return a
}
