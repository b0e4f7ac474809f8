package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bianoble/imgset/internal/naming"
)

// Asset is a logical image found on disk: its primary file and the density
// variants that sit next to it.
type Asset struct {
	// Primary is the slash-separated path of the lowest-scale file.
	Primary string
	Scales  []int
}

// Discover lists the assets below root matching include and none of
// exclude. Paths under skip (absolute, e.g. the output directory) are
// ignored. Files whose names cannot be parsed are returned as errors.
func Discover(root string, include, exclude []string, skip ...string) ([]Asset, []AssetError, error) {
	fsys := os.DirFS(root)

	var skipRel []string
	for _, s := range skip {
		if s == "" {
			continue
		}
		if rel, ok := within(root, s); ok {
			skipRel = append(skipRel, rel)
		}
	}

	matched := make(map[string]bool)
	for _, pattern := range include {
		err := doublestar.GlobWalk(fsys, pattern, func(p string, d fs.DirEntry) error {
			if d.IsDir() || skipped(p, skipRel) || excluded(p, exclude) {
				return nil
			}
			matched[p] = true
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil {
			return nil, nil, fmt.Errorf("matching %q in %s: %w", pattern, root, err)
		}
	}

	type group struct {
		primary string
		scale   int
		scales  []int
	}
	groups := make(map[string]*group)
	var errs []AssetError
	for p := range matched {
		parsed, err := naming.Parse(p)
		if err != nil {
			errs = append(errs, AssetError{Asset: p, Err: err})
			continue
		}
		key := parsed.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{primary: p, scale: parsed.Scale}
			groups[key] = g
		} else if parsed.Scale < g.scale {
			g.primary, g.scale = p, parsed.Scale
		}
		g.scales = append(g.scales, parsed.Scale)
	}

	assets := make([]Asset, 0, len(groups))
	for _, g := range groups {
		slices.Sort(g.scales)
		assets = append(assets, Asset{Primary: g.primary, Scales: g.scales})
	}
	slices.SortFunc(assets, func(a, b Asset) int { return strings.Compare(a.Primary, b.Primary) })
	slices.SortFunc(errs, func(a, b AssetError) int { return strings.Compare(a.Asset, b.Asset) })
	return assets, errs, nil
}

func excluded(p string, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func skipped(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// within returns target relative to root in slash form when it lies inside
// root.
func within(root, target string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
