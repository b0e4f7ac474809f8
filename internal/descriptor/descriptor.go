// Package descriptor builds the responsive image descriptor consumed by the
// rendering layer.
package descriptor

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/bianoble/imgset/internal/dimension"
	"github.com/bianoble/imgset/internal/format"
)

// Ref is an emitted variant together with its public reference.
type Ref struct {
	Scale    int
	MimeType string
	URL      string
}

// Source is one entry of the descriptor's source list.
type Source struct {
	SrcSet string `json:"srcSet"`
	Type   string `json:"type"`
}

// Descriptor is the value exported by a generated image module.
type Descriptor struct {
	URI     string   `json:"uri"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Sources []Source `json:"sources"`
}

// Group is the set of refs sharing a mime type, in resolver order.
type Group struct {
	MimeType string
	Refs     []Ref
}

// Assemble builds the descriptor for primary from all of an asset's refs.
// size is the primary variant's logical size.
func Assemble(primary Ref, all []Ref, size dimension.Size) Descriptor {
	groups := GroupByType(all)
	sources := make([]Source, len(groups))
	for i, g := range groups {
		sources[i] = Source{SrcSet: SrcSet(g.Refs), Type: g.MimeType}
	}
	return Descriptor{
		URI:     primary.URL,
		Width:   size.Width,
		Height:  size.Height,
		Sources: sources,
	}
}

// GroupByType groups refs by mime type. Modern formats sort first in
// preference order; the remaining groups keep first-seen order.
func GroupByType(refs []Ref) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range refs {
		i, ok := index[r.MimeType]
		if !ok {
			i = len(groups)
			index[r.MimeType] = i
			groups = append(groups, Group{MimeType: r.MimeType})
		}
		groups[i].Refs = append(groups[i].Refs, r)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		return rank(a.MimeType) - rank(b.MimeType)
	})
	return groups
}

func rank(mimeType string) int {
	if p := format.Preference(mimeType); p >= 0 {
		return p
	}
	return math.MaxInt32
}

// SrcSet renders refs as a source-set attribute value, e.g.
// "/img/a.png 1x, /img/a@2x.png 2x".
func SrcSet(refs []Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.URL + " " + strconv.Itoa(r.Scale) + "x"
	}
	return strings.Join(parts, ", ")
}
