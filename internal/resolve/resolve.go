// Package resolve expands a single image reference into every density and
// format variant available for it.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/bianoble/imgset/internal/convert"
	"github.com/bianoble/imgset/internal/format"
	"github.com/bianoble/imgset/internal/naming"
	"github.com/bianoble/imgset/internal/probe"
)

// Variant is one physical or derived image of a logical asset.
// No two variants of the same asset share both Scale and MimeType.
type Variant struct {
	Scale    int
	MimeType string
	Bytes    []byte
	// SourcePath is the file the variant was read or derived from.
	SourcePath string
	// Derived is set for variants produced by conversion.
	Derived bool
}

// Resolver resolves image references into ordered variant sets.
type Resolver struct {
	Converter *convert.Converter
	FS        probe.FS
	Formats   format.Enabled
	Log       *slog.Logger
}

// Resolve returns every variant of resourcePath. data is the content of
// resourcePath itself; siblings for the other requested scales are probed on
// disk and skipped when absent or unreadable.
//
// Variants are ordered scale-major: the primary scale first, then the
// remaining scales ascending. Within a scale the original comes first,
// followed by the enabled modern formats in preference order.
func (r *Resolver) Resolve(ctx context.Context, resourcePath string, data []byte, scales []int) ([]Variant, error) {
	parsed, err := naming.Parse(resourcePath)
	if err != nil {
		return nil, err
	}
	desc, err := format.Describe(parsed.Ext)
	if err != nil {
		return nil, err
	}
	mimeType := desc.MimeType

	var modern []format.Modern
	if desc.ModernEligible {
		modern = format.ModernFormats(r.Formats)
		if len(modern) > 0 && r.Converter == nil {
			return nil, errors.New("resolver has no converter for modern formats")
		}
	}

	order := scaleOrder(parsed.Scale, scales)
	slots := make([][]Variant, len(order))

	g, gctx := errgroup.WithContext(ctx)
	for i, scale := range order {
		g.Go(func() error {
			path, content := resourcePath, data
			if i > 0 {
				path = naming.BuildPath(parsed, scale)
				sibling, err := probe.ReadRegular(r.fs(), path)
				if err != nil {
					r.logger().Debug("skipping scale", "path", path, "scale", scale, "err", err)
					return nil
				}
				content = sibling
			}

			vs, err := r.variantsAt(gctx, scale, path, mimeType, content, modern)
			if err != nil {
				return err
			}
			slots[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Variant
	for _, vs := range slots {
		out = append(out, vs...)
	}
	return out, nil
}

// variantsAt returns the original at one scale followed by its derived
// formats, converting the formats concurrently.
func (r *Resolver) variantsAt(ctx context.Context, scale int, path, mimeType string, data []byte, modern []format.Modern) ([]Variant, error) {
	out := make([]Variant, 1+len(modern))
	out[0] = Variant{Scale: scale, MimeType: mimeType, Bytes: data, SourcePath: path}
	if len(modern) == 0 {
		return out, nil
	}

	buf := convert.NewBuffer(data)
	g, gctx := errgroup.WithContext(ctx)
	for j, f := range modern {
		g.Go(func() error {
			derived, err := r.Converter.Convert(gctx, buf, f)
			if err != nil {
				return err
			}
			out[1+j] = Variant{Scale: scale, MimeType: f.MimeType, Bytes: derived, SourcePath: path, Derived: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) fs() probe.FS {
	if r.FS == nil {
		return probe.OSFS{}
	}
	return r.FS
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Log
}

// scaleOrder returns primary followed by the other positive requested scales
// in ascending order, without duplicates.
func scaleOrder(primary int, requested []int) []int {
	rest := make([]int, 0, len(requested))
	for _, s := range requested {
		if s > 0 && s != primary {
			rest = append(rest, s)
		}
	}
	slices.Sort(rest)
	return append([]int{primary}, slices.Compact(rest)...)
}
