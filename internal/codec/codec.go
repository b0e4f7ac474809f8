// Package codec encodes raster images into the modern derived formats.
package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// decoders for the formats eligible for derivation
	_ "image/jpeg"
	_ "image/png"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	"github.com/bianoble/imgset/internal/format"
)

// Codec encodes src into the target format using the target's fixed quality
// parameters. Output must be deterministic for identical inputs.
type Codec interface {
	Encode(ctx context.Context, src []byte, target format.Modern) ([]byte, error)
}

// EncodeError is returned when a codec fails to produce the target format.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Func adapts a function to the Codec interface.
type Func func(ctx context.Context, src []byte, target format.Modern) ([]byte, error)

// Encode calls f.
func (f Func) Encode(ctx context.Context, src []byte, target format.Modern) ([]byte, error) {
	return f(ctx, src, target)
}

// Native decodes PNG and JPEG with the standard library decoders and encodes
// AVIF and WebP in process.
type Native struct{}

// Encode implements Codec.
func (Native) Encode(ctx context.Context, src []byte, target format.Modern) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Format: target.Name, Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &EncodeError{Format: target.Name, Err: fmt.Errorf("decoding source: %w", err)}
	}

	var buf bytes.Buffer
	switch target.MimeType {
	case format.MimeAVIF:
		err = avif.Encode(&buf, img, avif.Options{
			Quality:      target.Quality,
			QualityAlpha: target.Quality,
			Speed:        target.Speed,
		})
	case format.MimeWebP:
		err = webp.Encode(&buf, img, webp.Options{
			Quality:  target.Quality,
			Lossless: target.Lossless,
			Method:   4,
		})
	default:
		err = fmt.Errorf("unsupported target %s", target.MimeType)
	}
	if err != nil {
		return nil, &EncodeError{Format: target.Name, Err: err}
	}

	return buf.Bytes(), nil
}
