// Package dimension reads the pixel size of image files.
package dimension

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/bianoble/imgset/internal/format"
)

// ErrUnsupported is returned for formats whose size cannot be read.
var ErrUnsupported = errors.New("unsupported image format")

// Size is a logical image size. It may be fractional once divided by a
// density scale.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Probe returns the logical size of data: its pixel size divided by scale.
func Probe(data []byte, mimeType string, scale int) (Size, error) {
	if scale <= 0 {
		return Size{}, fmt.Errorf("invalid scale %d", scale)
	}

	var size Size
	var err error
	if mimeType == format.MimeSVG {
		size, err = svgSize(data)
	} else {
		size, err = rasterSize(data, mimeType)
	}
	if err != nil {
		return Size{}, err
	}

	if scale != 1 {
		size.Width /= float64(scale)
		size.Height /= float64(scale)
	}
	return size, nil
}

func rasterSize(data []byte, mimeType string) (Size, error) {
	var decode func(r *bytes.Reader) (image.Config, error)
	switch mimeType {
	case format.MimePNG:
		decode = func(r *bytes.Reader) (image.Config, error) { return png.DecodeConfig(r) }
	case format.MimeJPEG:
		decode = func(r *bytes.Reader) (image.Config, error) { return jpeg.DecodeConfig(r) }
	case format.MimeGIF:
		decode = func(r *bytes.Reader) (image.Config, error) { return gif.DecodeConfig(r) }
	case format.MimeWebP:
		decode = func(r *bytes.Reader) (image.Config, error) { return webp.DecodeConfig(r) }
	case format.MimeAVIF:
		decode = func(r *bytes.Reader) (image.Config, error) { return avif.DecodeConfig(r) }
	case format.MimeBMP:
		decode = func(r *bytes.Reader) (image.Config, error) { return bmp.DecodeConfig(r) }
	case format.MimeTIFF:
		decode = func(r *bytes.Reader) (image.Config, error) { return tiff.DecodeConfig(r) }
	case format.MimeICO:
		decode = icoConfig
	default:
		return Size{}, fmt.Errorf("reading size of %s: %w", mimeType, ErrUnsupported)
	}

	cfg, err := decode(bytes.NewReader(data))
	if err != nil {
		return Size{}, fmt.Errorf("reading size of %s: %w", mimeType, err)
	}
	return Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// icoConfig reads the size of the largest image in an ICO directory. A zero
// width or height byte stands for 256.
func icoConfig(r *bytes.Reader) (image.Config, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return image.Config{}, fmt.Errorf("reading icon header: %w", err)
	}
	if binary.LittleEndian.Uint16(header[0:]) != 0 || binary.LittleEndian.Uint16(header[2:]) != 1 {
		return image.Config{}, errors.New("not an icon file")
	}
	count := int(binary.LittleEndian.Uint16(header[4:]))
	if count == 0 {
		return image.Config{}, errors.New("icon file has no images")
	}

	var best image.Config
	var entry [16]byte
	for range count {
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return image.Config{}, fmt.Errorf("reading icon entry: %w", err)
		}
		w, h := int(entry[0]), int(entry[1])
		if w == 0 {
			w = 256
		}
		if h == 0 {
			h = 256
		}
		if w*h > best.Width*best.Height {
			best.Width, best.Height = w, h
		}
	}
	return best, nil
}
