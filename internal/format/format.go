// Package format maps image file extensions to mime types and describes the
// modern formats that eligible originals are derived into.
package format

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MimePNG is the mime type of PNG images.
	MimePNG = "image/png"
	// MimeJPEG is the mime type of JPEG images.
	MimeJPEG = "image/jpeg"
	// MimeGIF is the mime type of GIF images.
	MimeGIF = "image/gif"
	// MimeSVG is the mime type of SVG documents.
	MimeSVG = "image/svg+xml"
	// MimeWebP is the mime type of WebP images.
	MimeWebP = "image/webp"
	// MimeAVIF is the mime type of AVIF images.
	MimeAVIF = "image/avif"
	// MimeBMP is the mime type of BMP images.
	MimeBMP = "image/bmp"
	// MimeICO is the mime type of Windows icons.
	MimeICO = "image/vnd.microsoft.icon"
	// MimeTIFF is the mime type of TIFF images.
	MimeTIFF = "image/tiff"
)

// ErrUnknownExtension is returned when an extension has no known mime type.
var ErrUnknownExtension = errors.New("unknown extension")

var extensions = map[string]string{
	"png":  MimePNG,
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"gif":  MimeGIF,
	"svg":  MimeSVG,
	"webp": MimeWebP,
	"avif": MimeAVIF,
	"bmp":  MimeBMP,
	"ico":  MimeICO,
	"tif":  MimeTIFF,
	"tiff": MimeTIFF,
}

// Descriptor is the static description of an accepted extension.
type Descriptor struct {
	MimeType       string
	ModernEligible bool
}

// MimeTypeFor returns the mime type of ext. Only the segment after the last
// dot is considered, so "min.svg" resolves like "svg".
func MimeTypeFor(ext string) (string, error) {
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		ext = ext[i+1:]
	}
	mt, ok := extensions[strings.ToLower(ext)]
	if !ok {
		return "", fmt.Errorf("no mime type for extension %q: %w", ext, ErrUnknownExtension)
	}
	return mt, nil
}

// Describe returns the Descriptor for ext.
func Describe(ext string) (Descriptor, error) {
	mt, err := MimeTypeFor(ext)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{MimeType: mt, ModernEligible: ModernEligible(mt)}, nil
}

// ModernEligible returns true when originals of mime type mt are derived into
// the modern formats.
func ModernEligible(mt string) bool {
	switch mt {
	case MimePNG, MimeJPEG:
		return true
	}
	return false
}
