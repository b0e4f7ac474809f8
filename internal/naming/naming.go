// Package naming parses and builds resource paths that follow the
// scaled-asset convention "name[@Nx].ext", e.g. "icons/logo@2x.png".
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidResourceName is returned when a path does not follow the
// "(dir/)name(@Nx).ext" convention.
var ErrInvalidResourceName = errors.New("invalid resource name")

// resourceRe matches an optional directory (any separator style), a
// non-greedy base name, an optional integer density suffix and the remaining
// extension, which may itself contain dots.
var resourceRe = regexp.MustCompile(`^(?:(.*)[\\/])?([^\\/]+?)(?:@([0-9]+)x)?\.(.+)$`)

// ParsedName is the decomposed form of a resource path.
type ParsedName struct {
	// Dir is the directory part, verbatim, without its trailing separator.
	Dir string
	// Sep is the separator that followed Dir in the original path ("/" or
	// "\"), empty when the path had no directory part.
	Sep string
	// Base is the file name without density suffix and extension.
	Base string
	// Ext is everything after the first dot following Base, e.g. "png" or
	// "min.svg".
	Ext string
	// Scale is the pixel density, 1 when the path carries no suffix.
	Scale int
}

// Parse decomposes resourcePath.
func Parse(resourcePath string) (ParsedName, error) {
	m := resourceRe.FindStringSubmatchIndex(resourcePath)
	if m == nil {
		return ParsedName{}, fmt.Errorf("parsing resource %q: %w", resourcePath, ErrInvalidResourceName)
	}

	group := func(i int) (string, bool) {
		start, end := m[2*i], m[2*i+1]
		if start < 0 {
			return "", false
		}
		return resourcePath[start:end], true
	}

	p := ParsedName{Scale: 1}
	if dir, ok := group(1); ok {
		p.Dir = dir
		end := m[3]
		p.Sep = resourcePath[end : end+1]
	}
	p.Base, _ = group(2)
	p.Ext, _ = group(4)
	if p.Base == "" || p.Ext == "" {
		return ParsedName{}, fmt.Errorf("parsing resource %q: %w", resourcePath, ErrInvalidResourceName)
	}

	if s, ok := group(3); ok {
		scale, err := strconv.Atoi(s)
		if err != nil || scale <= 0 {
			return ParsedName{}, fmt.Errorf("parsing resource %q: density @%sx must be a positive integer: %w", resourcePath, s, ErrInvalidResourceName)
		}
		p.Scale = scale
	}

	return p, nil
}

// BuildPath returns the path of the sibling of p at the given scale. Scale 1
// omits the density suffix.
func BuildPath(p ParsedName, scale int) string {
	return p.Dir + p.Sep + FileName(p, scale)
}

// FileName is BuildPath without the directory part.
func FileName(p ParsedName, scale int) string {
	return p.Base + Suffix(scale) + "." + p.Ext
}

// Suffix returns the density suffix for scale: "" for 1, "@Nx" otherwise.
func Suffix(scale int) string {
	if scale == 1 {
		return ""
	}
	return "@" + strconv.Itoa(scale) + "x"
}

// Key identifies the logical asset a path belongs to, independent of its
// density suffix.
func (p ParsedName) Key() string {
	return BuildPath(p, 1)
}
