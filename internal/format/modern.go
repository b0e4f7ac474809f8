package format

// Modern describes a derived format and the fixed encoder trade-off used for
// it.
type Modern struct {
	// Name is the short format name, also used as the cache key tag.
	Name     string
	MimeType string
	// Ext is the file extension of derived artifacts, without dot.
	Ext string
	// Quality is the lossy quality in the range [0,100].
	Quality int
	// Speed is the encoder speed for formats that support it, 0 otherwise.
	Speed    int
	Lossless bool
}

var (
	// AVIF is the next-generation format. It is preferred over WebP.
	AVIF = Modern{Name: "avif", MimeType: MimeAVIF, Ext: "avif", Quality: 55, Speed: 5}
	// WebP is the widely supported lossy-with-transparency web format.
	WebP = Modern{Name: "webp", MimeType: MimeWebP, Ext: "webp", Quality: 70}
)

// preference lists modern formats from most to least preferred.
var preference = []Modern{AVIF, WebP}

// Enabled selects which modern formats are derived.
type Enabled struct {
	AVIF bool `yaml:"avif"`
	WebP bool `yaml:"webp"`
}

// AllEnabled enables every modern format.
func AllEnabled() Enabled {
	return Enabled{AVIF: true, WebP: true}
}

// ModernFormats returns the enabled formats in preference order.
func ModernFormats(e Enabled) []Modern {
	var out []Modern
	for _, m := range preference {
		if (m.MimeType == MimeAVIF && e.AVIF) || (m.MimeType == MimeWebP && e.WebP) {
			out = append(out, m)
		}
	}
	return out
}

// ModernByMime returns the modern format with mime type mt.
func ModernByMime(mt string) (Modern, bool) {
	for _, m := range preference {
		if m.MimeType == mt {
			return m, true
		}
	}
	return Modern{}, false
}

// Preference returns the rank of mt in the modern preference order, or -1
// when mt is not a modern format. Lower ranks sort first.
func Preference(mt string) int {
	for i, m := range preference {
		if m.MimeType == mt {
			return i
		}
	}
	return -1
}
