package dimension

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Absolute CSS units in pixels.
var svgUnits = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 96.0 / 72,
	"pc": 16,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
}

// svgSize reads the root element's width and height, falling back to the
// viewBox for missing values.
func svgSize(data []byte) (Size, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return Size{}, errors.New("reading svg size: no svg element")
		}
		if err != nil {
			return Size{}, fmt.Errorf("reading svg size: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return Size{}, fmt.Errorf("reading svg size: unexpected root element %q", start.Name.Local)
		}
		return svgRootSize(start.Attr)
	}
}

func svgRootSize(attrs []xml.Attr) (Size, error) {
	var width, height, viewBox string
	for _, a := range attrs {
		switch a.Name.Local {
		case "width":
			width = a.Value
		case "height":
			height = a.Value
		case "viewBox":
			viewBox = a.Value
		}
	}

	w, wok := svgLength(width)
	h, hok := svgLength(height)
	if wok && hok {
		return Size{Width: w, Height: h}, nil
	}

	vw, vh, vok := parseViewBox(viewBox)
	switch {
	case !vok:
		return Size{}, errors.New("reading svg size: missing width, height and viewBox")
	case wok:
		return Size{Width: w, Height: w * vh / vw}, nil
	case hok:
		return Size{Width: h * vw / vh, Height: h}, nil
	default:
		return Size{Width: vw, Height: vh}, nil
	}
}

// svgLength parses an absolute length such as "24", "24px" or "1in".
// Percentages and font-relative units are not lengths we can resolve.
func svgLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	i := len(s)
	for i > 0 && (s[i-1] < '0' || s[i-1] > '9') && s[i-1] != '.' {
		i--
	}
	factor, ok := svgUnits[strings.ToLower(s[i:])]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * factor, true
}

func parseViewBox(s string) (w, h float64, ok bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(fields[2], 64)
	h, errH := strconv.ParseFloat(fields[3], 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
