// Package filter implements the page enhancement filters applied at export
// time. Every filter reads an image and returns a new buffer; the source is
// never modified.
package filter

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrUnknownFilter is returned for a filter name outside the known set
var ErrUnknownFilter = errors.New("unknown filter")

// Filter names a page enhancement
type Filter string

const (
	None         Filter = "none"
	Grayscale    Filter = "grayscale"
	HighContrast Filter = "high-contrast"
	Threshold    Filter = "threshold"
	Brighten     Filter = "brighten"
	Sharpen      Filter = "sharpen"
	MagicColor   Filter = "magic-color"
	NoShadow     Filter = "no-shadow"
)

// Func transforms src into a new image. Implementations must not write to src.
type Func func(src *image.NRGBA) *image.NRGBA

var registry = map[Filter]Func{
	None:         identity,
	Grayscale:    grayscale,
	HighContrast: highContrast,
	Threshold:    threshold,
	Brighten:     brighten,
	Sharpen:      sharpen,
	MagicColor:   magicColor,
	NoShadow:     noShadow,
}

var labels = map[Filter]string{
	None:         "Original",
	Grayscale:    "Grayscale",
	HighContrast: "High Contrast",
	Threshold:    "B&W",
	Brighten:     "Brighten",
	Sharpen:      "Sharpen",
	MagicColor:   "Magic Color",
	NoShadow:     "No Shadow",
}

// All returns every filter in menu order
func All() []Filter {
	return []Filter{None, Grayscale, HighContrast, Threshold, Brighten, Sharpen, MagicColor, NoShadow}
}

func (f Filter) String() string {
	return string(f)
}

// Label returns the name shown to users
func (f Filter) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is a known filter
func (f Filter) Valid() bool {
	_, ok := registry[f]
	return ok
}

// Parse converts a filter name. An empty name means None.
func Parse(name string) (Filter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	f := Filter(name)
	if !f.Valid() {
		return None, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	return f, nil
}

// Apply runs filter f on a copy of img
func Apply(img image.Image, f Filter) (*image.NRGBA, error) {
	fn, ok := registry[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, string(f))
	}
	if img == nil {
		return nil, errors.New("filter: nil image")
	}
	// Clone yields an NRGBA at the origin, which is what the filters expect
	return fn(imaging.Clone(img)), nil
}
