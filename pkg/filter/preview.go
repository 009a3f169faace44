package filter

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// Preview returns a fast approximation of f for thumbnails and live
// previews. Export always goes through Apply.
func Preview(img image.Image, f Filter) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("filter: nil image")
	}
	switch f {
	case None:
		return img, nil
	case Grayscale:
		return effect.Grayscale(img), nil
	case HighContrast:
		return adjust.Contrast(img, 0.5), nil
	case Threshold:
		return segment.Threshold(effect.Grayscale(img), thresholdLevel), nil
	case Brighten:
		return adjust.Brightness(img, 0.15), nil
	case Sharpen:
		return effect.Sharpen(img), nil
	case MagicColor:
		return adjust.Brightness(adjust.Saturation(adjust.Contrast(img, 0.2), 0.6), 0.05), nil
	case NoShadow:
		return adjust.Brightness(adjust.Contrast(img, 0.1), 0.1), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, string(f))
}
