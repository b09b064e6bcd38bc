package manifest

import (
	"github.com/pkg/errors"
)

var ErrNoVariant = errors.New("no acceptable variant in manifest")

// Selection is the outcome of picking one variant out of a set.
type Selection struct {
	URI       string
	Width     int
	FrameRate int
}

// Select picks the variant closest to the requested width and frame rate.
// An exact width match wins; otherwise the largest width strictly below the
// target is used, mirroring what adaptive-bitrate players do when the
// requested rung is absent from the ladder. Within the width bucket an exact
// frame rate match wins, falling back to the lowest frame rate available so
// the choice does not depend on manifest ordering.
func Select(set VariantSet, width, frameRate int) (*Selection, error) {
	bucket, ok := set[width]
	chosenWidth := width
	if !ok {
		chosenWidth = -1
		for w := range set {
			if w < width && w > chosenWidth {
				chosenWidth = w
			}
		}
		if chosenWidth == -1 {
			return nil, errors.Wrapf(ErrNoVariant, "nothing at or below %vpx", width)
		}
		bucket = set[chosenWidth]
	}

	if uri, ok := bucket[frameRate]; ok {
		return &Selection{URI: uri, Width: chosenWidth, FrameRate: frameRate}, nil
	}

	fallback := -1
	for fps := range bucket {
		if fallback == -1 || fps < fallback {
			fallback = fps
		}
	}
	if fallback == -1 {
		return nil, errors.Wrapf(ErrNoVariant, "empty frame rate bucket at %vpx", chosenWidth)
	}
	return &Selection{URI: bucket[fallback], Width: chosenWidth, FrameRate: fallback}, nil
}
