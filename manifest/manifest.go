package manifest

import (
	"bytes"
	"path"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
)

type Type int

const (
	Invalid Type = iota
	Master
	Media
)

const (
	defaultFrameRate = 30
	highFrameRate    = 60
)

// VariantSet maps resolution width to the frame rates available at that
// width and their playlist URIs. When a master manifest carries duplicate
// (width, frame rate) entries, the last one parsed wins.
type VariantSet map[int]map[int]string

type Segment struct {
	URI      string
	Duration float64
	Sequence int64
}

type Manifest struct {
	Type     Type
	Variants VariantSet
	Segments []Segment
}

// Parse classifies raw playlist text as a master or media manifest and
// extracts the parts relevant for variant selection and segment watching.
// Text that does not decode as an HLS playlist yields a manifest of type
// Invalid, never an error.
func Parse(data []byte) *Manifest {
	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil {
		logger.Debugw("manifest did not decode", "err", err)
		return &Manifest{Type: Invalid}
	}

	switch listType {
	case m3u8.MASTER:
		masterpl, ok := pl.(*m3u8.MasterPlaylist)
		if !ok {
			return &Manifest{Type: Invalid}
		}
		return &Manifest{Type: Master, Variants: parseVariants(masterpl)}
	case m3u8.MEDIA:
		mediapl, ok := pl.(*m3u8.MediaPlaylist)
		if !ok {
			return &Manifest{Type: Invalid}
		}
		return &Manifest{Type: Media, Segments: parseSegments(mediapl)}
	}

	return &Manifest{Type: Invalid}
}

func parseVariants(masterpl *m3u8.MasterPlaylist) VariantSet {
	set := VariantSet{}
	for _, plv := range masterpl.Variants {
		if plv == nil {
			continue
		}
		width := parseWidth(plv.Resolution)
		if width <= 0 {
			logger.Debugw("variant without usable resolution dropped", "uri", plv.URI)
			continue
		}

		// Platforms encode high frame rate variants in the display name
		// ("720p60") rather than the FRAME-RATE attribute.
		fps := defaultFrameRate
		if strings.Contains(plv.Name, "60") {
			fps = highFrameRate
		}

		if set[width] == nil {
			set[width] = map[int]string{}
		}
		set[width][fps] = plv.URI
	}
	return set
}

func parseSegments(mediapl *m3u8.MediaPlaylist) []Segment {
	var segments []Segment
	for _, seg := range mediapl.Segments {
		if seg == nil {
			continue
		}
		segments = append(segments, Segment{
			URI:      seg.URI,
			Duration: seg.Duration,
			Sequence: ExtractSequence(seg.URI),
		})
	}
	return segments
}

// parseWidth pulls the width out of a "WIDTHxHEIGHT" resolution token.
// Returns 0 when the token is absent or malformed.
func parseWidth(resolution string) int {
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 {
		return 0
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return w
}

// ExtractSequence recovers the numeric sequence from segment names like
// "segment-12345.ts": the name is split on hyphens, the second token has its
// extension stripped and is parsed as an integer. Returns -1 for names that
// do not follow the pattern; such segments are retained but never treated
// as new by the watcher.
func ExtractSequence(uri string) int64 {
	name := path.Base(uri)
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return -1
	}
	token := parts[1]
	if i := strings.IndexByte(token, '.'); i >= 0 {
		token = token[:i]
	}
	seq, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return -1
	}
	return seq
}
