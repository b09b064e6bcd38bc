package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const masterFixture = `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=4800000,RESOLUTION=1920x1080,NAME="1080p60",FRAME-RATE=60.000
chunklist_w111_b4800000.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=2600000,RESOLUTION=1920x1080,NAME="1080p"
chunklist_w111_b2600000.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1800000,RESOLUTION=1280x720,NAME="720p"
chunklist_w111_b1800000.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=800000,RESOLUTION=854x480,NAME="480p"
chunklist_w111_b800000.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=500000,NAME="audio only"
chunklist_w111_b500000.m3u8
`

const mediaFixture = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:3
#EXT-X-MEDIA-SEQUENCE:1
#EXTINF:2.000,
segment-1.ts
#EXTINF:2.000,
segment-2.ts
#EXTINF:1.500,
segment-3.ts
`

func TestParseMaster(t *testing.T) {
	m := Parse([]byte(masterFixture))
	require.Equal(t, Master, m.Type)

	// The variant without a resolution token is dropped silently.
	assert.Len(t, m.Variants, 3)

	assert.Equal(t, "chunklist_w111_b4800000.m3u8", m.Variants[1920][60])
	assert.Equal(t, "chunklist_w111_b2600000.m3u8", m.Variants[1920][30])
	assert.Equal(t, "chunklist_w111_b1800000.m3u8", m.Variants[1280][30])
	assert.Equal(t, "chunklist_w111_b800000.m3u8", m.Variants[854][30])
}

func TestParseMedia(t *testing.T) {
	m := Parse([]byte(mediaFixture))
	require.Equal(t, Media, m.Type)
	require.Len(t, m.Segments, 3)

	assert.Equal(t, Segment{URI: "segment-1.ts", Duration: 2, Sequence: 1}, m.Segments[0])
	assert.Equal(t, Segment{URI: "segment-2.ts", Duration: 2, Sequence: 2}, m.Segments[1])
	assert.Equal(t, Segment{URI: "segment-3.ts", Duration: 1.5, Sequence: 3}, m.Segments[2])
}

func TestParseInvalid(t *testing.T) {
	for _, text := range []string{
		"",
		"<html><body>room not found</body></html>",
		"just some text\nwith lines\n",
	} {
		m := Parse([]byte(text))
		assert.Equal(t, Invalid, m.Type, "expected %q to parse as invalid", text)
	}
}

func TestParseIdempotent(t *testing.T) {
	for _, text := range []string{masterFixture, mediaFixture} {
		assert.Equal(t, Parse([]byte(text)), Parse([]byte(text)))
	}
}

func TestExtractSequence(t *testing.T) {
	cases := []struct {
		uri string
		seq int64
	}{
		{"segment-12345.ts", 12345},
		{"segment-1.ts", 1},
		{"chunk.ts", -1},
		{"a-b-c.ts", -1},
		{"a-42-c.ts", 42},
		{"media/path/segment-7.ts", 7},
		{"segment-.ts", -1},
		{"", -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.seq, ExtractSequence(c.uri), "uri=%q", c.uri)
	}
}
