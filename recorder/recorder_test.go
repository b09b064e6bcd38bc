package recorder

import (
	"io/ioutil"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"github.com/streamscope/livewatch/playlist"
)

func testPlaylist() *playlist.SelectedPlaylist {
	return &playlist.SelectedPlaylist{
		URL:       "https://edge1.example.com/live-hls/roomx/chunklist.m3u8",
		BaseURL:   "https://edge1.example.com/live-hls/roomx/",
		Width:     1920,
		FrameRate: 30,
	}
}

func TestRecorderWriteClose(t *testing.T) {
	dir := t.TempDir()

	rec, err := New(dir, "chaturbate", "roomx", testPlaylist())
	require.NoError(t, err)

	require.NoError(t, rec.Write([]byte("0123456789"), 2))
	require.NoError(t, rec.Write([]byte("abcde"), 1.5))
	require.NoError(t, rec.Close())

	data, err := ioutil.ReadFile(rec.Path())
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcde", string(data))
	assert.True(t, strings.HasPrefix(path.Base(rec.Path()), "roomx_"))
	assert.True(t, strings.HasSuffix(rec.Path(), RecordingExt))

	sidecar, err := ioutil.ReadFile(strings.TrimSuffix(rec.Path(), RecordingExt) + ManifestExt)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(sidecar, &m))
	assert.Len(t, m.SID, 26)
	assert.Equal(t, "chaturbate", m.Platform)
	assert.Equal(t, "roomx", m.Room)
	assert.Equal(t, "https://edge1.example.com/live-hls/roomx/chunklist.m3u8", m.URL)
	assert.Equal(t, 1920, m.Width)
	assert.Equal(t, 30, m.FrameRate)
	assert.EqualValues(t, 15, m.Size)
	assert.Equal(t, 3.5, m.Duration)
	assert.Equal(t, 2, m.Segments)
	assert.False(t, m.StartedAt.IsZero())
}

func TestRecorderUniqueSessions(t *testing.T) {
	dir := t.TempDir()

	r1, err := New(dir, "chaturbate", "roomx", testPlaylist())
	require.NoError(t, err)
	r2, err := New(dir, "chaturbate", "roomx", testPlaylist())
	require.NoError(t, err)
	defer r1.Close()
	defer r2.Close()

	assert.NotEqual(t, r1.Path(), r2.Path())
	assert.NotEqual(t, r1.Manifest().SID, r2.Manifest().SID)
}

func TestRetireRecordings(t *testing.T) {
	dir := t.TempDir()

	names := []string{"old", "mid", "new"}
	for i, n := range names {
		p := path.Join(dir, n+RecordingExt)
		require.NoError(t, ioutil.WriteFile(p, make([]byte, 100), os.ModePerm))
		mt := time.Now().Add(time.Duration(i-10) * time.Hour)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}
	require.NoError(t, ioutil.WriteFile(path.Join(dir, "old"+ManifestExt), []byte("SID: x\n"), os.ModePerm))

	// 300 bytes on disk, 250 allowed: only the oldest recording goes, along
	// with its sidecar.
	retireRecordings(dir, 250)

	_, err := os.Stat(path.Join(dir, "old"+RecordingExt))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path.Join(dir, "old"+ManifestExt))
	assert.True(t, os.IsNotExist(err))
	for _, n := range []string{"mid", "new"} {
		_, err = os.Stat(path.Join(dir, n+RecordingExt))
		assert.NoError(t, err)
	}
}

func TestRetireRecordingsUnderLimit(t *testing.T) {
	dir := t.TempDir()
	p := path.Join(dir, "keep"+RecordingExt)
	require.NoError(t, ioutil.WriteFile(p, make([]byte, 100), os.ModePerm))

	retireRecordings(dir, 1000)

	_, err := os.Stat(p)
	assert.NoError(t, err)
}

func TestSpawnCleaningStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	stopChan := SpawnCleaning(t.TempDir(), 1<<30)
	close(stopChan)
	time.Sleep(10 * time.Millisecond)
}
