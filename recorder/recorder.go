package recorder

import (
	"fmt"
	"math/rand"
	"os"
	"path"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/streamscope/livewatch/pkg/logging"
	"github.com/streamscope/livewatch/pkg/timer"
	"github.com/streamscope/livewatch/playlist"
)

const (
	RecordingExt = ".ts"
	ManifestExt  = ".manifest"
)

// Manifest is the YAML sidecar written next to each finished recording.
type Manifest struct {
	SID      string
	Platform string
	Room     string
	URL      string

	Width     int
	FrameRate int

	StartedAt time.Time
	Duration  float64 `yaml:",omitempty"`
	Size      int64   `yaml:",omitempty"`
	Segments  int     `yaml:",omitempty"`
}

// Recorder appends watched segments to a single transport stream file and
// keeps session accounting for the manifest sidecar. Its Write method
// satisfies watcher.SegmentHandler.
type Recorder struct {
	rootDir  string
	manifest *Manifest
	file     *os.File
	t        *timer.Timer
	log      logging.KVLogger
}

func newSID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Now(), entropy).String()
}

func New(rootDir, platform, room string, pl *playlist.SelectedPlaylist) (*Recorder, error) {
	if err := os.MkdirAll(rootDir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "cannot create output directory")
	}

	m := &Manifest{
		SID:       newSID(),
		Platform:  platform,
		Room:      room,
		URL:       pl.URL,
		Width:     pl.Width,
		FrameRate: pl.FrameRate,
		StartedAt: time.Now(),
	}
	f, err := os.Create(path.Join(rootDir, m.baseName()+RecordingExt))
	if err != nil {
		return nil, errors.Wrap(err, "cannot create recording file")
	}

	ll := logging.AddRoomRef(logger, platform, room)
	r := &Recorder{rootDir: rootDir, manifest: m, file: f, t: timer.Start(), log: ll}
	ll.Info("recording started", "file", f.Name())
	return r, nil
}

func (m *Manifest) baseName() string {
	return fmt.Sprintf("%s_%s", m.Room, m.SID)
}

// Write appends one segment to the recording.
func (r *Recorder) Write(data []byte, duration float64) error {
	if _, err := r.file.Write(data); err != nil {
		return errors.Wrap(err, "cannot write segment")
	}
	r.manifest.Size += int64(len(data))
	r.manifest.Duration += duration
	r.manifest.Segments++
	r.log.Debug(
		"segment written",
		"file", r.file.Name(),
		"total_size", datasize.ByteSize(r.manifest.Size).HumanReadable(),
		"total_duration", r.manifest.Duration)
	return nil
}

// Close flushes the recording and writes the manifest sidecar.
func (r *Recorder) Close() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	d, err := yaml.Marshal(r.manifest)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path.Join(r.rootDir, r.manifest.baseName()+ManifestExt), d, os.ModePerm); err != nil {
		return errors.Wrap(err, "cannot write recording manifest")
	}

	r.log.Info(
		"recording closed",
		"file", r.file.Name(),
		"size", datasize.ByteSize(r.manifest.Size).HumanReadable(),
		"segments", r.manifest.Segments,
		"seconds_spent", r.t.DurationInt(),
		"rate", r.t.Rate(r.manifest.Size))
	return nil
}

// Manifest returns a copy of the session accounting collected so far.
func (r *Recorder) Manifest() Manifest {
	return *r.manifest
}

// Path returns the location of the recording file.
func (r *Recorder) Path() string {
	return r.file.Name()
}
