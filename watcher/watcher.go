package watcher

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/streamscope/livewatch/manifest"
	"github.com/streamscope/livewatch/pkg/fetch"
	"github.com/streamscope/livewatch/pkg/timer"
	"github.com/streamscope/livewatch/playlist"
)

const (
	defaultPollInterval  = time.Second
	defaultErrorBackoff  = 5 * time.Second
	defaultRetryWait     = 600 * time.Millisecond
	defaultFetchAttempts = 3
)

// SegmentHandler consumes one newly downloaded segment. Handlers are invoked
// synchronously, in manifest order; a handler error degrades the whole poll
// cycle the same way a failed segment fetch does.
type SegmentHandler func(data []byte, duration float64) error

// Options control watch loop timing. Zero values fall back to the defaults
// above. Tests inject tiny durations here to avoid real delays.
type Options struct {
	PollInterval  time.Duration
	ErrorBackoff  time.Duration
	RetryWait     time.Duration
	FetchAttempts int

	// MarkAfterDeliver delays advancing the sequence watermark until the
	// segment has been handed to the consumer. By default the watermark
	// moves before the fetch, so a segment that exhausts its retries is
	// skipped forever; this switch trades that at-most-once behavior for
	// a redelivery attempt on the next cycle.
	MarkAfterDeliver bool
}

func (o Options) withDefaults() Options {
	if o.PollInterval == 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.ErrorBackoff == 0 {
		o.ErrorBackoff = defaultErrorBackoff
	}
	if o.RetryWait == 0 {
		o.RetryWait = defaultRetryWait
	}
	if o.FetchAttempts == 0 {
		o.FetchAttempts = defaultFetchAttempts
	}
	return o
}

// Watcher polls one selected media playlist for newly appeared segments.
// It owns its sequence watermark, so independent watchers for different
// rooms can run concurrently without shared state.
type Watcher struct {
	playlist *playlist.SelectedPlaylist
	fetcher  fetch.Fetcher
	handler  SegmentHandler
	opts     Options
	lastSeq  int64
}

func New(pl *playlist.SelectedPlaylist, f fetch.Fetcher, handler SegmentHandler, opts Options) *Watcher {
	return &Watcher{
		playlist: pl,
		fetcher:  f,
		handler:  handler,
		opts:     opts.withDefaults(),
		lastSeq:  -1,
	}
}

// LastSequence returns the highest segment sequence seen so far (-1 before
// the first delivery).
func (w *Watcher) LastSequence() int64 {
	return w.lastSeq
}

// Watch polls the media playlist until ctx is cancelled. Fetch and parse
// failures, including a segment exhausting its retry budget, are logged and
// absorbed with an error back-off; the loop has no other way to end, and the
// only error ever returned is ctx.Err().
func (w *Watcher) Watch(ctx context.Context) error {
	WatchSessionsRunning.Inc()
	defer WatchSessionsRunning.Dec()

	ll := logger.With("url", w.playlist.URL)
	ll.Infow("watch session started", "resolution", w.playlist.Width, "frame_rate", w.playlist.FrameRate)

	for {
		err := w.cycle(ctx)
		if ctx.Err() != nil {
			ll.Infow("watch session cancelled")
			return ctx.Err()
		}

		wait := w.opts.PollInterval
		if err != nil {
			WatchCycleErrors.Inc()
			ll.Warnw("poll cycle failed", "err", err)
			wait = w.opts.ErrorBackoff
		}
		if !sleep(ctx, wait) {
			ll.Infow("watch session cancelled")
			return ctx.Err()
		}
	}
}

// cycle runs one Poll→Parse→Diff→Deliver pass.
func (w *Watcher) cycle(ctx context.Context) error {
	data, err := w.fetcher.Fetch(ctx, w.playlist.URL)
	if err != nil {
		return errors.Wrap(err, "cannot fetch media playlist")
	}

	m := manifest.Parse(data)
	if m.Type != manifest.Media {
		return errors.New("fetched text is not a media manifest")
	}

	for _, seg := range m.Segments {
		if seg.Sequence == -1 || seg.Sequence <= w.lastSeq {
			continue
		}
		if !w.opts.MarkAfterDeliver {
			w.lastSeq = seg.Sequence
		}

		data, err := w.fetchSegment(ctx, seg)
		if err != nil {
			return errors.Wrapf(err, "cannot fetch segment %v", seg.URI)
		}
		if err := w.handler(data, seg.Duration); err != nil {
			return errors.Wrapf(err, "segment handler failed on %v", seg.URI)
		}

		if w.opts.MarkAfterDeliver {
			w.lastSeq = seg.Sequence
		}
	}
	return nil
}

func (w *Watcher) fetchSegment(ctx context.Context, seg manifest.Segment) ([]byte, error) {
	url := w.playlist.ResolveSegment(seg.URI)
	t := timer.Start()

	var lastErr error
	for attempt := 0; attempt < w.opts.FetchAttempts; attempt++ {
		if attempt > 0 {
			SegmentRetries.Inc()
			if !sleep(ctx, w.opts.RetryWait) {
				return nil, ctx.Err()
			}
		}
		data, err := w.fetcher.Fetch(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		SegmentsDownloaded.Inc()
		SegmentBytesDownloaded.Add(float64(len(data)))
		logger.Debugw(
			"segment downloaded",
			"url", url, "size", len(data), "rate", t.Rate(int64(len(data))), "attempts", attempt+1)
		return data, nil
	}
	return nil, errors.Wrapf(lastErr, "giving up after %v attempts", w.opts.FetchAttempts)
}

// sleep waits for d unless ctx is cancelled first, in which case it returns
// false immediately.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
