package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WatchSessionsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watch_sessions_running",
	})
	WatchCycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watch_cycle_errors",
	})
	SegmentsDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segments_downloaded_count",
	})
	SegmentBytesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segments_downloaded_bytes",
	})
	SegmentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segment_fetch_retries",
	})
)
