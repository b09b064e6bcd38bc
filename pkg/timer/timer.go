package timer

import (
	"fmt"
	"time"
)

type Timer struct {
	Started  time.Time
	duration float64
}

func Start() *Timer {
	return &Timer{Started: time.Now()}
}

func (t *Timer) Stop() float64 {
	if t.duration == 0 {
		t.duration = time.Since(t.Started).Seconds()
	}
	return t.duration
}

func (t *Timer) Duration() float64 {
	if t.duration == 0 {
		return time.Since(t.Started).Seconds()
	}
	return t.duration
}

func (t *Timer) DurationInt() int64 {
	if t.duration == 0 {
		return int64(time.Since(t.Started).Seconds())
	}
	return int64(t.duration)
}

// Rate returns the per-second transfer rate for size bytes moved since the
// timer was started.
func (t *Timer) Rate(size int64) int64 {
	d := t.Duration()
	if d == 0 {
		return 0
	}
	return int64(float64(size) / d)
}

func (t *Timer) String() string {
	return fmt.Sprintf("%.2f", t.Duration())
}
