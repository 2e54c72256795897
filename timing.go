package xdispatch

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Timing measures one dispatch on a monotonic clock. It starts running at
// construction; intermediate segments are recorded with Split and the
// measurement ends with Stop. Durations are only derivable after Stop.
//
// A Timing is used from a single goroutine, matching its place in the
// firing path.
type Timing struct {
	name    string
	clock   xclock.Clock
	start   time.Time
	end     time.Time
	splits  []time.Time
	stopped bool
}

// NewTiming starts a new measurement. A nil clock falls back to the default.
func NewTiming(name string, clock xclock.Clock) *Timing {
	if clock == nil {
		clock = xclock.Default()
	}
	return &Timing{
		name:  name,
		clock: clock,
		start: clock.Now(),
	}
}

// Name returns the measured event's name.
func (t *Timing) Name() string { return t.name }

// Split records an intermediate timestamp. It fails once the timing has
// been stopped.
func (t *Timing) Split() error {
	if t.stopped {
		return ErrTimingStopped
	}
	t.splits = append(t.splits, t.clock.Now())
	return nil
}

// Stop ends the measurement. Only the first call has effect.
func (t *Timing) Stop() {
	if !t.stopped {
		t.end = t.clock.Now()
		t.stopped = true
	}
}

// Stopped reports whether Stop has been called.
func (t *Timing) Stopped() bool { return t.stopped }

// Duration returns the total time from start to stop. It fails while the
// timing is still running.
func (t *Timing) Duration() (time.Duration, error) {
	if !t.stopped {
		return 0, ErrTimingRunning
	}
	return t.end.Sub(t.start), nil
}

// Splits returns the per-segment deltas: start to first split, split to
// split, and a trailing delta from the last split to the stop time.
func (t *Timing) Splits() ([]time.Duration, error) {
	if !t.stopped {
		return nil, ErrTimingRunning
	}
	deltas := make([]time.Duration, 0, len(t.splits)+1)
	prev := t.start
	for _, s := range t.splits {
		deltas = append(deltas, s.Sub(prev))
		prev = s
	}
	deltas = append(deltas, t.end.Sub(prev))
	return deltas, nil
}

// AverageSplit returns the mean segment duration; with no splits recorded
// that is the total duration.
func (t *Timing) AverageSplit() (time.Duration, error) {
	deltas, err := t.Splits()
	if err != nil {
		return 0, err
	}
	var sum time.Duration
	for _, d := range deltas {
		sum += d
	}
	return sum / time.Duration(len(deltas)), nil
}

// Log stops the timing if needed and emits the result.
func (t *Timing) Log(l *xlog.Logger) {
	if l == nil {
		return
	}
	t.Stop()
	d, _ := t.Duration()
	l.Info().
		Str("timing", t.name).
		Dur("total", d).
		Int("splits", len(t.splits)).
		Msg("xdispatch: timing")
}

func (t *Timing) String() string {
	if !t.stopped {
		return fmt.Sprintf("Timing [%s]: running", t.name)
	}
	d, _ := t.Duration()
	deltas, _ := t.Splits()
	return fmt.Sprintf("Timing [%s]: %s (Splits: %v)", t.name, d, deltas)
}
