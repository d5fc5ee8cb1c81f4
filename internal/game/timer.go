package game

import "time"

// TickResolution is the granularity elapsed time is reported in.
const TickResolution = 100 * time.Millisecond

// stopwatch measures elapsed play time as a wall-clock delta.
// Time accrues only between start and stop; reads are truncated to
// whole ticks so reported values match a 100ms counter.
type stopwatch struct {
	accrued time.Duration
	since   time.Time
	running bool
	peak    time.Duration // highest value reported; reads never go below it
}

func (w *stopwatch) reset() { *w = stopwatch{} }

func (w *stopwatch) start(now time.Time) {
	if w.running {
		return
	}
	w.since = now
	w.running = true
}

func (w *stopwatch) stop(now time.Time) {
	if !w.running {
		return
	}
	w.accrued += nonNegative(now.Sub(w.since))
	w.running = false
	if w.accrued < w.peak {
		w.accrued = w.peak
	}
}

func (w *stopwatch) elapsed(now time.Time) time.Duration {
	d := w.accrued
	if w.running {
		d += nonNegative(now.Sub(w.since))
	}
	d = d.Truncate(TickResolution)
	if d < w.peak {
		return w.peak
	}
	w.peak = d
	return d
}

// nonNegative guards against a clock stepping backwards.
func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
