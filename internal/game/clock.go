// internal/game/clock.go
//
// Time sources injected into a Session:
//   - Clock: wall clock for elapsed time and win timestamps.
//   - Scheduler: deferred callbacks (the post-evaluation clear).
//
// The real implementations wrap time.Now and time.AfterFunc. Tests swap
// in a manual clock/scheduler so delays fire on demand.

package game

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Scheduler runs f once after d. The returned func cancels it; calling
// cancel after f has run is a no-op.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

var (
	SystemClock     Clock     = systemClock{}
	SystemScheduler Scheduler = systemScheduler{}
)
