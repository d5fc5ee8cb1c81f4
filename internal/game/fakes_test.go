package game

import (
	"sort"
	"time"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type pendingCall struct {
	at       time.Duration
	f        func()
	canceled bool
}

// manualScheduler queues callbacks; Fire runs the ones that are due.
type manualScheduler struct {
	elapsed time.Duration
	calls   []*pendingCall
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) func() {
	p := &pendingCall{at: m.elapsed + d, f: f}
	m.calls = append(m.calls, p)
	return func() { p.canceled = true }
}

// Advance moves scheduler time forward and runs every callback now due.
func (m *manualScheduler) Advance(d time.Duration) {
	m.elapsed += d
	sort.SliceStable(m.calls, func(i, j int) bool { return m.calls[i].at < m.calls[j].at })
	var rest []*pendingCall
	var due []*pendingCall
	for _, p := range m.calls {
		if p.at <= m.elapsed {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	m.calls = rest
	for _, p := range due {
		if !p.canceled {
			p.f()
		}
	}
}

// FireAll runs queued callbacks, even canceled ones, to mimic a timer
// that fired just before it was stopped.
func (m *manualScheduler) FireAll() {
	calls := m.calls
	m.calls = nil
	for _, p := range calls {
		p.f()
	}
}

func (m *manualScheduler) Pending() int {
	n := 0
	for _, p := range m.calls {
		if !p.canceled {
			n++
		}
	}
	return n
}

// identityRand leaves the deck in palette order: IntN(n) = n-1 swaps
// each element with itself.
type identityRand struct{}

func (identityRand) IntN(n int) int { return n - 1 }

// seqRand replays fixed values modulo n.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)] % n
	r.i++
	return v
}
