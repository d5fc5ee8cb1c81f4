// internal/game/session.go
//
// Session state machine for a single memory game.
// Responsibilities:
//   - Start/restart games (idle → playing, any → playing).
//   - Accept card selections, ignoring ineligible ones.
//   - Evaluate completed pairs: lock, count the attempt, mark matches,
//     schedule the deferred clear that unlocks the board.
//   - Detect the win exactly once per game, freeze the timer, and report
//     the Result through OnWin.
//
// Concurrency:
//   - All state is guarded by mu; selections, deferred clears, restarts
//     and reads are serialized, so the session behaves as one logical
//     thread.
//   - Every restart bumps gen. A deferred clear captures gen when it is
//     scheduled and does nothing if the session has moved on.
//   - OnWin runs after mu is released.

package game

import (
	"sync"
	"time"
)

const (
	DefaultMatchDelay    = 300 * time.Millisecond
	DefaultMismatchDelay = 800 * time.Millisecond
)

// Options configures a Session. Zero values fall back to the system
// clock/scheduler, DefaultRand, and the default delays.
type Options struct {
	Symbols       []string
	Rand          Rand
	Clock         Clock
	Scheduler     Scheduler
	MatchDelay    time.Duration
	MismatchDelay time.Duration
	// OnWin is called once per completed game, without the session lock held.
	OnWin func(Result)
}

// Session holds the state of one player's board.
type Session struct {
	mu   sync.Mutex
	id   string
	opts Options

	difficulty Difficulty
	phase      Phase
	deck       []Card
	index      map[string]int // card ID → position in deck
	choice1    string
	choice2    string
	locked     bool
	attempts   int
	watch      stopwatch

	gen        uint64
	cancelTick func() // cancels the pending deferred clear, if any
	recorded   bool
	lastActive time.Time
}

// NewSession returns an idle session. Call StartNewGame to deal a deck.
func NewSession(id string, opts Options) *Session {
	if opts.Rand == nil {
		opts.Rand = DefaultRand
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	if opts.MatchDelay <= 0 {
		opts.MatchDelay = DefaultMatchDelay
	}
	if opts.MismatchDelay <= 0 {
		opts.MismatchDelay = DefaultMismatchDelay
	}
	return &Session{
		id:         id,
		opts:       opts,
		difficulty: Easy,
		phase:      PhaseIdle,
		lastActive: opts.Clock.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartNewGame deals a fresh deck for d using the session's Rand.
func (s *Session) StartNewGame(d Difficulty) error {
	return s.Restart(d, nil)
}

// Restart deals a fresh deck for d, shuffled with rng (nil means the
// session's Rand). Attempts and elapsed time reset to zero, choices and
// lock are cleared, and any pending deferred clear is discarded.
func (s *Session) Restart(d Difficulty, rng Rand) error {
	if !d.Valid() {
		return ErrInvalidDifficulty
	}
	if rng == nil {
		rng = s.opts.Rand
	}
	deck, err := MakeDeck(d.GridSize(), s.opts.Symbols, rng)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock.Now()
	s.invalidate()
	s.difficulty = d
	s.deck = deck
	s.index = make(map[string]int, len(deck))
	for i, c := range deck {
		s.index[c.ID] = i
	}
	s.clearChoices()
	s.attempts = 0
	s.recorded = false
	s.phase = PhasePlaying
	s.watch.reset()
	s.watch.start(now)
	s.lastActive = now
	return nil
}

// SelectCard chooses the card with the given ID.
// Ineligible selections return OutcomeIgnored and change nothing.
func (s *Session) SelectCard(cardID string) Outcome {
	s.mu.Lock()
	out, res, won := s.selectLocked(cardID)
	s.mu.Unlock()

	if won && s.opts.OnWin != nil {
		s.opts.OnWin(res)
	}
	return out
}

func (s *Session) selectLocked(cardID string) (Outcome, Result, bool) {
	if s.phase != PhasePlaying || s.locked {
		return OutcomeIgnored, Result{}, false
	}
	i, ok := s.index[cardID]
	if !ok || s.deck[i].Matched {
		return OutcomeIgnored, Result{}, false
	}

	now := s.opts.Clock.Now()
	s.lastActive = now
	if !s.watch.running {
		s.watch.start(now)
	}

	// Identity, not content: clicking the same card twice is not a pair.
	if s.choice1 == cardID {
		return OutcomeIgnored, Result{}, false
	}
	if s.choice1 == "" {
		s.choice1 = cardID
		return OutcomeFirst, Result{}, false
	}
	s.choice2 = cardID
	return s.evaluate()
}

// evaluate runs with both choices filled.
func (s *Session) evaluate() (Outcome, Result, bool) {
	s.locked = true
	s.attempts++

	c1 := s.deck[s.index[s.choice1]]
	c2 := s.deck[s.index[s.choice2]]
	if c1.Content != c2.Content {
		s.scheduleClear(s.opts.MismatchDelay)
		return OutcomeMismatch, Result{}, false
	}

	for i := range s.deck {
		if s.deck[i].Content == c1.Content {
			s.deck[i].Matched = true
		}
	}
	s.scheduleClear(s.opts.MatchDelay)

	if res, won := s.detectWin(); won {
		return OutcomeWon, res, true
	}
	return OutcomeMatch, Result{}, false
}

// scheduleClear arranges for the choices to clear and the board to
// unlock after d, unless the session is restarted or closed first.
func (s *Session) scheduleClear(d time.Duration) {
	gen := s.gen
	s.cancelTick = s.opts.Scheduler.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		s.clearChoices()
		s.cancelTick = nil
	})
}

// detectWin reports the finished game the first time every card is
// matched. Later calls for the same game return false.
func (s *Session) detectWin() (Result, bool) {
	if s.recorded || len(s.deck) == 0 {
		return Result{}, false
	}
	for _, c := range s.deck {
		if !c.Matched {
			return Result{}, false
		}
	}

	now := s.opts.Clock.Now()
	s.watch.stop(now)
	s.phase = PhaseWon
	s.recorded = true
	return Result{
		SessionID:   s.id,
		Difficulty:  s.difficulty,
		Grid:        s.difficulty.Label(),
		Attempts:    s.attempts,
		ElapsedMs:   s.watch.elapsed(now).Milliseconds(),
		CompletedAt: now,
	}, true
}

func (s *Session) clearChoices() {
	s.choice1, s.choice2 = "", ""
	s.locked = false
}

// invalidate drops the pending deferred clear and bumps the generation
// so a clear that already fired but is waiting on mu becomes a no-op.
func (s *Session) invalidate() {
	s.gen++
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}
}

// Close discards pending timers. The session stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate()
}

// Snapshot copies the current state, computing elapsed time now.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck := make([]Card, len(s.deck))
	copy(deck, s.deck)
	return Snapshot{
		ID:         s.id,
		Difficulty: s.difficulty,
		Phase:      s.phase,
		Deck:       deck,
		Choice1:    s.choice1,
		Choice2:    s.choice2,
		Locked:     s.locked,
		Attempts:   s.attempts,
		ElapsedMs:  s.watch.elapsed(s.opts.Clock.Now()).Milliseconds(),
		Running:    s.watch.running,
	}
}

// LastActive is the time of the last restart or accepted selection.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
