// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - Difficulty: the two fixed grid tiers (easy 4x4, hard 6x6).
//   - Card: one face of a pair.
//   - Phase / Outcome: coarse session state and per-selection result.
//   - Snapshot / Result: read-only views handed to callers.

package game

import (
	"errors"
	"strconv"
	"time"
)

// Difficulty selects the grid size.
type Difficulty string

const (
	Easy Difficulty = "easy"
	Hard Difficulty = "hard"
)

// ErrInvalidDifficulty is returned for anything other than Easy or Hard.
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// Valid reports whether d is one of the supported tiers.
func (d Difficulty) Valid() bool { return d == Easy || d == Hard }

// GridSize returns the grid dimension n (the deck holds n*n cards).
func (d Difficulty) GridSize() int {
	if d == Hard {
		return 6
	}
	return 4
}

// Label renders the grid as "4x4" / "6x6", as stored in history.
func (d Difficulty) Label() string {
	n := strconv.Itoa(d.GridSize())
	return n + "x" + n
}

// Card is a single card on the board.
// Two cards share Content per pair; ID is unique across decks.
type Card struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Matched bool   `json:"matched"`
}

// Phase is the coarse lifecycle state of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePlaying Phase = "playing"
	PhaseWon     Phase = "won"
)

// Outcome reports what a SelectCard call did.
//   - "ignored":  locked, unknown, matched, or the card already chosen.
//   - "first":    card became choice 1.
//   - "match":    choice 2 matched choice 1.
//   - "mismatch": choice 2 did not match.
//   - "won":      a match that completed the deck.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeFirst    Outcome = "first"
	OutcomeMatch    Outcome = "match"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeWon      Outcome = "won"
)

// Snapshot is a copy of session state safe to read without the lock.
type Snapshot struct {
	ID         string
	Difficulty Difficulty
	Phase      Phase
	Deck       []Card
	Choice1    string // card ID, "" if empty
	Choice2    string
	Locked     bool
	Attempts   int
	ElapsedMs  int64
	Running    bool
}

// Result is what the win detector reports for a finished game.
type Result struct {
	SessionID   string
	Difficulty  Difficulty
	Grid        string
	Attempts    int
	ElapsedMs   int64
	CompletedAt time.Time
}
