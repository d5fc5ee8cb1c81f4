// internal/game/deck.go
//
// Deck generation: take the first n²/2 palette symbols, emit two cards
// per symbol, then Fisher–Yates shuffle the whole set.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	randv2 "math/rand/v2"
)

var (
	ErrOddGrid         = errors.New("grid must have an even, positive number of cells")
	ErrPaletteTooSmall = errors.New("palette too small for grid")
)

// Rand is the randomness a shuffle needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return randv2.IntN(n) }

// DefaultRand draws from the runtime-seeded math/rand/v2 source.
var DefaultRand Rand = globalRand{}

// SeededRand returns a deterministic Rand, used for daily decks.
func SeededRand(seed uint64) Rand {
	return randv2.New(randv2.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// MakeDeck builds a shuffled deck of n*n cards for an n×n grid.
func MakeDeck(n int, symbols []string, rng Rand) ([]Card, error) {
	cells := n * n
	if n <= 0 || cells%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOddGrid, n, n)
	}
	pairs := cells / 2
	if len(symbols) < pairs {
		return nil, fmt.Errorf("%w: need %d symbols, have %d", ErrPaletteTooSmall, pairs, len(symbols))
	}
	if rng == nil {
		rng = DefaultRand
	}

	deckID := randomID()
	deck := make([]Card, 0, cells)
	for i, s := range symbols[:pairs] {
		deck = append(deck,
			Card{ID: fmt.Sprintf("%s-%d-a", deckID, i), Content: s},
			Card{ID: fmt.Sprintf("%s-%d-b", deckID, i), Content: s},
		)
	}
	shuffle(deck, rng)
	return deck, nil
}

// shuffle is an in-place Fisher–Yates permutation.
func shuffle(deck []Card, rng Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// randomID returns a compact 16‑hex‑char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// NewID exposes randomID for session identifiers.
func NewID() string { return randomID() }
