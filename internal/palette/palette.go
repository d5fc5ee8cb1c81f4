// internal/palette/palette.go
//
// Provides the fixed, ordered symbol palette cards are drawn from.
//
// Responsibilities:
//   - Load the embedded palette exactly once (sync.Once).
//   - Reject duplicate symbols, since two pairs sharing a symbol would
//     match each other.
//   - Supply Symbols/Stats to the game engine and diagnostics.
//
// A grid of n×n cards uses the first n²/2 symbols, so the order of
// assets/palette.txt is significant.

package palette

import (
	"errors"
	"fmt"
	"sync"

	"github.com/boazFridenberg/memory-game/assets"
)

var (
	initOnce   sync.Once
	symbols    []string
	initialErr error
)

// Init loads the palette exactly once.
// Returns an error if the palette is empty or contains duplicates.
func Init() error {
	initOnce.Do(func() {
		list, err := assets.PaletteList()
		if err != nil {
			initialErr = err
			return
		}
		if err := validate(list); err != nil {
			initialErr = err
			return
		}
		symbols = list
	})
	return initialErr
}

func validate(list []string) error {
	if len(list) == 0 {
		return errors.New("palette: no symbols")
	}
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("palette: duplicate symbol %q", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Symbols returns a copy of the loaded palette in deck order.
// Callers must run Init first; before that the slice is empty.
func Symbols() []string {
	return append([]string(nil), symbols...)
}

// Stats returns the number of loaded symbols and the largest square grid
// dimension (even, so cells pair up) those symbols can fill.
func Stats() (count int, largestGrid int) {
	count = len(symbols)
	for n := 2; n*n/2 <= count; n += 2 {
		largestGrid = n
	}
	return count, largestGrid
}
