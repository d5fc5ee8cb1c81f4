// internal/history/history.go
//
// Completed-game history log.
// Responsibilities:
//   - Item: immutable summary of one won game.
//   - Log: newest-first list capped at MaxEntries, read once from a
//     Repository and rewritten in full on every new win.
//   - Book: one Log per owner, loaded lazily and kept in a bounded LRU;
//     Claim folds one owner's log into another's.
//
// Corrupt or missing stored data is treated as an empty list.

package history

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/boazFridenberg/memory-game/internal/game"
)

const (
	// Namespace is the storage key the log lives under.
	Namespace = "memoryGame:history"
	// MaxEntries caps the log; older entries drop off first.
	MaxEntries = 50
	// MaxCachedLogs bounds how many owners' logs a Book keeps loaded.
	MaxCachedLogs = 256
)

// Item is one completed game. Field names match the stored JSON.
type Item struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Grid     string    `json:"grid"`
	Attempts int       `json:"attempts"`
	TimeMs   int64     `json:"timeMs"`
}

// NewItem builds a history item from a finished game.
func NewItem(r game.Result) Item {
	return Item{
		ID:       uuid.NewString(),
		Date:     r.CompletedAt.UTC(),
		Grid:     r.Grid,
		Attempts: r.Attempts,
		TimeMs:   r.ElapsedMs,
	}
}

// Repository loads and saves the whole history list.
type Repository interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// Log is an in-memory copy of a Repository's list.
type Log struct {
	mu    sync.Mutex
	repo  Repository
	items []Item
}

// Open reads the repository once. Load failures are logged and yield
// an empty log; they are never returned.
func Open(ctx context.Context, repo Repository) *Log {
	items, err := repo.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("history unreadable, starting empty")
		items = nil
	}
	return &Log{repo: repo, items: truncate(items)}
}

// Items returns a copy of the list, newest first.
func (l *Log) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item{}, l.items...)
}

// Record prepends an item for r, truncates to MaxEntries, and saves the
// whole list. The in-memory list is updated even if Save fails.
func (l *Log) Record(ctx context.Context, r game.Result) (Item, error) {
	it := NewItem(r)

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]Item, 0, len(l.items)+1)
	next = append(next, it)
	next = append(next, l.items...)
	l.items = truncate(next)

	if err := l.repo.Save(ctx, append([]Item(nil), l.items...)); err != nil {
		return it, err
	}
	return it, nil
}

func truncate(items []Item) []Item {
	if len(items) > MaxEntries {
		return items[:MaxEntries]
	}
	return items
}

// merge adds items not already present (by ID), re-sorts newest first,
// truncates, and saves. The in-memory list changes only if Save succeeds.
func (l *Log) merge(ctx context.Context, more []Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(l.items)+len(more))
	next := make([]Item, 0, len(l.items)+len(more))
	for _, it := range append(append([]Item(nil), l.items...), more...) {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		next = append(next, it)
	}
	slices.SortStableFunc(next, func(a, b Item) int { return b.Date.Compare(a.Date) })
	next = truncate(next)

	if err := l.repo.Save(ctx, append([]Item(nil), next...)); err != nil {
		return err
	}
	l.items = next
	return nil
}

// drain empties the log and returns what it held.
func (l *Log) drain(ctx context.Context) ([]Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil, nil
	}
	if err := l.repo.Save(ctx, nil); err != nil {
		return nil, err
	}
	items := l.items
	l.items = nil
	return items, nil
}

// Book hands out one Log per owner. Logs are cached; the least recently
// used is dropped once more than MaxCachedLogs owners are loaded, and is
// read back from storage on next use.
type Book struct {
	mu   sync.Mutex
	open func(owner string) Repository
	logs *lru.Cache[string, *Log]
}

// NewBook returns a Book whose logs are backed by repoFor(owner).
func NewBook(repoFor func(owner string) Repository) *Book {
	logs, err := lru.New[string, *Log](MaxCachedLogs)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return &Book{open: repoFor, logs: logs}
}

// Log returns the owner's log, reading it from storage on first use.
func (b *Book) Log(ctx context.Context, owner string) *Log {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.logs.Get(owner); ok {
		return l
	}
	l := Open(ctx, b.open(owner))
	b.logs.Add(owner, l)
	return l
}

// Len reports how many logs are loaded.
func (b *Book) Len() int { return b.logs.Len() }

// Claim moves every item in from's log into to's log, newest first and
// capped at MaxEntries, then empties from. Items are merged by ID, so a
// claim retried after a partial failure does not duplicate entries.
func (b *Book) Claim(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	src := b.Log(ctx, from)
	moved := src.Items()
	if len(moved) == 0 {
		return nil
	}
	if err := b.Log(ctx, to).merge(ctx, moved); err != nil {
		return fmt.Errorf("merge into %s: %w", to, err)
	}
	if _, err := src.drain(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", from, err)
	}
	return nil
}
