package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boazFridenberg/memory-game/internal/store"
)

// KVRepository stores the list as a JSON array under one key.
type KVRepository struct {
	kv  store.KV
	key string
}

// NewKVRepository uses Namespace, suffixed with ":owner" when owner is set.
func NewKVRepository(kv store.KV, owner string) *KVRepository {
	return &KVRepository{kv: kv, key: Key(owner)}
}

// Key returns the storage key for an owner's history.
func Key(owner string) string {
	if owner == "" {
		return Namespace
	}
	return Namespace + ":" + owner
}

// Load returns nil, nil when nothing is stored yet.
func (r *KVRepository) Load(ctx context.Context) ([]Item, error) {
	raw, ok, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return items, nil
}

func (r *KVRepository) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.key, raw)
}
