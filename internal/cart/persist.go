package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"MiniCart/internal/catalog"
)

// StorageKey is the single key the cart is stored under.
const StorageKey = "cart"

// ErrCorruptCart means the stored value is not a JSON array of products.
var ErrCorruptCart = errors.New("stored cart is corrupt")

// Persister mirrors the cart to a Store after every mutation.
type Persister struct {
	Store Store
	Key   string
}

func NewPersister(store Store) *Persister {
	return &Persister{Store: store, Key: StorageKey}
}

// Save serializes entries and writes them through to the store.
func (p *Persister) Save(ctx context.Context, entries []catalog.Product) error {
	if entries == nil {
		entries = []catalog.Product{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := p.Store.SetItem(ctx, p.Key, string(raw)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Load reads the stored cart. ok is false when nothing was stored yet.
func (p *Persister) Load(ctx context.Context) (entries []catalog.Product, ok bool, err error) {
	raw, found, err := p.Store.GetItem(ctx, p.Key)
	if err != nil {
		return nil, false, fmt.Errorf("load cart: %w", err)
	}
	if !found || raw == "" {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	return entries, true, nil
}
