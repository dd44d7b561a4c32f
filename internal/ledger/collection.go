package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"agriledger/internal/model"
)

// Collection is a typed view over one collection of a DocumentStore.
type Collection[T any] struct {
	store DocumentStore
	name  string
}

// NewCollection returns a typed view of the named collection.
func NewCollection[T any](store DocumentStore, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// All decodes every item of the collection.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	items, err := c.store.GetCollection(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return model.DecodeItems[T](items)
}

// Set replaces the collection with values.
func (c *Collection[T]) Set(ctx context.Context, values []T) error {
	items, err := model.EncodeItems(values)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.name, err)
	}
	return c.store.SetCollection(ctx, c.name, items)
}

// Prepend inserts v at the front and returns the number of items after
// the write.
func (c *Collection[T]) Prepend(ctx context.Context, v T) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encoding %s item: %w", c.name, err)
	}
	items, err := c.store.Append(ctx, c.name, raw)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
