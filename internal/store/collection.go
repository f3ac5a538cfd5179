package store

import (
	"context"
	"errors"

	"smartsender/internal/storage"
)

// Collection is a whole-value list persisted under one key.
type Collection[T any] struct {
	store *Store
	key   string
	seed  func() []T
}

// NewCollection binds key to s. seed must return a new slice on every call;
// a nil seed means the collection starts empty.
func NewCollection[T any](s *Store, key string, seed func() []T) *Collection[T] {
	if seed == nil {
		seed = func() []T { return []T{} }
	}
	return &Collection[T]{store: s, key: key, seed: seed}
}

func (c *Collection[T]) Key() string { return c.key }

// read decodes the stored list. A null value counts as absent.
func (c *Collection[T]) read(ctx context.Context) ([]T, error) {
	var items []T
	if err := c.store.Read(ctx, c.key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, storage.ErrNotFound
	}
	return items, nil
}

func needsSeed(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrCorrupt)
}

// Load returns a freshly decoded copy of the collection. An absent or
// corrupt value is replaced by the seed. When the substrate fails the seed
// is returned without being written.
func (c *Collection[T]) Load(ctx context.Context) []T {
	items, err := c.read(ctx)
	if err == nil {
		return items
	}
	if !needsSeed(err) {
		c.store.softFail(c.key, "read", err)
		return c.seed()
	}

	m := c.store.lock(c.key)
	m.Lock()
	defer m.Unlock()
	items, err = c.loadLocked(ctx)
	if err != nil {
		c.store.softFail(c.key, "seed", err)
		return c.seed()
	}
	return items
}

// loadLocked reads the collection with the key's lock held, writing the
// seed back when the value is absent or corrupt. Substrate failures are
// returned.
func (c *Collection[T]) loadLocked(ctx context.Context) ([]T, error) {
	items, err := c.read(ctx)
	if err == nil {
		return items, nil
	}
	if !needsSeed(err) {
		return nil, err
	}
	if errors.Is(err, ErrCorrupt) {
		c.store.softFail(c.key, "decode", err)
	}
	items = c.seed()
	if err := c.store.Set(ctx, c.key, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.store.Set(ctx, c.key, items)
}

// Update runs a read-modify-write of the collection while holding its key's
// lock. fn receives a private copy; returning an error aborts without
// writing. A failed read aborts with apperr.ErrStorageUnavailable. fn may
// load other collections but must not touch this one.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	m := c.store.lock(c.key)
	m.Lock()
	defer m.Unlock()

	items, err := c.loadLocked(ctx)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.Save(ctx, next)
}
