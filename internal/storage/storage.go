// Package storage provides the flat key-value substrate the collections are
// persisted on. Values are opaque bytes; keys are plain strings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("storage: key not found")

type KV interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Options carries the handles a driver may need.
type Options struct {
	Path  string
	Redis *redis.Client
	DB    *sql.DB
}

// Open returns the KV backend for driver.
func Open(driver string, opts Options) (KV, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "pebble":
		return OpenPebble(opts.Path)
	case "redis":
		if opts.Redis == nil {
			return nil, errors.New("storage: redis driver needs a client")
		}
		return NewRedis(opts.Redis), nil
	case "postgres":
		if opts.DB == nil {
			return nil, errors.New("storage: postgres driver needs a database handle")
		}
		return NewPostgres(opts.DB), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
