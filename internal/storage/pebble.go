package storage

import (
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// Pebble keeps collections in an embedded on-disk LSM. It is the default
// single-node backend.
type Pebble struct {
	db   *pebble.DB
	path string
}

func OpenPebble(path string) (*Pebble, error) {
	if path == "" {
		return nil, errors.New("storage: pebble path is empty")
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "pebble open %s", path)
	}
	return &Pebble{db: db, path: path}, nil
}

func (p *Pebble) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "pebble get %s", key)
	}
	defer closer.Close()
	// v is only valid until closer.Close.
	return append([]byte(nil), v...), nil
}

func (p *Pebble) Set(_ context.Context, key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return errors.Wrapf(err, "pebble set %s", key)
	}
	return nil
}

func (p *Pebble) Delete(_ context.Context, key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return errors.Wrapf(err, "pebble delete %s", key)
	}
	return nil
}

func (p *Pebble) DeletePrefix(_ context.Context, prefix string) error {
	start := []byte(prefix)
	end := prefixUpperBound(start)
	if end == nil {
		iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start})
		if err != nil {
			return errors.Wrap(err, "pebble iter")
		}
		defer iter.Close()
		b := p.db.NewBatch()
		for iter.First(); iter.Valid(); iter.Next() {
			if err := b.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				return errors.Wrap(err, "pebble batch delete")
			}
		}
		if err := iter.Error(); err != nil {
			return errors.Wrap(err, "pebble iter")
		}
		return errors.Wrap(b.Commit(pebble.Sync), "pebble commit")
	}
	if err := p.db.DeleteRange(start, end, pebble.Sync); err != nil {
		return errors.Wrapf(err, "pebble delete range %s", prefix)
	}
	return nil
}

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when the prefix is empty or all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
