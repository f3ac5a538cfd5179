package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// Postgres stores each key as one row of kv_store (see db.AutoMigrate).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = $1", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "postgres get %s", key)
	}
	return v, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return errors.Wrapf(err, "postgres set %s", key)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = $1", key); err != nil {
		return errors.Wrapf(err, "postgres delete %s", key)
	}
	return nil
}

func (p *Postgres) DeletePrefix(ctx context.Context, prefix string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key LIKE $1 ESCAPE '\'`, escapeLike(prefix)+"%"); err != nil {
		return errors.Wrapf(err, "postgres delete prefix %s", prefix)
	}
	return nil
}

// Close is a no-op: the *sql.DB belongs to db.Database.
func (p *Postgres) Close() error { return nil }

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
