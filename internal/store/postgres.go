package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores each collection as one jsonb row in portal_state. A save
// replaces the whole row, preserving the full-overwrite contract.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres store over an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Load fetches the serialized collection for key, nil when absent.
func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM portal_state WHERE key = $1`
	var raw []byte
	if err := p.pool.QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

// Save upserts the collection row.
func (p *Postgres) Save(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO portal_state (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	_, err := p.pool.Exec(ctx, query, key, string(value))
	return err
}

// Delete removes the collection row if present.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM portal_state WHERE key = $1`
	_, err := p.pool.Exec(ctx, query, key)
	return err
}
