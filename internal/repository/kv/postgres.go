package kv

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres stores entries in the kv_entries table.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const upsertEntry = `
INSERT INTO kv_entries (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at
`

func (r *postgresRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *postgresRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, upsertEntry, key, value)
	return err
}

func (r *postgresRepo) MultiSet(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for k, v := range entries {
		if _, err := tx.Exec(ctx, upsertEntry, k, v); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) MultiGet(ctx context.Context, keys []string) ([]*string, error) {
	out := make([]*string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM kv_entries WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		found[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, k := range keys {
		if v, ok := found[k]; ok {
			out[i] = &v
		}
	}
	return out, nil
}

func (r *postgresRepo) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = ANY($1)`, keys)
	return err
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
