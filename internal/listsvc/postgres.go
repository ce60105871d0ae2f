package listsvc

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores list membership in a single indexed table,
// (list_id, value) primary key, so Contains is an index lookup rather than a
// full scan (spec §4.7: "index-backed for O(log n) or better contains").
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects using dsn and assumes the list_entries table
// already exists:
//
//	CREATE TABLE list_entries (
//		list_id TEXT NOT NULL,
//		value   TEXT NOT NULL,
//		PRIMARY KEY (list_id, value)
//	);
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Contains(ctx context.Context, listID, value string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM list_entries WHERE list_id = $1 AND value = $2)`,
		listID, value,
	).Scan(&exists)
	return exists, err
}

func (p *PostgresBackend) Add(ctx context.Context, listID, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO list_entries (list_id, value) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		listID, value,
	)
	return err
}

func (p *PostgresBackend) Remove(ctx context.Context, listID, value string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM list_entries WHERE list_id = $1 AND value = $2`,
		listID, value,
	)
	return err
}

func (p *PostgresBackend) GetAll(ctx context.Context, listID string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT value FROM list_entries WHERE list_id = $1`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
