package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqlKV implements KV on a "kv" table. The SQLite and Postgres backends
// only differ in driver, placeholders and migrations.
type sqlKV struct {
	db       *sql.DB
	getQuery string
	setQuery string
	delQuery string
}

func newSQLKV(db *sql.DB, placeholder func(n int) string) *sqlKV {
	return &sqlKV{
		db:       db,
		getQuery: "SELECT value FROM kv WHERE key = " + placeholder(1),
		setQuery: "INSERT INTO kv (key, value, updated_at) VALUES (" + placeholder(1) + ", " + placeholder(2) + ", CURRENT_TIMESTAMP) " +
			"ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		delQuery: "DELETE FROM kv WHERE key = " + placeholder(1),
	}
}

func (s *sqlKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqlKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.setQuery, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *sqlKV) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.setQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *sqlKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.delQuery, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *sqlKV) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
