package storage

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
)

// PostgresKV stores values in a Postgres table.
type PostgresKV struct {
	*sqlKV
}

func NewPostgresKV(url string) (*PostgresKV, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(url); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresKV{sqlKV: newSQLKV(db, func(n int) string { return "$" + strconv.Itoa(n) })}, nil
}
