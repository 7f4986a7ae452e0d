// Package memory is an in-process remote row store used in development
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"budgetbook/internal/remote"
)

type Store struct {
	mu   sync.Mutex
	rows []remote.Row
	now  func() time.Time
}

var _ remote.Rows = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// Insert stores r, stamping CreatedAt when it is zero.
func (s *Store) Insert(_ context.Context, r remote.Row) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.rows = append(s.rows, r)
	return nil
}

func (s *Store) FetchAll(_ context.Context) ([]remote.Row, error) {
	s.mu.Lock()
	out := append([]remote.Row(nil), s.rows...)
	s.mu.Unlock()

	// Stored oldest first; reversing before the stable sort keeps later
	// inserts ahead of earlier ones with the same timestamp.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	remote.SortNewestFirst(out)
	return out, nil
}

// Len is the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
