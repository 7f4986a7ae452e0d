// Package remote defines the outbound port to the remote row collaborator
// that receives a best-effort copy of every new transaction.
package remote

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one mirrored transaction: its description and signed amount.
type Row struct {
	Text      string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

var ErrEmptyText = errors.New("row text cannot be empty")

// Validate rejects rows that carry no description.
func (r Row) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Ports for outbound adapters.
type (
	RowWriter interface {
		Insert(ctx context.Context, r Row) error
	}

	// RowLister returns every stored row, most recently created first.
	RowLister interface {
		FetchAll(ctx context.Context) ([]Row, error)
	}

	Rows interface {
		RowWriter
		RowLister
	}
)

// SortNewestFirst orders rows by creation time descending. Rows with equal
// timestamps keep their relative order.
func SortNewestFirst(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

// Mirror forwards ledger inserts straight to a RowWriter.
type Mirror struct {
	w   RowWriter
	now func() time.Time
}

func NewMirror(w RowWriter) *Mirror {
	return &Mirror{w: w, now: time.Now}
}

// InsertRow implements ledger.Mirror.
func (m *Mirror) InsertRow(ctx context.Context, text string, amount decimal.Decimal) error {
	return m.w.Insert(ctx, Row{Text: text, Amount: amount, CreatedAt: m.now()})
}
