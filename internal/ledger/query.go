package ledger

import (
	"sort"
	"strings"
	"time"

	"budgetbook/internal/core"
)

// SortKey orders filtered transactions.
type SortKey string

const (
	SortNewest  SortKey = "newest"
	SortOldest  SortKey = "oldest"
	SortHighest SortKey = "highest"
	SortLowest  SortKey = "lowest"
)

// Period restricts transactions to a window ending now.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// FilterAll disables the type or category filter of a Query.
const FilterAll = "all"

// Query selects and orders transactions. Empty fields mean no filtering
// and newest first.
type Query struct {
	Search   string
	Type     string
	Category string
	Sort     SortKey
	Period   Period
}

// ParseSortKey accepts the known sort keys; empty means newest.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortHighest, SortLowest:
		return k, nil
	default:
		return "", &core.ValidationError{Field: "sort", Reason: "must be newest, oldest, highest or lowest"}
	}
}

// ParsePeriod accepts the known periods; empty means all.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", &core.ValidationError{Field: "period", Reason: "must be all, today, week, month or year"}
	}
}

// FilterAndSort returns a new slice with the matching transactions. The
// stored order is never modified.
func (l *Ledger) FilterAndSort(q Query) []core.Transaction {
	txs := l.Transactions()
	now := l.now()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	typ := strings.ToLower(strings.TrimSpace(q.Type))
	category := core.NormalizeCategoryKey(q.Category)

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.Description), search) &&
			!strings.Contains(strings.ToLower(tx.Category), search) {
			continue
		}
		if typ != "" && typ != FilterAll && string(tx.Type) != typ {
			continue
		}
		if category != "" && category != FilterAll && tx.Category != category {
			continue
		}
		if !inPeriod(tx.Date, q.Period, now) {
			continue
		}
		out = append(out, tx)
	}

	sortTransactions(out, q.Sort)
	return out
}

func sortTransactions(txs []core.Transaction, key SortKey) {
	var less func(a, b core.Transaction) bool
	switch key {
	case SortOldest:
		less = func(a, b core.Transaction) bool {
			if a.Date.Equal(b.Date) {
				return a.ID < b.ID
			}
			return a.Date.Before(b.Date)
		}
	case SortHighest:
		less = func(a, b core.Transaction) bool { return a.Amount.Abs().GreaterThan(b.Amount.Abs()) }
	case SortLowest:
		less = func(a, b core.Transaction) bool { return a.Amount.Abs().LessThan(b.Amount.Abs()) }
	default:
		// Ids grow with every insert, so they order same-day entries.
		less = func(a, b core.Transaction) bool {
			if a.Date.Equal(b.Date) {
				return a.ID > b.ID
			}
			return a.Date.After(b.Date)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return less(txs[i], txs[j]) })
}

// inPeriod reports whether t falls in p relative to now. Today, month and
// year are calendar windows in now's location; week is the last 7 days.
func inPeriod(t time.Time, p Period, now time.Time) bool {
	t = t.In(now.Location())
	switch p {
	case PeriodToday:
		y1, m1, d1 := t.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case PeriodWeek:
		return !t.Before(now.AddDate(0, 0, -7))
	case PeriodMonth:
		return sameMonth(t, now)
	case PeriodYear:
		return t.Year() == now.Year()
	default:
		return true
	}
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
