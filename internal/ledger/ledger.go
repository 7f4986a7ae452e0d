// Package ledger implements the Ledger Store: the in-memory owner of
// transactions, budgets, categories and settings.
//
// Every mutator works on a copy of the current state, saves that copy to
// the key-value store and only then commits it, so a failed save leaves the
// ledger untouched. Derived views (totals, filtered lists, breakdowns) are
// computed on demand from the committed state.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

// Order decides where new transactions are inserted.
type Order int

const (
	// NewestFirst inserts new transactions at the front.
	NewestFirst Order = iota
	// OldestFirst appends new transactions at the end.
	OldestFirst
)

// Mirror receives a best-effort copy of every new transaction. Failures are
// logged and never affect local state.
type Mirror interface {
	InsertRow(ctx context.Context, text string, amount decimal.Decimal) error
}

type state struct {
	transactions []core.Transaction
	budgets      map[string]decimal.Decimal
	categories   core.CategoryRegistry
	settings     core.Settings
	nextID       int64
}

func defaultState() state {
	return state{
		budgets:    make(map[string]decimal.Decimal),
		categories: core.NewCategoryRegistry(nil),
		settings:   core.DefaultSettings(),
		nextID:     1,
	}
}

func (s state) clone() state {
	out := s
	out.transactions = append([]core.Transaction(nil), s.transactions...)
	out.budgets = make(map[string]decimal.Decimal, len(s.budgets))
	for k, v := range s.budgets {
		out.budgets[k] = v
	}
	return out
}

// Ledger owns all ledger collections for the lifetime of a session.
type Ledger struct {
	mu     sync.RWMutex
	st     state
	rev    uint64
	kv     storage.KV
	order  Order
	now    func() time.Time
	mirror Mirror
	logger *log.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithOrder sets where new transactions are inserted.
func WithOrder(o Order) Option {
	return func(l *Ledger) { l.order = o }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMirror forwards new transactions to a remote collaborator.
func WithMirror(m Mirror) Option {
	return func(l *Ledger) { l.mirror = m }
}

// WithLogger sets the logger; the ledger tags it with its own component.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent(log.ComponentLedger) }
}

// Open loads persisted state from kv. Missing keys fall back to defaults.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		kv:  kv,
		now: time.Now,
		logger: log.New(log.Config{
			Handler:   slog.Default().Handler(),
			Component: log.ComponentLedger,
		}),
	}
	for _, opt := range opts {
		opt(l)
	}

	st, err := load(ctx, kv)
	if err != nil {
		return nil, err
	}
	l.st = st

	l.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldCount, len(st.transactions),
		"budgets", len(st.budgets),
		"next_id", st.nextID)
	return l, nil
}

func load(ctx context.Context, kv storage.KV) (state, error) {
	st := defaultState()
	raw := make(map[string]string, len(storage.AllKeys))
	for _, key := range storage.AllKeys {
		v, ok, err := kv.Get(ctx, key)
		if err != nil {
			return st, fmt.Errorf("load %s: %w", key, err)
		}
		if ok {
			raw[key] = v
		}
	}
	if err := decodeInto(&st, raw); err != nil {
		return st, fmt.Errorf("load: %w", err)
	}
	return st, nil
}

// save is the explicit persistence step every mutator calls before it
// commits the new state.
func (l *Ledger) save(ctx context.Context, st state) error {
	values, err := encodeState(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := storage.SetAll(ctx, l.kv, values); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// mutate runs fn on a copy of the state, saves it and commits it.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(*state) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.st.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := l.save(ctx, next); err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, op, log.FieldError, err)
		return err
	}
	l.st = next
	l.rev++
	l.logger.DebugContext(ctx, "Ledger saved", log.FieldOperation, op, log.FieldRevision, l.rev)
	return nil
}

// Revision increases by one after every committed mutation.
func (l *Ledger) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rev
}

// Now is the ledger's clock.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Settings returns the current settings.
func (l *Ledger) Settings() core.Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.settings
}

// UpdateSettings validates and replaces the settings. Blank fields take
// their default value.
func (l *Ledger) UpdateSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return core.Settings{}, err
	}
	err := l.mutate(ctx, log.OpSettings, func(st *state) error {
		st.settings = s
		return nil
	})
	if err != nil {
		return core.Settings{}, err
	}
	return s, nil
}

// FormatAmount formats d with the configured currency symbol.
func (l *Ledger) FormatAmount(d decimal.Decimal) string {
	return core.FormatMoney(d, l.Settings().Symbol())
}

// Categories lists built-in then user categories.
func (l *Ledger) Categories() []core.Category {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.categories.All()
}

// Icon returns the icon of a category, or the generic icon when unknown.
func (l *Ledger) Icon(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if icon, ok := l.st.categories.Icon(core.NormalizeCategoryKey(key)); ok {
		return icon
	}
	return core.DefaultIcon
}

// AddCategory adds or updates a user category.
func (l *Ledger) AddCategory(ctx context.Context, key, icon string) (core.Category, error) {
	var added core.Category
	err := l.mutate(ctx, log.OpCategory, func(st *state) error {
		next, err := st.categories.With(key, icon)
		if err != nil {
			return err
		}
		st.categories = next
		k := core.NormalizeCategoryKey(key)
		added.Key = k
		added.Icon, _ = next.Icon(k)
		return nil
	})
	return added, err
}

// RemoveCategory deletes a user category. Unknown keys are ignored and
// built-in keys are rejected.
func (l *Ledger) RemoveCategory(ctx context.Context, key string) error {
	return l.mutate(ctx, log.OpCategory, func(st *state) error {
		next, err := st.categories.Without(key)
		if err != nil {
			return err
		}
		st.categories = next
		return nil
	})
}

// Budgets returns a copy of all budgets.
func (l *Ledger) Budgets() []core.Budget {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedBudgets(l.st.budgets)
}

// SetBudget creates or overwrites the monthly limit of a category.
func (l *Ledger) SetBudget(ctx context.Context, category string, limit decimal.Decimal) error {
	category = core.NormalizeCategoryKey(category)
	if err := core.ValidateBudget(category, limit); err != nil {
		return err
	}
	return l.mutate(ctx, log.OpBudget, func(st *state) error {
		st.budgets[category] = limit
		return nil
	})
}

// DeleteBudget removes a budget. Unknown categories are ignored.
func (l *Ledger) DeleteBudget(ctx context.Context, category string) error {
	category = core.NormalizeCategoryKey(category)
	return l.mutate(ctx, log.OpBudget, func(st *state) error {
		delete(st.budgets, category)
		return nil
	})
}
