package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

// AddTransaction validates and records a new transaction. amount is the
// unsigned magnitude; its sign is derived from t.
func (l *Ledger) AddTransaction(ctx context.Context, description string, amount decimal.Decimal, category string, t core.TransactionType) (core.Transaction, error) {
	description = strings.TrimSpace(description)
	category = core.NormalizeCategoryKey(category)
	if err := core.ValidateEntry(description, amount, category, t); err != nil {
		return core.Transaction{}, err
	}

	var tx core.Transaction
	err := l.mutate(ctx, log.OpCreate, func(st *state) error {
		tx = core.Transaction{
			ID:          st.nextID,
			Description: description,
			Amount:      core.SignedAmount(amount, t),
			Category:    category,
			Type:        t,
			Date:        l.now(),
		}
		st.nextID++
		if l.order == OldestFirst {
			st.transactions = append(st.transactions, tx)
		} else {
			st.transactions = append([]core.Transaction{tx}, st.transactions...)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	l.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(tx.ID, tx.Description, tx.Amount.String(), tx.Category, string(tx.Type)).
			ToSlice()...)

	if l.mirror != nil {
		if err := l.mirror.InsertRow(ctx, tx.Description, tx.Amount); err != nil {
			l.logger.WarnContext(ctx, "Remote mirror failed",
				log.FieldOperation, log.OpMirror,
				log.FieldTxID, tx.ID,
				log.FieldError, err)
		}
	}
	return tx, nil
}

// RemoveTransaction deletes the transaction with the given id. Removing an
// unknown id is a no-op.
func (l *Ledger) RemoveTransaction(ctx context.Context, id int64) error {
	return l.mutate(ctx, log.OpDelete, func(st *state) error {
		kept := st.transactions[:0]
		for _, tx := range st.transactions {
			if tx.ID != id {
				kept = append(kept, tx)
			}
		}
		st.transactions = kept
		return nil
	})
}

// Reset clears every collection and restores default settings.
func (l *Ledger) Reset(ctx context.Context) error {
	err := l.mutate(ctx, log.OpReset, func(st *state) error {
		*st = defaultState()
		return nil
	})
	if err == nil {
		l.logger.InfoContext(ctx, "Ledger reset", log.FieldOperation, log.OpReset)
	}
	return err
}

// Transactions returns a copy of all transactions in stored order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Transaction(nil), l.st.transactions...)
}

// Len is the number of stored transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.st.transactions)
}

// Recent returns up to n transactions, most recent first.
func (l *Ledger) Recent(n int) []core.Transaction {
	txs := l.Transactions()
	sortTransactions(txs, SortNewest)
	if n >= 0 && n < len(txs) {
		txs = txs[:n]
	}
	return txs
}

// Get looks up a transaction by id.
func (l *Ledger) Get(id int64) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, tx := range l.st.transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func sortedBudgets(m map[string]decimal.Decimal) []core.Budget {
	out := make([]core.Budget, 0, len(m))
	for k, v := range m {
		out = append(out, core.Budget{Category: k, Limit: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
