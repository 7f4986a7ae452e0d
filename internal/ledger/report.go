package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals sums income and expenses in one pass.
func (l *Ledger) ComputeTotals() core.Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return totals(l.st.transactions)
}

func totals(txs []core.Transaction) core.Totals {
	income, expenses := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Amount.IsPositive() {
			income = income.Add(tx.Amount)
		} else {
			expenses = expenses.Add(tx.Amount.Neg())
		}
	}
	return core.Totals{
		Balance:  income.Sub(expenses),
		Income:   income,
		Expenses: expenses,
	}
}

// CategoryBreakdown totals the absolute expense amount per category.
// Income is ignored.
func CategoryBreakdown(txs []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount.Abs())
	}
	return out
}

// BreakdownShares is CategoryBreakdown with icons and percentages, largest
// first.
func (l *Ledger) BreakdownShares(txs []core.Transaction) []core.CategoryShare {
	breakdown := CategoryBreakdown(txs)
	total := decimal.Zero
	for _, v := range breakdown {
		total = total.Add(v)
	}

	out := make([]core.CategoryShare, 0, len(breakdown))
	for category, amount := range breakdown {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = amount.Div(total).Mul(hundred).Round(2)
		}
		out = append(out, core.CategoryShare{
			Category: category,
			Icon:     l.Icon(category),
			Amount:   amount,
			Percent:  pct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BudgetStatus reports this month's spending against the budget of
// category. ok is false when no budget is set.
func (l *Ledger) BudgetStatus(category string) (status core.BudgetStatus, ok bool) {
	category = core.NormalizeCategoryKey(category)
	l.mu.RLock()
	limit, ok := l.st.budgets[category]
	txs := l.st.transactions
	l.mu.RUnlock()
	if !ok {
		return core.BudgetStatus{}, false
	}
	spent := monthSpending(txs, l.now())
	return l.budgetStatus(category, limit, spent[category]), true
}

// BudgetReport returns the status of every budget, sorted by category.
func (l *Ledger) BudgetReport() []core.BudgetStatus {
	l.mu.RLock()
	budgets := sortedBudgets(l.st.budgets)
	spent := monthSpending(l.st.transactions, l.now())
	l.mu.RUnlock()

	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, l.budgetStatus(b.Category, b.Limit, spent[b.Category]))
	}
	return out
}

func (l *Ledger) budgetStatus(category string, limit, spent decimal.Decimal) core.BudgetStatus {
	return core.BudgetStatus{
		Category:  category,
		Icon:      l.Icon(category),
		Limit:     limit,
		Spent:     spent,
		Remaining: limit.Sub(spent),
		Percent:   spent.Div(limit).Mul(hundred).Round(2),
		Over:      spent.GreaterThan(limit),
	}
}

// monthSpending is CategoryBreakdown restricted to the calendar month of now.
func monthSpending(txs []core.Transaction, now time.Time) map[string]decimal.Decimal {
	month := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if sameMonth(tx.Date.In(now.Location()), now) {
			month = append(month, tx)
		}
	}
	return CategoryBreakdown(month)
}
