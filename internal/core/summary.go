package core

import "github.com/shopspring/decimal"

// Totals aggregates all transactions. Values keep full precision.
type Totals struct {
	Balance  decimal.Decimal
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// CategoryShare is the absolute expense total of one category and its
// percentage of all expenses in the same selection.
type CategoryShare struct {
	Category string
	Icon     string
	Amount   decimal.Decimal
	Percent  decimal.Decimal
}

// BudgetStatus is spending against a monthly budget.
type BudgetStatus struct {
	Category  string
	Icon      string
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Percent   decimal.Decimal
	Over      bool
}
