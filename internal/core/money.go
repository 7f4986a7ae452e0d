// Package core provides money parsing and handling utilities.
//
// Amounts are arbitrary precision decimals; rounding to two places only
// happens when a value is formatted for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// zero and malformed input are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0.005") -> 0.005, nil (kept at full precision)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SignedAmount normalizes the sign of amount from the transaction type.
func SignedAmount(amount decimal.Decimal, t TransactionType) decimal.Decimal {
	if t == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Fixed2 renders d rounded half away from zero to two decimals.
func Fixed2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMoney formats d with a currency symbol, e.g. "$12.30" or "-€5.00".
func FormatMoney(d decimal.Decimal, symbol string) string {
	if d.IsNegative() {
		return "-" + symbol + Fixed2(d.Abs())
	}
	return symbol + Fixed2(d)
}

// FormatSigned formats d with an explicit sign, e.g. "+$10.00" or "-$5.00".
func FormatSigned(d decimal.Decimal, symbol string) string {
	if d.IsNegative() {
		return FormatMoney(d, symbol)
	}
	return "+" + FormatMoney(d, symbol)
}
