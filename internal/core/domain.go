package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is a single signed money movement. Expenses carry a
	// negative amount, income a positive one.
	Transaction struct {
		ID          int64
		Description string
		Amount      decimal.Decimal
		Category    string
		Type        TransactionType
		Date        time.Time
	}
)

// MaxDescriptionLength bounds user supplied descriptions.
const MaxDescriptionLength = 200

var (
	ErrValidation        = errors.New("validation error")
	ErrParse             = errors.New("parse error")
	ErrExportUnsupported = errors.New("export format not supported")

	ErrEmptyDescription = &ValidationError{Field: "description", Reason: "cannot be empty"}
	ErrLongDescription  = &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	ErrInvalidAmount    = &ValidationError{Field: "amount", Reason: "must be a positive number"}
	ErrEmptyCategory    = &ValidationError{Field: "category", Reason: "cannot be empty"}
	ErrInvalidType      = &ValidationError{Field: "type", Reason: "must be income or expense"}
	ErrSignMismatch     = &ValidationError{Field: "amount", Reason: "sign does not match type"}
)

// ValidationError reports bad user input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ParseError reports malformed imported or stored content. It matches ErrParse.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// ParseType accepts "income"/"expense" in any case.
func ParseType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ValidateEntry checks the raw fields a user submits before a transaction
// is created. amount is the unsigned magnitude.
func ValidateEntry(description string, amount decimal.Decimal, category string, t TransactionType) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	if len(description) > MaxDescriptionLength {
		return ErrLongDescription
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if !t.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// Validate checks a fully built transaction, including the sign invariant.
func (tx Transaction) Validate() error {
	if err := ValidateEntry(tx.Description, tx.Amount.Abs(), tx.Category, tx.Type); err != nil {
		return err
	}
	if tx.Amount.Sign() != tx.Type.Sign() {
		return ErrSignMismatch
	}
	return nil
}

// Sign is -1 for expenses and +1 for income.
func (t TransactionType) Sign() int {
	if t == Expense {
		return -1
	}
	return 1
}

// IsExpense reports whether the transaction is an expense.
func (tx Transaction) IsExpense() bool {
	return tx.Type == Expense
}

// Budget is a monthly spending ceiling for one category.
type Budget struct {
	Category string
	Limit    decimal.Decimal
}

// ValidateBudget rejects empty categories and non-positive limits.
func ValidateBudget(category string, limit decimal.Decimal) error {
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if !limit.IsPositive() {
		return &ValidationError{Field: "budget", Reason: "must be a positive number"}
	}
	return nil
}
