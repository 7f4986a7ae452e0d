package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/remote"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeLedgerError maps ledger errors to status codes. ErrParse is checked
// first since a ParseError may wrap a ValidationError. Unexpected errors are
// logged and reported without detail.
func writeLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrParse):
		writeError(w, http.StatusBadRequest, log.ErrorTypeParse, err.Error())
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, log.ErrorTypeValidation, err.Error())
	case errors.Is(err, core.ErrExportUnsupported):
		writeError(w, http.StatusNotImplemented, "not_implemented", err.Error())
	default:
		ctx := r.Context()
		fields := log.NewFields().WithErrorType(log.ErrorTypeInternal)
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogError(ctx, "Request failed", err, log.ComponentHTTP, op, fields)
		writeError(w, http.StatusInternalServerError, log.ErrorTypeInternal, "internal server error")
	}
}

type transactionResponse struct {
	ID          int64       `json:"id"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Formatted   string      `json:"formatted"`
	Category    string      `json:"category"`
	Icon        string      `json:"icon"`
	Type        string      `json:"type"`
	Date        string      `json:"date"`
	DisplayDate string      `json:"displayDate"`
}

type totalsResponse struct {
	Balance  string `json:"balance"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Currency string `json:"currency"`
}

type shareResponse struct {
	Category string `json:"category"`
	Icon     string `json:"icon"`
	Amount   string `json:"amount"`
	Percent  string `json:"percent"`
}

type budgetResponse struct {
	Category  string `json:"category"`
	Icon      string `json:"icon"`
	Limit     string `json:"limit"`
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
	Percent   string `json:"percent"`
	Over      bool   `json:"over"`
}

type categoryResponse struct {
	Key     string `json:"key"`
	Icon    string `json:"icon"`
	BuiltIn bool   `json:"builtIn"`
}

func (s *Server) toTransactionResponse(tx core.Transaction, settings core.Settings) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      json.Number(tx.Amount.String()),
		Formatted:   core.FormatSigned(tx.Amount, settings.Symbol()),
		Category:    tx.Category,
		Icon:        s.ledger.Icon(tx.Category),
		Type:        string(tx.Type),
		Date:        tx.Date.Format(time.RFC3339),
		DisplayDate: settings.FormatDate(tx.Date),
	}
}

func toTotalsResponse(t core.Totals, settings core.Settings) totalsResponse {
	sym := settings.Symbol()
	return totalsResponse{
		Balance:  core.FormatMoney(t.Balance, sym),
		Income:   core.FormatMoney(t.Income, sym),
		Expenses: core.FormatMoney(t.Expenses, sym),
		Currency: settings.Currency,
	}
}

func toShareResponses(shares []core.CategoryShare, settings core.Settings) []shareResponse {
	out := make([]shareResponse, 0, len(shares))
	for _, sh := range shares {
		out = append(out, shareResponse{
			Category: sh.Category,
			Icon:     sh.Icon,
			Amount:   core.FormatMoney(sh.Amount, settings.Symbol()),
			Percent:  core.Fixed2(sh.Percent),
		})
	}
	return out
}

func toBudgetResponses(report []core.BudgetStatus, settings core.Settings) []budgetResponse {
	sym := settings.Symbol()
	out := make([]budgetResponse, 0, len(report))
	for _, b := range report {
		out = append(out, budgetResponse{
			Category:  b.Category,
			Icon:      b.Icon,
			Limit:     core.FormatMoney(b.Limit, sym),
			Spent:     core.FormatMoney(b.Spent, sym),
			Remaining: core.FormatMoney(b.Remaining, sym),
			Percent:   core.Fixed2(b.Percent),
			Over:      b.Over,
		})
	}
	return out
}

type remoteRowResponse struct {
	Text      string      `json:"text"`
	Amount    json.Number `json:"amount"`
	Formatted string      `json:"formatted"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

func toRemoteRowResponses(rows []remote.Row, settings core.Settings) []remoteRowResponse {
	out := make([]remoteRowResponse, 0, len(rows))
	for _, row := range rows {
		resp := remoteRowResponse{
			Text:      row.Text,
			Amount:    json.Number(row.Amount.String()),
			Formatted: core.FormatSigned(row.Amount, settings.Symbol()),
		}
		if !row.CreatedAt.IsZero() {
			resp.CreatedAt = row.CreatedAt.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	return out
}
