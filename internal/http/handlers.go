package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/log"
	"budgetbook/internal/remote"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// decodeBody decodes a JSON object into v, rejecting unknown fields and
// trailing data. It writes the 400 response itself and reports false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: trailing data")
		return false
	}
	return true
}

// sanitizeInput removes control characters except tab and newlines, and trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortKey, err := ledger.ParseSortKey(q.Get("sort"))
	if err != nil {
		writeLedgerError(w, r, log.OpList, err)
		return
	}
	period, err := ledger.ParsePeriod(q.Get("period"))
	if err != nil {
		writeLedgerError(w, r, log.OpList, err)
		return
	}
	typ := strings.ToLower(strings.TrimSpace(q.Get("type")))
	if typ != "" && typ != ledger.FilterAll {
		if _, err := core.ParseType(typ); err != nil {
			writeLedgerError(w, r, log.OpList, err)
			return
		}
	}

	txs := s.ledger.FilterAndSort(ledger.Query{
		Search:   q.Get("search"),
		Type:     typ,
		Category: core.NormalizeCategoryKey(q.Get("category")),
		Sort:     sortKey,
		Period:   period,
	})

	settings := s.ledger.Settings()
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, s.toTransactionResponse(tx, settings))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"count":        len(out),
	})
}

type createTransactionRequest struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, err)
		return
	}
	typ, err := core.ParseType(req.Type)
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, err)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), sanitizeInput(req.Description), amount, sanitizeInput(req.Category), typ)
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+strconv.FormatInt(tx.ID, 10))
	writeJSON(w, http.StatusCreated, s.toTransactionResponse(tx, s.ledger.Settings()))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid transaction id")
		return
	}
	if err := s.ledger.RemoveTransaction(r.Context(), id); err != nil {
		writeLedgerError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals := s.totals.Get("totals", s.ledger.Revision(), s.ledger.ComputeTotals)
	writeJSON(w, http.StatusOK, toTotalsResponse(totals, s.ledger.Settings()))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	period, err := ledger.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeLedgerError(w, r, log.OpList, err)
		return
	}
	shares := s.breakdown.Get("breakdown:"+string(period), s.ledger.Revision(), func() []core.CategoryShare {
		return s.ledger.BreakdownShares(s.ledger.FilterAndSort(ledger.Query{Period: period}))
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"period":     period,
		"categories": toShareResponses(shares, s.ledger.Settings()),
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"budgets": toBudgetResponses(s.ledger.BudgetReport(), s.ledger.Settings()),
	})
}

type setBudgetRequest struct {
	Limit json.Number `json:"limit"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	limit, err := core.ParseAmount(req.Limit.String())
	if err != nil {
		writeLedgerError(w, r, log.OpBudget, &core.ValidationError{Field: "budget", Reason: "must be a positive number"})
		return
	}
	category := chi.URLParam(r, "category")
	if err := s.ledger.SetBudget(r.Context(), category, limit); err != nil {
		writeLedgerError(w, r, log.OpBudget, err)
		return
	}
	status, _ := s.ledger.BudgetStatus(category)
	writeJSON(w, http.StatusOK, toBudgetResponses([]core.BudgetStatus{status}, s.ledger.Settings())[0])
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBudget(r.Context(), chi.URLParam(r, "category")); err != nil {
		writeLedgerError(w, r, log.OpBudget, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.ledger.Categories()
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{Key: c.Key, Icon: c.Icon, BuiltIn: c.BuiltIn})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

type createCategoryRequest struct {
	Key  string `json:"key"`
	Icon string `json:"icon"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.ledger.AddCategory(r.Context(), sanitizeInput(req.Key), sanitizeInput(req.Icon))
	if err != nil {
		writeLedgerError(w, r, log.OpCategory, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{Key: c.Key, Icon: c.Icon, BuiltIn: c.BuiltIn})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveCategory(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeLedgerError(w, r, log.OpCategory, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req core.Settings
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := s.ledger.UpdateSettings(r.Context(), req)
	if err != nil {
		writeLedgerError(w, r, log.OpSettings, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) attachment(w http.ResponseWriter, contentType, ext string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="budgetbook-%s.%s"`, s.ledger.Now().Format("2006-01-02"), ext))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.attachment(w, "text/csv; charset=utf-8", "csv")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.ledger.ExportCSV())
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	blob, err := s.ledger.ExportJSON()
	if err != nil {
		writeLedgerError(w, r, log.OpExport, err)
		return
	}
	s.attachment(w, "application/json", "json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.ExportPDF(); err != nil {
		writeLedgerError(w, r, log.OpExport, err)
	}
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.ExportExcel(); err != nil {
		writeLedgerError(w, r, log.OpExport, err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "could not read body: "+err.Error())
		return
	}
	if err := s.ledger.ImportBackup(r.Context(), blob); err != nil {
		writeLedgerError(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": s.ledger.Len()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context()); err != nil {
		writeLedgerError(w, r, log.OpReset, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoteRows lists mirrored rows newest first. Remote failures are
// logged and served as an empty list.
func (s *Server) handleRemoteRows(w http.ResponseWriter, r *http.Request) {
	var rows []remote.Row
	if s.remote != nil {
		var err error
		rows, err = s.remote.FetchAll(r.Context())
		if err != nil {
			ctx := r.Context()
			fields := log.NewFields().WithErrorType(log.ErrorTypeNetwork)
			log.NewStructuredLogger(log.FromContext(ctx)).
				LogError(ctx, "Failed to fetch remote rows", err, log.ComponentRemote, log.OpList, fields)
			rows = nil
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows": toRemoteRowResponses(rows, s.ledger.Settings()),
	})
}
