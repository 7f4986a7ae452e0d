package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

// wireTransaction is the JSON shape of a transaction both in storage and in
// backup files. Amounts travel as JSON numbers.
type wireTransaction struct {
	ID          int64       `json:"id"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
	Date        string      `json:"date"`
}

// dateLayouts are tried in order when reading a stored date.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// localeLayouts read the day-only locale dates of older backups, keyed by
// the date format setting in effect.
var localeLayouts = map[string]string{
	core.DateFormatUS:  "1/2/2006",
	core.DateFormatEU:  "2/1/2006",
	core.DateFormatISO: "2006-1-2",
}

// parseDate tries the machine layouts, then the locale layout for
// dateFormat, then US month/day order.
func parseDate(s, dateFormat string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := dateLayouts
	if l, ok := localeLayouts[dateFormat]; ok {
		layouts = append(layouts[:len(layouts):len(layouts)], l)
	}
	layouts = append(layouts[:len(layouts):len(layouts)], localeLayouts[core.DateFormatUS])
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func toWire(tx core.Transaction) wireTransaction {
	return wireTransaction{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      json.Number(tx.Amount.String()),
		Category:    tx.Category,
		Type:        string(tx.Type),
		Date:        tx.Date.Format(time.RFC3339Nano),
	}
}

func fromWire(w wireTransaction, dateFormat string) (core.Transaction, error) {
	t, err := core.ParseType(w.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := decimal.NewFromString(w.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q is not a number", w.Amount)
	}
	date, err := parseDate(w.Date, dateFormat)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          w.ID,
		Description: w.Description,
		Amount:      core.SignedAmount(amount, t),
		Category:    core.NormalizeCategoryKey(w.Category),
		Type:        t,
		Date:        date,
	}
	if tx.Amount.IsZero() {
		return core.Transaction{}, fmt.Errorf("amount must not be zero")
	}
	return tx, nil
}

func decodeTransactions(raw []byte, dateFormat string) ([]core.Transaction, error) {
	var wires []wireTransaction
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, &core.ParseError{Reason: "transactions", Err: err}
	}
	out := make([]core.Transaction, 0, len(wires))
	seen := make(map[int64]bool, len(wires))
	for i, w := range wires {
		tx, err := fromWire(w, dateFormat)
		if err != nil {
			return nil, &core.ParseError{Reason: fmt.Sprintf("transaction %d", i), Err: err}
		}
		if seen[tx.ID] {
			return nil, &core.ParseError{Reason: fmt.Sprintf("transaction %d: duplicate id %d", i, tx.ID)}
		}
		seen[tx.ID] = true
		out = append(out, tx)
	}
	return out, nil
}

func decodeBudgets(raw []byte) (map[string]decimal.Decimal, error) {
	var wires map[string]json.Number
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, &core.ParseError{Reason: "budgets", Err: err}
	}
	out := make(map[string]decimal.Decimal, len(wires))
	for k, v := range wires {
		limit, err := decimal.NewFromString(v.String())
		if err != nil || !limit.IsPositive() {
			return nil, &core.ParseError{Reason: fmt.Sprintf("budget %q: invalid limit %q", k, v)}
		}
		out[core.NormalizeCategoryKey(k)] = limit
	}
	return out, nil
}

func decodeCategories(raw []byte) (core.CategoryRegistry, error) {
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return core.CategoryRegistry{}, &core.ParseError{Reason: "categories", Err: err}
	}
	return core.NewCategoryRegistry(m), nil
}

func decodeSettings(raw []byte) (core.Settings, error) {
	var s core.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return core.Settings{}, &core.ParseError{Reason: "settings", Err: err}
	}
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return core.Settings{}, &core.ParseError{Reason: "settings", Err: err}
	}
	return s, nil
}

func decodeNextID(raw []byte) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &core.ParseError{Reason: "nextId", Err: err}
	}
	id, err := n.Int64()
	if err != nil || id < 1 {
		return 0, &core.ParseError{Reason: fmt.Sprintf("nextId %q is not a positive integer", n)}
	}
	return id, nil
}

// decodeInto merges the present entries of raw into st. raw maps the
// persisted keys to their JSON text. Settings are read first so locale
// dates follow the resulting date format.
func decodeInto(st *state, raw map[string]string) error {
	var err error
	if v, ok := raw[storage.KeySettings]; ok {
		if st.settings, err = decodeSettings([]byte(v)); err != nil {
			return err
		}
	}
	if v, ok := raw[storage.KeyTransactions]; ok {
		if st.transactions, err = decodeTransactions([]byte(v), st.settings.DateFormat); err != nil {
			return err
		}
	}
	if v, ok := raw[storage.KeyBudgets]; ok {
		if st.budgets, err = decodeBudgets([]byte(v)); err != nil {
			return err
		}
	}
	if v, ok := raw[storage.KeyCategories]; ok {
		if st.categories, err = decodeCategories([]byte(v)); err != nil {
			return err
		}
	}
	_, hasTxs := raw[storage.KeyTransactions]
	if v, ok := raw[storage.KeyNextID]; ok {
		if st.nextID, err = decodeNextID([]byte(v)); err != nil {
			return err
		}
	} else if hasTxs {
		st.nextID = 1
	}
	// Never hand out an id that is already taken.
	if floor := maxID(st.transactions) + 1; st.nextID < floor {
		st.nextID = floor
	}
	return nil
}

func maxID(txs []core.Transaction) int64 {
	var highest int64
	for _, tx := range txs {
		if tx.ID > highest {
			highest = tx.ID
		}
	}
	return highest
}

func encodeTransactions(txs []core.Transaction) []wireTransaction {
	out := make([]wireTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toWire(tx))
	}
	return out
}

func encodeBudgets(budgets map[string]decimal.Decimal) map[string]json.Number {
	out := make(map[string]json.Number, len(budgets))
	for k, v := range budgets {
		out[k] = json.Number(v.String())
	}
	return out
}

// encodeState renders the persisted layout of st.
func encodeState(st state) (map[string]string, error) {
	parts := map[string]any{
		storage.KeyTransactions: encodeTransactions(st.transactions),
		storage.KeyBudgets:      encodeBudgets(st.budgets),
		storage.KeyCategories:   st.categories.User(),
		storage.KeySettings:     st.settings,
	}
	out := make(map[string]string, len(parts)+1)
	for key, v := range parts {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = string(b)
	}
	out[storage.KeyNextID] = strconv.FormatInt(st.nextID, 10)
	return out, nil
}

type backupFile struct {
	Transactions []wireTransaction      `json:"transactions"`
	Budgets      map[string]json.Number `json:"budgets"`
	Categories   map[string]string      `json:"categories"`
	Settings     core.Settings          `json:"settings"`
	NextID       int64                  `json:"nextId"`
	ExportDate   string                 `json:"exportDate"`
}

// ExportJSON renders a full backup. Categories include the built-ins.
func (l *Ledger) ExportJSON() ([]byte, error) {
	l.mu.RLock()
	b := backupFile{
		Transactions: encodeTransactions(l.st.transactions),
		Budgets:      encodeBudgets(l.st.budgets),
		Categories:   l.st.categories.Map(),
		Settings:     l.st.settings,
		NextID:       l.st.nextID,
		ExportDate:   l.now().Format(time.RFC3339),
	}
	l.mu.RUnlock()

	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return out, nil
}

// ImportBackup merges a backup produced by ExportJSON. Only the top level
// keys present in blob are replaced. Nothing changes when blob is invalid.
func (l *Ledger) ImportBackup(ctx context.Context, blob []byte) error {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 || blob[0] != '{' {
		return &core.ParseError{Reason: "backup must be a JSON object"}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(blob, &top); err != nil {
		return &core.ParseError{Reason: "backup", Err: err}
	}

	raw := make(map[string]string, len(storage.AllKeys))
	for _, key := range storage.AllKeys {
		v, ok := top[key]
		if !ok || string(v) == "null" {
			continue
		}
		raw[key] = string(v)
	}

	var imported int
	err := l.mutate(ctx, log.OpImport, func(st *state) error {
		if err := decodeInto(st, raw); err != nil {
			return err
		}
		imported = len(st.transactions)
		return nil
	})
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Backup imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, imported,
		"keys", len(raw))
	return nil
}

var csvHeader = []string{"Date", "Description", "Category", "Type", "Amount"}

// ExportCSV renders one comma joined line per transaction in stored order.
// Fields are not quoted.
func (l *Ledger) ExportCSV() string {
	l.mu.RLock()
	txs := l.st.transactions
	settings := l.st.settings
	l.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString(strings.Join(csvHeader, ","))
	for _, tx := range txs {
		sb.WriteByte('\n')
		sb.WriteString(strings.Join([]string{
			settings.FormatDate(tx.Date),
			tx.Description,
			tx.Category,
			string(tx.Type),
			core.Fixed2(tx.Amount),
		}, ","))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// ExportPDF is not supported.
func (l *Ledger) ExportPDF() ([]byte, error) {
	return nil, fmt.Errorf("pdf: %w", core.ErrExportUnsupported)
}

// ExportExcel is not supported.
func (l *Ledger) ExportExcel() ([]byte, error) {
	return nil, fmt.Errorf("excel: %w", core.ErrExportUnsupported)
}
