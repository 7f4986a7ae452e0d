package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

type testClock struct{ t time.Time }

// Now advances one minute per call so every transaction gets a distinct date.
func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func newTestLedger(t *testing.T, kv storage.KV, opts ...Option) *Ledger {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	base := []Option{WithClock(newClock().Now), WithLogger(log.Nop())}
	l, err := Open(context.Background(), kv, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return l
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustAdd(t *testing.T, l *Ledger, desc, amount, category string, typ core.TransactionType) core.Transaction {
	t.Helper()
	tx, err := l.AddTransaction(context.Background(), desc, dec(amount), category, typ)
	if err != nil {
		t.Fatalf("AddTransaction(%q) error = %v", desc, err)
	}
	return tx
}

func mustImport(t *testing.T, l *Ledger, blob string) {
	t.Helper()
	if err := l.ImportBackup(context.Background(), []byte(blob)); err != nil {
		t.Fatalf("ImportBackup() error = %v", err)
	}
}

type failingKV struct {
	storage.KV
	fail bool
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.KV.Set(ctx, key, value)
}

type recordingMirror struct {
	texts   []string
	amounts []decimal.Decimal
	err     error
}

func (m *recordingMirror) InsertRow(_ context.Context, text string, amount decimal.Decimal) error {
	m.texts = append(m.texts, text)
	m.amounts = append(m.amounts, amount)
	return m.err
}

func TestComputeTotals(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	mustAdd(t, l, "Salary", "1000", "salary", core.Income)

	got := l.ComputeTotals()
	if got.Balance.StringFixed(2) != "995.00" {
		t.Errorf("Balance = %s, want 995.00", got.Balance.StringFixed(2))
	}
	if got.Income.StringFixed(2) != "1000.00" {
		t.Errorf("Income = %s, want 1000.00", got.Income.StringFixed(2))
	}
	if got.Expenses.StringFixed(2) != "5.00" {
		t.Errorf("Expenses = %s, want 5.00", got.Expenses.StringFixed(2))
	}
}

func TestAddTransactionChangesBalanceBySignedAmount(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Rent", "750.25", "bills", core.Expense)

	before := l.ComputeTotals().Balance
	tx := mustAdd(t, l, "Refund", "0.105", "other", core.Income)
	after := l.ComputeTotals().Balance

	if !after.Sub(before).Equal(tx.Amount) {
		t.Errorf("balance changed by %s, want %s", after.Sub(before), tx.Amount)
	}

	tx = mustAdd(t, l, "Taxi", "12.5", "transport", core.Expense)
	if !tx.Amount.Equal(dec("-12.5")) {
		t.Errorf("expense amount = %s, want -12.5", tx.Amount)
	}
	if !l.ComputeTotals().Balance.Sub(after).Equal(dec("-12.5")) {
		t.Errorf("expense did not lower the balance by 12.5")
	}
}

func TestAddTransactionValidation(t *testing.T) {
	tests := []struct {
		name     string
		desc     string
		amount   decimal.Decimal
		category string
		typ      core.TransactionType
	}{
		{"empty description", "", dec("5"), "food", core.Expense},
		{"blank description", "   ", dec("5"), "food", core.Expense},
		{"too long description", strings.Repeat("x", core.MaxDescriptionLength+1), dec("5"), "food", core.Expense},
		{"zero amount", "Coffee", decimal.Zero, "food", core.Expense},
		{"negative amount", "Coffee", dec("-5"), "food", core.Expense},
		{"missing category", "Coffee", dec("5"), "", core.Expense},
		{"unknown type", "Coffee", dec("5"), "food", core.TransactionType("transfer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, nil)
			rev := l.Revision()

			_, err := l.AddTransaction(context.Background(), tt.desc, tt.amount, tt.category, tt.typ)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("AddTransaction() error = %v, want validation error", err)
			}
			if l.Len() != 0 {
				t.Errorf("Len() = %d, want 0", l.Len())
			}
			if l.Revision() != rev {
				t.Errorf("Revision() changed on rejected add")
			}
		})
	}
}

func TestAddTransactionOrder(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  []int64
	}{
		{"newest first", NewestFirst, []int64{3, 2, 1}},
		{"oldest first", OldestFirst, []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, nil, WithOrder(tt.order))
			for _, d := range []string{"a", "b", "c"} {
				mustAdd(t, l, d, "1", "other", core.Expense)
			}
			var got []int64
			for _, tx := range l.Transactions() {
				got = append(got, tx.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRemoveTransactionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)
	a := mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	mustAdd(t, l, "Lunch", "12", "food", core.Expense)

	if err := l.RemoveTransaction(ctx, a.ID); err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}
	if err := l.RemoveTransaction(ctx, a.ID); err != nil {
		t.Fatalf("second RemoveTransaction() error = %v", err)
	}
	if err := l.RemoveTransaction(ctx, 9999); err != nil {
		t.Fatalf("RemoveTransaction(unknown) error = %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	if _, ok := l.Get(a.ID); ok {
		t.Errorf("removed transaction still present")
	}
}

func TestFilterAndSort(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	mustAdd(t, l, "Salary", "1000", "salary", core.Income)
	mustAdd(t, l, "Groceries", "80", "food", core.Expense)
	mustAdd(t, l, "Bus ticket", "2.5", "transport", core.Expense)

	descs := func(txs []core.Transaction) string {
		var parts []string
		for _, tx := range txs {
			parts = append(parts, tx.Description)
		}
		return strings.Join(parts, ",")
	}

	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"defaults newest first", Query{}, "Bus ticket,Groceries,Salary,Coffee"},
		{"all filters oldest", Query{Type: "all", Category: "all", Sort: SortOldest}, "Coffee,Salary,Groceries,Bus ticket"},
		{"highest absolute", Query{Sort: SortHighest}, "Salary,Groceries,Coffee,Bus ticket"},
		{"lowest absolute", Query{Sort: SortLowest}, "Bus ticket,Coffee,Groceries,Salary"},
		{"search description case insensitive", Query{Search: "COFF"}, "Coffee"},
		{"search matches category", Query{Search: "transp"}, "Bus ticket"},
		{"type filter", Query{Type: "income"}, "Salary"},
		{"category filter", Query{Category: "food", Sort: SortOldest}, "Coffee,Groceries"},
		{"combined filters", Query{Search: "o", Type: "expense", Category: "food", Sort: SortHighest}, "Groceries,Coffee"},
		{"no match", Query{Search: "rent"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := descs(l.FilterAndSort(tt.query)); got != tt.want {
				t.Errorf("FilterAndSort() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortSameDateUsesInsertionOrder(t *testing.T) {
	fixed := time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	for _, order := range []Order{NewestFirst, OldestFirst} {
		l := newTestLedger(t, nil, WithClock(clock), WithOrder(order))
		for _, desc := range []string{"a", "b", "c"} {
			mustAdd(t, l, desc, "1", "other", core.Expense)
		}

		var newest, oldest []string
		for _, tx := range l.FilterAndSort(Query{Sort: SortNewest}) {
			newest = append(newest, tx.Description)
		}
		for _, tx := range l.FilterAndSort(Query{Sort: SortOldest}) {
			oldest = append(oldest, tx.Description)
		}
		if got := strings.Join(newest, ","); got != "c,b,a" {
			t.Errorf("order %d: newest = %q, want c,b,a", order, got)
		}
		if got := strings.Join(oldest, ","); got != "a,b,c" {
			t.Errorf("order %d: oldest = %q, want a,b,c", order, got)
		}
	}
}

func TestFilterAndSortDoesNotReorderStore(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Small", "1", "other", core.Expense)
	mustAdd(t, l, "Large", "100", "other", core.Expense)

	before := l.Transactions()
	got := l.FilterAndSort(Query{Sort: SortLowest})
	got[0].Description = "mutated"

	after := l.Transactions()
	for i := range before {
		if before[i].ID != after[i].ID || after[i].Description == "mutated" {
			t.Fatalf("stored transactions changed: %+v", after)
		}
	}
}

func TestFilterAndSortPeriod(t *testing.T) {
	l := newTestLedger(t, nil)
	mustImport(t, l, `{"transactions": [
		{"id": 1, "description": "today", "amount": -1, "category": "food", "type": "expense", "date": "2024-03-10T09:00:00Z"},
		{"id": 2, "description": "this week", "amount": -1, "category": "food", "type": "expense", "date": "2024-03-05T09:00:00Z"},
		{"id": 3, "description": "this month", "amount": -1, "category": "food", "type": "expense", "date": "2024-03-01"},
		{"id": 4, "description": "this year", "amount": -1, "category": "food", "type": "expense", "date": "1/15/2024"},
		{"id": 5, "description": "last year", "amount": -1, "category": "food", "type": "expense", "date": "2023-12-31T09:00:00Z"}
	]}`)

	tests := []struct {
		period Period
		want   int
	}{
		{PeriodToday, 1},
		{PeriodWeek, 2},
		{PeriodMonth, 3},
		{PeriodYear, 4},
		{PeriodAll, 5},
		{"", 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			if got := len(l.FilterAndSort(Query{Period: tt.period})); got != tt.want {
				t.Errorf("period %q matched %d, want %d", tt.period, got, tt.want)
			}
		})
	}
}

func TestParseQueryKeys(t *testing.T) {
	if k, err := ParseSortKey(""); err != nil || k != SortNewest {
		t.Errorf("ParseSortKey(\"\") = %q, %v", k, err)
	}
	if k, err := ParseSortKey("Highest"); err != nil || k != SortHighest {
		t.Errorf("ParseSortKey(Highest) = %q, %v", k, err)
	}
	if _, err := ParseSortKey("random"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("ParseSortKey(random) error = %v", err)
	}
	if p, err := ParsePeriod("week"); err != nil || p != PeriodWeek {
		t.Errorf("ParsePeriod(week) = %q, %v", p, err)
	}
	if _, err := ParsePeriod("decade"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("ParsePeriod(decade) error = %v", err)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	mustAdd(t, l, "Groceries", "70", "food", core.Expense)
	mustAdd(t, l, "Bus", "25", "transport", core.Expense)
	mustAdd(t, l, "Salary", "1000", "salary", core.Income)

	breakdown := CategoryBreakdown(l.Transactions())
	if len(breakdown) != 2 {
		t.Fatalf("breakdown = %v, want 2 categories", breakdown)
	}
	if !breakdown["food"].Equal(dec("75")) {
		t.Errorf("food = %s, want 75", breakdown["food"])
	}
	if _, ok := breakdown["salary"]; ok {
		t.Errorf("income category present in breakdown")
	}

	shares := l.BreakdownShares(l.Transactions())
	if len(shares) != 2 || shares[0].Category != "food" || shares[1].Category != "transport" {
		t.Fatalf("shares = %+v", shares)
	}
	if shares[0].Percent.StringFixed(2) != "75.00" || shares[1].Percent.StringFixed(2) != "25.00" {
		t.Errorf("percents = %s, %s", shares[0].Percent, shares[1].Percent)
	}
	if shares[0].Icon != "🍔" {
		t.Errorf("food icon = %q", shares[0].Icon)
	}

	if got := l.BreakdownShares(nil); len(got) != 0 {
		t.Errorf("BreakdownShares(nil) = %v, want empty", got)
	}
}

func TestBudgetStatus(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)

	if err := l.SetBudget(ctx, "food", dec("100")); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	mustAdd(t, l, "Groceries", "30", "food", core.Expense)
	mustAdd(t, l, "Salary", "1000", "salary", core.Income)

	st, ok := l.BudgetStatus("food")
	if !ok {
		t.Fatal("BudgetStatus(food) not found")
	}
	if st.Spent.StringFixed(2) != "30.00" || st.Remaining.StringFixed(2) != "70.00" || st.Over {
		t.Errorf("status = spent %s remaining %s over %v", st.Spent.StringFixed(2), st.Remaining.StringFixed(2), st.Over)
	}
	if st.Percent.StringFixed(0) != "30" {
		t.Errorf("percent = %s, want 30", st.Percent)
	}

	if err := l.SetBudget(ctx, "food", dec("20")); err != nil {
		t.Fatalf("SetBudget(overwrite) error = %v", err)
	}
	st, _ = l.BudgetStatus("food")
	if !st.Over || st.Remaining.StringFixed(2) != "-10.00" {
		t.Errorf("overspent status = remaining %s over %v", st.Remaining, st.Over)
	}

	if _, ok := l.BudgetStatus("transport"); ok {
		t.Error("BudgetStatus(transport) found without a budget")
	}
}

func TestBudgetStatusCountsCurrentMonthOnly(t *testing.T) {
	l := newTestLedger(t, nil)
	mustImport(t, l, `{
		"budgets": {"food": 100, "bills": 50},
		"transactions": [
			{"id": 1, "description": "March", "amount": 30, "category": "food", "type": "expense", "date": "2024-03-02T10:00:00Z"},
			{"id": 2, "description": "February", "amount": 50, "category": "food", "type": "expense", "date": "2024-02-20T10:00:00Z"}
		]
	}`)

	report := l.BudgetReport()
	if len(report) != 2 || report[0].Category != "bills" || report[1].Category != "food" {
		t.Fatalf("BudgetReport() = %+v", report)
	}
	if !report[0].Spent.IsZero() {
		t.Errorf("bills spent = %s, want 0", report[0].Spent)
	}
	if report[1].Spent.StringFixed(2) != "30.00" || report[1].Remaining.StringFixed(2) != "70.00" {
		t.Errorf("food = spent %s remaining %s", report[1].Spent, report[1].Remaining)
	}
}

func TestSetBudgetValidation(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)

	for _, limit := range []string{"0", "-5"} {
		if err := l.SetBudget(ctx, "food", dec(limit)); !errors.Is(err, core.ErrValidation) {
			t.Errorf("SetBudget(%s) error = %v, want validation error", limit, err)
		}
	}
	if err := l.SetBudget(ctx, " ", dec("5")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("SetBudget(blank) error = %v, want validation error", err)
	}
	if len(l.Budgets()) != 0 {
		t.Errorf("Budgets() = %v, want none", l.Budgets())
	}

	if err := l.SetBudget(ctx, "Food", dec("5")); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if err := l.DeleteBudget(ctx, "food"); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if err := l.DeleteBudget(ctx, "food"); err != nil {
		t.Fatalf("DeleteBudget(absent) error = %v", err)
	}
	if len(l.Budgets()) != 0 {
		t.Errorf("Budgets() = %v after delete", l.Budgets())
	}
}

func TestExportCSV(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	mustAdd(t, l, "Salary", "1000", "salary", core.Income)

	want := "Date,Description,Category,Type,Amount\n" +
		"03/10/2024,Salary,salary,income,1000.00\n" +
		"03/10/2024,Coffee,food,expense,-5.00\n"
	if got := l.ExportCSV(); got != want {
		t.Errorf("ExportCSV() =\n%s\nwant\n%s", got, want)
	}

	if _, err := l.UpdateSettings(context.Background(), core.Settings{DateFormat: core.DateFormatISO}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if got := l.ExportCSV(); !strings.Contains(got, "\n2024-03-10,Salary,") {
		t.Errorf("ExportCSV() ignored the date format:\n%s", got)
	}
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	if err := l.SetBudget(ctx, "food", dec("100")); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if _, err := l.AddCategory(ctx, "pets", "🐶"); err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}

	blob, err := l.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	var got struct {
		Transactions []map[string]any  `json:"transactions"`
		Budgets      map[string]any    `json:"budgets"`
		Categories   map[string]string `json:"categories"`
		Settings     map[string]string `json:"settings"`
		NextID       int64             `json:"nextId"`
		ExportDate   string            `json:"exportDate"`
	}
	if err := json.Unmarshal(blob, &got); err != nil {
		t.Fatalf("exported JSON does not parse: %v", err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0]["amount"] != float64(-5) {
		t.Errorf("transactions = %v", got.Transactions)
	}
	if got.Budgets["food"] != float64(100) {
		t.Errorf("budgets = %v", got.Budgets)
	}
	if got.Categories["pets"] != "🐶" || got.Categories["food"] != "🍔" {
		t.Errorf("categories = %v, want user and built-in entries", got.Categories)
	}
	if got.Settings["currency"] != "USD" || got.NextID != 2 || got.ExportDate == "" {
		t.Errorf("settings = %v nextId = %d exportDate = %q", got.Settings, got.NextID, got.ExportDate)
	}
}

func TestImportBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestLedger(t, nil)
	mustAdd(t, src, "Coffee", "5.125", "food", core.Expense)
	mustAdd(t, src, "Salary", "1000", "salary", core.Income)
	mustAdd(t, src, "Vet", "60", "pets", core.Expense)
	if err := src.SetBudget(ctx, "food", dec("100")); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	blob, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	dst := newTestLedger(t, nil)
	if err := dst.ImportBackup(ctx, blob); err != nil {
		t.Fatalf("ImportBackup() error = %v", err)
	}

	want, got := src.Transactions(), dst.Transactions()
	if len(got) != len(want) {
		t.Fatalf("imported %d transactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !got[i].Amount.Equal(want[i].Amount) ||
			got[i].Category != want[i].Category || !got[i].Date.Equal(want[i].Date) {
			t.Errorf("transaction %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(dst.Budgets()) != 1 {
		t.Errorf("Budgets() = %v", dst.Budgets())
	}

	next := mustAdd(t, dst, "Tea", "3", "food", core.Expense)
	if next.ID != 4 {
		t.Errorf("next id after import = %d, want 4", next.ID)
	}
}

func TestImportBackupMerge(t *testing.T) {
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)

	mustImport(t, l, `{"budgets": {"transport": 40}, "settings": {"currency": "eur"}}`)

	if l.Len() != 1 {
		t.Errorf("transactions replaced by a backup without transactions")
	}
	if b := l.Budgets(); len(b) != 1 || b[0].Category != "transport" {
		t.Errorf("Budgets() = %v", b)
	}
	s := l.Settings()
	if s.Currency != "EUR" || s.DateFormat != core.DateFormatUS {
		t.Errorf("Settings() = %+v", s)
	}
	if got := l.FormatAmount(dec("-5")); got != "-€5.00" {
		t.Errorf("FormatAmount() = %q", got)
	}

	next := mustAdd(t, l, "Tea", "3", "food", core.Expense)
	if next.ID != 2 {
		t.Errorf("next id = %d, want 2", next.ID)
	}
}

func TestImportBackupDerivesNextID(t *testing.T) {
	l := newTestLedger(t, nil)
	mustImport(t, l, `{"transactions": [
		{"id": 7, "description": "Lunch", "amount": "12.50", "category": "Food", "type": "expense", "date": "2024-03-01"},
		{"id": 3, "description": "Gift", "amount": -20, "category": "other", "type": "income", "date": "2024-03-02"}
	]}`)

	txs := l.Transactions()
	if !txs[0].Amount.Equal(dec("-12.5")) || txs[0].Category != "food" {
		t.Errorf("first = %+v, want normalized expense", txs[0])
	}
	if !txs[1].Amount.Equal(dec("20")) {
		t.Errorf("income amount = %s, want 20", txs[1].Amount)
	}

	next := mustAdd(t, l, "Tea", "3", "food", core.Expense)
	if next.ID != 8 {
		t.Errorf("next id = %d, want 8", next.ID)
	}

	mustImport(t, l, `{"nextId": 2}`)
	if next := mustAdd(t, l, "Cake", "4", "food", core.Expense); next.ID != 9 {
		t.Errorf("next id after stale nextId = %d, want 9", next.ID)
	}
}

func TestImportBackupLocaleDates(t *testing.T) {
	tx := func(date string) string {
		return `{"id": 1, "description": "x", "amount": 1, "category": "food", "type": "expense", "date": "` + date + `"}`
	}
	tests := []struct {
		name       string
		dateFormat string
		blob       string
		want       time.Time
	}{
		{"us default", "", `{"transactions": [` + tx("3/4/2024") + `]}`,
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"eu from backup settings", "", `{"settings": {"dateFormat": "DD/MM/YYYY"}, "transactions": [` + tx("18/10/2024") + `]}`,
			time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"eu from current settings", core.DateFormatEU, `{"transactions": [` + tx("03/04/2024") + `]}`,
			time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"day beyond 12 falls back to us", core.DateFormatEU, `{"transactions": [` + tx("10/18/2024") + `]}`,
			time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, nil)
			if tt.dateFormat != "" {
				if _, err := l.UpdateSettings(context.Background(), core.Settings{DateFormat: tt.dateFormat}); err != nil {
					t.Fatalf("UpdateSettings() error = %v", err)
				}
			}
			mustImport(t, l, tt.blob)
			got, ok := l.Get(1)
			if !ok || !got.Date.Equal(tt.want) {
				t.Errorf("date = %v, want %v", got.Date, tt.want)
			}
		})
	}
}

func TestImportBackupRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", `{"transactions": [`},
		{"array root", `[]`},
		{"empty", ``},
		{"transactions not array", `{"transactions": {}}`},
		{"bad type", `{"transactions": [{"id": 1, "description": "x", "amount": 1, "category": "food", "type": "gift", "date": "2024-03-01"}]}`},
		{"bad amount", `{"transactions": [{"id": 1, "description": "x", "amount": "abc", "category": "food", "type": "expense", "date": "2024-03-01"}]}`},
		{"zero amount", `{"transactions": [{"id": 1, "description": "x", "amount": 0, "category": "food", "type": "expense", "date": "2024-03-01"}]}`},
		{"bad date", `{"transactions": [{"id": 1, "description": "x", "amount": 1, "category": "food", "type": "expense", "date": "yesterday"}]}`},
		{"duplicate id", `{"transactions": [
			{"id": 1, "description": "x", "amount": 1, "category": "food", "type": "expense", "date": "2024-03-01"},
			{"id": 1, "description": "y", "amount": 1, "category": "food", "type": "expense", "date": "2024-03-01"}]}`},
		{"bad budget", `{"budgets": {"food": -3}}`},
		{"bad settings", `{"settings": {"theme": "neon"}}`},
		{"bad nextId", `{"nextId": "soon"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, nil)
			mustAdd(t, l, "Coffee", "5", "food", core.Expense)
			rev := l.Revision()

			err := l.ImportBackup(context.Background(), []byte(tt.blob))
			if !errors.Is(err, core.ErrParse) {
				t.Fatalf("ImportBackup() error = %v, want parse error", err)
			}
			if l.Revision() != rev || l.Len() != 1 {
				t.Errorf("state changed by a rejected import")
			}
		})
	}
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KV: storage.NewMemoryKV()}
	l := newTestLedger(t, kv)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)

	kv.fail = true
	if _, err := l.AddTransaction(ctx, "Lunch", dec("12"), "food", core.Expense); err == nil {
		t.Fatal("AddTransaction() succeeded with a failing store")
	}
	if err := l.SetBudget(ctx, "food", dec("10")); err == nil {
		t.Fatal("SetBudget() succeeded with a failing store")
	}
	if err := l.Reset(ctx); err == nil {
		t.Fatal("Reset() succeeded with a failing store")
	}
	if l.Len() != 1 || len(l.Budgets()) != 0 {
		t.Fatalf("state changed after failed saves: %d transactions, %d budgets", l.Len(), len(l.Budgets()))
	}

	kv.fail = false
	tx := mustAdd(t, l, "Lunch", "12", "food", core.Expense)
	if tx.ID != 2 {
		t.Errorf("id after failed add = %d, want 2", tx.ID)
	}
}

func TestReopenRestoresState(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	l := newTestLedger(t, kv)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	mustAdd(t, l, "Salary", "1000", "salary", core.Income)
	if err := l.SetBudget(ctx, "food", dec("100")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddCategory(ctx, "pets", "🐶"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.UpdateSettings(ctx, core.Settings{Currency: "GBP", Theme: "dark"}); err != nil {
		t.Fatal(err)
	}

	reopened := newTestLedger(t, kv)
	if reopened.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reopened.Len())
	}
	if !reopened.ComputeTotals().Balance.Equal(dec("995")) {
		t.Errorf("Balance = %s", reopened.ComputeTotals().Balance)
	}
	if reopened.Icon("pets") != "🐶" || reopened.Settings().Currency != "GBP" || len(reopened.Budgets()) != 1 {
		t.Errorf("reopened ledger lost categories, settings or budgets")
	}
	if tx := mustAdd(t, reopened, "Tea", "3", "food", core.Expense); tx.ID != 3 {
		t.Errorf("next id = %d, want 3", tx.ID)
	}
}

func TestOpenRejectsMalformedStore(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	if err := kv.Set(ctx, storage.KeyBudgets, "{not json"); err != nil {
		t.Fatal(err)
	}
	_, err := Open(ctx, kv, WithLogger(log.Nop()))
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("Open() error = %v, want parse error", err)
	}
	if !strings.Contains(err.Error(), storage.KeyBudgets) {
		t.Errorf("error %q does not name the key", err)
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)

	if err := l.RemoveCategory(ctx, "food"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("RemoveCategory(built-in) error = %v, want validation error", err)
	}
	if err := l.RemoveCategory(ctx, "unknown"); err != nil {
		t.Errorf("RemoveCategory(unknown) error = %v", err)
	}
	if _, err := l.AddCategory(ctx, "salary", "x"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("AddCategory(built-in) error = %v, want validation error", err)
	}

	c, err := l.AddCategory(ctx, " Pets ", "🐶")
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}
	if c.Key != "pets" || c.Icon != "🐶" {
		t.Errorf("AddCategory() = %+v", c)
	}
	all := l.Categories()
	if last := all[len(all)-1]; last.Key != "pets" || last.BuiltIn {
		t.Errorf("last category = %+v", last)
	}
	if l.Icon("nothing") != core.DefaultIcon {
		t.Errorf("Icon(unknown) = %q", l.Icon("nothing"))
	}

	if err := l.RemoveCategory(ctx, "pets"); err != nil {
		t.Fatalf("RemoveCategory() error = %v", err)
	}
	if len(l.Categories()) != len(core.BuiltInCategories()) {
		t.Errorf("user category not removed")
	}
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)

	if _, err := l.UpdateSettings(ctx, core.Settings{Theme: "neon"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("UpdateSettings(neon) error = %v", err)
	}
	s, err := l.UpdateSettings(ctx, core.Settings{Currency: "jpy", DateFormat: core.DateFormatEU})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if s.Currency != "JPY" || s.Theme != "light" || s.Language != "en" {
		t.Errorf("UpdateSettings() = %+v", s)
	}
	if got := l.FormatAmount(dec("1234.5")); got != "¥1234.50" {
		t.Errorf("FormatAmount() = %q", got)
	}
}

func TestMirror(t *testing.T) {
	t.Run("receives new transactions", func(t *testing.T) {
		m := &recordingMirror{}
		l := newTestLedger(t, nil, WithMirror(m))
		mustAdd(t, l, "Coffee", "5", "food", core.Expense)

		if len(m.texts) != 1 || m.texts[0] != "Coffee" || !m.amounts[0].Equal(dec("-5")) {
			t.Errorf("mirror got %v %v", m.texts, m.amounts)
		}
	})

	t.Run("failure does not fail the add", func(t *testing.T) {
		m := &recordingMirror{err: errors.New("remote down")}
		l := newTestLedger(t, nil, WithMirror(m))
		if _, err := l.AddTransaction(context.Background(), "Coffee", dec("5"), "food", core.Expense); err != nil {
			t.Fatalf("AddTransaction() error = %v", err)
		}
		if l.Len() != 1 {
			t.Errorf("Len() = %d, want 1", l.Len())
		}
	})

	t.Run("not called on rejected add", func(t *testing.T) {
		m := &recordingMirror{}
		l := newTestLedger(t, nil, WithMirror(m))
		_, _ = l.AddTransaction(context.Background(), "", dec("5"), "food", core.Expense)
		if len(m.texts) != 0 {
			t.Errorf("mirror called for rejected add")
		}
	})
}

func TestResetAndRevision(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, nil)
	mustAdd(t, l, "Coffee", "5", "food", core.Expense)
	if err := l.SetBudget(ctx, "food", dec("10")); err != nil {
		t.Fatal(err)
	}
	rev := l.Revision()

	if err := l.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if l.Revision() != rev+1 {
		t.Errorf("Revision() = %d, want %d", l.Revision(), rev+1)
	}
	if l.Len() != 0 || len(l.Budgets()) != 0 || !l.ComputeTotals().Balance.IsZero() {
		t.Errorf("Reset() left data behind")
	}
	if tx := mustAdd(t, l, "Tea", "3", "food", core.Expense); tx.ID != 1 {
		t.Errorf("id after reset = %d, want 1", tx.ID)
	}
}

func TestRecent(t *testing.T) {
	l := newTestLedger(t, nil, WithOrder(OldestFirst))
	for _, d := range []string{"a", "b", "c", "d"} {
		mustAdd(t, l, d, "1", "other", core.Expense)
	}
	got := l.Recent(2)
	if len(got) != 2 || got[0].Description != "d" || got[1].Description != "c" {
		t.Errorf("Recent(2) = %+v", got)
	}
	if len(l.Recent(10)) != 4 {
		t.Errorf("Recent(10) length = %d", len(l.Recent(10)))
	}
}

func TestExportUnsupportedFormats(t *testing.T) {
	l := newTestLedger(t, nil)
	if _, err := l.ExportPDF(); !errors.Is(err, core.ErrExportUnsupported) {
		t.Errorf("ExportPDF() error = %v", err)
	}
	if _, err := l.ExportExcel(); !errors.Is(err, core.ErrExportUnsupported) {
		t.Errorf("ExportExcel() error = %v", err)
	}
}
