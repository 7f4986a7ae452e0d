package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

// harness runs commands against one in-memory ledger.
type harness struct {
	t      *testing.T
	ledger *ledger.Ledger
	opened int
	closed int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l, err := ledger.Open(context.Background(), storage.NewMemoryKV(), ledger.WithLogger(log.Nop()))
	if err != nil {
		t.Fatalf("ledger.Open() error = %v", err)
	}
	return &harness{t: t, ledger: l}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	open := func(context.Context, bool) (*ledger.Ledger, func(), error) {
		h.opened++
		return h.ledger, func() { h.closed++ }, nil
	}
	root := NewRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("bbctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestAddListTotals(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("add", "Coffee", "5", "-c", "food")
	if !strings.Contains(out, "#1 Coffee -$5.00 food") {
		t.Errorf("add output = %q", out)
	}
	h.mustRun("add", "Salary", "1000", "-c", "salary", "-t", "income")

	out = h.mustRun("totals")
	for _, want := range []string{"Balance:  $995.00", "Income:   $1000.00", "Expenses: $5.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("totals output missing %q:\n%s", want, out)
		}
	}

	out = h.mustRun("ls", "--type", "income")
	if !strings.Contains(out, "Salary") || strings.Contains(out, "Coffee") {
		t.Errorf("filtered ls output:\n%s", out)
	}

	out = h.mustRun("breakdown", "-p", "all")
	if !strings.Contains(out, "food") || !strings.Contains(out, "100.00%") {
		t.Errorf("breakdown output:\n%s", out)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad amount", []string{"add", "Coffee", "abc", "-c", "food"}},
		{"negative amount", []string{"add", "-c", "food", "--", "Coffee", "-5"}},
		{"empty description", []string{"add", " ", "5", "-c", "food"}},
		{"bad type", []string{"add", "Coffee", "5", "-t", "gift"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.run(tt.args...); !errors.Is(err, core.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
	if h.ledger.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.ledger.Len())
	}
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	h.mustRun("add", "Coffee", "5", "-c", "food")

	out := h.mustRun("rm", "1", "42")
	if !strings.Contains(out, "0 transaction(s) remaining") {
		t.Errorf("rm output = %q", out)
	}
	if _, err := h.run("rm", "x"); err == nil {
		t.Error("rm x error = nil")
	}
}

func TestBudgetAndCategories(t *testing.T) {
	h := newHarness(t)
	h.mustRun("add", "Groceries", "30", "-c", "food")
	h.mustRun("budget", "set", "food", "100")

	out := h.mustRun("budget", "ls")
	if !strings.Contains(out, "$30.00") || !strings.Contains(out, "$70.00") || strings.Contains(out, "over") {
		t.Errorf("budget ls output:\n%s", out)
	}
	if _, err := h.run("budget", "set", "food", "0"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("zero budget error = %v", err)
	}

	h.mustRun("categories", "add", "pets", "🐶")
	if out := h.mustRun("categories"); !strings.Contains(out, "🐶 pets (user)") {
		t.Errorf("categories output:\n%s", out)
	}
	if _, err := h.run("categories", "rm", "food"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("remove built-in error = %v", err)
	}
	h.mustRun("categories", "rm", "pets")
}

func TestSettingsSetKeepsOmittedFields(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("settings", "set", "--currency", "eur")
	if !strings.Contains(out, "currency:    EUR (€)") || !strings.Contains(out, "theme:       light") {
		t.Errorf("settings output:\n%s", out)
	}
	if _, err := h.run("settings", "set", "--theme", "neon"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad theme error = %v", err)
	}
	if got := h.ledger.Settings().Currency; got != "EUR" {
		t.Errorf("currency = %q", got)
	}
}

func TestExportImportReset(t *testing.T) {
	h := newHarness(t)
	h.mustRun("add", "Coffee", "5", "-c", "food")

	out := h.mustRun("export", "csv")
	if !strings.HasPrefix(out, "Date,Description,Category,Type,Amount\n") {
		t.Errorf("csv = %q", out)
	}
	if _, err := h.run("export", "pdf"); !errors.Is(err, core.ErrExportUnsupported) {
		t.Errorf("pdf error = %v", err)
	}

	backup := filepath.Join(t.TempDir(), "backup.json")
	h.mustRun("export", "json", "-o", backup)

	if _, err := h.run("reset"); err == nil {
		t.Fatal("reset without --yes succeeded")
	}
	h.mustRun("reset", "--yes")
	if h.ledger.Len() != 0 {
		t.Fatalf("Len() after reset = %d", h.ledger.Len())
	}

	out = h.mustRun("import", backup)
	if !strings.Contains(out, "1 transaction(s)") {
		t.Errorf("import output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("[]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := h.run("import", bad); !errors.Is(err, core.ErrParse) {
		t.Errorf("malformed import error = %v", err)
	}
}

func TestLedgerClosedAfterEveryCommand(t *testing.T) {
	h := newHarness(t)
	h.mustRun("totals")
	if _, err := h.run("budget", "set", "food", "0"); err == nil {
		t.Fatal("zero budget error = nil")
	}
	if _, err := h.run("reset"); err == nil {
		t.Fatal("reset without --yes error = nil")
	}
	if h.opened != 3 || h.closed != 3 {
		t.Errorf("opened %d, closed %d, want 3 and 3", h.opened, h.closed)
	}
}

func TestHelpDoesNotOpenLedger(t *testing.T) {
	h := newHarness(t)
	h.mustRun("help")
	if h.opened != 0 {
		t.Errorf("ledger opened %d times for help", h.opened)
	}
}
