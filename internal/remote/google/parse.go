package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/remote"
)

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
}

func formatRow(r remote.Row) []any {
	return []any{r.CreatedAt.UTC().Format(time.RFC3339), r.Text, r.Amount.String()}
}

// parseRow converts sheet values into a Row. Rows without a numeric amount,
// such as the header, are rejected.
func parseRow(cols []string) (remote.Row, bool) {
	if len(cols) < 3 {
		return remote.Row{}, false
	}
	text := strings.TrimSpace(cols[1])
	if text == "" {
		return remote.Row{}, false
	}
	amount, ok := parseAmount(cols[2])
	if !ok {
		return remote.Row{}, false
	}
	r := remote.Row{Text: text, Amount: amount}
	created := strings.TrimSpace(cols[0])
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, created); err == nil {
			r.CreatedAt = t
			break
		}
	}
	return r, true
}

// parseAmount accepts plain numbers as well as values rendered with a
// decimal comma or a leading currency symbol.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "-+$€£¥₹ ")
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
