package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

func newAddCmd(a *app) *cobra.Command {
	var category, typ string
	c := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Record a transaction",
		Long: `Record an expense or income. The amount is unsigned; its sign comes
from --type. Both 12.34 and 12,34 are accepted.

Example:
  bbctl add "Coffee" 4.50 -c food
  bbctl add "March salary" 2500 -c salary -t income`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			t, err := core.ParseType(typ)
			if err != nil {
				return err
			}
			tx, err := a.ledger.AddTransaction(cmd.Context(), args[0], amount, category, t)
			if err != nil {
				return err
			}
			s := a.ledger.Settings()
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s %s\n",
				tx.ID, tx.Description, core.FormatSigned(tx.Amount, s.Symbol()), tx.Category)
			return nil
		},
	}
	c.Flags().StringVarP(&category, "category", "c", "other", "category key")
	c.Flags().StringVarP(&typ, "type", "t", string(core.Expense), "expense or income")
	return c
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove transactions by id (unknown ids are ignored)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", arg)
				}
				ids = append(ids, id)
			}
			for _, id := range ids {
				if err := a.ledger.RemoveTransaction(cmd.Context(), id); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transaction(s) remaining\n", a.ledger.Len())
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var q ledger.Query
	var sortKey, period string
	var limit int
	c := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.Sort, err = ledger.ParseSortKey(sortKey); err != nil {
				return err
			}
			if q.Period, err = ledger.ParsePeriod(period); err != nil {
				return err
			}
			txs := a.ledger.FilterAndSort(q)
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}

			s := a.ledger.Settings()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tDESCRIPTION\tCATEGORY\tAMOUNT")
			for _, tx := range txs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\t%s\n",
					tx.ID, s.FormatDate(tx.Date), tx.Description,
					a.ledger.Icon(tx.Category), tx.Category,
					core.FormatSigned(tx.Amount, s.Symbol()))
			}
			return w.Flush()
		},
	}
	c.Flags().StringVarP(&q.Search, "search", "s", "", "match description or category")
	c.Flags().StringVarP(&q.Type, "type", "t", ledger.FilterAll, "all, expense or income")
	c.Flags().StringVarP(&q.Category, "category", "c", ledger.FilterAll, "category key or all")
	c.Flags().StringVar(&sortKey, "sort", string(ledger.SortNewest), "newest, oldest, highest or lowest")
	c.Flags().StringVarP(&period, "period", "p", string(ledger.PeriodAll), "all, today, week, month or year")
	c.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n rows")
	return c
}

func newTotalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Show balance, income and expenses",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := a.ledger.ComputeTotals()
			sym := a.ledger.Settings().Symbol()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Balance:  %s\n", core.FormatMoney(t.Balance, sym))
			fmt.Fprintf(out, "Income:   %s\n", core.FormatMoney(t.Income, sym))
			fmt.Fprintf(out, "Expenses: %s\n", core.FormatMoney(t.Expenses, sym))
		},
	}
}

func newBreakdownCmd(a *app) *cobra.Command {
	var period string
	c := &cobra.Command{
		Use:   "breakdown",
		Short: "Show expenses per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ledger.ParsePeriod(period)
			if err != nil {
				return err
			}
			shares := a.ledger.BreakdownShares(a.ledger.FilterAndSort(ledger.Query{Period: p}))
			sym := a.ledger.Settings().Symbol()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, sh := range shares {
				fmt.Fprintf(w, "%s %s\t%s\t%s%%\n", sh.Icon, sh.Category,
					core.FormatMoney(sh.Amount, sym), core.Fixed2(sh.Percent))
			}
			return w.Flush()
		},
	}
	c.Flags().StringVarP(&period, "period", "p", string(ledger.PeriodMonth), "all, today, week, month or year")
	return c
}
