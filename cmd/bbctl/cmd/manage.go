package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgetbook/internal/core"
)

func newBudgetCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}

	c.AddCommand(&cobra.Command{
		Use:   "set <category> <limit>",
		Short: "Set or replace the monthly limit of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := core.ParseAmount(args[1])
			if err != nil {
				return &core.ValidationError{Field: "budget", Reason: "must be a positive number"}
			}
			return a.ledger.SetBudget(cmd.Context(), args[0], limit)
		},
	}, &cobra.Command{
		Use:   "rm <category>",
		Short: "Delete the budget of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ledger.DeleteBudget(cmd.Context(), args[0])
		},
	}, &cobra.Command{
		Use:   "ls",
		Short: "Show spending against each budget this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sym := a.ledger.Settings().Symbol()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tSPENT\tLIMIT\tREMAINING\tUSED")
			for _, b := range a.ledger.BudgetReport() {
				flag := ""
				if b.Over {
					flag = " over"
				}
				fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s%%%s\n", b.Icon, b.Category,
					core.FormatMoney(b.Spent, sym), core.FormatMoney(b.Limit, sym),
					core.FormatMoney(b.Remaining, sym), core.Fixed2(b.Percent), flag)
			}
			return w.Flush()
		},
	})
	return c
}

func newCategoriesCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "List and manage categories",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, cat := range a.ledger.Categories() {
				kind := "user"
				if cat.BuiltIn {
					kind = "built-in"
				}
				fmt.Fprintf(out, "%s %s (%s)\n", cat.Icon, cat.Key, kind)
			}
		},
	}

	c.AddCommand(&cobra.Command{
		Use:   "add <key> [icon]",
		Short: "Add a user category",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			icon := ""
			if len(args) == 2 {
				icon = args[1]
			}
			cat, err := a.ledger.AddCategory(cmd.Context(), args[0], icon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cat.Icon, cat.Key)
			return nil
		},
	}, &cobra.Command{
		Use:   "rm <key>",
		Short: "Remove a user category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ledger.RemoveCategory(cmd.Context(), args[0])
		},
	})
	return c
}

func newSettingsCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "settings",
		Short: "Show or change display settings",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printSettings(cmd, a.ledger.Settings())
		},
	}

	var next core.Settings
	set := &cobra.Command{
		Use:   "set",
		Short: "Change settings; omitted flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.ledger.Settings()
			if cmd.Flags().Changed("currency") {
				s.Currency = next.Currency
			}
			if cmd.Flags().Changed("date-format") {
				s.DateFormat = next.DateFormat
			}
			if cmd.Flags().Changed("theme") {
				s.Theme = next.Theme
			}
			if cmd.Flags().Changed("language") {
				s.Language = next.Language
			}
			updated, err := a.ledger.UpdateSettings(cmd.Context(), s)
			if err != nil {
				return err
			}
			printSettings(cmd, updated)
			return nil
		},
	}
	set.Flags().StringVar(&next.Currency, "currency", "", "ISO currency code, e.g. EUR")
	set.Flags().StringVar(&next.DateFormat, "date-format", "", "MM/DD/YYYY, DD/MM/YYYY or YYYY-MM-DD")
	set.Flags().StringVar(&next.Theme, "theme", "", "light or dark")
	set.Flags().StringVar(&next.Language, "language", "", "language code")
	c.AddCommand(set)
	return c
}

func printSettings(cmd *cobra.Command, s core.Settings) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "currency:    %s (%s)\n", s.Currency, s.Symbol())
	fmt.Fprintf(out, "date format: %s\n", s.DateFormat)
	fmt.Fprintf(out, "theme:       %s\n", s.Theme)
	fmt.Fprintf(out, "language:    %s\n", s.Language)
}
