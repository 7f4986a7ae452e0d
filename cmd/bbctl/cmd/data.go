package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:       "export <csv|json|pdf|xlsx>",
		Short:     "Export transactions or a full backup",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"csv", "json", "pdf", "xlsx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			switch args[0] {
			case "csv":
				data = []byte(a.ledger.ExportCSV())
			case "json":
				data, err = a.ledger.ExportJSON()
			case "pdf":
				data, err = a.ledger.ExportPDF()
			case "xlsx":
				data, err = a.ledger.ExportExcel()
			default:
				return fmt.Errorf("unknown export format %q", args[0])
			}
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o600)
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return c
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Merge a JSON backup into the ledger",
		Long: `Merge a JSON backup produced by "bbctl export json". Only the top-level
keys present in the file replace ledger state; the import is all or nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var blob []byte
			var err error
			if args[0] == "-" {
				blob, err = io.ReadAll(cmd.InOrStdin())
			} else {
				blob, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			if err := a.ledger.ImportBackup(cmd.Context(), blob); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported, %d transaction(s)\n", a.ledger.Len())
			return nil
		},
	}
}

var errResetNotConfirmed = errors.New("reset deletes every transaction, budget and user category; pass --yes to confirm")

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errResetNotConfirmed
			}
			if err := a.ledger.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ledger reset")
			return nil
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return c
}
