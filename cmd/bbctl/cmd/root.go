// Package cmd provides the bbctl subcommands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"budgetbook/internal/cli"
	"budgetbook/internal/ledger"
	"budgetbook/internal/log"
)

// Opener opens the ledger a command runs against.
type Opener func(ctx context.Context, mirror bool) (*ledger.Ledger, func(), error)

type app struct {
	open    Opener
	ledger  *ledger.Ledger
	cleanup func()

	debug  bool
	mirror bool
}

// defaultOpener loads .env and configuration like the server does.
func defaultOpener(debug bool) Opener {
	return func(ctx context.Context, mirror bool) (*ledger.Ledger, func(), error) {
		cli.LoadEnvFile()
		cfg, err := cli.LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		level := cfg.LogLevel
		if debug {
			level = "debug"
		}
		// Logs go to stderr so command output stays pipeable.
		logger := log.New(log.Config{
			Component: log.ComponentCLI,
			Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: log.ParseLevel(level),
			}),
		})
		return cli.OpenLedger(ctx, cfg, logger, mirror)
	}
}

// close releases the opened ledger, if any.
func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// Root is the bbctl command tree.
type Root struct {
	*cobra.Command
	app *app
}

// ExecuteContext runs the selected command and closes the ledger whether
// or not the command succeeded.
func (r *Root) ExecuteContext(ctx context.Context) error {
	defer r.app.close()
	return r.Command.ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. A nil opener uses configuration from
// the environment.
func NewRootCmd(open Opener) *Root {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "bbctl",
		Short: "Manage a budgetbook ledger from the terminal",
		Long: `bbctl reads and changes the same ledger the budgetbook server uses.

Storage is selected with DATA_BACKEND (memory, bolt, sqlite, postgres) and
the related variables, or a YAML file named by BUDGETBOOK_CONFIG.

Example:
  bbctl add "Coffee" 4.50 -c food
  bbctl ls --period month --sort highest
  bbctl budget set food 300
  bbctl export json -o backup.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsLedger(cmd) {
				return nil
			}
			opener := a.open
			if opener == nil {
				opener = defaultOpener(a.debug)
			}
			l, cleanup, err := opener(cmd.Context(), a.mirror)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			a.ledger, a.cleanup = l, cleanup
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.mirror, "mirror", false, "copy new transactions to the configured mirror")

	root.AddCommand(
		newAddCmd(a),
		newRemoveCmd(a),
		newListCmd(a),
		newTotalsCmd(a),
		newBreakdownCmd(a),
		newBudgetCmd(a),
		newCategoriesCmd(a),
		newSettingsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newResetCmd(a),
	)
	return &Root{Command: root, app: a}
}

// needsLedger is false for help and shell completion.
func needsLedger(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// Execute runs bbctl with configuration from the environment.
func Execute() error {
	root := NewRootCmd(nil)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
