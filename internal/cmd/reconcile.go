package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/internal/observability"
	"github.com/perimeterhq/netsweep/pkg/inventory"
	"github.com/perimeterhq/netsweep/pkg/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge recent scan results into an inventory table",
	Long: `Merge the two most recent result files into a single inventory table.

The newest file wins on conflicts. Hosts present only in the older file
are carried forward with their status set to deprecated, so hosts that
stopped responding stay visible.

Example:
  netsweep reconcile --results ./results
  netsweep reconcile --results ./results --output addresses.csv`,
	RunE: runReconcile,
}

var (
	reconcileResults string
	reconcileOutput  string
)

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileResults, "results", "", "Results directory to reconcile")
	reconcileCmd.Flags().StringVarP(&reconcileOutput, "output", "o", "", "Output path for the merged table")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	dir := reconcileResults
	if dir == "" {
		dir = viper.GetString("results.directory")
	}
	out := reconcileOutput
	if out == "" {
		out = viper.GetString("results.reconciled")
	}

	return executeReconcile(dir, out)
}

// executeReconcile merges the two newest result files in dir and writes
// the merged table to out.
func executeReconcile(dir, out string) error {
	r := reconcile.New(observability.CLILogger)

	table, err := r.Reconcile(dir)
	if err != nil {
		if inventory.IsNotFound(err) {
			observability.CLILogger.Error("No result files to reconcile",
				zap.String("dir", dir),
				zap.Error(err))
			return exitError(foundry.ExitFileNotFound, "No result files found", err)
		}
		observability.CLILogger.Error("Failed to reconcile results",
			zap.String("dir", dir),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Failed to read result files", err)
	}

	if err := r.WriteTable(out, table); err != nil {
		observability.CLILogger.Error("Failed to write merged table",
			zap.String("path", out),
			zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}

	observability.CLILogger.Info("Reconcile completed",
		zap.String("output", out),
		zap.Int("hosts", len(table)))
	return nil
}
