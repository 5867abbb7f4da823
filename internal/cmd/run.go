package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scan then reconcile",
	Long: `Run the full pipeline in sequence: scan the worklist, then reconcile
the result files into the merged inventory table.

The pipeline stops at the first failed stage. Per-prefix discovery
failures do not fail the scan stage; they leave their rows in the
worklist for the next run.

Example:
  netsweep run --job scan.yaml
  netsweep run --worklist worklist.csv --results ./results`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&scanJobPath, "job", "j", "", "Path to job manifest")
	runCmd.Flags().StringVar(&scanWorklist, "worklist", "", "Override worklist CSV path")
	runCmd.Flags().StringVar(&scanResults, "results", "", "Override results directory")
	runCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Override parallel discovery invocations")
	runCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Override per-prefix timeout in seconds")
	runCmd.Flags().Float64Var(&scanRateLimit, "rate-limit", -1, "Override process launches per second (0 = unlimited)")
	runCmd.Flags().StringVar(&scanBinary, "binary", "", "Override discovery tool binary")
	runCmd.Flags().BoolVar(&scanNoDNS, "no-dns", false, "Disable DNS resolution in the discovery tool")
	runCmd.Flags().BoolVar(&scanNoScanTime, "no-scantime", false, "Do not stamp records with the scan start time")
	runCmd.Flags().StringVarP(&reconcileOutput, "output", "o", "", "Output path for the merged table")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	m, err := loadScanManifest()
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", scanJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	applyScanOverrides(m, cmd)
	if reconcileOutput != "" {
		m.Results.Reconciled = reconcileOutput
	}

	observability.CLILogger.Info("Starting pipeline",
		zap.String("worklist", m.Worklist.Path),
		zap.String("results", m.Results.Directory))

	resultPath, err := executeScan(cmd.Context(), m)
	if err != nil {
		observability.CLILogger.Error("Pipeline stopped: scan stage failed", zap.Error(err))
		return err
	}

	observability.CLILogger.Info("Scan stage completed",
		zap.String("results", resultPath))

	if err := executeReconcile(m.Results.Directory, m.Results.Reconciled); err != nil {
		observability.CLILogger.Error("Pipeline stopped: reconcile stage failed", zap.Error(err))
		return err
	}

	observability.CLILogger.Info("Pipeline completed",
		zap.String("inventory", m.Results.Reconciled))
	return nil
}
