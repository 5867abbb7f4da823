package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/internal/observability"
	"github.com/perimeterhq/netsweep/pkg/discover"
	"github.com/perimeterhq/netsweep/pkg/inventory"
	"github.com/perimeterhq/netsweep/pkg/manifest"
	"github.com/perimeterhq/netsweep/pkg/results"
	"github.com/perimeterhq/netsweep/pkg/scan"
	"github.com/perimeterhq/netsweep/pkg/worklist"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan job over the worklist",
	Long: `Run a scan job: load the worklist, invoke the discovery tool for every
eligible prefix, and write discovered hosts to a timestamped result file.

Job configuration comes from a YAML or JSON manifest, from NETSWEEP_
environment variables, or from flags. Flags override the manifest.

Example:
  netsweep scan --job scan.yaml
  netsweep scan --worklist worklist.csv --results ./results
  netsweep scan --job scan.yaml --workers 10 --no-dns
  netsweep scan --job scan.yaml --dry-run`,
	RunE: runScan,
}

var (
	scanJobPath    string
	scanWorklist   string
	scanResults    string
	scanWorkers    int
	scanTimeout    int
	scanRateLimit  float64
	scanBinary     string
	scanNoDNS      bool
	scanNoScanTime bool
	scanDryRun     bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanJobPath, "job", "j", "", "Path to job manifest")
	scanCmd.Flags().StringVar(&scanWorklist, "worklist", "", "Override worklist CSV path")
	scanCmd.Flags().StringVar(&scanResults, "results", "", "Override results directory")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Override parallel discovery invocations")
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Override per-prefix timeout in seconds")
	scanCmd.Flags().Float64Var(&scanRateLimit, "rate-limit", -1, "Override process launches per second (0 = unlimited)")
	scanCmd.Flags().StringVar(&scanBinary, "binary", "", "Override discovery tool binary")
	scanCmd.Flags().BoolVar(&scanNoDNS, "no-dns", false, "Disable DNS resolution in the discovery tool")
	scanCmd.Flags().BoolVar(&scanNoScanTime, "no-scantime", false, "Do not stamp records with the scan start time")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Validate configuration and show plan without executing")
}

func runScan(cmd *cobra.Command, args []string) error {
	m, err := loadScanManifest()
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", scanJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	applyScanOverrides(m, cmd)

	if m.Worklist.Path == "" {
		return exitError(foundry.ExitInvalidArgument, "Missing worklist path",
			fmt.Errorf("set worklist.path in the manifest or pass --worklist"))
	}
	if m.Results.Directory == "" {
		return exitError(foundry.ExitInvalidArgument, "Missing results directory",
			fmt.Errorf("set results.directory in the manifest or pass --results"))
	}

	if scanDryRun {
		return showScanPlan(m)
	}

	_, err = executeScan(cmd.Context(), m)
	return err
}

// loadScanManifest builds the effective manifest: from --job when given,
// otherwise from viper defaults and NETSWEEP_ environment variables.
func loadScanManifest() (*manifest.Manifest, error) {
	if scanJobPath != "" {
		return manifest.Load(scanJobPath)
	}

	resolveDNS := viper.GetBool("discovery.resolve_dns")
	stamp := viper.GetBool("discovery.stamp_scantime")
	m := &manifest.Manifest{
		Version: manifest.DefaultVersion,
		Worklist: manifest.WorklistConfig{
			Path: viper.GetString("worklist.path"),
		},
		Results: manifest.ResultsConfig{
			Directory:  viper.GetString("results.directory"),
			Reconciled: viper.GetString("results.reconciled"),
		},
		Discovery: manifest.DiscoveryConfig{
			Binary:         viper.GetString("discovery.binary"),
			TimeoutSeconds: viper.GetInt("discovery.timeout_seconds"),
			ResolveDNS:     &resolveDNS,
			StampScanTime:  &stamp,
		},
		Scan: manifest.ScanConfig{
			Concurrency: viper.GetInt("scan.concurrency"),
			RateLimit:   viper.GetFloat64("scan.rate_limit"),
		},
	}
	m.ApplyDefaults()
	return m, nil
}

// applyScanOverrides applies flag overrides on top of the manifest.
func applyScanOverrides(m *manifest.Manifest, cmd *cobra.Command) {
	if scanWorklist != "" {
		m.Worklist.Path = scanWorklist
	}
	if scanResults != "" {
		m.Results.Directory = scanResults
	}
	if scanWorkers > 0 {
		m.Scan.Concurrency = scanWorkers
	}
	if scanTimeout > 0 {
		m.Discovery.TimeoutSeconds = scanTimeout
	}
	if cmd.Flags().Changed("rate-limit") && scanRateLimit >= 0 {
		m.Scan.RateLimit = scanRateLimit
	}
	if scanBinary != "" {
		m.Discovery.Binary = scanBinary
	}
	if scanNoDNS {
		disabled := false
		m.Discovery.ResolveDNS = &disabled
	}
	if scanNoScanTime {
		disabled := false
		m.Discovery.StampScanTime = &disabled
	}
}

// showScanPlan displays what would be scanned without executing.
func showScanPlan(m *manifest.Manifest) error {
	fmt.Println("=== Scan Plan (dry-run) ===")
	fmt.Println()
	fmt.Printf("Worklist:    %s\n", m.Worklist.Path)
	fmt.Printf("Results:     %s\n", m.Results.Directory)
	fmt.Println()
	fmt.Printf("Binary:      %s\n", m.Discovery.Binary)
	fmt.Printf("Timeout:     %ds\n", m.Discovery.TimeoutSeconds)
	fmt.Printf("Resolve DNS: %v\n", m.Discovery.ResolveDNSEnabled())
	fmt.Printf("Scan Time:   %v\n", m.Discovery.StampScanTimeEnabled())
	fmt.Println()
	fmt.Printf("Concurrency: %d\n", m.Scan.Concurrency)
	if m.Scan.RateLimit > 0 {
		fmt.Printf("Rate Limit:  %.1f launches/s\n", m.Scan.RateLimit)
	}
	fmt.Println()
	fmt.Println("Configuration validated successfully. Remove --dry-run to execute.")
	return nil
}

// executeScan runs the actual scan job and returns the result file path.
func executeScan(ctx context.Context, m *manifest.Manifest) (string, error) {
	runID := uuid.New().String()

	store := worklist.New(m.Worklist.Path, observability.CLILogger)

	runnerCfg := discover.Config{
		Binary:        m.Discovery.Binary,
		Timeout:       time.Duration(m.Discovery.TimeoutSeconds) * time.Second,
		ResolveDNS:    m.Discovery.ResolveDNSEnabled(),
		StampScanTime: m.Discovery.StampScanTimeEnabled(),
	}
	runner := discover.New(runnerCfg, observability.CLILogger)

	sink, err := results.NewSink(m.Results.Directory, time.Now())
	if err != nil {
		observability.CLILogger.Error("Failed to create result sink", zap.Error(err))
		return "", exitError(foundry.ExitFileWriteError, "Failed to create results directory", err)
	}

	cfg := scan.Config{
		Concurrency: m.Scan.Concurrency,
		RateLimit:   m.Scan.RateLimit,
	}
	orchestrator := scan.New(store, runner, sink, runID, cfg, observability.CLILogger)

	observability.CLILogger.Info("Starting scan",
		zap.String("run_id", runID),
		zap.String("worklist", m.Worklist.Path),
		zap.String("results", sink.Path()),
		zap.Int("concurrency", cfg.Concurrency))

	summary, err := orchestrator.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Scan cancelled",
				zap.String("run_id", runID))
			return "", exitError(foundry.ExitSignalInt, "Scan cancelled", err)
		}
		observability.CLILogger.Error("Scan failed",
			zap.String("run_id", runID),
			zap.Error(err))
		if inventory.IsNotFound(err) {
			return "", exitError(foundry.ExitFileNotFound, "Worklist not found", err)
		}
		return "", exitError(foundry.ExitFileReadError, "Failed to read worklist", err)
	}

	observability.CLILogger.Info("Scan completed",
		zap.String("run_id", runID),
		zap.Int("rows", summary.RowsTotal),
		zap.Int("skipped", summary.RowsSkipped),
		zap.Int64("scanned", summary.PrefixesScanned),
		zap.Int64("failed", summary.PrefixesFailed),
		zap.Int64("hosts", summary.HostsFound),
		zap.Duration("duration", summary.Duration))

	return sink.Path(), nil
}
