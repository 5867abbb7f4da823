// Package cmd implements the netsweep command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perimeterhq/netsweep/internal/observability"
)

// VersionInfo holds build-time version metadata, injected via ldflags.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var versionInfo = VersionInfo{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
// Called from main before Execute.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate

	rootCmd.Version = versionInfo.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("netsweep %s (commit %s, built %s)\n",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate))
}

var (
	rootLogLevel string
	rootVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "netsweep",
	Short: "Network scan-and-reconcile pipeline",
	Long: `netsweep drives an external host discovery tool over a CSV worklist of
network prefixes, collects discovered hosts into per-run result files,
and reconciles consecutive runs into a merged inventory table.

Examples:
  netsweep scan --job scan.yaml
  netsweep scan --worklist worklist.csv --results ./results
  netsweep reconcile --results ./results --output addresses.csv
  netsweep run --job scan.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := rootLogLevel
		if level == "" {
			level = viper.GetString("logging.level")
		}
		observability.InitCLILogger(level, rootVerbose)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")

	SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
}

// initConfig wires viper: defaults first, then NETSWEEP_ environment
// variables override them.
func initConfig() {
	setDefaults()
	viper.SetEnvPrefix("NETSWEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults registers default configuration values.
func setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// Worklist and results defaults
	viper.SetDefault("worklist.path", "worklist.csv")
	viper.SetDefault("results.directory", "results")
	viper.SetDefault("results.reconciled", "addresses.csv")

	// Discovery defaults
	viper.SetDefault("discovery.binary", "discover")
	viper.SetDefault("discovery.timeout_seconds", 300)
	viper.SetDefault("discovery.resolve_dns", true)
	viper.SetDefault("discovery.stamp_scantime", true)

	// Scan defaults
	viper.SetDefault("scan.concurrency", 5)
	viper.SetDefault("scan.rate_limit", 0.0)
}

// codedError carries a process exit code alongside the error chain.
type codedError struct {
	code    int
	message string
	err     error
}

func (e *codedError) Error() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.err)
}

func (e *codedError) Unwrap() error {
	return e.err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &codedError{code: code, message: message, err: err}
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return 1
}
