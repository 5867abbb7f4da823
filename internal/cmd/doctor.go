package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the system and suggest fixes for common issues.

Examples:
  netsweep doctor
  NETSWEEP_DISCOVERY_BINARY=/opt/discover netsweep doctor`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	observability.CLILogger.Info("=== netsweep doctor ===")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Running diagnostic checks...")
	observability.CLILogger.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 5

	// Check 1: Go version
	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Go version... ✅ %s", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
		allChecks = false
	}
	checkNum++

	// Check 2: Discovery binary on PATH
	binary := viper.GetString("discovery.binary")
	if path, err := exec.LookPath(binary); err == nil {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking discovery binary... ✅ %s", checkNum, totalChecks, path),
			zap.String("binary", path))
	} else {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking discovery binary... ❌ %q not found on PATH", checkNum, totalChecks, binary),
			zap.Error(err))
		printBinaryHelp(binary)
		allChecks = false
	}
	checkNum++

	// Check 3: Worklist readable
	worklistPath := viper.GetString("worklist.path")
	if f, err := os.Open(worklistPath); err == nil {
		_ = f.Close()
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking worklist... ✅ %s", checkNum, totalChecks, worklistPath),
			zap.String("worklist", worklistPath))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking worklist... ⚠️  cannot open %s", checkNum, totalChecks, worklistPath),
			zap.Error(err))
		allChecks = false
	}
	checkNum++

	// Check 4: Results directory writable
	resultsDir := viper.GetString("results.directory")
	if err := checkWritable(resultsDir); err == nil {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking results directory... ✅ %s", checkNum, totalChecks, resultsDir),
			zap.String("results", resultsDir))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking results directory... ⚠️  %s not writable", checkNum, totalChecks, resultsDir),
			zap.Error(err))
		allChecks = false
	}
	checkNum++

	// Check 5: Environment
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))

	observability.CLILogger.Info("")
	if allChecks {
		observability.CLILogger.Info("✅ All checks passed! Your netsweep installation is healthy.")
	} else {
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")
}

// checkWritable probes dir by creating and removing a temp file.
// The directory is created first if it does not exist.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// printBinaryHelp prints help for installing the discovery tool.
func printBinaryHelp(binary string) {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To make the discovery tool available:")
	observability.CLILogger.Info(fmt.Sprintf("  1. Install %q and ensure it is on PATH, or", binary))
	observability.CLILogger.Info("  2. Set NETSWEEP_DISCOVERY_BINARY to its full path, or")
	observability.CLILogger.Info("  3. Pass --binary to the scan command")
	observability.CLILogger.Info("")
}
