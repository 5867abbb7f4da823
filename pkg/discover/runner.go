// Package discover invokes the external host-discovery tool for one
// prefix at a time and parses its textual output into host records.
//
// The tool is a black box: command line in, text output plus exit code
// out. The runner enforces a hard wall-clock timeout per invocation and
// classifies failures so the orchestrator can keep failed prefixes in
// the worklist for a future run.
package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// DefaultTimeout is the wall-clock bound for one discovery invocation.
const DefaultTimeout = 300 * time.Second

// DefaultBinary is the discovery tool executable resolved on PATH.
const DefaultBinary = "discover"

// ScanTimeLayout is the stamp format of the scantime column.
const ScanTimeLayout = "2006-01-02 15:04:05"

// Config configures the discovery runner.
type Config struct {
	// Binary is the discovery tool executable. Default: "discover".
	Binary string

	// Timeout bounds one invocation. On expiry the process is killed
	// and the outcome is a failure. Default: 300s.
	Timeout time.Duration

	// ResolveDNS toggles reverse-DNS resolution during discovery.
	ResolveDNS bool

	// StampScanTime toggles the scantime column on produced records.
	StampScanTime bool
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		Binary:        DefaultBinary,
		Timeout:       DefaultTimeout,
		ResolveDNS:    true,
		StampScanTime: true,
	}
}

// Outcome is the transient result of one discovery invocation. It is
// produced once per worklist row and consumed once by the orchestrator.
type Outcome struct {
	// Prefix is the scanned network.
	Prefix string

	// Records are the hosts discovered under Prefix. Empty on failure.
	Records []inventory.HostRecord

	// Succeeded is true when the process exited zero within the
	// timeout. Only then may the prefix leave the worklist.
	Succeeded bool

	// Err classifies the failure (ErrDiscoveryTimeout or
	// ErrDiscoveryFailed). Nil when Succeeded.
	Err error
}

// Runner launches the external discovery process.
//
// Runner is safe for concurrent use; each Scan call owns its process.
type Runner struct {
	config Config
	logger *zap.Logger

	// now is swapped in tests to pin scantime stamps.
	now func() time.Time
}

// New creates a runner. Zero config fields fall back to defaults; a
// nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{config: cfg, logger: logger, now: time.Now}
}

// Scan runs the discovery tool against one prefix and parses its
// output. The returned outcome never carries a fatal error: timeouts
// and non-zero exits are reported through Succeeded=false so the caller
// can continue with the remaining prefixes.
func (r *Runner) Scan(ctx context.Context, prefix, tenant, vrf string) Outcome {
	r.logger.Info("starting discovery",
		zap.String("prefix", prefix),
		zap.String("vrf", vrf))

	args := []string{
		"--host-scan-only",
		"--timing=aggressive",
		"--min-parallelism=10",
		"--max-retries=2",
	}
	if r.config.ResolveDNS {
		args = append(args, "--resolve-dns")
	} else {
		args = append(args, "--no-dns")
	}
	args = append(args, prefix)

	scanCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(scanCtx, r.config.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if scanCtx.Err() == context.DeadlineExceeded {
		r.logger.Error("discovery timed out",
			zap.String("prefix", prefix),
			zap.Duration("timeout", r.config.Timeout))
		return Outcome{Prefix: prefix, Err: fmt.Errorf("prefix %s: %w", prefix, inventory.ErrDiscoveryTimeout)}
	}
	if err != nil {
		r.logger.Error("discovery failed",
			zap.String("prefix", prefix),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
			zap.Error(err))
		return Outcome{Prefix: prefix, Err: fmt.Errorf("prefix %s: %v: %w", prefix, err, inventory.ErrDiscoveryFailed)}
	}

	scanTime := ""
	if r.config.StampScanTime {
		scanTime = r.now().Format(ScanTimeLayout)
	}

	records := r.parseOutput(stdout.String(), prefix, tenant, vrf, scanTime)

	r.logger.Info("completed discovery",
		zap.String("prefix", prefix),
		zap.Int("hosts", len(records)))
	return Outcome{Prefix: prefix, Records: records, Succeeded: true}
}

// parseOutput extracts one host record per marker line. Lines that
// fail to parse are dropped with a warning; a bad line never fails the
// whole invocation.
func (r *Runner) parseOutput(output, prefix, tenant, vrf, scanTime string) []inventory.HostRecord {
	var records []inventory.HostRecord
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, HostFoundMarker) {
			continue
		}
		rec, err := ParseHostLine(line, prefix)
		if err != nil {
			r.logger.Warn("skipping unparseable discovery line",
				zap.String("prefix", prefix),
				zap.String("line", strings.TrimSpace(line)),
				zap.Error(err))
			continue
		}
		rec.Status = inventory.StatusActive
		rec.Tags = inventory.TagAutoscan
		rec.Tenant = tenant
		rec.VRF = vrf
		rec.ScanTime = scanTime
		records = append(records, rec)
	}
	return records
}

// ExitError reports whether err wraps a process exit failure, for
// callers that want the exit code in diagnostics.
func ExitError(err error) (*exec.ExitError, bool) {
	var ee *exec.ExitError
	ok := errors.As(err, &ee)
	return ee, ok
}
