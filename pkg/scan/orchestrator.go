// Package scan implements the orchestrator that drives one pipeline
// run: load the worklist, fan discovery invocations out across a
// bounded worker pool, and per completed invocation flush records to
// the result sink before removing the row from the worklist.
//
// Per-prefix discovery failures are isolated: they are logged, counted,
// and the row stays in the worklist for the next run. Only
// infrastructure errors (worklist unreadable) abort the run.
package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/perimeterhq/netsweep/pkg/discover"
	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// Config configures orchestrator behavior.
type Config struct {
	// Concurrency is the number of parallel discovery invocations.
	// Default: 5.
	Concurrency int

	// RateLimit is the maximum process launches per second.
	// Zero means unlimited. Default: 0.
	RateLimit float64
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 5,
		RateLimit:   0,
	}
}

// Store is the worklist surface the orchestrator drives.
type Store interface {
	Load(ctx context.Context) ([]inventory.WorklistRow, error)
	RemoveRow(ctx context.Context, prefix string) error
}

// Runner is the discovery surface the orchestrator fans out over.
type Runner interface {
	Scan(ctx context.Context, prefix, tenant, vrf string) discover.Outcome
}

// Sink receives the records of each successful invocation.
type Sink interface {
	Append(ctx context.Context, records []inventory.HostRecord) error
}

// Summary contains aggregate statistics from a completed run.
type Summary struct {
	// RowsTotal is the worklist row count at load time.
	RowsTotal int

	// RowsSkipped is the number of rows filtered out as ineligible.
	RowsSkipped int

	// PrefixesScanned is the number of successful invocations.
	PrefixesScanned int64

	// PrefixesFailed is the number of invocations that timed out or
	// exited non-zero; their rows remain in the worklist.
	PrefixesFailed int64

	// HostsFound is the total record count across successes.
	HostsFound int64

	// Duration is the total run time.
	Duration time.Duration
}

// Orchestrator executes one scan run.
//
// Orchestrator is safe for single use only. Create a new one per run.
type Orchestrator struct {
	store  Store
	runner Runner
	sink   Sink
	config Config
	logger *zap.Logger
	runID  string

	limiter *rate.Limiter

	scanned    atomic.Int64
	failed     atomic.Int64
	hostsFound atomic.Int64
}

// New creates an orchestrator. Zero config fields fall back to
// defaults; a nil logger is replaced with a no-op logger.
func New(store Store, runner Runner, sink Sink, runID string, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		store:  store,
		runner: runner,
		sink:   sink,
		config: cfg,
		logger: logger,
		runID:  runID,
	}
	if cfg.RateLimit > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return o
}

// Run loads the worklist, dispatches every eligible row, and blocks
// until all dispatched invocations complete. It returns successfully
// even when some invocations failed; only infrastructure errors
// propagate.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	rows, err := o.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]inventory.WorklistRow, 0, len(rows))
	for _, row := range rows {
		if row.Eligible() {
			eligible = append(eligible, row)
			continue
		}
		o.logger.Debug("skipping ineligible row",
			zap.String("run_id", o.runID),
			zap.String("prefix", row.Prefix),
			zap.String("status", row.Status),
			zap.Strings("tags", row.Tags))
	}

	o.logger.Info("dispatching scan run",
		zap.String("run_id", o.runID),
		zap.Int("rows", len(rows)),
		zap.Int("eligible", len(eligible)),
		zap.Int("concurrency", o.config.Concurrency))

	sem := make(chan struct{}, o.config.Concurrency)
	var wg sync.WaitGroup

	for _, row := range eligible {
		if err := o.waitForRateLimit(ctx); err != nil {
			break
		}

		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(row inventory.WorklistRow) {
			defer wg.Done()
			defer func() { <-sem }()
			o.processRow(ctx, row)
		}(row)
	}

	// No partial shutdown: every dispatched invocation completes.
	wg.Wait()

	summary := &Summary{
		RowsTotal:       len(rows),
		RowsSkipped:     len(rows) - len(eligible),
		PrefixesScanned: o.scanned.Load(),
		PrefixesFailed:  o.failed.Load(),
		HostsFound:      o.hostsFound.Load(),
		Duration:        time.Since(start),
	}

	o.logger.Info("scan run completed",
		zap.String("run_id", o.runID),
		zap.Int64("scanned", summary.PrefixesScanned),
		zap.Int64("failed", summary.PrefixesFailed),
		zap.Int64("hosts", summary.HostsFound),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// processRow runs one discovery invocation and applies its outcome.
// The causal order is fixed: records reach the sink before the row
// leaves the worklist.
func (o *Orchestrator) processRow(ctx context.Context, row inventory.WorklistRow) {
	out := o.runner.Scan(ctx, row.Prefix, row.Tenant, row.VRF)
	if !out.Succeeded {
		o.failed.Add(1)
		o.logger.Warn("leaving failed prefix in worklist",
			zap.String("run_id", o.runID),
			zap.String("prefix", row.Prefix),
			zap.Error(out.Err))
		return
	}

	if err := o.sink.Append(ctx, out.Records); err != nil {
		// The row must stay in the worklist when its records were
		// not persisted.
		o.failed.Add(1)
		o.logger.Error("failed to write results, keeping row",
			zap.String("run_id", o.runID),
			zap.String("prefix", row.Prefix),
			zap.Error(err))
		return
	}

	if err := o.store.RemoveRow(ctx, row.Prefix); err != nil {
		o.failed.Add(1)
		o.logger.Error("failed to remove scanned row",
			zap.String("run_id", o.runID),
			zap.String("prefix", row.Prefix),
			zap.Error(err))
		return
	}

	o.scanned.Add(1)
	o.hostsFound.Add(int64(len(out.Records)))
}

// waitForRateLimit blocks until the limiter allows another process
// launch. Returns immediately when rate limiting is disabled.
func (o *Orchestrator) waitForRateLimit(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}
