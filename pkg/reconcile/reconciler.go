// Package reconcile merges the two most recent scan snapshots into a
// single inventory table. Hosts present only in the older snapshot are
// carried forward with their status forced to deprecated, so hosts that
// stopped responding stay visible instead of silently disappearing.
package reconcile

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/pkg/inventory"
	"github.com/perimeterhq/netsweep/pkg/results"
)

// Reconciler builds merged inventory tables from scan snapshots.
type Reconciler struct {
	logger *zap.Logger
}

// New creates a reconciler. A nil logger is replaced with a no-op
// logger.
func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile loads the newest and second-newest snapshots in dir and
// merges them. The newest snapshot wins on key conflicts; keys present
// only in the older snapshot are kept with status deprecated. When only
// one snapshot exists its contents pass through unchanged. Returns
// inventory.ErrNotFound when dir holds no snapshots at all.
func (r *Reconciler) Reconcile(dir string) (map[string]inventory.HostRecord, error) {
	snaps, err := results.ListSnapshots(dir)
	if err != nil {
		return nil, err
	}

	newest, err := results.LoadSnapshot(snaps[0].Path)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 1 {
		r.logger.Info("single snapshot, nothing to merge",
			zap.String("path", snaps[0].Path),
			zap.Int("hosts", len(newest)))
		return newest, nil
	}

	previous, err := results.LoadSnapshot(snaps[1].Path)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]inventory.HostRecord, len(newest)+len(previous))
	for key, rec := range newest {
		merged[key] = rec
	}

	deprecated := 0
	for key, rec := range previous {
		if _, ok := merged[key]; ok {
			continue
		}
		rec.Status = inventory.StatusDeprecated
		merged[key] = rec
		deprecated++
	}

	r.logger.Info("reconciled snapshots",
		zap.String("newest", snaps[0].Path),
		zap.String("previous", snaps[1].Path),
		zap.Int("hosts", len(merged)),
		zap.Int("deprecated", deprecated))
	return merged, nil
}

// WriteTable writes the merged table to path in the results CSV layout.
// Rows are ordered by key so repeated reconciliations of the same
// snapshots produce identical files.
func (r *Reconciler) WriteTable(path string, table map[string]inventory.HostRecord) error {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(inventory.ResultsHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, key := range keys {
		rec := table[key]
		if err := w.Write(rec.HostRecordToCSV()); err != nil {
			f.Close()
			return fmt.Errorf("failed to write record %s: %w", key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	r.logger.Info("wrote reconciled table",
		zap.String("path", path),
		zap.Int("hosts", len(table)))
	return nil
}
