// Package results owns the run-scoped output files: appending host
// records as workers complete, and reading files back as snapshots for
// reconciliation.
//
// One pipeline run produces exactly one output file, named from the
// run's start time, so that concurrent workers converge on a single
// file. Writers serialize on a mutex around the whole open-append-close
// sequence; interleaved writes can therefore never corrupt a row or
// duplicate the header.
package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// FileTimeLayout formats a run start time into the output file name.
const FileTimeLayout = "2006-01-02_15-04-05"

// FilePattern matches run output file names in a results directory.
const FilePattern = "results_*.csv"

// FileName derives the run-scoped output file name from a run start
// time. All workers of one run share it.
func FileName(runStart time.Time) string {
	return "results_" + runStart.Format(FileTimeLayout) + ".csv"
}

// Sink appends host records to the run-scoped output file.
//
// Sink is safe for concurrent use by the orchestrator's workers.
type Sink struct {
	dir      string
	runStart time.Time

	mu sync.Mutex
}

// NewSink creates a sink writing into dir for the run that started at
// runStart. The directory is created if missing.
func NewSink(dir string, runStart time.Time) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir %s: %w", dir, err)
	}
	return &Sink{dir: dir, runStart: runStart}, nil
}

// Path returns the run-scoped output file path.
func (s *Sink) Path() string {
	return filepath.Join(s.dir, FileName(s.runStart))
}

// Append writes one row per record to the run file, creating it with a
// header row on first use. The open-append-close cycle runs under the
// sink's lock.
func (s *Sink) Append(ctx context.Context, records []inventory.HostRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path()
	writeHeader := false
	if st, err := os.Stat(path); os.IsNotExist(err) || (err == nil && st.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	writeErr := error(nil)
	if writeHeader {
		writeErr = w.Write(inventory.ResultsHeader)
	}
	for _, rec := range records {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(rec.HostRecordToCSV())
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("append results to %s: %w", path, writeErr)
	}
	return nil
}
