// Package worklist implements the store for the tabular worklist file:
// the single source of truth for which prefixes remain to be scanned.
//
// All access goes through one in-process mutex. Removal rewrites the
// file through a temporary sibling and a single atomic rename, so a
// concurrent reader never observes a half-written file and a crash
// between steps leaves the original intact.
package worklist

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// Store provides serialized access to a worklist file.
//
// A single Store instance must own the file for the lifetime of a run;
// two removals racing on file content would silently lose one deletion
// if not funneled through the same lock.
type Store struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// New creates a store for the worklist file at path. A nil logger is
// replaced with a no-op logger.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the worklist file path.
func (s *Store) Path() string { return s.path }

// Load reads the full worklist. It fails with inventory.ErrNotFound
// when the file is absent and inventory.ErrMalformedInput when required
// columns are missing.
func (s *Store) Load(ctx context.Context) ([]inventory.WorklistRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readAll()
}

// RemoveRow deletes the row with the given prefix. A prefix that is
// already absent is a warning, not an error: concurrent runners may
// race to remove the same row in degenerate configurations.
func (s *Store) RemoveRow(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll()
	if err != nil {
		return err
	}

	removed := false
	kept := rows[:0]
	for _, r := range rows {
		if r.Prefix == prefix {
			removed = true
			continue
		}
		kept = append(kept, r)
	}

	if err := s.writeAtomic(kept); err != nil {
		return fmt.Errorf("remove prefix %q: %w", prefix, err)
	}

	if removed {
		s.logger.Info("removed prefix from worklist",
			zap.String("prefix", prefix),
			zap.String("worklist", s.path))
	} else {
		s.logger.Warn("prefix not found in worklist",
			zap.String("prefix", prefix),
			zap.String("worklist", s.path))
	}
	return nil
}

// readAll parses the whole file. Callers must hold the lock.
func (s *Store) readAll() ([]inventory.WorklistRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("worklist %s: %w", s.path, inventory.ErrNotFound)
		}
		return nil, fmt.Errorf("open worklist %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read worklist %s: %w", s.path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("worklist %s is empty: %w", s.path, inventory.ErrMalformedInput)
	}

	idx, err := inventory.ParseWorklistHeader(records[0])
	if err != nil {
		return nil, fmt.Errorf("worklist %s: %w", s.path, err)
	}

	rows := make([]inventory.WorklistRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row, err := inventory.WorklistRowFromCSV(idx, rec)
		if err != nil {
			return nil, fmt.Errorf("worklist %s: %w", s.path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeAtomic writes header + rows to a temporary file in the same
// directory and renames it over the original. Callers must hold the
// lock.
func (s *Store) writeAtomic(rows []inventory.WorklistRow) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".worklist-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(inventory.WorklistHeader)
	if writeErr == nil {
		for _, r := range rows {
			if writeErr = w.Write(r.WorklistRowToCSV()); writeErr != nil {
				break
			}
		}
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp worklist: %w", writeErr)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace worklist: %w", err)
	}
	return nil
}
