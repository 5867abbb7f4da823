package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// Snapshot is one run-scoped output file, treated as a point-in-time
// view of discovered hosts.
type Snapshot struct {
	Path    string
	ModTime time.Time
}

// ListSnapshots returns the run output files in dir, newest first by
// modification time. It fails with inventory.ErrNotFound when the
// directory is missing or contains no snapshot.
func ListSnapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("results dir %s: %w", dir, inventory.ErrNotFound)
		}
		return nil, fmt.Errorf("list results dir %s: %w", dir, err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := doublestar.Match(FilePattern, e.Name())
		if err != nil || !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no run output files in %s: %w", dir, inventory.ErrNotFound)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].ModTime.After(snaps[j].ModTime)
	})
	return snaps, nil
}

// LoadSnapshot reads one run output file into a mapping keyed by the
// composite (address, VRF) key.
func LoadSnapshot(path string) (map[string]inventory.HostRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot %s: %w", path, inventory.ErrNotFound)
		}
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("snapshot %s is empty: %w", path, inventory.ErrMalformedInput)
	}

	idx, err := inventory.ParseResultsHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	data := make(map[string]inventory.HostRecord, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := inventory.HostRecordFromCSV(idx, row)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", path, err)
		}
		data[rec.Key()] = rec
	}
	return data, nil
}
