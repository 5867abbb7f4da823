package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/netsweep/pkg/discover"
	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// mockStore is an in-memory worklist.
type mockStore struct {
	mu      sync.Mutex
	rows    []inventory.WorklistRow
	removed []string
	loadErr error
	remErr  error
}

func (m *mockStore) Load(ctx context.Context) ([]inventory.WorklistRow, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.rows, nil
}

func (m *mockStore) RemoveRow(ctx context.Context, prefix string) error {
	if m.remErr != nil {
		return m.remErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, prefix)
	return nil
}

// mockRunner scripts per-prefix outcomes.
type mockRunner struct {
	mu       sync.Mutex
	outcomes map[string]discover.Outcome
	scanned  []string
}

func (m *mockRunner) Scan(ctx context.Context, prefix, tenant, vrf string) discover.Outcome {
	m.mu.Lock()
	m.scanned = append(m.scanned, prefix)
	m.mu.Unlock()
	if out, ok := m.outcomes[prefix]; ok {
		return out
	}
	return discover.Outcome{Prefix: prefix, Succeeded: true}
}

// mockSink collects appended records.
type mockSink struct {
	mu      sync.Mutex
	records []inventory.HostRecord
	err     error
}

func (m *mockSink) Append(ctx context.Context, records []inventory.HostRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func activeRow(prefix string) inventory.WorklistRow {
	return inventory.WorklistRow{Prefix: prefix, VRF: "prod", Status: inventory.StatusActive, Tenant: "acme"}
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("scans eligible rows and removes them", func(t *testing.T) {
		store := &mockStore{rows: []inventory.WorklistRow{
			activeRow("10.0.0.0/24"),
			activeRow("10.0.1.0/24"),
		}}
		runner := &mockRunner{outcomes: map[string]discover.Outcome{
			"10.0.0.0/24": {
				Prefix:    "10.0.0.0/24",
				Succeeded: true,
				Records:   []inventory.HostRecord{{Address: "10.0.0.5/24", VRF: "prod"}},
			},
		}}
		sink := &mockSink{}

		o := New(store, runner, sink, "run-1", Config{Concurrency: 2}, nil)
		summary, err := o.Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, summary.RowsTotal)
		assert.Equal(t, 0, summary.RowsSkipped)
		assert.Equal(t, int64(2), summary.PrefixesScanned)
		assert.Equal(t, int64(0), summary.PrefixesFailed)
		assert.Equal(t, int64(1), summary.HostsFound)

		assert.ElementsMatch(t, []string{"10.0.0.0/24", "10.0.1.0/24"}, runner.scanned)
		assert.ElementsMatch(t, []string{"10.0.0.0/24", "10.0.1.0/24"}, store.removed)
		assert.Len(t, sink.records, 1)
	})

	t.Run("skips ineligible rows", func(t *testing.T) {
		reserved := activeRow("10.0.1.0/24")
		reserved.Status = "reserved"
		tagged := activeRow("10.0.2.0/24")
		tagged.Tags = []string{inventory.NoScanTagPrefix}

		store := &mockStore{rows: []inventory.WorklistRow{activeRow("10.0.0.0/24"), reserved, tagged}}
		runner := &mockRunner{}
		sink := &mockSink{}

		o := New(store, runner, sink, "run-1", Config{}, nil)
		summary, err := o.Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3, summary.RowsTotal)
		assert.Equal(t, 2, summary.RowsSkipped)
		assert.Equal(t, []string{"10.0.0.0/24"}, runner.scanned)
		assert.Equal(t, []string{"10.0.0.0/24"}, store.removed)
	})

	t.Run("failed prefix stays in worklist", func(t *testing.T) {
		store := &mockStore{rows: []inventory.WorklistRow{
			activeRow("10.0.0.0/24"),
			activeRow("10.0.1.0/24"),
		}}
		runner := &mockRunner{outcomes: map[string]discover.Outcome{
			"10.0.1.0/24": {Prefix: "10.0.1.0/24", Err: inventory.ErrDiscoveryTimeout},
		}}
		sink := &mockSink{}

		o := New(store, runner, sink, "run-1", Config{}, nil)
		summary, err := o.Run(ctx)
		require.NoError(t, err, "per-prefix failures must not fail the run")

		assert.Equal(t, int64(1), summary.PrefixesScanned)
		assert.Equal(t, int64(1), summary.PrefixesFailed)
		assert.Equal(t, []string{"10.0.0.0/24"}, store.removed)
	})

	t.Run("sink failure keeps row", func(t *testing.T) {
		store := &mockStore{rows: []inventory.WorklistRow{activeRow("10.0.0.0/24")}}
		runner := &mockRunner{outcomes: map[string]discover.Outcome{
			"10.0.0.0/24": {
				Prefix:    "10.0.0.0/24",
				Succeeded: true,
				Records:   []inventory.HostRecord{{Address: "10.0.0.5/24", VRF: "prod"}},
			},
		}}
		sink := &mockSink{err: errors.New("disk full")}

		o := New(store, runner, sink, "run-1", Config{}, nil)
		summary, err := o.Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(0), summary.PrefixesScanned)
		assert.Equal(t, int64(1), summary.PrefixesFailed)
		assert.Empty(t, store.removed, "row must stay when its records were not persisted")
	})

	t.Run("worklist load failure aborts", func(t *testing.T) {
		store := &mockStore{loadErr: inventory.ErrNotFound}

		o := New(store, &mockRunner{}, &mockSink{}, "run-1", Config{}, nil)
		_, err := o.Run(ctx)
		require.Error(t, err)
		assert.True(t, inventory.IsNotFound(err))
	})

	t.Run("concurrency default applied", func(t *testing.T) {
		o := New(&mockStore{}, &mockRunner{}, &mockSink{}, "run-1", Config{}, nil)
		assert.Equal(t, 5, o.config.Concurrency)
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		const workers = 3
		var rows []inventory.WorklistRow
		for i := 0; i < 12; i++ {
			rows = append(rows, activeRow(fmt.Sprintf("10.0.%d.0/24", i)))
		}
		store := &mockStore{rows: rows}

		var mu sync.Mutex
		inFlight, peak := 0, 0
		runner := &countingRunner{onScan: func() {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
		}, onDone: func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}}

		o := New(store, runner, &mockSink{}, "run-1", Config{Concurrency: workers}, nil)
		_, err := o.Run(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, peak, workers)
	})
}

type countingRunner struct {
	onScan func()
	onDone func()
}

func (c *countingRunner) Scan(ctx context.Context, prefix, tenant, vrf string) discover.Outcome {
	c.onScan()
	defer c.onDone()
	return discover.Outcome{Prefix: prefix, Succeeded: true}
}

