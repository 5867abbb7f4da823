package results

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

func writeSnapshot(t *testing.T, dir, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

const snapshotContent = `address,dns_name,status,tags,tenant,VRF,scantime
10.0.0.1/24,web.example.com,active,autoscan,acme,prod,2026-08-30 12:00:00
10.0.0.2/24,,active,autoscan,acme,prod,2026-08-30 12:00:00
`

func TestListSnapshots(t *testing.T) {
	t.Run("newest first", func(t *testing.T) {
		dir := t.TempDir()
		base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		writeSnapshot(t, dir, "results_2026-08-28_12-00-00.csv", snapshotContent, base.Add(-48*time.Hour))
		newest := writeSnapshot(t, dir, "results_2026-08-30_12-00-00.csv", snapshotContent, base)
		writeSnapshot(t, dir, "results_2026-08-29_12-00-00.csv", snapshotContent, base.Add(-24*time.Hour))

		snaps, err := ListSnapshots(dir)
		require.NoError(t, err)
		require.Len(t, snaps, 3)
		assert.Equal(t, newest, snaps[0].Path)
		assert.True(t, snaps[0].ModTime.After(snaps[1].ModTime))
		assert.True(t, snaps[1].ModTime.After(snaps[2].ModTime))
	})

	t.Run("ignores non-snapshot files", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		writeSnapshot(t, dir, "results_2026-08-30_12-00-00.csv", snapshotContent, now)
		writeSnapshot(t, dir, "addresses.csv", snapshotContent, now)
		writeSnapshot(t, dir, "notes.txt", "hello", now)

		snaps, err := ListSnapshots(dir)
		require.NoError(t, err)
		assert.Len(t, snaps, 1)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := ListSnapshots(t.TempDir())
		require.Error(t, err)
		assert.True(t, inventory.IsNotFound(err))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := ListSnapshots(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, inventory.IsNotFound(err))
	})
}

func TestLoadSnapshot(t *testing.T) {
	t.Run("keyed by address and VRF", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSnapshot(t, dir, "results_2026-08-30_12-00-00.csv", snapshotContent, time.Now())

		data, err := LoadSnapshot(path)
		require.NoError(t, err)
		require.Len(t, data, 2)

		rec, ok := data["10.0.0.1/24_prod"]
		require.True(t, ok)
		assert.Equal(t, "web.example.com", rec.DNSName)
		assert.Equal(t, inventory.StatusActive, rec.Status)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.csv"))
		require.Error(t, err)
		assert.True(t, inventory.IsNotFound(err))
	})

	t.Run("bad header", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSnapshot(t, dir, "results_2026-08-30_12-00-00.csv", "address,status\n10.0.0.1/24,active\n", time.Now())

		_, err := LoadSnapshot(path)
		require.Error(t, err)
		assert.True(t, inventory.IsMalformedInput(err))
	})
}
