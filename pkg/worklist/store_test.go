package worklist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

func writeWorklist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worklist.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleWorklist = `Prefix,VRF,Status,Tags,Tenant
10.0.0.0/24,prod,active,"dc1, edge",acme
10.0.1.0/24,prod,active,,acme
192.168.0.0/16,lab,reserved,,N/A
`

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("reads all rows", func(t *testing.T) {
		s := New(writeWorklist(t, sampleWorklist), nil)

		rows, err := s.Load(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "10.0.0.0/24", rows[0].Prefix)
		assert.Equal(t, []string{"dc1", "edge"}, rows[0].Tags)
		assert.Equal(t, "reserved", rows[2].Status)
	})

	t.Run("missing file", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "nope.csv"), nil)

		_, err := s.Load(ctx)
		require.Error(t, err)
		assert.True(t, inventory.IsNotFound(err))
	})

	t.Run("empty file", func(t *testing.T) {
		s := New(writeWorklist(t, ""), nil)

		_, err := s.Load(ctx)
		require.Error(t, err)
		assert.True(t, inventory.IsMalformedInput(err))
	})

	t.Run("missing required column", func(t *testing.T) {
		s := New(writeWorklist(t, "Prefix,VRF,Status\n10.0.0.0/24,prod,active\n"), nil)

		_, err := s.Load(ctx)
		require.Error(t, err)
		assert.True(t, inventory.IsMalformedInput(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := New(writeWorklist(t, sampleWorklist), nil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.Load(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStoreRemoveRow(t *testing.T) {
	ctx := context.Background()

	t.Run("removes matching prefix", func(t *testing.T) {
		s := New(writeWorklist(t, sampleWorklist), nil)

		require.NoError(t, s.RemoveRow(ctx, "10.0.0.0/24"))

		rows, err := s.Load(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, r := range rows {
			assert.NotEqual(t, "10.0.0.0/24", r.Prefix)
		}
	})

	t.Run("absent prefix is not an error", func(t *testing.T) {
		s := New(writeWorklist(t, sampleWorklist), nil)

		require.NoError(t, s.RemoveRow(ctx, "172.16.0.0/12"))

		rows, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("preserves header and other rows", func(t *testing.T) {
		path := writeWorklist(t, sampleWorklist)
		s := New(path, nil)

		require.NoError(t, s.RemoveRow(ctx, "10.0.1.0/24"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Prefix,VRF,Status,Tags,Tenant")
		assert.Contains(t, string(data), "10.0.0.0/24")
		assert.NotContains(t, string(data), "10.0.1.0/24")
	})

	t.Run("missing file", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "nope.csv"), nil)

		err := s.RemoveRow(ctx, "10.0.0.0/24")
		require.Error(t, err)
		assert.True(t, inventory.IsNotFound(err))
	})

	t.Run("concurrent removals lose no deletions", func(t *testing.T) {
		content := "Prefix,VRF,Status,Tags,Tenant\n"
		prefixes := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			p := fmt.Sprintf("10.0.%d.0/24", i)
			prefixes = append(prefixes, p)
			content += p + ",prod,active,,acme\n"
		}
		s := New(writeWorklist(t, content), nil)

		var wg sync.WaitGroup
		for _, p := range prefixes {
			wg.Add(1)
			go func(prefix string) {
				defer wg.Done()
				assert.NoError(t, s.RemoveRow(ctx, prefix))
			}(p)
		}
		wg.Wait()

		rows, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
