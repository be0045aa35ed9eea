package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/snapshot"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := Defaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.NumShards = 4
	cfg.WorkerPoolSize = 2
	cfg.WorkerQueueDepth = 8
	cfg.TTLSweepIntervalSec = 1
	cfg.SnapshotPath = filepath.Join(dir, "snapshot.bin")
	cfg.ExitSnapshotPath = filepath.Join(dir, "on_exit.bin")
	return cfg
}

func TestNewSeedsDefaultUserAndDatabase(t *testing.T) {
	rc, err := New(testConfig(t))
	require.NoError(t, err)

	require.Len(t, rc.Databases.Databases, 1)
	require.NotNil(t, rc.Users.Get("default"))
}

func TestNewLoadsExistingSnapshot(t *testing.T) {
	cfg := testConfig(t)

	rc, err := New(cfg)
	require.NoError(t, err)
	rc.Executor.Databases().Get(0).Store([]byte("k"), entry.NewString([]byte("k"), []byte("v")))
	require.NoError(t, snapshot.ExportFile(cfg.SnapshotPath, rc.Executor.Databases(), rc.Executor.Users()))

	restarted, err := New(cfg)
	require.NoError(t, err)
	e, ok := restarted.Executor.Databases().Get(0).Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, "v", string(e.Str))
}

// TestRunShutsDownCleanly exercises the full errgroup-supervised startup
// path (worker pool, TTL sweeper, metrics collector, TCP listener) and
// confirms a canceled context stops every subsystem and writes the
// on-exit snapshot, mirroring spec.md §4.7's "special on-exit snapshot".
func TestRunShutsDownCleanly(t *testing.T) {
	cfg := testConfig(t)
	rc, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not shut down in time")
	}

	_, err = os.Stat(cfg.ExitSnapshotPath)
	require.NoError(t, err, "on-exit snapshot should have been written")
}
