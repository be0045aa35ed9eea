package metrics

import (
	"testing"
	"time"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorSamplesShardEntries(t *testing.T) {
	mgr := store.NewManager(1, 4)
	db := mgr.Databases[0]
	db.Store([]byte("a"), entry.NewInteger([]byte("a"), 1))
	db.Store([]byte("b"), entry.NewInteger([]byte("b"), 2))

	c := NewCollector(func() *store.Manager { return mgr }, time.Hour)
	c.collect()

	total := testutil.ToFloat64(ShardEntries.WithLabelValues(db.Name, "0")) +
		testutil.ToFloat64(ShardEntries.WithLabelValues(db.Name, "1")) +
		testutil.ToFloat64(ShardEntries.WithLabelValues(db.Name, "2")) +
		testutil.ToFloat64(ShardEntries.WithLabelValues(db.Name, "3"))
	require.Equal(t, float64(2), total)
}

func TestCollectorStartStop(t *testing.T) {
	mgr := store.NewManager(1, 4)
	c := NewCollector(func() *store.Manager { return mgr }, 5*time.Millisecond)
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()
}

func TestHandlerNotNil(t *testing.T) {
	require.NotNil(t, Handler())
}
