package metrics

import (
	"strconv"
	"time"

	"github.com/dreamware/tinydb/internal/store"
)

// Collector periodically samples store.Manager state into the package's
// gauges, grounded on cuemby-warren's pkg/metrics.Collector ticker pattern.
// mgrFunc is called fresh on every tick, rather than the Manager being
// captured once at construction, so a `load` that swaps the executor's
// active Manager (command.Executor.ReplaceState) is reflected on the very
// next sample instead of the collector reporting a stale, pre-load
// Manager's shard counts forever.
type Collector struct {
	mgrFunc func() *store.Manager
	ticker  *time.Ticker
	stopCh  chan struct{}
}

// NewCollector creates a Collector that samples mgrFunc's current return
// value every interval once started.
func NewCollector(mgrFunc func() *store.Manager, interval time.Duration) *Collector {
	return &Collector{
		mgrFunc: mgrFunc,
		ticker:  time.NewTicker(interval),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the background sampling loop.
func (c *Collector) Start() {
	go func() {
		c.collect()
		for {
			select {
			case <-c.ticker.C:
				c.collect()
			case <-c.stopCh:
				c.ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the sampling loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectShardMetrics()
}

func (c *Collector) collectShardMetrics() {
	for _, db := range c.mgrFunc().Databases {
		counts := db.ShardCounts()
		for i, n := range counts {
			ShardEntries.WithLabelValues(db.Name, strconv.Itoa(i)).Set(float64(n))
		}
	}
}
