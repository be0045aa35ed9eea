package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreamware/tinydb/internal/auth"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/tlog"
)

// ErrAlreadyRunning is returned by Controller.Start when a background
// snapshotter is already active, mirroring the source's guard against a
// double Start_Snapshotter.
var ErrAlreadyRunning = errors.New("snapshot: snapshotter already running")

// ErrInvalidInterval is returned by Controller.Start/SetInterval when the
// snapshot interval isn't positive.
var ErrInvalidInterval = errors.New("snapshot: interval must be positive")

// Controller is the runtime-commandable background snapshotter, backing
// `snapshot_start/stop/interval/status` (spec §4.7/§4.11). It periodically
// calls ExportFile against a live Manager/auth.Manager pair; Stop halts it
// without touching any file already written.
type Controller struct {
	mu       sync.Mutex
	parent   context.Context
	cancel   context.CancelFunc
	path     string
	interval time.Duration
	running  bool

	mgrFunc   func() *store.Manager
	usersFunc func() *auth.Manager
}

// NewController creates a Controller that, on each tick, exports whatever
// mgrFunc/usersFunc currently return — indirection lets the runtime swap in
// a freshly imported Manager (e.g. after `load`) without recreating the
// controller.
func NewController(mgrFunc func() *store.Manager, usersFunc func() *auth.Manager, path string, defaultInterval time.Duration) *Controller {
	return &Controller{
		mgrFunc:   mgrFunc,
		usersFunc: usersFunc,
		path:      path,
		interval:  defaultInterval,
	}
}

// Start begins periodic export to path (or the controller's configured
// path if path is empty) every interval (or the configured interval if
// interval<=0). Returns ErrAlreadyRunning if already active, or
// ErrInvalidInterval if the resulting interval isn't positive — the
// configured default can itself be 0 ("disabled until snapshot_start"),
// and time.NewTicker panics on a non-positive duration.
func (c *Controller) Start(parent context.Context, interval time.Duration, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	if interval > 0 {
		c.interval = interval
	}
	if c.interval <= 0 {
		return ErrInvalidInterval
	}
	if path != "" {
		c.path = path
	}
	c.parent = parent

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.running = true

	go c.loop(parent, ctx)
	return nil
}

func (c *Controller) loop(parent, ctx context.Context) {
	log := tlog.WithComponent("snapshot")
	c.mu.Lock()
	interval := c.interval
	c.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer func() {
		// Stop and SetInterval clear running themselves; only a parent
		// shutdown is left for this loop to record.
		if parent.Err() != nil {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("snapshotter stopping")
			return
		case <-ticker.C:
			c.mu.Lock()
			path := c.path
			c.mu.Unlock()

			if err := ExportFile(path, c.mgrFunc(), c.usersFunc()); err != nil {
				log.Error().Err(err).Str("path", path).Msg("periodic snapshot failed")
			} else {
				log.Info().Str("path", path).Msg("periodic snapshot written")
			}
		}
	}
}

// Stop halts the background snapshotter. A no-op if not running.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.cancel()
	c.running = false
}

// SetInterval changes the snapshot interval, restarting the loop against
// the same parent context if currently running, mirroring
// `snapshot_interval`. Returns ErrInvalidInterval, leaving the current
// interval and running state untouched, if interval isn't positive.
func (c *Controller) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	c.interval = interval
	wasRunning := c.running
	parent := c.parent
	path := c.path
	if wasRunning {
		c.cancel()
		c.running = false
	}
	c.mu.Unlock()

	if wasRunning {
		return c.Start(parent, interval, path)
	}
	return nil
}

// Status reports whether the snapshotter is active, its interval, and its
// target path, backing `snapshot_status`.
func (c *Controller) Status() (running bool, interval time.Duration, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running, c.interval, c.path
}
