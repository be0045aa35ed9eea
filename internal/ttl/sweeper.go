// Package ttl runs the background expiry sweep, grounded on
// ttl_cleanup_thread/Start_TTL_Cleanup in tinydb_ttl.c. A time.Ticker plus
// a cancelable context replaces the source's sleep-loop-over-an-atomic-
// running-flag, matching the REDESIGN FLAG's context-based shutdown for
// every background goroutine.
package ttl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/tlog"
)

// Sweeper periodically removes expired keys from every database in a
// Manager, mirroring Cleanup_Expired_Keys run on an interval.
type Sweeper struct {
	mgr      *store.Manager
	interval time.Duration
}

// New creates a Sweeper that sweeps mgr's databases every interval.
func New(mgr *store.Manager, interval time.Duration) *Sweeper {
	return &Sweeper{mgr: mgr, interval: interval}
}

// Run sweeps on every tick until ctx is canceled, mirroring
// ttl_cleanup_thread's loop. Intended to run under an errgroup alongside
// the TCP server and snapshotter. Returns ErrInvalidInterval without
// starting if s.interval isn't positive — time.NewTicker panics on a
// non-positive duration, and that duration can reach here straight from
// client input (`ttl_cleanup_interval 0`).
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}
	log := tlog.WithComponent("ttl")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("ttl sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			total := 0
			for _, db := range s.mgr.Databases {
				if n := db.CleanupExpired(); n > 0 {
					total += n
					log.Debug().Str("database", db.Name).Int("removed", n).Msg("removed expired keys")
				}
			}
			if total > 0 {
				log.Info().Int("removed", total).Msg("ttl sweep completed")
			}
		}
	}
}

// ErrAlreadyRunning is returned by Controller.Start when a sweep is already
// in progress, mirroring the source's ttl_cleanup_start guard against a
// double Start_TTL_Cleanup.
var ErrAlreadyRunning = errors.New("ttl: sweeper already running")

// ErrInvalidInterval is returned by Controller.Start/SetInterval and
// Sweeper.Run when the sweep interval isn't positive.
var ErrInvalidInterval = errors.New("ttl: interval must be positive")

// Controller is the runtime-commandable front for Sweeper, backing the
// `ttl_cleanup_start/stop/interval/status` commands of spec §4.11. Unlike
// Sweeper.Run, which blocks for the caller's own errgroup, Controller owns
// its own goroutine so a connection handler can start, stop, and retune it
// without blocking the command response.
type Controller struct {
	mgr    *store.Manager
	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	interval time.Duration
	running  bool
}

// NewController creates a Controller over mgr with the given default sweep
// interval (used on the first Start call that doesn't override it).
func NewController(mgr *store.Manager, defaultInterval time.Duration) *Controller {
	return &Controller{mgr: mgr, interval: defaultInterval}
}

// Start begins sweeping every interval, bound to parent so the sweeper
// stops automatically when the server shuts down, mirroring
// Start_TTL_Cleanup. Returns ErrAlreadyRunning if already active, or
// ErrInvalidInterval if the resulting interval isn't positive (a
// non-positive interval would otherwise reach time.NewTicker and panic).
func (c *Controller) Start(parent context.Context, interval time.Duration) error {
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
	c.parent = parent

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.running = true

	sweeper := New(c.mgr, c.interval)
	go func() {
		_ = sweeper.Run(ctx)
		// Stop and SetInterval clear running themselves; only a parent
		// shutdown is left for this goroutine to record.
		if parent.Err() != nil {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
		}
	}()
	return nil
}

// Stop halts the sweep loop, mirroring ttl_cleanup_stop. A no-op if not
// running.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.cancel()
	c.running = false
}

// SetInterval changes the sweep interval, mirroring ttl_cleanup_interval.
// If a sweep is currently running, it is restarted under the new interval
// against the same parent context. Returns ErrInvalidInterval, leaving
// the current interval and running state untouched, if interval isn't
// positive.
func (c *Controller) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	c.interval = interval
	wasRunning := c.running
	parent := c.parent
	if wasRunning {
		c.cancel()
		c.running = false
	}
	c.mu.Unlock()

	if wasRunning {
		return c.Start(parent, interval)
	}
	return nil
}

// Status reports whether the sweeper is active and its current interval,
// backing `ttl_cleanup_status`.
func (c *Controller) Status() (running bool, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running, c.interval
}
