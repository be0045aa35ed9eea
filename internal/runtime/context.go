// Package runtime wires the store, auth, pub/sub, TTL, snapshot, command
// and server packages into one running process, the Go analogue of
// tinydb_server.c's main() and the global config.h constants it reads at
// startup.
package runtime

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/tinydb/internal/auth"
	"github.com/dreamware/tinydb/internal/command"
	"github.com/dreamware/tinydb/internal/metrics"
	"github.com/dreamware/tinydb/internal/pubsub"
	"github.com/dreamware/tinydb/internal/server"
	"github.com/dreamware/tinydb/internal/snapshot"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/tlog"
	"github.com/dreamware/tinydb/internal/ttl"
	"github.com/dreamware/tinydb/internal/workerpool"
)

// Context is the composition root: every long-lived subsystem plus the
// glue that lets cmd/tinydb-server start and stop all of them as one
// unit, mirroring the source's global RuntimeContext plus the event
// server it's wired into.
type Context struct {
	cfg Config

	Databases *store.Manager
	Users     *auth.Manager
	PubSub    *pubsub.System
	Pool      *workerpool.Pool
	TTL       *ttl.Controller
	Snapshot  *snapshot.Controller
	Metrics   *metrics.Collector
	Executor  *command.Executor
	Server    *server.Server
}

// New builds a Context from cfg. If cfg.SnapshotPath already exists, its
// contents replace the freshly seeded default database/user set before
// the server starts listening, matching spec.md §6 end-to-end scenario S6
// ("restart process with snap.bin as the startup snapshot").
func New(cfg Config) (*Context, error) {
	log := tlog.WithComponent("runtime")

	dbs := store.NewManager(cfg.NumInitialDatabases, cfg.NumShards)
	users := auth.NewManager()

	if _, err := os.Stat(cfg.SnapshotPath); err == nil {
		result, err := snapshot.ImportFile(cfg.SnapshotPath, cfg.NumShards)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.SnapshotPath).Msg("startup snapshot import failed, starting fresh")
		} else {
			dbs = store.ManagerFromDatabases(result.Databases, cfg.NumShards)
			users = result.Users
			log.Info().Str("path", cfg.SnapshotPath).Msg("loaded startup snapshot")
		}
	}

	pool := workerpool.New(cfg.WorkerPoolSize, cfg.WorkerQueueDepth)
	ps := pubsub.New(pool)

	ttlCtl := ttl.NewController(dbs, time.Duration(cfg.TTLSweepIntervalSec)*time.Second)

	exec := command.NewExecutor(context.Background(), dbs, users, ps, ttlCtl, nil, command.Config{
		NumShards:           cfg.NumShards,
		DefaultSnapshotPath: cfg.SnapshotPath,
		MaxStringLength:     cfg.MaxStringLength,
	})

	snapCtl := snapshot.NewController(exec.Databases, exec.Users, cfg.SnapshotPath, time.Duration(cfg.SnapshotIntervalSec)*time.Second)
	exec.SetSnapshotController(snapCtl)

	srv := server.New(server.Config{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		CommandBufferSize: cfg.CommandBufferSize,
		CommandBufferMax:  cfg.CommandBufferMax,
	}, exec)

	return &Context{
		cfg:       cfg,
		Databases: dbs,
		Users:     users,
		PubSub:    ps,
		Pool:      pool,
		TTL:       ttlCtl,
		Snapshot:  snapCtl,
		Metrics:   metrics.NewCollector(exec.Databases, time.Second),
		Executor:  exec,
		Server:    srv,
	}, nil
}

// Run starts every background subsystem and the TCP server, blocking
// until ctx is canceled (normally by SIGINT/SIGTERM in cmd/tinydb-server)
// or any one of them fails, mirroring the source's thread-supervision
// main loop with errgroup replacing manual pthread_join bookkeeping.
//
// The TTL sweeper and snapshotter are started through their Controllers
// rather than run directly under the errgroup: both own a goroutine
// bound to gctx already, and routing their startup through the same
// Controller the `ttl_cleanup_*`/`snapshot_*` commands use means a
// connection issuing `ttl_cleanup_stop` stops the very sweeper Run
// started, not a second independent one.
func (rc *Context) Run(ctx context.Context) error {
	log := tlog.WithComponent("runtime")
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rc.Pool.Run(gctx)
		return nil
	})

	if err := rc.TTL.Start(gctx, time.Duration(rc.cfg.TTLSweepIntervalSec)*time.Second); err != nil {
		log.Warn().Err(err).Msg("ttl sweeper failed to start")
	}

	if rc.cfg.SnapshotIntervalSec > 0 {
		if err := rc.Snapshot.Start(gctx, time.Duration(rc.cfg.SnapshotIntervalSec)*time.Second, rc.cfg.SnapshotPath); err != nil {
			log.Warn().Err(err).Msg("periodic snapshotter failed to start")
		}
	}

	rc.Metrics.Start()

	g.Go(func() error {
		return rc.Server.Serve(gctx)
	})

	err := g.Wait()
	rc.Metrics.Stop()
	rc.writeExitSnapshot(log)
	return err
}

// writeExitSnapshot writes the on-exit snapshot to its own filename,
// never the periodic path, so a bad shutdown can't clobber the last good
// periodic snapshot (spec §4.7's "special on-exit snapshot").
func (rc *Context) writeExitSnapshot(log zerolog.Logger) {
	if err := snapshot.ExportFile(rc.cfg.ExitSnapshotPath, rc.Executor.Databases(), rc.Executor.Users()); err != nil {
		log.Error().Err(err).Str("path", rc.cfg.ExitSnapshotPath).Msg("on-exit snapshot failed")
		return
	}
	log.Info().Str("path", rc.cfg.ExitSnapshotPath).Msg("on-exit snapshot written")
}
