// Command tinydb-server is TinyDB's composition root: it parses flags,
// builds a runtime.Context, and runs it until SIGINT/SIGTERM, mirroring
// tinydb_server.c's main() with config.h's compile-time constants
// replaced by cobra flags (spec §9's "implementers should expose this as
// a startup option" resolution for COMMAND_BUFFER_SIZE, and SPEC_FULL.md
// §2's CLI/configuration addition generally).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/tinydb/internal/metrics"
	"github.com/dreamware/tinydb/internal/runtime"
	"github.com/dreamware/tinydb/internal/tlog"
)

// metricsShutdownTimeout bounds how long the debug metrics HTTP server
// gets to drain in-flight scrapes during shutdown; it's a side channel,
// not the wire protocol, so it doesn't need the main server's own
// shutdown ordering.
const metricsShutdownTimeout = 2 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := runtime.Defaults()
	var logLevel string

	cmd := &cobra.Command{
		Use:   "tinydb-server",
		Short: "TinyDB: an in-memory key/value store with TTL, snapshots, and pub/sub",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.LogLevel = tlog.Level(logLevel)
			tlog.Init(tlog.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
			return runServer(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "bind address")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "TCP port")
	flags.IntVar(&cfg.CommandBufferSize, "command-buffer-size", cfg.CommandBufferSize, "initial per-connection read buffer size in bytes")
	flags.IntVar(&cfg.CommandBufferMax, "command-buffer-max", cfg.CommandBufferMax, "hard ceiling a request line's buffer may grow to, in bytes")
	flags.IntVar(&cfg.ConnQueueSize, "conn-backlog", cfg.ConnQueueSize, "listen(2) backlog (documentation parity, see DESIGN.md)")
	flags.IntVar(&cfg.NumShards, "shards", cfg.NumShards, "shards per database, must be a power of two")
	flags.IntVar(&cfg.NumInitialDatabases, "initial-databases", cfg.NumInitialDatabases, "number of databases to create on a fresh start")
	flags.IntVar(&cfg.MaxStringLength, "max-string-length", cfg.MaxStringLength, "maximum accepted length of a string/list-element value")
	flags.StringVar(&cfg.SnapshotPath, "snapshot-path", cfg.SnapshotPath, "periodic/startup snapshot file")
	flags.StringVar(&cfg.ExitSnapshotPath, "exit-snapshot-path", cfg.ExitSnapshotPath, "snapshot file written on shutdown")
	flags.IntVar(&cfg.SnapshotIntervalSec, "snapshot-interval", cfg.SnapshotIntervalSec, "seconds between periodic snapshots, 0 disables until `snapshot_start`")
	flags.IntVar(&cfg.TTLSweepIntervalSec, "ttl-sweep-interval", cfg.TTLSweepIntervalSec, "seconds between TTL sweeps")
	flags.IntVar(&cfg.WorkerPoolSize, "worker-pool-size", cfg.WorkerPoolSize, "fixed worker goroutines servicing pub/sub and webhook fan-out")
	flags.IntVar(&cfg.WorkerQueueDepth, "worker-queue-depth", cfg.WorkerQueueDepth, "bounded task queue depth for the worker pool")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address the Prometheus /metrics endpoint is served on")
	flags.StringVar(&logLevel, "log-level", string(cfg.LogLevel), "log level: debug, info, warn, error")
	flags.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit logs as JSON instead of console text")

	return cmd
}

// runServer builds the runtime.Context, starts the metrics HTTP endpoint,
// and blocks until SIGINT/SIGTERM triggers a coordinated shutdown,
// mirroring the source's signal handler setting `running=false` before
// running the exit hook.
func runServer(cfg runtime.Config) error {
	log := tlog.WithComponent("main")

	rc, err := runtime.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.Host).Int("port", cfg.Port).Msg("tinydb starting")
	err = rc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info().Msg("tinydb stopped")
	return err
}
