package command

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamware/tinydb/internal/protocol"
	snap "github.com/dreamware/tinydb/internal/snapshot"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/tlog"
)

func init() {
	register("export", classWrite, cmdExport)
	register("load", classWrite, cmdLoad)
	register("snapshot_start", classWrite, cmdSnapshotStart)
	register("snapshot_stop", classWrite, cmdSnapshotStop)
	register("snapshot_interval", classWrite, cmdSnapshotInterval)
	register("snapshot_status", classRead, cmdSnapshotStatus)
}

func cmdExport(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	path := e.cfg.DefaultSnapshotPath
	if len(cmd.Args) >= 1 {
		path = cmd.Arg(0)
	}
	if err := snap.ExportFile(path, e.Databases(), e.Users()); err != nil {
		tlog.WithComponent("snapshot").Error().Err(err).Str("path", path).Msg("export failed")
		return "FAILED\n"
	}
	return "Ok\n"
}

// cmdLoad reads the default snapshot file and wholesale-replaces the
// live state, mirroring Import_Snapshot. Per spec §4.11 the source
// specifies no wire reply for `load` ("log-only"); an empty return
// tells the caller to write nothing back.
func cmdLoad(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	log := tlog.WithComponent("snapshot")
	path := e.cfg.DefaultSnapshotPath
	if len(cmd.Args) >= 1 {
		path = cmd.Arg(0)
	}

	result, err := snap.ImportFile(path, e.cfg.NumShards)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("load failed")
		return ""
	}

	e.ReplaceState(store.ManagerFromDatabases(result.Databases, e.cfg.NumShards), result.Users)
	log.Info().Str("path", path).Msg("snapshot loaded")
	return ""
}

func cmdSnapshotStart(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: snapshot_start <interval_seconds> [file]\n"
	}
	seconds, ok := cmd.ArgInt(0)
	if !ok {
		return "Usage: snapshot_start <interval_seconds> [file]\n"
	}
	path := ""
	if len(cmd.Args) >= 2 {
		path = cmd.Arg(1)
	}
	if err := e.snapshot.Start(e.base, time.Duration(seconds)*time.Second, path); err != nil {
		return "FAILED\n"
	}
	return "Ok\n"
}

func cmdSnapshotStop(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	e.snapshot.Stop()
	return "Ok\n"
}

func cmdSnapshotInterval(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: snapshot_interval <interval_seconds>\n"
	}
	seconds, ok := cmd.ArgInt(0)
	if !ok {
		return "Usage: snapshot_interval <interval_seconds>\n"
	}
	if err := e.snapshot.SetInterval(time.Duration(seconds) * time.Second); err != nil {
		return "FAILED\n"
	}
	return "Ok\n"
}

func cmdSnapshotStatus(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	running, interval, path := e.snapshot.Status()
	return fmt.Sprintf("running=%t interval=%d path=%s\n", running, int(interval.Seconds()), path)
}
