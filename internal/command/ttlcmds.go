package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dreamware/tinydb/internal/protocol"
)

func init() {
	register("expire", classWrite, cmdSetTTL)
	register("ttl_set", classWrite, cmdSetTTL)
	register("ttl", classRead, cmdGetTTL)
	register("ttl_cleanup_start", classWrite, cmdTTLCleanupStart)
	register("ttl_cleanup_stop", classWrite, cmdTTLCleanupStop)
	register("ttl_cleanup_interval", classWrite, cmdTTLCleanupInterval)
	register("ttl_cleanup_status", classRead, cmdTTLCleanupStatus)
}

func cmdSetTTL(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 2 {
		return "Usage: expire <key> <seconds>\n"
	}
	seconds, ok := cmd.ArgInt(1)
	if !ok {
		return "Usage: expire <key> <seconds>\n"
	}
	if !db.SetTTL([]byte(cmd.Arg(0)), seconds) {
		return "FAILED\n"
	}
	return "Ok\n"
}

func cmdGetTTL(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: ttl <key>\n"
	}
	remaining := db.GetTTL([]byte(cmd.Arg(0)))
	return strconv.FormatInt(remaining, 10) + "\n"
}

func cmdTTLCleanupStart(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: ttl_cleanup_start <interval_seconds>\n"
	}
	seconds, ok := cmd.ArgInt(0)
	if !ok {
		return "Usage: ttl_cleanup_start <interval_seconds>\n"
	}
	if err := e.ttl.Start(e.base, time.Duration(seconds)*time.Second); err != nil {
		return "FAILED\n"
	}
	return "Ok\n"
}

func cmdTTLCleanupStop(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	e.ttl.Stop()
	return "Ok\n"
}

func cmdTTLCleanupInterval(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: ttl_cleanup_interval <interval_seconds>\n"
	}
	seconds, ok := cmd.ArgInt(0)
	if !ok {
		return "Usage: ttl_cleanup_interval <interval_seconds>\n"
	}
	if err := e.ttl.SetInterval(time.Duration(seconds) * time.Second); err != nil {
		return "FAILED\n"
	}
	return "Ok\n"
}

func cmdTTLCleanupStatus(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	running, interval := e.ttl.Status()
	return fmt.Sprintf("running=%t interval=%d\n", running, int(interval.Seconds()))
}
