package command

import (
	"context"
	"strconv"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/protocol"
	"github.com/dreamware/tinydb/internal/tlog"
)

func init() {
	register("set", classWrite, cmdSet)
	register("get", classRead, cmdGet)
	register("append", classWrite, cmdAppend)
	register("strlen", classRead, cmdStrlen)
	register("incr", classWrite, cmdIncr)
}

func cmdSet(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 2 {
		return "Usage: set <key> <value>\n"
	}
	if e.oversized(cmd.Arg(1)) {
		return "FAILED\n"
	}
	db.Store([]byte(cmd.Arg(0)), entry.NewString([]byte(cmd.Arg(0)), []byte(cmd.Arg(1))))
	return "Ok\n"
}

func cmdGet(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: get <key>\n"
	}
	ent, ok := db.Get([]byte(cmd.Arg(0)))
	if !ok {
		return "null\n"
	}
	return formatEntry(ent) + "\n"
}

func cmdAppend(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 2 {
		return "Usage: append <key> <value>\n"
	}
	if e.oversized(cmd.Arg(1)) {
		return "FAILED\n"
	}
	_, ok := db.Append([]byte(cmd.Arg(0)), []byte(cmd.Arg(1)))
	if !ok {
		return "null\n"
	}
	return "Ok\n"
}

// oversized reports whether value exceeds the configured string-length
// ceiling, logging at error level as spec §7's resource-exhaustion
// branch requires.
func (e *Executor) oversized(value string) bool {
	if e.cfg.MaxStringLength <= 0 || len(value) <= e.cfg.MaxStringLength {
		return false
	}
	tlog.WithComponent("command").Error().Int("length", len(value)).Msg("value exceeds max string length")
	return true
}

func cmdStrlen(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: strlen <key>\n"
	}
	ent, ok := db.Get([]byte(cmd.Arg(0)))
	if !ok || ent.Kind != entry.KindString {
		return "null\n"
	}
	return strconv.Itoa(len(ent.Str)) + "\n"
}

func cmdIncr(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: incr <key>\n"
	}
	v, ok := db.Incr([]byte(cmd.Arg(0)))
	if !ok {
		return "-1\n"
	}
	return strconv.FormatInt(v, 10) + "\n"
}

// formatEntry renders an entry's value the way `get` replies it: the raw
// string, the decimal integer, or the list's bracketed ToString
// rendering. KindObject never reaches here (no executor path produces
// one, spec §6.1).
func formatEntry(e *entry.Entry) string {
	switch e.Kind {
	case entry.KindInteger:
		return strconv.FormatInt(e.Int, 10)
	case entry.KindString:
		return string(e.Str)
	case entry.KindList:
		return e.List.ToString()
	default:
		return "null"
	}
}
