package command

import (
	"context"
	"strconv"

	"github.com/dreamware/tinydb/internal/listval"
	"github.com/dreamware/tinydb/internal/protocol"
)

func init() {
	register("rpush", classWrite, cmdRPush)
	register("lpush", classWrite, cmdLPush)
	register("rpop", classWrite, cmdRPop)
	register("lpop", classWrite, cmdLPop)
	register("llen", classRead, cmdLLen)
	register("lrange", classRead, cmdLRange)
}

func pushList(e *Executor, sess *Session, cmd *protocol.Command, front bool) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 2 {
		if front {
			return "Usage: lpush <key> <value>\n"
		}
		return "Usage: rpush <key> <value>\n"
	}

	tok := cmd.Args[1]
	if tok.Kind != protocol.TokenNumber && e.oversized(tok.Text) {
		return "FAILED\n"
	}

	ent, ok := db.GetOrCreateList([]byte(cmd.Arg(0)))
	if !ok {
		return "FAILED\n"
	}

	if tok.Kind == protocol.TokenNumber {
		v, _ := tok.Int64()
		if front {
			ent.List.LPushInt(v)
		} else {
			ent.List.RPushInt(v)
		}
	} else {
		if front {
			ent.List.LPushString(tok.Text)
		} else {
			ent.List.RPushString(tok.Text)
		}
	}
	return "Ok\n"
}

func cmdRPush(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	return pushList(e, sess, cmd, false)
}

func cmdLPush(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	return pushList(e, sess, cmd, true)
}

func formatPopResult(r listval.PopResult) string {
	switch r.Kind {
	case listval.KindInt:
		return strconv.FormatInt(r.Int, 10)
	case listval.KindFloat:
		return strconv.FormatFloat(r.Float, 'f', -1, 64)
	case listval.KindString:
		return r.Str
	default:
		return "null"
	}
}

func cmdRPop(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: rpop <key>\n"
	}
	ent, ok := db.GetList([]byte(cmd.Arg(0)))
	if !ok {
		return "null\n"
	}
	r, ok := ent.List.RPop()
	if !ok {
		return "null\n"
	}
	return formatPopResult(r) + "\n"
}

func cmdLPop(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: lpop <key>\n"
	}
	ent, ok := db.GetList([]byte(cmd.Arg(0)))
	if !ok {
		return "null\n"
	}
	r, ok := ent.List.LPop()
	if !ok {
		return "null\n"
	}
	return formatPopResult(r) + "\n"
}

func cmdLLen(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 1 {
		return "Usage: llen <key>\n"
	}
	ent, ok := db.GetList([]byte(cmd.Arg(0)))
	if !ok {
		return "null\n"
	}
	return strconv.Itoa(ent.List.Len()) + "\n"
}

func cmdLRange(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	db := e.db(sess)
	if db == nil || len(cmd.Args) < 3 {
		return "Usage: lrange <key> <start> <stop>\n"
	}
	ent, ok := db.GetList([]byte(cmd.Arg(0)))
	if !ok {
		return "null\n"
	}
	start, okStart := cmd.ArgInt(1)
	stop, okStop := cmd.ArgInt(2)
	if !okStart || !okStop {
		return "Usage: lrange <key> <start> <stop>\n"
	}
	return ent.List.RangeToString(int(start), int(stop)) + "\n"
}
