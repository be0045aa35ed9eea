package command

import (
	"context"

	"github.com/dreamware/tinydb/internal/protocol"
	"github.com/dreamware/tinydb/internal/pubsub"
)

func init() {
	register("sub", classWrite, cmdSub)
	register("unsub", classWrite, cmdUnsub)
	register("pub", classWrite, cmdPub)
	register("hook_add", classWrite, cmdHookAdd)
}

func cmdSub(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: sub <channel>\n"
	}
	e.pubsub.Subscribe(cmd.Arg(0), sess.Sub)
	return "Ok\n"
}

func cmdUnsub(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: unsub <channel>\n"
	}
	e.pubsub.Unsubscribe(cmd.Arg(0), sess.Sub.ID())
	return "Ok\n"
}

// cmdPub fans message out to subscribers and, for "@hook"-prefixed
// channels, additionally fires registered webhooks, mirroring Publish's
// two side effects (spec §4.11, §6.1).
func cmdPub(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 2 {
		return "Usage: pub <channel> <message>\n"
	}
	channel, message := cmd.Arg(0), cmd.Arg(1)

	e.pubsub.Publish(ctx, channel, message)
	if pubsub.IsHookChannel(channel) {
		if db := e.db(sess); db != nil {
			e.pubsub.TriggerWebhooks(ctx, db, channel, message)
		}
	}
	return "Ok\n"
}

// cmdHookAdd registers a webhook URL against an "@hook"-prefixed channel,
// the wire-protocol entry point spec §4.11 otherwise leaves unnamed for
// establishing invariant 12's precondition (a hook channel with at least
// one registered URL). Mirrors Add_Webhook.
func cmdHookAdd(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 2 {
		return "Usage: hook_add <channel> <url>\n"
	}
	channel, url := cmd.Arg(0), cmd.Arg(1)
	db := e.db(sess)
	if db == nil {
		return "FAILED\n"
	}
	if err := pubsub.AddWebhook(db, channel, url); err != nil {
		return "FAILED\n"
	}
	return "Ok\n"
}
