package command

import (
	"context"
	"fmt"
	"os"

	"github.com/dreamware/tinydb/internal/protocol"
	"github.com/dreamware/tinydb/internal/tlog"
)

func init() {
	register("insp", classNone, cmdInsp)
}

// cmdInsp dumps a human-readable view of the runtime context, mirroring
// tinydb_command_executor.c's INSP handler. The source prints to stdout
// unconditionally; this repo keeps that and additionally logs the same
// dump at debug level (spec §6.1) so it survives in deployments that
// redirect stdout away from an operator's terminal.
func cmdInsp(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	mgr := e.Databases()
	users := e.Users()

	dump := fmt.Sprintf(
		"--- tinydb insp ---\nactive_database=%d active_user=%s\ndatabases=%d users=%d\n",
		sess.Database, sess.User, len(mgr.Databases), users.Count(),
	)
	for _, db := range mgr.Databases {
		dump += fmt.Sprintf("  db[%d] %q shards=%v\n", db.ID, db.Name, db.ShardCounts())
	}

	fmt.Fprint(os.Stdout, dump)
	tlog.WithComponent("insp").Debug().Msg(dump)

	return "Ok\n"
}
