package command

import (
	"context"

	"github.com/dreamware/tinydb/internal/auth"
	"github.com/dreamware/tinydb/internal/protocol"
)

func init() {
	register("create_user", classNone, cmdCreateUser)
	register("auth", classNone, cmdAuth)
	register("delete_user", classDelete, cmdDeleteUser)
}

// cmdCreateUser and cmdAuth bypass ACL gating (classNone): a connection
// has to be able to authenticate before it can hold any grants at all,
// mirroring the source's treatment of user-management commands as
// outside the DB_ACCESS_LEVEL scheme.
func cmdCreateUser(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 2 {
		return "Usage: create_user <username> <password>\n"
	}
	if err := e.Users().Create(cmd.Arg(0), cmd.Arg(1)); err != nil {
		return "FAILED\n"
	}
	return "Ok\n"
}

// cmdAuth authenticates and binds the connection's active user,
// mirroring Authenticate_User's "auth binds the connection's active
// user" contract (spec §4.11).
func cmdAuth(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 2 {
		return "Usage: auth <username> <password>\n"
	}
	u, err := e.Users().Authenticate(cmd.Arg(0), cmd.Arg(1))
	if err != nil {
		return "FAILED\n"
	}
	sess.User = u.Name
	return "Ok\n"
}

func cmdDeleteUser(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if len(cmd.Args) < 1 {
		return "Usage: delete_user <username>\n"
	}
	fallback, err := e.Users().Delete(cmd.Arg(0))
	if err != nil {
		if err == auth.ErrDefaultUserProtected || err == auth.ErrUserNotFound {
			return "FAILED\n"
		}
		return "FAILED\n"
	}
	if sess.User == cmd.Arg(0) {
		sess.User = fallback.Name
	}
	return "Ok\n"
}
