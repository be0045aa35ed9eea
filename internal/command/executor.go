package command

import (
	"context"
	"sync/atomic"

	"github.com/dreamware/tinydb/internal/auth"
	"github.com/dreamware/tinydb/internal/protocol"
	"github.com/dreamware/tinydb/internal/pubsub"
	"github.com/dreamware/tinydb/internal/snapshot"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/ttl"
)

// class gates a command behind the active user's per-database ACL,
// resolving spec Open Question 2: enforcement is at the command-class
// level, not per-command.
type class int

const (
	classNone class = iota
	classRead
	classWrite
	classDelete
)

func (c class) level() auth.Level {
	switch c {
	case classRead:
		return auth.Read
	case classWrite:
		return auth.Write
	case classDelete:
		return auth.Delete
	default:
		return 0
	}
}

// Config carries the executor's runtime-configurable knobs, a subset of
// runtime.Config relevant to command dispatch.
type Config struct {
	NumShards           int
	DefaultSnapshotPath string
	// MaxStringLength bounds the size of a string value accepted by
	// `set`/`append`/`rpush`/`lpush`, mirroring config.h's
	// MAX_STRING_LENGTH resource-exhaustion guard (spec §7: oversized
	// input replies FAILED and logs at error level rather than
	// mutating). Zero disables the check.
	MaxStringLength int
}

// Executor dispatches parsed commands against live store/auth state,
// mirroring tinydb_command_executor.c's giant switch. Databases and
// Users are held behind atomic pointers so `load` can swap in a freshly
// imported snapshot without a global lock on every command.
type Executor struct {
	base     context.Context
	dbs      atomic.Pointer[store.Manager]
	users    atomic.Pointer[auth.Manager]
	pubsub   *pubsub.System
	ttl      *ttl.Controller
	snapshot *snapshot.Controller
	cfg      Config
}

// NewExecutor builds an Executor over the given subsystems. base is the
// server's own lifetime context — background controllers started by a
// `ttl_cleanup_start`/`snapshot_start` command are bound to it rather
// than to the issuing connection's context, so they outlive whichever
// connection happened to start them.
func NewExecutor(base context.Context, dbs *store.Manager, users *auth.Manager, ps *pubsub.System, ttlCtl *ttl.Controller, snapCtl *snapshot.Controller, cfg Config) *Executor {
	e := &Executor{base: base, pubsub: ps, ttl: ttlCtl, snapshot: snapCtl, cfg: cfg}
	e.dbs.Store(dbs)
	e.users.Store(users)
	return e
}

// Databases returns the currently active database manager.
func (e *Executor) Databases() *store.Manager { return e.dbs.Load() }

// Users returns the currently active user manager.
func (e *Executor) Users() *auth.Manager { return e.users.Load() }

// SetSnapshotController binds the executor to a snapshot.Controller
// created after the executor itself, letting the controller's mgrFunc/
// usersFunc close over Executor.Databases/Executor.Users rather than the
// Manager pointers live at construction time — so a periodic snapshotter
// started before a `load` still exports whatever Manager `load` swapped
// in, not the one it started against.
func (e *Executor) SetSnapshotController(snapCtl *snapshot.Controller) {
	e.snapshot = snapCtl
}

// ReplaceState atomically swaps in a freshly imported manager pair,
// mirroring Import_Snapshot's "free then rebuild" semantics for the
// `load` command.
func (e *Executor) ReplaceState(dbs *store.Manager, users *auth.Manager) {
	e.dbs.Store(dbs)
	e.users.Store(users)
}

// UnsubscribeAll drops subID from every pub/sub channel, called when a
// connection disconnects so dead subscribers never receive later
// publishes (spec §5's fd-hygiene contract).
func (e *Executor) UnsubscribeAll(subID string) {
	e.pubsub.UnsubscribeAll(subID)
}

func (e *Executor) db(sess *Session) *store.Database {
	return e.dbs.Load().Get(int(sess.Database))
}

type handlerFunc func(e *Executor, ctx context.Context, sess *Session, cmd *protocol.Command) string

type dispatchEntry struct {
	class   class
	handler handlerFunc
}

var dispatch = map[string]dispatchEntry{}

func register(name string, c class, h handlerFunc) {
	dispatch[name] = dispatchEntry{class: c, handler: h}
}

// Execute runs one parsed command against sess, returning the full
// response text (already newline-terminated, spec §4.11's contract). A
// nil cmd (an empty or ill-formed line) yields "Invalid command\n"
// without touching any state, matching the lexer/parser's null contract
// (spec §4.10). An empty string return means no reply is sent at all
// (the `load` command's "log-only" contract).
func (e *Executor) Execute(ctx context.Context, sess *Session, cmd *protocol.Command) string {
	if cmd == nil {
		return "Invalid command\n"
	}

	entry, ok := dispatch[cmd.Name]
	if !ok {
		return "Unknown command\n"
	}

	if want := entry.class.level(); want != 0 {
		if !e.users.Load().Allowed(sess.User, sess.Database, want) {
			return "FAILED\n"
		}
	}

	return entry.handler(e, ctx, sess, cmd)
}
