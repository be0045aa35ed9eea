// Package command implements TinyDB's command executor: dispatch by
// keyword, ACL enforcement at the command-class level, and framed
// replies, grounded on tinydb_command_executor.c.
package command

import "github.com/dreamware/tinydb/internal/pubsub"

// Session is the per-connection state the executor reads and mutates:
// which database is active, which user is authenticated, and the
// identity this connection uses to subscribe to channels. The server
// package owns the net.Conn; Session only needs enough to route pub/sub
// deliveries and gate ACL checks.
type Session struct {
	Sub      pubsub.Subscriber
	Database int32
	User     string
}

// NewSession creates a Session bound to sub (the connection's pub/sub
// identity), starting on database 0 as the unauthenticated "default"
// user, matching the source's per-client ctx->Active defaults.
func NewSession(sub pubsub.Subscriber) *Session {
	return &Session{Sub: sub, Database: 0, User: "default"}
}
