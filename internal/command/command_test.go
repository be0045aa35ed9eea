package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dreamware/tinydb/internal/auth"
	"github.com/dreamware/tinydb/internal/protocol"
	"github.com/dreamware/tinydb/internal/pubsub"
	"github.com/dreamware/tinydb/internal/snapshot"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/ttl"
	"github.com/dreamware/tinydb/internal/workerpool"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id   string
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Send(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSub) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func newTestExecutor(t *testing.T) (*Executor, func()) {
	t.Helper()
	pool := workerpool.New(2, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go pool.Run(ctx)

	dbs := store.NewManager(1, 4)
	users := auth.NewManager()
	ps := pubsub.New(pool)
	ttlCtl := ttl.NewController(dbs, time.Second)
	dir := t.TempDir()
	snapCtl := snapshot.NewController(func() *store.Manager { return dbs }, func() *auth.Manager { return users }, dir+"/snap.bin", time.Hour)

	e := NewExecutor(ctx, dbs, users, ps, ttlCtl, snapCtl, Config{NumShards: 4, DefaultSnapshotPath: dir + "/snapshot.bin"})
	return e, cancel
}

func run(e *Executor, sess *Session, line string) string {
	return e.Execute(context.Background(), sess, protocol.Parse(line))
}

func TestSetGetRoundTrip(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "Ok\n", run(e, sess, "set name tinydb"))
	require.Equal(t, "tinydb\n", run(e, sess, "get name"))
	require.Equal(t, "null\n", run(e, sess, "get missing"))
}

func TestAppendAndStrlen(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	run(e, sess, "set greeting hello")
	require.Equal(t, "Ok\n", run(e, sess, "append greeting world"))
	require.Equal(t, "helloworld\n", run(e, sess, "get greeting"))
	require.Equal(t, "10\n", run(e, sess, "strlen greeting"))
	require.Equal(t, "null\n", run(e, sess, "append nosuchkey x"))
}

func TestIncr(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "1\n", run(e, sess, "incr counter"))
	require.Equal(t, "2\n", run(e, sess, "incr counter"))

	run(e, sess, "set notanumber hi")
	require.Equal(t, "-1\n", run(e, sess, "incr notanumber"))
}

func TestListCommands(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "Ok\n", run(e, sess, "rpush mylist 1"))
	require.Equal(t, "Ok\n", run(e, sess, "rpush mylist two"))
	require.Equal(t, "Ok\n", run(e, sess, "lpush mylist 0"))
	require.Equal(t, "3\n", run(e, sess, "llen mylist"))
	require.Equal(t, `[0, 1, "two"]`+"\n", run(e, sess, "get mylist"))
	require.Equal(t, "[0, 1]\n", run(e, sess, "lrange mylist 0 1"))
	require.Equal(t, "two\n", run(e, sess, "rpop mylist"))
	require.Equal(t, "0\n", run(e, sess, "lpop mylist"))
	require.Equal(t, "null\n", run(e, sess, "rpop nosuchlist"))
}

func TestTTLCommands(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	run(e, sess, "set k v")
	require.Equal(t, "-2\n", run(e, sess, "ttl k"))
	require.Equal(t, "Ok\n", run(e, sess, "expire k 60"))
	require.NotEqual(t, "-2\n", run(e, sess, "ttl k"))
	require.Equal(t, "-1\n", run(e, sess, "ttl nosuchkey"))
}

func TestAuthFlowAndACL(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "Ok\n", run(e, sess, "create_user alice secret"))
	require.Equal(t, "Ok\n", run(e, sess, "auth alice secret"))
	require.Equal(t, "alice", sess.User)

	// alice only has Read by default — writes must fail.
	require.Equal(t, "FAILED\n", run(e, sess, "set k v"))

	require.Equal(t, "Ok\n", run(e, sess, "auth default default"))
	require.Equal(t, "Ok\n", run(e, sess, "set k v"))
}

func TestUnknownAndInvalidCommand(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "Unknown command\n", run(e, sess, "frobnicate"))
	require.Equal(t, "Invalid command\n", e.Execute(context.Background(), sess, protocol.Parse("")))
}

func TestPubSub(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()

	subA := &fakeSub{id: "a"}
	sessA := NewSession(subA)
	sessB := NewSession(&fakeSub{id: "b"})

	require.Equal(t, "Ok\n", run(e, sessA, "sub news"))
	require.Equal(t, "Ok\n", run(e, sessB, "pub news hello"))

	require.Eventually(t, func() bool {
		return len(subA.received()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, "hello", subA.received()[0])

	require.Equal(t, "Ok\n", run(e, sessA, "unsub news"))
}

func TestHookAdd(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "Ok\n", run(e, sess, "hook_add @hook:orders https://example.com/hook"))
	require.Equal(t, "Usage: hook_add <channel> <url>\n", run(e, sess, "hook_add @hook:orders"))
}

func TestExportAndLoadRoundTrip(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	run(e, sess, "set k v")
	require.Equal(t, "Ok\n", run(e, sess, "export"))

	run(e, sess, "set k changed")
	require.Equal(t, "", run(e, sess, "load"))
	require.Equal(t, "v\n", run(e, sess, "get k"))
}

func TestSnapshotAndTTLControllerCommands(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	require.Equal(t, "Ok\n", run(e, sess, "ttl_cleanup_start 1"))
	require.Contains(t, run(e, sess, "ttl_cleanup_status"), "running=true")
	require.Equal(t, "Ok\n", run(e, sess, "ttl_cleanup_stop"))

	require.Equal(t, "Ok\n", run(e, sess, "snapshot_start 60"))
	require.Contains(t, run(e, sess, "snapshot_status"), "running=true")
	require.Equal(t, "Ok\n", run(e, sess, "snapshot_stop"))
}

func TestDeleteUser(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})

	run(e, sess, "create_user bob pw")
	require.Equal(t, "FAILED\n", run(e, sess, "delete_user default"))
	require.Equal(t, "Ok\n", run(e, sess, "delete_user bob"))
}

func TestInsp(t *testing.T) {
	e, cancel := newTestExecutor(t)
	defer cancel()
	sess := NewSession(&fakeSub{id: "c1"})
	require.Equal(t, "Ok\n", run(e, sess, "insp"))
}
