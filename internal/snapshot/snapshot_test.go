package snapshot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dreamware/tinydb/internal/auth"
	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/listval"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/stretchr/testify/require"
)

func buildManager(t *testing.T) *store.Manager {
	t.Helper()
	mgr := store.NewManager(1, 4)
	db := mgr.Databases[0]

	db.Store([]byte("counter"), entry.NewInteger([]byte("counter"), 42))
	db.Store([]byte("name"), entry.NewString([]byte("name"), []byte("tinydb")))

	l := listval.New()
	l.RPushInt(1)
	l.RPushFloat(3.5)
	l.RPushString("three")
	db.Store([]byte("mylist"), entry.NewList([]byte("mylist"), l))

	db.Store([]byte("expiring"), entry.NewString([]byte("expiring"), []byte("soon")))
	db.SetTTL([]byte("expiring"), 3600)

	return mgr
}

func TestExportImportRoundTrip(t *testing.T) {
	mgr := buildManager(t)
	users := auth.NewManager()
	require.NoError(t, users.Create("alice", "pw"))

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, mgr, users))

	snap, err := Import(&buf, 4)
	require.NoError(t, err)
	require.Len(t, snap.Databases, 1)

	db := snap.Databases[0]
	counter, ok := db.Get([]byte("counter"))
	require.True(t, ok)
	require.Equal(t, int64(42), counter.Int)

	name, ok := db.Get([]byte("name"))
	require.True(t, ok)
	require.Equal(t, "tinydb", string(name.Str))

	listEntry, ok := db.Get([]byte("mylist"))
	require.True(t, ok)
	require.Equal(t, "[1, 3.5, \"three\"]", listEntry.List.ToString())

	expiring, ok := db.Get([]byte("expiring"))
	require.True(t, ok)
	require.True(t, expiring.HasTTL)
	require.Greater(t, expiring.Expiry, time.Now().Unix())

	require.Equal(t, 2, snap.Users.Count())
	_, err = snap.Users.Authenticate("alice", "pw")
	require.NoError(t, err)
}

func TestImportRejectsBadSignature(t *testing.T) {
	var buf bytes.Buffer
	writeString(&buf, "NOTIT")
	writeString(&buf, Version)

	_, err := Import(&buf, 4)
	require.Error(t, err)
}

func TestImportRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	writeString(&buf, Signature)
	writeString(&buf, "9.9.9")

	_, err := Import(&buf, 4)
	require.Error(t, err)
}

func TestExportFileImportFileRoundTrip(t *testing.T) {
	mgr := buildManager(t)
	users := auth.NewManager()

	dir := t.TempDir()
	path := dir + "/snapshot.bin"
	require.NoError(t, ExportFile(path, mgr, users))

	snap, err := ImportFile(path, 4)
	require.NoError(t, err)
	require.Len(t, snap.Databases, 1)
}

func TestControllerStartRejectsNonPositiveInterval(t *testing.T) {
	mgr := store.NewManager(1, 4)
	users := auth.NewManager()
	dir := t.TempDir()

	c := NewController(func() *store.Manager { return mgr }, func() *auth.Manager { return users }, dir+"/snap.bin", 0)
	require.ErrorIs(t, c.Start(context.Background(), 0, ""), ErrInvalidInterval)

	running, _, _ := c.Status()
	require.False(t, running)
}

func TestControllerSetIntervalRejectsNonPositiveInterval(t *testing.T) {
	mgr := store.NewManager(1, 4)
	users := auth.NewManager()
	dir := t.TempDir()

	c := NewController(func() *store.Manager { return mgr }, func() *auth.Manager { return users }, dir+"/snap.bin", time.Second)
	require.ErrorIs(t, c.SetInterval(0), ErrInvalidInterval)

	_, interval, _ := c.Status()
	require.Equal(t, time.Second, interval)
}

func TestExportSkipsObjectEntryWithWarning(t *testing.T) {
	mgr := store.NewManager(1, 4)
	db := mgr.Databases[0]
	db.Store([]byte("counter"), entry.NewInteger([]byte("counter"), 1))
	db.Store([]byte("obj"), &entry.Entry{Key: []byte("obj"), Kind: entry.KindObject})
	users := auth.NewManager()

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, mgr, users))

	snap, err := Import(&buf, 4)
	require.NoError(t, err)
	out := snap.Databases[0]

	_, ok := out.Get([]byte("counter"))
	require.True(t, ok)
	_, ok = out.Get([]byte("obj"))
	require.False(t, ok, "KindObject entries are skipped, not exported")
}

func TestControllerPeriodicallyWritesSnapshot(t *testing.T) {
	mgr := buildManager(t)
	users := auth.NewManager()

	dir := t.TempDir()
	path := dir + "/periodic.bin"

	c := NewController(func() *store.Manager { return mgr }, func() *auth.Manager { return users }, path, time.Hour)
	require.NoError(t, c.Start(context.Background(), 10*time.Millisecond, ""))
	defer c.Stop()

	require.Eventually(t, func() bool {
		_, err := ImportFile(path, 4)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	running, interval, gotPath := c.Status()
	require.True(t, running)
	require.Equal(t, 10*time.Millisecond, interval)
	require.Equal(t, path, gotPath)
}
