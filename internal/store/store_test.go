package store

import (
	"sync"
	"testing"
	"time"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/stretchr/testify/require"
)

func TestStoreAndGet(t *testing.T) {
	db := New(0, "default", 16)
	db.Store([]byte("k"), entry.NewString([]byte("k"), []byte("v")))

	e, ok := db.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, "v", string(e.Str))
}

func TestGetMissing(t *testing.T) {
	db := New(0, "default", 16)
	_, ok := db.Get([]byte("missing"))
	require.False(t, ok)
}

func TestIncrCreatesThenIncrements(t *testing.T) {
	db := New(0, "default", 16)
	v, ok := db.Incr([]byte("counter"))
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v, ok = db.Incr([]byte("counter"))
	require.True(t, ok)
	require.Equal(t, int64(2), v)
}

func TestIncrRejectsNonInteger(t *testing.T) {
	db := New(0, "default", 16)
	db.Store([]byte("k"), entry.NewString([]byte("k"), []byte("v")))
	_, ok := db.Incr([]byte("k"))
	require.False(t, ok)
}

func TestIncrResetsOnExpiredInteger(t *testing.T) {
	db := New(0, "default", 16)
	e := entry.NewInteger([]byte("counter"), 41)
	e.HasTTL = true
	e.Expiry = time.Now().Unix() - 1
	db.Store([]byte("counter"), e)

	v, ok := db.Incr([]byte("counter"))
	require.True(t, ok)
	require.Equal(t, int64(1), v, "expired integer key must reset to 1, not fetch-add onto its stale value")
}

func TestIncrConcurrentIsAtomic(t *testing.T) {
	db := New(0, "default", 16)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db.Incr([]byte("counter"))
		}()
	}
	wg.Wait()

	e, ok := db.Get([]byte("counter"))
	require.True(t, ok)
	require.Equal(t, int64(100), e.Int)
}

func TestSetTTLAndGetTTL(t *testing.T) {
	db := New(0, "default", 16)
	db.Store([]byte("k"), entry.NewString([]byte("k"), []byte("v")))

	require.Equal(t, int64(TTLNoExpiry), db.GetTTL([]byte("k")))

	require.True(t, db.SetTTL([]byte("k"), 10))
	remaining := db.GetTTL([]byte("k"))
	require.Greater(t, remaining, int64(0))
	require.LessOrEqual(t, remaining, int64(10))
}

func TestGetTTLMissingKey(t *testing.T) {
	db := New(0, "default", 16)
	require.Equal(t, int64(TTLKeyMissing), db.GetTTL([]byte("missing")))
}

func TestLazyExpirationOnGet(t *testing.T) {
	db := New(0, "default", 16)
	db.Store([]byte("k"), entry.NewString([]byte("k"), []byte("v")))
	db.SetTTL([]byte("k"), -1) // clears
	e, _ := db.shardFor([]byte("k")).entries.Get([]byte("k"))
	e.HasTTL = true
	e.Expiry = time.Now().Unix() - 5

	_, ok := db.Get([]byte("k"))
	require.False(t, ok)
}

func TestCleanupExpiredRemovesOnlyExpired(t *testing.T) {
	db := New(0, "default", 16)
	db.Store([]byte("fresh"), entry.NewString([]byte("fresh"), []byte("v")))
	db.Store([]byte("stale"), entry.NewString([]byte("stale"), []byte("v")))

	stale, _ := db.shardFor([]byte("stale")).entries.Get([]byte("stale"))
	stale.HasTTL = true
	stale.Expiry = time.Now().Unix() - 1

	removed := db.CleanupExpired()
	require.Equal(t, 1, removed)

	_, ok := db.Get([]byte("fresh"))
	require.True(t, ok)
	_, ok = db.shardFor([]byte("stale")).entries.Get([]byte("stale"))
	require.False(t, ok)
}

func TestManagerInitializesDefaultDatabase(t *testing.T) {
	m := NewManager(1, 16)
	require.Len(t, m.Databases, 1)
	require.Equal(t, "default", m.Databases[0].Name)
}

func TestManagerCreateAndLookupByName(t *testing.T) {
	m := NewManager(1, 16)
	db := m.CreateDatabase("analytics")
	require.Equal(t, db, m.ByName("analytics"))
	require.Nil(t, m.ByName("nope"))
}

func TestPickShardIsStableForSameKey(t *testing.T) {
	a := PickShard([]byte("hello"), 16)
	b := PickShard([]byte("hello"), 16)
	require.Equal(t, a, b)
	require.GreaterOrEqual(t, a, 0)
	require.Less(t, a, 16)
}
