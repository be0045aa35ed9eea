// Package store implements the sharded database layer: Pick_Shard/
// Initialize_Database/DB_Atomic_* from tinydb_database.c and
// tinydb_atomic_proc.c. Each database is NumShards independent dbhash.Maps,
// each guarded by its own lock, so unrelated keys never contend.
package store

import (
	"sync"
	"time"

	"github.com/dreamware/tinydb/internal/dbhash"
	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/listval"
)

// djb2 is the shard-selection hash (spec §4.4), distinct from the
// multiplicative hash dbhash.Map uses internally for its own buckets.
func djb2(key []byte) uint64 {
	var h uint64 = 5381
	for _, c := range key {
		h = ((h << 5) + h) + uint64(c)
	}
	return h
}

// PickShard returns the shard index for key given numShards (must be a
// power of two), mirroring Pick_Shard.
func PickShard(key []byte, numShards int) int {
	return int(djb2(key) & uint64(numShards-1))
}

// Shard is one partition of a Database: its own hash map plus a live
// entry counter. The map's internal bucket locks already make Get/Put/
// Remove safe; Shard additionally serializes read-modify-write sequences
// (INCR, TTL mutation) that must observe-then-update atomically.
type Shard struct {
	// mu serializes read-modify-write sequences (INCR, TTL mutation) the
	// way the source's per-shard pthread_rwlock_wrlock does; plain Get/Put
	// already get their atomicity from the map's own bucket locks.
	mu      sync.Mutex
	entries *dbhash.Map
}

func newShard() *Shard {
	return &Shard{entries: dbhash.New(func(e *entry.Entry) { e.Destroy() })}
}

// Database is a named collection of shards, the unit ACL and pub/sub
// operate over.
type Database struct {
	ID        int32
	Name      string
	NumShards int
	shards    []*Shard
}

// New creates a Database with numShards partitions, mirroring
// Initialize_Database.
func New(id int32, name string, numShards int) *Database {
	db := &Database{ID: id, Name: name, NumShards: numShards, shards: make([]*Shard, numShards)}
	for i := range db.shards {
		db.shards[i] = newShard()
	}
	return db
}

func (db *Database) shardFor(key []byte) *Shard {
	return db.shards[PickShard(key, db.NumShards)]
}

// Store inserts or replaces key's entry, mirroring DB_Atomic_Store. The
// passed entry's Key is set to key if not already populated.
func (db *Database) Store(key []byte, e *entry.Entry) dbhash.PutResult {
	if e.Key == nil {
		e.Key = key
	}
	return db.shardFor(key).entries.Put(key, e)
}

// Get returns key's entry, or ok=false if absent or lazily expired.
// Expired entries are removed as a side effect (spec §4.5's lazy
// expiration), matching Check_Expiry's "expired but not yet cleaned up"
// handling in Get_TTL.
func (db *Database) Get(key []byte) (*entry.Entry, bool) {
	shard := db.shardFor(key)
	e, ok := shard.entries.Get(key)
	if !ok {
		return nil, false
	}
	if e.HasTTL && time.Now().Unix() >= e.Expiry {
		shard.entries.Remove(key)
		return nil, false
	}
	return e, true
}

// Incr atomically increments an integer key, creating it at 1 if absent or
// expired, mirroring DB_Atomic_Incr. ok is false when the existing,
// unexpired value isn't an integer.
func (db *Database) Incr(key []byte) (int64, bool) {
	shard := db.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	e, ok := shard.entries.Get(key)
	if ok && e.HasTTL && time.Now().Unix() >= e.Expiry {
		shard.entries.Remove(key)
		ok = false
	}
	if !ok {
		shard.entries.Put(key, entry.NewInteger(key, 1))
		return 1, true
	}
	if e.Kind != entry.KindInteger {
		return 0, false
	}
	e.Int++
	return e.Int, true
}

// Append concatenates suffix onto key's existing string value in place,
// returning the new byte length. ok is false if key is absent or holds a
// non-string value, mirroring the `append` command's "null if
// absent/non-string" contract (spec §4.11); the mutation is skipped in
// that case.
func (db *Database) Append(key []byte, suffix []byte) (int, bool) {
	shard := db.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	e, ok := shard.entries.Get(key)
	if !ok || e.Kind != entry.KindString {
		return 0, false
	}
	e.Str = append(e.Str, suffix...)
	return len(e.Str), true
}

// GetOrCreateList returns key's list entry, creating an empty one if the
// key is absent, mirroring how `rpush`/`lpush` lazily initialize a list
// value. ok is false if key already holds a non-list value.
func (db *Database) GetOrCreateList(key []byte) (*entry.Entry, bool) {
	shard := db.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	e, exists := shard.entries.Get(key)
	if !exists {
		e = entry.NewList(key, listval.New())
		shard.entries.Put(key, e)
		return e, true
	}
	if e.Kind != entry.KindList {
		return nil, false
	}
	return e, true
}

// GetList returns key's list entry without creating one, used by
// `rpop`/`lpop`/`llen`/`lrange`. ok is false if absent or non-list.
func (db *Database) GetList(key []byte) (*entry.Entry, bool) {
	e, ok := db.Get(key)
	if !ok || e.Kind != entry.KindList {
		return nil, false
	}
	return e, true
}

// Remove deletes key, returning whether it was present.
func (db *Database) Remove(key []byte) bool {
	return db.shardFor(key).entries.Remove(key)
}

// SetTTL assigns or clears key's expiry, mirroring Set_TTL. seconds<=0
// clears any existing TTL.
func (db *Database) SetTTL(key []byte, seconds int64) bool {
	shard := db.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	e, ok := shard.entries.Get(key)
	if !ok {
		return false
	}
	if seconds <= 0 {
		e.HasTTL = false
		e.Expiry = 0
	} else {
		e.HasTTL = true
		e.Expiry = time.Now().Unix() + seconds
	}
	return true
}

// TTLResult enumerates Get_TTL's three non-value outcomes.
type TTLResult int

const (
	// TTLKeyMissing means the key doesn't exist.
	TTLKeyMissing TTLResult = -1
	// TTLNoExpiry means the key exists but carries no TTL.
	TTLNoExpiry TTLResult = -2
)

// GetTTL returns the remaining seconds until expiry, TTLKeyMissing, or
// TTLNoExpiry, mirroring Get_TTL (remaining seconds floor at 0, never
// negative, for an entry expired-but-not-yet-swept).
func (db *Database) GetTTL(key []byte) int64 {
	e, ok := db.shardFor(key).entries.Get(key)
	if !ok {
		return int64(TTLKeyMissing)
	}
	if !e.HasTTL {
		return int64(TTLNoExpiry)
	}
	remaining := e.Expiry - time.Now().Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CleanupExpired removes every entry past its expiry across all shards,
// mirroring Cleanup_Expired_Keys, and returns how many were removed.
func (db *Database) CleanupExpired() int {
	removed := 0
	now := time.Now().Unix()
	for _, shard := range db.shards {
		var expired [][]byte
		shard.entries.Each(func(key []byte, e *entry.Entry) {
			if e.HasTTL && now >= e.Expiry {
				k := make([]byte, len(key))
				copy(k, key)
				expired = append(expired, k)
			}
		})
		for _, k := range expired {
			if shard.entries.Remove(k) {
				removed++
			}
		}
	}
	return removed
}

// ShardCounts returns the live entry count of each shard in order, used by
// the metrics collector to expose per-shard occupancy.
func (db *Database) ShardCounts() []int64 {
	counts := make([]int64, len(db.shards))
	for i, s := range db.shards {
		counts[i] = s.entries.Size()
	}
	return counts
}

// Each visits every live entry across every shard. Used by the snapshot
// exporter.
func (db *Database) Each(fn func(key []byte, e *entry.Entry)) {
	for _, shard := range db.shards {
		shard.entries.Each(fn)
	}
}

// Manager holds every open database, mirroring DatabaseManager.
type Manager struct {
	Databases []*Database
	numShards int
}

// NewManager creates a Manager with numInitial databases, each with
// numShards shards, matching NUM_INITIAL_DATABASES/NUM_SHARDS startup
// behavior.
func NewManager(numInitial, numShards int) *Manager {
	m := &Manager{numShards: numShards}
	for i := 0; i < numInitial; i++ {
		m.Databases = append(m.Databases, New(int32(i), "default", numShards))
	}
	return m
}

// ManagerFromDatabases wraps an already-built database list (e.g. decoded
// by the snapshot importer) in a Manager, so a freshly loaded snapshot can
// replace a running Manager's contents wholesale.
func ManagerFromDatabases(dbs []*Database, numShards int) *Manager {
	return &Manager{Databases: dbs, numShards: numShards}
}

// CreateDatabase appends a new named database and returns it.
func (m *Manager) CreateDatabase(name string) *Database {
	db := New(int32(len(m.Databases)), name, m.numShards)
	m.Databases = append(m.Databases, db)
	return db
}

// Get returns the database at index i, or nil if out of range.
func (m *Manager) Get(i int) *Database {
	if i < 0 || i >= len(m.Databases) {
		return nil
	}
	return m.Databases[i]
}

// ByName returns the first database named name, or nil.
func (m *Manager) ByName(name string) *Database {
	for _, db := range m.Databases {
		if db.Name == name {
			return db
		}
	}
	return nil
}
