// Package dbhash implements the concurrent, open-addressed hash map that
// backs every shard (spec §4.2), grounded on tinydb_hashmap.c/.h: a
// power-of-two bucket array probed quadratically, one rwlock per bucket,
// and incremental background migration on resize so no single Put/Get/
// Remove call ever pays for a full rehash.
package dbhash

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/mempool"
)

// InitialCapacity is the bucket count a freshly created Map starts with.
const InitialCapacity = 16

// ResizeWorkIncrement bounds how many old buckets a single Put/Get/Remove
// call migrates while a resize is in progress (spec §4.2).
const ResizeWorkIncrement = 64

// loadFactorNumerator/Denominator express the 0.75 resize trigger without
// floating point.
const (
	loadFactorNumerator   = 3
	loadFactorDenominator = 4
)

// PutResult reports what Put did.
type PutResult int

const (
	// Failed is returned for a nil key; the map is left unchanged.
	Failed PutResult = iota
	// Added means a new key was inserted.
	Added
	// Modified means an existing key's value was replaced.
	Modified
)

// ValueDestructor is invoked on a value being overwritten or removed, the
// Go analogue of the source's caller-supplied value_destructor.
type ValueDestructor func(*entry.Entry)

type bucket struct {
	mu        sync.RWMutex
	key       []byte
	keyHandle *mempool.Handle
	value     *entry.Entry
	occupied  bool
	deleted   bool
}

type table struct {
	buckets  []*bucket
	capacity int
}

func newTable(capacity int) *table {
	t := &table{buckets: make([]*bucket, capacity), capacity: capacity}
	for i := range t.buckets {
		t.buckets[i] = &bucket{}
	}
	return t
}

// Map is a concurrent hash map keyed by byte-string keys.
type Map struct {
	tbl        atomic.Pointer[table]
	size       atomic.Int64
	keyPool    *mempool.Pool
	destructor ValueDestructor

	resizeMu       sync.Mutex
	resizing       atomic.Bool
	old            *table
	resizeProgress int
}

// New creates an empty map. destructor may be nil, meaning replaced/removed
// values are simply dropped (left to the garbage collector).
func New(destructor ValueDestructor) *Map {
	m := &Map{
		keyPool:    mempool.New(mempool.DefaultBlockSize),
		destructor: destructor,
	}
	m.tbl.Store(newTable(InitialCapacity))
	return m
}

// Size returns the current live key count.
func (m *Map) Size() int64 { return m.size.Load() }

// hash is the multiplicative string hash from spec §4.2: 31*h + c, masked
// to capacity-1 (capacity is always a power of two).
func hash(key []byte, capacity int) int {
	h := 0
	for _, c := range key {
		h = h*31 + int(c)
	}
	return h & (capacity - 1)
}

func quadProbe(index, i, capacity int) int {
	return (index + i*i) & (capacity - 1)
}

// Put inserts or replaces key's value. Returns Added for a new key,
// Modified for an existing one, Failed for a nil/empty key.
func (m *Map) Put(key []byte, value *entry.Entry) PutResult {
	if len(key) == 0 {
		return Failed
	}
	m.migrateKeyIfPresent(key)
	m.migrateStep()

	for {
		t := m.tbl.Load()
		cap := t.capacity
		index := hash(key, cap)

		var tombstone *bucket
		tombstoneIdx := -1
		for i := 0; i < cap; i++ {
			b := t.buckets[index]
			b.mu.Lock()

			if b.occupied && !b.deleted && bytes.Equal(b.key, key) {
				if m.destructor != nil {
					m.destructor(b.value)
				}
				b.value = value
				b.mu.Unlock()
				m.maybeStartResize()
				return Modified
			}

			if !b.occupied {
				target := b
				if tombstone != nil {
					// Prefer the earliest tombstone seen on the probe chain.
					b.mu.Unlock()
					target = tombstone
					index = tombstoneIdx
					target.mu.Lock()
				}
				h := m.keyPool.Alloc(len(key))
				copy(h.Data, key)
				target.key = h.Data
				target.keyHandle = h
				target.value = value
				target.occupied = true
				target.deleted = false
				target.mu.Unlock()
				m.size.Add(1)
				m.maybeStartResize()
				return Added
			}

			if b.deleted && tombstone == nil {
				tombstone = b
				tombstoneIdx = index
				b.mu.Unlock()
			} else {
				b.mu.Unlock()
			}

			index = quadProbe(index, i+1, cap)
		}

		// Probe chain exhausted without finding room; force a resize and
		// retry. Only reachable if the map is pathologically full, which
		// the 0.75 load-factor trigger should always prevent first.
		m.forceResize()
	}
}

// Get returns the entry stored for key, if any. Lazily-expired entries are
// the caller's responsibility (spec ties expiry checks to the atomic-ops
// layer, not the map).
func (m *Map) Get(key []byte) (*entry.Entry, bool) {
	if len(key) == 0 {
		return nil, false
	}
	m.migrateKeyIfPresent(key)
	m.migrateStep()

	t := m.tbl.Load()
	cap := t.capacity
	index := hash(key, cap)

	for i := 0; i < cap; i++ {
		b := t.buckets[index]
		b.mu.RLock()
		if !b.occupied {
			b.mu.RUnlock()
			return nil, false
		}
		if !b.deleted && bytes.Equal(b.key, key) {
			v := b.value
			b.mu.RUnlock()
			return v, true
		}
		b.mu.RUnlock()
		index = quadProbe(index, i+1, cap)
	}
	return nil, false
}

// Remove deletes key, returning false if it wasn't present.
func (m *Map) Remove(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	m.migrateKeyIfPresent(key)
	m.migrateStep()

	t := m.tbl.Load()
	cap := t.capacity
	index := hash(key, cap)

	for i := 0; i < cap; i++ {
		b := t.buckets[index]
		b.mu.Lock()
		if !b.occupied {
			b.mu.Unlock()
			return false
		}
		if !b.deleted && bytes.Equal(b.key, key) {
			b.deleted = true
			if m.destructor != nil {
				m.destructor(b.value)
			}
			m.keyPool.Free(b.keyHandle)
			b.value = nil
			b.keyHandle = nil
			b.mu.Unlock()
			m.size.Add(-1)
			return true
		}
		b.mu.Unlock()
		index = quadProbe(index, i+1, cap)
	}
	return false
}

// Keys returns a snapshot of every live key, used by the snapshot codec
// and the TTL sweeper's expired-key scan.
func (m *Map) Keys() [][]byte {
	t := m.tbl.Load()
	out := make([][]byte, 0, m.size.Load())
	for _, b := range t.buckets {
		b.mu.RLock()
		if b.occupied && !b.deleted {
			k := make([]byte, len(b.key))
			copy(k, b.key)
			out = append(out, k)
		}
		b.mu.RUnlock()
	}
	return out
}

// Each calls fn for every live (key, value) pair. fn must not call back
// into the map.
func (m *Map) Each(fn func(key []byte, value *entry.Entry)) {
	t := m.tbl.Load()
	for _, b := range t.buckets {
		b.mu.RLock()
		if b.occupied && !b.deleted {
			fn(b.key, b.value)
		}
		b.mu.RUnlock()
	}
}

// maybeStartResize checks the load factor and, if it's crossed 0.75, wins
// the resize race and allocates the doubled table. Safe to call from any
// number of concurrent goroutines; exactly one starts the resize.
func (m *Map) maybeStartResize() {
	t := m.tbl.Load()
	if int64(t.capacity)*loadFactorNumerator > m.size.Load()*loadFactorDenominator {
		return
	}
	if !m.resizing.CompareAndSwap(false, true) {
		return
	}
	m.resizeMu.Lock()
	m.old = t
	m.resizeProgress = 0
	m.tbl.Store(newTable(t.capacity * 2))
	m.resizeMu.Unlock()
}

// forceResize is the fallback used when a probe chain is exhausted; it
// always doubles capacity regardless of load factor.
func (m *Map) forceResize() {
	if m.resizing.CompareAndSwap(false, true) {
		t := m.tbl.Load()
		m.resizeMu.Lock()
		m.old = t
		m.resizeProgress = 0
		m.tbl.Store(newTable(t.capacity * 2))
		m.resizeMu.Unlock()
	}
	// Drain any in-progress migration so the retried Put sees full capacity.
	for m.resizing.Load() {
		m.migrateStep()
	}
}

// migrateStep migrates up to ResizeWorkIncrement buckets of the old table
// into the current one under the global resize mutex (spec §4.2). Called
// at the top of every Put/Get/Remove.
func (m *Map) migrateStep() {
	if !m.resizing.Load() {
		return
	}

	m.resizeMu.Lock()
	defer m.resizeMu.Unlock()

	if !m.resizing.Load() || m.old == nil {
		return
	}

	newTbl := m.tbl.Load()
	start := m.resizeProgress
	end := start + ResizeWorkIncrement
	if end > m.old.capacity {
		end = m.old.capacity
	}

	for i := start; i < end; i++ {
		b := m.old.buckets[i]
		b.mu.Lock()
		if b.occupied && !b.deleted {
			migrateBucket(newTbl, b)
		}
		b.mu.Unlock()
	}
	m.resizeProgress = end

	if m.resizeProgress >= m.old.capacity {
		m.old = nil
		m.resizing.Store(false)
	}
}

// migrateKeyIfPresent moves key's bucket from the old table into the new
// one immediately, ahead of the sweeper's in-order progress, if a resize is
// underway and key still lives in an unmigrated old bucket. Without this,
// a Put for a key whose old bucket the sweeper hasn't reached yet would
// insert a second, duplicate entry into the new table instead of replacing
// the pending one, and a Get would wrongly report the key missing.
func (m *Map) migrateKeyIfPresent(key []byte) {
	if !m.resizing.Load() {
		return
	}
	m.resizeMu.Lock()
	defer m.resizeMu.Unlock()

	if !m.resizing.Load() || m.old == nil {
		return
	}

	old := m.old
	cap := old.capacity
	index := hash(key, cap)

	for i := 0; i < cap; i++ {
		b := old.buckets[index]
		b.mu.Lock()
		if !b.occupied {
			b.mu.Unlock()
			return
		}
		if !b.deleted && bytes.Equal(b.key, key) {
			migrateBucket(m.tbl.Load(), b)
			b.deleted = true
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()
		index = quadProbe(index, i+1, cap)
	}
}

// migrateBucket re-hashes an old bucket's contents into the new table via
// quadratic probing, same rule as a fresh Put.
func migrateBucket(t *table, old *bucket) {
	index := hash(old.key, t.capacity)
	for i := 0; i < t.capacity; i++ {
		nb := t.buckets[index]
		nb.mu.Lock()
		if !nb.occupied {
			nb.key = old.key
			nb.keyHandle = old.keyHandle
			nb.value = old.value
			nb.occupied = true
			nb.deleted = false
			nb.mu.Unlock()
			return
		}
		nb.mu.Unlock()
		index = quadProbe(index, i+1, t.capacity)
	}
}
