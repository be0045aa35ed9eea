// Package mempool implements the slab-backed arena allocator TinyDB uses
// for key bytes and list node payloads (spec §4.1), grounded on
// tinydb_memory_pool.c/.h from the original source: a linked list of
// fixed-size slabs, a last-freed-first free list per slab, and a
// dedicated slab for allocations that don't fit the standard block size.
package mempool

import "sync"

// DefaultBlockSize matches MEMORY_POOL_SIZE in the source (4 KiB).
const DefaultBlockSize = 4096

// align8 rounds n up to the next multiple of 8, mirroring the source's
// `size = (size + 7) & ~7`.
func align8(n int) int {
	return (n + 7) &^ 7
}

type slab struct {
	mem      []byte
	free     map[int][][]byte
	used     int
	live     int
	dedicated bool
}

// Handle is an allocation returned by Alloc. It must be passed back to
// Free exactly once; reusing a freed Handle's Data after Free is undefined,
// same as freeing raw memory in the source.
type Handle struct {
	Data  []byte
	owner *slab
	size  int
}

// Pool is a mutex-guarded arena of slabs. The zero value is not usable;
// construct with New.
type Pool struct {
	mu        sync.Mutex
	blockSize int
	blocks    []*slab
}

// New creates a pool whose standard slabs are blockSize bytes. A
// non-positive blockSize falls back to DefaultBlockSize.
func New(blockSize int) *Pool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Pool{blockSize: blockSize}
}

// Alloc reserves n bytes, rounded up to 8-byte alignment. Requests larger
// than the pool's block size get a dedicated slab. Returns nil only if
// Go's allocator itself would have failed (which in practice it won't;
// kept for parity with the source's NULL-on-failure contract).
func (p *Pool) Alloc(n int) *Handle {
	size := align8(n)
	if size == 0 {
		size = 8
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if size > p.blockSize {
		s := &slab{mem: make([]byte, size), used: size, dedicated: true, live: 1}
		p.blocks = append(p.blocks, s)
		return &Handle{Data: s.mem, owner: s, size: size}
	}

	// First slab's free-list wins, last-freed-first, per spec §4.1.
	for _, s := range p.blocks {
		if s.dedicated {
			continue
		}
		if stack := s.free[size]; len(stack) > 0 {
			chunk := stack[len(stack)-1]
			s.free[size] = stack[:len(stack)-1]
			s.live++
			return &Handle{Data: chunk, owner: s, size: size}
		}
	}

	// Bump the most recent standard slab if it has room.
	if n := len(p.blocks); n > 0 {
		last := p.blocks[n-1]
		if !last.dedicated && last.used+size <= len(last.mem) {
			chunk := last.mem[last.used : last.used+size : last.used+size]
			last.used += size
			last.live++
			return &Handle{Data: chunk, owner: last, size: size}
		}
	}

	s := &slab{mem: make([]byte, p.blockSize), free: make(map[int][][]byte)}
	chunk := s.mem[0:size:size]
	s.used = size
	s.live = 1
	p.blocks = append(p.blocks, s)
	return &Handle{Data: chunk, owner: s, size: size}
}

// Free returns a handle's memory to its owning slab's free list. If the
// slab has no more live allocations, the slab itself is released. Freeing
// nil or a handle this pool didn't produce is a no-op, matching the
// source's fallback-to-system-free behavior for untracked pointers.
func (p *Pool) Free(h *Handle) {
	if h == nil || h.owner == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := h.owner
	owned := false
	for _, b := range p.blocks {
		if b == s {
			owned = true
			break
		}
	}
	if !owned {
		return
	}
	s.live--

	if s.dedicated {
		if s.live <= 0 {
			p.releaseSlab(s)
		}
		return
	}

	if s.free == nil {
		s.free = make(map[int][][]byte)
	}
	s.free[h.size] = append(s.free[h.size], h.Data)

	if s.live <= 0 {
		p.releaseSlab(s)
	}
}

func (p *Pool) releaseSlab(target *slab) {
	for i, s := range p.blocks {
		if s == target {
			p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
			return
		}
	}
}
