package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocAlignsAndWrites(t *testing.T) {
	p := New(64)
	h := p.Alloc(3)
	require.Len(t, h.Data, 8)
	copy(h.Data, []byte("abc"))
	require.Equal(t, byte('a'), h.Data[0])
}

func TestAllocDedicatedSlabForOversize(t *testing.T) {
	p := New(16)
	h := p.Alloc(100)
	require.Len(t, h.Data, 104) // aligned to 8
}

func TestFreeReusesChunk(t *testing.T) {
	p := New(64)
	_ = p.Alloc(8) // keeps the slab live so freeing h1 doesn't release it
	h1 := p.Alloc(8)
	p.Free(h1)
	h2 := p.Alloc(8)
	require.Same(t, &h1.Data[0], &h2.Data[0], "reused chunk should be the same backing memory")
}

func TestFreeAllLiveReleasesSlab(t *testing.T) {
	p := New(16)
	h := p.Alloc(8)
	require.Len(t, p.blocks, 1)
	p.Free(h)
	require.Empty(t, p.blocks)
}

func TestFreeNilIsNoop(t *testing.T) {
	p := New(16)
	require.NotPanics(t, func() { p.Free(nil) })
}
