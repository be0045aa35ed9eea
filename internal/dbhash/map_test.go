package dbhash

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/stretchr/testify/require"
)

func TestPutAddedThenModified(t *testing.T) {
	m := New(nil)
	require.Equal(t, Added, m.Put([]byte("a"), entry.NewInteger([]byte("a"), 1)))
	require.Equal(t, Modified, m.Put([]byte("a"), entry.NewInteger([]byte("a"), 2)))

	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, int64(2), v.Int)
}

func TestPutEmptyKeyFails(t *testing.T) {
	m := New(nil)
	require.Equal(t, Failed, m.Put(nil, entry.NewInteger(nil, 1)))
}

func TestGetMissingKey(t *testing.T) {
	m := New(nil)
	_, ok := m.Get([]byte("missing"))
	require.False(t, ok)
}

func TestRemoveThenReuseTombstone(t *testing.T) {
	m := New(nil)
	m.Put([]byte("a"), entry.NewInteger([]byte("a"), 1))
	require.True(t, m.Remove([]byte("a")))
	require.False(t, m.Remove([]byte("a")))

	_, ok := m.Get([]byte("a"))
	require.False(t, ok)

	require.Equal(t, Added, m.Put([]byte("a"), entry.NewInteger([]byte("a"), 9)))
	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, int64(9), v.Int)
}

func TestRemoveInvokesDestructor(t *testing.T) {
	var destroyed []string
	m := New(func(e *entry.Entry) { destroyed = append(destroyed, string(e.Key)) })
	m.Put([]byte("a"), entry.NewInteger([]byte("a"), 1))
	m.Remove([]byte("a"))
	require.Equal(t, []string{"a"}, destroyed)
}

func TestResizeGrowsAndPreservesAllKeys(t *testing.T) {
	m := New(nil)
	const n = 500
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		require.Equal(t, Added, m.Put(k, entry.NewInteger(k, int64(i))))
	}
	require.EqualValues(t, n, m.Size())

	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		v, ok := m.Get(k)
		require.True(t, ok, "key-%d should survive resize", i)
		require.Equal(t, int64(i), v.Int)
	}
}

func TestConcurrentPutGet(t *testing.T) {
	m := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := []byte(fmt.Sprintf("k%d", i))
			m.Put(k, entry.NewInteger(k, int64(i)))
			m.Get(k)
		}(i)
	}
	wg.Wait()
	require.EqualValues(t, 50, m.Size())
}

func TestKeysAndEach(t *testing.T) {
	m := New(nil)
	m.Put([]byte("a"), entry.NewInteger([]byte("a"), 1))
	m.Put([]byte("b"), entry.NewInteger([]byte("b"), 2))

	keys := m.Keys()
	require.Len(t, keys, 2)

	seen := map[string]int64{}
	m.Each(func(key []byte, v *entry.Entry) { seen[string(key)] = v.Int })
	require.Equal(t, map[string]int64{"a": 1, "b": 2}, seen)
}
