package listval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	l := New()
	l.RPushInt(1)
	l.RPushString("two")

	require.Equal(t, "[1, \"two\"]", l.ToString())
	require.Equal(t, 2, l.Len())

	head, ok := l.LPop()
	require.True(t, ok)
	require.Equal(t, int64(1), head.Int)

	tail, ok := l.RPop()
	require.True(t, ok)
	require.Equal(t, "two", tail.Str)

	_, ok = l.LPop()
	require.False(t, ok)
}

func TestLPushRPop(t *testing.T) {
	l := New()
	l.LPushInt(1)
	l.LPushInt(2)
	// list is now [2, 1]
	r, ok := l.RPop()
	require.True(t, ok)
	require.Equal(t, int64(1), r.Int)
}

func TestRangeToStringClampsBounds(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		l.RPushInt(int64(i))
	}
	require.Equal(t, "[0, 1, 2, 3, 4]", l.RangeToString(0, 100))
	require.Equal(t, "[2, 3]", l.RangeToString(2, 3))
	require.Equal(t, "[]", l.RangeToString(4, 1))
}

func TestNodeReuseAcrossPushPop(t *testing.T) {
	l := New()
	l.RPushInt(1)
	l.LPop()
	l.RPushInt(2)
	require.Equal(t, 1, l.Len())
	require.LessOrEqual(t, len(l.freed), MaxFreedNodes)
}

func TestStringPoolFreedOnPop(t *testing.T) {
	l := New()
	l.RPushString("hello")
	v, ok := l.RPop()
	require.True(t, ok)
	require.Equal(t, "hello", v.Str)
	require.Nil(t, l.freed[len(l.freed)-1].strHandle)
}
