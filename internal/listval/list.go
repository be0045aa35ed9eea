// Package listval implements the `list` value type: a thread-safe doubly
// linked list with a recycled-node cache, grounded on tinydb_list.c/.h.
// Elements are integers, floats, or owned strings; strings are drawn from
// a dedicated per-list string pool exactly as the source's
// STRING_POOL_BLOCK_SIZE arena does.
package listval

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dreamware/tinydb/internal/mempool"
)

// MaxFreedNodes bounds the recycled-node reuse stack (spec §4.3).
const MaxFreedNodes = 1024

const (
	nodePoolBlockSize   = 1024
	stringPoolBlockSize = 4096
)

// Kind tags the type of value a list node holds.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

// Node is one element of the list. Str holds the live view of a pooled
// string allocation; strHandle tracks the pool chunk backing it so it can
// be returned on removal.
type Node struct {
	next, prev *Node
	strHandle  *mempool.Handle
	Str        []byte
	Float      float64
	Int        int64
	Kind       Kind
}

// List is a thread-safe doubly linked list value.
type List struct {
	mu         sync.RWMutex
	head, tail *Node
	nodePool   *mempool.Pool
	stringPool *mempool.Pool
	freed      []*Node
	count      int
}

// New creates an empty list ready for LPush/RPush.
func New() *List {
	return &List{
		nodePool:   mempool.New(nodePoolBlockSize),
		stringPool: mempool.New(stringPoolBlockSize),
	}
}

func (l *List) reuseOrCreateNode() *Node {
	if n := len(l.freed); n > 0 {
		node := l.freed[n-1]
		l.freed = l.freed[:n-1]
		node.next, node.prev = nil, nil
		return node
	}
	return &Node{}
}

// freeNode returns a detached node's string payload to the string pool and
// pushes the node itself onto the bounded reuse stack. Called with the
// write lock held.
func (l *List) freeNode(n *Node) {
	if n == nil {
		return
	}
	if n.Kind == KindString && n.strHandle != nil {
		l.stringPool.Free(n.strHandle)
		n.strHandle = nil
		n.Str = nil
	}
	if len(l.freed) < MaxFreedNodes {
		l.freed = append(l.freed, n)
	}
}

func (l *List) newIntNode(v int64) *Node {
	n := l.reuseOrCreateNode()
	n.Kind = KindInt
	n.Int = v
	return n
}

func (l *List) newFloatNode(v float64) *Node {
	n := l.reuseOrCreateNode()
	n.Kind = KindFloat
	n.Float = v
	return n
}

func (l *List) newStringNode(v string) *Node {
	n := l.reuseOrCreateNode()
	h := l.stringPool.Alloc(len(v))
	copy(h.Data, v)
	n.Kind = KindString
	n.strHandle = h
	n.Str = h.Data[:len(v)]
	return n
}

func (l *List) rpush(n *Node) int {
	if l.tail != nil {
		l.tail.next = n
		n.prev = l.tail
		l.tail = n
	} else {
		l.head, l.tail = n, n
	}
	l.count++
	return l.count
}

func (l *List) lpush(n *Node) int {
	if l.head != nil {
		l.head.prev = n
		n.next = l.head
		l.head = n
	} else {
		l.head, l.tail = n, n
	}
	l.count++
	return l.count
}

// RPushInt appends an integer element, returning the new length.
func (l *List) RPushInt(v int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rpush(l.newIntNode(v))
}

// RPushFloat appends a float element, returning the new length.
func (l *List) RPushFloat(v float64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rpush(l.newFloatNode(v))
}

// RPushString appends a string element, returning the new length.
func (l *List) RPushString(v string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rpush(l.newStringNode(v))
}

// LPushInt prepends an integer element, returning the new length.
func (l *List) LPushInt(v int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lpush(l.newIntNode(v))
}

// LPushFloat prepends a float element, returning the new length.
func (l *List) LPushFloat(v float64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lpush(l.newFloatNode(v))
}

// LPushString prepends a string element, returning the new length.
func (l *List) LPushString(v string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lpush(l.newStringNode(v))
}

// popResult is a value copy of a node, safe to use after the node has been
// recycled back into the pool.
type popResult struct {
	Str   string
	Kind  Kind
	Int   int64
	Float float64
}

func snapshotNode(n *Node) popResult {
	r := popResult{Kind: n.Kind, Int: n.Int, Float: n.Float}
	if n.Kind == KindString {
		r.Str = string(n.Str)
	}
	return r
}

// LPop detaches and returns the head element, or ok=false if the list is
// empty. The detached node is lazily recycled after detachment completes.
func (l *List) LPop() (popResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.head
	if n == nil {
		return popResult{}, false
	}
	l.head = n.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	l.count--

	r := snapshotNode(n)
	l.freeNode(n)
	return r, true
}

// RPop detaches and returns the tail element, or ok=false if the list is
// empty.
func (l *List) RPop() (popResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.tail
	if n == nil {
		return popResult{}, false
	}
	l.tail = n.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.count--

	r := snapshotNode(n)
	l.freeNode(n)
	return r, true
}

// Len returns the current element count.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

func formatElement(n *Node, quote bool) string {
	switch n.Kind {
	case KindInt:
		return strconv.FormatInt(n.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(n.Float, 'f', -1, 64)
	case KindString:
		if quote {
			return fmt.Sprintf("%q", string(n.Str))
		}
		return string(n.Str)
	default:
		return ""
	}
}

// ToString renders the list as `[e1, e2, ...]` with string elements
// quoted, matching the source's HPList_ToString.
func (l *List) ToString() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	b.WriteByte('[')
	for n := l.head; n != nil; n = n.next {
		b.WriteString(formatElement(n, true))
		if n.next != nil {
			b.WriteString(", ")
		}
	}
	b.WriteByte(']')
	return b.String()
}

// RangeToString renders the inclusive [start, stop] sub-range the same way
// ToString renders the whole list — bracketed, comma-separated, string
// elements quoted — matching spec §4.11's "lrange ... reply the inclusive
// subrange rendered as for get". Bounds are clamped to [0, count-1]; an
// empty or out-of-order range yields "[]".
func (l *List) RangeToString(start, stop int) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	b.WriteByte('[')

	if l.count > 0 {
		if start < 0 {
			start = 0
		}
		if stop > l.count-1 {
			stop = l.count - 1
		}
		idx := 0
		for n := l.head; n != nil && idx <= stop; n, idx = n.next, idx+1 {
			if idx < start {
				continue
			}
			b.WriteString(formatElement(n, true))
			if idx != stop {
				b.WriteString(", ")
			}
		}
	}

	b.WriteByte(']')
	return b.String()
}

// Elements returns a snapshot of every element in order, used by the
// snapshot codec to serialize list values.
func (l *List) Elements() []popResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]popResult, 0, l.count)
	for n := l.head; n != nil; n = n.next {
		out = append(out, snapshotNode(n))
	}
	return out
}

// PopResult re-exports popResult's fields for callers outside the package
// (the snapshot codec and command executor need to inspect popped/iterated
// elements).
type PopResult = popResult

// AppendInt/AppendFloat/AppendString let the snapshot codec rebuild a list
// from a decoded element stream without going through the push locking
// path twice (they still take the write lock for safety).
func (l *List) AppendInt(v int64) { l.RPushInt(v) }

func (l *List) AppendFloat(v float64) { l.RPushFloat(v) }

func (l *List) AppendString(v string) { l.RPushString(v) }
