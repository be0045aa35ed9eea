// Package entry defines TinyDB's tagged value union and its destructor,
// grounded on tinydb_datatype.h and tinydb_database_entry_destructor.c.
// A Go sum type replaces the C union: exactly one of the Int/Str/List
// fields is meaningful, selected by Kind.
package entry

import "github.com/dreamware/tinydb/internal/listval"

// Kind tags which of Entry's value fields (Int, Str, List) is active.
type Kind uint8

const (
	// KindInteger holds a 64-bit counter; the only variant INCR applies to.
	KindInteger Kind = iota
	// KindString holds owned bytes.
	KindString
	// KindList holds a list value (internal/listval.List).
	KindList
	// KindObject is reserved. The source never produces it
	// ("unimplemented in the source" per spec §4.1/§9); the snapshot wire
	// format has no tag for it at all (Open Question 5), so it exists
	// only to keep this enum's shape matching the source's union.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Entry is a key plus a tagged value plus optional TTL fields (spec §3).
// Reads (store.Database.Get and the map beneath it) return a pointer to
// the stored Entry itself, not a copy: a change made through that pointer
// (Str, List, Int, or the TTL fields) is seen by every other reader.
type Entry struct {
	Key     []byte
	Str     []byte
	List    *listval.List
	Kind    Kind
	HasTTL  bool
	Expiry  int64 // unix seconds; meaningful iff HasTTL
	Int     int64
}

// NewInteger builds an Entry holding an integer value with no TTL.
func NewInteger(key []byte, v int64) *Entry {
	return &Entry{Key: key, Kind: KindInteger, Int: v}
}

// NewString builds an Entry holding an owned copy of v.
func NewString(key []byte, v []byte) *Entry {
	cp := make([]byte, len(v))
	copy(cp, v)
	return &Entry{Key: key, Kind: KindString, Str: cp}
}

// NewList builds an Entry wrapping an existing list value.
func NewList(key []byte, l *listval.List) *Entry {
	return &Entry{Key: key, Kind: KindList, List: l}
}

// Destroy releases whatever the entry's variant owns. For Kind==KindList
// this matches Database_Entry_Destructor -> HPLinkedList_Destroy in the
// source; Go's GC reclaims the list's node/string pools once nothing
// references it, so there's nothing left to do for String/Integer/Object
// variants — Destroy exists so call sites read the same way the source's
// destructor calls do, and so a future persistent (non-GC) list
// implementation has one place to hook into.
func (e *Entry) Destroy() {
	if e == nil {
		return
	}
	e.Str = nil
	e.List = nil
}
