package storage

import (
	"strconv"
	"time"
)

// Kind is the top-level tagged variant discriminator for a Value (C5).
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindHash
	KindZSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// Encoding names the concrete representation a value currently uses.
// Which constants are legal depends on Kind (see the table in §3.1).
type Encoding int

const (
	EncInt Encoding = iota
	EncRaw
	EncZiplist
	EncLinkedList
	EncIntset
	EncHashTable
	EncSkiplist
)

func (e Encoding) String() string {
	switch e {
	case EncInt:
		return "int"
	case EncRaw:
		return "raw"
	case EncZiplist:
		return "ziplist"
	case EncLinkedList:
		return "linkedlist"
	case EncIntset:
		return "intset"
	case EncHashTable:
		return "hashtable"
	case EncSkiplist:
		return "skiplist"
	default:
		return "unknown"
	}
}

// Limits gates promotion between encodings (§3.1's "Promotion trigger"
// column). Each field is independently configurable, matching the
// corresponding config key in spec.md §6.4.
type Limits struct {
	ListMaxEntries int
	ListMaxValue   int
	HashMaxEntries int
	HashMaxValue   int
	SetMaxIntset   int
	ZSetMaxEntries int
	ZSetMaxValue   int
}

// DefaultLimits mirrors the teacher's and upstream's conservative defaults.
func DefaultLimits() Limits {
	return Limits{
		ListMaxEntries: 128,
		ListMaxValue:   64,
		HashMaxEntries: 128,
		HashMaxValue:   64,
		SetMaxIntset:   512,
		ZSetMaxEntries: 128,
		ZSetMaxValue:   64,
	}
}

// Value is the tagged-variant value object (C5). Payload holds, depending
// on Kind and Encoding: []byte or int64 (string), *Ziplist or *List (list),
// *IntSet or *Dict[struct{}] (set), *Ziplist or *Dict[[]byte] (hash), and
// *Ziplist or *ZSet (sorted set).
type Value struct {
	Kind     Kind
	Encoding Encoding
	Payload  interface{}

	// refcount is 1 for a private object, >1 for an object shared out of
	// the C10 pool. A value with refcount > 1 must never be mutated in
	// place — callers clone first (EnsurePrivate).
	refcount int32

	// LRUTick is a coarse ~10s-resolution clock tick stamped on access,
	// used by the approximate-LRU eviction sampler. It wraps modularly;
	// comparisons must stay wrap-aware (see DESIGN.md Open Questions).
	LRUTick uint32

	ExpiresAt *time.Time
}

// NewStringValue wraps a raw byte string, auto-detecting the int encoding.
// Small non-negative integers are handed out of the C10 shared pool
// instead of allocating a private object, mirroring Redis's own
// shared-integer cache.
func NewStringValue(b []byte) *Value {
	if shared, ok := sharedIntFromBytes(b); ok {
		return shared
	}
	v := &Value{Kind: KindString, refcount: 1}
	if iv, ok := tryEncodeInt(b); ok {
		v.Encoding = EncInt
		v.Payload = iv
	} else {
		v.Encoding = EncRaw
		v.Payload = append([]byte{}, b...)
	}
	return v
}

// NewEmptyList creates a list value starting in the compact encoding.
func NewEmptyList() *Value {
	return &Value{Kind: KindList, Encoding: EncZiplist, Payload: NewZiplist(), refcount: 1}
}

// NewEmptySet creates a set value starting in the intset encoding.
func NewEmptySet() *Value {
	return &Value{Kind: KindSet, Encoding: EncIntset, Payload: NewIntSet(), refcount: 1}
}

// NewEmptyHash creates a hash value starting in the compact encoding.
func NewEmptyHash() *Value {
	return &Value{Kind: KindHash, Encoding: EncZiplist, Payload: NewZiplist(), refcount: 1}
}

// NewEmptyZSet creates a sorted-set value starting in the compact encoding.
func NewEmptyZSet() *Value {
	return &Value{Kind: KindZSet, Encoding: EncZiplist, Payload: NewZiplist(), refcount: 1}
}

// Retain/Release implement the shared-object reference count (C10): the
// shared integer pool hands out the same *Value to many keys. Release only
// decrements the count (never below zero); nothing is freed explicitly.
func (v *Value) Retain() *Value {
	v.refcount++
	return v
}

func (v *Value) Release() {
	if v.refcount > 0 {
		v.refcount--
	}
}

func (v *Value) Shared() bool { return v.refcount > 1 }

// Clone deep-copies a value so a mutation can proceed without disturbing a
// shared reference (§3.1 invariant: "a mutation clones first").
func (v *Value) Clone() *Value {
	clone := &Value{Kind: v.Kind, Encoding: v.Encoding, refcount: 1, LRUTick: v.LRUTick}
	if v.ExpiresAt != nil {
		t := *v.ExpiresAt
		clone.ExpiresAt = &t
	}
	switch p := v.Payload.(type) {
	case []byte:
		clone.Payload = append([]byte{}, p...)
	case int64:
		clone.Payload = p
	case *Ziplist:
		clone.Payload = p.Clone()
	case *List:
		clone.Payload = p.Clone()
	case *IntSet:
		clone.Payload = p.Clone()
	case *Dict[[]byte]:
		nd := NewDict[[]byte]()
		p.Each(func(k string, val []byte) { nd.Set(k, append([]byte{}, val...)) })
		clone.Payload = nd
	case *Dict[struct{}]:
		nd := NewDict[struct{}]()
		p.Each(func(k string, _ struct{}) { nd.Set(k, struct{}{}) })
		clone.Payload = nd
	case *zsetExpanded:
		clone.Payload = p.clone()
	default:
		clone.Payload = v.Payload
	}
	return clone
}

// Bytes returns the string value's byte representation regardless of
// whether it is currently int- or raw-encoded. Only valid for KindString.
func (v *Value) Bytes() []byte {
	switch p := v.Payload.(type) {
	case []byte:
		return p
	case int64:
		return []byte(strconv.FormatInt(p, 10))
	default:
		return nil
	}
}

// SetBytes replaces the string value's content in place, re-detecting the
// int encoding. Only valid for KindString.
func (v *Value) SetBytes(b []byte) {
	if iv, ok := tryEncodeInt(b); ok {
		v.Encoding = EncInt
		v.Payload = iv
		return
	}
	v.Encoding = EncRaw
	v.Payload = append([]byte{}, b...)
}

// Int64 returns the string value's integer interpretation, if it has one.
func (v *Value) Int64() (int64, bool) {
	switch p := v.Payload.(type) {
	case int64:
		return p, true
	case []byte:
		return tryEncodeInt(p)
	default:
		return 0, false
	}
}

// CurrentLRUTick returns the coarse ~10s-resolution clock tick stamped on
// Value.LRUTick at access time. The tick wraps modularly; comparisons must
// use wrap-aware circular distance rather than linear order.
func CurrentLRUTick() uint32 {
	return uint32(time.Now().Unix() / 10)
}

// StampAccess updates the value's LRU tick to now. Called on every read or
// write path that resolves a key, feeding the approximate-LRU sampler. A
// shared C10 pool object is referenced by many keys at once, so its tick
// is left alone — the same reason real Redis's shared integers are never
// themselves candidates for LRU eviction.
func (v *Value) StampAccess() {
	if v.Shared() {
		return
	}
	v.LRUTick = CurrentLRUTick()
}

// EnsurePrivate returns a value safe to mutate in place: v itself if it is
// already privately owned, or a fresh clone if it is shared.
func EnsurePrivate(v *Value) *Value {
	if v.Shared() {
		return v.Clone()
	}
	return v
}

// ApproxBytes estimates the value's memory footprint for the used-memory
// figure summed over the keyspace (§4.10). It need not be exact — only
// monotonic with payload size, since it only ever feeds a comparison against a cap.
func (v *Value) ApproxBytes() int {
	const overhead = 48
	switch p := v.Payload.(type) {
	case []byte:
		return overhead + len(p)
	case int64:
		return overhead + 8
	case *Ziplist:
		return overhead + p.ByteSize()
	case *List:
		return overhead + p.Length*32
	case *IntSet:
		return overhead + p.ByteSize()
	case *Dict[[]byte]:
		n := p.Len()
		return overhead + n*64
	case *Dict[struct{}]:
		return overhead + p.Len()*32
	case *zsetExpanded:
		return overhead + p.dict.Len()*64
	default:
		return overhead
	}
}
