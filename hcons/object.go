// Package hcons implements a hash-consing table: every structurally
// equal (meta, key) pair maps to exactly one canonical [Object].
//
// The table does not keep its objects alive. Liveness is the business
// of a [Collector], which allocates objects, traces them, and calls
// [Table.Disclaim] at sweep time for each object it found unreachable.
// The table then either evicts its entry or asks to be retried on the
// next cycle, using a mark bit owned by the collector to spot objects
// that were looked up again since the trace.
//
// The table is split into independently locked shards, selected by
// the high bits of an object's hash. Interning blocks on the shard
// lock; disclaiming never blocks.
package hcons

import (
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// Word is the unit of an object's key.
type Word = uint64

// Meta identifies the dynamic kind of an object. Two objects can
// only be equal if their metas are equal.
type Meta uint64

// MetaFree marks storage that does not hold a live hash-consed
// object: either zeroed memory not yet initialized by the table, or an
// object the collector has already freed.
const MetaFree Meta = 0

// Object is the header and payload of a hash-consed object.
//
// The meta, hash and refs of an object are fixed when it is allocated;
// its key never changes once it has been published by a [Table]. The
// extra words are written once, by the
// init function passed to [Table.InternWithExtra], before any other
// goroutine can observe the object.
type Object struct {
	meta Meta
	hash uint64

	// id is assigned by the collector and is never reused.
	// Other objects refer to this one in their keys by id.
	id uint64

	// mark is owned by the collector. The table only touches
	// it through the Collector interface.
	mark atomic.Bool

	key   []Word
	extra []Word
	refs  []*Object
}

// NewObject returns storage for an object that refers to refs, with
// room for the given number of key and extra words. It is intended for
// use by [Collector] implementations. The meta and hash are fixed
// before the collector can observe the object; the key words are
// filled in by the [Table] under the lock of the object's shard.
func NewObject(id uint64, meta Meta, hash uint64, refs []*Object, keyWords, extraWords int) *Object {
	words := make([]Word, keyWords+extraWords)
	o := &Object{
		meta:  meta,
		hash:  hash,
		id:    id,
		key:   words[:keyWords:keyWords],
		extra: words[keyWords:],
	}
	if len(refs) > 0 {
		o.refs = slices.Clone(refs)
	}
	return o
}

// Meta returns the meta tag of o.
func (o *Object) Meta() Meta {
	return o.meta
}

// Key returns the key words of o. The caller must not modify them.
func (o *Object) Key() []Word {
	return o.key
}

// Extra returns the non-key words of o.
func (o *Object) Extra() []Word {
	return o.extra
}

// Refs returns the objects that o refers to. A collector must treat
// them as reachable whenever o is.
func (o *Object) Refs() []*Object {
	return o.refs
}

// ID returns the collector-assigned identity of o.
func (o *Object) ID() uint64 {
	return o.id
}

// Hash returns the hash of o's meta and key, as computed by [Hash].
func (o *Object) Hash() uint64 {
	return o.hash
}

// Marked reports whether o's mark bit is set.
// It is intended for use by [Collector] implementations.
func (o *Object) Marked() bool {
	return o.mark.Load()
}

// SetMark sets o's mark bit and reports whether it was already set.
// It is intended for use by [Collector] implementations.
func (o *Object) SetMark() (was bool) {
	return o.mark.Swap(true)
}

// ClearMark clears o's mark bit and reports whether it was set.
// It is intended for use by [Collector] implementations.
func (o *Object) ClearMark() (was bool) {
	return o.mark.Swap(false)
}

// Free overwrites o's meta with [MetaFree] and drops its references.
// Collectors call it once the table has evicted o.
func (o *Object) Free() {
	o.meta = MetaFree
	o.refs = nil
}

// Hash returns the hash of an object with the given meta and key.
// The meta is mixed in as the seed, so equal keys under different
// metas hash differently; an empty key hashes on the meta alone.
func Hash(meta Meta, key []Word) uint64 {
	if len(key) == 0 {
		return xxh3.HashSeed(nil, uint64(meta))
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&key[0])), len(key)*8)
	return xxh3.HashSeed(b, uint64(meta))
}

// KeysEqual reports whether (ma, ka) and (mb, kb) identify the same
// object.
func KeysEqual(ma, mb Meta, ka, kb []Word) bool {
	if ma != mb || len(ka) != len(kb) {
		return false
	}
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func (o *Object) matches(hash uint64, meta Meta, key []Word) bool {
	return o.hash == hash && KeysEqual(o.meta, meta, o.key, key)
}
