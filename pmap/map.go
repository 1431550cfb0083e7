// Package pmap implements a hash map keyed by values that carry
// their own precomputed hash, such as hash-consed expressions.
// Keys are compared with ==, so for hash-consed keys a lookup
// hashes into a bucket and then compares pointers.
package pmap

import (
	"iter"
)

// Key is the constraint satisfied by map keys. Hash must be
// consistent with ==.
type Key interface {
	comparable
	Hash() uint64
}

// Map is a hash-table-based mapping from keys K to values V.
// Entries are never removed.
//
// Just as with map[K]V, a nil *Map is a valid empty map.
// The zero Map is ready to use.
//
// Read-only operations (Get, Len, All) may be called
// concurrently with each other, but this type does not provide
// synchronization for concurrent mutation.
type Map[K Key, V any] struct {
	table  map[uint64][]entry[K, V]
	length int
}

// entry is an association in a hash bucket.
type entry[K, V any] struct {
	key K
	val V
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return m.length
}

// find locates the bucket and index for key k, if present.
func (m *Map[K, V]) find(k K) ([]entry[K, V], int, bool) {
	if m == nil || m.table == nil {
		return nil, -1, false
	}
	b := m.table[k.Hash()]
	for i := range b {
		if b[i].key == k {
			return b, i, true
		}
	}
	return b, -1, false
}

// Get returns the value for key k and reports whether it was found.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if b, i, ok := m.find(k); ok {
		return b[i].val, true
	}
	return *new(V), false
}

// Set sets the value for k to v, returning the previous value (or zero if none).
func (m *Map[K, V]) Set(k K, v V) (prev V) {
	if m == nil {
		panic("(*Map).Set called on nil *Map")
	}
	if m.table == nil {
		m.table = make(map[uint64][]entry[K, V])
	}
	b, i, ok := m.find(k)
	if ok {
		prev = b[i].val
		b[i].val = v
		return prev
	}
	m.table[k.Hash()] = append(b, entry[K, V]{key: k, val: v})
	m.length++
	return prev
}

// All returns an iterator over (key, value) pairs in unspecified order.
//
// If the caller sets entries while iterating, a new entry
// may or may not be seen by the iterator.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil || m.table == nil {
			return
		}
		for _, bucket := range m.table {
			for i := range bucket {
				if !yield(bucket[i].key, bucket[i].val) {
					return
				}
			}
		}
	}
}
