package hcons

import (
	"math/bits"
	"sync"
)

// shard is one independently locked partition of a Table.
type shard struct {
	mu sync.Mutex // protects all of the following

	buckets []link // length is a power of two
	count   int

	// Bounded free-lists of chain records.
	pairs   []*pair
	quads   []*quad
	freeMax int

	// Statistics.
	grows     int
	shrinks   int
	evictions int
	retries   int
}

func newShard(capacity, freeMax int) *shard {
	return &shard{
		buckets: make([]link, capacity),
		freeMax: freeMax,
	}
}

func (s *shard) mask() uint64 {
	return uint64(len(s.buckets) - 1)
}

func (s *shard) find(hash uint64, meta Meta, key []Word) *Object {
	return chainFind(s.buckets[hash&s.mask()], hash, meta, key)
}

// insert adds o, which must not already be present, to the shard.
// The caller is responsible for growing the shard first.
func (s *shard) insert(o *Object) {
	i := o.hash & s.mask()
	s.buckets[i] = s.chainInsert(s.buckets[i], o)
	s.count++
}

// erase removes o from the shard.
func (s *shard) erase(o *Object) {
	i := o.hash & s.mask()
	s.buckets[i] = s.chainRemove(s.buckets[i], o)
	s.count--
}

// resize rehashes every object into a new bucket array of the given
// capacity, which must be a power of two.
func (s *shard) resize(capacity int) {
	old := s.buckets
	s.buckets = make([]link, capacity)
	mask := s.mask()
	for _, l := range old {
		for l != nil {
			var o *Object
			o, l = s.chainPop(l)
			i := o.hash & mask
			s.buckets[i] = s.chainInsert(s.buckets[i], o)
		}
	}
}

// shrinkCapacity returns the smallest power of two that holds n
// entries at a load factor of 1/2, and is no smaller than min.
func shrinkCapacity(n, min int) int {
	c := 1
	if n > 0 {
		c = 1 << bits.Len(uint(2*n-1))
	}
	return max(c, min)
}
