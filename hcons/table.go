package hcons

import (
	"fmt"
	"iter"
	"log/slog"
	"math/bits"
	"sync"
)

// Collector is the part of a garbage collector that a [Table] relies
// on. See the gc package for an implementation.
type Collector interface {
	// Alloc returns collector-managed storage for an object with
	// the given meta and hash that refers to refs and has the given
	// number of key and extra words, as returned by NewObject.
	// Allocation failure is fatal.
	Alloc(meta Meta, hash uint64, refs []*Object, keyWords, extraWords int) *Object

	// RegisterDisclaim installs the function the collector calls at
	// sweep time for each allocated object it found unreachable.
	// If the function returns Retry the object must be kept until
	// the next cycle.
	RegisterDisclaim(func(*Object) Disposition)

	// SetMarkBit marks o as live for the current cycle.
	SetMarkBit(o *Object)

	// IsMarked reports whether o's mark bit is set.
	IsMarked(o *Object) bool

	// ClearMarkBit clears o's mark bit.
	ClearMarkBit(o *Object)
}

// Config holds the tuning parameters of a [Table].
// The zero value of each field selects its default.
type Config struct {
	// Shards is the number of shards. It must be a power of two.
	// The default is 64.
	Shards int

	// MinCapacity is the smallest number of buckets a shard will
	// ever have. It is rounded up to a power of two. The default is 8.
	MinCapacity int

	// FreeListSize bounds the number of recycled pair and quad
	// records kept by each shard. The default is 16.
	FreeListSize int

	// A shard grows when count > capacity*GrowNum/GrowDen.
	// The default is 3/4.
	GrowNum, GrowDen int

	// A shard shrinks when count < capacity*ShrinkNum/ShrinkDen.
	// The default is 1/4.
	ShrinkNum, ShrinkDen int

	// Logger receives debug output about resizes.
	// If it is nil, nothing is logged.
	Logger *slog.Logger
}

func (cfg *Config) withDefaults() (Config, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Shards == 0 {
		c.Shards = 64
	}
	if c.Shards < 0 || c.Shards&(c.Shards-1) != 0 {
		return Config{}, fmt.Errorf("hcons: shard count %d is not a power of two", c.Shards)
	}
	if c.MinCapacity <= 0 {
		c.MinCapacity = 8
	}
	c.MinCapacity = 1 << bits.Len(uint(c.MinCapacity-1))
	if c.FreeListSize == 0 {
		c.FreeListSize = 16
	}
	if c.GrowNum == 0 || c.GrowDen == 0 {
		c.GrowNum, c.GrowDen = 3, 4
	}
	if c.ShrinkNum == 0 || c.ShrinkDen == 0 {
		c.ShrinkNum, c.ShrinkDen = 1, 4
	}
	// Shrinking targets a load of 1/2; the band must contain it.
	if 2*c.GrowNum <= c.GrowDen || 2*c.ShrinkNum >= c.ShrinkDen {
		return Config{}, fmt.Errorf("hcons: load factor band [%d/%d, %d/%d] does not contain 1/2", c.ShrinkNum, c.ShrinkDen, c.GrowNum, c.GrowDen)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Table is a hash-consing table. It is safe for concurrent use.
type Table struct {
	cfg        Config
	c          Collector
	shards     []*shard
	shardShift uint

	// Meta -> func(*Object).
	finalizers sync.Map
}

// NewTable returns a new table that allocates its objects from c,
// and registers its Disclaim method with c.
// If cfg is nil, default settings are used.
func NewTable(c Collector, cfg *Config) (*Table, error) {
	conf, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	t := &Table{
		cfg:        conf,
		c:          c,
		shards:     make([]*shard, conf.Shards),
		shardShift: uint(64 - bits.TrailingZeros(uint(conf.Shards))),
	}
	for i := range t.shards {
		t.shards[i] = newShard(conf.MinCapacity, conf.FreeListSize)
	}
	c.RegisterDisclaim(t.Disclaim)
	return t, nil
}

func (t *Table) shardIndex(hash uint64) int {
	if t.shardShift == 64 {
		return 0
	}
	return int(hash >> t.shardShift)
}

func (t *Table) shardFor(hash uint64) *shard {
	return t.shards[t.shardIndex(hash)]
}

// Intern returns the canonical object with the given meta and key,
// creating it if needed. The meta must not be [MetaFree].
func (t *Table) Intern(meta Meta, key []Word) *Object {
	return t.intern(meta, key, nil, 0, nil)
}

// InternWithExtra is like [Table.Intern] except that a newly created
// object gets extraWords words of non-key storage which are
// initialized by calling init before any other goroutine can observe
// the object. The extra words of an existing object are left
// untouched and init is not called.
func (t *Table) InternWithExtra(meta Meta, key []Word, extraWords int, init func(*Object)) *Object {
	return t.intern(meta, key, nil, extraWords, init)
}

// InternRefs interns an object whose key is lit followed by the IDs
// of refs. The refs are recorded in the new object so that the
// collector keeps them alive for as long as the object is. If
// extraWords is non-zero, the extra storage is handled as for
// [Table.InternWithExtra].
func (t *Table) InternRefs(meta Meta, lit []Word, refs []*Object, extraWords int, init func(*Object)) *Object {
	var buf [8]Word
	key := append(buf[:0], lit...)
	for _, r := range refs {
		key = append(key, r.id)
	}
	return t.intern(meta, key, refs, extraWords, init)
}

func (t *Table) intern(meta Meta, key []Word, refs []*Object, extraWords int, init func(*Object)) *Object {
	if meta == MetaFree {
		panic("hcons: intern with free meta")
	}
	hash := Hash(meta, key)
	s := t.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()

	if o := s.find(hash, meta, key); o != nil {
		t.c.SetMarkBit(o)
		return o
	}
	if capacity := len(s.buckets); (s.count+1)*t.cfg.GrowDen > capacity*t.cfg.GrowNum {
		s.resize(2 * capacity)
		s.grows++
		t.cfg.Logger.Debug("shard resized", "shard", t.shardIndex(hash), "from", capacity, "to", 2*capacity, "count", s.count)
	}
	// The shard stays locked until o is complete, so a concurrent
	// Disclaim of o finds its shard busy.
	o := t.c.Alloc(meta, hash, refs, len(key), extraWords)
	copy(o.key, key)
	s.insert(o)
	if init != nil {
		init(o)
	}
	return o
}

// Lookup returns the canonical object with the given meta and key,
// if there is one. Unlike Intern, it does not mark the object live.
func (t *Table) Lookup(meta Meta, key []Word) (*Object, bool) {
	hash := Hash(meta, key)
	s := t.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.find(hash, meta, key)
	return o, o != nil
}

// erase removes o from s, which must be locked, shrinking s if its
// load has dropped below the low-water mark.
func (t *Table) erase(s *shard, o *Object) {
	s.erase(o)
	capacity := len(s.buckets)
	if capacity > t.cfg.MinCapacity && s.count*t.cfg.ShrinkDen < capacity*t.cfg.ShrinkNum {
		to := shrinkCapacity(s.count, t.cfg.MinCapacity)
		s.resize(to)
		s.shrinks++
		t.cfg.Logger.Debug("shard resized", "shard", t.shardIndex(o.hash), "from", capacity, "to", to, "count", s.count)
	}
}

// SetFinalizer arranges for fn to be called with every object of the
// given meta after the table has evicted it.
func (t *Table) SetFinalizer(meta Meta, fn func(*Object)) {
	if fn == nil {
		t.finalizers.Delete(meta)
		return
	}
	t.finalizers.Store(meta, fn)
}

// Len returns the number of objects in the table.
func (t *Table) Len() int {
	n := 0
	for _, s := range t.shards {
		s.mu.Lock()
		n += s.count
		s.mu.Unlock()
	}
	return n
}

// All returns an iterator over all the objects in the table.
// Each shard is copied under its lock and yielded after the lock is
// released, so the iteration sees a consistent view of each shard but
// not of the table as a whole.
func (t *Table) All() iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		var objs []*Object
		for _, s := range t.shards {
			objs = objs[:0]
			s.mu.Lock()
			for _, l := range s.buckets {
				chainEach(l, func(o *Object) bool {
					objs = append(objs, o)
					return true
				})
			}
			s.mu.Unlock()
			for _, o := range objs {
				if !yield(o) {
					return
				}
			}
		}
	}
}
