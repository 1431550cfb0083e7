package hcons

import (
	"sync"
	"testing"

	"github.com/go-quicktest/qt"
)

// fakeCollector allocates objects but never collects them;
// tests drive Disclaim by hand.
type fakeCollector struct {
	mu       sync.Mutex
	nextID   uint64
	disclaim func(*Object) Disposition

	// onAlloc, if set, is called with each new object before the
	// table has finished with it.
	onAlloc func(*Object)
}

func (c *fakeCollector) Alloc(meta Meta, hash uint64, refs []*Object, keyWords, extraWords int) *Object {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	o := NewObject(id, meta, hash, refs, keyWords, extraWords)
	if c.onAlloc != nil {
		c.onAlloc(o)
	}
	return o
}

func (c *fakeCollector) RegisterDisclaim(f func(*Object) Disposition) {
	c.disclaim = f
}

func (c *fakeCollector) SetMarkBit(o *Object) { o.SetMark() }
func (c *fakeCollector) IsMarked(o *Object) bool { return o.Marked() }
func (c *fakeCollector) ClearMarkBit(o *Object) { o.ClearMark() }

func newTestTable(t *testing.T, cfg *Config) (*Table, *fakeCollector) {
	c := &fakeCollector{}
	tab, err := NewTable(c, cfg)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.IsNil(c.disclaim)))
	return tab, c
}

func TestDisclaimBusyShard(t *testing.T) {
	tab, _ := newTestTable(t, &Config{Shards: 1})
	o := tab.Intern(3, []Word{1})

	s := tab.shards[0]
	s.mu.Lock()
	qt.Assert(t, qt.Equals(tab.Disclaim(o), Retry))
	s.mu.Unlock()

	// Contention does not count as a retry of a touched object.
	qt.Assert(t, qt.Equals(tab.Stats().Retries, 0))
	qt.Assert(t, qt.Equals(tab.Disclaim(o), Evicted))
	qt.Assert(t, qt.Equals(tab.Len(), 0))
}

func TestDisclaimMarkedObject(t *testing.T) {
	tab, _ := newTestTable(t, nil)
	o := tab.Intern(3, []Word{1})
	o.SetMark()
	qt.Assert(t, qt.Equals(tab.Disclaim(o), Retry))
	qt.Assert(t, qt.IsFalse(o.Marked()))
	qt.Assert(t, qt.Equals(tab.Stats().Retries, 1))

	// Without a fresh mark the next attempt evicts.
	qt.Assert(t, qt.Equals(tab.Disclaim(o), Evicted))
	_, ok := tab.Lookup(3, []Word{1})
	qt.Assert(t, qt.IsFalse(ok))
	qt.Assert(t, qt.Equals(tab.Stats().Evictions, 1))
}

func TestDisclaimObjectUnderConstruction(t *testing.T) {
	tab, c := newTestTable(t, &Config{Shards: 4})
	// Pick a key that does not live in shard 0.
	var key []Word
	for i := Word(1); ; i++ {
		key = []Word{i}
		if tab.shardIndex(Hash(3, key)) != 0 {
			break
		}
	}
	var got []Disposition
	c.onAlloc = func(o *Object) {
		qt.Check(t, qt.Equals(o.Meta(), Meta(3)))
		qt.Check(t, qt.Equals(o.Hash(), Hash(3, key)))
		got = append(got, tab.Disclaim(o))
	}
	o := tab.Intern(3, key)
	qt.Assert(t, qt.DeepEquals(got, []Disposition{Retry}))
	qt.Assert(t, qt.Equals(o.Meta(), Meta(3)))
	found, ok := tab.Lookup(3, key)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(found, o))
	qt.Assert(t, qt.Equals(tab.Stats().Evictions, 0))
}

func TestDisclaimFreeObject(t *testing.T) {
	tab, _ := newTestTable(t, nil)
	o := NewObject(99, MetaFree, 0, nil, 1, 0)
	qt.Assert(t, qt.Equals(tab.Disclaim(o), Evicted))
	qt.Assert(t, qt.Equals(tab.Len(), 0))
}

func TestDisclaimShrinks(t *testing.T) {
	tab, _ := newTestTable(t, &Config{Shards: 1})
	var objs []*Object
	for i := range 100 {
		objs = append(objs, tab.Intern(1, []Word{Word(i)}))
	}
	s := tab.shards[0]
	qt.Assert(t, qt.Equals(len(s.buckets), 256))
	for _, o := range objs[:90] {
		o.ClearMark()
		qt.Assert(t, qt.Equals(tab.Disclaim(o), Evicted))
	}
	qt.Assert(t, qt.Equals(s.count, 10))
	qt.Assert(t, qt.IsTrue(s.shrinks > 0))
	qt.Assert(t, qt.IsTrue(len(s.buckets) <= 32))
	for _, o := range objs[90:] {
		got, ok := tab.Lookup(1, o.Key())
		qt.Assert(t, qt.IsTrue(ok))
		qt.Assert(t, qt.Equals(got, o))
	}
	for _, o := range objs[90:] {
		qt.Assert(t, qt.Equals(tab.Disclaim(o), Evicted))
	}
	qt.Assert(t, qt.Equals(len(s.buckets), 8))
}

func TestDisclaimRunsFinalizer(t *testing.T) {
	tab, _ := newTestTable(t, nil)
	var finalized []Word
	tab.SetFinalizer(5, func(o *Object) {
		finalized = append(finalized, o.Key()[0])
	})
	a := tab.Intern(5, []Word{10})
	b := tab.Intern(6, []Word{11})
	qt.Assert(t, qt.Equals(tab.Disclaim(a), Evicted))
	qt.Assert(t, qt.Equals(tab.Disclaim(b), Evicted))
	qt.Assert(t, qt.DeepEquals(finalized, []Word{10}))

	tab.SetFinalizer(5, nil)
	c := tab.Intern(5, []Word{12})
	qt.Assert(t, qt.Equals(tab.Disclaim(c), Evicted))
	qt.Assert(t, qt.DeepEquals(finalized, []Word{10}))
}

func TestConfigValidation(t *testing.T) {
	_, err := NewTable(&fakeCollector{}, &Config{Shards: 3})
	qt.Assert(t, qt.ErrorMatches(err, `hcons: shard count 3 is not a power of two`))

	_, err = NewTable(&fakeCollector{}, &Config{GrowNum: 1, GrowDen: 4})
	qt.Assert(t, qt.ErrorMatches(err, `hcons: load factor band .* does not contain 1/2`))

	tab, err := NewTable(&fakeCollector{}, &Config{Shards: 1, MinCapacity: 5})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(tab.cfg.MinCapacity, 8))
	qt.Assert(t, qt.Equals(tab.shardIndex(^uint64(0)), 0))
}
