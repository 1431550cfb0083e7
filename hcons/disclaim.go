package hcons

// Disposition is the outcome of [Table.Disclaim].
type Disposition int

const (
	// Evicted means the table holds no entry for the object any
	// more, and the collector may reclaim it.
	Evicted Disposition = iota

	// Retry means the object must survive this cycle. Either its
	// shard was busy or the object was marked since the trace.
	Retry
)

func (d Disposition) String() string {
	switch d {
	case Evicted:
		return "evicted"
	case Retry:
		return "retry"
	}
	return "Disposition(?)"
}

// Disclaim is called by the collector at sweep time for an object it
// found unreachable. It never blocks: if the object's shard is locked
// it returns [Retry] at once.
//
// If the object has been marked since the trace, typically because a
// concurrent Intern found it again, its mark is cleared and Disclaim
// returns Retry; the object then needs a fresh mark to survive the
// next cycle. Otherwise the object is removed from the table, its
// finalizer, if any, is run and Disclaim returns [Evicted].
func (t *Table) Disclaim(o *Object) Disposition {
	s := t.shardFor(o.hash)
	if !s.mu.TryLock() {
		return Retry
	}
	meta := o.meta
	if meta == MetaFree {
		s.mu.Unlock()
		return Evicted
	}
	if t.c.IsMarked(o) {
		t.c.ClearMarkBit(o)
		s.retries++
		s.mu.Unlock()
		return Retry
	}
	t.erase(s, o)
	s.evictions++
	s.mu.Unlock()

	if fn, ok := t.finalizers.Load(meta); ok {
		fn.(func(*Object))(o)
	}
	return Evicted
}
