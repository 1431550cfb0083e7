// Package gc implements a small precise mark/sweep collector for
// hash-consed objects. It provides the allocation, mark-bit and
// disclaim services that an [hcons.Table] needs from a collector.
//
// Roots are explicit: an object stays reachable while it is pinned
// (see [Heap.Pin]) or referenced from a reachable object. Objects are
// allocated marked, so an object survives at least the first cycle
// that starts after its allocation.
//
// As with a disclaim-aware conservative collector, the references of
// an unreachable object are traced too: an object that is about to
// be disclaimed keeps its referents alive for one more cycle, so that
// an object spared by its disclaim function never refers to one that
// has been freed.
package gc

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rogpeppe/hashcons/hcons"
)

// Config holds configuration for a [Heap].
type Config struct {
	// Logger receives a debug record for each collection cycle.
	// If it is nil, nothing is logged.
	Logger *slog.Logger
}

// Heap is a garbage-collected heap of hash-consed objects.
// It is safe for concurrent use.
type Heap struct {
	logger *slog.Logger
	nextID atomic.Uint64
	gen    atomic.Uint64

	// mu is held for the whole of a collection cycle.
	mu       sync.Mutex
	objs     []*hcons.Object
	roots    map[*hcons.Object]int
	disclaim func(*hcons.Object) hcons.Disposition
	work     queue
}

var _ hcons.Collector = (*Heap)(nil)

// New returns a new empty heap.
// If cfg is nil, default settings are used.
func New(cfg *Config) *Heap {
	h := &Heap{
		roots: make(map[*hcons.Object]int),
	}
	if cfg != nil {
		h.logger = cfg.Logger
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

// Alloc implements [hcons.Collector.Alloc].
func (h *Heap) Alloc(meta hcons.Meta, hash uint64, refs []*hcons.Object, keyWords, extraWords int) *hcons.Object {
	o := hcons.NewObject(h.nextID.Add(1), meta, hash, refs, keyWords, extraWords)
	o.SetMark()
	h.mu.Lock()
	h.objs = append(h.objs, o)
	h.mu.Unlock()
	return o
}

// RegisterDisclaim implements [hcons.Collector.RegisterDisclaim].
func (h *Heap) RegisterDisclaim(fn func(*hcons.Object) hcons.Disposition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disclaim = fn
}

// SetMarkBit implements [hcons.Collector.SetMarkBit].
func (h *Heap) SetMarkBit(o *hcons.Object) {
	o.SetMark()
}

// IsMarked implements [hcons.Collector.IsMarked].
func (h *Heap) IsMarked(o *hcons.Object) bool {
	return o.Marked()
}

// ClearMarkBit implements [hcons.Collector.ClearMarkBit].
func (h *Heap) ClearMarkBit(o *hcons.Object) {
	o.ClearMark()
}

// Pin adds o to the root set. Pins are counted: o stays a root
// until Unpin has been called as many times as Pin.
func (h *Heap) Pin(o *hcons.Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roots[o]++
}

// Unpin reverses the effect of one call to Pin.
func (h *Heap) Unpin(o *hcons.Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch n := h.roots[o]; n {
	case 0:
		panic("gc: Unpin of object that is not pinned")
	case 1:
		delete(h.roots, o)
	default:
		h.roots[o] = n - 1
	}
}

// Len returns the number of objects that have been allocated and
// not yet freed.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objs)
}

// Generation returns the number of collection cycles started so far.
func (h *Heap) Generation() uint64 {
	return h.gen.Load()
}

// CycleStats describes one collection cycle.
type CycleStats struct {
	Gen       uint64        `json:"gen"`
	Objects   int           `json:"objects"`
	Reachable int           `json:"reachable"`
	Marked    int           `json:"marked"`
	Evicted   int           `json:"evicted"`
	Retried   int           `json:"retried"`
	Duration  time.Duration `json:"duration"`
}

// Collect runs a full collection cycle and returns statistics about it.
//
// The disclaim function is called with the heap locked, so it must
// not allocate from the heap and must not block.
func (h *Heap) Collect() CycleStats {
	start := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	st := CycleStats{
		Gen:     h.gen.Add(1),
		Objects: len(h.objs),
	}

	// Trace from the roots. Objects allocated since the last cycle are
	// already marked, so reachability is tracked separately from the
	// mark bits.
	reached := make(map[*hcons.Object]bool)
	for o := range h.roots {
		h.visit(reached, o)
	}
	for h.work.Len() > 0 {
		for _, r := range h.work.Pop().Refs() {
			h.visit(reached, r)
		}
	}
	st.Reachable = len(reached)

	// Keep the referents of unreachable objects alive for this cycle.
	for _, o := range h.objs {
		if reached[o] {
			continue
		}
		for _, r := range o.Refs() {
			r.SetMark()
		}
	}

	// Sweep.
	live := h.objs[:0]
	for _, o := range h.objs {
		if o.ClearMark() {
			st.Marked++
			live = append(live, o)
			continue
		}
		if h.disclaim != nil && h.disclaim(o) == hcons.Retry {
			st.Retried++
			live = append(live, o)
			continue
		}
		o.Free()
		st.Evicted++
	}
	clear(h.objs[len(live):])
	h.objs = live

	st.Duration = time.Since(start)
	h.logger.Debug("gc cycle",
		"gen", st.Gen,
		"live", len(live),
		"marked", st.Marked,
		"evicted", st.Evicted,
		"retried", st.Retried,
		"duration", st.Duration,
	)
	return st
}

// visit marks o and queues it for scanning if it has not been
// reached before in this cycle.
func (h *Heap) visit(reached map[*hcons.Object]bool, o *hcons.Object) {
	if reached[o] {
		return
	}
	reached[o] = true
	o.SetMark()
	h.work.Push(o)
}
