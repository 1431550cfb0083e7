package hcons

// ShardStats holds a snapshot of the state of one shard.
type ShardStats struct {
	Count     int `json:"count"`
	Capacity  int `json:"capacity"`
	Grows     int `json:"grows"`
	Shrinks   int `json:"shrinks"`
	Evictions int `json:"evictions"`
	Retries   int `json:"retries"`
	FreePairs int `json:"freePairs"`
	FreeQuads int `json:"freeQuads"`
}

// Stats holds a snapshot of the state of a [Table].
type Stats struct {
	Count     int          `json:"count"`
	Evictions int          `json:"evictions"`
	Retries   int          `json:"retries"`
	Shards    []ShardStats `json:"shards"`
}

// Stats returns statistics about t. Each shard is read under its lock,
// but the shards are not read atomically with respect to each other.
func (t *Table) Stats() Stats {
	st := Stats{
		Shards: make([]ShardStats, len(t.shards)),
	}
	for i, s := range t.shards {
		s.mu.Lock()
		st.Shards[i] = ShardStats{
			Count:     s.count,
			Capacity:  len(s.buckets),
			Grows:     s.grows,
			Shrinks:   s.shrinks,
			Evictions: s.evictions,
			Retries:   s.retries,
			FreePairs: len(s.pairs),
			FreeQuads: len(s.quads),
		}
		s.mu.Unlock()
		st.Count += st.Shards[i].Count
		st.Evictions += st.Shards[i].Evictions
		st.Retries += st.Shards[i].Retries
	}
	return st
}
