package hcons

// link is the content of a bucket: one of
//
//	nil      empty
//	*Object  a single object
//	*pair    two objects
//	*quad    three objects followed by an overflow link
//
// Insertion densifies a bucket from nil through *Object and *pair to
// *quad; once a bucket holds a quad, further objects go into its
// overflow, so a long chain is a run of full quads ending in a smaller
// shape.
type link interface{}

type pair struct {
	a, b *Object
}

type quad struct {
	a, b, c *Object
	over    link
}

// chainInsert returns l with o added.
func (s *shard) chainInsert(l link, o *Object) link {
	switch l := l.(type) {
	case nil:
		return o
	case *Object:
		p := s.newPair()
		p.a, p.b = l, o
		return p
	case *pair:
		q := s.newQuad()
		q.a, q.b, q.c = l.a, l.b, o
		s.freePair(l)
		return q
	case *quad:
		l.over = s.chainInsert(l.over, o)
		return l
	}
	panic("hcons: invalid chain link")
}

// chainFind returns the object in l that matches the given key.
func chainFind(l link, hash uint64, meta Meta, key []Word) *Object {
	for {
		switch n := l.(type) {
		case nil:
			return nil
		case *Object:
			if n.matches(hash, meta, key) {
				return n
			}
			return nil
		case *pair:
			if n.a.matches(hash, meta, key) {
				return n.a
			}
			if n.b.matches(hash, meta, key) {
				return n.b
			}
			return nil
		case *quad:
			switch {
			case n.a.matches(hash, meta, key):
				return n.a
			case n.b.matches(hash, meta, key):
				return n.b
			case n.c.matches(hash, meta, key):
				return n.c
			}
			l = n.over
		default:
			panic("hcons: invalid chain link")
		}
	}
}

// chainRemove returns l with o removed. The object is found by
// identity, not by key; it panics if o is not in l.
func (s *shard) chainRemove(l link, o *Object) link {
	switch n := l.(type) {
	case *Object:
		if n == o {
			return nil
		}
	case *pair:
		switch o {
		case n.a:
			b := n.b
			s.freePair(n)
			return b
		case n.b:
			a := n.a
			s.freePair(n)
			return a
		}
	case *quad:
		var hole **Object
		switch o {
		case n.a:
			hole = &n.a
		case n.b:
			hole = &n.b
		case n.c:
			hole = &n.c
		default:
			n.over = s.chainRemove(n.over, o)
			return n
		}
		if n.over == nil {
			*hole = nil
			p := s.newPair()
			p.a, p.b = n.a, n.b
			if p.a == nil {
				p.a = n.c
			} else if p.b == nil {
				p.b = n.c
			}
			s.freeQuad(n)
			return p
		}
		// Keep the page full by pulling up the head of the overflow.
		*hole, n.over = s.chainPop(n.over)
		return n
	}
	panic("hcons: remove of object not in chain")
}

// chainPop removes the first object of the non-empty chain l,
// returning it and the remaining chain.
func (s *shard) chainPop(l link) (*Object, link) {
	switch n := l.(type) {
	case *Object:
		return n, nil
	case *pair:
		a, b := n.a, n.b
		s.freePair(n)
		return a, b
	case *quad:
		a := n.a
		if n.over == nil {
			p := s.newPair()
			p.a, p.b = n.b, n.c
			s.freeQuad(n)
			return a, p
		}
		n.a, n.b = n.b, n.c
		n.c, n.over = s.chainPop(n.over)
		return a, n
	}
	panic("hcons: pop from empty chain")
}

// chainLen returns the number of objects in l.
func chainLen(l link) int {
	n := 0
	chainEach(l, func(*Object) bool {
		n++
		return true
	})
	return n
}

// chainEach calls f for each object in l until f returns false.
// It reports whether every call returned true.
func chainEach(l link, f func(*Object) bool) bool {
	for {
		switch n := l.(type) {
		case nil:
			return true
		case *Object:
			return f(n)
		case *pair:
			return f(n.a) && f(n.b)
		case *quad:
			if !f(n.a) || !f(n.b) || !f(n.c) {
				return false
			}
			l = n.over
		default:
			panic("hcons: invalid chain link")
		}
	}
}

func (s *shard) newPair() *pair {
	if n := len(s.pairs); n > 0 {
		p := s.pairs[n-1]
		s.pairs = s.pairs[:n-1]
		return p
	}
	return new(pair)
}

func (s *shard) freePair(p *pair) {
	*p = pair{}
	if len(s.pairs) < s.freeMax {
		s.pairs = append(s.pairs, p)
	}
}

func (s *shard) newQuad() *quad {
	if n := len(s.quads); n > 0 {
		q := s.quads[n-1]
		s.quads = s.quads[:n-1]
		return q
	}
	return new(quad)
}

func (s *shard) freeQuad(q *quad) {
	*q = quad{}
	if len(s.quads) < s.freeMax {
		s.quads = append(s.quads, q)
	}
}
