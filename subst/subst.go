// Package subst implements substitutions over hash-consed expressions
// and unification with respect to them.
//
// A substitution maps variables to equivalence classes ([Veqv]).
// Substitutions are cheap to clone: a clone starts out empty and
// shadows its parent, copying a class from the parent only when it
// needs to change it. A parent with live clones is frozen and may
// not be changed until the clones have been deleted.
//
// A Subst is not safe for concurrent mutation, but distinct clones of
// a common frozen parent may be used from different goroutines.
package subst

import (
	"iter"
	"sync"

	"github.com/rogpeppe/hashcons/expr"
	"github.com/rogpeppe/hashcons/pmap"
)

// mergeFactor controls when a clone folds its parent into itself:
// once the lookups that had to consult an ancestor exceed
// mergeFactor times the size of the parent.
const mergeFactor = 4

// frame is the storage of one level of a shadow chain. Classes
// record the frame that owns them, and a frame holds only classes
// that it owns.
type frame struct {
	vars pmap.Map[expr.Expr, *Veqv]
}

// Subst is a substitution.
type Subst struct {
	b          *expr.Builder
	qset       expr.QSet
	idempotent bool

	fr       *frame
	shadowed *Subst

	// shadowAccess counts lookups since the last merge
	// that were not satisfied by fr.
	shadowAccess int

	// mu guards clones and deleted, which clones of s
	// may access from other goroutines.
	mu sync.Mutex

	// clones holds the number of live substitutions
	// that shadow this one.
	clones int

	deleted bool
}

// New returns an empty idempotent substitution that binds variables
// whose quantification is in qset. Unification through it performs
// the occur check, so [Subst.Apply] always terminates.
func New(b *expr.Builder, qset expr.QSet) *Subst {
	return &Subst{
		b:          b,
		qset:       qset,
		idempotent: true,
		fr:         new(frame),
	}
}

// NewNonIdempotent returns an empty substitution that does not
// perform the occur check. Its bindings may be cyclic, so only
// [Subst.Expand] may be used to apply it.
func NewNonIdempotent(b *expr.Builder, qset expr.QSet) *Subst {
	s := New(b, qset)
	s.idempotent = false
	return s
}

// NewClone returns a substitution that initially has the same
// bindings as parent. It takes constant time. The parent is frozen
// until the clone is deleted.
func NewClone(parent *Subst) *Subst {
	parent.checkLive()
	parent.mu.Lock()
	parent.clones++
	parent.mu.Unlock()
	return &Subst{
		b:          parent.b,
		qset:       parent.qset,
		idempotent: parent.idempotent,
		fr:         new(frame),
		shadowed:   parent,
	}
}

// NewCopy returns an independent substitution with the same bindings
// as parent. Unlike NewClone, it does not freeze the parent.
func NewCopy(parent *Subst) *Subst {
	parent.checkLive()
	s := &Subst{
		b:          parent.b,
		qset:       parent.qset,
		idempotent: parent.idempotent,
		fr:         new(frame),
	}
	copied := make(map[*Veqv]*Veqv)
	for v, c := range parent.entries() {
		c1, ok := copied[c]
		if !ok {
			c1 = c.copyTo(s.fr)
			copied[c] = c1
		}
		s.fr.vars.Set(v, c1)
	}
	return s
}

// Delete releases s. A deleted substitution must not be used again.
// Deleting a clone unfreezes its parent once no other clone of the
// parent remains.
func (s *Subst) Delete() {
	s.checkLive()
	s.mu.Lock()
	s.deleted = true
	n := s.clones
	s.mu.Unlock()
	if n == 0 {
		s.release()
	}
}

// release drops the reference that s holds on its parent. A deleted
// parent left with no clones releases its own parent in turn.
func (s *Subst) release() {
	for p := s.shadowed; p != nil; p = s.shadowed {
		s.shadowed = nil
		if !p.dropClone() {
			return
		}
		s = p
	}
}

// dropClone removes one clone from the count of s and reports
// whether s is now deleted with no clones left, in which case
// the caller is the only one that can still refer to s.
func (s *Subst) dropClone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clones--
	return s.deleted && s.clones == 0
}

// Flatten folds the whole shadow chain of s into s itself.
// Afterwards lookups in s never consult another substitution.
func (s *Subst) Flatten() {
	s.checkMutable()
	for s.shadowed != nil {
		s.merge()
	}
}

// IsIdempotent reports whether s performs the occur check.
func (s *Subst) IsIdempotent() bool {
	return s.idempotent
}

// QSet returns the set of quantifications that s binds.
func (s *Subst) QSet() expr.QSet {
	return s.qset
}

// Builder returns the builder that s makes expressions with.
func (s *Subst) Builder() *expr.Builder {
	return s.b
}

// Len returns the number of variables that s has an entry for.
func (s *Subst) Len() int {
	n := 0
	for range s.entries() {
		n++
	}
	return n
}

// Lookup returns the expression that v stands for in s: the value of
// its class, or the primary variable of the class if it is unbound.
// It reports false if s has no entry for v.
func (s *Subst) Lookup(v expr.Expr) (expr.Expr, bool) {
	c := s.Class(v)
	if c == nil {
		return expr.Expr{}, false
	}
	return c.resolved(), true
}

// Class returns the equivalence class of v, or nil if s has no entry
// for v. The returned class must not be retained across changes
// to s.
func (s *Subst) Class(v expr.Expr) *Veqv {
	s.checkLive()
	return s.find(v)
}

// eligible reports whether e is a variable that s may bind.
func (s *Subst) eligible(e expr.Expr) bool {
	return e.IsVar() && s.qset.Has(e.Quant())
}

// find returns the class of v, looking through the shadow chain.
// Lookups that consult an ancestor may cause s to merge its parent.
func (s *Subst) find(v expr.Expr) *Veqv {
	if c, ok := s.fr.vars.Get(v); ok {
		return c
	}
	if s.shadowed == nil {
		return nil
	}
	c := s.shadowed.lookup(v)
	s.shadowAccess++
	if s.shadowAccess > mergeFactor*s.shadowed.fr.vars.Len() && s.cloneCount() == 0 {
		s.merge()
		// Merging may have copied the class.
		c = s.lookup(v)
	}
	return c
}

func (s *Subst) cloneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clones
}

// lookup is like find but has no side effects.
func (s *Subst) lookup(v expr.Expr) *Veqv {
	for f := s; f != nil; f = f.shadowed {
		if c, ok := f.fr.vars.Get(v); ok {
			return c
		}
	}
	return nil
}

// class returns the class of v owned by the frame of s, creating or
// copying it as necessary. The caller must have checked that s is
// mutable.
func (s *Subst) class(v expr.Expr) *Veqv {
	c := s.find(v)
	if c == nil {
		c = &Veqv{
			q:     v.Quant(),
			vars:  []expr.Expr{v},
			owner: s.fr,
		}
		s.fr.vars.Set(v, c)
		return c
	}
	return s.own(c)
}

// own returns c if it belongs to the frame of s. Otherwise it copies c
// into the frame, redirecting every member of the class to the copy.
func (s *Subst) own(c *Veqv) *Veqv {
	if c.owner == s.fr {
		return c
	}
	c1 := c.copyTo(s.fr)
	for _, v := range c1.vars {
		s.fr.vars.Set(v, c1)
	}
	return c1
}

// merge folds the parent of s into s. If nothing else can see the
// parent, its storage is taken over; otherwise its entries are copied
// into the frame of s.
func (s *Subst) merge() {
	defer func() {
		s.shadowAccess = 0
	}()
	p := s.shadowed
	p.mu.Lock()
	if p.deleted && p.clones == 1 {
		// No other substitution can reach p.
		p.clones = 0
		p.mu.Unlock()
		// Entries in s take precedence over those of p.
		fr := s.fr
		for v, c := range fr.vars.All() {
			if c.owner == fr {
				c.owner = p.fr
			}
			p.fr.vars.Set(v, c)
		}
		s.fr, p.fr = p.fr, nil
		// s takes over the reference that p held on its parent.
		s.shadowed, p.shadowed = p.shadowed, nil
		return
	}
	p.mu.Unlock()

	// A frame only ever holds classes it owns, so the classes of p
	// are copied: p may change them once it is no longer frozen, and
	// a deleted p may later be taken over by a sibling of s.
	copied := make(map[*Veqv]*Veqv)
	for v, c := range p.fr.vars.All() {
		if _, ok := s.fr.vars.Get(v); ok {
			continue
		}
		c1, ok := copied[c]
		if !ok {
			c1 = c.copyTo(s.fr)
			copied[c] = c1
		}
		s.fr.vars.Set(v, c1)
	}
	s.shadowed = p.shadowed
	if gp := s.shadowed; gp != nil {
		gp.mu.Lock()
		gp.clones++
		gp.mu.Unlock()
	}
	if p.dropClone() {
		p.release()
	}
}

// entries returns an iterator over each variable visible in s and its
// class, inner frames first. Each variable is yielded once.
func (s *Subst) entries() iter.Seq2[expr.Expr, *Veqv] {
	return func(yield func(expr.Expr, *Veqv) bool) {
		if s.shadowed == nil {
			for v, c := range s.fr.vars.All() {
				if !yield(v, c) {
					return
				}
			}
			return
		}
		seen := make(map[expr.Expr]bool)
		for f := s; f != nil; f = f.shadowed {
			for v, c := range f.fr.vars.All() {
				if seen[v] {
					continue
				}
				seen[v] = true
				if !yield(v, c) {
					return
				}
			}
		}
	}
}

func (s *Subst) checkLive() {
	if s.deleted {
		panic("subst: use of deleted substitution")
	}
}

func (s *Subst) checkMutable() {
	s.checkLive()
	if s.cloneCount() > 0 {
		panic("subst: modification of a substitution that has live clones")
	}
}
