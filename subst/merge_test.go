package subst

import (
	"sync"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/rogpeppe/hashcons/expr"
	"github.com/rogpeppe/hashcons/gc"
	"github.com/rogpeppe/hashcons/hcons"
)

func newTestSubst(t *testing.T) (*Subst, []expr.Expr) {
	tab, err := hcons.NewTable(gc.New(nil), nil)
	qt.Assert(t, qt.IsNil(err))
	b := expr.NewBuilder(tab)
	vars := make([]expr.Expr, 4)
	for i := range vars {
		vars[i] = b.NewVar(expr.Univ)
	}
	return New(b, expr.QSetOf(expr.Univ)), vars
}

func TestMergeStealsDeletedParent(t *testing.T) {
	s1, vars := newTestSubst(t)
	x, y, z := vars[0], vars[1], vars[2]
	b := s1.Builder()
	qt.Assert(t, qt.IsTrue(s1.Unify(x, b.Int(1))))
	qt.Assert(t, qt.IsTrue(s1.Unify(y, z)))
	fr1 := s1.fr

	s2 := NewClone(s1)
	qt.Assert(t, qt.IsTrue(s2.Unify(z, b.Int(2))))
	s1.Delete()
	qt.Assert(t, qt.Equals(s1.clones, 1))

	s2.Flatten()
	qt.Assert(t, qt.Equals(s2.fr, fr1))
	qt.Assert(t, qt.IsNil(s2.shadowed))
	qt.Assert(t, qt.IsNil(s1.fr))
	qt.Assert(t, qt.Equals(s1.clones, 0))

	for c := range s2.Classes() {
		qt.Assert(t, qt.Equals(c.owner, s2.fr))
	}
	qt.Assert(t, qt.Equals(s2.Apply(y), b.Int(2)))
	qt.Assert(t, qt.Equals(s2.Apply(x), b.Int(1)))
}

func TestMergeCopiesLiveParent(t *testing.T) {
	s1, vars := newTestSubst(t)
	x, y := vars[0], vars[1]
	qt.Assert(t, qt.IsTrue(s1.Unify(x, y)))

	s2 := NewClone(s1)
	s2.Flatten()
	qt.Assert(t, qt.IsNil(s2.shadowed))
	qt.Assert(t, qt.Equals(s1.clones, 0))

	c1, c2 := s1.Class(x), s2.Class(x)
	qt.Assert(t, qt.Not(qt.Equals(c1, c2)))
	qt.Assert(t, qt.Equals(c2.owner, s2.fr))
	qt.Assert(t, qt.Equals(s2.Class(y), c2))

	// The parent is mutable again and changes do not leak.
	qt.Assert(t, qt.IsTrue(s1.Unify(x, s1.Builder().Int(7))))
	_, bound := c2.Value()
	qt.Assert(t, qt.IsFalse(bound))
}

func TestMergeOnShadowAccess(t *testing.T) {
	s1, vars := newTestSubst(t)
	x, y := vars[0], vars[1]
	qt.Assert(t, qt.IsTrue(s1.Unify(x, y)))
	s2 := NewClone(s1)

	n := mergeFactor * s1.fr.vars.Len()
	for range n {
		s2.Class(x)
	}
	qt.Assert(t, qt.Equals(s2.shadowed, s1))
	qt.Assert(t, qt.Equals(s2.shadowAccess, n))

	c := s2.Class(x)
	qt.Assert(t, qt.IsNil(s2.shadowed))
	qt.Assert(t, qt.Equals(s2.shadowAccess, 0))
	qt.Assert(t, qt.Equals(c, s2.Class(y)))
	qt.Assert(t, qt.Equals(c.owner, s2.fr))
}

func TestFrozenParentDoesNotMerge(t *testing.T) {
	s1, vars := newTestSubst(t)
	x := vars[0]
	qt.Assert(t, qt.IsTrue(s1.Unify(x, vars[1])))
	s2 := NewClone(s1)
	s3 := NewClone(s2)
	for range 100 {
		s2.Class(x)
	}
	qt.Assert(t, qt.Equals(s2.shadowed, s1))
	s3.Delete()
}

func TestDeleteReleasesAncestors(t *testing.T) {
	s0, _ := newTestSubst(t)
	s1 := NewClone(s0)
	s2 := NewClone(s1)
	s1.Delete()
	qt.Assert(t, qt.Equals(s0.clones, 1))
	s2.Delete()
	qt.Assert(t, qt.Equals(s1.clones, 0))
	qt.Assert(t, qt.Equals(s0.clones, 0))
	qt.Assert(t, qt.IsNil(s1.shadowed))
}

func TestSiblingClonesConcurrently(t *testing.T) {
	s1, vars := newTestSubst(t)
	x, y, z, w := vars[0], vars[1], vars[2], vars[3]
	b := s1.Builder()
	qt.Assert(t, qt.IsTrue(s1.Unify(x, b.Int(1))))
	qt.Assert(t, qt.IsTrue(s1.Unify(y, z)))

	const n = 16
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClone(s1)
			// Enough lookups to fold s1 into c.
			for range 20 {
				v, ok := c.Lookup(x)
				qt.Check(t, qt.IsTrue(ok))
				qt.Check(t, qt.Equals(v, b.Int(1)))
			}
			qt.Check(t, qt.IsNil(c.shadowed))
			qt.Check(t, qt.IsTrue(c.Unify(w, b.Int(int64(i)))))
			qt.Check(t, qt.IsTrue(c.Unify(z, b.Int(int64(i)))))
			qt.Check(t, qt.Equals(c.Apply(y), b.Int(int64(i))))
			c.Delete()
		}()
	}
	wg.Wait()
	qt.Assert(t, qt.Equals(s1.clones, 0))
	qt.Assert(t, qt.IsNil(s1.Class(w)))
	qt.Assert(t, qt.IsTrue(s1.Unify(z, b.Int(99))))
	qt.Assert(t, qt.Equals(s1.Apply(y), b.Int(99)))
}

func TestSiblingClonesOfDeletedParent(t *testing.T) {
	s0, vars := newTestSubst(t)
	x, y, z, w := vars[0], vars[1], vars[2], vars[3]
	b := s0.Builder()
	qt.Assert(t, qt.IsTrue(s0.Unify(x, b.Int(1))))
	s1 := NewClone(s0)
	qt.Assert(t, qt.IsTrue(s1.Unify(y, z)))

	const n = 16
	clones := make([]*Subst, n)
	for i := range clones {
		clones[i] = NewClone(s1)
	}
	// Whichever clone is last to merge may take over the frame of s1.
	s1.Delete()

	var wg sync.WaitGroup
	for i, c := range clones {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				qt.Check(t, qt.Equals(c.Apply(y), z))
			}
			qt.Check(t, qt.IsTrue(c.Unify(y, b.Int(int64(i)))))
			qt.Check(t, qt.IsTrue(c.Unify(w, x)))
			for range 20 {
				qt.Check(t, qt.Equals(c.Apply(z), b.Int(int64(i))))
				qt.Check(t, qt.Equals(c.Apply(w), b.Int(1)))
			}
			c.Delete()
		}()
	}
	wg.Wait()
	qt.Assert(t, qt.Equals(s1.clones, 0))
	qt.Assert(t, qt.Equals(s0.clones, 0))
	qt.Assert(t, qt.IsTrue(s0.Unify(y, b.Int(5))))
}
