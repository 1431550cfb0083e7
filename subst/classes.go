package subst

import (
	"bufio"
	"cmp"
	"io"
	"iter"
	"slices"

	"github.com/rogpeppe/hashcons/expr"
)

// Classes returns an iterator over the equivalence classes of s,
// including those inherited from the substitutions it shadows.
// Each class is yielded once. The classes must not be retained
// across changes to s.
func (s *Subst) Classes() iter.Seq[*Veqv] {
	return func(yield func(*Veqv) bool) {
		s.checkLive()
		seen := make(map[*Veqv]bool)
		for _, c := range s.entries() {
			if seen[c] {
				continue
			}
			seen[c] = true
			if !yield(c) {
				return
			}
		}
	}
}

// Terms returns an iterator over every expression that s refers to:
// the members and values of all its classes. A collector can use it
// to keep the expressions of a live substitution reachable.
func (s *Subst) Terms() iter.Seq[expr.Expr] {
	return func(yield func(expr.Expr) bool) {
		for c := range s.Classes() {
			for _, v := range c.vars {
				if !yield(v) {
					return
				}
			}
			if !c.value.IsZero() && !yield(c.value) {
				return
			}
		}
	}
}

// Print writes the classes of s to w, one per line, ordered by primary
// variable. Each line lists the members of the class, primary first,
// followed by its value or a note that it is blocked. Variables are
// named with name as described for [expr.Expr.Format].
func (s *Subst) Print(w io.Writer, name func(expr.Expr) string) error {
	classes := slices.SortedFunc(s.Classes(), func(a, b *Veqv) int {
		return cmp.Compare(a.vars[0].Serial(), b.vars[0].Serial())
	})
	bw := bufio.NewWriter(w)
	for _, c := range classes {
		for i, v := range c.vars {
			if i > 0 {
				bw.WriteString(" = ")
			}
			bw.WriteString(v.Format(name))
		}
		switch {
		case !c.value.IsZero():
			bw.WriteString(" := ")
			bw.WriteString(c.value.Format(name))
		case c.blocked:
			bw.WriteString(" (blocked)")
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
