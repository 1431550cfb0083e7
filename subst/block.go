package subst

import (
	"github.com/rogpeppe/hashcons/expr"
)

// Block prevents the class of the variable v from being unified with
// anything but a variable until it is unblocked. It reports false,
// leaving s unchanged, if v is not a variable bound by s or its class
// already has a value.
func (s *Subst) Block(v expr.Expr) bool {
	s.checkMutable()
	if !s.eligible(v) {
		return false
	}
	if c := s.find(v); c != nil && !c.value.IsZero() {
		return false
	}
	s.class(v).blocked = true
	return true
}

// Unblock undoes the effect of Block on the class of v.
func (s *Subst) Unblock(v expr.Expr) {
	s.checkMutable()
	if c := s.find(v); c == nil || !c.blocked {
		return
	}
	s.class(v).blocked = false
}

// UnblockAll unblocks every class in s, including those inherited
// from the substitutions that s shadows.
func (s *Subst) UnblockAll() {
	s.checkMutable()
	var blocked []expr.Expr
	seen := make(map[*Veqv]bool)
	for _, c := range s.entries() {
		if c.blocked && !seen[c] {
			seen[c] = true
			blocked = append(blocked, c.vars[0])
		}
	}
	for _, v := range blocked {
		s.class(v).blocked = false
	}
}
