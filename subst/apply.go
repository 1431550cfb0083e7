package subst

import (
	"github.com/rogpeppe/hashcons/expr"
)

// Apply returns e with every variable bound by s replaced, recursively,
// by the expression it stands for: the value of its class if it has one,
// otherwise the primary variable of the class. Subexpressions that are
// unaffected are returned unchanged.
//
// It panics if s is not idempotent, as a cyclic substitution has no
// finite application.
func (s *Subst) Apply(e expr.Expr) expr.Expr {
	s.checkLive()
	if !s.idempotent {
		panic("subst: Apply called on non-idempotent substitution")
	}
	return s.apply(e, make(map[expr.Expr]expr.Expr))
}

func (s *Subst) apply(e expr.Expr, memo map[expr.Expr]expr.Expr) expr.Expr {
	if !e.HasVars() {
		return e
	}
	if r, ok := memo[e]; ok {
		return r
	}
	var r expr.Expr
	switch {
	case e.IsVar():
		r = e
		if s.eligible(e) {
			if c := s.find(e); c != nil {
				if c.value.IsZero() {
					r = c.vars[0]
				} else {
					r = s.apply(c.value, memo)
				}
			}
		}
	default:
		args := e.Args()
		for i, a := range args {
			args[i] = s.apply(a, memo)
		}
		r = s.b.Rebuild(e, args)
	}
	memo[e] = r
	return r
}

// Expand is like [Subst.Apply] but performs only one level of
// substitution: the values it substitutes are not themselves
// expanded. It may be used on substitutions that are not idempotent.
func (s *Subst) Expand(e expr.Expr) expr.Expr {
	s.checkLive()
	return s.expand(e, make(map[expr.Expr]expr.Expr))
}

func (s *Subst) expand(e expr.Expr, memo map[expr.Expr]expr.Expr) expr.Expr {
	if !e.HasVars() {
		return e
	}
	if r, ok := memo[e]; ok {
		return r
	}
	var r expr.Expr
	switch {
	case e.IsVar():
		r = e
		if s.eligible(e) {
			if c := s.find(e); c != nil {
				r = c.resolved()
			}
		}
	default:
		args := e.Args()
		for i, a := range args {
			args[i] = s.expand(a, memo)
		}
		r = s.b.Rebuild(e, args)
	}
	memo[e] = r
	return r
}
