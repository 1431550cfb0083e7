package subst

import (
	"github.com/rogpeppe/hashcons/expr"
)

// AuxFunc unifies two expressions that are not variables bound by s
// and do not decompose into matching operator applications. It
// returns the unified expression and whether unification succeeded.
type AuxFunc func(s *Subst, e0, e1 expr.Expr) (expr.Expr, bool)

// Unify unifies e0 and e1, extending s so that both stand for the same
// expression, and reports whether it succeeded.
//
// When unification fails, s may hold some of the bindings made before
// the failure was found. Callers that need to back out should unify in
// a clone and delete the clone on failure.
func (s *Subst) Unify(e0, e1 expr.Expr) bool {
	_, ok := s.UnifyAux(e0, e1, nil)
	return ok
}

// UnifyAux is like [Subst.Unify] but calls aux, if it is not nil, for
// each pair of subexpressions that unification cannot otherwise handle.
// On success it returns the unified expression.
func (s *Subst) UnifyAux(e0, e1 expr.Expr, aux AuxFunc) (expr.Expr, bool) {
	s.checkMutable()
	return s.unify(e0, e1, aux)
}

func (s *Subst) unify(e0, e1 expr.Expr, aux AuxFunc) (expr.Expr, bool) {
	if e0 == e1 {
		return e0, true
	}
	v0, v1 := s.eligible(e0), s.eligible(e1)
	switch {
	case v0 && v1:
		return s.unifyVars(e0, e1, aux)
	case v0:
		return s.unifyBind(e0, e1, aux, false)
	case v1:
		return s.unifyBind(e1, e0, aux, true)
	}
	if e0.IsOpn() && e1.IsOpn() && e0.Opr() == e1.Opr() {
		n := e0.Arity()
		args := make([]expr.Expr, n)
		same0, same1 := true, true
		for i := range n {
			a0, a1 := e0.Arg(i), e1.Arg(i)
			a, ok := s.unify(a0, a1, aux)
			if !ok {
				return expr.Expr{}, false
			}
			args[i] = a
			same0 = same0 && a == a0
			same1 = same1 && a == a1
		}
		switch {
		case same0:
			return e0, true
		case same1:
			return e1, true
		}
		return s.b.Rebuild(e0, args), true
	}
	if aux != nil {
		return aux(s, e0, e1)
	}
	return expr.Expr{}, false
}

// unifyVars unifies the variables v0 and v1. The class of v1 absorbs
// the class of v0, so its primary variable represents the result.
func (s *Subst) unifyVars(v0, v1 expr.Expr, aux AuxFunc) (expr.Expr, bool) {
	c0, c1 := s.class(v0), s.class(v1)
	if c0 == c1 {
		return c1.resolved(), true
	}
	if s.idempotent {
		if !c0.value.IsZero() && s.occurs(c1, c0.value) {
			return expr.Expr{}, false
		}
		if !c1.value.IsZero() && s.occurs(c0, c1.value) {
			return expr.Expr{}, false
		}
	}
	// As in unifyBind, a blocked class may take on a variable but not a term.
	if (c0.blocked && c1.boundToTerm()) || (c1.blocked && c0.boundToTerm()) {
		return expr.Expr{}, false
	}
	value := c1.value
	switch {
	case c0.value.IsZero():
	case c1.value.IsZero():
		value = c0.value
	default:
		if _, ok := s.unify(c0.value, c1.value, aux); !ok {
			return expr.Expr{}, false
		}
		// Unifying the values may have changed either class.
		c0, c1 = s.class(v0), s.class(v1)
		if c0 == c1 {
			return c1.resolved(), true
		}
		value = c1.value
		if value.IsZero() {
			value = c0.value
		}
	}
	c1.vars = append(c1.vars, c0.vars...)
	c1.value = value
	c1.blocked = c1.blocked || c0.blocked
	for _, v := range c0.vars {
		s.fr.vars.Set(v, c1)
	}
	return c1.resolved(), true
}

// unifyBind unifies the variable v with e, which is not a variable
// bound by s. If swapped is set, v came from the right-hand side of
// the original unification.
func (s *Subst) unifyBind(v, e expr.Expr, aux AuxFunc, swapped bool) (expr.Expr, bool) {
	c := s.class(v)
	if !c.value.IsZero() {
		if swapped {
			return s.unify(e, c.value, aux)
		}
		return s.unify(c.value, e, aux)
	}
	if c.blocked && !e.IsVar() {
		return expr.Expr{}, false
	}
	if s.idempotent && s.occurs(c, e) {
		return expr.Expr{}, false
	}
	c.value = e
	return e, true
}

// boundToTerm reports whether c is bound to something other than a variable.
func (c *Veqv) boundToTerm() bool {
	return !c.value.IsZero() && !c.value.IsVar()
}

// occurs reports whether e, with the bindings of s applied, contains
// a member of class c.
func (s *Subst) occurs(c *Veqv, e expr.Expr) bool {
	visited := make(map[*Veqv]bool)
	var walk func(e expr.Expr) bool
	walk = func(e expr.Expr) bool {
		for v := range e.Vars() {
			if !s.eligible(v) {
				continue
			}
			cv := s.find(v)
			if cv == nil {
				continue
			}
			if cv == c {
				return true
			}
			if cv.value.IsZero() || visited[cv] {
				continue
			}
			visited[cv] = true
			if walk(cv.value) {
				return true
			}
		}
		return false
	}
	return walk(e)
}
