package subst

import (
	"slices"

	"github.com/rogpeppe/hashcons/expr"
)

// Veqv is a variable equivalence class: a set of variables that a
// substitution holds to be equal, together with at most one value
// they are bound to.
//
// A Veqv belongs to the substitution frame that created it. Frames
// never change a Veqv they do not own: a clone copies a class into
// its own frame before changing it.
type Veqv struct {
	q expr.Quant

	// vars holds the members of the class. vars[0] is the
	// primary variable, used to represent the class when it has
	// no value.
	vars []expr.Expr

	// value is the zero Expr when the class is unbound.
	value expr.Expr

	// blocked classes may not be bound to a non-variable.
	blocked bool

	owner *frame
}

// Quant returns the quantification of the class.
func (c *Veqv) Quant() expr.Quant {
	return c.q
}

// Primary returns the variable that represents the class.
func (c *Veqv) Primary() expr.Expr {
	return c.vars[0]
}

// Vars returns the members of the class, primary first.
func (c *Veqv) Vars() []expr.Expr {
	return slices.Clone(c.vars)
}

// Value returns the value bound to the class, if any.
func (c *Veqv) Value() (expr.Expr, bool) {
	return c.value, !c.value.IsZero()
}

// Blocked reports whether the class is blocked.
func (c *Veqv) Blocked() bool {
	return c.blocked
}

// copyTo returns a copy of c owned by fr.
func (c *Veqv) copyTo(fr *frame) *Veqv {
	return &Veqv{
		q:       c.q,
		vars:    slices.Clone(c.vars),
		value:   c.value,
		blocked: c.blocked,
		owner:   fr,
	}
}

// resolved returns the expression that stands for the class: its
// value if it has one, otherwise its primary variable.
func (c *Veqv) resolved() expr.Expr {
	if !c.value.IsZero() {
		return c.value
	}
	return c.vars[0]
}
