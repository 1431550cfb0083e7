package expr

import (
	"fmt"
	"sync/atomic"

	"github.com/rogpeppe/hashcons/hcons"
)

// Builder makes expressions in a hash-cons table.
// It is safe for concurrent use.
type Builder struct {
	tab *hcons.Table
}

// varSerial numbers variables. It is shared by all builders so that
// builders over the same table never make the same variable.
var varSerial atomic.Uint64

// NewBuilder returns a builder that interns its expressions in tab.
func NewBuilder(tab *hcons.Table) *Builder {
	return &Builder{
		tab: tab,
	}
}

// Table returns the table that b interns expressions in.
func (b *Builder) Table() *hcons.Table {
	return b.tab
}

// NewVar returns a fresh variable with quantification q,
// distinct from every other variable.
func (b *Builder) NewVar(q Quant) Expr {
	if q >= numQuants {
		panic(fmt.Sprintf("expr: invalid quantification %d", q))
	}
	return Expr{b.tab.Intern(varMeta(q), []hcons.Word{varSerial.Add(1)})}
}

// Int returns the integer literal n.
func (b *Builder) Int(n int64) Expr {
	return Expr{b.tab.Intern(intMeta, []hcons.Word{hcons.Word(n)})}
}

// Opn returns the application of op to args.
// It panics if the number of arguments does not match the arity of op.
func (b *Builder) Opn(op Opr, args ...Expr) Expr {
	if op.IsZero() {
		panic("expr: Opn called with zero operator")
	}
	if len(args) != op.d.arity {
		panic(fmt.Sprintf("expr: operator %v applied to %d arguments", op, len(args)))
	}
	var buf [4]*hcons.Object
	refs := buf[:0]
	for _, a := range args {
		if a.IsZero() {
			panic("expr: Opn called with zero argument")
		}
		refs = append(refs, a.o)
	}
	return Expr{b.tab.InternRefs(opnMeta(op), nil, refs, 1, initOpn)}
}

// initOpn computes the layout word of a new operator application.
func initOpn(o *hcons.Object) {
	size := uint64(1)
	var hasVars bool
	for _, r := range o.Refs() {
		a := Expr{r}
		size += uint64(a.Size())
		hasVars = hasVars || a.HasVars()
	}
	w := size & sizeMask
	if hasVars {
		w |= hasVarsBit
	}
	o.Extra()[0] = w
}

// Rebuild returns an expression with the same operator as e and the
// given operands. If the operands are those of e already, e itself is
// returned without consulting the table.
func (b *Builder) Rebuild(e Expr, args []Expr) Expr {
	if !e.IsOpn() {
		if len(args) != 0 {
			panic("expr: Rebuild of leaf with arguments")
		}
		return e
	}
	refs := e.o.Refs()
	if len(refs) != len(args) {
		panic(fmt.Sprintf("expr: Rebuild of %v with %d arguments", e.Opr(), len(args)))
	}
	same := true
	for i, a := range args {
		if a.o != refs[i] {
			same = false
			break
		}
	}
	if same {
		return e
	}
	return b.Opn(e.Opr(), args...)
}
