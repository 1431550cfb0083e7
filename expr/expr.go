// Package expr implements hash-consed expressions: variables, integer
// literals and operator applications. Every structurally equal
// expression built through the same [Builder] is the same object, so
// expressions compare with ==.
package expr

import (
	"iter"
	"strconv"
	"strings"

	"github.com/rogpeppe/hashcons/hcons"
)

const (
	kindVar = 1 + iota
	kindInt
	kindOpn
)

// Layout of the one extra word carried by an operator application.
const (
	hasVarsBit = 1 << 63
	sizeMask   = hasVarsBit - 1
)

func varMeta(q Quant) hcons.Meta {
	return hcons.Meta(kindVar | uint64(q)<<8)
}

func opnMeta(op Opr) hcons.Meta {
	return hcons.Meta(kindOpn | uint64(op.d.arity)<<8 | uint64(op.d.code)<<16)
}

const intMeta = hcons.Meta(kindInt)

// Expr is a handle to a hash-consed expression. The zero Expr is not
// a valid expression; it is used to mean "no expression".
type Expr struct {
	o *hcons.Object
}

// IsZero reports whether e is the zero Expr.
func (e Expr) IsZero() bool {
	return e.o == nil
}

// Object returns the hash-consed object holding e.
func (e Expr) Object() *hcons.Object {
	return e.o
}

// Hash returns the hash of e. It is consistent with ==.
func (e Expr) Hash() uint64 {
	return e.o.Hash()
}

func (e Expr) kind() uint64 {
	return uint64(e.o.Meta()) & 0xff
}

// IsVar reports whether e is a variable.
func (e Expr) IsVar() bool {
	return e.kind() == kindVar
}

// Quant returns the quantification of the variable e.
// It panics if e is not a variable.
func (e Expr) Quant() Quant {
	if !e.IsVar() {
		panic("expr: Quant called on non-variable")
	}
	return Quant(e.o.Meta() >> 8)
}

// Serial returns the number that distinguishes the variable e from
// all other variables.
func (e Expr) Serial() uint64 {
	if !e.IsVar() {
		panic("expr: Serial called on non-variable")
	}
	return e.o.Key()[0]
}

// IsInt reports whether e is an integer literal.
func (e Expr) IsInt() bool {
	return e.kind() == kindInt
}

// Int returns the value of the integer literal e.
func (e Expr) Int() int64 {
	if !e.IsInt() {
		panic("expr: Int called on non-integer")
	}
	return int64(e.o.Key()[0])
}

// IsOpn reports whether e is an operator application.
func (e Expr) IsOpn() bool {
	return e.kind() == kindOpn
}

// Opr returns the operator of e, or the zero Opr if e is not an
// operator application.
func (e Expr) Opr() Opr {
	if !e.IsOpn() {
		return Opr{}
	}
	return oprByCode(uint32(e.o.Meta() >> 16))
}

// Arity returns the number of operands of e.
func (e Expr) Arity() int {
	return len(e.o.Refs())
}

// Arg returns the i'th operand of e.
func (e Expr) Arg(i int) Expr {
	return Expr{e.o.Refs()[i]}
}

// Args returns the operands of e.
func (e Expr) Args() []Expr {
	refs := e.o.Refs()
	if len(refs) == 0 {
		return nil
	}
	args := make([]Expr, len(refs))
	for i, r := range refs {
		args[i] = Expr{r}
	}
	return args
}

// Size returns the number of nodes in the tree of e.
func (e Expr) Size() int {
	if !e.IsOpn() {
		return 1
	}
	return int(e.o.Extra()[0] & sizeMask)
}

// HasVars reports whether e contains a variable.
func (e Expr) HasVars() bool {
	switch e.kind() {
	case kindVar:
		return true
	case kindOpn:
		return e.o.Extra()[0]&hasVarsBit != 0
	}
	return false
}

// Contains reports whether v occurs in e.
func (e Expr) Contains(v Expr) bool {
	if e == v {
		return true
	}
	if !e.HasVars() || !e.IsOpn() {
		return false
	}
	for _, r := range e.o.Refs() {
		if (Expr{r}).Contains(v) {
			return true
		}
	}
	return false
}

// Vars returns an iterator over the variables of e, in left-to-right
// order. Shared subexpressions are visited once.
func (e Expr) Vars() iter.Seq[Expr] {
	return func(yield func(Expr) bool) {
		seen := make(map[Expr]bool)
		var walk func(e Expr) bool
		walk = func(e Expr) bool {
			if !e.HasVars() || seen[e] {
				return true
			}
			seen[e] = true
			if e.IsVar() {
				return yield(e)
			}
			for _, r := range e.o.Refs() {
				if !walk(Expr{r}) {
					return false
				}
			}
			return true
		}
		walk(e)
	}
}

func (e Expr) String() string {
	return e.Format(nil)
}

// Format returns a textual representation of e. Variables are
// printed with name, if it is not nil and returns a non-empty
// string; otherwise they are printed as an underscore, a letter
// for the quantification and the serial number.
func (e Expr) Format(name func(v Expr) string) string {
	var sb strings.Builder
	e.format(&sb, name)
	return sb.String()
}

func (e Expr) format(sb *strings.Builder, name func(Expr) string) {
	switch {
	case e.IsZero():
		sb.WriteString("<nil>")
	case e.IsVar():
		if name != nil {
			if s := name(e); s != "" {
				sb.WriteString(s)
				return
			}
		}
		q := e.Quant()
		if q < numQuants {
			sb.WriteString(quantPrefix[q])
		} else {
			sb.WriteString("_q")
		}
		sb.WriteString(strconv.FormatUint(e.Serial(), 10))
	case e.IsInt():
		sb.WriteString(strconv.FormatInt(e.Int(), 10))
	default:
		sb.WriteString(e.Opr().Name())
		if e.Arity() == 0 {
			return
		}
		sb.WriteByte('(')
		for i, r := range e.o.Refs() {
			if i > 0 {
				sb.WriteString(", ")
			}
			Expr{r}.format(sb, name)
		}
		sb.WriteByte(')')
	}
}
