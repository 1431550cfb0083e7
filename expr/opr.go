package expr

import (
	"fmt"
	"sync"
)

// Opr is an operator: a name together with a fixed arity.
// Operators are registered process-wide; two calls to NewOpr
// with the same name and arity return the same Opr.
// The zero Opr is not a valid operator.
type Opr struct {
	d *oprDesc
}

type oprDesc struct {
	name  string
	arity int
	code  uint32
}

type oprKey struct {
	name  string
	arity int
}

var oprs struct {
	mu     sync.Mutex
	byName map[oprKey]*oprDesc

	// uint32 -> *oprDesc
	byCode sync.Map
	next   uint32
}

// maxArity bounds the arity of an operator so that it fits in a meta.
const maxArity = 0xff

// NewOpr returns the operator with the given name and arity,
// registering it if necessary. It panics if arity is out of range.
func NewOpr(name string, arity int) Opr {
	if arity < 0 || arity > maxArity {
		panic(fmt.Sprintf("expr: arity %d of operator %q out of range", arity, name))
	}
	oprs.mu.Lock()
	defer oprs.mu.Unlock()
	k := oprKey{name, arity}
	if d, ok := oprs.byName[k]; ok {
		return Opr{d}
	}
	if oprs.byName == nil {
		oprs.byName = make(map[oprKey]*oprDesc)
	}
	oprs.next++
	d := &oprDesc{
		name:  name,
		arity: arity,
		code:  oprs.next,
	}
	oprs.byName[k] = d
	oprs.byCode.Store(d.code, d)
	return Opr{d}
}

func oprByCode(code uint32) Opr {
	d, ok := oprs.byCode.Load(code)
	if !ok {
		panic(fmt.Sprintf("expr: unknown operator code %d", code))
	}
	return Opr{d.(*oprDesc)}
}

// Name returns the name of the operator.
func (op Opr) Name() string {
	return op.d.name
}

// Arity returns the number of operands the operator takes.
func (op Opr) Arity() int {
	return op.d.arity
}

// IsZero reports whether op is the zero Opr.
func (op Opr) IsZero() bool {
	return op.d == nil
}

func (op Opr) String() string {
	if op.d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s/%d", op.d.name, op.d.arity)
}
