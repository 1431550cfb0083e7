package expr

import (
	"fmt"
	"strings"
)

// Quant is the quantification of a variable. It decides which
// substitutions may bind the variable.
type Quant uint8

const (
	// Univ is a universally quantified variable.
	Univ Quant = iota
	// Exist is an existentially quantified variable.
	Exist
	// Weak is a weakly quantified variable, typically a
	// placeholder created during inference.
	Weak
	// Passive is a variable that takes no part in unification
	// unless a substitution explicitly asks for it.
	Passive

	numQuants
)

var quantNames = [numQuants]string{
	Univ:    "univ",
	Exist:   "exist",
	Weak:    "weak",
	Passive: "passive",
}

// prefix is used when printing anonymous variables.
var quantPrefix = [numQuants]string{
	Univ:    "_u",
	Exist:   "_e",
	Weak:    "_w",
	Passive: "_p",
}

func (q Quant) String() string {
	if q < numQuants {
		return quantNames[q]
	}
	return fmt.Sprintf("Quant(%d)", q)
}

// ParseQuant returns the quantification with the given name.
func ParseQuant(s string) (Quant, error) {
	for q, name := range quantNames {
		if name == s {
			return Quant(q), nil
		}
	}
	return 0, fmt.Errorf("unknown quantification %q", s)
}

// QSet is a set of quantifications.
type QSet uint8

// QSetOf returns the set holding the given quantifications.
func QSetOf(qs ...Quant) QSet {
	var s QSet
	for _, q := range qs {
		s |= 1 << q
	}
	return s
}

// AllQuants holds every quantification.
const AllQuants QSet = 1<<numQuants - 1

// Has reports whether q is in s.
func (s QSet) Has(q Quant) bool {
	return s&(1<<q) != 0
}

func (s QSet) String() string {
	var names []string
	for q := range numQuants {
		if s.Has(q) {
			names = append(names, q.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// ParseQSet parses a comma-separated list of quantification names.
// The empty string yields the empty set.
func ParseQSet(s string) (QSet, error) {
	var set QSet
	if s == "" {
		return set, nil
	}
	for _, name := range strings.Split(s, ",") {
		q, err := ParseQuant(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		set |= 1 << q
	}
	return set, nil
}
