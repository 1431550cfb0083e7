package subst

import (
	"cmp"
	"slices"
)

// Cycles returns the cyclic groups of classes in s. Class a depends on
// class b when the value of a mentions a member of b; a group is
// cyclic if each of its classes depends on every other, possibly
// indirectly. A class whose value mentions its own members forms a
// group on its own.
//
// An idempotent substitution has no cycles.
func (s *Subst) Cycles() [][]*Veqv {
	var nodes []*Veqv
	for c := range s.Classes() {
		nodes = append(nodes, c)
	}
	byPrimary := func(a, b *Veqv) int {
		return cmp.Compare(a.vars[0].Serial(), b.vars[0].Serial())
	}
	slices.SortFunc(nodes, byPrimary)

	t := tarjan{
		succ:       s.dependencies,
		indexTable: make(map[*Veqv]int, len(nodes)),
		lowLink:    make(map[*Veqv]int, len(nodes)),
		onStack:    make(map[*Veqv]bool),
	}
	for _, c := range nodes {
		if t.indexTable[c] == 0 {
			t.strongconnect(c)
		}
	}
	var cycles [][]*Veqv
	for _, scc := range t.sccs {
		if len(scc) == 1 && !slices.Contains(s.dependencies(scc[0]), scc[0]) {
			continue
		}
		slices.SortFunc(scc, byPrimary)
		cycles = append(cycles, scc)
	}
	return cycles
}

// dependencies returns the classes whose members occur in the value of c.
func (s *Subst) dependencies(c *Veqv) []*Veqv {
	if c.value.IsZero() {
		return nil
	}
	var deps []*Veqv
	for v := range c.value.Vars() {
		if !s.eligible(v) {
			continue
		}
		if d := s.lookup(v); d != nil && !slices.Contains(deps, d) {
			deps = append(deps, d)
		}
	}
	return deps
}

// tarjan finds the cyclic groups of the class dependency graph
// with Tarjan's algorithm. Classes are numbered in visit order;
// lowLink[c] is the smallest number of a class on the stack that c
// can reach through the values of the classes it depends on.
type tarjan struct {
	succ func(*Veqv) []*Veqv

	index      int
	indexTable map[*Veqv]int
	lowLink    map[*Veqv]int
	onStack    map[*Veqv]bool

	// stack holds the classes visited whose group is not yet complete.
	stack []*Veqv

	sccs [][]*Veqv
}

// strongconnect visits c and every class its value depends on that
// has not been visited yet, appending each group it completes to t.sccs.
func (t *tarjan) strongconnect(c *Veqv) {
	t.index++
	t.indexTable[c] = t.index
	t.lowLink[c] = t.index
	t.stack = append(t.stack, c)
	t.onStack[c] = true

	for _, d := range t.succ(c) {
		if t.indexTable[d] == 0 {
			t.strongconnect(d)
			t.lowLink[c] = min(t.lowLink[c], t.lowLink[d])
		} else if t.onStack[d] {
			// d depends back on c, directly or not.
			t.lowLink[c] = min(t.lowLink[c], t.indexTable[d])
		}
	}

	if t.lowLink[c] != t.indexTable[c] {
		return
	}
	// No class above c on the stack reaches anything visited before c,
	// so c and those classes form one group.
	var (
		group []*Veqv
		d     *Veqv
	)
	for d != c {
		d, t.stack = t.stack[len(t.stack)-1], t.stack[:len(t.stack)-1]
		delete(t.onStack, d)
		group = append(group, d)
	}
	t.sccs = append(t.sccs, group)
}
