package main

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rogpeppe/hashcons/subst"
)

const blockedStyle = "fill:#eee,stroke-dasharray:4"

// marshalMermaid returns the dependency graph of the classes of the
// current substitution as a Mermaid flowchart. There is an edge from
// one class to another when the value of the first mentions a member
// of the second.
func (s *session) marshalMermaid() []byte {
	sb := s.subst()
	classes := slices.SortedFunc(sb.Classes(), func(a, b *subst.Veqv) int {
		return cmp.Compare(a.Primary().Serial(), b.Primary().Serial())
	})
	id := func(c *subst.Veqv) string {
		return fmt.Sprintf("c%d", c.Primary().Serial())
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph TD\n")
	for _, c := range classes {
		members := make([]string, 0, len(c.Vars()))
		for _, v := range c.Vars() {
			members = append(members, s.format(v))
		}
		text := strings.Join(members, " = ")
		value, bound := c.Value()
		if bound {
			text += " := " + s.format(value)
		}
		fmt.Fprintf(&buf, "  %s[\"%s\"]\n", id(c), strings.ReplaceAll(text, `"`, "#quot;"))
		if c.Blocked() {
			fmt.Fprintf(&buf, "  style %s %s\n", id(c), blockedStyle)
		}
		if !bound {
			continue
		}
		var deps []*subst.Veqv
		for v := range value.Vars() {
			if d := sb.Class(v); d != nil && !slices.Contains(deps, d) {
				deps = append(deps, d)
			}
		}
		for _, d := range deps {
			fmt.Fprintf(&buf, "  %s-->%s\n", id(c), id(d))
		}
	}
	return buf.Bytes()
}
