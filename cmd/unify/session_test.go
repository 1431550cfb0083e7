package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"
)

var sessionTests = []struct {
	testName string
	nonIdem  bool
	script   string
	want     string
}{{
	testName: "bind-and-apply",
	script: `
X = f(Y)
Y = 3
? X
:show
`,
	want: `
f(Y)
3
f(3)
X := f(Y)
Y := 3
`,
}, {
	testName: "clone-and-drop",
	script: `
X = f(Y)
:clone
Z = X
Y = 1
? Z
:drop
? Z
? X
X = g
`,
	want: `
f(Y)
f(Y)
1
f(1)
Z
f(Y)
no
`,
}, {
	testName: "block",
	script: `
? W
:block W
W = 1
W = V
:unblock W
V = 2
? W
`,
	want: `
W
no
V
2
2
`,
}, {
	testName: "occur-check",
	script: `
X = f(X)
:cycles
`,
	want: `
no
`,
}, {
	testName: "non-idempotent",
	nonIdem:  true,
	script: `
X = f(X)
Y = g(Y, Z)
:cycles
? Y
`,
	want: `
f(f(X))
g(g(Y, Z), Z)
X
Y
g(g(Y, Z), Z)
`,
}, {
	testName: "passive-variables",
	script: `
:var passive P
P = 1
X = P
? X
`,
	want: `
no
P
P
`,
}}

func TestSession(t *testing.T) {
	for _, test := range sessionTests {
		t.Run(test.testName, func(t *testing.T) {
			s := newTestSession(t, test.nonIdem)
			var out bytes.Buffer
			err := s.runBatch(strings.NewReader(test.script), &out)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(out.String(), strings.TrimPrefix(test.want, "\n")))
		})
	}
}

func TestSessionErrors(t *testing.T) {
	s := newTestSession(t, false)
	var out bytes.Buffer
	qt.Check(t, qt.ErrorMatches(s.exec(&out, "f(X= 1"), `left operand: column 4: expected ',' or '\)'`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, "X = "), `right operand: column 1: unexpected end of input`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, "X"), `expected t1 = t2, \? t or a command; try :help`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, ":drop"), `no clone to drop`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, ":block Nope"), `unknown variable "Nope"`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, ":var foo X"), `unknown quantification "foo"`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, ":var univ x"), `"x" is not a variable name`))
	qt.Check(t, qt.ErrorMatches(s.exec(&out, ":frob"), `unknown command :frob; try :help`))
	qt.Check(t, qt.Equals(out.String(), ""))

	err := s.runBatch(strings.NewReader("X = 1\n:quit\n:frob\n"), &out)
	qt.Assert(t, qt.IsNil(err))
	err = s.runBatch(strings.NewReader("X = 1\n\nf( = X\n"), &out)
	qt.Assert(t, qt.ErrorMatches(err, `line 3: left operand: .*`))
}

func TestSessionCollect(t *testing.T) {
	s := newTestSession(t, false)
	var out bytes.Buffer
	err := s.runBatch(strings.NewReader("A = f(g(1))\n? h(5)\n"), &out)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(s.tab.Len(), 6))

	// Unreferenced terms go one level per cycle, after the cycle
	// in which they were allocated.
	for range 3 {
		qt.Assert(t, qt.IsNil(s.exec(&out, ":gc")))
	}
	qt.Assert(t, qt.Equals(s.tab.Len(), 4))
	qt.Assert(t, qt.Equals(s.heap.Len(), 4))

	out.Reset()
	qt.Assert(t, qt.IsNil(s.exec(&out, "? A")))
	qt.Assert(t, qt.Equals(out.String(), "f(g(1))\n"))
}

func TestSessionJSON(t *testing.T) {
	s := newTestSession(t, false)
	s.json = true
	var out bytes.Buffer
	qt.Assert(t, qt.IsNil(s.exec(&out, ":gc")))
	qt.Assert(t, qt.Matches(out.String(), `\{"gen":1,"objects":0,"reachable":0,"marked":0,"evicted":0,"retried":0,"duration":\d+\}\n`))

	out.Reset()
	qt.Assert(t, qt.IsNil(s.exec(&out, "X = 1")))
	out.Reset()
	qt.Assert(t, qt.IsNil(s.exec(&out, ":stats")))
	qt.Assert(t, qt.Matches(out.String(), `\{"count":2,"evictions":0,"retries":0,"shards":\[.*\]\}\n`))
}

func TestSessionGraph(t *testing.T) {
	s := newTestSession(t, false)
	var out bytes.Buffer
	err := s.runBatch(strings.NewReader("Y = Z\nX = f(Y)\n? W\n:block W\n"), &out)
	qt.Assert(t, qt.IsNil(err))

	out.Reset()
	qt.Assert(t, qt.IsNil(s.exec(&out, ":graph")))
	x, z, w := s.vars["X"].Serial(), s.vars["Z"].Serial(), s.vars["W"].Serial()
	want := fmt.Sprintf(`graph TD
  c%[2]d["Z = Y"]
  c%[1]d["X := f(Y)"]
  c%[1]d-->c%[2]d
  c%[3]d["W"]
  style c%[3]d fill:#eee,stroke-dasharray:4
`, x, z, w)
	qt.Assert(t, qt.Equals(out.String(), want))
}
