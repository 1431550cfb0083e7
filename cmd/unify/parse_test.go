package main

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/rogpeppe/hashcons/expr"
	"github.com/rogpeppe/hashcons/gc"
	"github.com/rogpeppe/hashcons/hcons"
)

func newTestSession(t *testing.T, nonIdem bool) *session {
	heap := gc.New(nil)
	tab, err := hcons.NewTable(heap, nil)
	qt.Assert(t, qt.IsNil(err))
	return newSession(sessionParams{
		Heap:          heap,
		Table:         tab,
		QSet:          expr.QSetOf(expr.Univ, expr.Exist, expr.Weak),
		NonIdempotent: nonIdem,
	})
}

var parseTests = []struct {
	src  string
	want string
}{{
	src:  "X",
	want: "X",
}, {
	src:  "  42 ",
	want: "42",
}, {
	src:  "-7",
	want: "-7",
}, {
	src:  "nil",
	want: "nil",
}, {
	src:  "f(X, g(Y), 3)",
	want: "f(X, g(Y), 3)",
}, {
	src:  "cons(_a,cons( B1 ,nil))",
	want: "cons(_a, cons(B1, nil))",
}, {
	src:  "héllo(Ünïcode)",
	want: "héllo(Ünïcode)",
}}

func TestParse(t *testing.T) {
	s := newTestSession(t, false)
	for _, test := range parseTests {
		t.Run(test.src, func(t *testing.T) {
			e, err := s.parse(test.src)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(s.format(e), test.want))
		})
	}
}

func TestParseSharing(t *testing.T) {
	s := newTestSession(t, false)
	e0, err := s.parse("f(X, g(X))")
	qt.Assert(t, qt.IsNil(err))
	e1, err := s.parse("f( X,g(X) )")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(e0, e1))
	qt.Assert(t, qt.Equals(e0.Arg(0), s.vars["X"]))

	// The same name with a different arity is a different operator.
	e2, err := s.parse("g(X, X)")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.Equals(e2.Opr(), e0.Arg(1).Opr())))
}

var parseErrorTests = []struct {
	src     string
	wantCol int
	wantMsg string
}{{
	src:     "",
	wantCol: 1,
	wantMsg: "unexpected end of input",
}, {
	src:     "f(X",
	wantCol: 4,
	wantMsg: "expected ',' or ')'",
}, {
	src:     "f(X,)",
	wantCol: 5,
	wantMsg: `unexpected ')'`,
}, {
	src:     "X Y",
	wantCol: 3,
	wantMsg: `unexpected "Y" after term`,
}, {
	src:     "-",
	wantCol: 1,
	wantMsg: `invalid integer "-"`,
}, {
	src:     "99999999999999999999",
	wantCol: 1,
	wantMsg: `invalid integer "99999999999999999999"`,
}}

func TestParseError(t *testing.T) {
	s := newTestSession(t, false)
	for _, test := range parseErrorTests {
		t.Run(test.src, func(t *testing.T) {
			_, err := s.parse(test.src)
			var perr *ParseError
			qt.Assert(t, qt.ErrorAs(err, &perr))
			qt.Check(t, qt.Equals(perr.Col, test.wantCol))
			qt.Check(t, qt.Equals(perr.Msg, test.wantMsg))
		})
	}
}

func TestIsVarName(t *testing.T) {
	qt.Check(t, qt.IsTrue(isVarName("X")))
	qt.Check(t, qt.IsTrue(isVarName("_x1")))
	qt.Check(t, qt.IsFalse(isVarName("x")))
	qt.Check(t, qt.IsFalse(isVarName("1X")))
	qt.Check(t, qt.IsFalse(isVarName("X-Y")))
	qt.Check(t, qt.IsFalse(isVarName("")))
}
