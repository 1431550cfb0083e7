package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sugawarayuuta/sonnet"

	"github.com/rogpeppe/hashcons/expr"
	"github.com/rogpeppe/hashcons/gc"
	"github.com/rogpeppe/hashcons/hcons"
	"github.com/rogpeppe/hashcons/subst"
)

const helpText = `t1 = t2          unify two terms
? t              apply the substitution to a term
:show            print the equivalence classes
:clone           push a clone of the substitution
:drop            discard the most recent clone
:var q X...      declare variables with quantification q
:block X         block the class of X
:unblock X       unblock the class of X
:unblockall      unblock every class
:cycles          print cyclic groups of classes
:graph           print the class dependency graph as a Mermaid flowchart
:gc              run a collection cycle
:stats           print table statistics
:quit            exit
`

var errQuit = errors.New("quit")

// session holds the state of an interactive unification session.
type session struct {
	heap  *gc.Heap
	tab   *hcons.Table
	b     *expr.Builder
	json  bool
	quant expr.Quant

	// stack holds the substitution and its live ancestors.
	// Only the last element is mutable.
	stack []*subst.Subst

	vars  map[string]expr.Expr
	names map[expr.Expr]string
}

type sessionParams struct {
	Heap          *gc.Heap
	Table         *hcons.Table
	QSet          expr.QSet
	NonIdempotent bool
	JSON          bool
}

func newSession(p sessionParams) *session {
	b := expr.NewBuilder(p.Table)
	newSubst := subst.New
	if p.NonIdempotent {
		newSubst = subst.NewNonIdempotent
	}
	return &session{
		heap:  p.Heap,
		tab:   p.Table,
		b:     b,
		json:  p.JSON,
		quant: expr.Univ,
		stack: []*subst.Subst{newSubst(b, p.QSet)},
		vars:  make(map[string]expr.Expr),
		names: make(map[expr.Expr]string),
	}
}

func (s *session) subst() *subst.Subst {
	return s.stack[len(s.stack)-1]
}

// variable returns the variable with the given name,
// making a new one with the default quantification if needed.
func (s *session) variable(name string) expr.Expr {
	if v, ok := s.vars[name]; ok {
		return v
	}
	return s.declare(name, s.quant)
}

func (s *session) declare(name string, q expr.Quant) expr.Expr {
	v := s.b.NewVar(q)
	if old, ok := s.vars[name]; ok {
		delete(s.names, old)
	}
	s.vars[name] = v
	s.names[v] = name
	return v
}

func (s *session) name(v expr.Expr) string {
	return s.names[v]
}

func (s *session) parse(src string) (expr.Expr, error) {
	return parseTerm(s.b, src, s.variable)
}

func (s *session) format(e expr.Expr) string {
	return e.Format(s.name)
}

// exec runs a single command line, writing any output to w.
func (s *session) exec(w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, ":"):
		return s.command(w, strings.Fields(line))
	case strings.HasPrefix(line, "?"):
		e, err := s.parse(line[1:])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, s.format(s.resolve(e)))
		return nil
	}
	lhs, rhs, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("expected t1 = t2, ? t or a command; try :help")
	}
	e0, err := s.parse(lhs)
	if err != nil {
		return fmt.Errorf("left operand: %w", err)
	}
	e1, err := s.parse(rhs)
	if err != nil {
		return fmt.Errorf("right operand: %w", err)
	}
	if r, ok := s.unify(e0, e1); ok {
		fmt.Fprintln(w, s.format(s.resolve(r)))
	} else {
		fmt.Fprintln(w, "no")
	}
	return nil
}

// unify unifies e0 and e1 in a trial clone of the current
// substitution, which replaces it only if unification succeeds.
func (s *session) unify(e0, e1 expr.Expr) (expr.Expr, bool) {
	cur := s.subst()
	trial := subst.NewClone(cur)
	r, ok := trial.UnifyAux(e0, e1, nil)
	if !ok {
		trial.Delete()
		return expr.Expr{}, false
	}
	cur.Delete()
	s.stack[len(s.stack)-1] = trial
	return r, true
}

// resolve applies the current substitution to e.
func (s *session) resolve(e expr.Expr) expr.Expr {
	sb := s.subst()
	if sb.IsIdempotent() {
		return sb.Apply(e)
	}
	return sb.Expand(e)
}

func (s *session) command(w io.Writer, args []string) error {
	switch args[0] {
	case ":help":
		io.WriteString(w, helpText)
	case ":quit":
		return errQuit
	case ":show":
		return s.subst().Print(w, s.name)
	case ":clone":
		s.stack = append(s.stack, subst.NewClone(s.subst()))
	case ":drop":
		if len(s.stack) == 1 {
			return fmt.Errorf("no clone to drop")
		}
		s.subst().Delete()
		s.stack = s.stack[:len(s.stack)-1]
	case ":var":
		if len(args) < 3 {
			return fmt.Errorf("usage: :var quant name...")
		}
		q, err := expr.ParseQuant(args[1])
		if err != nil {
			return err
		}
		for _, name := range args[2:] {
			if !isVarName(name) {
				return fmt.Errorf("%q is not a variable name", name)
			}
			s.declare(name, q)
		}
	case ":block", ":unblock":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s name", args[0])
		}
		v, ok := s.vars[args[1]]
		if !ok {
			return fmt.Errorf("unknown variable %q", args[1])
		}
		if args[0] == ":unblock" {
			s.subst().Unblock(v)
		} else if !s.subst().Block(v) {
			return fmt.Errorf("cannot block %s", args[1])
		}
	case ":unblockall":
		s.subst().UnblockAll()
	case ":cycles":
		for _, cycle := range s.subst().Cycles() {
			members := make([]string, len(cycle))
			for i, c := range cycle {
				members[i] = s.format(c.Primary())
			}
			fmt.Fprintln(w, strings.Join(members, " "))
		}
	case ":graph":
		_, err := w.Write(s.marshalMermaid())
		return err
	case ":gc":
		return s.output(w, s.collect())
	case ":stats":
		st := s.tab.Stats()
		if s.json {
			return s.output(w, st)
		}
		capacity := 0
		for _, sh := range st.Shards {
			capacity += sh.Capacity
		}
		fmt.Fprintf(w, "objects %d capacity %d evictions %d retries %d heap %d\n",
			st.Count, capacity, st.Evictions, st.Retries, s.heap.Len())
	default:
		return fmt.Errorf("unknown command %s; try :help", args[0])
	}
	return nil
}

// collect runs a collection cycle, keeping alive everything the
// session can still refer to.
func (s *session) collect() gc.CycleStats {
	var pinned []*hcons.Object
	pin := func(e expr.Expr) {
		s.heap.Pin(e.Object())
		pinned = append(pinned, e.Object())
	}
	for _, v := range s.vars {
		pin(v)
	}
	for _, sb := range s.stack {
		for e := range sb.Terms() {
			pin(e)
		}
	}
	defer func() {
		for _, o := range pinned {
			s.heap.Unpin(o)
		}
	}()
	return s.heap.Collect()
}

func (s *session) output(w io.Writer, v any) error {
	if !s.json {
		if st, ok := v.(gc.CycleStats); ok {
			_, err := fmt.Fprintf(w, "gen %d objects %d reachable %d marked %d evicted %d retried %d\n",
				st.Gen, st.Objects, st.Reachable, st.Marked, st.Evicted, st.Retried)
			return err
		}
	}
	data, err := sonnet.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
