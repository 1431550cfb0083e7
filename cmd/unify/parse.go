package main

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/rogpeppe/hashcons/expr"
)

// ParseError describes a syntax error in a term.
type ParseError struct {
	// Col holds the 1-based column of the error.
	Col int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("column %d: %s", e.Col, e.Msg)
}

// parser reads terms of the form
//
//	term := int | Var | op | op '(' term {',' term} ')'
//
// Identifiers starting with an upper case letter or an underscore
// are variables; other identifiers name operators, whose arity is the
// number of arguments they are applied to.
type parser struct {
	b   *expr.Builder
	src string
	pos int

	// variable returns the variable with the given name.
	variable func(name string) expr.Expr
}

// parseTerm parses src, which must hold exactly one term.
func parseTerm(b *expr.Builder, src string, variable func(string) expr.Expr) (expr.Expr, error) {
	p := &parser{
		b:        b,
		src:      src,
		variable: variable,
	}
	e, err := p.term()
	if err != nil {
		return expr.Expr{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return expr.Expr{}, p.errorf("unexpected %q after term", p.src[p.pos:])
	}
	return e, nil
}

func (p *parser) term() (expr.Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return expr.Expr{}, p.errorf("unexpected end of input")
	}
	start := p.pos
	c := p.src[p.pos]
	if c == '-' || isDigit(c) {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		text := p.src[start:p.pos]
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.pos = start
			return expr.Expr{}, p.errorf("invalid integer %q", text)
		}
		return p.b.Int(n), nil
	}
	name := p.ident()
	if name == "" {
		return expr.Expr{}, p.errorf("unexpected %q", c)
	}
	if isVarName(name) {
		return p.variable(name), nil
	}
	p.skipSpace()
	if !p.consume('(') {
		return p.b.Opn(expr.NewOpr(name, 0)), nil
	}
	var args []expr.Expr
	for {
		a, err := p.term()
		if err != nil {
			return expr.Expr{}, err
		}
		args = append(args, a)
		p.skipSpace()
		if p.consume(')') {
			break
		}
		if !p.consume(',') {
			return expr.Expr{}, p.errorf("expected ',' or ')'")
		}
	}
	if len(args) > 0xff {
		p.pos = start
		return expr.Expr{}, p.errorf("too many arguments to %s", name)
	}
	return p.b.Opn(expr.NewOpr(name, len(args)), args...), nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, n := utf8.DecodeRuneInString(p.src[p.pos:])
		if r != '_' && !unicode.IsLetter(r) && !(p.pos > start && unicode.IsDigit(r)) {
			break
		}
		p.pos += n
	}
	return p.src[start:p.pos]
}

func (p *parser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) errorf(f string, a ...any) error {
	return &ParseError{
		Col: p.pos + 1,
		Msg: fmt.Sprintf(f, a...),
	}
}

// isVarName reports whether name is an identifier that names a variable.
func isVarName(name string) bool {
	for i, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !(i > 0 && unicode.IsDigit(r)) {
			return false
		}
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r == '_' || unicode.IsUpper(r)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
