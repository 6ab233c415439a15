// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package calc

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is wrapped by every *ParseError.
	ErrParse = errors.New("invalid expression")
	// ErrDivideByZero is returned when an expression divides by zero.
	ErrDivideByZero = errors.New("division by zero")
)

// ParseError describes where an expression is malformed.
type ParseError struct {
	Pos int
	Msg string
}

func newParseError(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Pos)
}

// Unwrap lets callers match ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Expr is a parsed expression.
type Expr interface {
	eval(cpus float64) (float64, error)
	String() string
}

type number float64

func (n number) eval(float64) (float64, error) { return float64(n), nil }

func (n number) String() string { return fmt.Sprintf("%g", float64(n)) }

type cpuCount struct{}

func (cpuCount) eval(cpus float64) (float64, error) { return cpus, nil }

func (cpuCount) String() string { return CPUCountName }

type binary struct {
	op          byte
	left, right Expr
}

func (b binary) eval(cpus float64) (float64, error) {
	l, err := b.left.eval(cpus)
	if err != nil {
		return 0, err
	}

	r, err := b.right.eval(cpus)
	if err != nil {
		return 0, err
	}

	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	default:
		if r == 0 {
			return 0, fmt.Errorf("%w in %s", ErrDivideByZero, b)
		}

		return l / r, nil
	}
}

func (b binary) String() string {
	return fmt.Sprintf("(%s %c %s)", b.left, b.op, b.right)
}

// Parse parses s into an expression tree.
func Parse(s string) (Expr, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}

	if len(toks) == 0 {
		return nil, newParseError(0, "empty expression")
	}

	p := &parser{toks: toks, end: len(s)}

	e, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.i < len(p.toks) {
		t := p.toks[p.i]
		if t.kind == tokRParen {
			return nil, newParseError(t.pos, "unbalanced parentheses")
		}

		return nil, newParseError(t.pos, "unexpected token")
	}

	return e, nil
}

type parser struct {
	toks []token
	i    int
	end  int
}

func (p *parser) peek() (token, bool) {
	if p.i >= len(p.toks) {
		return token{}, false
	}

	return p.toks[p.i], true
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}

	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOperator || (t.op != '+' && t.op != '-') {
			return left, nil
		}

		p.i++

		right, err := p.term()
		if err != nil {
			return nil, err
		}

		left = binary{op: t.op, left: left, right: right}
	}
}

func (p *parser) term() (Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}

	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOperator || (t.op != '*' && t.op != '/') {
			return left, nil
		}

		p.i++

		right, err := p.factor()
		if err != nil {
			return nil, err
		}

		left = binary{op: t.op, left: left, right: right}
	}
}

func (p *parser) factor() (Expr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, newParseError(p.end, "unexpected end of expression")
	}

	switch t.kind {
	case tokNumber:
		p.i++
		return number(t.num), nil

	case tokCPUCount:
		p.i++
		if t.neg {
			return binary{op: '*', left: number(-1), right: cpuCount{}}, nil
		}

		return cpuCount{}, nil

	case tokLParen:
		p.i++

		e, err := p.expr()
		if err != nil {
			return nil, err
		}

		if c, ok := p.peek(); !ok || c.kind != tokRParen {
			return nil, newParseError(t.pos, "unbalanced parentheses")
		}

		p.i++

		return e, nil

	case tokOperator:
		if p.i == 0 || p.toks[p.i-1].kind == tokLParen {
			return nil, newParseError(t.pos, "operator %q at start of expression", t.op)
		}

		return nil, newParseError(t.pos, "operator %q follows another operator", t.op)

	default:
		return nil, newParseError(t.pos, "unbalanced parentheses")
	}
}
