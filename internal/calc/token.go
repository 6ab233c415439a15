// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package calc

import (
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokCPUCount
	tokOperator
	tokLParen
	tokRParen
)

// CPUCountName is the identifier that evaluates to the number of logical CPUs.
const CPUCountName = "cpuCount"

type token struct {
	kind tokenKind
	pos  int
	op   byte
	num  float64
	neg  bool // only used with tokCPUCount
}

func isOperator(c byte) bool {
	return c == '+' || c == '-' || c == '*' || c == '/'
}

func isIdentRune(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// operandExpected reports whether the next token must start an operand,
// which is where a minus sign may be unary.
func operandExpected(toks []token) bool {
	if len(toks) == 0 {
		return true
	}

	last := toks[len(toks)-1].kind

	return last == tokOperator || last == tokLParen
}

func tokenize(s string) ([]token, error) {
	var toks []token

	for i := 0; i < len(s); {
		c := s[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++

		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++

		case c == '-' && operandExpected(toks) && i+1 < len(s) && startsOperand(s[i+1]):
			tok, next, err := scanOperand(s, i+1)
			if err != nil {
				return nil, err
			}

			tok.pos = i
			if tok.kind == tokNumber {
				tok.num = -tok.num
			} else {
				tok.neg = true
			}

			toks = append(toks, tok)
			i = next

		case isOperator(c):
			toks = append(toks, token{kind: tokOperator, pos: i, op: c})
			i++

		case startsOperand(c):
			tok, next, err := scanOperand(s, i)
			if err != nil {
				return nil, err
			}

			toks = append(toks, tok)
			i = next

		default:
			return nil, newParseError(i, "unexpected character %q", c)
		}
	}

	return toks, nil
}

func startsOperand(c byte) bool {
	return c == '.' || (c >= '0' && c <= '9') || unicode.IsLetter(rune(c))
}

// scanOperand reads a number or identifier starting at i.
func scanOperand(s string, i int) (token, int, error) {
	start := i
	for i < len(s) && (isIdentRune(s[i]) || s[i] == '.') {
		i++
	}

	word := s[start:i]

	if unicode.IsLetter(rune(word[0])) {
		if word != CPUCountName {
			return token{}, 0, newParseError(start, "unknown identifier %q", word)
		}

		return token{kind: tokCPUCount, pos: start}, i, nil
	}

	if !validNumber(word) {
		return token{}, 0, newParseError(start, "malformed number %q", word)
	}

	n, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return token{}, 0, newParseError(start, "malformed number %q", word)
	}

	return token{kind: tokNumber, pos: start, num: n}, i, nil
}

// validNumber accepts digits with at most one decimal point and at least one digit on each side of it.
func validNumber(w string) bool {
	digitsBefore, digitsAfter, dots := 0, 0, 0

	for i := 0; i < len(w); i++ {
		switch c := w[i]; {
		case c == '.':
			dots++
		case c >= '0' && c <= '9':
			if dots == 0 {
				digitsBefore++
			} else {
				digitsAfter++
			}
		default:
			return false
		}
	}

	switch dots {
	case 0:
		return digitsBefore > 0
	case 1:
		return digitsBefore > 0 && digitsAfter > 0
	default:
		return false
	}
}
