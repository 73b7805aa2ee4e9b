// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenNumber
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

type token struct {
	typ tokenType
	lit string
	pos int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	switch c := l.input[l.pos]; {
	case c == '+':
		l.pos++
		return token{typ: tokenPlus, lit: "+", pos: start}, nil
	case c == '-':
		l.pos++
		return token{typ: tokenMinus, lit: "-", pos: start}, nil
	case c == '*':
		l.pos++
		return token{typ: tokenStar, lit: "*", pos: start}, nil
	case c == '/':
		l.pos++
		return token{typ: tokenSlash, lit: "/", pos: start}, nil
	case c == '(':
		l.pos++
		return token{typ: tokenLParen, lit: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{typ: tokenRParen, lit: ")", pos: start}, nil
	case isDigit(c):
		return l.lexNumber(), nil
	case isIdentStart(rune(c)):
		return l.lexIdent(), nil
	default:
		return token{}, fmt.Errorf("%w: unexpected character %q at position %d", ErrSyntax, c, start)
	}
}

func (l *lexer) lexNumber() token {
	start := l.pos
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	return token{typ: tokenNumber, lit: l.input[start:l.pos], pos: start}
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	return token{typ: tokenIdent, lit: l.input[start:l.pos], pos: start}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
