// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"
	"strconv"
)

// Operator precedence levels, lowest first.
const (
	precedenceNone = iota
	precedenceAddition
	precedenceMultiply
	precedenceUnary
)

type parser struct {
	lexer lexer
	token token
}

// Parse parses an expression into its tree form. Parsing is independent of
// any field namespace; unknown identifiers only surface on evaluation.
func Parse(input string) (Expr, error) {
	p := &parser{lexer: lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}

	parsed, err := p.parseExpression(precedenceNone + 1)
	if err != nil {
		return nil, err
	}
	if p.token.typ != tokenEOF {
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, p.token.lit, p.token.pos)
	}
	return parsed, nil
}

func (p *parser) advance() error {
	tok, err := p.lexer.next()
	if err != nil {
		return err
	}
	p.token = tok
	return nil
}

// parseExpression implements precedence climbing: parse a prefix expression,
// then fold infix operators while their precedence holds.
func (p *parser) parseExpression(minPrecedence int) (Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		op, prec, ok := infixOp(p.token.typ)
		if !ok || prec < minPrecedence {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		right, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parsePrefix() (Expr, error) {
	switch p.token.typ {
	case tokenMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseExpression(precedenceUnary)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpSub, Expr: operand}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	switch tok := p.token; tok.typ {
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.lit, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, tok.lit)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NumberLit{Value: value}, nil

	case tokenIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Ident{Name: tok.lit}, nil

	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression(precedenceNone + 1)
		if err != nil {
			return nil, err
		}
		if p.token.typ != tokenRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis at position %d", ErrSyntax, p.token.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)

	default:
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, tok.lit, tok.pos)
	}
}

func infixOp(t tokenType) (Op, int, bool) {
	switch t {
	case tokenPlus:
		return OpAdd, precedenceAddition, true
	case tokenMinus:
		return OpSub, precedenceAddition, true
	case tokenStar:
		return OpMul, precedenceMultiply, true
	case tokenSlash:
		return OpDiv, precedenceMultiply, true
	default:
		return 0, precedenceNone, false
	}
}
