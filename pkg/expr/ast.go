// SPDX-License-Identifier: Apache-2.0

// Package expr implements the restricted arithmetic grammar used by
// computed fields: numeric literals, field identifiers, unary minus and
// + - * / with standard precedence and parentheses. Expressions come from
// policy files edited by operators, so this is a closed grammar evaluated
// over a field namespace, never a general-purpose evaluator.
package expr

import "errors"

var (
	ErrSyntax            = errors.New("invalid expression syntax")
	ErrUnknownIdentifier = errors.New("expression references an unknown field")
	ErrUnsupportedValue  = errors.New("field value is not numeric")
	ErrDivisionByZero    = errors.New("division by zero")
)

// Expr is a node of the parsed expression tree.
type Expr interface {
	exprNode()
}

type NumberLit struct {
	Value float64
}

type Ident struct {
	Name string
}

type BinaryExpr struct {
	Op    Op
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	Op   Op
	Expr Expr
}

func (*NumberLit) exprNode()  {}
func (*Ident) exprNode()      {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}

type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
)
