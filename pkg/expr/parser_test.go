// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string

		wantExpr Expr
		wantErr  error
	}{
		{
			name:  "ok - number literal",
			input: "42",

			wantExpr: &NumberLit{Value: 42},
		},
		{
			name:  "ok - decimal literal",
			input: "0.25",

			wantExpr: &NumberLit{Value: 0.25},
		},
		{
			name:  "ok - identifier",
			input: "amount",

			wantExpr: &Ident{Name: "amount"},
		},
		{
			name:  "ok - multiplication binds tighter than addition",
			input: "a + b * c",

			wantExpr: &BinaryExpr{
				Op:   OpAdd,
				Left: &Ident{Name: "a"},
				Right: &BinaryExpr{
					Op:    OpMul,
					Left:  &Ident{Name: "b"},
					Right: &Ident{Name: "c"},
				},
			},
		},
		{
			name:  "ok - subtraction is left associative",
			input: "a - b - c",

			wantExpr: &BinaryExpr{
				Op: OpSub,
				Left: &BinaryExpr{
					Op:    OpSub,
					Left:  &Ident{Name: "a"},
					Right: &Ident{Name: "b"},
				},
				Right: &Ident{Name: "c"},
			},
		},
		{
			name:  "ok - parentheses override precedence",
			input: "(a + b) * c",

			wantExpr: &BinaryExpr{
				Op: OpMul,
				Left: &BinaryExpr{
					Op:    OpAdd,
					Left:  &Ident{Name: "a"},
					Right: &Ident{Name: "b"},
				},
				Right: &Ident{Name: "c"},
			},
		},
		{
			name:  "ok - unary minus",
			input: "-amount * 100",

			wantExpr: &BinaryExpr{
				Op:    OpMul,
				Left:  &UnaryExpr{Op: OpSub, Expr: &Ident{Name: "amount"}},
				Right: &NumberLit{Value: 100},
			},
		},
		{
			name:  "error - empty input",
			input: "",

			wantErr: ErrSyntax,
		},
		{
			name:  "error - trailing operator",
			input: "a +",

			wantErr: ErrSyntax,
		},
		{
			name:  "error - missing closing parenthesis",
			input: "(a + b",

			wantErr: ErrSyntax,
		},
		{
			name:  "error - adjacent operands",
			input: "a b",

			wantErr: ErrSyntax,
		},
		{
			name:  "error - unsupported character",
			input: "a % b",

			wantErr: ErrSyntax,
		},
		{
			name:  "error - function call syntax",
			input: "len(a)",

			wantErr: ErrSyntax,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := Parse(tc.input)
			require.ErrorIs(t, err, tc.wantErr)
			if tc.wantErr != nil {
				return
			}
			require.Equal(t, tc.wantExpr, parsed)
		})
	}
}
