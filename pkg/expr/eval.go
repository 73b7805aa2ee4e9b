// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"
	"math"
	"strconv"
)

// maxExactInt is the largest float64 magnitude whose integral values are
// exactly representable; above it results stay floating point.
const maxExactInt = 1 << 53

// Eval evaluates a parsed expression against the field namespace on input.
// Null field values coerce to zero. Integral results are returned as int64,
// everything else as float64.
func Eval(e Expr, fields map[string]any) (any, error) {
	result, err := eval(e, fields)
	if err != nil {
		return nil, err
	}

	if result == math.Trunc(result) && math.Abs(result) < maxExactInt {
		return int64(result), nil
	}
	return result, nil
}

func eval(e Expr, fields map[string]any) (float64, error) {
	switch node := e.(type) {
	case *NumberLit:
		return node.Value, nil

	case *Ident:
		value, found := fields[node.Name]
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownIdentifier, node.Name)
		}
		return toFloat(node.Name, value)

	case *UnaryExpr:
		operand, err := eval(node.Expr, fields)
		if err != nil {
			return 0, err
		}
		return -operand, nil

	case *BinaryExpr:
		left, err := eval(node.Left, fields)
		if err != nil {
			return 0, err
		}
		right, err := eval(node.Right, fields)
		if err != nil {
			return 0, err
		}
		switch node.Op {
		case OpAdd:
			return left + right, nil
		case OpSub:
			return left - right, nil
		case OpMul:
			return left * right, nil
		case OpDiv:
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			return left / right, nil
		}
		return 0, fmt.Errorf("%w: unknown operator %q", ErrSyntax, node.Op)

	default:
		return 0, fmt.Errorf("%w: unknown expression node %T", ErrSyntax, e)
	}
}

func toFloat(name string, value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		// numeric/decimal columns often scan as strings
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q", ErrUnsupportedValue, name)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%w: field %q of type %T", ErrUnsupportedValue, name, value)
	}
}
