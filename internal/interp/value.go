package interp

import (
	"errors"
	"fmt"
	"go/token"
	"math"
	"strconv"
)

var errDivisionByZero = errors.New("integer divide by zero")

// TypeValue is the runtime value of a declared type. Calling it converts its
// argument to the underlying basic type.
type TypeValue struct {
	Name       string
	Underlying string
}

// Normalize maps host values onto the evaluator's value domain: every
// integer kind becomes int64, every float kind becomes float64. Runes stay
// int32 so a twisted rune is still a rune.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// Equal compares two values after normalization. Integers and floats compare
// numerically.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)

	if af, bf, ok := numericPair(a, b); ok {
		return af == bf
	}

	return a == b
}

// Format renders a value the way Go source would spell it.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case int32:
		return strconv.QuoteRune(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *Function:
		return "func " + x.Name
	case TypeValue:
		return "type " + x.Name
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}

// numericPair promotes both operands to float64 when both are numbers.
func numericPair(a, b any) (float64, float64, bool) {
	af, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}

	bf, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}

	return af, bf, true
}

func isFloat(v any) bool {
	_, ok := v.(float64)
	return ok
}

func binary(op token.Token, a, b any) (any, error) {
	switch op {
	case token.EQL:
		return Equal(a, b), nil
	case token.NEQ:
		return !Equal(a, b), nil
	case token.ADD:
		if as, ok := a.(string); ok {
			bs, ok := b.(string)
			if !ok {
				return nil, fmt.Errorf("mismatched operands %s + %s", Format(a), Format(b))
			}

			return as + bs, nil
		}
	}

	if ai, ok := toInt(a); ok && !isFloat(b) {
		if bi, ok := toInt(b); ok {
			return intBinary(op, ai, bi)
		}
	}

	if af, bf, ok := numericPair(a, b); ok {
		return floatBinary(op, af, bf)
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return stringCompare(op, as, bs)
		}
	}

	return nil, fmt.Errorf("invalid operation %s %s %s", Format(a), op, Format(b))
}

func intBinary(op token.Token, a, b int64) (any, error) {
	switch op {
	case token.ADD:
		return a + b, nil
	case token.SUB:
		return a - b, nil
	case token.MUL:
		return a * b, nil
	case token.QUO:
		if b == 0 {
			return nil, errDivisionByZero
		}

		return a / b, nil
	case token.REM:
		if b == 0 {
			return nil, errDivisionByZero
		}

		return a % b, nil
	case token.LSS:
		return a < b, nil
	case token.LEQ:
		return a <= b, nil
	case token.GTR:
		return a > b, nil
	case token.GEQ:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("operator %s not defined on integers", op)
	}
}

func floatBinary(op token.Token, a, b float64) (any, error) {
	switch op {
	case token.ADD:
		return a + b, nil
	case token.SUB:
		return a - b, nil
	case token.MUL:
		return a * b, nil
	case token.QUO:
		return a / b, nil
	case token.REM:
		return math.Mod(a, b), nil
	case token.LSS:
		return a < b, nil
	case token.LEQ:
		return a <= b, nil
	case token.GTR:
		return a > b, nil
	case token.GEQ:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("operator %s not defined on floats", op)
	}
}

func stringCompare(op token.Token, a, b string) (any, error) {
	switch op {
	case token.LSS:
		return a < b, nil
	case token.LEQ:
		return a <= b, nil
	case token.GTR:
		return a > b, nil
	case token.GEQ:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("operator %s not defined on strings", op)
	}
}

func unary(op token.Token, v any) (any, error) {
	switch op {
	case token.NOT:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("operator ! not defined on %s", Format(v))
		}

		return !b, nil
	case token.SUB:
		switch x := v.(type) {
		case int64:
			return -x, nil
		case int32:
			return -int64(x), nil
		case float64:
			return -x, nil
		}
	case token.ADD:
		if _, ok := toFloat(v); ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("operator %s not defined on %s", op, Format(v))
}

func convert(kind string, v any) (any, error) {
	switch kind {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "byte":
		if f, ok := v.(float64); ok {
			return int64(f), nil
		}

		if i, ok := toInt(v); ok {
			return i, nil
		}
	case "float32", "float64":
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case "string":
		switch x := v.(type) {
		case string:
			return x, nil
		case int32:
			return string(x), nil
		case int64:
			return string(rune(x)), nil
		}
	case "bool":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case "rune":
		if i, ok := toInt(v); ok {
			return int32(i), nil
		}
	}

	return nil, fmt.Errorf("cannot convert %s to %s", Format(v), kind)
}

func zeroValue(kind string) any {
	switch kind {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "byte":
		return int64(0)
	case "float32", "float64":
		return float64(0)
	case "string":
		return ""
	case "bool":
		return false
	case "rune":
		return int32(0)
	default:
		return nil
	}
}

func length(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("invalid argument %s for len", Format(v))
	}

	return int64(len(s)), nil
}
