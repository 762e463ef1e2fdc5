package runtime

import (
	"math"

	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

// arithmetic implements the Add/Subtract/Multiply/Divide/Mod opcodes.
// Integer+Integer stays Integer; any Number operand promotes the
// result to Number; String+String concatenates; every other
// combination is a type mismatch (spec.md §4.3 "Errors during
// execution").
func arithmetic(op Opcode, a, b value.Value) (value.Value, error) {
	if op == Add && a.Tag() == value.String && b.Tag() == value.String {
		return value.NewString(a.AsString() + b.AsString()), nil
	}
	if !isNumeric(a) || !isNumeric(b) {
		return value.Value{}, typeMismatchErr(op, a.Tag())
	}
	if a.Tag() == value.Integer && b.Tag() == value.Integer {
		x, y := a.AsInteger(), b.AsInteger()
		switch op {
		case Add:
			return value.NewInteger(x + y), nil
		case Subtract:
			return value.NewInteger(x - y), nil
		case Multiply:
			return value.NewInteger(x * y), nil
		case Divide:
			if y == 0 {
				return value.Value{}, werrors.NewRuntimeErr("division by zero")
			}
			return value.NewInteger(x / y), nil
		case Mod:
			if y == 0 {
				return value.Value{}, werrors.NewRuntimeErr("division by zero")
			}
			return value.NewInteger(x % y), nil
		}
	}
	x, y := numericVal(a), numericVal(b)
	switch op {
	case Add:
		return value.NewNumber(x + y), nil
	case Subtract:
		return value.NewNumber(x - y), nil
	case Multiply:
		return value.NewNumber(x * y), nil
	case Divide:
		if y == 0 {
			return value.Value{}, werrors.NewRuntimeErr("division by zero")
		}
		return value.NewNumber(x / y), nil
	case Mod:
		if y == 0 {
			return value.Value{}, werrors.NewRuntimeErr("division by zero")
		}
		return value.NewNumber(math.Mod(x, y)), nil
	}
	return value.Value{}, typeMismatchErr(op, a.Tag())
}

func isNumeric(v value.Value) bool { return v.Tag() == value.Number || v.Tag() == value.Integer }

func numericVal(v value.Value) float64 {
	if v.Tag() == value.Integer {
		return float64(v.AsInteger())
	}
	return v.AsNumber()
}

// compare implements the Equals/NotEquals/Less/LessEq/Greater/GreaterEq
// opcodes.
func compare(op Opcode, a, b value.Value) (value.Value, error) {
	switch op {
	case Equals:
		return value.NewBoolean(value.Equal(a, b)), nil
	case NotEquals:
		return value.NewBoolean(!value.Equal(a, b)), nil
	}
	c, err := value.Compare(a, b)
	if err != nil {
		return value.Value{}, werrors.NewRuntimeErr("%s", err.Error())
	}
	switch op {
	case Less:
		return value.NewBoolean(c < 0), nil
	case LessEq:
		return value.NewBoolean(c <= 0), nil
	case Greater:
		return value.NewBoolean(c > 0), nil
	case GreaterEq:
		return value.NewBoolean(c >= 0), nil
	default:
		return value.Value{}, typeMismatchErr(op, a.Tag())
	}
}

// castValue implements the Cast opcode, the only place Variants cross
// type tags explicitly (truthiness coercion aside).
func castValue(v value.Value, to value.Type) (value.Value, error) {
	switch to {
	case value.Number:
		switch v.Tag() {
		case value.Number:
			return v, nil
		case value.Integer:
			return value.NewNumber(float64(v.AsInteger())), nil
		case value.String:
			return value.Value{}, werrors.NewRuntimeErr("cannot cast string to number without a parse")
		default:
			return value.Value{}, typeMismatchErr(Cast, v.Tag())
		}
	case value.Integer:
		switch v.Tag() {
		case value.Integer:
			return v, nil
		case value.Number:
			return value.NewInteger(int64(v.AsNumber())), nil
		default:
			return value.Value{}, typeMismatchErr(Cast, v.Tag())
		}
	case value.String:
		return value.NewString(v.String()), nil
	case value.Boolean:
		return value.NewBoolean(v.Truthy()), nil
	default:
		return value.Value{}, typeMismatchErr(Cast, v.Tag())
	}
}
