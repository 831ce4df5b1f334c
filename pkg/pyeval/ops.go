package pyeval

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// maxShift bounds left shifts so that a typo cannot exhaust memory.
const maxShift = 1 << 16

func binaryOp(op string, left, right Value) (Value, error) {
	switch l := left.(type) {
	case Str:
		return strOp(op, l, right)
	case Tuple:
		return seqOp(op, []Value(l), right, func(vals []Value) Value { return Tuple(vals) })
	case *List:
		return seqOp(op, l.Elems, right, func(vals []Value) Value { return &List{Elems: vals} })
	}

	if s, ok := right.(Str); ok && op == "*" {
		return strOp(op, s, left)
	}

	if !isNumber(left) || !isNumber(right) {
		return nil, unsupportedOperands(op, left, right)
	}

	li, lok := asInt(left)
	ri, rok := asInt(right)

	if lok && rok {
		return intOp(op, li, ri)
	}

	lf, _ := asFloat(left)
	rf, _ := asFloat(right)

	return floatOp(op, lf, rf)
}

func unsupportedOperands(op string, left, right Value) error {
	return typeError("unsupported operand type(s) for %s: '%s' and '%s'", op, left.TypeName(), right.TypeName())
}

func intOp(op string, a, b *big.Int) (Value, error) {
	z := new(big.Int)

	switch op {
	case "+":
		z.Add(a, b)
	case "-":
		z.Sub(a, b)
	case "*":
		z.Mul(a, b)
	case "/":
		if b.Sign() == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrZeroDivision)
		}

		q, _ := new(big.Rat).SetFrac(a, b).Float64()

		return Float(q), nil
	case "//", "%":
		if b.Sign() == 0 {
			return nil, fmt.Errorf("%w: integer division or modulo by zero", ErrZeroDivision)
		}

		q, m := floorDivMod(a, b)
		if op == "//" {
			return Int{V: q}, nil
		}

		return Int{V: m}, nil
	case "**":
		if b.Sign() < 0 {
			af, _ := asFloat(Int{V: a})
			bf, _ := asFloat(Int{V: b})

			return floatOp(op, af, bf)
		}

		z.Exp(a, b, nil)
	case "&":
		z.And(a, b)
	case "|":
		z.Or(a, b)
	case "^":
		z.Xor(a, b)
	case "<<", ">>":
		if b.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative shift count", ErrValue)
		}

		if !b.IsInt64() || b.Int64() > maxShift {
			return nil, fmt.Errorf("%w: shift count too large", ErrValue)
		}

		if op == "<<" {
			z.Lsh(a, uint(b.Int64()))
		} else {
			z.Rsh(a, uint(b.Int64()))
		}
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
	}

	return Int{V: z}, nil
}

// floorDivMod rounds the quotient towards negative infinity so that the
// remainder takes the sign of the divisor.
func floorDivMod(a, b *big.Int) (*big.Int, *big.Int) {
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))

	if m.Sign() != 0 && m.Sign() != b.Sign() {
		q.Sub(q, big.NewInt(1))
		m.Add(m, b)
	}

	return q, m
}

func floatOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("%w: float division by zero", ErrZeroDivision)
		}

		return Float(a / b), nil
	case "//":
		if b == 0 {
			return nil, fmt.Errorf("%w: float floor division by zero", ErrZeroDivision)
		}

		return Float(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return nil, fmt.Errorf("%w: float modulo", ErrZeroDivision)
		}

		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}

		return Float(m), nil
	case "**":
		return Float(math.Pow(a, b)), nil
	default:
		return nil, typeError("unsupported operand type(s) for %s: 'float'", op)
	}
}

func strOp(op string, s Str, other Value) (Value, error) {
	switch op {
	case "+":
		o, ok := other.(Str)
		if !ok {
			return nil, typeError("can only concatenate str (not \"%s\") to str", other.TypeName())
		}

		return s + o, nil
	case "*":
		n, ok := repeatCount(other)
		if !ok {
			return nil, unsupportedOperands(op, s, other)
		}

		return Str(strings.Repeat(string(s), n)), nil
	case "%":
		return nil, fmt.Errorf("%w: printf-style formatting", ErrUnsupported)
	default:
		return nil, unsupportedOperands(op, s, other)
	}
}

func seqOp(op string, elems []Value, other Value, wrap func([]Value) Value) (Value, error) {
	switch op {
	case "+":
		if other.TypeName() != wrap(nil).TypeName() {
			return nil, unsupportedOperands(op, wrap(elems), other)
		}

		rest, _ := sequence(other)
		out := make([]Value, 0, len(elems)+len(rest))

		return wrap(append(append(out, elems...), rest...)), nil
	case "*":
		n, ok := repeatCount(other)
		if !ok {
			return nil, unsupportedOperands(op, wrap(elems), other)
		}

		out := make([]Value, 0, len(elems)*n)
		for range n {
			out = append(out, elems...)
		}

		return wrap(out), nil
	default:
		return nil, unsupportedOperands(op, wrap(elems), other)
	}
}

func repeatCount(v Value) (int, bool) {
	i, ok := asInt(v)
	if !ok || !i.IsInt64() {
		return 0, false
	}

	return max(int(i.Int64()), 0), true
}

func compareOp(op string, left, right Value) (bool, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "is":
		return identical(left, right), nil
	case "is not":
		return !identical(left, right), nil
	case "in", "not in":
		found, err := contains(right, left)
		if err != nil {
			return false, err
		}

		return found == (op == "in"), nil
	}

	c, err := order(left, right)
	if err != nil {
		return false, typeError("'%s' not supported between instances of '%s' and '%s'", op, left.TypeName(), right.TypeName())
	}

	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	default:
		return false, fmt.Errorf("%w: comparison %s", ErrUnsupported, op)
	}
}

// identical approximates `is` for the immutable singletons that programs
// compare by identity.
func identical(a, b Value) bool {
	switch x := a.(type) {
	case NoneType:
		_, ok := b.(NoneType)

		return ok
	case Bool:
		y, ok := b.(Bool)

		return ok && x == y
	case *List:
		y, ok := b.(*List)

		return ok && x == y
	case *Function, *Builtin:
		return a == b
	default:
		return false
	}
}

func contains(container, item Value) (bool, error) {
	if s, ok := container.(Str); ok {
		sub, ok := item.(Str)
		if !ok {
			return false, typeError("'in <string>' requires string as left operand, not %s", item.TypeName())
		}

		return strings.Contains(string(s), string(sub)), nil
	}

	vals, ok := sequence(container)
	if !ok {
		return false, typeError("argument of type '%s' is not iterable", container.TypeName())
	}

	for _, v := range vals {
		if equal(v, item) {
			return true, nil
		}
	}

	return false, nil
}

func order(a, b Value) (int, error) {
	if isNumber(a) && isNumber(b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)

		if aok && bok {
			return ai.Cmp(bi), nil
		}

		af, _ := asFloat(a)
		bf, _ := asFloat(b)

		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if as, ok := a.(Str); ok {
		if bs, ok := b.(Str); ok {
			return strings.Compare(string(as), string(bs)), nil
		}
	}

	if a.TypeName() == b.TypeName() {
		as, aok := sequence(a)
		bs, bok := sequence(b)

		if aok && bok {
			for i := 0; i < len(as) && i < len(bs); i++ {
				if equal(as[i], bs[i]) {
					continue
				}

				return order(as[i], bs[i])
			}

			return len(as) - len(bs), nil
		}
	}

	return 0, ErrType
}
