package pyeval

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

func installBuiltins(env *Env) {
	builtins := []*Builtin{
		{Name: "print", Fn: builtinPrint},
		{Name: "len", Fn: builtinLen},
		{Name: "abs", Fn: builtinAbs},
		{Name: "min", Fn: func(_ *run, args []Value) (Value, error) { return extreme("min", args, -1) }},
		{Name: "max", Fn: func(_ *run, args []Value) (Value, error) { return extreme("max", args, 1) }},
		{Name: "int", Fn: builtinInt},
		{Name: "float", Fn: builtinFloat},
		{Name: "str", Fn: builtinStr},
		{Name: "bool", Fn: builtinBool},
		{Name: "range", Fn: builtinRange},
	}

	for _, b := range builtins {
		env.Set(b.Name, b)
	}
}

func arity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return typeError("%s() takes between %d and %d arguments (%d given)", name, lo, hi, len(args))
	}

	return nil
}

func builtinPrint(r *run, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}

	if _, err := fmt.Fprintln(r.in.out, strings.Join(parts, " ")); err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}

	return None, nil
}

func builtinLen(_ *run, args []Value) (Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}

	if s, ok := args[0].(Str); ok {
		return NewInt(int64(len([]rune(string(s))))), nil
	}

	vals, ok := sequence(args[0])
	if !ok {
		return nil, typeError("object of type '%s' has no len()", args[0].TypeName())
	}

	return NewInt(int64(len(vals))), nil
}

func builtinAbs(_ *run, args []Value) (Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}

	if f, ok := args[0].(Float); ok {
		if f < 0 {
			return -f, nil
		}

		return f, nil
	}

	i, ok := asInt(args[0])
	if !ok {
		return nil, typeError("bad operand type for abs(): '%s'", args[0].TypeName())
	}

	return Int{V: new(big.Int).Abs(i)}, nil
}

func extreme(name string, args []Value, want int) (Value, error) {
	if len(args) == 1 {
		vals, ok := sequence(args[0])
		if !ok {
			return nil, typeError("'%s' object is not iterable", args[0].TypeName())
		}

		args = vals
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s() arg is an empty sequence", ErrValue, name)
	}

	best := args[0]

	for _, v := range args[1:] {
		c, err := order(v, best)
		if err != nil {
			return nil, typeError("'%s' not supported between '%s' and '%s'", name, v.TypeName(), best.TypeName())
		}

		if c*want > 0 {
			best = v
		}
	}

	return best, nil
}

func builtinInt(_ *run, args []Value) (Value, error) {
	if err := arity("int", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return NewInt(0), nil
	}

	switch x := args[0].(type) {
	case Float:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("%w: cannot convert %s to integer", ErrValue, x)
		}

		z, _ := big.NewFloat(float64(x)).Int(nil)

		return Int{V: z}, nil
	case Str:
		z, ok := new(big.Int).SetString(strings.TrimSpace(string(x)), 10)
		if !ok {
			return nil, fmt.Errorf("%w: invalid literal for int() with base 10: %s", ErrValue, Repr(x))
		}

		return Int{V: z}, nil
	}

	i, ok := asInt(args[0])
	if !ok {
		return nil, typeError("int() argument must be a string or a number, not '%s'", args[0].TypeName())
	}

	return Int{V: new(big.Int).Set(i)}, nil
}

func builtinFloat(_ *run, args []Value) (Value, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return Float(0), nil
	}

	if s, ok := args[0].(Str); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: could not convert string to float: %s", ErrValue, Repr(s))
		}

		return Float(f), nil
	}

	f, ok := asFloat(args[0])
	if !ok {
		return nil, typeError("float() argument must be a string or a number, not '%s'", args[0].TypeName())
	}

	return Float(f), nil
}

func builtinStr(_ *run, args []Value) (Value, error) {
	if err := arity("str", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return Str(""), nil
	}

	return Str(args[0].String()), nil
}

func builtinBool(_ *run, args []Value) (Value, error) {
	if err := arity("bool", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return Bool(false), nil
	}

	return Bool(Truthy(args[0])), nil
}

// maxRange caps materialized ranges.
const maxRange = 1 << 20

func builtinRange(_ *run, args []Value) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}

	bounds := make([]int64, len(args))

	for i, a := range args {
		v, ok := asInt(a)
		if !ok || !v.IsInt64() {
			return nil, typeError("range() arguments must be integers")
		}

		bounds[i] = v.Int64()
	}

	start, stop, step := int64(0), bounds[0], int64(1)
	if len(bounds) >= 2 {
		start, stop = bounds[0], bounds[1]
	}

	if len(bounds) == 3 {
		step = bounds[2]
	}

	if step == 0 {
		return nil, fmt.Errorf("%w: range() arg 3 must not be zero", ErrValue)
	}

	var out []Value

	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if len(out) >= maxRange {
			return nil, fmt.Errorf("%w: range too large", ErrValue)
		}

		out = append(out, NewInt(i))
	}

	return &List{Elems: out}, nil
}
