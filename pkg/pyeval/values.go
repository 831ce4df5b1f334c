package pyeval

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// Value is a runtime Python value.
type Value interface {
	// TypeName returns the Python type name, e.g. "int".
	TypeName() string
	// String returns the value as str() would.
	String() string
}

// Int is an arbitrary precision integer.
type Int struct{ V *big.Int }

// Float is a double precision float.
type Float float64

// Str is a text string.
type Str string

// Bool is True or False.
type Bool bool

// NoneType is the type of None.
type NoneType struct{}

// None is the singleton None value.
var None Value = NoneType{}

// Tuple is an immutable sequence.
type Tuple []Value

// List is a mutable sequence.
type List struct{ Elems []Value }

// Function is a user-defined function closed over its defining scope.
type Function struct {
	Def     *pyast.FunctionDef
	Closure *Env
	// Defaults holds evaluated default values keyed by parameter name.
	Defaults map[string]Value
}

// Builtin is a function implemented in Go.
type Builtin struct {
	Name string
	Fn   func(r *run, args []Value) (Value, error)
}

// NewInt returns an Int holding i.
func NewInt(i int64) Int { return Int{V: big.NewInt(i)} }

func (Int) TypeName() string { return "int" }
func (i Int) String() string { return i.V.String() }
func (Float) TypeName() string { return "float" }
func (f Float) String() string { return formatFloat(float64(f)) }
func (Str) TypeName() string { return "str" }
func (s Str) String() string { return string(s) }
func (Bool) TypeName() string { return "bool" }
func (NoneType) TypeName() string { return "NoneType" }
func (NoneType) String() string { return "None" }
func (Tuple) TypeName() string { return "tuple" }
func (*List) TypeName() string { return "list" }
func (*Function) TypeName() string { return "function" }
func (f *Function) String() string { return "<function " + f.Def.Name + ">" }
func (*Builtin) TypeName() string { return "builtin_function_or_method" }
func (b *Builtin) String() string { return "<built-in function " + b.Name + ">" }

func (b Bool) String() string {
	if b {
		return "True"
	}

	return "False"
}

func (t Tuple) String() string {
	if len(t) == 1 {
		return "(" + Repr(t[0]) + ",)"
	}

	return "(" + joinRepr(t) + ")"
}

func (l *List) String() string { return "[" + joinRepr(l.Elems) + "]" }

func joinRepr(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = Repr(v)
	}

	return strings.Join(parts, ", ")
}

// Repr returns the value as repr() would.
func Repr(v Value) string {
	if s, ok := v.(Str); ok {
		return pyast.Unparse(&pyast.Constant{Kind: pyast.ConstStr, Value: string(s)})
	}

	return v.String()
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}

	return s
}

// Truthy reports the truth value of v.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Int:
		return x.V.Sign() != 0
	case Float:
		return x != 0
	case Str:
		return x != ""
	case NoneType:
		return false
	case Tuple:
		return len(x) > 0
	case *List:
		return len(x.Elems) > 0
	default:
		return true
	}
}

// ParseLiteral converts a literal as written on a command line into a value:
// integers, floats, True, False, None and quoted strings are recognised.
// Anything else is taken as a bare string.
func ParseLiteral(text string) Value {
	text = strings.TrimSpace(text)

	switch text {
	case "True":
		return Bool(true)
	case "False":
		return Bool(false)
	case "None":
		return None
	}

	if i, ok := new(big.Int).SetString(strings.ReplaceAll(text, "_", ""), 0); ok {
		return Int{V: i}
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return Float(f)
	}

	if len(text) >= 2 && (text[0] == '\'' || text[0] == '"') && text[len(text)-1] == text[0] {
		return Str(text[1 : len(text)-1])
	}

	return Str(text)
}

// asInt converts bools and ints to a big integer.
func asInt(v Value) (*big.Int, bool) {
	switch x := v.(type) {
	case Int:
		return x.V, true
	case Bool:
		if x {
			return big.NewInt(1), true
		}

		return big.NewInt(0), true
	default:
		return nil, false
	}
}

func asFloat(v Value) (float64, bool) {
	if f, ok := v.(Float); ok {
		return float64(f), true
	}

	if i, ok := asInt(v); ok {
		f, _ := new(big.Float).SetInt(i).Float64()

		return f, true
	}

	return 0, false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Float, Bool:
		return true
	default:
		return false
	}
}

// equal implements ==.
func equal(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)

		if aok && bok {
			return ai.Cmp(bi) == 0
		}

		af, _ := asFloat(a)
		bf, _ := asFloat(b)

		return af == bf
	}

	switch x := a.(type) {
	case Str:
		y, ok := b.(Str)

		return ok && x == y
	case NoneType:
		_, ok := b.(NoneType)

		return ok
	case Tuple:
		y, ok := b.(Tuple)

		return ok && equalSeq(x, y)
	case *List:
		y, ok := b.(*List)

		return ok && equalSeq(x.Elems, y.Elems)
	default:
		return a == b
	}
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

// Equal reports whether a == b under Python semantics.
func Equal(a, b Value) bool { return equal(a, b) }

func sequence(v Value) ([]Value, bool) {
	switch x := v.(type) {
	case Tuple:
		return x, true
	case *List:
		return x.Elems, true
	case Str:
		out := make([]Value, 0, len(x))
		for _, r := range string(x) {
			out = append(out, Str(string(r)))
		}

		return out, true
	default:
		return nil, false
	}
}

func typeError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrType}, args...)...)
}
