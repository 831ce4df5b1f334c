package pyeval_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyeval"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyparse"
)

func load(t *testing.T, src string, opts ...pyeval.Option) *pyeval.Interpreter {
	t.Helper()

	ctx := context.Background()

	mod, err := pyparse.NewParser().ParseString(ctx, src)
	require.NoError(t, err)

	in := pyeval.New(opts...)
	require.NoError(t, in.Exec(ctx, mod))

	return in
}

func call(t *testing.T, in *pyeval.Interpreter, name string, args ...int64) string {
	t.Helper()

	vals := make([]pyeval.Value, len(args))
	for i, a := range args {
		vals[i] = pyeval.NewInt(a)
	}

	v, err := in.Call(context.Background(), name, vals...)
	require.NoError(t, err)

	return pyeval.Repr(v)
}

func TestCall_Factorial(t *testing.T) {
	t.Parallel()

	in := load(t, `
def factorial(n):
    r = 1
    while n > 1:
        r *= n
        n -= 1
    return r
`)

	assert.Equal(t, "120", call(t, in, "factorial", 5))
	assert.Equal(t, "1", call(t, in, "factorial", 1))
	assert.Equal(t, "2432902008176640000", call(t, in, "factorial", 20))
	assert.Equal(t, "51090942171709440000", call(t, in, "factorial", 21))
}

func TestCall_FibonacciWithTupleAssignment(t *testing.T) {
	t.Parallel()

	in := load(t, `
def fibonacci(n):
    if n <= 1:
        return n
    a = 0
    b = 1
    while n > 1:
        a, b = b, a + b
        n -= 1
    return b
`)

	want := []string{"0", "1", "1", "2", "3", "5", "8", "13", "21", "34"}
	for n, expected := range want {
		assert.Equal(t, expected, call(t, in, "fibonacci", int64(n)))
	}
}

func TestCall_NestedFunctionsAndRecursion(t *testing.T) {
	t.Parallel()

	in := load(t, `
def outer(n, acc=0):
    def loop(n, acc):
        if not (n > 0):
            return acc
        return loop(n - 1, acc + n)
    return loop(n, acc)
`)

	assert.Equal(t, "55", call(t, in, "outer", 10))
	assert.Equal(t, "60", call(t, in, "outer", 10, 5))
}

func TestCall_RecursionLimit(t *testing.T) {
	t.Parallel()

	in := load(t, `
def down(n):
    if n == 0:
        return 0
    return down(n - 1)
`, pyeval.WithRecursionLimit(50))

	assert.Equal(t, "0", call(t, in, "down", 40))

	_, err := in.Call(context.Background(), "down", pyeval.NewInt(100))
	require.ErrorIs(t, err, pyeval.ErrRecursionLimit)
}

func TestCall_FloorSemantics(t *testing.T) {
	t.Parallel()

	in := load(t, `
def div(a, b):
    return a // b, a % b
`)

	assert.Equal(t, "(-4, 1)", call(t, in, "div", -7, 2))
	assert.Equal(t, "(-4, -1)", call(t, in, "div", 7, -2))
	assert.Equal(t, "(3, 1)", call(t, in, "div", 7, 2))

	_, err := in.Call(context.Background(), "div", pyeval.NewInt(1), pyeval.NewInt(0))
	require.ErrorIs(t, err, pyeval.ErrZeroDivision)
}

func TestCall_ControlFlow(t *testing.T) {
	t.Parallel()

	in := load(t, `
def first_square_over(limit):
    i = 0
    while True:
        i += 1
        if i * i <= limit:
            continue
        break
    return i
`)

	assert.Equal(t, "4", call(t, in, "first_square_over", 10))
}

func TestCall_Errors(t *testing.T) {
	t.Parallel()

	in := load(t, `
def bad():
    return missing + 1

def typed():
    return "a" + 1
`)

	_, err := in.Call(context.Background(), "bad")
	require.ErrorIs(t, err, pyeval.ErrName)

	_, err = in.Call(context.Background(), "typed")
	require.ErrorIs(t, err, pyeval.ErrType)

	_, err = in.Call(context.Background(), "nope")
	require.ErrorIs(t, err, pyeval.ErrName)
}

func TestExec_PrintAndUnsupported(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	load(t, "print('x', 1, 2.5, None, [1, 'y'])\n", pyeval.WithOutput(&out))
	assert.Equal(t, "x 1 2.5 None [1, 'y']\n", out.String())

	mod, err := pyparse.NewParser().ParseString(context.Background(), "import math\n")
	require.NoError(t, err)

	err = pyeval.New().Exec(context.Background(), mod)
	require.ErrorIs(t, err, pyeval.ErrUnsupported)
}

func TestExec_CancelledContext(t *testing.T) {
	t.Parallel()

	mod, err := pyparse.NewParser().ParseString(context.Background(), "while True:\n    pass\n")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pyeval.New().Exec(ctx, mod)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"5", "5"},
		{"-12", "-12"},
		{"1_000", "1000"},
		{"2.5", "2.5"},
		{"3e2", "300.0"},
		{"True", "True"},
		{"None", "None"},
		{"'hi'", "'hi'"},
		{"word", "'word'"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pyeval.Repr(pyeval.ParseLiteral(tt.in)))
		})
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, pyeval.Equal(pyeval.NewInt(1), pyeval.Float(1)))
	assert.True(t, pyeval.Equal(pyeval.Bool(true), pyeval.NewInt(1)))
	assert.True(t, pyeval.Equal(pyeval.Tuple{pyeval.NewInt(1), pyeval.Str("a")}, pyeval.Tuple{pyeval.NewInt(1), pyeval.Str("a")}))
	assert.False(t, pyeval.Equal(pyeval.Str("1"), pyeval.NewInt(1)))
}
