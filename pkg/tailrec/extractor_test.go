package tailrec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

func extract(t *testing.T, src, name string, order tailrec.StateOrder) tailrec.LoopInfo {
	t.Helper()

	info, err := tailrec.ExtractLoopInfo(tailrec.AnalyzeFunction(parseFunc(t, src, name)), order)
	require.NoError(t, err)

	return info
}

// funcName returns the name of the first function defined in src.
func funcName(src string) string {
	rest := strings.TrimPrefix(src, "def ")

	return rest[:strings.Index(rest, "(")]
}

func nextStrings(info tailrec.LoopInfo) []string {
	out := make([]string, len(info.State))
	for i, sv := range info.State {
		out[i] = pyast.Unparse(sv.Next)
	}

	return out
}

func TestExtractLoopInfo_Fibonacci(t *testing.T) {
	t.Parallel()

	info := extract(t, fibonacciSrc, "fibonacci", tailrec.OrderTextual)

	assert.Equal(t, []string{"a", "b", "n"}, info.Names())
	assert.Equal(t, []string{"b", "a + b", "n - 1"}, nextStrings(info))
	assert.Equal(t, "n > 1", pyast.Unparse(info.Condition))
	assert.Equal(t, "b", info.Result)
	assert.Nil(t, info.ResultExpr)
	assert.Equal(t, "0", pyast.Unparse(info.Initial["a"]))
	assert.Equal(t, "1", pyast.Unparse(info.Initial["b"]))
	assert.NotContains(t, info.Initial, "n")
	assert.Empty(t, info.Warnings)
}

func TestExtractLoopInfo_StateOrder(t *testing.T) {
	t.Parallel()

	textual := extract(t, factorialSrc, "factorial", tailrec.OrderTextual)
	assert.Equal(t, []string{"r", "n"}, textual.Names())

	paramsFirst := extract(t, factorialSrc, "factorial", tailrec.OrderParamsFirst)
	assert.Equal(t, []string{"n", "r"}, paramsFirst.Names())
	assert.Equal(t, []string{"n - 1", "r * n"}, nextStrings(paramsFirst))
	assert.Equal(t, "r", paramsFirst.Result)
}

func TestExtractLoopInfo_ComposesRepeatedUpdates(t *testing.T) {
	t.Parallel()

	src := `def f(n):
    r = 0
    while n > 0:
        n -= 1
        r += n
        n -= 1
    return r
`

	info := extract(t, src, "f", tailrec.OrderTextual)

	assert.Equal(t, []string{"n", "r"}, info.Names())
	assert.Equal(t, []string{"n - 1 - 1", "r + (n - 1)"}, nextStrings(info))
	assert.Len(t, info.Updates, 3)
}

func TestExtractLoopInfo_ResultExpression(t *testing.T) {
	t.Parallel()

	src := `def f(n):
    s = 0
    while n:
        s += n
        n -= 1
    return s * 2
`

	info := extract(t, src, "f", tailrec.OrderTextual)

	require.NotNil(t, info.ResultExpr)
	assert.Equal(t, "s * 2", pyast.Unparse(info.ResultExpr))
}

func TestExtractLoopInfo_SubstitutesEarlierInitializers(t *testing.T) {
	t.Parallel()

	src := `def f(n):
    base = n * 2
    acc = base + 1
    while n:
        acc += n
        n -= 1
    return acc
`

	info := extract(t, src, "f", tailrec.OrderTextual)

	assert.Equal(t, "n * 2 + 1", pyast.Unparse(info.Initial["acc"]))
	assert.NotContains(t, info.Initial, "base")
}

func TestExtractLoopInfo_Warnings(t *testing.T) {
	t.Parallel()

	src := `def f(xs, n):
    while n > 0:
        print(n)
        xs[n] = n
        if n > 2:
            n -= 2
        n -= 1
    x = 1
    return n
`

	info := extract(t, src, "f", tailrec.OrderTextual)

	assert.Equal(t, []string{"n"}, info.Names())
	assert.Equal(t, []string{"(n - 2 if n > 2 else n) - 1"}, nextStrings(info))
	assert.Len(t, info.Warnings, 4)
}

func TestExtractLoopInfo_GuardedUpdates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		names []string
		next  []string
	}{
		{
			"if without else",
			`def evens(n):
    r = 0
    while n > 0:
        if n % 2 == 0:
            r += 1
        n -= 1
    return r
`,
			[]string{"r", "n"},
			[]string{"r + 1 if n % 2 == 0 else r", "n - 1"},
		},
		{
			"test reads earlier update",
			`def thirds(n):
    r = 0
    while n > 0:
        n -= 1
        if n % 3 == 0:
            r += n
    return r
`,
			[]string{"n", "r"},
			[]string{"n - 1", "r + (n - 1) if (n - 1) % 3 == 0 else r"},
		},
		{
			"nested guards",
			`def nested(n):
    r = 0
    while n > 0:
        if n > 5:
            if n % 2 == 0:
                r += n
        n -= 1
    return r
`,
			[]string{"r", "n"},
			[]string{"r + n if n > 5 and n % 2 == 0 else r", "n - 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fd := tailrec.AnalyzeFunction(parseFunc(t, tt.src, funcName(tt.src)))
			info, err := tailrec.ExtractLoopInfo(fd, tailrec.OrderTextual)
			require.NoError(t, err)

			assert.Equal(t, tt.names, info.Names())
			assert.Equal(t, tt.next, nextStrings(info))
			assert.Empty(t, info.Warnings)
		})
	}
}

func TestExtractLoopInfo_CarryPrelude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"state initializers only", factorialSrc, false},
		{"guard returns early", fibonacciSrc, true},
		{
			"unused local",
			"def f(n):\n    x = 5\n    r = 0\n    while n:\n        r += n\n        n -= 1\n    return r\n",
			false,
		},
		{
			"local read by the loop",
			"def f(n):\n    k = 2\n    r = 1\n    while n > 1:\n        r *= k\n        n -= 1\n    return r\n",
			true,
		},
		{
			"local read by the result",
			"def f(n):\n    m = 3\n    r = 0\n    while n > 0:\n        r += n\n        n -= 1\n    return r * m\n",
			true,
		},
		{
			"initializer calls out",
			"def f(n):\n    r = abs(n)\n    while n > 0:\n        r += n\n        n -= 1\n    return r\n",
			true,
		},
		{
			"augmented prelude",
			"def f(n):\n    n += 1\n    r = 0\n    while n > 0:\n        r += n\n        n -= 1\n    return r\n",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := extract(t, tt.src, funcName(tt.src), tailrec.OrderTextual)
			assert.Equal(t, tt.want, info.CarryPrelude)
		})
	}
}

func TestExtractLoopInfo_UnboundLocals(t *testing.T) {
	t.Parallel()

	src := `def digits(n):
    r = 0
    while n > 0:
        pair = n // 10, n % 10
        q, s = pair
        r += s
        n = q
    return r
`

	info := extract(t, src, "digits", tailrec.OrderTextual)

	assert.Equal(t, []string{"pair", "r", "n"}, info.Names())
	assert.Contains(t, info.Warnings, "q is local to digits but not bound in the generated function")
	assert.Contains(t, info.Warnings, "s is local to digits but not bound in the generated function")

	for _, w := range info.Warnings {
		assert.NotContains(t, w, "n is local")
		assert.NotContains(t, w, "r is local")
	}
}

func TestExtractLoopInfo_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no loop", "def f(n):\n    return n\n", tailrec.ErrNoLoop},
		{"no state", "def f(xs):\n    while xs:\n        xs[0] = 1\n", tailrec.ErrNoStateVariables},
		{"break", "def f(n):\n    while n:\n        n -= 1\n        break\n", tailrec.ErrUnsupportedLoop},
		{"continue", "def f(n):\n    while n:\n        n -= 1\n        if n:\n            continue\n", tailrec.ErrUnsupportedLoop},
		{"else", "def f(n):\n    while n:\n        n -= 1\n    else:\n        n = 5\n", tailrec.ErrUnsupportedLoop},
		{"nested", "def f(n):\n    while n:\n        while n:\n            n -= 1\n", tailrec.ErrUnsupportedLoop},
		{"for", "def f(n, xs):\n    while n:\n        for x in xs:\n            n -= x\n", tailrec.ErrUnsupportedLoop},
		{"return", "def f(n):\n    while n:\n        if n == 3:\n            return n\n        n -= 1\n", tailrec.ErrUnsupportedLoop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fd := tailrec.AnalyzeFunction(parseFunc(t, tt.src, "f"))
			_, err := tailrec.ExtractLoopInfo(fd, tailrec.OrderTextual)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractLoopInfo_NestedDefinitionMayBreak(t *testing.T) {
	t.Parallel()

	src := `def f(n):
    while n:
        def g():
            while True:
                break
        n -= 1
    return n
`

	info := extract(t, src, "f", tailrec.OrderTextual)
	assert.Equal(t, []string{"n"}, info.Names())
}

func TestParseStateOrder(t *testing.T) {
	t.Parallel()

	order, err := tailrec.ParseStateOrder("")
	require.NoError(t, err)
	assert.Equal(t, tailrec.OrderTextual, order)

	order, err = tailrec.ParseStateOrder("params-first")
	require.NoError(t, err)
	assert.Equal(t, tailrec.OrderParamsFirst, order)

	_, err = tailrec.ParseStateOrder("random")
	require.ErrorIs(t, err, tailrec.ErrInvalidOption)
}
