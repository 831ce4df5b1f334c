package tailrec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyparse"
)

const factorialSrc = `def factorial(n):
    r = 1
    while n > 1:
        r *= n
        n -= 1
    return r
`

const fibonacciSrc = `def fibonacci(n):
    if n <= 1:
        return n
    a = 0
    b = 1
    while n > 1:
        a, b = b, a + b
        n -= 1
    return b
`

func parseModule(t *testing.T, src string) *pyast.Module {
	t.Helper()

	mod, err := pyparse.NewParser().ParseString(context.Background(), src)
	require.NoError(t, err)

	return mod
}

func parseFunc(t *testing.T, src, name string) *pyast.FunctionDef {
	t.Helper()

	fn, err := pyparse.FindFunction(parseModule(t, src), name)
	require.NoError(t, err)

	return fn
}
