package tailrec_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyeval"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

type recorded struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorded) RecordConversion(_ context.Context, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes = append(r.outcomes, outcome)
}

// interpreterWith loads src together with the converted function.
func interpreterWith(t *testing.T, src string, converted *pyast.FunctionDef) *pyeval.Interpreter {
	t.Helper()

	ctx := context.Background()
	in := pyeval.New()

	require.NoError(t, in.Exec(ctx, parseModule(t, src)))
	require.NoError(t, in.Exec(ctx, parseModule(t, pyast.Unparse(converted)+"\n")))

	return in
}

func callInt(t *testing.T, in *pyeval.Interpreter, name string, n int64) string {
	t.Helper()

	v, err := in.Call(context.Background(), name, pyeval.NewInt(n))
	require.NoError(t, err)

	return v.String()
}

func TestConvert_EndToEndFactorial(t *testing.T) {
	t.Parallel()

	opts := tailrec.DefaultOptions()
	opts.StateOrder = tailrec.OrderParamsFirst

	res, err := tailrec.Convert(context.Background(), parseFunc(t, factorialSrc, "factorial"), opts)
	require.NoError(t, err)

	want := `def factorial__tail(n):
    def loop(n, r):
        if not (n > 1):
            return r
        return loop(n - 1, r * n)
    return loop(n, 1)`

	assert.Equal(t, want, res.Source())
	assert.Equal(t, "factorial", res.Descriptor.Name)
	assert.Empty(t, res.Warnings())
	require.NoError(t, pyast.Validate(res.Function))
}

func TestConvert_SemanticEquivalence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		fn    string
		opts  func(*tailrec.Options)
		input []int64
	}{
		{"factorial textual", factorialSrc, "factorial", nil, []int64{1, 2, 5, 10, 30}},
		{
			"factorial params first", factorialSrc, "factorial",
			func(o *tailrec.Options) { o.StateOrder = tailrec.OrderParamsFirst },
			[]int64{0, 1, 5, 12},
		},
		{"fibonacci", fibonacciSrc, "fibonacci", nil, []int64{-3, 0, 1, 2, 3, 10, 50}},
		{
			"fibonacci with guards", fibonacciSrc, "fibonacci",
			func(o *tailrec.Options) { o.KeepPrelude = true },
			[]int64{-3, 0, 1, 2, 20},
		},
		{
			"sequential updates",
			"def f(n):\n    r = 0\n    while n > 0:\n        n -= 1\n        r += n * n\n    return r\n",
			"f", nil, []int64{0, 1, 4, 9},
		},
		{
			"result expression",
			"def g(n):\n    s = 0\n    while n:\n        s, n = s + n, n - 1\n    return s * 2 + 1\n",
			"g", nil, []int64{0, 3, 7},
		},
		{
			"collatz steps",
			"def steps(n):\n    c = 0\n    while n != 1:\n        n = n // 2 if n % 2 == 0 else 3 * n + 1\n        c += 1\n    return c\n",
			"steps", nil, []int64{1, 6, 27},
		},
		{
			"local read by the loop",
			"def f(n):\n    k = 2\n    r = 1\n    while n > 1:\n        r *= k\n        n -= 1\n    return r\n",
			"f", nil, []int64{0, 1, 2, 5, 10},
		},
		{
			"local read by the result",
			"def g(n):\n    m = 3\n    r = 0\n    while n > 0:\n        r += n\n        n -= 1\n    return r * m\n",
			"g", nil, []int64{0, 1, 4},
		},
		{
			"guarded update",
			"def evens(n):\n    r = 0\n    while n > 0:\n        if n % 2 == 0:\n            r += 1\n        n -= 1\n    return r\n",
			"evens", nil, []int64{0, 1, 4, 7},
		},
		{
			"if else updates",
			`def steps(n):
    c = 0
    while n != 1:
        if n % 2 == 0:
            n = n // 2
        else:
            n = 3 * n + 1
        c += 1
    return c
`,
			"steps", nil, []int64{1, 6, 27},
		},
		{
			"elif chain",
			`def score(n):
    r = 0
    while n > 0:
        if n % 2 == 0:
            if n % 3 == 0:
                r += n
        elif n % 5 == 0:
            r -= 1
        else:
            r += 2
        n -= 1
    return r
`,
			"score", nil, []int64{0, 6, 15, 31},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := tailrec.DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			res, err := tailrec.Convert(context.Background(), parseFunc(t, tt.src, tt.fn), opts)
			require.NoError(t, err)

			in := interpreterWith(t, tt.src, res.Function)

			for _, n := range tt.input {
				assert.Equal(t, callInt(t, in, tt.fn, n), callInt(t, in, tt.fn+"__tail", n), "input %d", n)
			}
		})
	}
}

func TestConvert_Warnings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		fn   string
		want []string
	}{
		{"factorial", factorialSrc, "factorial", nil},
		{"fibonacci", fibonacciSrc, "fibonacci", nil},
		{
			"guarded update",
			"def evens(n):\n    r = 0\n    while n > 0:\n        if n % 2 == 0:\n            r += 1\n        n -= 1\n    return r\n",
			"evens", nil,
		},
		{
			"local bound in the loop",
			`def digits(n):
    r = 0
    while n > 0:
        pair = n // 10, n % 10
        q, s = pair
        r += s
        n = q
    return r
`,
			"digits",
			[]string{
				"line 5: update of (q, s) is not a simple name and is ignored",
				"s is local to digits but not bound in the generated function",
				"q is local to digits but not bound in the generated function",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := tailrec.Convert(context.Background(), parseFunc(t, tt.src, tt.fn), tailrec.DefaultOptions())
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Warnings())
		})
	}
}

func TestConvert_ZeroIterationsReturnsInitialAccumulator(t *testing.T) {
	t.Parallel()

	res, err := tailrec.Convert(context.Background(), parseFunc(t, factorialSrc, "factorial"), tailrec.DefaultOptions())
	require.NoError(t, err)

	in := interpreterWith(t, factorialSrc, res.Function)

	assert.Equal(t, "1", callInt(t, in, "factorial__tail", 1))
	assert.Equal(t, "120", callInt(t, in, "factorial__tail", 5))
}

func TestConvert_SuffixAppliedOnce(t *testing.T) {
	t.Parallel()

	fn := parseFunc(t, factorialSrc, "factorial")
	conv := tailrec.NewConverter(tailrec.DefaultOptions())

	for range 3 {
		res, err := conv.Convert(context.Background(), fn)
		require.NoError(t, err)
		assert.Equal(t, "factorial__tail", res.Function.Name)
	}

	assert.Equal(t, "factorial", fn.Name)
}

func TestConvert_StartPosition(t *testing.T) {
	t.Parallel()

	opts := tailrec.DefaultOptions()
	opts.StartLine = 40
	opts.StartCol = 4

	res, err := tailrec.Convert(context.Background(), parseFunc(t, factorialSrc, "factorial"), opts)
	require.NoError(t, err)

	assert.Equal(t, pyast.Loc{Line: 40, Col: 4, EndLine: res.NextLine - 1, EndCol: 4}, res.Function.Pos())
}

func TestConvert_RejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []func(*tailrec.Options){
		func(o *tailrec.Options) { o.HelperName = "not valid" },
		func(o *tailrec.Options) { o.Suffix = "-x" },
		func(o *tailrec.Options) { o.StateOrder = "reverse" },
		func(o *tailrec.Options) { o.DefaultInitial = "one" },
		func(o *tailrec.Options) { o.StartLine = 0 },
	}

	fn := parseFunc(t, factorialSrc, "factorial")

	for _, mutate := range tests {
		opts := tailrec.DefaultOptions()
		mutate(&opts)

		_, err := tailrec.Convert(context.Background(), fn, opts)
		require.ErrorIs(t, err, tailrec.ErrInvalidOption)
	}
}

func TestConverter_SpansAndOutcomes(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	rec := &recorded{}
	conv := tailrec.NewConverter(tailrec.DefaultOptions())
	conv.Tracer = tp.Tracer("test")
	conv.Recorder = rec

	_, err := conv.Convert(context.Background(), parseFunc(t, factorialSrc, "factorial"))
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), parseFunc(t, "def f(n):\n    return n\n", "f"))
	require.ErrorIs(t, err, tailrec.ErrNoLoop)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "tailrec.convert", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "factorial", attrs["function.name"])
	assert.Equal(t, tailrec.OutcomeOK, attrs["tailrec.outcome"])

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Len(t, spans[1].Events, 1)

	assert.Equal(t, []string{tailrec.OutcomeOK, tailrec.OutcomeNoLoop}, rec.outcomes)
}
