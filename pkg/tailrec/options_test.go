package tailrec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

func TestParseLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		kind pyast.ConstKind
		out  string
	}{
		{"1", pyast.ConstInt, "1"},
		{"-7", pyast.ConstInt, "-7"},
		{"0x10", pyast.ConstInt, "0x10"},
		{"0.5", pyast.ConstFloat, "0.5"},
		{"True", pyast.ConstBool, "True"},
		{"None", pyast.ConstNone, "None"},
		{"'acc'", pyast.ConstStr, "'acc'"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			c, err := tailrec.ParseLiteral(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.out, pyast.Unparse(c))
		})
	}

	_, err := tailrec.ParseLiteral("x + 1")
	require.ErrorIs(t, err, tailrec.ErrInvalidOption)
}

func TestDefaultOptions_Valid(t *testing.T) {
	t.Parallel()

	opts := tailrec.DefaultOptions()

	require.NoError(t, opts.Validate())
	assert.Equal(t, "loop", opts.HelperName)
	assert.Equal(t, "__tail", opts.Suffix)
	assert.Equal(t, tailrec.OrderTextual, opts.StateOrder)
}
