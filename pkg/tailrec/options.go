package tailrec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// Default option values.
const (
	DefaultHelperName = "loop"
	DefaultSuffix     = "__tail"
	DefaultInitial    = "1"
)

// Options controls synthesis.
type Options struct {
	// HelperName names the inner recursive function.
	HelperName string
	// Suffix is appended to the original function name.
	Suffix string
	// StateOrder orders the helper parameters.
	StateOrder StateOrder
	// DefaultInitial is the Python literal passed for state variables that
	// have neither an initializer nor a matching parameter.
	DefaultInitial string
	// KeepPrelude always copies the statements preceding the loop into the
	// new function. Without it they are copied only when they do more than
	// initialize state, such as guards or locals the loop reads.
	KeepPrelude bool
	// StartLine and StartCol position the synthesized tree.
	StartLine int
	StartCol  int
}

// DefaultOptions returns the options reproducing the canonical output.
func DefaultOptions() Options {
	return Options{
		HelperName:     DefaultHelperName,
		Suffix:         DefaultSuffix,
		StateOrder:     OrderTextual,
		DefaultInitial: DefaultInitial,
		StartLine:      1,
	}
}

// Validate checks that the options can produce valid Python.
func (o Options) Validate() error {
	if !isIdentifier(o.HelperName) {
		return fmt.Errorf("%w: helper name %q is not an identifier", ErrInvalidOption, o.HelperName)
	}

	if o.Suffix != "" && !isIdentifier("f"+o.Suffix) {
		return fmt.Errorf("%w: suffix %q", ErrInvalidOption, o.Suffix)
	}

	if _, err := ParseStateOrder(string(o.StateOrder)); err != nil {
		return err
	}

	if _, err := ParseLiteral(o.DefaultInitial); err != nil {
		return err
	}

	if o.StartLine < 1 || o.StartCol < 0 {
		return fmt.Errorf("%w: start position %d:%d", ErrInvalidOption, o.StartLine, o.StartCol)
	}

	return nil
}

// ParseLiteral converts a Python literal (integer, float, string, True,
// False or None) into a constant node.
func ParseLiteral(text string) (*pyast.Constant, error) {
	text = strings.TrimSpace(text)

	switch text {
	case "True", "False":
		return &pyast.Constant{Kind: pyast.ConstBool, Value: text}, nil
	case "None":
		return &pyast.Constant{Kind: pyast.ConstNone, Value: text}, nil
	}

	if _, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 0, 64); err == nil {
		return &pyast.Constant{Kind: pyast.ConstInt, Value: text}, nil
	}

	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return &pyast.Constant{Kind: pyast.ConstFloat, Value: text}, nil
	}

	if len(text) >= 2 && (text[0] == '\'' || text[0] == '"') && text[len(text)-1] == text[0] {
		return &pyast.Constant{Kind: pyast.ConstStr, Value: text[1 : len(text)-1]}, nil
	}

	return nil, fmt.Errorf("%w: %q is not a literal", ErrInvalidOption, text)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
