// Package pyparse builds pyast trees from Python source using the
// tree-sitter Python grammar.
package pyparse

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/iter2tail/pkg/levenshtein"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// Sentinel errors for parsing.
var (
	// ErrSyntax reports source that does not parse as Python.
	ErrSyntax = errors.New("invalid syntax")
	// ErrNotPython reports input detected as another language.
	ErrNotPython = errors.New("input is not Python source")
	// ErrFunctionNotFound reports a missing function definition.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrNoRootNode reports an empty parse result.
	ErrNoRootNode = errors.New("parser returned no root node")
	errPoolType   = errors.New("parser pool returned unexpected type")
)

const languagePython = "Python"

var (
	languageOnce sync.Once
	language     *sitter.Language
)

func pythonLanguage() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(python.GetLanguage())
	})

	return language
}

// Parser converts Python source into pyast trees. It is safe for
// concurrent use; tree-sitter parsers are pooled.
type Parser struct {
	pool sync.Pool
}

// NewParser creates a Parser.
func NewParser() *Parser {
	lang := pythonLanguage()

	return &Parser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// DetectLanguage returns the language enry assigns to filename and content,
// or an empty string when it cannot tell.
func DetectLanguage(filename string, content []byte) string {
	return enry.GetLanguage(filepath.Base(filename), content)
}

// Parse parses content. The filename is used for language detection and
// error messages only.
func (p *Parser) Parse(ctx context.Context, filename string, content []byte) (*pyast.Module, error) {
	if lang := DetectLanguage(filename, content); lang != "" && lang != languagePython {
		return nil, fmt.Errorf("%w: %s detected as %s", ErrNotPython, filename, lang)
	}

	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, ErrNoRootNode
	}

	if root.HasError() {
		line := firstErrorLine(root)

		return nil, fmt.Errorf("%w: %s line %d", ErrSyntax, filename, line)
	}

	b := &builder{src: content}

	return b.module(root), nil
}

// ParseString is a convenience wrapper for in-memory sources.
func (p *Parser) ParseString(ctx context.Context, src string) (*pyast.Module, error) {
	return p.Parse(ctx, "<string>.py", []byte(src))
}

func firstErrorLine(n sitter.Node) int {
	if n.Type() == "ERROR" {
		return int(n.StartPoint().Row) + 1
	}

	for i := range n.ChildCount() {
		child := n.Child(i)
		if child.HasError() {
			return firstErrorLine(child)
		}
	}

	return int(n.StartPoint().Row) + 1
}

// FindFunction returns the first function definition named name in a
// pre-order walk of mod, including methods and nested functions.
func FindFunction(mod *pyast.Module, name string) (*pyast.FunctionDef, error) {
	var found *pyast.FunctionDef

	pyast.Inspect(mod, func(n pyast.Node) bool {
		if found != nil {
			return false
		}

		if fn, ok := n.(*pyast.FunctionDef); ok && fn.Name == name {
			found = fn

			return false
		}

		return true
	})

	if found == nil {
		if hint, ok := suggest(mod, name); ok {
			return nil, fmt.Errorf("%w: %s (did you mean %s?)", ErrFunctionNotFound, name, hint)
		}

		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	return found, nil
}

// maxSuggestDistance bounds the edit distance of a "did you mean" hint.
const maxSuggestDistance = 2

func suggest(mod *pyast.Module, name string) (string, bool) {
	fns := Functions(mod)
	names := make([]string, len(fns))

	for i, fn := range fns {
		names[i] = fn.Name
	}

	return levenshtein.Closest(name, names, maxSuggestDistance)
}

// Functions returns every function definition of mod in pre-order.
func Functions(mod *pyast.Module) []*pyast.FunctionDef {
	var out []*pyast.FunctionDef

	pyast.Inspect(mod, func(n pyast.Node) bool {
		if fn, ok := n.(*pyast.FunctionDef); ok {
			out = append(out, fn)
		}

		return true
	})

	return out
}
