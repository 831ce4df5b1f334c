package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyparse"
	"github.com/Sumatoshi-tech/iter2tail/pkg/safeconv"
	"github.com/Sumatoshi-tech/iter2tail/pkg/textutil"
)

// Sentinel input errors.
var (
	// ErrFileTooLarge reports an input over input.max_file_size.
	ErrFileTooLarge = errors.New("file too large")
	// ErrBinaryFile reports an input that contains null bytes.
	ErrBinaryFile = errors.New("binary file")
)

// source is a parsed input file.
type source struct {
	path    string
	content []byte
	module  *pyast.Module
}

// loadSource reads and parses path, enforcing the configured size cap.
func (a *app) loadSource(ctx context.Context, path string) (*source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	size := safeconv.MustInt64ToUint64(info.Size())

	if limit := a.cfg.Input.MaxBytes(); limit > 0 && size > limit {
		return nil, fmt.Errorf("%w: %s is %s (max %s)", ErrFileTooLarge, path,
			humanize.Bytes(size), humanize.Bytes(limit))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if textutil.IsBinary(content) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}

	mod, err := a.parser.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}

	a.providers.Logger.DebugContext(ctx, "parsed source",
		"file", path,
		"size", humanize.Bytes(safeconv.MustIntToUint64(len(content))),
		"lines", textutil.CountLines(content),
		"statements", len(mod.Body))

	return &source{path: path, content: content, module: mod}, nil
}

// loadFunction parses path and locates the first function named name,
// methods and nested functions included.
func (a *app) loadFunction(ctx context.Context, path, name string) (*source, *pyast.FunctionDef, error) {
	src, err := a.loadSource(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	fn, err := pyparse.FindFunction(src.module, name)
	if err != nil {
		return nil, nil, err
	}

	return src, fn, nil
}

// outputPath inserts suffix between the base name and the extension of path.
func outputPath(path, suffix string) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + suffix + ext
}
