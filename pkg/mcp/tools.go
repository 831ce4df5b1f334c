package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyparse"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

// Tool names.
const (
	ToolNameConvert = "iter2tail_convert"
	ToolNameAnalyze = "iter2tail_analyze"
)

// MaxCodeInputBytes caps inline source accepted by the tools.
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode     = errors.New("code parameter is required and must not be empty")
	ErrEmptyFunction = errors.New("function parameter is required and must not be empty")
	ErrCodeTooLarge  = errors.New("code input exceeds maximum size")
)

// ConvertInput is the input schema of iter2tail_convert.
type ConvertInput struct {
	Code        string `json:"code"                   jsonschema:"Python source containing the function"`
	Function    string `json:"function"               jsonschema:"name of the function to convert"`
	StateOrder  string `json:"state_order,omitempty"  jsonschema:"textual (default) or params-first"`
	KeepPrelude bool   `json:"keep_prelude,omitempty" jsonschema:"keep the statements before the loop in the generated function"`
}

// AnalyzeInput is the input schema of iter2tail_analyze.
type AnalyzeInput struct {
	Code       string `json:"code"                  jsonschema:"Python source to describe"`
	StateOrder string `json:"state_order,omitempty" jsonschema:"textual (default) or params-first"`
}

// ConvertResult is the payload returned by iter2tail_convert.
type ConvertResult struct {
	Function string   `json:"function"`
	Source   string   `json:"source"`
	State    []string `json:"state"`
	Warnings []string `json:"warnings,omitempty"`
}

// ToolOutput wraps structured tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleConvert(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ConvertInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if err := validateCode(input.Code); err != nil {
		return errorResult(err)
	}

	if input.Function == "" {
		return errorResult(ErrEmptyFunction)
	}

	opts := s.base
	opts.KeepPrelude = opts.KeepPrelude || input.KeepPrelude

	if input.StateOrder != "" {
		order, err := tailrec.ParseStateOrder(input.StateOrder)
		if err != nil {
			return errorResult(err)
		}

		opts.StateOrder = order
	}

	mod, err := s.parse(ctx, input.Code)
	if err != nil {
		return errorResult(err)
	}

	fn, err := pyparse.FindFunction(mod, input.Function)
	if err != nil {
		return errorResult(err)
	}

	conv := tailrec.NewConverter(opts)
	conv.Logger = s.deps.Logger
	conv.Tracer = s.deps.Tracer
	conv.Recorder = s.deps.Conversions

	res, err := conv.Convert(ctx, fn)
	if err != nil {
		return errorResult(fmt.Errorf("convert %s: %w", input.Function, err))
	}

	return jsonResult(ConvertResult{
		Function: res.Function.Name,
		Source:   res.Source() + "\n",
		State:    res.Info.Names(),
		Warnings: res.Warnings(),
	})
}

func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input AnalyzeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if err := validateCode(input.Code); err != nil {
		return errorResult(err)
	}

	order, err := tailrec.ParseStateOrder(input.StateOrder)
	if err != nil {
		return errorResult(err)
	}

	mod, err := s.parse(ctx, input.Code)
	if err != nil {
		return errorResult(err)
	}

	fds := tailrec.AnalyzeModule(mod)
	out := make([]tailrec.FunctionSummary, len(fds))

	for i, fd := range fds {
		out[i] = tailrec.Summarize(fd, order)
	}

	return jsonResult(out)
}

func validateCode(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
