package tailrec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// tracerName is the default OTel tracer name for the conversion pipeline.
const tracerName = "iter2tail"

// Conversion outcomes reported to a Recorder.
const (
	OutcomeOK          = "ok"
	OutcomeNoLoop      = "no_loop"
	OutcomeNoState     = "no_state"
	OutcomeUnsupported = "unsupported"
	OutcomeInvalid     = "invalid"
)

// Recorder receives one observation per conversion.
type Recorder interface {
	RecordConversion(ctx context.Context, outcome string, duration time.Duration)
}

// Result is a converted function together with the analysis behind it.
type Result struct {
	Function   *pyast.FunctionDef
	Descriptor FunctionDescriptor
	Info       LoopInfo
	// NextLine is the first line after the stamped function.
	NextLine int
}

// Source renders the converted function as Python source.
func (r *Result) Source() string {
	return pyast.Unparse(r.Function)
}

// Warnings lists the approximations made during conversion.
func (r *Result) Warnings() []string {
	return r.Info.Warnings
}

// Converter runs the conversion pipeline.
type Converter struct {
	Options Options

	// Logger receives one debug record per stage. When nil, slog.Default is used.
	Logger *slog.Logger

	// Tracer creates the conversion span.
	// When nil, falls back to otel.Tracer("iter2tail").
	Tracer trace.Tracer

	// Recorder, when set, observes every conversion outcome.
	Recorder Recorder
}

// NewConverter creates a Converter with the given options.
func NewConverter(opts Options) *Converter {
	return &Converter{Options: opts}
}

func (c *Converter) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}

	return otel.Tracer(tracerName)
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

// Convert turns fn into its tail-recursive equivalent. fn is not modified.
func (c *Converter) Convert(ctx context.Context, fn *pyast.FunctionDef) (*Result, error) {
	ctx, span := c.tracer().Start(ctx, "tailrec.convert",
		trace.WithAttributes(attribute.String("function.name", fn.Name)))
	defer span.End()

	start := time.Now()

	res, err := c.convert(ctx, fn)

	outcome := outcomeOf(err)
	span.SetAttributes(attribute.String("tailrec.outcome", outcome))

	if c.Recorder != nil {
		c.Recorder.RecordConversion(ctx, outcome, time.Since(start))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.StringSlice("tailrec.state", res.Info.Names()),
		attribute.Int("tailrec.warnings", len(res.Info.Warnings)),
	)

	return res, nil
}

func (c *Converter) convert(ctx context.Context, fn *pyast.FunctionDef) (*Result, error) {
	opts := c.Options
	log := c.logger().With("function", fn.Name)

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fd := AnalyzeFunction(fn)
	log.DebugContext(ctx, "analyzed function", "params", fd.Params, "loops", len(fd.Loops))

	info, err := ExtractLoopInfo(fd, opts.StateOrder)
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "extracted loop state",
		"state", info.Names(), "result", info.Result, "warnings", len(info.Warnings))

	out := Synthesize(fn, info, opts)
	log.DebugContext(ctx, "synthesized function", "name", out.Name)

	next := Stamp(out, opts.StartLine, opts.StartCol)
	log.DebugContext(ctx, "stamped positions", "first_line", opts.StartLine, "next_line", next)

	if err := pyast.Validate(out); err != nil {
		return nil, fmt.Errorf("synthesized tree for %s: %w", fn.Name, err)
	}

	for _, w := range info.Warnings {
		log.WarnContext(ctx, "approximation", "detail", w)
	}

	return &Result{Function: out, Descriptor: fd, Info: info, NextLine: next}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNoLoop):
		return OutcomeNoLoop
	case errors.Is(err, ErrNoStateVariables):
		return OutcomeNoState
	case errors.Is(err, ErrUnsupportedLoop):
		return OutcomeUnsupported
	default:
		return OutcomeInvalid
	}
}

// Convert runs the pipeline with opts and the global tracer and logger.
func Convert(ctx context.Context, fn *pyast.FunctionDef, opts Options) (*Result, error) {
	return NewConverter(opts).Convert(ctx, fn)
}
