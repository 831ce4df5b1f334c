// Package pyeval is a small tree-walking interpreter for the Python subset
// modeled by pyast. It exists to execute original and transformed functions
// side by side and compare their results.
package pyeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// Sentinel runtime errors, named after the Python exceptions they model.
var (
	ErrName           = errors.New("NameError")
	ErrType           = errors.New("TypeError")
	ErrValue          = errors.New("ValueError")
	ErrIndex          = errors.New("IndexError")
	ErrZeroDivision   = errors.New("ZeroDivisionError")
	ErrRecursionLimit = errors.New("RecursionError: maximum recursion depth exceeded")
	ErrUnsupported    = errors.New("unsupported construct")
	errOutsideLoop    = errors.New("SyntaxError: break or continue outside loop")
	errOutsideFunc    = errors.New("SyntaxError: return outside function")
)

// DefaultRecursionLimit bounds the Python call depth. Converted functions
// recurse once per loop iteration, so it is set above CPython's 1000.
const DefaultRecursionLimit = 10000

// Interpreter executes modules and calls the functions they define.
type Interpreter struct {
	globals *Env
	limit   int
	out     io.Writer
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithRecursionLimit sets the maximum call depth.
func WithRecursionLimit(limit int) Option {
	return func(in *Interpreter) { in.limit = limit }
}

// WithOutput directs print() output to w.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// New creates an Interpreter with builtins installed.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		globals: NewEnv(nil),
		limit:   DefaultRecursionLimit,
		out:     io.Discard,
	}

	for _, opt := range opts {
		opt(in)
	}

	installBuiltins(in.globals)

	return in
}

// Globals returns the module scope.
func (in *Interpreter) Globals() *Env { return in.globals }

// Exec runs every statement of mod in the module scope.
func (in *Interpreter) Exec(ctx context.Context, mod *pyast.Module) error {
	r := &run{ctx: ctx, in: in}

	ctl, _, err := r.block(mod.Body, in.globals)
	if err != nil {
		return err
	}

	switch ctl {
	case ctlReturn:
		return errOutsideFunc
	case ctlBreak, ctlContinue:
		return errOutsideLoop
	default:
		return nil
	}
}

// Call invokes the global function name with positional args.
func (in *Interpreter) Call(ctx context.Context, name string, args ...Value) (Value, error) {
	fn, ok := in.globals.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: name '%s' is not defined", ErrName, name)
	}

	r := &run{ctx: ctx, in: in}

	return r.call(fn, args, nil)
}

type control int

const (
	ctlNone control = iota
	ctlReturn
	ctlBreak
	ctlContinue
)

// run carries the state of one top-level Exec or Call.
type run struct {
	ctx   context.Context
	in    *Interpreter
	depth int
}

func (r *run) block(stmts []pyast.Stmt, env *Env) (control, Value, error) {
	for _, s := range stmts {
		ctl, v, err := r.stmt(s, env)
		if err != nil || ctl != ctlNone {
			return ctl, v, err
		}
	}

	return ctlNone, nil, nil
}

func (r *run) stmt(stmt pyast.Stmt, env *Env) (control, Value, error) {
	switch s := stmt.(type) {
	case *pyast.FunctionDef:
		fn, err := r.define(s, env)
		if err != nil {
			return ctlNone, nil, err
		}

		env.Set(s.Name, fn)
	case *pyast.Return:
		if s.Value == nil {
			return ctlReturn, None, nil
		}

		v, err := r.expr(s.Value, env)
		if err != nil {
			return ctlNone, nil, err
		}

		return ctlReturn, v, nil
	case *pyast.If:
		test, err := r.expr(s.Test, env)
		if err != nil {
			return ctlNone, nil, err
		}

		if Truthy(test) {
			return r.block(s.Body, env)
		}

		return r.block(s.Orelse, env)
	case *pyast.While:
		return r.while(s, env)
	case *pyast.Assign:
		v, err := r.expr(s.Value, env)
		if err != nil {
			return ctlNone, nil, err
		}

		for _, target := range s.Targets {
			if err := r.assign(target, v, env); err != nil {
				return ctlNone, nil, err
			}
		}
	case *pyast.AugAssign:
		cur, err := r.expr(s.Target, env)
		if err != nil {
			return ctlNone, nil, err
		}

		rhs, err := r.expr(s.Value, env)
		if err != nil {
			return ctlNone, nil, err
		}

		v, err := binaryOp(s.Op, cur, rhs)
		if err != nil {
			return ctlNone, nil, err
		}

		if err := r.assign(s.Target, v, env); err != nil {
			return ctlNone, nil, err
		}
	case *pyast.ExprStmt:
		if _, err := r.expr(s.X, env); err != nil {
			return ctlNone, nil, err
		}
	case *pyast.Pass:
	case *pyast.Break:
		return ctlBreak, nil, nil
	case *pyast.Continue:
		return ctlContinue, nil, nil
	case *pyast.ClassDef:
		return ctlNone, nil, fmt.Errorf("%w: class %s", ErrUnsupported, s.Name)
	case *pyast.RawStmt:
		return ctlNone, nil, fmt.Errorf("%w: %s at line %d", ErrUnsupported, s.Kind, s.Pos().Line)
	default:
		return ctlNone, nil, fmt.Errorf("%w: %T", ErrUnsupported, stmt)
	}

	return ctlNone, nil, nil
}

func (r *run) while(s *pyast.While, env *Env) (control, Value, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return ctlNone, nil, err
		}

		test, err := r.expr(s.Test, env)
		if err != nil {
			return ctlNone, nil, err
		}

		if !Truthy(test) {
			return r.block(s.Orelse, env)
		}

		ctl, v, err := r.block(s.Body, env)
		if err != nil {
			return ctlNone, nil, err
		}

		switch ctl {
		case ctlReturn:
			return ctl, v, nil
		case ctlBreak:
			return ctlNone, nil, nil
		case ctlNone, ctlContinue:
		}
	}
}

func (r *run) define(def *pyast.FunctionDef, env *Env) (*Function, error) {
	fn := &Function{Def: def, Closure: env, Defaults: make(map[string]Value)}

	for _, p := range def.Params {
		if p.Star != "" {
			return nil, fmt.Errorf("%w: variadic parameter %s%s", ErrUnsupported, p.Star, p.Name)
		}

		if p.Default == nil {
			continue
		}

		v, err := r.expr(p.Default, env)
		if err != nil {
			return nil, err
		}

		fn.Defaults[p.Name] = v
	}

	return fn, nil
}

func (r *run) assign(target pyast.Expr, v Value, env *Env) error {
	switch t := target.(type) {
	case *pyast.Name:
		env.Set(t.ID, v)

		return nil
	case *pyast.Tuple:
		return r.unpack(t.Elts, v, env)
	case *pyast.List:
		return r.unpack(t.Elts, v, env)
	case *pyast.Subscript:
		container, err := r.expr(t.X, env)
		if err != nil {
			return err
		}

		list, ok := container.(*List)
		if !ok {
			return typeError("'%s' object does not support item assignment", container.TypeName())
		}

		idx, err := r.expr(t.Index, env)
		if err != nil {
			return err
		}

		pos, err := index(idx, len(list.Elems))
		if err != nil {
			return err
		}

		list.Elems[pos] = v

		return nil
	default:
		return fmt.Errorf("%w: assignment to %s", ErrUnsupported, pyast.TypeName(target))
	}
}

func (r *run) unpack(targets []pyast.Expr, v Value, env *Env) error {
	vals, ok := sequence(v)
	if !ok {
		return typeError("cannot unpack non-iterable %s object", v.TypeName())
	}

	if len(vals) != len(targets) {
		return fmt.Errorf("%w: expected %d values to unpack, got %d", ErrValue, len(targets), len(vals))
	}

	for i, t := range targets {
		if err := r.assign(t, vals[i], env); err != nil {
			return err
		}
	}

	return nil
}

func (r *run) exprs(exprs []pyast.Expr, env *Env) ([]Value, error) {
	out := make([]Value, len(exprs))

	for i, e := range exprs {
		v, err := r.expr(e, env)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func (r *run) expr(expr pyast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *pyast.Name:
		v, ok := env.Get(e.ID)
		if !ok {
			return nil, fmt.Errorf("%w: name '%s' is not defined", ErrName, e.ID)
		}

		return v, nil
	case *pyast.Constant:
		return constant(e)
	case *pyast.BinOp:
		left, err := r.expr(e.Left, env)
		if err != nil {
			return nil, err
		}

		right, err := r.expr(e.Right, env)
		if err != nil {
			return nil, err
		}

		return binaryOp(e.Op, left, right)
	case *pyast.UnaryOp:
		x, err := r.expr(e.X, env)
		if err != nil {
			return nil, err
		}

		return unaryOp(e.Op, x)
	case *pyast.BoolOp:
		return r.boolOp(e, env)
	case *pyast.Compare:
		return r.compare(e, env)
	case *pyast.Call:
		return r.callExpr(e, env)
	case *pyast.Tuple:
		vals, err := r.exprs(e.Elts, env)
		if err != nil {
			return nil, err
		}

		return Tuple(vals), nil
	case *pyast.List:
		vals, err := r.exprs(e.Elts, env)
		if err != nil {
			return nil, err
		}

		return &List{Elems: vals}, nil
	case *pyast.Subscript:
		return r.subscript(e, env)
	case *pyast.IfExp:
		test, err := r.expr(e.Test, env)
		if err != nil {
			return nil, err
		}

		if Truthy(test) {
			return r.expr(e.Body, env)
		}

		return r.expr(e.Orelse, env)
	case *pyast.RawExpr:
		return nil, fmt.Errorf("%w: %s at line %d", ErrUnsupported, e.Kind, e.Pos().Line)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, pyast.TypeName(expr))
	}
}

func constant(c *pyast.Constant) (Value, error) {
	switch c.Kind {
	case pyast.ConstInt:
		v, ok := ParseLiteral(c.Value).(Int)
		if !ok {
			return nil, fmt.Errorf("%w: bad integer literal %q", ErrValue, c.Value)
		}

		return v, nil
	case pyast.ConstFloat:
		switch v := ParseLiteral(c.Value).(type) {
		case Float:
			return v, nil
		case Int:
			f, _ := asFloat(v)

			return Float(f), nil
		default:
			return nil, fmt.Errorf("%w: bad float literal %q", ErrValue, c.Value)
		}
	case pyast.ConstStr:
		return Str(c.Value), nil
	case pyast.ConstBool:
		return Bool(c.Value == "True"), nil
	default:
		return None, nil
	}
}

func (r *run) boolOp(e *pyast.BoolOp, env *Env) (Value, error) {
	var last Value = None

	for _, operand := range e.Values {
		v, err := r.expr(operand, env)
		if err != nil {
			return nil, err
		}

		last = v

		if (e.Op == "and") != Truthy(v) {
			return v, nil
		}
	}

	return last, nil
}

func (r *run) compare(e *pyast.Compare, env *Env) (Value, error) {
	left, err := r.expr(e.Left, env)
	if err != nil {
		return nil, err
	}

	for i, op := range e.Ops {
		right, err := r.expr(e.Comparators[i], env)
		if err != nil {
			return nil, err
		}

		ok, err := compareOp(op, left, right)
		if err != nil {
			return nil, err
		}

		if !ok {
			return Bool(false), nil
		}

		left = right
	}

	return Bool(true), nil
}

func (r *run) subscript(e *pyast.Subscript, env *Env) (Value, error) {
	container, err := r.expr(e.X, env)
	if err != nil {
		return nil, err
	}

	idx, err := r.expr(e.Index, env)
	if err != nil {
		return nil, err
	}

	vals, ok := sequence(container)
	if !ok {
		return nil, typeError("'%s' object is not subscriptable", container.TypeName())
	}

	pos, err := index(idx, len(vals))
	if err != nil {
		return nil, err
	}

	return vals[pos], nil
}

func index(idx Value, length int) (int, error) {
	i, ok := asInt(idx)
	if !ok {
		return 0, typeError("indices must be integers, not %s", idx.TypeName())
	}

	if !i.IsInt64() {
		return 0, fmt.Errorf("%w: index out of range", ErrIndex)
	}

	pos := i.Int64()
	if pos < 0 {
		pos += int64(length)
	}

	if pos < 0 || pos >= int64(length) {
		return 0, fmt.Errorf("%w: index out of range", ErrIndex)
	}

	return int(pos), nil
}

func (r *run) callExpr(e *pyast.Call, env *Env) (Value, error) {
	fn, err := r.expr(e.Func, env)
	if err != nil {
		return nil, err
	}

	args, err := r.exprs(e.Args, env)
	if err != nil {
		return nil, err
	}

	var kwargs map[string]Value

	if len(e.Keywords) > 0 {
		kwargs = make(map[string]Value, len(e.Keywords))

		for _, kw := range e.Keywords {
			v, err := r.expr(kw.Value, env)
			if err != nil {
				return nil, err
			}

			kwargs[kw.Name] = v
		}
	}

	return r.call(fn, args, kwargs)
}

func (r *run) call(callee Value, args []Value, kwargs map[string]Value) (Value, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	switch fn := callee.(type) {
	case *Builtin:
		if len(kwargs) > 0 {
			return nil, typeError("%s() takes no keyword arguments", fn.Name)
		}

		return fn.Fn(r, args)
	case *Function:
		return r.callFunction(fn, args, kwargs)
	default:
		return nil, typeError("'%s' object is not callable", callee.TypeName())
	}
}

func (r *run) callFunction(fn *Function, args []Value, kwargs map[string]Value) (Value, error) {
	if r.depth >= r.in.limit {
		return nil, ErrRecursionLimit
	}

	r.depth++
	defer func() { r.depth-- }()

	params := fn.Def.Params
	if len(args) > len(params) {
		return nil, typeError("%s() takes %d positional arguments but %d were given", fn.Def.Name, len(params), len(args))
	}

	local := NewEnv(fn.Closure)

	for i, p := range params {
		if i < len(args) {
			if _, dup := kwargs[p.Name]; dup {
				return nil, typeError("%s() got multiple values for argument '%s'", fn.Def.Name, p.Name)
			}

			local.Set(p.Name, args[i])

			continue
		}

		if v, ok := kwargs[p.Name]; ok {
			local.Set(p.Name, v)

			continue
		}

		if v, ok := fn.Defaults[p.Name]; ok {
			local.Set(p.Name, v)

			continue
		}

		return nil, typeError("%s() missing required argument: '%s'", fn.Def.Name, p.Name)
	}

	for name := range kwargs {
		if _, ok := local.vars[name]; !ok {
			return nil, typeError("%s() got an unexpected keyword argument '%s'", fn.Def.Name, name)
		}
	}

	ctl, v, err := r.block(fn.Def.Body, local)
	if err != nil {
		return nil, err
	}

	switch ctl {
	case ctlReturn:
		return v, nil
	case ctlBreak, ctlContinue:
		return nil, errOutsideLoop
	default:
		return None, nil
	}
}

func unaryOp(op string, x Value) (Value, error) {
	if op == "not" {
		return Bool(!Truthy(x)), nil
	}

	if f, ok := x.(Float); ok {
		switch op {
		case "-":
			return -f, nil
		case "+":
			return f, nil
		}
	}

	if i, ok := asInt(x); ok {
		switch op {
		case "-":
			return Int{V: new(big.Int).Neg(i)}, nil
		case "+":
			return Int{V: new(big.Int).Set(i)}, nil
		case "~":
			return Int{V: new(big.Int).Not(i)}, nil
		}
	}

	return nil, typeError("bad operand type for unary %s: '%s'", op, x.TypeName())
}
