package tailrec

import (
	"slices"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// Synthesize builds the tail-recursive replacement of fn from info. The
// returned tree shares no nodes with fn and is not position-stamped.
//
// The result has the shape below. The prelude is copied in front of the
// helper when KeepPrelude is set or when info.CarryPrelude says it cannot be
// folded into the initial call.
//
//	def <name><suffix>(<params>):
//	    <prelude>
//	    def loop(<state>):
//	        if not (<condition>):
//	            return <result>
//	        return loop(<next state>)
//	    return loop(<initial state>)
func Synthesize(fn *pyast.FunctionDef, info LoopInfo, opts Options) *pyast.FunctionDef {
	helper := uniqueName(fn, opts.HelperName)

	params := make([]*pyast.Param, len(info.State))
	next := make([]pyast.Expr, len(info.State))

	for i, sv := range info.State {
		params[i] = &pyast.Param{Name: sv.Name}

		if sv.Next != nil {
			next[i] = pyast.CloneExpr(sv.Next)
		} else {
			next[i] = pyast.NewName(sv.Name)
		}
	}

	var result pyast.Expr = pyast.NewName(info.Result)
	if info.ResultExpr != nil {
		result = pyast.CloneExpr(info.ResultExpr)
	}

	loop := &pyast.FunctionDef{
		Name:   helper,
		Params: params,
		Body: []pyast.Stmt{
			&pyast.If{
				Test: &pyast.UnaryOp{Op: "not", X: pyast.CloneExpr(info.Condition)},
				Body: []pyast.Stmt{&pyast.Return{Value: result}},
			},
			&pyast.Return{Value: &pyast.Call{Func: pyast.NewName(helper), Args: next}},
		},
	}

	outer := &pyast.FunctionDef{Name: fn.Name + opts.Suffix}
	for _, p := range fn.Params {
		outer.Params = append(outer.Params, pyast.CloneParam(p))
	}

	keep := opts.KeepPrelude || info.CarryPrelude
	if keep {
		outer.Body = pyast.CloneStmts(info.Prelude)
	}

	outer.Body = append(outer.Body,
		loop,
		&pyast.Return{Value: &pyast.Call{Func: pyast.NewName(helper), Args: initialArgs(fn, info, opts, keep)}},
	)

	return outer
}

// initialArgs picks the first value of every state variable: its captured
// initializer, the parameter of the same name, or the configured literal.
// When the prelude is kept it runs in the new function, so names it binds
// are passed through as they are.
func initialArgs(fn *pyast.FunctionDef, info LoopInfo, opts Options, keepPrelude bool) []pyast.Expr {
	params := fn.ParamNames()
	args := make([]pyast.Expr, len(info.State))

	var prelude []string
	if keepPrelude {
		prelude = assignedNames(info.Prelude)
	}

	for i, sv := range info.State {
		init, hasInit := info.Initial[sv.Name]

		switch {
		case slices.Contains(prelude, sv.Name):
			args[i] = pyast.NewName(sv.Name)
		case hasInit:
			args[i] = pyast.CloneExpr(init)
		case slices.Contains(params, sv.Name):
			args[i] = pyast.NewName(sv.Name)
		default:
			args[i] = fallbackLiteral(opts.DefaultInitial)
		}
	}

	return args
}

func fallbackLiteral(text string) pyast.Expr {
	c, err := ParseLiteral(text)
	if err != nil {
		return pyast.NewInt(DefaultInitial)
	}

	return c
}

// uniqueName returns base, extended with underscores until it clashes with
// no identifier used in fn.
func uniqueName(fn *pyast.FunctionDef, base string) string {
	used := make(map[string]bool)

	pyast.Inspect(fn, func(n pyast.Node) bool {
		switch x := n.(type) {
		case *pyast.Name:
			used[x.ID] = true
		case *pyast.Param:
			used[x.Name] = true
		case *pyast.FunctionDef:
			if x != fn {
				used[x.Name] = true
			}
		}

		return true
	})

	name := base
	for used[name] {
		name += "_"
	}

	return name
}
