package tailrec

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// StateOrder selects the order of the recursion parameters.
type StateOrder string

const (
	// OrderTextual orders state variables by their first update in the
	// loop body.
	OrderTextual StateOrder = "textual"
	// OrderParamsFirst puts the function's own parameters first, in
	// declaration order, followed by the remaining locals in textual order.
	OrderParamsFirst StateOrder = "params-first"
)

// ParseStateOrder validates a configured ordering.
func ParseStateOrder(s string) (StateOrder, error) {
	switch StateOrder(s) {
	case OrderTextual, "":
		return OrderTextual, nil
	case OrderParamsFirst:
		return OrderParamsFirst, nil
	default:
		return "", fmt.Errorf("%w: state order %q", ErrInvalidOption, s)
	}
}

// ExtractLoopInfo selects the first loop of fd and derives its state. Only
// updates of bare names become state variables; a name updated several times
// yields one variable whose next value composes the updates in order.
func ExtractLoopInfo(fd FunctionDescriptor, order StateOrder) (LoopInfo, error) {
	if len(fd.Loops) == 0 {
		return LoopInfo{}, fmt.Errorf("%w: %s", ErrNoLoop, fd.Name)
	}

	loop := fd.Loops[0]

	if err := checkLoopShape(loop.Node); err != nil {
		return LoopInfo{}, fmt.Errorf("%s: %w", fd.Name, err)
	}

	info := LoopInfo{Condition: loop.Condition, Prelude: loop.Prelude}

	var names []string

	for _, u := range loop.Updates {
		name, ok := u.Name()
		if !ok {
			info.Warnings = append(info.Warnings, fmt.Sprintf(
				"line %d: update of %s is not a simple name and is ignored",
				u.Target.Pos().Line, pyast.Unparse(u.Target)))

			continue
		}

		info.Updates = append(info.Updates, u)

		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return LoopInfo{}, fmt.Errorf("%w: %s", ErrNoStateVariables, fd.Name)
	}

	if order == OrderParamsFirst {
		names = paramsFirst(names, fd.Params)
	}

	next := composeUpdates(info.Updates)
	for _, name := range names {
		info.State = append(info.State, StateVar{Name: name, Next: next[name]})
	}

	info.Result = names[0]

	switch {
	case loop.Result != "" && slices.Contains(names, loop.Result):
		info.Result = loop.Result
	case loop.Return != nil:
		info.ResultExpr = loop.Return
	default:
		info.Warnings = append(info.Warnings, fmt.Sprintf(
			"no return follows the loop; %s is returned when it ends", info.Result))
	}

	if loop.Trailing > 0 {
		info.Warnings = append(info.Warnings, fmt.Sprintf(
			"%d statement(s) after the loop are dropped", loop.Trailing))
	}

	info.Initial = resolveInitializers(loop.Initializers, names)
	info.Warnings = append(info.Warnings, droppedStatements(loop.Node.Body)...)

	refs := info.references()
	info.CarryPrelude = preludeNeeded(loop.Prelude, names, refs)

	if fd.Node != nil {
		info.Warnings = append(info.Warnings, unboundLocals(fd.Node, info, refs)...)
	}

	return info, nil
}

// checkLoopShape rejects loops whose control flow cannot be folded into a
// single recursive call.
func checkLoopShape(w *pyast.While) error {
	if len(w.Orelse) > 0 {
		return fmt.Errorf("%w: while loop with else clause at line %d", ErrUnsupportedLoop, w.Pos().Line)
	}

	var problem error

	pyast.Inspect(w, func(n pyast.Node) bool {
		if problem != nil {
			return false
		}

		switch s := n.(type) {
		case *pyast.FunctionDef, *pyast.ClassDef:
			return false
		case *pyast.Break:
			problem = fmt.Errorf("%w: break at line %d", ErrUnsupportedLoop, s.Pos().Line)
		case *pyast.Continue:
			problem = fmt.Errorf("%w: continue at line %d", ErrUnsupportedLoop, s.Pos().Line)
		case *pyast.Return:
			problem = fmt.Errorf("%w: return inside loop at line %d", ErrUnsupportedLoop, s.Pos().Line)
		case *pyast.While:
			if s != w {
				problem = fmt.Errorf("%w: nested loop at line %d", ErrUnsupportedLoop, s.Pos().Line)
			}
		case *pyast.RawStmt:
			if s.Kind == "for_statement" {
				problem = fmt.Errorf("%w: nested loop at line %d", ErrUnsupportedLoop, s.Pos().Line)
			}
		}

		return true
	})

	return problem
}

func paramsFirst(names, params []string) []string {
	out := make([]string, 0, len(names))

	for _, p := range params {
		if slices.Contains(names, p) {
			out = append(out, p)
		}
	}

	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}

	return out
}

// composeUpdates computes, for every updated name, its value at the end of
// one iteration in terms of the values at its start. Updates of one group
// read the bindings as they stood before the group. A guarded update keeps
// the previous binding when its guards do not hold.
func composeUpdates(updates []Update) map[string]pyast.Expr {
	bound := make(map[string]pyast.Expr)
	before := make(map[int]map[string]pyast.Expr)

	for i := 0; i < len(updates); {
		group := updates[i].Group

		j := i
		for j < len(updates) && updates[j].Group == group {
			j++
		}

		before[group] = maps.Clone(bound)
		staged := make(map[string]pyast.Expr, j-i)

		for _, u := range updates[i:j] {
			name, _ := u.Name()
			next := pyast.Substitute(u.Next(), bound)

			if u.Conditional() {
				prev, ok := bound[name]
				if !ok {
					prev = pyast.NewName(name)
				}

				next = &pyast.IfExp{
					Test:   guardTest(u.Guards, before, group),
					Body:   next,
					Orelse: pyast.CloneExpr(prev),
				}
			}

			staged[name] = next
		}

		for name, expr := range staged {
			bound[name] = expr
		}

		i = j
	}

	return bound
}

// guardTest joins guards with `and`. Each test is rewritten with the
// bindings in force before the first group under its if statement.
func guardTest(guards []Guard, before map[int]map[string]pyast.Expr, group int) pyast.Expr {
	tests := make([]pyast.Expr, 0, len(guards))

	for _, g := range guards {
		var snapshot map[string]pyast.Expr

		for k := g.Group; k <= group; k++ {
			if b, ok := before[k]; ok {
				snapshot = b

				break
			}
		}

		test := pyast.Substitute(g.Test, snapshot)
		if g.Negate {
			test = &pyast.UnaryOp{Op: "not", X: test}
		}

		tests = append(tests, test)
	}

	if len(tests) == 1 {
		return tests[0]
	}

	return &pyast.BoolOp{Op: "and", Values: tests}
}

// resolveInitializers maps each state variable to its last pre-loop
// initializer. Earlier initializers are substituted into later ones so the
// result only refers to parameters and globals.
func resolveInitializers(inits []Initializer, names []string) map[string]pyast.Expr {
	bound := make(map[string]pyast.Expr)

	for _, in := range inits {
		bound[in.Name] = pyast.Substitute(in.Value, bound)
	}

	out := make(map[string]pyast.Expr)

	for _, name := range names {
		if expr, ok := bound[name]; ok {
			out[name] = expr
		}
	}

	return out
}

func droppedStatements(body []pyast.Stmt) []string {
	var out []string

	for _, stmt := range body {
		switch s := stmt.(type) {
		case *pyast.Assign, *pyast.AugAssign, *pyast.Pass:
		case *pyast.If:
			out = append(out, droppedStatements(s.Body)...)
			out = append(out, droppedStatements(s.Orelse)...)
		default:
			out = append(out, fmt.Sprintf("line %d: %s in loop body is dropped", stmt.Pos().Line, pyast.TypeName(stmt)))
		}
	}

	return out
}
