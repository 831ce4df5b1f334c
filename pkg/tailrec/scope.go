package tailrec

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// references returns the names the generated helper reads: those of the
// loop condition, of every next-state expression and of the result.
func (li LoopInfo) references() []string {
	var refs []string

	add := func(e pyast.Expr) {
		if e == nil {
			return
		}

		for _, name := range pyast.NamesIn(e) {
			if !slices.Contains(refs, name) {
				refs = append(refs, name)
			}
		}
	}

	add(li.Condition)

	for _, sv := range li.State {
		add(sv.Next)
	}

	if li.ResultExpr != nil {
		add(li.ResultExpr)
	} else {
		add(pyast.NewName(li.Result))
	}

	return refs
}

// preludeNeeded reports whether the statements before the loop must run in
// the generated function. Only plain initializers can be folded into the
// initial call, and only when they bind state variables or names nothing
// reads afterwards.
func preludeNeeded(prelude []pyast.Stmt, state, refs []string) bool {
	for _, stmt := range prelude {
		switch s := stmt.(type) {
		case *pyast.Pass:
			continue
		case *pyast.Assign:
			if foldableInitializer(s, state, refs) {
				continue
			}
		}

		return true
	}

	return false
}

func foldableInitializer(a *pyast.Assign, state, refs []string) bool {
	if hasCall(a.Value) {
		return false
	}

	for _, target := range a.Targets {
		var names []string

		switch t := target.(type) {
		case *pyast.Name:
			names = []string{t.ID}
		case *pyast.Tuple:
			rhs, ok := a.Value.(*pyast.Tuple)
			if !ok || len(rhs.Elts) != len(t.Elts) {
				return false
			}

			for _, elt := range t.Elts {
				n, ok := elt.(*pyast.Name)
				if !ok {
					return false
				}

				names = append(names, n.ID)
			}
		default:
			return false
		}

		for _, name := range names {
			if !slices.Contains(state, name) && slices.Contains(refs, name) {
				return false
			}
		}
	}

	return true
}

func hasCall(e pyast.Expr) bool {
	found := false

	pyast.Inspect(e, func(n pyast.Node) bool {
		switch n.(type) {
		case *pyast.Call, *pyast.RawExpr:
			found = true
		}

		return !found
	})

	return found
}

// unboundLocals warns about names the helper reads that are local to fn but
// bound neither as a parameter, a state variable nor by a carried prelude.
// Such a name raises NameError in the generated function.
func unboundLocals(fn *pyast.FunctionDef, info LoopInfo, refs []string) []string {
	locals := assignedNames(fn.Body)
	bound := slices.Concat(fn.ParamNames(), info.Names())

	if info.CarryPrelude {
		bound = append(bound, assignedNames(info.Prelude)...)
	}

	var out []string

	for _, name := range refs {
		if slices.Contains(locals, name) && !slices.Contains(bound, name) {
			out = append(out, fmt.Sprintf("%s is local to %s but not bound in the generated function", name, fn.Name))
		}
	}

	return out
}

// assignedNames returns the names stmts bind, in first-binding order. Nested
// function and class definitions bind their own name; their bodies are not
// entered.
func assignedNames(stmts []pyast.Stmt) []string {
	var names []string

	var bind func(pyast.Expr)

	bind = func(e pyast.Expr) {
		switch t := e.(type) {
		case *pyast.Name:
			if !slices.Contains(names, t.ID) {
				names = append(names, t.ID)
			}
		case *pyast.Tuple:
			for _, elt := range t.Elts {
				bind(elt)
			}
		case *pyast.List:
			for _, elt := range t.Elts {
				bind(elt)
			}
		}
	}

	for _, stmt := range stmts {
		pyast.Inspect(stmt, func(n pyast.Node) bool {
			switch s := n.(type) {
			case *pyast.FunctionDef:
				bind(pyast.NewName(s.Name))

				return false
			case *pyast.ClassDef:
				bind(pyast.NewName(s.Name))

				return false
			case *pyast.Assign:
				for _, target := range s.Targets {
					bind(target)
				}
			case *pyast.AugAssign:
				bind(s.Target)
			}

			return true
		})
	}

	return names
}
