package tailrec

import "github.com/Sumatoshi-tech/iter2tail/pkg/pyast"

// AnalyzeLoops describes every while statement at the top level of body, in
// order. Loops nested in other statements are not reported.
func AnalyzeLoops(body []pyast.Stmt) []LoopDescriptor {
	var loops []LoopDescriptor

	for i, stmt := range body {
		w, ok := stmt.(*pyast.While)
		if !ok {
			continue
		}

		ld := LoopDescriptor{
			Condition:    w.Test,
			Updates:      CollectUpdates(w.Body),
			Initializers: initializers(body[:i]),
			Prelude:      body[:i],
			Node:         w,
		}

		rest := body[i+1:]
		if len(rest) > 0 {
			if ret, ok := rest[0].(*pyast.Return); ok {
				ld.Return = ret.Value
				if name, ok := ret.Value.(*pyast.Name); ok {
					ld.Result = name.ID
				}

				rest = rest[1:]
			}
		}

		ld.Trailing = len(rest)
		loops = append(loops, ld)
	}

	return loops
}

// initializers collects the simple-name assignments among stmts. Tuple
// assignments of matching arity contribute one initializer per element.
func initializers(stmts []pyast.Stmt) []Initializer {
	var out []Initializer

	for _, stmt := range stmts {
		a, ok := stmt.(*pyast.Assign)
		if !ok {
			continue
		}

		for _, target := range a.Targets {
			switch t := target.(type) {
			case *pyast.Name:
				out = append(out, Initializer{Name: t.ID, Value: a.Value})
			case *pyast.Tuple:
				rhs, ok := a.Value.(*pyast.Tuple)
				if !ok || len(rhs.Elts) != len(t.Elts) {
					continue
				}

				for i, elt := range t.Elts {
					if n, ok := elt.(*pyast.Name); ok {
						out = append(out, Initializer{Name: n.ID, Value: rhs.Elts[i]})
					}
				}
			}
		}
	}

	return out
}

// AnalyzeFunction builds the descriptor of fn.
func AnalyzeFunction(fn *pyast.FunctionDef) FunctionDescriptor {
	return FunctionDescriptor{
		Name:   fn.Name,
		Params: fn.ParamNames(),
		Loops:  AnalyzeLoops(fn.Body),
		Node:   fn,
	}
}

// AnalyzeModule describes every function definition of mod, nested ones
// included, in pre-order. Functions sharing a name are all kept.
func AnalyzeModule(mod *pyast.Module) []FunctionDescriptor {
	var out []FunctionDescriptor

	pyast.Inspect(mod, func(n pyast.Node) bool {
		if fn, ok := n.(*pyast.FunctionDef); ok {
			out = append(out, AnalyzeFunction(fn))
		}

		return true
	})

	return out
}
