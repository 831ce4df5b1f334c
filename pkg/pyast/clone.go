package pyast

// CloneExpr returns a deep copy of expr. Positions are copied as well.
func CloneExpr(expr Expr) Expr {
	return rewriteExpr(expr, nil)
}

// Substitute returns a deep copy of expr in which every Name whose ID is a
// key of bindings is replaced by a deep copy of the bound expression.
func Substitute(expr Expr, bindings map[string]Expr) Expr {
	return rewriteExpr(expr, bindings)
}

func cloneExprs(exprs []Expr, bindings map[string]Expr) []Expr {
	if exprs == nil {
		return nil
	}

	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = rewriteExpr(e, bindings)
	}

	return out
}

func rewriteExpr(expr Expr, bindings map[string]Expr) Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *Name:
		if bound, ok := bindings[e.ID]; ok {
			return rewriteExpr(bound, nil)
		}

		c := *e

		return &c
	case *Constant:
		c := *e

		return &c
	case *RawExpr:
		c := *e

		return &c
	case *BinOp:
		return &BinOp{Loc: e.Loc, Left: rewriteExpr(e.Left, bindings), Op: e.Op, Right: rewriteExpr(e.Right, bindings)}
	case *UnaryOp:
		return &UnaryOp{Loc: e.Loc, Op: e.Op, X: rewriteExpr(e.X, bindings)}
	case *BoolOp:
		return &BoolOp{Loc: e.Loc, Op: e.Op, Values: cloneExprs(e.Values, bindings)}
	case *Compare:
		return &Compare{
			Loc:         e.Loc,
			Left:        rewriteExpr(e.Left, bindings),
			Ops:         append([]string(nil), e.Ops...),
			Comparators: cloneExprs(e.Comparators, bindings),
		}
	case *Call:
		c := &Call{Loc: e.Loc, Func: rewriteExpr(e.Func, bindings), Args: cloneExprs(e.Args, bindings)}
		for _, kw := range e.Keywords {
			c.Keywords = append(c.Keywords, &Keyword{Loc: kw.Loc, Name: kw.Name, Value: rewriteExpr(kw.Value, bindings)})
		}

		return c
	case *Tuple:
		return &Tuple{Loc: e.Loc, Elts: cloneExprs(e.Elts, bindings)}
	case *List:
		return &List{Loc: e.Loc, Elts: cloneExprs(e.Elts, bindings)}
	case *Attribute:
		return &Attribute{Loc: e.Loc, X: rewriteExpr(e.X, bindings), Attr: e.Attr}
	case *Subscript:
		return &Subscript{Loc: e.Loc, X: rewriteExpr(e.X, bindings), Index: rewriteExpr(e.Index, bindings)}
	case *IfExp:
		return &IfExp{
			Loc:    e.Loc,
			Test:   rewriteExpr(e.Test, bindings),
			Body:   rewriteExpr(e.Body, bindings),
			Orelse: rewriteExpr(e.Orelse, bindings),
		}
	default:
		panic("pyast: unknown expression type")
	}
}

// CloneStmts returns deep copies of stmts.
func CloneStmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return nil
	}

	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = CloneStmt(s)
	}

	return out
}

// CloneParam returns a deep copy of p.
func CloneParam(p *Param) *Param {
	return &Param{Loc: p.Loc, Name: p.Name, Star: p.Star, Default: CloneExpr(p.Default)}
}

// CloneStmt returns a deep copy of stmt.
func CloneStmt(stmt Stmt) Stmt {
	switch s := stmt.(type) {
	case nil:
		return nil
	case *FunctionDef:
		c := &FunctionDef{Loc: s.Loc, Name: s.Name, Body: CloneStmts(s.Body)}
		for _, p := range s.Params {
			c.Params = append(c.Params, CloneParam(p))
		}

		return c
	case *ClassDef:
		return &ClassDef{Loc: s.Loc, Name: s.Name, Bases: cloneExprs(s.Bases, nil), Body: CloneStmts(s.Body)}
	case *Return:
		return &Return{Loc: s.Loc, Value: CloneExpr(s.Value)}
	case *If:
		return &If{Loc: s.Loc, Test: CloneExpr(s.Test), Body: CloneStmts(s.Body), Orelse: CloneStmts(s.Orelse)}
	case *While:
		return &While{Loc: s.Loc, Test: CloneExpr(s.Test), Body: CloneStmts(s.Body), Orelse: CloneStmts(s.Orelse)}
	case *Assign:
		return &Assign{Loc: s.Loc, Targets: cloneExprs(s.Targets, nil), Value: CloneExpr(s.Value)}
	case *AugAssign:
		return &AugAssign{Loc: s.Loc, Target: CloneExpr(s.Target), Op: s.Op, Value: CloneExpr(s.Value)}
	case *ExprStmt:
		return &ExprStmt{Loc: s.Loc, X: CloneExpr(s.X)}
	case *Pass:
		c := *s

		return &c
	case *Break:
		c := *s

		return &c
	case *Continue:
		c := *s

		return &c
	case *RawStmt:
		c := *s

		return &c
	default:
		panic("pyast: unknown statement type")
	}
}
