package pyast

// Dump converts the tree rooted at node into nested maps in the shape of
// CPython's ast JSON dumps: every node carries "_type", "lineno",
// "col_offset", "end_lineno" and "end_col_offset" plus its own fields.
func Dump(node Node) map[string]any {
	if node == nil {
		return nil
	}

	pos := node.Pos()
	out := map[string]any{
		"_type":          typeName(node),
		"lineno":         pos.Line,
		"col_offset":     pos.Col,
		"end_lineno":     pos.EndLine,
		"end_col_offset": pos.EndCol,
	}

	switch n := node.(type) {
	case *Module:
		out["body"] = dumpStmts(n.Body)
	case *FunctionDef:
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = Dump(p)
		}

		out["name"] = n.Name
		out["args"] = params
		out["body"] = dumpStmts(n.Body)
	case *ClassDef:
		out["name"] = n.Name
		out["bases"] = dumpExprs(n.Bases)
		out["body"] = dumpStmts(n.Body)
	case *Param:
		out["arg"] = n.Name
		out["star"] = n.Star
		out["default"] = dumpExpr(n.Default)
	case *Keyword:
		out["arg"] = n.Name
		out["value"] = dumpExpr(n.Value)
	case *Return:
		out["value"] = dumpExpr(n.Value)
	case *If:
		out["test"] = dumpExpr(n.Test)
		out["body"] = dumpStmts(n.Body)
		out["orelse"] = dumpStmts(n.Orelse)
	case *While:
		out["test"] = dumpExpr(n.Test)
		out["body"] = dumpStmts(n.Body)
		out["orelse"] = dumpStmts(n.Orelse)
	case *Assign:
		out["targets"] = dumpExprs(n.Targets)
		out["value"] = dumpExpr(n.Value)
	case *AugAssign:
		out["target"] = dumpExpr(n.Target)
		out["op"] = n.Op
		out["value"] = dumpExpr(n.Value)
	case *ExprStmt:
		out["value"] = dumpExpr(n.X)
	case *RawStmt:
		out["kind"] = n.Kind
		out["text"] = n.Text
	case *Name:
		out["id"] = n.ID
	case *Constant:
		out["kind"] = n.Kind.String()
		out["value"] = n.Value
	case *BinOp:
		out["left"] = dumpExpr(n.Left)
		out["op"] = n.Op
		out["right"] = dumpExpr(n.Right)
	case *UnaryOp:
		out["op"] = n.Op
		out["operand"] = dumpExpr(n.X)
	case *BoolOp:
		out["op"] = n.Op
		out["values"] = dumpExprs(n.Values)
	case *Compare:
		ops := make([]any, len(n.Ops))
		for i, op := range n.Ops {
			ops[i] = op
		}

		out["left"] = dumpExpr(n.Left)
		out["ops"] = ops
		out["comparators"] = dumpExprs(n.Comparators)
	case *Call:
		kws := make([]any, len(n.Keywords))
		for i, kw := range n.Keywords {
			kws[i] = Dump(kw)
		}

		out["func"] = dumpExpr(n.Func)
		out["args"] = dumpExprs(n.Args)
		out["keywords"] = kws
	case *Tuple:
		out["elts"] = dumpExprs(n.Elts)
	case *List:
		out["elts"] = dumpExprs(n.Elts)
	case *Attribute:
		out["value"] = dumpExpr(n.X)
		out["attr"] = n.Attr
	case *Subscript:
		out["value"] = dumpExpr(n.X)
		out["slice"] = dumpExpr(n.Index)
	case *IfExp:
		out["test"] = dumpExpr(n.Test)
		out["body"] = dumpExpr(n.Body)
		out["orelse"] = dumpExpr(n.Orelse)
	case *RawExpr:
		out["kind"] = n.Kind
		out["text"] = n.Text
	}

	return out
}

// dumpExpr keeps a nil optional child as JSON null rather than a typed nil map.
func dumpExpr(e Expr) any {
	if e == nil {
		return nil
	}

	return Dump(e)
}

func dumpExprs(exprs []Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = dumpExpr(e)
	}

	return out
}

func dumpStmts(stmts []Stmt) []any {
	out := make([]any, len(stmts))
	for i, s := range stmts {
		out[i] = Dump(s)
	}

	return out
}

func typeName(node Node) string {
	switch node.(type) {
	case *Module:
		return "Module"
	case *FunctionDef:
		return "FunctionDef"
	case *ClassDef:
		return "ClassDef"
	case *Param:
		return "arg"
	case *Keyword:
		return "keyword"
	case *Return:
		return "Return"
	case *If:
		return "If"
	case *While:
		return "While"
	case *Assign:
		return "Assign"
	case *AugAssign:
		return "AugAssign"
	case *ExprStmt:
		return "Expr"
	case *Pass:
		return "Pass"
	case *Break:
		return "Break"
	case *Continue:
		return "Continue"
	case *RawStmt:
		return "RawStmt"
	case *Name:
		return "Name"
	case *Constant:
		return "Constant"
	case *BinOp:
		return "BinOp"
	case *UnaryOp:
		return "UnaryOp"
	case *BoolOp:
		return "BoolOp"
	case *Compare:
		return "Compare"
	case *Call:
		return "Call"
	case *Tuple:
		return "Tuple"
	case *List:
		return "List"
	case *Attribute:
		return "Attribute"
	case *Subscript:
		return "Subscript"
	case *IfExp:
		return "IfExp"
	case *RawExpr:
		return "RawExpr"
	default:
		return ""
	}
}

// TypeName returns the CPython-style node class name of node.
func TypeName(node Node) string { return typeName(node) }
