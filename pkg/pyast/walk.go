package pyast

// Visitor is called by Walk for each node. If Visit returns nil the
// children of node are skipped; otherwise Walk continues with the returned
// visitor.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses the tree rooted at node in depth-first pre-order.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	for _, child := range Children(node) {
		Walk(v, child)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}

	return nil
}

// Inspect calls f for every node in pre-order. Children are skipped when f
// returns false.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// Children returns the direct children of node in source order. Nil
// optional children are omitted.
func Children(node Node) []Node {
	var out []Node

	addExpr := func(e Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	addStmts := func(stmts []Stmt) {
		for _, s := range stmts {
			out = append(out, s)
		}
	}
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			addExpr(e)
		}
	}

	switch n := node.(type) {
	case *Module:
		addStmts(n.Body)
	case *FunctionDef:
		for _, p := range n.Params {
			out = append(out, p)
		}

		addStmts(n.Body)
	case *ClassDef:
		addExprs(n.Bases)
		addStmts(n.Body)
	case *Param:
		addExpr(n.Default)
	case *Keyword:
		addExpr(n.Value)
	case *Return:
		addExpr(n.Value)
	case *If:
		addExpr(n.Test)
		addStmts(n.Body)
		addStmts(n.Orelse)
	case *While:
		addExpr(n.Test)
		addStmts(n.Body)
		addStmts(n.Orelse)
	case *Assign:
		addExprs(n.Targets)
		addExpr(n.Value)
	case *AugAssign:
		addExpr(n.Target)
		addExpr(n.Value)
	case *ExprStmt:
		addExpr(n.X)
	case *BinOp:
		addExpr(n.Left)
		addExpr(n.Right)
	case *UnaryOp:
		addExpr(n.X)
	case *BoolOp:
		addExprs(n.Values)
	case *Compare:
		addExpr(n.Left)
		addExprs(n.Comparators)
	case *Call:
		addExpr(n.Func)
		addExprs(n.Args)

		for _, kw := range n.Keywords {
			out = append(out, kw)
		}
	case *Tuple:
		addExprs(n.Elts)
	case *List:
		addExprs(n.Elts)
	case *Attribute:
		addExpr(n.X)
	case *Subscript:
		addExpr(n.X)
		addExpr(n.Index)
	case *IfExp:
		addExpr(n.Body)
		addExpr(n.Test)
		addExpr(n.Orelse)
	}

	return out
}

// NamesIn returns the identifiers referenced anywhere inside expr, in
// pre-order, without duplicates.
func NamesIn(expr Expr) []string {
	seen := make(map[string]bool)

	var names []string

	Inspect(expr, func(n Node) bool {
		if name, ok := n.(*Name); ok && !seen[name.ID] {
			seen[name.ID] = true
			names = append(names, name.ID)
		}

		return true
	})

	return names
}
