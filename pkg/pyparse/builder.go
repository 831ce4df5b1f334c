package pyparse

import (
	"strconv"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// builder lowers tree-sitter nodes into pyast. Anything outside the modeled
// subset becomes a RawStmt or RawExpr holding the original text.
type builder struct {
	src []byte
}

func (b *builder) text(n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(b.src)) || start > end {
		return ""
	}

	return string(b.src[start:end])
}

func (b *builder) loc(n sitter.Node) pyast.Loc {
	start, end := n.StartPoint(), n.EndPoint()

	return pyast.Loc{
		Line:    int(start.Row) + 1,
		Col:     int(start.Column),
		EndLine: int(end.Row) + 1,
		EndCol:  int(end.Column),
	}
}

func (b *builder) namedChildren(n sitter.Node) []sitter.Node {
	out := make([]sitter.Node, 0, n.NamedChildCount())

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}

		out = append(out, child)
	}

	return out
}

func (b *builder) module(root sitter.Node) *pyast.Module {
	mod := &pyast.Module{Body: b.stmts(root)}
	mod.SetPos(b.loc(root))

	return mod
}

func (b *builder) stmts(parent sitter.Node) []pyast.Stmt {
	var out []pyast.Stmt

	for _, child := range b.namedChildren(parent) {
		out = append(out, b.stmt(child))
	}

	return out
}

func (b *builder) block(n sitter.Node) []pyast.Stmt {
	if n.IsNull() {
		return nil
	}

	return b.stmts(n)
}

func (b *builder) raw(n sitter.Node) *pyast.RawStmt {
	loc := b.loc(n)
	s := &pyast.RawStmt{Kind: n.Type(), Text: dedent(b.text(n), loc.Col)}
	s.SetPos(loc)

	return s
}

func (b *builder) stmt(n sitter.Node) pyast.Stmt {
	var s pyast.Stmt

	switch n.Type() {
	case "function_definition":
		s = b.functionDef(n)
	case "class_definition":
		s = b.classDef(n)
	case "return_statement":
		ret := &pyast.Return{}
		if kids := b.namedChildren(n); len(kids) > 0 {
			ret.Value = b.exprList(kids)
		}

		s = ret
	case "if_statement":
		s = b.ifStmt(n)
	case "while_statement":
		s = b.whileStmt(n)
	case "expression_statement":
		s = b.expressionStatement(n)
	case "pass_statement":
		s = &pyast.Pass{}
	case "break_statement":
		s = &pyast.Break{}
	case "continue_statement":
		s = &pyast.Continue{}
	}

	if s == nil {
		return b.raw(n)
	}

	s.SetPos(b.loc(n))

	return s
}

func (b *builder) functionDef(n sitter.Node) pyast.Stmt {
	fn := &pyast.FunctionDef{Name: b.text(n.ChildByFieldName("name"))}

	if params := n.ChildByFieldName("parameters"); !params.IsNull() {
		for _, p := range b.namedChildren(params) {
			param := b.param(p)
			if param == nil {
				return nil
			}

			fn.Params = append(fn.Params, param)
		}
	}

	fn.Body = b.block(n.ChildByFieldName("body"))

	return fn
}

func (b *builder) param(n sitter.Node) *pyast.Param {
	p := &pyast.Param{}

	switch n.Type() {
	case "identifier":
		p.Name = b.text(n)
	case "default_parameter", "typed_default_parameter":
		p.Name = b.text(n.ChildByFieldName("name"))
		p.Default = b.expr(n.ChildByFieldName("value"))
	case "typed_parameter":
		kids := b.namedChildren(n)
		if len(kids) == 0 {
			return nil
		}

		inner := b.param(kids[0])
		if inner == nil {
			return nil
		}

		p = inner
	case "list_splat_pattern", "dictionary_splat_pattern":
		kids := b.namedChildren(n)
		if len(kids) == 0 {
			return nil
		}

		p.Name = b.text(kids[0])
		p.Star = "*"

		if n.Type() == "dictionary_splat_pattern" {
			p.Star = "**"
		}
	default:
		return nil
	}

	p.SetPos(b.loc(n))

	return p
}

func (b *builder) classDef(n sitter.Node) pyast.Stmt {
	cls := &pyast.ClassDef{Name: b.text(n.ChildByFieldName("name"))}

	if supers := n.ChildByFieldName("superclasses"); !supers.IsNull() {
		for _, base := range b.namedChildren(supers) {
			cls.Bases = append(cls.Bases, b.expr(base))
		}
	}

	cls.Body = b.block(n.ChildByFieldName("body"))

	return cls
}

func (b *builder) ifStmt(n sitter.Node) pyast.Stmt {
	root := &pyast.If{
		Test: b.expr(n.ChildByFieldName("condition")),
		Body: b.block(n.ChildByFieldName("consequence")),
	}

	// Clauses are chained onto the innermost If in source order.
	tail := root

	for _, clause := range b.namedChildren(n) {
		switch clause.Type() {
		case "elif_clause":
			elif := &pyast.If{
				Test: b.expr(clause.ChildByFieldName("condition")),
				Body: b.block(clause.ChildByFieldName("consequence")),
			}
			elif.SetPos(b.loc(clause))
			tail.Orelse = []pyast.Stmt{elif}
			tail = elif
		case "else_clause":
			tail.Orelse = b.block(clause.ChildByFieldName("body"))
		}
	}

	return root
}

func (b *builder) whileStmt(n sitter.Node) pyast.Stmt {
	w := &pyast.While{
		Test: b.expr(n.ChildByFieldName("condition")),
		Body: b.block(n.ChildByFieldName("body")),
	}

	if alt := n.ChildByFieldName("alternative"); !alt.IsNull() {
		w.Orelse = b.block(alt.ChildByFieldName("body"))
	}

	return w
}

func (b *builder) expressionStatement(n sitter.Node) pyast.Stmt {
	kids := b.namedChildren(n)
	if len(kids) == 0 {
		return nil
	}

	if len(kids) == 1 {
		switch kids[0].Type() {
		case "assignment":
			return b.assignment(kids[0])
		case "augmented_assignment":
			return b.augAssignment(kids[0])
		}
	}

	return &pyast.ExprStmt{X: b.exprList(kids)}
}

func (b *builder) assignment(n sitter.Node) pyast.Stmt {
	right := n.ChildByFieldName("right")
	if right.IsNull() {
		// Bare annotation such as `x: int`.
		return nil
	}

	a := &pyast.Assign{Targets: []pyast.Expr{b.target(n.ChildByFieldName("left"))}}

	// Chained assignment nests on the right: a = b = value.
	for right.Type() == "assignment" {
		a.Targets = append(a.Targets, b.target(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}

	a.Value = b.expr(right)

	return a
}

func (b *builder) augAssignment(n sitter.Node) pyast.Stmt {
	op := strings.TrimSuffix(b.text(n.ChildByFieldName("operator")), "=")

	return &pyast.AugAssign{
		Target: b.target(n.ChildByFieldName("left")),
		Op:     op,
		Value:  b.expr(n.ChildByFieldName("right")),
	}
}

func (b *builder) target(n sitter.Node) pyast.Expr {
	switch n.Type() {
	case "pattern_list", "tuple_pattern":
		t := &pyast.Tuple{}
		for _, kid := range b.namedChildren(n) {
			t.Elts = append(t.Elts, b.target(kid))
		}

		t.SetPos(b.loc(n))

		return t
	case "list_pattern":
		l := &pyast.List{}
		for _, kid := range b.namedChildren(n) {
			l.Elts = append(l.Elts, b.target(kid))
		}

		l.SetPos(b.loc(n))

		return l
	default:
		return b.expr(n)
	}
}

// exprList turns a comma separated sequence of expressions into one
// expression, building a Tuple when there is more than one.
func (b *builder) exprList(kids []sitter.Node) pyast.Expr {
	if len(kids) == 1 {
		return b.expr(kids[0])
	}

	t := &pyast.Tuple{}
	for _, kid := range kids {
		t.Elts = append(t.Elts, b.expr(kid))
	}

	first, last := b.loc(kids[0]), b.loc(kids[len(kids)-1])
	t.SetPos(pyast.Loc{Line: first.Line, Col: first.Col, EndLine: last.EndLine, EndCol: last.EndCol})

	return t
}

func (b *builder) rawExpr(n sitter.Node) pyast.Expr {
	loc := b.loc(n)
	e := &pyast.RawExpr{Kind: n.Type(), Text: dedent(b.text(n), loc.Col)}
	e.SetPos(loc)

	return e
}

func (b *builder) expr(n sitter.Node) pyast.Expr {
	if n.IsNull() {
		return nil
	}

	var e pyast.Expr

	switch n.Type() {
	case "identifier":
		e = &pyast.Name{ID: b.text(n)}
	case "integer":
		e = &pyast.Constant{Kind: pyast.ConstInt, Value: b.text(n)}
	case "float":
		e = &pyast.Constant{Kind: pyast.ConstFloat, Value: b.text(n)}
	case "true":
		e = &pyast.Constant{Kind: pyast.ConstBool, Value: "True"}
	case "false":
		e = &pyast.Constant{Kind: pyast.ConstBool, Value: "False"}
	case "none":
		e = &pyast.Constant{Kind: pyast.ConstNone, Value: "None"}
	case "string":
		if value, ok := decodeString(b.text(n)); ok {
			e = &pyast.Constant{Kind: pyast.ConstStr, Value: value}
		}
	case "parenthesized_expression":
		kids := b.namedChildren(n)
		if len(kids) == 1 {
			return b.expr(kids[0])
		}
	case "binary_operator":
		e = &pyast.BinOp{
			Left:  b.expr(n.ChildByFieldName("left")),
			Op:    b.text(n.ChildByFieldName("operator")),
			Right: b.expr(n.ChildByFieldName("right")),
		}
	case "unary_operator":
		e = &pyast.UnaryOp{
			Op: b.text(n.ChildByFieldName("operator")),
			X:  b.expr(n.ChildByFieldName("argument")),
		}
	case "not_operator":
		e = &pyast.UnaryOp{Op: "not", X: b.expr(n.ChildByFieldName("argument"))}
	case "boolean_operator":
		e = b.boolOp(n)
	case "comparison_operator":
		e = b.compare(n)
	case "call":
		e = b.call(n)
	case "tuple", "expression_list":
		t := &pyast.Tuple{}
		for _, kid := range b.namedChildren(n) {
			t.Elts = append(t.Elts, b.expr(kid))
		}

		e = t
	case "list":
		l := &pyast.List{}
		for _, kid := range b.namedChildren(n) {
			l.Elts = append(l.Elts, b.expr(kid))
		}

		e = l
	case "attribute":
		e = &pyast.Attribute{
			X:    b.expr(n.ChildByFieldName("object")),
			Attr: b.text(n.ChildByFieldName("attribute")),
		}
	case "subscript":
		e = b.subscript(n)
	case "conditional_expression":
		if kids := b.namedChildren(n); len(kids) == 3 {
			e = &pyast.IfExp{Body: b.expr(kids[0]), Test: b.expr(kids[1]), Orelse: b.expr(kids[2])}
		}
	}

	if e == nil || hasNilChild(e) {
		return b.rawExpr(n)
	}

	e.SetPos(b.loc(n))

	return e
}

// hasNilChild reports lowered expressions that lost a required operand,
// which happens for grammar shapes this builder does not model.
func hasNilChild(e pyast.Expr) bool {
	switch x := e.(type) {
	case *pyast.BinOp:
		return x.Left == nil || x.Right == nil || x.Op == ""
	case *pyast.UnaryOp:
		return x.X == nil || x.Op == ""
	case *pyast.Attribute:
		return x.X == nil
	case *pyast.Subscript:
		return x.X == nil || x.Index == nil
	case *pyast.Call:
		return x.Func == nil
	}

	return false
}

func (b *builder) boolOp(n sitter.Node) pyast.Expr {
	op := b.text(n.ChildByFieldName("operator"))
	left := b.expr(n.ChildByFieldName("left"))
	right := b.expr(n.ChildByFieldName("right"))

	if left == nil || right == nil {
		return nil
	}

	values := []pyast.Expr{left}

	// a and b and c parses left-nested; flatten like CPython does.
	if inner, ok := left.(*pyast.BoolOp); ok && inner.Op == op {
		values = inner.Values
	}

	return &pyast.BoolOp{Op: op, Values: append(values, right)}
}

func (b *builder) compare(n sitter.Node) pyast.Expr {
	cmp := &pyast.Compare{}

	var pendingOp []string

	for i := range n.ChildCount() {
		child := n.Child(i)

		if child.IsNamed() {
			if child.Type() == "comment" {
				continue
			}

			operand := b.expr(child)
			if cmp.Left == nil {
				cmp.Left = operand

				continue
			}

			if len(pendingOp) == 0 {
				return nil
			}

			cmp.Ops = append(cmp.Ops, strings.Join(pendingOp, " "))
			cmp.Comparators = append(cmp.Comparators, operand)
			pendingOp = pendingOp[:0]

			continue
		}

		// "not in" and "is not" arrive either as one token or as two.
		pendingOp = append(pendingOp, strings.Join(strings.Fields(b.text(child)), " "))
	}

	if cmp.Left == nil || len(cmp.Ops) == 0 {
		return nil
	}

	return cmp
}

func (b *builder) call(n sitter.Node) pyast.Expr {
	c := &pyast.Call{Func: b.expr(n.ChildByFieldName("function"))}

	args := n.ChildByFieldName("arguments")
	if args.IsNull() || args.Type() != "argument_list" {
		return nil
	}

	for _, arg := range b.namedChildren(args) {
		switch arg.Type() {
		case "keyword_argument":
			kw := &pyast.Keyword{
				Name:  b.text(arg.ChildByFieldName("name")),
				Value: b.expr(arg.ChildByFieldName("value")),
			}
			kw.SetPos(b.loc(arg))
			c.Keywords = append(c.Keywords, kw)
		case "list_splat", "dictionary_splat":
			return nil
		default:
			c.Args = append(c.Args, b.expr(arg))
		}
	}

	return c
}

func (b *builder) subscript(n sitter.Node) pyast.Expr {
	idx := n.ChildByFieldName("subscript")
	if idx.IsNull() || idx.Type() == "slice" {
		return nil
	}

	// x[i, j] carries several subscript fields; only the single index form
	// is modeled.
	if n.NamedChildCount() > 2 {
		return nil
	}

	return &pyast.Subscript{X: b.expr(n.ChildByFieldName("value")), Index: b.expr(idx)}
}

// decodeString interprets a Python string literal. Prefixed literals other
// than r/u and implicit concatenations are reported as undecodable.
func decodeString(lit string) (string, bool) {
	raw := false

	for len(lit) > 0 && strings.ContainsRune("rRuU", rune(lit[0])) {
		if lit[0] == 'r' || lit[0] == 'R' {
			raw = true
		}

		lit = lit[1:]
	}

	var body string

	switch {
	case len(lit) >= 6 && (strings.HasPrefix(lit, `"""`) || strings.HasPrefix(lit, `'''`)):
		if !strings.HasSuffix(lit, lit[:3]) {
			return "", false
		}

		body = lit[3 : len(lit)-3]
	case len(lit) >= 2 && (lit[0] == '"' || lit[0] == '\'') && lit[len(lit)-1] == lit[0]:
		body = lit[1 : len(lit)-1]
	default:
		return "", false
	}

	if raw || !strings.Contains(body, `\`) {
		return body, true
	}

	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(escapeBareQuotes(body), "\n", `\n`) + `"`)
	if err != nil {
		return "", false
	}

	return unquoted, true
}

// escapeBareQuotes escapes double quotes not already preceded by a backslash
// so that the body can be fed to strconv.Unquote, and drops the backslash
// from \' which Go does not accept inside a double-quoted literal.
func escapeBareQuotes(body string) string {
	var sb strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]

		switch {
		case c == '\\' && i+1 < len(body):
			if body[i+1] == '\'' {
				sb.WriteByte('\'')
			} else {
				sb.WriteByte(c)
				sb.WriteByte(body[i+1])
			}

			i++
		case c == '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

// dedent strips up to col leading spaces from every line after the first, so
// that multi-line raw text can be re-indented by the printer.
func dedent(text string, col int) string {
	lines := strings.Split(text, "\n")

	for i := 1; i < len(lines); i++ {
		trim := 0
		for trim < col && trim < len(lines[i]) && lines[i][trim] == ' ' {
			trim++
		}

		lines[i] = lines[i][trim:]
	}

	return strings.Join(lines, "\n")
}
