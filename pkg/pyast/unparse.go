package pyast

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

// Operator precedence, lowest first. Values follow the Python grammar.
const (
	precTuple = iota
	precTest
	precOr
	precAnd
	precNot
	precCmp
	precBor
	precBxor
	precBand
	precShift
	precArith
	precTerm
	precFactor
	precPower
	precAtom
)

var binOpPrec = map[string]int{
	"|":  precBor,
	"^":  precBxor,
	"&":  precBand,
	"<<": precShift,
	">>": precShift,
	"+":  precArith,
	"-":  precArith,
	"*":  precTerm,
	"/":  precTerm,
	"//": precTerm,
	"%":  precTerm,
	"@":  precTerm,
	"**": precPower,
}

// atomicRawKinds lists grammar kinds that never need grouping parentheses.
var atomicRawKinds = map[string]bool{
	"call":                     true,
	"attribute":                true,
	"subscript":                true,
	"string":                   true,
	"concatenated_string":      true,
	"list":                     true,
	"list_comprehension":       true,
	"dictionary":               true,
	"dictionary_comprehension": true,
	"set":                      true,
	"set_comprehension":        true,
	"parenthesized_expression": true,
	"generator_expression":     true,
	"ellipsis":                 true,
}

// Unparse renders node as Python source. Statements are rendered with
// four-space indentation and without a trailing newline.
func Unparse(node Node) string {
	p := &printer{}

	switch n := node.(type) {
	case *Module:
		p.module(n)
	case Stmt:
		p.stmt(n)
	case Expr:
		p.buf.WriteString(exprString(n, precTuple))
	case *Param:
		p.buf.WriteString(paramString(n))
	case *Keyword:
		p.buf.WriteString(n.Name + "=" + exprString(n.Value, precTest))
	}

	return strings.TrimRight(p.buf.String(), "\n")
}

type printer struct {
	buf   strings.Builder
	depth int
}

func (p *printer) line(text string) {
	for range p.depth {
		p.buf.WriteString(indentUnit)
	}

	p.buf.WriteString(text)
	p.buf.WriteByte('\n')
}

func (p *printer) module(m *Module) {
	for i, s := range m.Body {
		if i > 0 && (isDefinition(s) || isDefinition(m.Body[i-1])) {
			p.buf.WriteByte('\n')
		}

		p.stmt(s)
	}
}

func isDefinition(s Stmt) bool {
	switch s.(type) {
	case *FunctionDef, *ClassDef:
		return true
	default:
		return false
	}
}

func (p *printer) block(stmts []Stmt) {
	p.depth++
	defer func() { p.depth-- }()

	if len(stmts) == 0 {
		p.line("pass")

		return
	}

	for _, s := range stmts {
		p.stmt(s)
	}
}

func (p *printer) stmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *FunctionDef:
		params := make([]string, len(s.Params))
		for i, prm := range s.Params {
			params[i] = paramString(prm)
		}

		p.line(fmt.Sprintf("def %s(%s):", s.Name, strings.Join(params, ", ")))
		p.block(s.Body)
	case *ClassDef:
		header := "class " + s.Name
		if len(s.Bases) > 0 {
			header += "(" + joinExprs(s.Bases, precTest) + ")"
		}

		p.line(header + ":")
		p.block(s.Body)
	case *Return:
		if s.Value == nil {
			p.line("return")
		} else {
			p.line("return " + exprList(s.Value))
		}
	case *If:
		p.ifChain(s, "if")
	case *While:
		p.line("while " + exprString(s.Test, precTest) + ":")
		p.block(s.Body)

		if len(s.Orelse) > 0 {
			p.line("else:")
			p.block(s.Orelse)
		}
	case *Assign:
		parts := make([]string, 0, len(s.Targets)+1)
		for _, t := range s.Targets {
			parts = append(parts, exprList(t))
		}

		parts = append(parts, exprList(s.Value))
		p.line(strings.Join(parts, " = "))
	case *AugAssign:
		p.line(fmt.Sprintf("%s %s= %s", exprString(s.Target, precAtom), s.Op, exprList(s.Value)))
	case *ExprStmt:
		p.line(exprList(s.X))
	case *Pass:
		p.line("pass")
	case *Break:
		p.line("break")
	case *Continue:
		p.line("continue")
	case *RawStmt:
		for l := range strings.SplitSeq(s.Text, "\n") {
			p.line(l)
		}
	}
}

func (p *printer) ifChain(s *If, keyword string) {
	p.line(keyword + " " + exprString(s.Test, precTest) + ":")
	p.block(s.Body)

	if len(s.Orelse) == 0 {
		return
	}

	if elif, ok := s.Orelse[0].(*If); ok && len(s.Orelse) == 1 {
		p.ifChain(elif, "elif")

		return
	}

	p.line("else:")
	p.block(s.Orelse)
}

func paramString(prm *Param) string {
	s := prm.Star + prm.Name
	if prm.Default != nil {
		s += "=" + exprString(prm.Default, precTest)
	}

	return s
}

// exprList renders an expression in a position where a bare tuple is legal.
func exprList(e Expr) string {
	if t, ok := e.(*Tuple); ok && len(t.Elts) > 0 {
		s := joinExprs(t.Elts, precTest)
		if len(t.Elts) == 1 {
			s += ","
		}

		return s
	}

	return exprString(e, precTuple)
}

func joinExprs(exprs []Expr, minPrec int) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = exprString(e, minPrec)
	}

	return strings.Join(parts, ", ")
}

func precedence(e Expr) int {
	switch n := e.(type) {
	case *BinOp:
		if prec, ok := binOpPrec[n.Op]; ok {
			return prec
		}

		return precArith
	case *UnaryOp:
		if n.Op == "not" {
			return precNot
		}

		return precFactor
	case *BoolOp:
		if n.Op == "and" {
			return precAnd
		}

		return precOr
	case *Compare:
		return precCmp
	case *IfExp:
		return precTest
	case *RawExpr:
		if atomicRawKinds[n.Kind] {
			return precAtom
		}

		return precTuple
	default:
		return precAtom
	}
}

func exprString(e Expr, minPrec int) string {
	s := exprBody(e)
	if precedence(e) < minPrec {
		return "(" + s + ")"
	}

	return s
}

func exprBody(expr Expr) string {
	switch e := expr.(type) {
	case *Name:
		return e.ID
	case *Constant:
		if e.Kind == ConstStr {
			return quote(e.Value)
		}

		return e.Value
	case *BinOp:
		prec := precedence(e)
		left, right := prec, prec+1

		if e.Op == "**" {
			left, right = prec+1, prec
		}

		return exprString(e.Left, left) + " " + e.Op + " " + exprString(e.Right, right)
	case *UnaryOp:
		if e.Op == "not" {
			if precedence(e.X) < precAtom {
				return "not (" + exprBody(e.X) + ")"
			}

			return "not " + exprBody(e.X)
		}

		return e.Op + exprString(e.X, precFactor)
	case *BoolOp:
		prec := precedence(e)

		parts := make([]string, len(e.Values))
		for i, v := range e.Values {
			parts[i] = exprString(v, prec+1)
		}

		return strings.Join(parts, " "+e.Op+" ")
	case *Compare:
		var sb strings.Builder

		sb.WriteString(exprString(e.Left, precCmp+1))

		for i, op := range e.Ops {
			sb.WriteString(" " + op + " ")
			sb.WriteString(exprString(e.Comparators[i], precCmp+1))
		}

		return sb.String()
	case *Call:
		args := make([]string, 0, len(e.Args)+len(e.Keywords))
		for _, a := range e.Args {
			args = append(args, exprString(a, precTest))
		}

		for _, kw := range e.Keywords {
			args = append(args, kw.Name+"="+exprString(kw.Value, precTest))
		}

		return exprString(e.Func, precAtom) + "(" + strings.Join(args, ", ") + ")"
	case *Tuple:
		switch len(e.Elts) {
		case 0:
			return "()"
		case 1:
			return "(" + exprString(e.Elts[0], precTest) + ",)"
		default:
			return "(" + joinExprs(e.Elts, precTest) + ")"
		}
	case *List:
		return "[" + joinExprs(e.Elts, precTest) + "]"
	case *Attribute:
		return exprString(e.X, precAtom) + "." + e.Attr
	case *Subscript:
		return exprString(e.X, precAtom) + "[" + exprList(e.Index) + "]"
	case *IfExp:
		return exprString(e.Body, precOr) + " if " + exprString(e.Test, precOr) + " else " + exprString(e.Orelse, precTest)
	case *RawExpr:
		return e.Text
	default:
		return ""
	}
}

// quote renders s as a single-quoted Python string literal.
func quote(s string) string {
	var sb strings.Builder

	sb.WriteByte('\'')

	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}

	sb.WriteByte('\'')

	return sb.String()
}
