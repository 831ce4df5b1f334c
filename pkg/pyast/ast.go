// Package pyast defines the syntax tree for the subset of Python handled by
// iter2tail, together with traversal, cloning, serialization back to source
// and structural validation.
package pyast

// Loc is the source span of a node. Lines are 1-based, columns are 0-based
// byte offsets, matching the convention of CPython's ast module.
type Loc struct {
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

// Pos returns the span of the node.
func (l *Loc) Pos() Loc { return *l }

// SetPos replaces the span of the node.
func (l *Loc) SetPos(pos Loc) { *l = pos }

// Stamped reports whether the span carries a real line number.
func (l *Loc) Stamped() bool { return l.Line > 0 }

// Node is implemented by every syntax tree element.
type Node interface {
	Pos() Loc
	SetPos(pos Loc)
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Module is a parsed source file.
type Module struct {
	Loc

	Body []Stmt
}

// Param is a single function parameter. Star is "*" or "**" for variadic
// parameters and empty otherwise.
type Param struct {
	Loc

	Name    string
	Star    string
	Default Expr
}

// Keyword is a keyword argument at a call site.
type Keyword struct {
	Loc

	Name  string
	Value Expr
}

// Statements.
type (
	// FunctionDef is a `def` statement.
	FunctionDef struct {
		Loc

		Name   string
		Params []*Param
		Body   []Stmt
	}

	// ClassDef is a `class` statement. Only its body is modeled so that
	// methods can be located by name.
	ClassDef struct {
		Loc

		Name  string
		Bases []Expr
		Body  []Stmt
	}

	// Return is a `return` statement; Value is nil for a bare return.
	Return struct {
		Loc

		Value Expr
	}

	// If is an `if` statement. An `elif` chain is a single nested If in Orelse.
	If struct {
		Loc

		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	// While is a `while` statement.
	While struct {
		Loc

		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	// Assign is `t1 = t2 = value`.
	Assign struct {
		Loc

		Targets []Expr
		Value   Expr
	}

	// AugAssign is `target op= value`. Op holds the binary operator without
	// the trailing '='.
	AugAssign struct {
		Loc

		Target Expr
		Op     string
		Value  Expr
	}

	// ExprStmt is an expression evaluated for its side effects.
	ExprStmt struct {
		Loc

		X Expr
	}

	// Pass is `pass`.
	Pass struct{ Loc }

	// Break is `break`.
	Break struct{ Loc }

	// Continue is `continue`.
	Continue struct{ Loc }

	// RawStmt is a statement outside the modeled subset, kept verbatim.
	// Kind is the parser's node kind. Text is dedented to column zero.
	RawStmt struct {
		Loc

		Kind string
		Text string
	}
)

// ConstKind classifies a literal.
type ConstKind int

// Literal kinds.
const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstStr
	ConstBool
	ConstNone
)

var constKindNames = [...]string{"int", "float", "str", "bool", "None"}

func (k ConstKind) String() string {
	if int(k) < len(constKindNames) {
		return constKindNames[k]
	}

	return "unknown"
}

// Expressions.
type (
	// Name is an identifier reference.
	Name struct {
		Loc

		ID string
	}

	// Constant is a literal. Value holds the source spelling for numbers,
	// the decoded text for strings, "True"/"False" for booleans and "None".
	Constant struct {
		Loc

		Kind  ConstKind
		Value string
	}

	// BinOp is `left op right`.
	BinOp struct {
		Loc

		Left  Expr
		Op    string
		Right Expr
	}

	// UnaryOp is `op x` for "not", "-", "+" and "~".
	UnaryOp struct {
		Loc

		Op string
		X  Expr
	}

	// BoolOp is a chain of `and` or `or`.
	BoolOp struct {
		Loc

		Op     string
		Values []Expr
	}

	// Compare is a comparison chain `left op1 c1 op2 c2 ...`.
	Compare struct {
		Loc

		Left        Expr
		Ops         []string
		Comparators []Expr
	}

	// Call is a call expression.
	Call struct {
		Loc

		Func     Expr
		Args     []Expr
		Keywords []*Keyword
	}

	// Tuple is a tuple display or an unpacking target.
	Tuple struct {
		Loc

		Elts []Expr
	}

	// List is a list display.
	List struct {
		Loc

		Elts []Expr
	}

	// Attribute is `x.attr`.
	Attribute struct {
		Loc

		X    Expr
		Attr string
	}

	// Subscript is `x[index]`.
	Subscript struct {
		Loc

		X     Expr
		Index Expr
	}

	// IfExp is `body if test else orelse`.
	IfExp struct {
		Loc

		Test   Expr
		Body   Expr
		Orelse Expr
	}

	// RawExpr is an expression outside the modeled subset, kept verbatim.
	RawExpr struct {
		Loc

		Kind string
		Text string
	}
)

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*RawStmt) stmtNode()     {}

func (*Name) exprNode()      {}
func (*Constant) exprNode()  {}
func (*BinOp) exprNode()     {}
func (*UnaryOp) exprNode()   {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}
func (*Call) exprNode()      {}
func (*Tuple) exprNode()     {}
func (*List) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Subscript) exprNode() {}
func (*IfExp) exprNode()     {}
func (*RawExpr) exprNode()   {}

// ParamNames returns the bare parameter names of fn in declaration order.
func (fn *FunctionDef) ParamNames() []string {
	names := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		names = append(names, p.Name)
	}

	return names
}

// NewName returns an unpositioned Name.
func NewName(id string) *Name { return &Name{ID: id} }

// NewInt returns an unpositioned integer literal.
func NewInt(text string) *Constant { return &Constant{Kind: ConstInt, Value: text} }
