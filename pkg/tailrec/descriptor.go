// Package tailrec converts a Python function built around a single
// accumulator-style while loop into an equivalent tail-recursive function.
//
// The pipeline runs in fixed stages: CollectUpdates finds the assignments of
// a loop body, AnalyzeLoops and AnalyzeFunction describe a function and its
// top-level loops, ExtractLoopInfo selects the loop state, Synthesize builds
// the recursive replacement and Stamp assigns positions so that the result
// can be serialized with pyast.Unparse. Convert runs all stages.
package tailrec

import (
	"errors"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// Sentinel errors for unsupported function shapes.
var (
	// ErrNoLoop reports a function without a top-level while loop.
	ErrNoLoop = errors.New("function has no top-level while loop")
	// ErrNoStateVariables reports a loop that updates no simple local names.
	ErrNoStateVariables = errors.New("loop updates no simple local variables")
	// ErrUnsupportedLoop reports loop shapes that cannot be expressed as
	// a single recursive call.
	ErrUnsupportedLoop = errors.New("unsupported loop shape")
	// ErrInvalidOption reports a conversion option outside its domain.
	ErrInvalidOption = errors.New("invalid conversion option")
)

// Update is one assignment found in a loop body. Aug is set for augmented
// assignments such as `r *= n`, in which case Op holds the operator
// without the trailing "=".
type Update struct {
	Target pyast.Expr
	Op     string
	Value  pyast.Expr
	Aug    bool

	// Group numbers the source statement the update came from. Updates
	// expanded from one tuple assignment share a group and take effect
	// simultaneously.
	Group int
	// Guards holds the tests of the if statements enclosing the update,
	// outermost first. The update only takes effect when all of them hold.
	Guards []Guard
}

// Guard is the test of an if statement enclosing an update. Negate is set in
// the else branch. Group is the group of the first statement under the if;
// the test reads the bindings as they stood before it.
type Guard struct {
	Test   pyast.Expr
	Negate bool
	Group  int
}

// Conditional reports whether the update sits under an if statement.
func (u Update) Conditional() bool {
	return len(u.Guards) > 0
}

// Name returns the target identifier when the target is a bare name.
func (u Update) Name() (string, bool) {
	n, ok := u.Target.(*pyast.Name)
	if !ok {
		return "", false
	}

	return n.ID, true
}

// Next returns the expression computing the target's value after the update,
// in terms of the values visible before it. The result shares nodes with the
// update; clone it before attaching it to another tree.
func (u Update) Next() pyast.Expr {
	if !u.Aug {
		return u.Value
	}

	return &pyast.BinOp{Left: u.Target, Op: u.Op, Right: u.Value}
}

// Initializer is a simple-name assignment preceding the loop.
type Initializer struct {
	Name  string
	Value pyast.Expr
}

// LoopDescriptor describes one top-level while loop.
type LoopDescriptor struct {
	Condition pyast.Expr
	Updates   []Update
	// Initializers are the simple-name assignments before the loop, in
	// source order.
	Initializers []Initializer
	// Result names the variable returned right after the loop, when the
	// statement following the loop is `return <name>`.
	Result string
	// Return is the value of a return statement directly following the
	// loop, if any.
	Return pyast.Expr
	// Prelude holds the function body statements before the loop.
	Prelude []pyast.Stmt
	// Trailing counts statements after the loop other than its return.
	Trailing int
	Node     *pyast.While
}

// FunctionDescriptor describes an analyzed function.
type FunctionDescriptor struct {
	Name   string
	Params []string
	Loops  []LoopDescriptor
	Node   *pyast.FunctionDef
}

// StateVar is one recursion parameter: its name and the expression computing
// its next value from the values on entry to an iteration.
type StateVar struct {
	Name string
	Next pyast.Expr
}

// LoopInfo is the loop state selected for synthesis.
type LoopInfo struct {
	// State holds the state variables in parameter order. It is never empty.
	State     []StateVar
	Condition pyast.Expr
	// Result is the state variable returned when the loop ends.
	Result string
	// ResultExpr overrides Result when the loop is followed by a return of
	// a compound expression.
	ResultExpr pyast.Expr
	// Initial maps state variable names to their pre-loop initializer,
	// with earlier initializers already substituted.
	Initial map[string]pyast.Expr
	// Prelude holds the function body statements before the loop.
	Prelude []pyast.Stmt
	// CarryPrelude is set when the prelude does more than initialize state
	// and must run in the generated function.
	CarryPrelude bool
	// Updates are the simple-name updates the state was derived from, in
	// textual order.
	Updates []Update
	// Warnings describe approximations made while extracting the state.
	Warnings []string
}

// Names returns the state variable names in parameter order.
func (li LoopInfo) Names() []string {
	names := make([]string, len(li.State))
	for i, sv := range li.State {
		names[i] = sv.Name
	}

	return names
}
