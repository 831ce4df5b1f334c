package tailrec

import "github.com/Sumatoshi-tech/iter2tail/pkg/pyast"

// Stamp assigns positions to every node under node in pre-order. Each node
// takes the next line starting at line; all nodes share the column col. A
// node's span ends on the last line used by its subtree. Stamp returns the
// first unused line, and stamping again from the same start reproduces the
// same positions.
func Stamp(node pyast.Node, line, col int) int {
	first := line
	line++

	for _, child := range pyast.Children(node) {
		line = Stamp(child, line, col)
	}

	node.SetPos(pyast.Loc{Line: first, Col: col, EndLine: line - 1, EndCol: col})

	return line
}
