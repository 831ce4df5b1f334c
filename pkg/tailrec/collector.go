package tailrec

import (
	"slices"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// CollectUpdates returns every assignment and augmented assignment found in
// body, descending into if statements, in visitation order. Tuple assignments
// with matching arity expand into one update per element. Updates under an
// if statement carry its test as a guard. Nested function and class
// definitions are not entered.
func CollectUpdates(body []pyast.Stmt) []Update {
	c := &collector{}
	c.stmts(body)

	return c.updates
}

type collector struct {
	updates []Update
	guards  []Guard
	group   int
}

func (c *collector) stmts(body []pyast.Stmt) {
	for _, s := range body {
		c.stmt(s)
	}
}

func (c *collector) stmt(stmt pyast.Stmt) {
	switch s := stmt.(type) {
	case *pyast.Assign:
		c.assign(s)
	case *pyast.AugAssign:
		c.add(Update{Target: s.Target, Op: s.Op, Value: s.Value, Aug: true})
		c.group++
	case *pyast.If:
		g := Guard{Test: s.Test, Group: c.group}
		c.guarded(g, s.Body)

		g.Negate = true
		c.guarded(g, s.Orelse)
	case *pyast.While:
		c.stmts(s.Body)
		c.stmts(s.Orelse)
	}
}

func (c *collector) guarded(g Guard, body []pyast.Stmt) {
	if len(body) == 0 {
		return
	}

	c.guards = append(c.guards, g)
	c.stmts(body)
	c.guards = c.guards[:len(c.guards)-1]
}

func (c *collector) assign(s *pyast.Assign) {
	// Chained targets all receive the same value.
	for _, target := range s.Targets {
		lhs, lok := target.(*pyast.Tuple)
		rhs, rok := s.Value.(*pyast.Tuple)

		if lok && rok && len(lhs.Elts) == len(rhs.Elts) {
			for i := range lhs.Elts {
				c.add(Update{Target: lhs.Elts[i], Value: rhs.Elts[i]})
			}

			continue
		}

		c.add(Update{Target: target, Value: s.Value})
	}

	c.group++
}

func (c *collector) add(u Update) {
	u.Group = c.group
	u.Guards = slices.Clone(c.guards)
	c.updates = append(c.updates, u)
}
