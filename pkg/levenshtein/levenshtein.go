// Package levenshtein computes edit distances between identifiers and picks
// the closest spelling from a candidate list.
package levenshtein

// Context reuses its row buffer across Distance calls. Not safe for
// concurrent use.
type Context struct {
	row []int
}

func (ctx *Context) buffer(length int) []int {
	if cap(ctx.row) < length {
		ctx.row = make([]int, length)
	}

	return ctx.row[:length]
}

// Distance returns the minimum number of single-rune insertions, deletions
// and substitutions that turn a into b. Space is O(len(a)).
func (ctx *Context) Distance(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)

	if len(s2) == 0 {
		return len(s1)
	}

	column := ctx.buffer(len(s1) + 1)
	for i := range column {
		column[i] = i
	}

	for col, r2 := range s2 {
		column[0] = col + 1
		diag := col

		for row, r1 := range s1 {
			prev := column[row+1]

			cost := 1
			if r1 == r2 {
				cost = 0
			}

			column[row+1] = min(column[row+1]+1, column[row]+1, diag+cost)
			diag = prev
		}
	}

	return column[len(s1)]
}

// Closest returns the candidate nearest to name, provided its distance is at
// most maxDist and it differs from name. Ties keep the earliest candidate.
func Closest(name string, candidates []string, maxDist int) (string, bool) {
	var (
		ctx  Context
		best string
	)

	bestDist := maxDist + 1

	for _, c := range candidates {
		if c == name {
			continue
		}

		if d := ctx.Distance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, bestDist <= maxDist
}
