package tailrec

import (
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// FunctionSummary is the serializable view of a FunctionDescriptor.
type FunctionSummary struct {
	Name        string        `json:"name"                yaml:"name"`
	Line        int           `json:"line"                yaml:"line"`
	Params      []string      `json:"params"              yaml:"params"`
	Loops       []LoopSummary `json:"loops"               yaml:"loops"`
	Convertible bool          `json:"convertible"         yaml:"convertible"`
	State       []string      `json:"state,omitempty"     yaml:"state,omitempty"`
	Reason      string        `json:"reason,omitempty"    yaml:"reason,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"  yaml:"warnings,omitempty"`
}

// LoopSummary is the serializable view of a LoopDescriptor.
type LoopSummary struct {
	Line      int      `json:"line"             yaml:"line"`
	Condition string   `json:"condition"        yaml:"condition"`
	Updates   []string `json:"updates"          yaml:"updates"`
	Result    string   `json:"result,omitempty" yaml:"result,omitempty"`
}

// Summarize renders fd and reports whether its first loop converts under order.
func Summarize(fd FunctionDescriptor, order StateOrder) FunctionSummary {
	sum := FunctionSummary{
		Name:   fd.Name,
		Params: fd.Params,
		Loops:  make([]LoopSummary, 0, len(fd.Loops)),
	}

	if sum.Params == nil {
		sum.Params = []string{}
	}

	if fd.Node != nil {
		sum.Line = fd.Node.Pos().Line
	}

	for _, ld := range fd.Loops {
		ls := LoopSummary{
			Condition: pyast.Unparse(ld.Condition),
			Updates:   make([]string, len(ld.Updates)),
			Result:    ld.Result,
		}

		if ld.Node != nil {
			ls.Line = ld.Node.Pos().Line
		}

		for i, u := range ld.Updates {
			ls.Updates[i] = u.String()
		}

		sum.Loops = append(sum.Loops, ls)
	}

	info, err := ExtractLoopInfo(fd, order)
	if err != nil {
		sum.Reason = err.Error()

		return sum
	}

	sum.Convertible = true
	sum.State = info.Names()
	sum.Warnings = info.Warnings

	return sum
}

// String renders u as the source statement it came from.
func (u Update) String() string {
	op := "="
	if u.Aug {
		op = u.Op + "="
	}

	return pyast.Unparse(u.Target) + " " + op + " " + pyast.Unparse(u.Value)
}
