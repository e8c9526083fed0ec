package scope

import (
	"strings"

	"go.starlark.net/syntax"

	"github.com/stepwise-dev/stepwise/vm"
)

// Assignments indexes, per variable name, the trimmed source text of its
// most recent single-name assignment. The display layer uses it to
// reconstruct readable forms of lazy iterator values; it is a best-effort
// hint, never load-bearing.
func Assignments(src string) map[string]string {
	out := make(map[string]string)
	file, err := vm.FileOpts().Parse("<string>", src, 0)
	if err != nil {
		return out
	}
	lines := strings.Split(src, "\n")
	syntax.Walk(file, func(n syntax.Node) bool {
		if n == nil {
			return true
		}
		assign, ok := n.(*syntax.AssignStmt)
		if !ok || assign.Op != syntax.EQ {
			return true
		}
		ident, ok := assign.LHS.(*syntax.Ident)
		if !ok {
			return true
		}
		start, _ := assign.Span()
		idx := int(start.Line) - 1
		if idx >= 0 && idx < len(lines) {
			out[ident.Name] = strings.TrimSpace(lines[idx])
		}
		return true
	})
	return out
}

// AssignedNames reports every variable name the program ever binds:
// assignment targets, augmented assignments, loop targets, comprehension
// targets, and function parameters. A parse error yields an empty set.
func AssignedNames(src string) map[string]bool {
	out := make(map[string]bool)
	file, err := vm.FileOpts().Parse("<string>", src, 0)
	if err != nil {
		return out
	}
	syntax.Walk(file, func(n syntax.Node) bool {
		if n == nil {
			return true
		}
		switch v := n.(type) {
		case *syntax.AssignStmt:
			collectNames(v.LHS, out)
		case *syntax.ForStmt:
			collectNames(v.Vars, out)
		case *syntax.DefStmt:
			out[v.Name.Name] = true
			for _, p := range v.Params {
				if name, ok := paramName(p); ok {
					out[name] = true
				}
			}
		case *syntax.Comprehension:
			for _, cl := range v.Clauses {
				if fc, ok := cl.(*syntax.ForClause); ok {
					collectNames(fc.Vars, out)
				}
			}
		}
		return true
	})
	return out
}

func collectNames(target syntax.Expr, out map[string]bool) {
	switch v := target.(type) {
	case *syntax.Ident:
		out[v.Name] = true
	case *syntax.TupleExpr:
		for _, x := range v.List {
			collectNames(x, out)
		}
	case *syntax.ListExpr:
		for _, x := range v.List {
			collectNames(x, out)
		}
	case *syntax.ParenExpr:
		collectNames(v.X, out)
	}
}
