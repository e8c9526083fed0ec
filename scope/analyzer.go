package scope

import (
	"strings"

	"github.com/rs/zerolog/log"
	"go.starlark.net/syntax"

	"github.com/stepwise-dev/stepwise/vm"
)

// Analyzer holds the result of one static pass over the source: the scope
// tree root and the derived line index. Both are immutable once built.
type Analyzer struct {
	Lines       []string
	Root        *Node
	LineToScope map[int]*Node

	cur *Node
}

// Analyze parses src and builds the scope tree. It never fails: on a parse
// error the result is a bare module scope with an empty line index, so
// callers degrade to dynamic classification instead of erroring out.
func Analyze(src string) *Analyzer {
	lines := strings.Split(src, "\n")
	a := &Analyzer{
		Lines:       lines,
		Root:        NewNode("module", KindModule, 1, len(lines)),
		LineToScope: make(map[int]*Node),
	}
	a.cur = a.Root

	file, err := vm.FileOpts().Parse("<string>", src, 0)
	if err != nil {
		log.Debug().Err(err).Msg("scope analysis degraded to module-only tree")
		return a
	}
	a.walkStmts(file.Stmts)
	a.buildLineMap(a.Root)
	return a
}

// inScope runs fn with the cursor switched to s, restoring it afterward.
func (a *Analyzer) inScope(s *Node, fn func()) {
	old := a.cur
	a.cur = s
	defer func() { a.cur = old }()
	fn()
}

func spanLines(n syntax.Node) (int, int) {
	start, end := n.Span()
	return int(start.Line), int(end.Line)
}

func (a *Analyzer) walkStmts(stmts []syntax.Stmt) {
	for _, s := range stmts {
		a.walkStmt(s)
	}
}

func (a *Analyzer) walkStmt(s syntax.Stmt) {
	switch v := s.(type) {
	case *syntax.DefStmt:
		start, end := spanLines(v)
		fn := a.cur.AddChild(NewNode(v.Name.Name, KindFunction, start, end))
		for _, p := range v.Params {
			if name, ok := paramName(p); ok {
				fn.Bind(name, start, BindParameter)
			}
		}
		a.inScope(fn, func() { a.walkStmts(v.Body) })
	case *syntax.AssignStmt:
		// RHS first, so comprehensions and lambdas on the right attach
		// to the current scope before the target binds.
		a.walkExpr(v.RHS)
		line, _ := spanLines(v)
		a.bindTarget(v.LHS, line)
	case *syntax.ExprStmt:
		a.walkExpr(v.X)
	case *syntax.ForStmt:
		a.walkExpr(v.X)
		line, _ := spanLines(v)
		a.bindTarget(v.Vars, line)
		a.walkStmts(v.Body)
	case *syntax.WhileStmt:
		a.walkExpr(v.Cond)
		a.walkStmts(v.Body)
	case *syntax.IfStmt:
		a.walkExpr(v.Cond)
		a.walkStmts(v.True)
		a.walkStmts(v.False)
	case *syntax.ReturnStmt:
		if v.Result != nil {
			a.walkExpr(v.Result)
		}
	}
}

func (a *Analyzer) walkExpr(e syntax.Expr) {
	switch v := e.(type) {
	case *syntax.Comprehension:
		a.walkComprehension(v)
	case *syntax.LambdaExpr:
		start, end := spanLines(v)
		lam := a.cur.AddChild(NewNode("lambda", KindLambda, start, end))
		for _, p := range v.Params {
			if name, ok := paramName(p); ok {
				lam.Bind(name, start, BindParameter)
			}
		}
		a.inScope(lam, func() { a.walkExpr(v.Body) })
	case *syntax.BinaryExpr:
		a.walkExpr(v.X)
		a.walkExpr(v.Y)
	case *syntax.UnaryExpr:
		if v.X != nil {
			a.walkExpr(v.X)
		}
	case *syntax.CallExpr:
		a.walkExpr(v.Fn)
		for _, arg := range v.Args {
			a.walkExpr(arg)
		}
	case *syntax.CondExpr:
		a.walkExpr(v.Cond)
		a.walkExpr(v.True)
		a.walkExpr(v.False)
	case *syntax.DictEntry:
		a.walkExpr(v.Key)
		a.walkExpr(v.Value)
	case *syntax.DictExpr:
		for _, entry := range v.List {
			a.walkExpr(entry)
		}
	case *syntax.DotExpr:
		a.walkExpr(v.X)
	case *syntax.IndexExpr:
		a.walkExpr(v.X)
		a.walkExpr(v.Y)
	case *syntax.ListExpr:
		for _, x := range v.List {
			a.walkExpr(x)
		}
	case *syntax.ParenExpr:
		a.walkExpr(v.X)
	case *syntax.SliceExpr:
		a.walkExpr(v.X)
		if v.Lo != nil {
			a.walkExpr(v.Lo)
		}
		if v.Hi != nil {
			a.walkExpr(v.Hi)
		}
		if v.Step != nil {
			a.walkExpr(v.Step)
		}
	case *syntax.TupleExpr:
		for _, x := range v.List {
			a.walkExpr(x)
		}
	}
}

func (a *Analyzer) walkComprehension(v *syntax.Comprehension) {
	kind := KindListComp
	if v.Curly {
		kind = KindDictComp
	}
	start, end := spanLines(v)
	comp := a.cur.AddChild(NewNode(kind.String(), kind, start, end))
	a.inScope(comp, func() {
		for _, cl := range v.Clauses {
			switch c := cl.(type) {
			case *syntax.ForClause:
				line, _ := spanLines(c.Vars)
				a.bindTarget(c.Vars, line)
				a.walkExpr(c.X)
			case *syntax.IfClause:
				a.walkExpr(c.Cond)
			}
		}
		a.walkExpr(v.Body)
	})
}

// bindTarget registers every name bound by an assignment target, unpacking
// tuple and list patterns. Subscript and attribute targets mutate existing
// objects and bind no new names.
func (a *Analyzer) bindTarget(target syntax.Expr, line int) {
	switch v := target.(type) {
	case *syntax.Ident:
		a.cur.Bind(v.Name, line, BindAssignment)
	case *syntax.TupleExpr:
		for _, x := range v.List {
			a.bindTarget(x, line)
		}
	case *syntax.ListExpr:
		for _, x := range v.List {
			a.bindTarget(x, line)
		}
	case *syntax.ParenExpr:
		a.bindTarget(v.X, line)
	}
}

// buildLineMap assigns every line of every ranged scope to the deepest
// scope containing it. Depth is true tree depth, so equal-length dotted
// paths cannot collide.
func (a *Analyzer) buildLineMap(n *Node) {
	if n.StartLine > 0 && n.EndLine > 0 {
		for line := n.StartLine; line <= n.EndLine; line++ {
			prev, ok := a.LineToScope[line]
			if !ok || n.Depth() > prev.Depth() {
				a.LineToScope[line] = n
			}
		}
	}
	for _, child := range n.Children {
		a.buildLineMap(child)
	}
}

// ScopeAt reports the most specific scope containing the 1-based line.
func (a *Analyzer) ScopeAt(line int) (*Node, bool) {
	n, ok := a.LineToScope[line]
	return n, ok
}

func paramName(p syntax.Expr) (string, bool) {
	switch v := p.(type) {
	case *syntax.Ident:
		return v.Name, true
	case *syntax.BinaryExpr:
		if id, ok := v.X.(*syntax.Ident); ok {
			return id.Name, true
		}
	}
	return "", false
}
