package scope

import (
	"testing"
)

func TestModuleScopeCoversSource(t *testing.T) {
	src := "x = 1\ny = 2\nz = 3"
	a := Analyze(src)
	if a.Root.Kind != KindModule {
		t.Fatalf("root kind %v, want module", a.Root.Kind)
	}
	if a.Root.StartLine != 1 || a.Root.EndLine != 3 {
		t.Errorf("module range %d-%d, want 1-3", a.Root.StartLine, a.Root.EndLine)
	}
	if a.Root.Parent != nil {
		t.Error("module scope must have no parent")
	}
}

func TestFunctionScopeContainment(t *testing.T) {
	src := `x = 1

def outer(a):
    b = a + 1
    def inner(c):
        return c * b
    return inner

y = outer(1)
`
	a := Analyze(src)
	if len(a.Root.Children) != 1 {
		t.Fatalf("module has %d children, want 1", len(a.Root.Children))
	}
	outer := a.Root.Children[0]
	if outer.Name != "outer" || outer.Kind != KindFunction {
		t.Fatalf("child is %s/%v, want outer/function", outer.Name, outer.Kind)
	}
	if outer.StartLine < a.Root.StartLine || outer.EndLine > a.Root.EndLine {
		t.Error("outer's range escapes the module range")
	}
	if _, ok := outer.Variables["a"]; !ok {
		t.Error("parameter a not bound in outer")
	}
	if b, ok := outer.Variables["b"]; !ok || b.Kind != BindAssignment {
		t.Error("b not bound as an assignment in outer")
	}

	if len(outer.Children) != 1 {
		t.Fatalf("outer has %d children, want 1", len(outer.Children))
	}
	inner := outer.Children[0]
	if inner.Name != "inner" {
		t.Fatalf("nested scope is %s, want inner", inner.Name)
	}
	if inner.StartLine < outer.StartLine || inner.EndLine > outer.EndLine {
		t.Error("inner's range escapes outer's range")
	}
	if inner.Parent != outer {
		t.Error("inner's parent pointer is wrong")
	}
}

func TestComprehensionScopeIsolated(t *testing.T) {
	src := "squares = [n*n for n in range(3)]"
	a := Analyze(src)
	if _, ok := a.Root.Variables["n"]; ok {
		t.Error("comprehension variable n leaked into the module scope")
	}
	if _, ok := a.Root.Variables["squares"]; !ok {
		t.Error("squares not bound in the module scope")
	}
	if len(a.Root.Children) != 1 {
		t.Fatalf("module has %d children, want 1", len(a.Root.Children))
	}
	comp := a.Root.Children[0]
	if comp.Kind != KindListComp {
		t.Fatalf("child kind %v, want list_comp", comp.Kind)
	}
	if _, ok := comp.Variables["n"]; !ok {
		t.Error("n not bound in the comprehension scope")
	}
}

func TestDictComprehensionKind(t *testing.T) {
	a := Analyze("d = {k: k for k in range(2)}\n")
	if len(a.Root.Children) != 1 {
		t.Fatalf("module has %d children, want 1", len(a.Root.Children))
	}
	comp := a.Root.Children[0]
	if comp.Kind != KindDictComp {
		t.Errorf("child kind %v, want dict_comp", comp.Kind)
	}
	if _, ok := comp.Variables["k"]; !ok {
		t.Error("k not bound in the comprehension scope")
	}
}

func TestLambdaScope(t *testing.T) {
	a := Analyze("f = lambda a: a + 1\n")
	if len(a.Root.Children) != 1 {
		t.Fatalf("module has %d children, want 1", len(a.Root.Children))
	}
	lam := a.Root.Children[0]
	if lam.Kind != KindLambda {
		t.Fatalf("child kind %v, want lambda", lam.Kind)
	}
	if _, ok := lam.Variables["a"]; !ok {
		t.Error("lambda parameter a not bound in the lambda scope")
	}
}

func TestLineMapDeepestWins(t *testing.T) {
	src := `x = 1

def f(a):
    return a
`
	a := Analyze(src)
	if s, ok := a.ScopeAt(1); !ok || s != a.Root {
		t.Error("line 1 should map to the module scope")
	}
	if s, ok := a.ScopeAt(4); !ok || s.Name != "f" {
		t.Error("line 4 should map to f's scope")
	}
	// Every mapped line's scope actually contains it.
	for line, s := range a.LineToScope {
		if !s.ContainsLine(line) {
			t.Errorf("line %d mapped to scope %s which does not contain it", line, s.Name)
		}
	}
}

func TestDegradedTreeOnParseError(t *testing.T) {
	a := Analyze("def broken(:\n")
	if a.Root == nil || a.Root.Kind != KindModule {
		t.Fatal("parse failure must still yield a module root")
	}
	if len(a.Root.Children) != 0 {
		t.Error("degraded tree must have no children")
	}
	if len(a.LineToScope) != 0 {
		t.Error("degraded tree must have an empty line index")
	}
}

func TestScopeLabels(t *testing.T) {
	a := Analyze("def f(a):\n    return a\n")
	f := a.Root.Children[0]
	if got := f.Label(); got != "local (f)" {
		t.Errorf("Label() = %q, want %q", got, "local (f)")
	}
	if got := f.OuterLabel(); got != "outer (f)" {
		t.Errorf("OuterLabel() = %q, want %q", got, "outer (f)")
	}
	if got := a.Root.Label(); got != "global" {
		t.Errorf("module Label() = %q, want global", got)
	}
}

func TestScopePathAndDepth(t *testing.T) {
	src := `def f():
    g = [n for n in range(2)]
    return g
`
	a := Analyze(src)
	f := a.Root.Children[0]
	comp := f.Children[0]
	if comp.Depth() != 2 {
		t.Errorf("comprehension depth %d, want 2", comp.Depth())
	}
	if comp.Path() != "module.f.list_comp" {
		t.Errorf("path %q, want module.f.list_comp", comp.Path())
	}
}
