package vm

import (
	"testing"
)

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := CompileLiteral(src)
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	return prog
}

func TestCompileAssignment(t *testing.T) {
	prog := mustCompile(t, "x = 1\ny = x + 1\n")
	if len(prog.Main.Bytecode) == 0 {
		t.Fatal("Main has no bytecode")
	}
	if len(prog.Main.Lines) != len(prog.Main.Bytecode) {
		t.Fatalf("line table length %d does not match bytecode length %d",
			len(prog.Main.Lines), len(prog.Main.Bytecode))
	}
}

func TestLineTable(t *testing.T) {
	prog := mustCompile(t, "x = 1\ny = 2\n")
	sawLine2 := false
	for i, line := range prog.Main.Lines {
		if line < 1 || line > 2 {
			t.Errorf("op %d has line %d, want 1 or 2", i, line)
		}
		if line == 2 {
			sawLine2 = true
		}
	}
	if !sawLine2 {
		t.Error("no op mapped to line 2")
	}
	if prog.Main.Lines[0] != 1 {
		t.Errorf("first op has line %d, want 1", prog.Main.Lines[0])
	}
}

func TestCompileDef(t *testing.T) {
	prog := mustCompile(t, `
def add(a, b=10):
    return a + b
`)
	ptr, ok := prog.Resolve("add")
	if !ok {
		t.Fatal("Function 'add' not found in definitions")
	}
	fn := prog.FunctionAt(ptr)
	if fn.Name != "add" {
		t.Errorf("Resolved function name %q, want add", fn.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("add has %d params, want 2", len(fn.Params))
	}
	if fn.Params[1].Default != IntValue(10) {
		t.Errorf("default for b is %v, want 10", fn.Params[1].Default)
	}
}

func TestLabelsResolved(t *testing.T) {
	prog := mustCompile(t, `
total = 0
for i in range(10):
    if i % 2 == 0:
        continue
    if i > 7:
        break
    total += i
while total > 0:
    total -= 1
`)
	fns := append([]*Function{prog.Main}, prog.Code...)
	for _, fn := range fns {
		for i, op := range fn.Bytecode {
			if op.Code == LABEL {
				t.Errorf("%s op %d: LABEL survived assembly", fn.Name, i)
			}
			switch op.Code {
			case JMP, JFALSE, ITER_START, ITER_START_2:
				if _, ok := op.Arg.(IntValue); !ok {
					t.Errorf("%s op %d: %s has unresolved arg %v", fn.Name, i, op.Code, op.Arg)
				}
			}
		}
	}
}

func TestComprehensionFunction(t *testing.T) {
	prog := mustCompile(t, "squares = [n*n for n in range(3)]\n")
	var comp *Function
	for _, fn := range prog.Code {
		if fn.Name == "<listcomp>" {
			comp = fn
		}
	}
	if comp == nil {
		t.Fatal("no <listcomp> function in code table")
	}
	if len(comp.Params) != 1 || comp.Params[0].Name != ".0" {
		t.Fatalf("<listcomp> params %v, want the hidden .0 argument", comp.Params)
	}
}

func TestLambdaFunction(t *testing.T) {
	prog := mustCompile(t, "f = lambda a: a + 1\n")
	found := false
	for _, fn := range prog.Code {
		if fn.Name == "<lambda>" {
			found = true
		}
	}
	if !found {
		t.Fatal("no <lambda> function in code table")
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	if _, err := CompileLiteral("break\n"); err == nil {
		t.Fatal("break outside a loop should not compile")
	}
}

func TestCompileExprReturnsValue(t *testing.T) {
	prog, err := CompileExpr("[1, 2, 3]")
	if err != nil {
		t.Fatalf("CompileExpr failed: %v", err)
	}
	last := prog.Main.Bytecode[len(prog.Main.Bytecode)-1]
	if last.Code != RETURN {
		t.Errorf("expression program ends with %s, want RETURN", last.Code)
	}
}

func TestSyntaxErrorReported(t *testing.T) {
	if _, err := CompileLiteral("def broken(:\n"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestUnsupportedFormsRejected(t *testing.T) {
	// The grammar has no power operator, set literals, or set
	// comprehensions; sets are built with the set builtin and
	// exponentiation with pow.
	cases := []string{
		"e = 2 ** 10\n",
		"s = {1, 2}\n",
		"s = {c for c in 'aba'}\n",
	}
	for _, src := range cases {
		if _, err := CompileLiteral(src); err == nil {
			t.Errorf("%q should not compile", src)
		}
	}
}
