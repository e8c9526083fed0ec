package interp

import (
	"context"
	"io"
	"testing"

	"github.com/stepwise-dev/stepwise/vm"
)

func traceLines(t *testing.T, src string) []int {
	t.Helper()
	prog, err := vm.CompileLiteral(src)
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	ex := NewExecution(prog, io.Discard)
	var lines []int
	ex.Hook = func(ex *Execution, line int) error {
		lines = append(lines, line)
		return nil
	}
	if err := ex.Run(context.Background()); err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	return lines
}

func wantLines(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("line sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line sequence %v, want %v", got, want)
		}
	}
}

func TestHookStraightLine(t *testing.T) {
	lines := traceLines(t, "x = 1\ny = x + 1\nprint(y)\n")
	wantLines(t, lines, []int{1, 2, 3})
}

// A loop head re-announces its line on every iteration, so the hook sees
// the same head/body alternation a CPython line trace would.
func TestHookLoopRevisits(t *testing.T) {
	lines := traceLines(t, "for i in range(3):\n    print(i)\n")
	wantLines(t, lines, []int{1, 2, 1, 2, 1, 2, 1})
}

// Returning from a call resumes mid-statement and must not re-announce the
// call site's line.
func TestHookCallReturn(t *testing.T) {
	lines := traceLines(t, "def f():\n    return 1\nx = f()\n")
	wantLines(t, lines, []int{1, 3, 2})
}

func TestHookWhile(t *testing.T) {
	lines := traceLines(t, "x = 2\nwhile x > 0:\n    x = x - 1\n")
	wantLines(t, lines, []int{1, 2, 3, 2, 3, 2})
}
