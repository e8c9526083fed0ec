package interp

import (
	"strings"

	"github.com/stepwise-dev/stepwise/vm"
)

// StackFrame is one activation record. Variables for the module-level frame
// alias the execution's Globals map, so module locals and globals are the
// same mapping, as in Python.
type StackFrame struct {
	Fn        *vm.Function
	PC        vm.ExecPtr
	Stack     []vm.Value
	Variables map[string]vm.Value
	Iterators []*IteratorState

	// Parent is the lexically enclosing frame, set only for synthetic
	// frames (comprehensions, lambdas) so their bodies can read the
	// locals of the frame that spawned them. Named functions have no
	// Parent: their locals resolve to themselves, then to globals.
	Parent *StackFrame

	// LastLine is the source line most recently announced to the line
	// hook from this frame. Returning into the middle of a statement
	// does not re-announce its line.
	LastLine int
}

// attachLexical links a synthetic callee to its caller. Compiler-generated
// functions all carry angle-bracket names; user defs never do.
func attachLexical(callee, caller *StackFrame) {
	if strings.HasPrefix(callee.Fn.Name, "<") {
		callee.Parent = caller
	}
}

func (f *StackFrame) Push(v vm.Value) {
	f.Stack = append(f.Stack, v)
}

func (f *StackFrame) Pop() (vm.Value, bool) {
	if len(f.Stack) == 0 {
		return nil, false
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, true
}

func (f *StackFrame) Peek() (vm.Value, bool) {
	if len(f.Stack) == 0 {
		return nil, false
	}
	return f.Stack[len(f.Stack)-1], true
}

// IteratorState is one live loop on a frame's iterator stack.
type IteratorState struct {
	It     Iterator
	Names  []string   // one or two loop variable names
	BodyPC vm.ExecPtr // first instruction of the loop body
	EndPC  vm.ExecPtr // where exhaustion and break resume
}

type StackFrames []*StackFrame

func (s StackFrames) Top() *StackFrame {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// FrameNames reports the function name of each frame, outermost first.
// The debugger uses this as the dynamic call context.
func (s StackFrames) FrameNames() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Fn.Name
	}
	return out
}
