package interp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/stepwise-dev/stepwise/vm"
)

// DefaultMaxSteps bounds runaway programs; traced snippets are short, so
// hitting it means a loop never terminates.
const DefaultMaxSteps = 500_000

// LineHook is invoked when execution reaches a source line it was not
// already on in the current frame. Returning an error aborts the run.
type LineHook func(ex *Execution, line int) error

type Execution struct {
	Prog     *vm.Program
	Globals  map[string]vm.Value
	Frames   StackFrames
	Out      io.Writer
	Hook     LineHook
	Builtins vm.BuiltinRegistry
	Methods  vm.MethodRegistry

	// Result holds the value of a final RETURN from the module frame;
	// only expression programs produce one.
	Result vm.Value

	Steps    int
	MaxSteps int
}

func NewExecution(prog *vm.Program, out io.Writer) *Execution {
	globals := make(map[string]vm.Value)
	ex := &Execution{
		Prog:     prog,
		Globals:  globals,
		Out:      out,
		Builtins: vm.AllBuiltins(),
		Methods:  vm.AllMethods(),
		MaxSteps: DefaultMaxSteps,
	}
	// The module frame's variables are the globals.
	ex.Frames = StackFrames{{Fn: prog.Main, Variables: globals}}
	return ex
}

// Run steps the program to completion.
func (ex *Execution) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := ex.Step()
		if err != nil {
			return err
		}
		if res == EndStep {
			return nil
		}
	}
}

func (ex *Execution) builtinCtx() *vm.BuiltinContext {
	return &vm.BuiltinContext{Out: ex.Out, Call: ex.CallValue, Drain: ex.Drain}
}

// resolveVar performs lexical name lookup: the executing frame, then the
// synthetic frames it was spawned from, then module globals, then builtins.
// Locals of unrelated frames further down the call stack stay invisible, as
// in Python.
func (ex *Execution) resolveVar(name string) (vm.Value, bool) {
	for f := ex.Frames.Top(); f != nil; f = f.Parent {
		if v, ok := f.Variables[name]; ok {
			return v, true
		}
	}
	if v, ok := ex.Globals[name]; ok {
		return v, true
	}
	if _, ok := ex.Builtins[name]; ok {
		return vm.BuiltinValue{Name: name}, true
	}
	return nil, false
}

// CallValue applies a function value to already-evaluated positional
// arguments. Builtins run directly; user functions run as nested frames on
// this execution, so the line hook still observes them.
func (ex *Execution) CallValue(fn vm.Value, args []vm.Value) (vm.Value, error) {
	wrapped := make([]vm.ArgValue, len(args))
	for i, a := range args {
		wrapped[i] = vm.ArgValue{Value: a}
	}
	return ex.call(fn, wrapped)
}

func (ex *Execution) call(fn vm.Value, args []vm.ArgValue) (vm.Value, error) {
	switch f := fn.(type) {
	case vm.BuiltinValue:
		impl, ok := ex.Builtins[f.Name]
		if !ok {
			return nil, fmt.Errorf("name '%s' is not defined", f.Name)
		}
		pos, kw := splitArgs(args)
		return impl(ex.builtinCtx(), pos, kw)
	case vm.FnPtrValue:
		frame, err := ex.buildFrame(vm.ExecPtr(f), args)
		if err != nil {
			return nil, err
		}
		attachLexical(frame, ex.Frames.Top())
		base := len(ex.Frames)
		ex.Frames = append(ex.Frames, frame)
		for len(ex.Frames) > base {
			res, err := ex.Step()
			if err != nil {
				ex.Frames = ex.Frames[:base]
				return nil, err
			}
			if res == EndStep {
				break
			}
		}
		caller := ex.Frames.Top()
		v, ok := caller.Pop()
		if !ok {
			return nil, errors.New("function returned without a value")
		}
		return v, nil
	}
	return nil, fmt.Errorf("'%s' object is not callable", vm.TypeName(fn))
}

func (ex *Execution) buildFrame(ptr vm.ExecPtr, args []vm.ArgValue) (*StackFrame, error) {
	fn := ex.Prog.FunctionAt(ptr)
	vars := make(map[string]vm.Value)
	pos := 0
	for _, a := range args {
		if a.Key == "" {
			if pos >= len(fn.Params) {
				return nil, fmt.Errorf("%s() takes %d positional argument(s) but more were given", fn.Name, len(fn.Params))
			}
			vars[fn.Params[pos].Name] = a.Value
			pos++
			continue
		}
		if !paramNamed(fn, a.Key) {
			return nil, fmt.Errorf("%s() got an unexpected keyword argument '%s'", fn.Name, a.Key)
		}
		if _, dup := vars[a.Key]; dup {
			return nil, fmt.Errorf("%s() got multiple values for argument '%s'", fn.Name, a.Key)
		}
		vars[a.Key] = a.Value
	}
	for _, p := range fn.Params {
		if _, ok := vars[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, fmt.Errorf("%s() missing required argument: '%s'", fn.Name, p.Name)
		}
		vars[p.Name] = p.Default.Clone()
	}
	log.Trace().Str("fn", fn.Name).Int("args", len(args)).Msg("call frame")
	return &StackFrame{Fn: fn, PC: ptr.SetOffset(0), Variables: vars}, nil
}

func paramNamed(fn *vm.Function, name string) bool {
	for _, p := range fn.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func splitArgs(args []vm.ArgValue) ([]vm.Value, map[string]vm.Value) {
	var pos []vm.Value
	var kw map[string]vm.Value
	for _, a := range args {
		if a.Key == "" {
			pos = append(pos, a.Value)
			continue
		}
		if kw == nil {
			kw = make(map[string]vm.Value)
		}
		kw[a.Key] = a.Value
	}
	return pos, kw
}
