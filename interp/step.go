package interp

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stepwise-dev/stepwise/vm"
)

type StepResult int

const (
	OkStep StepResult = iota
	CallStep
	ReturnStep
	EndStep
)

// Step executes a single instruction in the top frame, firing the line hook
// first if the instruction starts a line the frame was not already on.
func (ex *Execution) Step() (StepResult, error) {
	frame := ex.Frames.Top()
	if frame == nil {
		return EndStep, nil
	}
	ex.Steps++
	if ex.Steps > ex.MaxSteps {
		return OkStep, fmt.Errorf("execution exceeded %d steps", ex.MaxSteps)
	}

	op, err := ex.Prog.GetInstruction(frame.PC)
	if errors.Is(err, vm.ErrEndOfCode) {
		if len(ex.Frames) == 1 {
			return EndStep, nil
		}
		return OkStep, fmt.Errorf("%s() ran off the end of its code", frame.Fn.Name)
	}
	if err != nil {
		return OkStep, err
	}

	if line, ok := ex.Prog.Line(frame.PC); ok && line != frame.LastLine {
		frame.LastLine = line
		if ex.Hook != nil {
			if err := ex.Hook(ex, line); err != nil {
				return OkStep, err
			}
		}
	}

	log.Trace().Str("ptr", frame.PC.String()).Str("op", op.String()).Msg("exec")

	switch op.Code {
	case vm.NOP, vm.LABEL:
		frame.PC = frame.PC.Inc()

	case vm.POP:
		if _, ok := frame.Pop(); !ok {
			return OkStep, errors.New("POP on an empty stack")
		}
		frame.PC = frame.PC.Inc()

	case vm.PUSH:
		frame.Push(op.Arg)
		frame.PC = frame.PC.Inc()

	case vm.SETVAL:
		name, err := ex.popName(frame)
		if err != nil {
			return OkStep, err
		}
		v, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("SETVAL with no value")
		}
		frame.Variables[name] = v
		frame.PC = frame.PC.Inc()

	case vm.GETVAL:
		name, err := ex.popName(frame)
		if err != nil {
			return OkStep, err
		}
		v, ok := ex.resolveVar(name)
		if !ok {
			return OkStep, fmt.Errorf("name '%s' is not defined", name)
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()

	case vm.GETATTR:
		key, _ := frame.Pop()
		obj, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("GETATTR on an empty stack")
		}
		v, err := vm.GetIndex(obj, key)
		if err != nil {
			return OkStep, err
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()

	case vm.SETATTR:
		key, _ := frame.Pop()
		obj, _ := frame.Pop()
		v, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("SETATTR on an empty stack")
		}
		if err := vm.SetIndex(obj, key, v); err != nil {
			return OkStep, err
		}
		frame.PC = frame.PC.Inc()

	case vm.SWAP:
		b, _ := frame.Pop()
		a, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("SWAP needs two values")
		}
		frame.Push(b)
		frame.Push(a)
		frame.PC = frame.PC.Inc()

	case vm.DUP:
		v, ok := frame.Peek()
		if !ok {
			return OkStep, errors.New("DUP on an empty stack")
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()

	case vm.ADD, vm.SUBTRACT, vm.MULTIPLY, vm.DIVIDE, vm.MODULO, vm.FLOOR_DIVIDE:
		b, _ := frame.Pop()
		a, ok := frame.Pop()
		if !ok {
			return OkStep, fmt.Errorf("%s needs two operands", op.Code)
		}
		v, err := arith(op.Code, a, b)
		if err != nil {
			return OkStep, err
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()

	case vm.EQ:
		b, _ := frame.Pop()
		a, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("EQ needs two operands")
		}
		c, comparable := a.Cmp(b)
		frame.Push(vm.BoolValue(comparable && c == 0))
		frame.PC = frame.PC.Inc()

	case vm.LT, vm.LTE:
		b, _ := frame.Pop()
		a, ok := frame.Pop()
		if !ok {
			return OkStep, fmt.Errorf("%s needs two operands", op.Code)
		}
		c, comparable := a.Cmp(b)
		if !comparable {
			return OkStep, fmt.Errorf("'<' not supported between instances of '%s' and '%s'", vm.TypeName(a), vm.TypeName(b))
		}
		if op.Code == vm.LT {
			frame.Push(vm.BoolValue(c < 0))
		} else {
			frame.Push(vm.BoolValue(c <= 0))
		}
		frame.PC = frame.PC.Inc()

	case vm.NOT:
		v, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("NOT on an empty stack")
		}
		frame.Push(vm.BoolValue(!v.AsBool()))
		frame.PC = frame.PC.Inc()

	case vm.IN:
		container, _ := frame.Pop()
		item, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("IN needs two operands")
		}
		v, err := vm.Contains(item, container)
		if err != nil {
			return OkStep, err
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()

	case vm.SLICE:
		hi, _ := frame.Pop()
		lo, _ := frame.Pop()
		seq, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("SLICE on an empty stack")
		}
		v, err := vm.Slice(seq, lo, hi)
		if err != nil {
			return OkStep, err
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()

	case vm.JMP:
		frame.PC = frame.PC.SetOffset(int(op.Arg.(vm.IntValue)))

	case vm.JFALSE:
		v, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("JFALSE on an empty stack")
		}
		if v.AsBool() {
			frame.PC = frame.PC.Inc()
		} else {
			frame.PC = frame.PC.SetOffset(int(op.Arg.(vm.IntValue)))
		}

	case vm.RETURN:
		res, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("RETURN with no value")
		}
		ex.Frames = ex.Frames[:len(ex.Frames)-1]
		if len(ex.Frames) == 0 {
			ex.Result = res
			return EndStep, nil
		}
		ex.Frames.Top().Push(res)
		return ReturnStep, nil

	case vm.BUILD_LIST:
		elems, err := ex.popN(frame, int(op.Arg.(vm.IntValue)))
		if err != nil {
			return OkStep, err
		}
		frame.Push(&vm.ListValue{Elems: elems})
		frame.PC = frame.PC.Inc()

	case vm.BUILD_TUPLE:
		elems, err := ex.popN(frame, int(op.Arg.(vm.IntValue)))
		if err != nil {
			return OkStep, err
		}
		frame.Push(vm.TupleValue(elems))
		frame.PC = frame.PC.Inc()

	case vm.BUILD_DICT:
		elems, err := ex.popN(frame, int(op.Arg.(vm.IntValue)))
		if err != nil {
			return OkStep, err
		}
		d := vm.NewDict()
		for _, e := range elems {
			pair, ok := e.(vm.TupleValue)
			if !ok || len(pair) != 2 {
				return OkStep, errors.New("BUILD_DICT expects key-value pairs")
			}
			d.Set(pair[0], pair[1])
		}
		frame.Push(d)
		frame.PC = frame.PC.Inc()

	case vm.BUILD_ARG:
		nameVal, _ := frame.Pop()
		v, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("BUILD_ARG on an empty stack")
		}
		key := ""
		if s, ok := nameVal.(vm.StrValue); ok {
			key = string(s)
		}
		frame.Push(vm.ArgValue{Key: key, Value: v})
		frame.PC = frame.PC.Inc()

	case vm.UNPACK:
		n := int(op.Arg.(vm.IntValue))
		seq, ok := frame.Pop()
		if !ok {
			return OkStep, errors.New("UNPACK on an empty stack")
		}
		elems, err := ex.Drain(seq)
		if err != nil {
			return OkStep, err
		}
		if len(elems) < n {
			return OkStep, fmt.Errorf("not enough values to unpack (expected %d, got %d)", n, len(elems))
		}
		if len(elems) > n {
			return OkStep, fmt.Errorf("too many values to unpack (expected %d)", n)
		}
		for _, e := range elems {
			frame.Push(e)
		}
		frame.PC = frame.PC.Inc()

	case vm.ITER_START, vm.ITER_START_2:
		return ex.iterStart(frame, op)

	case vm.ITER_NEXT:
		if len(frame.Iterators) == 0 {
			return OkStep, errors.New("ITER_NEXT without an active loop")
		}
		state := frame.Iterators[len(frame.Iterators)-1]
		v, more, err := state.It.Next(ex)
		if err != nil {
			return OkStep, err
		}
		if !more {
			frame.Iterators = frame.Iterators[:len(frame.Iterators)-1]
			frame.PC = frame.PC.Inc()
			return OkStep, nil
		}
		if err := assignLoopVars(frame, state, v); err != nil {
			return OkStep, err
		}
		frame.PC = state.BodyPC

	case vm.ITER_END:
		if len(frame.Iterators) == 0 {
			return OkStep, errors.New("ITER_END without an active loop")
		}
		state := frame.Iterators[len(frame.Iterators)-1]
		frame.Iterators = frame.Iterators[:len(frame.Iterators)-1]
		frame.PC = state.EndPC

	case vm.CALL:
		return ex.opCall(frame, op)

	case vm.CALL_METHOD:
		return ex.opCallMethod(frame, op)

	default:
		return OkStep, fmt.Errorf("Unhandled opcode %s", op.Code)
	}
	return OkStep, nil
}

func arith(code vm.Opcode, a, b vm.Value) (vm.Value, error) {
	switch code {
	case vm.ADD:
		return vm.Add(a, b)
	case vm.SUBTRACT:
		return vm.Sub(a, b)
	case vm.MULTIPLY:
		return vm.Mul(a, b)
	case vm.DIVIDE:
		return vm.Div(a, b)
	case vm.MODULO:
		return vm.Mod(a, b)
	case vm.FLOOR_DIVIDE:
		return vm.FloorDiv(a, b)
	}
	return nil, fmt.Errorf("arith: unexpected opcode %s", code)
}

func (ex *Execution) popName(frame *StackFrame) (string, error) {
	v, ok := frame.Pop()
	if !ok {
		return "", errors.New("expected a name on the stack")
	}
	s, ok := v.(vm.StrValue)
	if !ok {
		return "", fmt.Errorf("expected a name, got %s", vm.TypeName(v))
	}
	return string(s), nil
}

// popN pops n values and returns them in push order.
func (ex *Execution) popN(frame *StackFrame, n int) ([]vm.Value, error) {
	out := make([]vm.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := frame.Pop()
		if !ok {
			return nil, fmt.Errorf("stack underflow popping %d values", n)
		}
		out[i] = v
	}
	return out, nil
}

func (ex *Execution) iterStart(frame *StackFrame, op vm.Op) (StepResult, error) {
	iterable, ok := frame.Pop()
	if !ok {
		return OkStep, errors.New("ITER_START on an empty stack")
	}
	nameCount := 1
	if op.Code == vm.ITER_START_2 {
		nameCount = 2
	}
	names := make([]string, nameCount)
	for i := nameCount - 1; i >= 0; i-- {
		n, err := ex.popName(frame)
		if err != nil {
			return OkStep, err
		}
		names[i] = n
	}
	it, err := NewIterator(ex, iterable)
	if err != nil {
		return OkStep, err
	}
	endPC := frame.PC.SetOffset(int(op.Arg.(vm.IntValue)))
	state := &IteratorState{It: it, Names: names, BodyPC: frame.PC.Inc(), EndPC: endPC}
	v, more, err := it.Next(ex)
	if err != nil {
		return OkStep, err
	}
	if !more {
		frame.PC = endPC
		return OkStep, nil
	}
	if err := assignLoopVars(frame, state, v); err != nil {
		return OkStep, err
	}
	frame.Iterators = append(frame.Iterators, state)
	frame.PC = state.BodyPC
	return OkStep, nil
}

func assignLoopVars(frame *StackFrame, state *IteratorState, v vm.Value) error {
	if len(state.Names) == 1 {
		frame.Variables[state.Names[0]] = v
		return nil
	}
	var elems []vm.Value
	switch seq := v.(type) {
	case vm.TupleValue:
		elems = seq
	case *vm.ListValue:
		elems = seq.Elems
	default:
		return fmt.Errorf("cannot unpack non-sequence %s", vm.TypeName(v))
	}
	if len(elems) != len(state.Names) {
		return fmt.Errorf("not enough values to unpack (expected %d, got %d)", len(state.Names), len(elems))
	}
	for i, name := range state.Names {
		frame.Variables[name] = elems[i]
	}
	return nil
}

func (ex *Execution) opCall(frame *StackFrame, op vm.Op) (StepResult, error) {
	fnv, ok := frame.Pop()
	if !ok {
		return OkStep, errors.New("CALL on an empty stack")
	}
	args, err := ex.popArgs(frame, int(op.Arg.(vm.IntValue)))
	if err != nil {
		return OkStep, err
	}
	switch f := fnv.(type) {
	case vm.BuiltinValue:
		impl, ok := ex.Builtins[f.Name]
		if !ok {
			return OkStep, fmt.Errorf("name '%s' is not defined", f.Name)
		}
		pos, kw := splitArgs(args)
		res, err := impl(ex.builtinCtx(), pos, kw)
		if err != nil {
			return OkStep, err
		}
		frame.Push(res)
		frame.PC = frame.PC.Inc()
		return OkStep, nil
	case vm.FnPtrValue:
		callee, err := ex.buildFrame(vm.ExecPtr(f), args)
		if err != nil {
			return OkStep, err
		}
		attachLexical(callee, frame)
		frame.PC = frame.PC.Inc()
		ex.Frames = append(ex.Frames, callee)
		return CallStep, nil
	}
	return OkStep, fmt.Errorf("'%s' object is not callable", vm.TypeName(fnv))
}

func (ex *Execution) opCallMethod(frame *StackFrame, op vm.Op) (StepResult, error) {
	name, err := ex.popName(frame)
	if err != nil {
		return OkStep, err
	}
	recv, ok := frame.Pop()
	if !ok {
		return OkStep, errors.New("CALL_METHOD with no receiver")
	}
	args, err := ex.popArgs(frame, int(op.Arg.(vm.IntValue)))
	if err != nil {
		return OkStep, err
	}
	impl, err := ex.Methods.Lookup(recv, name)
	if err != nil {
		return OkStep, err
	}
	pos, kw := splitArgs(args)
	if kw != nil {
		return OkStep, fmt.Errorf("%s() does not accept keyword arguments", name)
	}
	res, err := impl(ex.builtinCtx(), recv, pos)
	if err != nil {
		return OkStep, err
	}
	frame.Push(res)
	frame.PC = frame.PC.Inc()
	return OkStep, nil
}

func (ex *Execution) popArgs(frame *StackFrame, n int) ([]vm.ArgValue, error) {
	out := make([]vm.ArgValue, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := frame.Pop()
		if !ok {
			return nil, errors.New("stack underflow popping call arguments")
		}
		a, ok := v.(vm.ArgValue)
		if !ok {
			return nil, fmt.Errorf("expected a call argument, got %s", vm.TypeName(v))
		}
		out[i] = a
	}
	return out, nil
}
