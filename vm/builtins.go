package vm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// BuiltinContext is the environment a builtin runs in. Out receives print
// output. Call and Drain are installed by the interpreter: Call applies a
// function value to already-evaluated arguments, Drain expands any iterable
// (including map and filter objects, which need Call) into a slice.
type BuiltinContext struct {
	Out   io.Writer
	Call  func(fn Value, args []Value) (Value, error)
	Drain func(v Value) ([]Value, error)
}

type BuiltinImpl func(ctx *BuiltinContext, args []Value, kwargs map[string]Value) (Value, error)

type BuiltinRegistry map[string]BuiltinImpl

func AllBuiltins() BuiltinRegistry {
	return BuiltinRegistry{
		"print":     builtinPrint,
		"len":       builtinLen,
		"range":     builtinRange,
		"zip":       builtinZip,
		"enumerate": builtinEnumerate,
		"map":       builtinMap,
		"filter":    builtinFilter,
		"str":       builtinStr,
		"int":       builtinInt,
		"float":     builtinFloat,
		"bool":      builtinBool,
		"abs":       builtinAbs,
		"pow":       builtinPow,
		"min":       builtinMin,
		"max":       builtinMax,
		"sum":       builtinSum,
		"sorted":    builtinSorted,
		"list":      builtinList,
		"set":       builtinSet,
	}
}

func arity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%s() takes %d argument(s), got %d", name, lo, len(args))
		}
		return fmt.Errorf("%s() takes %d to %d arguments, got %d", name, lo, hi, len(args))
	}
	return nil
}

func builtinPrint(ctx *BuiltinContext, args []Value, kwargs map[string]Value) (Value, error) {
	sep := " "
	end := "\n"
	if v, ok := kwargs["sep"]; ok {
		s, ok := v.(StrValue)
		if !ok {
			return nil, errors.New("sep must be a string")
		}
		sep = string(s)
	}
	if v, ok := kwargs["end"]; ok {
		s, ok := v.(StrValue)
		if !ok {
			return nil, errors.New("end must be a string")
		}
		end = string(s)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Str(a)
	}
	if _, err := io.WriteString(ctx.Out, strings.Join(parts, sep)+end); err != nil {
		return nil, err
	}
	return None, nil
}

func builtinLen(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case StrValue:
		return IntValue(len([]rune(string(v)))), nil
	case *ListValue:
		return IntValue(len(v.Elems)), nil
	case TupleValue:
		return IntValue(len(v)), nil
	case *DictValue:
		return IntValue(len(v.Entries)), nil
	case *SetValue:
		return IntValue(len(v.Elems)), nil
	case RangeValue:
		return IntValue(v.Len()), nil
	}
	return nil, fmt.Errorf("object of type '%s' has no len()", TypeName(args[0]))
}

func builtinRange(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	nums := make([]int, len(args))
	for i, a := range args {
		n, ok := a.(IntValue)
		if !ok {
			return nil, fmt.Errorf("range() arguments must be integers, got %s", TypeName(a))
		}
		nums[i] = int(n)
	}
	switch len(nums) {
	case 1:
		return RangeValue{Start: 0, Stop: nums[0], Step: 1}, nil
	case 2:
		return RangeValue{Start: nums[0], Stop: nums[1], Step: 1}, nil
	default:
		if nums[2] == 0 {
			return nil, errors.New("range() step argument must not be zero")
		}
		return RangeValue{Start: nums[0], Stop: nums[1], Step: nums[2]}, nil
	}
}

func builtinZip(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	z := &ZipValue{Sources: make([]Stream, len(args))}
	for i, a := range args {
		s, ok := NewStream(a)
		if !ok {
			return nil, fmt.Errorf("zip argument #%d is not iterable: %s", i+1, TypeName(a))
		}
		z.Sources[i] = s
	}
	return z, nil
}

func builtinEnumerate(_ *BuiltinContext, args []Value, kwargs map[string]Value) (Value, error) {
	if err := arity("enumerate", args, 1, 2); err != nil {
		return nil, err
	}
	s, ok := NewStream(args[0])
	if !ok {
		return nil, fmt.Errorf("'%s' object is not iterable", TypeName(args[0]))
	}
	start := 0
	startArg := Value(nil)
	if len(args) == 2 {
		startArg = args[1]
	} else if v, ok := kwargs["start"]; ok {
		startArg = v
	}
	if startArg != nil {
		n, ok := startArg.(IntValue)
		if !ok {
			return nil, errors.New("enumerate() start must be an integer")
		}
		start = int(n)
	}
	return &EnumerateValue{Source: s, Index: start}, nil
}

func builtinMap(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("map", args, 2, 2); err != nil {
		return nil, err
	}
	s, ok := NewStream(args[1])
	if !ok {
		return nil, fmt.Errorf("'%s' object is not iterable", TypeName(args[1]))
	}
	return &MapValue{Fn: args[0], Source: s}, nil
}

func builtinFilter(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("filter", args, 2, 2); err != nil {
		return nil, err
	}
	s, ok := NewStream(args[1])
	if !ok {
		return nil, fmt.Errorf("'%s' object is not iterable", TypeName(args[1]))
	}
	return &FilterValue{Fn: args[0], Source: s}, nil
}

func builtinStr(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("str", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return StrValue(""), nil
	}
	return StrValue(Str(args[0])), nil
}

func builtinInt(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("int", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return IntValue(0), nil
	}
	switch v := args[0].(type) {
	case IntValue:
		return v, nil
	case FloatValue:
		return IntValue(int(math.Trunc(float64(v)))), nil
	case BoolValue:
		if v {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	case StrValue:
		n, err := strconv.Atoi(strings.TrimSpace(string(v)))
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int(): %s", v)
		}
		return IntValue(n), nil
	}
	return nil, fmt.Errorf("int() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func builtinFloat(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return FloatValue(0), nil
	}
	switch v := args[0].(type) {
	case IntValue:
		return FloatValue(float64(v)), nil
	case FloatValue:
		return v, nil
	case BoolValue:
		if v {
			return FloatValue(1), nil
		}
		return FloatValue(0), nil
	case StrValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, fmt.Errorf("could not convert string to float: %s", v)
		}
		return FloatValue(f), nil
	}
	return nil, fmt.Errorf("float() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func builtinBool(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("bool", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return BoolFalse, nil
	}
	return BoolValue(args[0].AsBool()), nil
}

func builtinAbs(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case IntValue:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case FloatValue:
		return FloatValue(math.Abs(float64(v))), nil
	}
	return nil, fmt.Errorf("bad operand type for abs(): '%s'", TypeName(args[0]))
}

func builtinPow(_ *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("pow", args, 2, 2); err != nil {
		return nil, err
	}
	return Pow(args[0], args[1])
}

func builtinMin(ctx *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	return extreme(ctx, "min", args, -1)
}

func builtinMax(ctx *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	return extreme(ctx, "max", args, 1)
}

func extreme(ctx *BuiltinContext, name string, args []Value, want int) (Value, error) {
	var elems []Value
	if len(args) == 1 {
		var err error
		elems, err = ctx.Drain(args[0])
		if err != nil {
			return nil, err
		}
	} else {
		elems = args
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%s() arg is an empty sequence", name)
	}
	best := elems[0]
	for _, v := range elems[1:] {
		c, ok := v.Cmp(best)
		if !ok {
			return nil, fmt.Errorf("'%s' not supported between instances of '%s' and '%s'", name, TypeName(v), TypeName(best))
		}
		if c == want {
			best = v
		}
	}
	return best, nil
}

func builtinSum(ctx *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}
	elems, err := ctx.Drain(args[0])
	if err != nil {
		return nil, err
	}
	var acc Value = IntValue(0)
	if len(args) == 2 {
		acc = args[1]
	}
	for _, v := range elems {
		acc, err = Add(acc, v)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func builtinSorted(ctx *BuiltinContext, args []Value, kwargs map[string]Value) (Value, error) {
	if err := arity("sorted", args, 1, 1); err != nil {
		return nil, err
	}
	elems, err := ctx.Drain(args[0])
	if err != nil {
		return nil, err
	}
	type pair struct {
		key Value
		val Value
	}
	pairs := make([]pair, len(elems))
	for i, v := range elems {
		pairs[i] = pair{key: v, val: v}
	}
	if keyFn, ok := kwargs["key"]; ok {
		for i := range pairs {
			k, err := ctx.Call(keyFn, []Value{pairs[i].val})
			if err != nil {
				return nil, err
			}
			pairs[i].key = k
		}
	}
	var sortErr error
	sort.SliceStable(pairs, func(i, j int) bool {
		c, ok := pairs[i].key.Cmp(pairs[j].key)
		if !ok && sortErr == nil {
			sortErr = fmt.Errorf("'<' not supported between instances of '%s' and '%s'", TypeName(pairs[i].key), TypeName(pairs[j].key))
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]Value, len(pairs))
	for i, p := range pairs {
		out[i] = p.val
	}
	if rev, ok := kwargs["reverse"]; ok && rev.AsBool() {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return &ListValue{Elems: out}, nil
}

func builtinList(ctx *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("list", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return NewList(), nil
	}
	elems, err := ctx.Drain(args[0])
	if err != nil {
		return nil, err
	}
	return &ListValue{Elems: elems}, nil
}

func builtinSet(ctx *BuiltinContext, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("set", args, 0, 1); err != nil {
		return nil, err
	}
	out := NewSet()
	if len(args) == 1 {
		elems, err := ctx.Drain(args[0])
		if err != nil {
			return nil, err
		}
		for _, v := range elems {
			out.Add(v)
		}
	}
	return out, nil
}
