package vm

import (
	"errors"
	"fmt"
	"strings"
)

type MethodImpl func(ctx *BuiltinContext, recv Value, args []Value) (Value, error)

// MethodRegistry maps a type name to its bound methods. Mutating methods
// change the receiver in place and return None, like their Python
// counterparts.
type MethodRegistry map[string]map[string]MethodImpl

func AllMethods() MethodRegistry {
	return MethodRegistry{
		"list": {
			"append":  listAppend,
			"extend":  listExtend,
			"pop":     listPop,
			"index":   listIndex,
			"remove":  listRemove,
			"insert":  listInsert,
			"reverse": listReverse,
		},
		"dict": {
			"keys":   dictKeys,
			"values": dictValues,
			"items":  dictItems,
			"get":    dictGet,
			"pop":    dictPop,
		},
		"set": {
			"add":     setAdd,
			"remove":  setRemove,
			"discard": setDiscard,
		},
		"str": {
			"upper":      strUpper,
			"lower":      strLower,
			"strip":      strStrip,
			"split":      strSplit,
			"join":       strJoin,
			"replace":    strReplace,
			"startswith": strStartswith,
			"endswith":   strEndswith,
		},
	}
}

func (m MethodRegistry) Lookup(recv Value, name string) (MethodImpl, error) {
	byType, ok := m[TypeName(recv)]
	if !ok {
		return nil, fmt.Errorf("'%s' object has no attribute '%s'", TypeName(recv), name)
	}
	impl, ok := byType[name]
	if !ok {
		return nil, fmt.Errorf("'%s' object has no attribute '%s'", TypeName(recv), name)
	}
	return impl, nil
}

func methodArity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("%s() takes %d to %d arguments, got %d", name, lo, hi, len(args))
	}
	return nil
}

func listAppend(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("append", args, 1, 1); err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	l.Elems = append(l.Elems, args[0])
	return None, nil
}

func listExtend(ctx *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("extend", args, 1, 1); err != nil {
		return nil, err
	}
	elems, err := ctx.Drain(args[0])
	if err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	l.Elems = append(l.Elems, elems...)
	return None, nil
}

func listPop(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("pop", args, 0, 1); err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	if len(l.Elems) == 0 {
		return nil, errors.New("pop from empty list")
	}
	i := len(l.Elems) - 1
	if len(args) == 1 {
		var err error
		i, err = seqIndex(args[0], len(l.Elems))
		if err != nil {
			return nil, err
		}
	}
	v := l.Elems[i]
	l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
	return v, nil
}

func listIndex(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("index", args, 1, 1); err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	for i, v := range l.Elems {
		if c, ok := v.Cmp(args[0]); ok && c == 0 {
			return IntValue(i), nil
		}
	}
	return nil, fmt.Errorf("%v is not in list", args[0])
}

func listRemove(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("remove", args, 1, 1); err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	for i, v := range l.Elems {
		if c, ok := v.Cmp(args[0]); ok && c == 0 {
			l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
			return None, nil
		}
	}
	return nil, errors.New("list.remove(x): x not in list")
}

func listInsert(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("insert", args, 2, 2); err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	k, ok := args[0].(IntValue)
	if !ok {
		return nil, errors.New("insert index must be an integer")
	}
	i := int(k)
	if i < 0 {
		i += len(l.Elems)
	}
	if i < 0 {
		i = 0
	}
	if i > len(l.Elems) {
		i = len(l.Elems)
	}
	l.Elems = append(l.Elems, nil)
	copy(l.Elems[i+1:], l.Elems[i:])
	l.Elems[i] = args[1]
	return None, nil
}

func listReverse(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("reverse", args, 0, 0); err != nil {
		return nil, err
	}
	l := recv.(*ListValue)
	for i, j := 0, len(l.Elems)-1; i < j; i, j = i+1, j-1 {
		l.Elems[i], l.Elems[j] = l.Elems[j], l.Elems[i]
	}
	return None, nil
}

func dictKeys(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("keys", args, 0, 0); err != nil {
		return nil, err
	}
	d := recv.(*DictValue)
	out := make([]Value, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Key
	}
	return &ListValue{Elems: out}, nil
}

func dictValues(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("values", args, 0, 0); err != nil {
		return nil, err
	}
	d := recv.(*DictValue)
	out := make([]Value, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Value
	}
	return &ListValue{Elems: out}, nil
}

func dictItems(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("items", args, 0, 0); err != nil {
		return nil, err
	}
	d := recv.(*DictValue)
	out := make([]Value, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = TupleValue{e.Key, e.Value}
	}
	return &ListValue{Elems: out}, nil
}

func dictGet(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("get", args, 1, 2); err != nil {
		return nil, err
	}
	d := recv.(*DictValue)
	if v, found := d.Get(args[0]); found {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return None, nil
}

func dictPop(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("pop", args, 1, 2); err != nil {
		return nil, err
	}
	d := recv.(*DictValue)
	for i, e := range d.Entries {
		if c, ok := e.Key.Cmp(args[0]); ok && c == 0 {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return e.Value, nil
		}
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return nil, fmt.Errorf("KeyError: %s", args[0])
}

func setAdd(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("add", args, 1, 1); err != nil {
		return nil, err
	}
	recv.(*SetValue).Add(args[0])
	return None, nil
}

func setRemove(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("remove", args, 1, 1); err != nil {
		return nil, err
	}
	s := recv.(*SetValue)
	for i, v := range s.Elems {
		if c, ok := v.Cmp(args[0]); ok && c == 0 {
			s.Elems = append(s.Elems[:i], s.Elems[i+1:]...)
			return None, nil
		}
	}
	return nil, fmt.Errorf("KeyError: %s", args[0])
}

func setDiscard(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("discard", args, 1, 1); err != nil {
		return nil, err
	}
	s := recv.(*SetValue)
	for i, v := range s.Elems {
		if c, ok := v.Cmp(args[0]); ok && c == 0 {
			s.Elems = append(s.Elems[:i], s.Elems[i+1:]...)
			break
		}
	}
	return None, nil
}

func strUpper(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("upper", args, 0, 0); err != nil {
		return nil, err
	}
	return StrValue(strings.ToUpper(string(recv.(StrValue)))), nil
}

func strLower(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("lower", args, 0, 0); err != nil {
		return nil, err
	}
	return StrValue(strings.ToLower(string(recv.(StrValue)))), nil
}

func strStrip(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("strip", args, 0, 1); err != nil {
		return nil, err
	}
	s := string(recv.(StrValue))
	if len(args) == 1 {
		cut, ok := args[0].(StrValue)
		if !ok {
			return nil, errors.New("strip arg must be a string")
		}
		return StrValue(strings.Trim(s, string(cut))), nil
	}
	return StrValue(strings.TrimSpace(s)), nil
}

func strSplit(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("split", args, 0, 1); err != nil {
		return nil, err
	}
	s := string(recv.(StrValue))
	var parts []string
	if len(args) == 1 {
		sep, ok := args[0].(StrValue)
		if !ok {
			return nil, errors.New("split separator must be a string")
		}
		parts = strings.Split(s, string(sep))
	} else {
		parts = strings.Fields(s)
	}
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = StrValue(p)
	}
	return &ListValue{Elems: out}, nil
}

func strJoin(ctx *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("join", args, 1, 1); err != nil {
		return nil, err
	}
	elems, err := ctx.Drain(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(elems))
	for i, v := range elems {
		s, ok := v.(StrValue)
		if !ok {
			return nil, fmt.Errorf("sequence item %d: expected str instance, %s found", i, TypeName(v))
		}
		parts[i] = string(s)
	}
	return StrValue(strings.Join(parts, string(recv.(StrValue)))), nil
}

func strReplace(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("replace", args, 2, 2); err != nil {
		return nil, err
	}
	old, ok1 := args[0].(StrValue)
	repl, ok2 := args[1].(StrValue)
	if !ok1 || !ok2 {
		return nil, errors.New("replace arguments must be strings")
	}
	return StrValue(strings.ReplaceAll(string(recv.(StrValue)), string(old), string(repl))), nil
}

func strStartswith(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("startswith", args, 1, 1); err != nil {
		return nil, err
	}
	prefix, ok := args[0].(StrValue)
	if !ok {
		return nil, errors.New("startswith argument must be a string")
	}
	return BoolValue(strings.HasPrefix(string(recv.(StrValue)), string(prefix))), nil
}

func strEndswith(_ *BuiltinContext, recv Value, args []Value) (Value, error) {
	if err := methodArity("endswith", args, 1, 1); err != nil {
		return nil, err
	}
	suffix, ok := args[0].(StrValue)
	if !ok {
		return nil, errors.New("endswith argument must be a string")
	}
	return BoolValue(strings.HasSuffix(string(recv.(StrValue)), string(suffix))), nil
}
