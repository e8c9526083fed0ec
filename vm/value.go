package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the runtime representation of every value the interpreter can
// produce. Cmp returns (ordering, comparable); values of unrelated types
// report comparable=false, which EQ treats as "not equal" and LT treats as
// an error.
type Value interface {
	isValue()
	AsBool() bool
	Clone() Value
	Cmp(other Value) (int, bool)
	String() string
}

type BoolValue bool

func (BoolValue) isValue() {}

var (
	BoolTrue  = BoolValue(true)
	BoolFalse = BoolValue(false)
)

func (b BoolValue) AsBool() bool { return bool(b) }

func (b BoolValue) Clone() Value { return b }

func (b BoolValue) Cmp(other Value) (int, bool) {
	// bool participates in numeric comparison, like Python's bool.
	return numCmp(b.asFloat(), other)
}

func (b BoolValue) asFloat() float64 {
	if b {
		return 1
	}
	return 0
}

func (b BoolValue) String() string {
	if b {
		return "True"
	}
	return "False"
}

type StrValue string

func (StrValue) isValue() {}

func (s StrValue) AsBool() bool { return s != "" }

func (s StrValue) Clone() Value { return s }

func (s StrValue) Cmp(other Value) (int, bool) {
	o, ok := other.(StrValue)
	if !ok {
		return 0, false
	}
	return strings.Compare(string(s), string(o)), true
}

func (s StrValue) String() string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`).Replace(string(s)) + "'"
}

type IntValue int

func (IntValue) isValue() {}

func (i IntValue) AsBool() bool { return i != 0 }

func (i IntValue) Clone() Value { return i }

func (i IntValue) Cmp(other Value) (int, bool) {
	return numCmp(float64(i), other)
}

func (i IntValue) String() string { return strconv.Itoa(int(i)) }

type FloatValue float64

func (FloatValue) isValue() {}

func (f FloatValue) AsBool() bool { return f != 0 }

func (f FloatValue) Clone() Value { return f }

func (f FloatValue) Cmp(other Value) (int, bool) {
	return numCmp(float64(f), other)
}

func (f FloatValue) String() string {
	v := float64(f)
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func numCmp(a float64, other Value) (int, bool) {
	var b float64
	switch o := other.(type) {
	case IntValue:
		b = float64(o)
	case FloatValue:
		b = float64(o)
	case BoolValue:
		b = o.asFloat()
	default:
		return 0, false
	}
	switch {
	case a < b:
		return -1, true
	case a > b:
		return 1, true
	}
	return 0, true
}

type NoneValue struct{}

func (NoneValue) isValue() {}

var None = NoneValue{}

func (NoneValue) AsBool() bool { return false }

func (n NoneValue) Clone() Value { return n }

func (NoneValue) Cmp(other Value) (int, bool) {
	if _, ok := other.(NoneValue); ok {
		return 0, true
	}
	return 0, false
}

func (NoneValue) String() string { return "None" }

// TupleValue is an immutable sequence; unlike lists it is copied by value.
type TupleValue []Value

func (TupleValue) isValue() {}

func (t TupleValue) AsBool() bool { return len(t) != 0 }

func (t TupleValue) Clone() Value {
	out := make(TupleValue, len(t))
	for i, v := range t {
		out[i] = v.Clone()
	}
	return out
}

func (t TupleValue) Cmp(other Value) (int, bool) {
	o, ok := other.(TupleValue)
	if !ok {
		return 0, false
	}
	return seqCmp(t, o)
}

func (t TupleValue) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.String()
	}
	if len(t) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ListValue is mutable and shared by reference, so aliased names observe
// each other's mutations, as in Python.
type ListValue struct {
	Elems []Value
}

func NewList(elems ...Value) *ListValue { return &ListValue{Elems: elems} }

func (*ListValue) isValue() {}

func (l *ListValue) AsBool() bool { return len(l.Elems) != 0 }

func (l *ListValue) Clone() Value {
	out := make([]Value, len(l.Elems))
	for i, v := range l.Elems {
		out[i] = v.Clone()
	}
	return &ListValue{Elems: out}
}

func (l *ListValue) Cmp(other Value) (int, bool) {
	o, ok := other.(*ListValue)
	if !ok {
		return 0, false
	}
	return seqCmp(l.Elems, o.Elems)
}

func (l *ListValue) String() string {
	parts := make([]string, len(l.Elems))
	for i, v := range l.Elems {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func seqCmp(a, b []Value) (int, bool) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, ok := a[i].Cmp(b[i])
		if !ok {
			return 0, false
		}
		if c != 0 {
			return c, true
		}
	}
	switch {
	case len(a) < len(b):
		return -1, true
	case len(a) > len(b):
		return 1, true
	}
	return 0, true
}

// DictValue preserves insertion order and permits any comparable key type,
// so {0: 'a'} and {'x': 1} both display the way Python would show them.
type DictValue struct {
	Entries []DictEntry
}

type DictEntry struct {
	Key   Value
	Value Value
}

func NewDict() *DictValue { return &DictValue{} }

func (*DictValue) isValue() {}

func (d *DictValue) AsBool() bool { return len(d.Entries) != 0 }

func (d *DictValue) Clone() Value {
	out := make([]DictEntry, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = DictEntry{Key: e.Key.Clone(), Value: e.Value.Clone()}
	}
	return &DictValue{Entries: out}
}

func (d *DictValue) Cmp(other Value) (int, bool) {
	o, ok := other.(*DictValue)
	if !ok || len(d.Entries) != len(o.Entries) {
		return 0, false
	}
	for _, e := range d.Entries {
		ov, found := o.Get(e.Key)
		if !found {
			return 0, false
		}
		if c, ok := e.Value.Cmp(ov); !ok || c != 0 {
			return 0, false
		}
	}
	return 0, true
}

func (d *DictValue) Get(key Value) (Value, bool) {
	for _, e := range d.Entries {
		if c, ok := e.Key.Cmp(key); ok && c == 0 {
			return e.Value, true
		}
	}
	return nil, false
}

func (d *DictValue) Set(key, value Value) {
	for i, e := range d.Entries {
		if c, ok := e.Key.Cmp(key); ok && c == 0 {
			d.Entries[i].Value = value
			return
		}
	}
	d.Entries = append(d.Entries, DictEntry{Key: key, Value: value})
}

func (d *DictValue) String() string {
	parts := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SetValue keeps insertion order and deduplicates on insert.
type SetValue struct {
	Elems []Value
}

func NewSet() *SetValue { return &SetValue{} }

func (*SetValue) isValue() {}

func (s *SetValue) AsBool() bool { return len(s.Elems) != 0 }

func (s *SetValue) Clone() Value {
	out := make([]Value, len(s.Elems))
	for i, v := range s.Elems {
		out[i] = v.Clone()
	}
	return &SetValue{Elems: out}
}

func (s *SetValue) Cmp(other Value) (int, bool) {
	o, ok := other.(*SetValue)
	if !ok || len(s.Elems) != len(o.Elems) {
		return 0, false
	}
	for _, v := range s.Elems {
		if !o.Has(v) {
			return 0, false
		}
	}
	return 0, true
}

func (s *SetValue) Has(v Value) bool {
	for _, e := range s.Elems {
		if c, ok := e.Cmp(v); ok && c == 0 {
			return true
		}
	}
	return false
}

func (s *SetValue) Add(v Value) {
	if !s.Has(v) {
		s.Elems = append(s.Elems, v)
	}
}

func (s *SetValue) String() string {
	if len(s.Elems) == 0 {
		return "set()"
	}
	parts := make([]string, len(s.Elems))
	for i, v := range s.Elems {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FnPtrValue points at a Function in the program's code table.
type FnPtrValue ExecPtr

func (FnPtrValue) isValue() {}

func (FnPtrValue) AsBool() bool { return true }

func (f FnPtrValue) Clone() Value { return f }

func (f FnPtrValue) Cmp(other Value) (int, bool) {
	o, ok := other.(FnPtrValue)
	if !ok {
		return 0, false
	}
	if f == o {
		return 0, true
	}
	return 0, false
}

func (f FnPtrValue) String() string {
	return fmt.Sprintf("<function@0x%x>", uint64(f))
}

type BuiltinValue struct {
	Name string
}

func (BuiltinValue) isValue() {}

func (BuiltinValue) AsBool() bool { return true }

func (b BuiltinValue) Clone() Value { return b }

func (b BuiltinValue) Cmp(other Value) (int, bool) {
	o, ok := other.(BuiltinValue)
	if !ok {
		return 0, false
	}
	return strings.Compare(b.Name, o.Name), true
}

func (b BuiltinValue) String() string {
	return fmt.Sprintf("<built-in function %s>", b.Name)
}

// ArgValue wraps one call argument; Key is empty for positional arguments.
type ArgValue struct {
	Key   string
	Value Value
}

func (ArgValue) isValue() {}

func (a ArgValue) AsBool() bool { return a.Value.AsBool() }

func (a ArgValue) Clone() Value { return ArgValue{Key: a.Key, Value: a.Value.Clone()} }

func (ArgValue) Cmp(other Value) (int, bool) { return 0, false }

func (a ArgValue) String() string {
	if a.Key == "" {
		return a.Value.String()
	}
	return a.Key + "=" + a.Value.String()
}

// TypeName reports the Python-style type name used for display labels.
func TypeName(v Value) string {
	switch v.(type) {
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StrValue:
		return "str"
	case BoolValue:
		return "bool"
	case NoneValue:
		return "NoneType"
	case TupleValue:
		return "tuple"
	case *ListValue:
		return "list"
	case *DictValue:
		return "dict"
	case *SetValue:
		return "set"
	case FnPtrValue:
		return "function"
	case BuiltinValue:
		return "builtin_function_or_method"
	case RangeValue:
		return "range"
	case *ZipValue:
		return "zip"
	case *EnumerateValue:
		return "enumerate"
	case *MapValue:
		return "map"
	case *FilterValue:
		return "filter"
	default:
		return "unknown"
	}
}

// Str renders a value the way print() would: strings lose their quotes,
// everything else keeps its repr form.
func Str(v Value) string {
	if s, ok := v.(StrValue); ok {
		return string(s)
	}
	return v.String()
}
