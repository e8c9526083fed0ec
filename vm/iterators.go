package vm

import (
	"fmt"
)

// Iter marks single-pass iterator objects: consuming them anywhere consumes
// them everywhere, which is why the display layer must never iterate one it
// did not clone first.
type Iter interface {
	Value
	iterValue()
}

// RangeValue is the lazy result of range(); it is re-iterable and therefore
// not an Iter.
type RangeValue struct {
	Start, Stop, Step int
}

func (RangeValue) isValue() {}

func (r RangeValue) Len() int {
	if r.Step > 0 {
		if r.Stop <= r.Start {
			return 0
		}
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	}
	if r.Stop >= r.Start {
		return 0
	}
	return (r.Start - r.Stop - r.Step - 1) / -r.Step
}

func (r RangeValue) At(i int) int { return r.Start + i*r.Step }

func (r RangeValue) AsBool() bool { return r.Len() != 0 }

func (r RangeValue) Clone() Value { return r }

func (r RangeValue) Cmp(other Value) (int, bool) {
	o, ok := other.(RangeValue)
	if !ok {
		return 0, false
	}
	// Ranges compare by the sequence they denote, like Python.
	n := r.Len()
	if n != o.Len() {
		return 0, false
	}
	if n == 0 {
		return 0, true
	}
	if r.At(0) != o.At(0) {
		return 0, false
	}
	if n > 1 && r.Step != o.Step {
		return 0, false
	}
	return 0, true
}

func (r RangeValue) String() string {
	if r.Step == 1 {
		return fmt.Sprintf("range(%d, %d)", r.Start, r.Stop)
	}
	return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step)
}

// Stream is a cloneable cursor over an iterable value. Cloning a stream
// yields an independent cursor, the moral equivalent of itertools.tee.
type Stream interface {
	Next() (Value, bool)
	CloneStream() Stream
}

// NewStream returns a cursor over v, or false when v is not directly
// streamable (map and filter objects need the interpreter to advance).
func NewStream(v Value) (Stream, bool) {
	switch val := v.(type) {
	case *ListValue:
		return &listStream{src: val}, true
	case TupleValue:
		return &seqStream{elems: val}, true
	case *SetValue:
		return &seqStream{elems: val.Elems}, true
	case *DictValue:
		keys := make([]Value, len(val.Entries))
		for i, e := range val.Entries {
			keys[i] = e.Key
		}
		return &seqStream{elems: keys}, true
	case StrValue:
		return &strStream{runes: []rune(string(val))}, true
	case RangeValue:
		return &rangeStream{r: val}, true
	case *ZipValue:
		return iterStream{val}, true
	case *EnumerateValue:
		return iterStream{val}, true
	}
	return nil, false
}

// listStream observes live list mutation, like a Python list iterator.
type listStream struct {
	src *ListValue
	idx int
}

func (s *listStream) Next() (Value, bool) {
	if s.idx >= len(s.src.Elems) {
		return nil, false
	}
	v := s.src.Elems[s.idx]
	s.idx++
	return v, true
}

func (s *listStream) CloneStream() Stream { return &listStream{src: s.src, idx: s.idx} }

type seqStream struct {
	elems []Value
	idx   int
}

func (s *seqStream) Next() (Value, bool) {
	if s.idx >= len(s.elems) {
		return nil, false
	}
	v := s.elems[s.idx]
	s.idx++
	return v, true
}

func (s *seqStream) CloneStream() Stream { return &seqStream{elems: s.elems, idx: s.idx} }

type strStream struct {
	runes []rune
	idx   int
}

func (s *strStream) Next() (Value, bool) {
	if s.idx >= len(s.runes) {
		return nil, false
	}
	v := StrValue(s.runes[s.idx])
	s.idx++
	return v, true
}

func (s *strStream) CloneStream() Stream { return &strStream{runes: s.runes, idx: s.idx} }

type rangeStream struct {
	r   RangeValue
	idx int
}

func (s *rangeStream) Next() (Value, bool) {
	if s.idx >= s.r.Len() {
		return nil, false
	}
	v := IntValue(s.r.At(s.idx))
	s.idx++
	return v, true
}

func (s *rangeStream) CloneStream() Stream { return &rangeStream{r: s.r, idx: s.idx} }

// advancer is the produce-next capability shared by zip and enumerate.
type advancer interface {
	Value
	NextValue() (Value, bool)
	cloneAdvancer() advancer
}

// iterStream adapts a consuming iterator object into the Stream shape.
// Next drains the shared object; CloneStream duplicates it first.
type iterStream struct {
	it advancer
}

func (s iterStream) Next() (Value, bool) { return s.it.NextValue() }

func (s iterStream) CloneStream() Stream { return iterStream{it: s.it.cloneAdvancer()} }

// ZipValue is the lazy result of zip(); it stops at its shortest source.
type ZipValue struct {
	Sources []Stream
}

func (*ZipValue) isValue()   {}
func (*ZipValue) iterValue() {}

func (z *ZipValue) AsBool() bool { return true }

func (z *ZipValue) Clone() Value { return z.cloneZip() }

func (z *ZipValue) cloneZip() *ZipValue {
	out := &ZipValue{Sources: make([]Stream, len(z.Sources))}
	for i, s := range z.Sources {
		out.Sources[i] = s.CloneStream()
	}
	return out
}

func (z *ZipValue) cloneAdvancer() advancer { return z.cloneZip() }

func (z *ZipValue) Cmp(other Value) (int, bool) {
	if o, ok := other.(*ZipValue); ok && o == z {
		return 0, true
	}
	return 0, false
}

func (z *ZipValue) NextValue() (Value, bool) {
	if len(z.Sources) == 0 {
		return nil, false
	}
	tup := make(TupleValue, len(z.Sources))
	for i, s := range z.Sources {
		v, ok := s.Next()
		if !ok {
			return nil, false
		}
		tup[i] = v
	}
	return tup, true
}

func (z *ZipValue) String() string { return "<zip object>" }

// EnumerateValue is the lazy result of enumerate().
type EnumerateValue struct {
	Source Stream
	Index  int
}

func (*EnumerateValue) isValue()   {}
func (*EnumerateValue) iterValue() {}

func (e *EnumerateValue) AsBool() bool { return true }

func (e *EnumerateValue) Clone() Value { return e.cloneAdvancer() }

func (e *EnumerateValue) cloneAdvancer() advancer {
	return &EnumerateValue{Source: e.Source.CloneStream(), Index: e.Index}
}

func (e *EnumerateValue) Cmp(other Value) (int, bool) {
	if o, ok := other.(*EnumerateValue); ok && o == e {
		return 0, true
	}
	return 0, false
}

func (e *EnumerateValue) NextValue() (Value, bool) {
	v, ok := e.Source.Next()
	if !ok {
		return nil, false
	}
	tup := TupleValue{IntValue(e.Index), v}
	e.Index++
	return tup, true
}

func (e *EnumerateValue) String() string { return "<enumerate object>" }

// MapValue is the lazy result of map(). Advancing it requires calling the
// mapped function, so the interpreter owns its iteration; the value itself
// only carries the pieces.
type MapValue struct {
	Fn     Value
	Source Stream
}

func (*MapValue) isValue()   {}
func (*MapValue) iterValue() {}

func (m *MapValue) AsBool() bool { return true }

func (m *MapValue) Clone() Value {
	return &MapValue{Fn: m.Fn, Source: m.Source.CloneStream()}
}

func (m *MapValue) Cmp(other Value) (int, bool) {
	if o, ok := other.(*MapValue); ok && o == m {
		return 0, true
	}
	return 0, false
}

func (m *MapValue) String() string { return "<map object>" }

// FilterValue is the lazy result of filter(), interpreter-driven like MapValue.
type FilterValue struct {
	Fn     Value
	Source Stream
}

func (*FilterValue) isValue()   {}
func (*FilterValue) iterValue() {}

func (f *FilterValue) AsBool() bool { return true }

func (f *FilterValue) Clone() Value {
	return &FilterValue{Fn: f.Fn, Source: f.Source.CloneStream()}
}

func (f *FilterValue) Cmp(other Value) (int, bool) {
	if o, ok := other.(*FilterValue); ok && o == f {
		return 0, true
	}
	return 0, false
}

func (f *FilterValue) String() string { return "<filter object>" }

// IsIter reports whether v is a single-pass iterator object; display code
// appends the "(iter)" marker to the type label of such values.
func IsIter(v Value) bool {
	_, ok := v.(Iter)
	return ok
}
