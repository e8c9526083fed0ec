package vm

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrZeroDivision = errors.New("division by zero")

// asNum extracts a numeric operand. Bools count as 0 and 1, matching
// Python's bool-is-an-int behavior.
func asNum(v Value) (f float64, isInt bool, ok bool) {
	switch n := v.(type) {
	case IntValue:
		return float64(n), true, true
	case BoolValue:
		return n.asFloat(), true, true
	case FloatValue:
		return float64(n), false, true
	}
	return 0, false, false
}

func numResult(f float64, bothInt bool) Value {
	if bothInt {
		return IntValue(int(f))
	}
	return FloatValue(f)
}

func binOpError(op string, a, b Value) error {
	return fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(a), TypeName(b))
}

func Add(a, b Value) (Value, error) {
	if af, ai, ok := asNum(a); ok {
		if bf, bi, ok := asNum(b); ok {
			return numResult(af+bf, ai && bi), nil
		}
		return nil, binOpError("+", a, b)
	}
	switch av := a.(type) {
	case StrValue:
		if bv, ok := b.(StrValue); ok {
			return av + bv, nil
		}
	case *ListValue:
		if bv, ok := b.(*ListValue); ok {
			out := make([]Value, 0, len(av.Elems)+len(bv.Elems))
			out = append(out, av.Elems...)
			out = append(out, bv.Elems...)
			return &ListValue{Elems: out}, nil
		}
	case TupleValue:
		if bv, ok := b.(TupleValue); ok {
			out := make(TupleValue, 0, len(av)+len(bv))
			out = append(out, av...)
			out = append(out, bv...)
			return out, nil
		}
	}
	return nil, binOpError("+", a, b)
}

func Sub(a, b Value) (Value, error) {
	af, ai, aok := asNum(a)
	bf, bi, bok := asNum(b)
	if !aok || !bok {
		return nil, binOpError("-", a, b)
	}
	return numResult(af-bf, ai && bi), nil
}

func Mul(a, b Value) (Value, error) {
	if af, ai, ok := asNum(a); ok {
		if bf, bi, ok := asNum(b); ok {
			return numResult(af*bf, ai && bi), nil
		}
	}
	// Sequence repetition works in either operand order.
	if n, ok := b.(IntValue); ok {
		if v, err, handled := repeat(a, int(n)); handled {
			return v, err
		}
	}
	if n, ok := a.(IntValue); ok {
		if v, err, handled := repeat(b, int(n)); handled {
			return v, err
		}
	}
	return nil, binOpError("*", a, b)
}

func repeat(v Value, n int) (Value, error, bool) {
	if n < 0 {
		n = 0
	}
	switch seq := v.(type) {
	case StrValue:
		return StrValue(strings.Repeat(string(seq), n)), nil, true
	case *ListValue:
		out := make([]Value, 0, len(seq.Elems)*n)
		for i := 0; i < n; i++ {
			out = append(out, seq.Elems...)
		}
		return &ListValue{Elems: out}, nil, true
	case TupleValue:
		out := make(TupleValue, 0, len(seq)*n)
		for i := 0; i < n; i++ {
			out = append(out, seq...)
		}
		return out, nil, true
	}
	return nil, nil, false
}

// Div implements true division: the result is always a float.
func Div(a, b Value) (Value, error) {
	af, _, aok := asNum(a)
	bf, _, bok := asNum(b)
	if !aok || !bok {
		return nil, binOpError("/", a, b)
	}
	if bf == 0 {
		return nil, ErrZeroDivision
	}
	return FloatValue(af / bf), nil
}

// FloorDiv rounds toward negative infinity, so -7 // 2 == -4.
func FloorDiv(a, b Value) (Value, error) {
	af, ai, aok := asNum(a)
	bf, bi, bok := asNum(b)
	if !aok || !bok {
		return nil, binOpError("//", a, b)
	}
	if bf == 0 {
		return nil, ErrZeroDivision
	}
	return numResult(math.Floor(af/bf), ai && bi), nil
}

// Mod returns a result whose sign follows the divisor, as in Python.
func Mod(a, b Value) (Value, error) {
	af, ai, aok := asNum(a)
	bf, bi, bok := asNum(b)
	if !aok || !bok {
		return nil, binOpError("%", a, b)
	}
	if bf == 0 {
		return nil, ErrZeroDivision
	}
	r := math.Mod(af, bf)
	if r != 0 && (r < 0) != (bf < 0) {
		r += bf
	}
	return numResult(r, ai && bi), nil
}

func Pow(a, b Value) (Value, error) {
	af, ai, aok := asNum(a)
	bf, bi, bok := asNum(b)
	if !aok || !bok {
		return nil, binOpError("** or pow()", a, b)
	}
	r := math.Pow(af, bf)
	// Integer base and non-negative integer exponent stay integral.
	return numResult(r, ai && bi && bf >= 0), nil
}

// Contains implements the `in` operator.
func Contains(item, container Value) (Value, error) {
	switch c := container.(type) {
	case StrValue:
		s, ok := item.(StrValue)
		if !ok {
			return nil, errors.New("'in <string>' requires string as left operand")
		}
		return BoolValue(strings.Contains(string(c), string(s))), nil
	case *ListValue:
		return BoolValue(seqContains(c.Elems, item)), nil
	case TupleValue:
		return BoolValue(seqContains(c, item)), nil
	case *SetValue:
		return BoolValue(c.Has(item)), nil
	case *DictValue:
		_, found := c.Get(item)
		return BoolValue(found), nil
	case RangeValue:
		n, ok := item.(IntValue)
		if !ok {
			return BoolFalse, nil
		}
		s, _ := NewStream(c)
		for v, more := s.Next(); more; v, more = s.Next() {
			if v == n {
				return BoolTrue, nil
			}
		}
		return BoolFalse, nil
	}
	return nil, fmt.Errorf("argument of type '%s' is not iterable", TypeName(container))
}

func seqContains(elems []Value, item Value) bool {
	for _, v := range elems {
		if c, ok := v.Cmp(item); ok && c == 0 {
			return true
		}
	}
	return false
}

// GetIndex implements container[key] for GETATTR on non-string keys and
// for string keys on dicts.
func GetIndex(container, key Value) (Value, error) {
	switch c := container.(type) {
	case *ListValue:
		i, err := seqIndex(key, len(c.Elems))
		if err != nil {
			return nil, err
		}
		return c.Elems[i], nil
	case TupleValue:
		i, err := seqIndex(key, len(c))
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case StrValue:
		runes := []rune(string(c))
		i, err := seqIndex(key, len(runes))
		if err != nil {
			return nil, err
		}
		return StrValue(runes[i]), nil
	case *DictValue:
		v, found := c.Get(key)
		if !found {
			return nil, fmt.Errorf("KeyError: %s", key)
		}
		return v, nil
	case RangeValue:
		i, err := seqIndex(key, c.Len())
		if err != nil {
			return nil, err
		}
		return IntValue(c.At(i)), nil
	}
	return nil, fmt.Errorf("'%s' object is not subscriptable", TypeName(container))
}

// SetIndex implements container[key] = value.
func SetIndex(container, key, value Value) error {
	switch c := container.(type) {
	case *ListValue:
		i, err := seqIndex(key, len(c.Elems))
		if err != nil {
			return err
		}
		c.Elems[i] = value
		return nil
	case *DictValue:
		c.Set(key, value)
		return nil
	}
	return fmt.Errorf("'%s' object does not support item assignment", TypeName(container))
}

// seqIndex normalizes a possibly negative index against length n.
func seqIndex(key Value, n int) (int, error) {
	k, ok := key.(IntValue)
	if !ok {
		return 0, fmt.Errorf("indices must be integers, not '%s'", TypeName(key))
	}
	i := int(k)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, errors.New("IndexError: index out of range")
	}
	return i, nil
}

// Slice implements seq[lo:hi]; None bounds mean the ends, negatives wrap,
// and out-of-range bounds clamp rather than error.
func Slice(seq, lo, hi Value) (Value, error) {
	switch c := seq.(type) {
	case *ListValue:
		a, b, err := sliceBounds(lo, hi, len(c.Elems))
		if err != nil {
			return nil, err
		}
		out := make([]Value, b-a)
		copy(out, c.Elems[a:b])
		return &ListValue{Elems: out}, nil
	case TupleValue:
		a, b, err := sliceBounds(lo, hi, len(c))
		if err != nil {
			return nil, err
		}
		out := make(TupleValue, b-a)
		copy(out, c[a:b])
		return out, nil
	case StrValue:
		runes := []rune(string(c))
		a, b, err := sliceBounds(lo, hi, len(runes))
		if err != nil {
			return nil, err
		}
		return StrValue(runes[a:b]), nil
	}
	return nil, fmt.Errorf("'%s' object is not sliceable", TypeName(seq))
}

func sliceBounds(lo, hi Value, n int) (int, int, error) {
	a, err := sliceBound(lo, 0, n)
	if err != nil {
		return 0, 0, err
	}
	b, err := sliceBound(hi, n, n)
	if err != nil {
		return 0, 0, err
	}
	if b < a {
		b = a
	}
	return a, b, nil
}

func sliceBound(v Value, dflt, n int) (int, error) {
	if _, ok := v.(NoneValue); ok || v == nil {
		return dflt, nil
	}
	k, ok := v.(IntValue)
	if !ok {
		return 0, fmt.Errorf("slice indices must be integers, not '%s'", TypeName(v))
	}
	i := int(k)
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i, nil
}
