package interp

import (
	"fmt"

	"github.com/stepwise-dev/stepwise/vm"
)

// Iterator drives a for loop. Map and filter objects need to call back into
// the interpreter to produce elements, so Next takes the execution.
type Iterator interface {
	Next(ex *Execution) (vm.Value, bool, error)
}

// NewIterator returns an iterator over v, or an error when v is not
// iterable.
func NewIterator(ex *Execution, v vm.Value) (Iterator, error) {
	if s, ok := vm.NewStream(v); ok {
		return streamIterator{s: s}, nil
	}
	switch val := v.(type) {
	case *vm.MapValue:
		return &mapIterator{m: val}, nil
	case *vm.FilterValue:
		return &filterIterator{f: val}, nil
	}
	return nil, fmt.Errorf("'%s' object is not iterable", vm.TypeName(v))
}

type streamIterator struct {
	s vm.Stream
}

func (it streamIterator) Next(_ *Execution) (vm.Value, bool, error) {
	v, ok := it.s.Next()
	return v, ok, nil
}

type mapIterator struct {
	m *vm.MapValue
}

func (it *mapIterator) Next(ex *Execution) (vm.Value, bool, error) {
	src, ok := it.m.Source.Next()
	if !ok {
		return nil, false, nil
	}
	v, err := ex.CallValue(it.m.Fn, []vm.Value{src})
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

type filterIterator struct {
	f *vm.FilterValue
}

func (it *filterIterator) Next(ex *Execution) (vm.Value, bool, error) {
	for {
		src, ok := it.f.Source.Next()
		if !ok {
			return nil, false, nil
		}
		keep := src.AsBool()
		if _, isNone := it.f.Fn.(vm.NoneValue); !isNone {
			v, err := ex.CallValue(it.f.Fn, []vm.Value{src})
			if err != nil {
				return nil, false, err
			}
			keep = v.AsBool()
		}
		if keep {
			return src, true, nil
		}
	}
}

// Drain expands any iterable into a slice, calling back into the
// interpreter when elements have to be computed.
func (ex *Execution) Drain(v vm.Value) ([]vm.Value, error) {
	it, err := NewIterator(ex, v)
	if err != nil {
		return nil, err
	}
	var out []vm.Value
	for {
		elem, ok, err := it.Next(ex)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, elem)
		if len(out) > maxDrain {
			return nil, fmt.Errorf("iterable produced more than %d elements", maxDrain)
		}
	}
}

const maxDrain = 1 << 20
