package debug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/stepwise-dev/stepwise/interp"
	"github.com/stepwise-dev/stepwise/vm"
)

var (
	zipArgsRe  = regexp.MustCompile(`zip\((.*?)\)`)
	enumArgsRe = regexp.MustCompile(`enumerate\((.*?)\)`)
)

// Formatter turns runtime values into stable display strings. It never
// fails: every path degrades to an opaque marker or a plain conversion.
// The assignment index feeds the best-effort recovery of zip and enumerate
// construction expressions.
type Formatter struct {
	assignments map[string]string
	names       []string
}

func NewFormatter(assignments map[string]string) *Formatter {
	names := make([]string, 0, len(assignments))
	for name := range assignments {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Formatter{assignments: assignments, names: names}
}

// Format renders the value bound to name. The name selects the matching
// entry in the assignment index for zip/enumerate recovery; pass "" for an
// unnamed value.
func (f *Formatter) Format(name string, v vm.Value) string {
	switch val := v.(type) {
	case *vm.ZipValue:
		return f.formatZip(name, val)
	case *vm.EnumerateValue:
		return f.formatEnumerate(name)
	case *vm.MapValue:
		return "<map object>"
	case *vm.FilterValue:
		return "<filter object>"
	case vm.RangeValue:
		return formatRange(val)
	}
	return render(v)
}

// candidates lists recorded assignment texts containing marker: the entry
// for name itself first, then the rest in sorted name order.
func (f *Formatter) candidates(name, marker string) []string {
	var out []string
	if text, ok := f.assignments[name]; ok && strings.Contains(text, marker) {
		out = append(out, text)
	}
	for _, n := range f.names {
		if n == name {
			continue
		}
		if text := f.assignments[n]; strings.Contains(text, marker) {
			out = append(out, text)
		}
	}
	return out
}

// render is the three-tier fallback: repr of a deep copy, then repr of the
// live value, then a plain conversion.
func render(v vm.Value) string {
	if s, ok := try(func() string { return v.Clone().String() }); ok {
		return s
	}
	if s, ok := try(func() string { return v.String() }); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func try(fn func() string) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn(), true
}

func formatRange(r vm.RangeValue) string {
	if r.Step == 1 {
		if r.Start == 0 {
			return fmt.Sprintf("range(%d)", r.Stop)
		}
		return fmt.Sprintf("range(%d, %d)", r.Start, r.Stop)
	}
	return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step)
}

// formatZip previews a zip without consuming it. First choice: recover the
// construction expression from the assignment index and re-evaluate its
// arguments in a builtin-free context, showing up to three elements per
// argument. Fallback: peek one element from a duplicated cursor. Last
// resort: an opaque marker.
func (f *Formatter) formatZip(name string, z *vm.ZipValue) string {
	for _, assignment := range f.candidates(name, "zip(") {
		m := zipArgsRe.FindStringSubmatch(assignment)
		if m == nil {
			continue
		}
		args, err := evalRestricted("[" + m[1] + "]")
		if err != nil {
			continue
		}
		list, ok := args.(*vm.ListValue)
		if !ok {
			continue
		}
		previews := make([]string, len(list.Elems))
		for i, arg := range list.Elems {
			previews[i] = previewIterable(arg)
		}
		return "zip(" + strings.Join(previews, ", ") + ")"
	}

	peek := z.Clone().(*vm.ZipValue)
	if first, ok := peek.NextValue(); ok {
		return fmt.Sprintf("zip(... -> %s, ...)", render(first))
	}
	return "zip(<empty>)"
}

// previewIterable shows the first three elements of a sequence, with an
// ellipsis when more follow. Strings and scalars render whole.
func previewIterable(v vm.Value) string {
	if _, isStr := v.(vm.StrValue); isStr {
		return render(v)
	}
	s, ok := vm.NewStream(v)
	if !ok {
		return render(v)
	}
	var items []string
	truncated := false
	for e, more := s.Next(); more; e, more = s.Next() {
		if len(items) == 3 {
			truncated = true
			break
		}
		items = append(items, render(e))
	}
	out := "[" + strings.Join(items, ", ") + "]"
	if truncated {
		out += "..."
	}
	return out
}

func (f *Formatter) formatEnumerate(name string) string {
	for _, assignment := range f.candidates(name, "enumerate(") {
		if m := enumArgsRe.FindStringSubmatch(assignment); m != nil {
			return "enumerate(" + m[1] + ")"
		}
	}
	return "<enumerate object>"
}

// evalRestricted evaluates an expression with no builtins available, so
// recovered source fragments cannot reach anything with side effects.
func evalRestricted(src string) (vm.Value, error) {
	prog, err := vm.CompileExpr(src)
	if err != nil {
		return nil, err
	}
	ex := interp.NewExecution(prog, io.Discard)
	ex.Builtins = vm.BuiltinRegistry{}
	ex.MaxSteps = 10_000
	if err := ex.Run(context.Background()); err != nil {
		return nil, err
	}
	if ex.Result == nil {
		return nil, errors.New("expression produced no value")
	}
	return ex.Result, nil
}
