package debug

import (
	"github.com/stepwise-dev/stepwise/interp"
	"github.com/stepwise-dev/stepwise/scope"
	"github.com/stepwise-dev/stepwise/vm"
)

// contextMap turns synthetic frame names into human labels for the dynamic
// fallback path.
var contextMap = map[string]string{
	"<module>":   "module",
	"<listcomp>": "list comprehension",
	"<dictcomp>": "dict comprehension",
	"<setcomp>":  "set comprehension",
	"<genexpr>":  "generator",
	"<lambda>":   "lambda",
}

// classifyScope labels one variable's scope. The static scope tree is
// consulted first; when it has no answer (degraded parse, synthetic frame)
// the frame's own function name decides.
func classifyScope(name string, isModuleFrame bool, frame *interp.StackFrame, cur *scope.Node) string {
	if isModuleFrame {
		return "global"
	}
	if label, ok := scopeFromTree(name, cur); ok {
		return label
	}
	return scopeFromFrame(name, frame)
}

func scopeFromTree(name string, cur *scope.Node) (string, bool) {
	if cur == nil {
		return "", false
	}
	if _, ok := cur.Variables[name]; ok {
		return cur.Label(), true
	}
	for p := cur.Parent; p != nil; p = p.Parent {
		if _, ok := p.Variables[name]; ok {
			return p.OuterLabel(), true
		}
	}
	return "", false
}

func scopeFromFrame(name string, frame *interp.StackFrame) string {
	if _, ok := frame.Variables[name]; ok {
		context, known := contextMap[frame.Fn.Name]
		if !known {
			context = frame.Fn.Name
		}
		return "local (" + context + ")"
	}
	return "global"
}

// typeLabel renders a value's type name, marking consumable iterators.
func typeLabel(v vm.Value) string {
	name := vm.TypeName(v)
	if vm.IsIter(v) {
		return name + " (iter)"
	}
	return name
}
