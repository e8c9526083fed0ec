// Package scope builds a static tree of lexical scopes from source text and
// derives a line-to-scope index used to classify variables during tracing.
package scope

// Kind classifies a lexical scope. The analyzer only produces module,
// function, lambda, and list/dict comprehension scopes; the remaining kinds
// exist for the display data model and the dynamic fallback tables.
type Kind int

const (
	KindModule Kind = iota
	KindFunction
	KindClass
	KindLambda
	KindListComp
	KindDictComp
	KindSetComp
	KindGenerator
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindLambda:
		return "lambda"
	case KindListComp:
		return "list_comp"
	case KindDictComp:
		return "dict_comp"
	case KindSetComp:
		return "set_comp"
	case KindGenerator:
		return "generator"
	}
	return "unknown"
}

// BindingKind records how a name became bound in a scope.
type BindingKind int

const (
	BindAssignment BindingKind = iota
	BindParameter
)

func (b BindingKind) String() string {
	if b == BindParameter {
		return "parameter"
	}
	return "assignment"
}

type Binding struct {
	Line int
	Kind BindingKind
}

// Node is one lexical scope. The parent owns its children; children keep a
// non-owning back pointer.
type Node struct {
	Name      string
	Kind      Kind
	StartLine int // 1-based, inclusive; 0 when unknown
	EndLine   int
	Parent    *Node
	Children  []*Node
	Variables map[string]Binding
}

func NewNode(name string, kind Kind, start, end int) *Node {
	return &Node{
		Name:      name,
		Kind:      kind,
		StartLine: start,
		EndLine:   end,
		Variables: make(map[string]Binding),
	}
}

func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// Bind records a variable defined in this scope. A later binding of the
// same name overwrites the earlier one.
func (n *Node) Bind(name string, line int, kind BindingKind) {
	n.Variables[name] = Binding{Line: line, Kind: kind}
}

func (n *Node) ContainsLine(line int) bool {
	if n.StartLine == 0 || n.EndLine == 0 {
		return false
	}
	return n.StartLine <= line && line <= n.EndLine
}

// Depth is the edge count from the root.
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Path is the dotted path from the root, e.g. "module.outer.list_comp".
func (n *Node) Path() string {
	if n.Parent == nil {
		return n.Kind.String()
	}
	return n.Parent.Path() + "." + n.Name
}

// Label names this scope when a variable is bound directly in it.
func (n *Node) Label() string {
	if n.Kind == KindModule {
		return "global"
	}
	return "local (" + n.Name + ")"
}

// OuterLabel names this scope when a variable is bound in it but looked up
// from a nested scope.
func (n *Node) OuterLabel() string {
	if n.Kind == KindModule {
		return "global"
	}
	return "outer (" + n.Name + ")"
}
