package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.starlark.net/syntax"
)

type Op struct {
	Code Opcode
	Arg  Value
}

func (o Op) String() string {
	if o.Arg == nil {
		return o.Code.String()
	}
	return fmt.Sprintf("%s %v", o.Code, o.Arg)
}

// FileOpts enables the dialect extensions traced programs may use: while
// loops, top-level control flow, the set builtin, and reassignable globals.
func FileOpts() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}

// compiler accumulates every function in the program; nested defs, lambdas
// and comprehensions each get their own entry in the code table.
type compiler struct {
	funcs []*compileContext
	defs  map[string]int
}

type compileContext struct {
	comp    *compiler
	name    string
	ops     []Op
	lines   []int32
	params  []FunctionParam
	curLine int32
	loops   []loopFrame
}

type loopFrame struct {
	isFor bool
	start string // while only: label of the condition re-check
	next  string // for only: label immediately before ITER_NEXT
	end   string
}

func (c *compiler) newContext(name string) *compileContext {
	return &compileContext{comp: c, name: name, curLine: 1}
}

// addFunction reserves a slot in the code table and returns its CodeID.
// The slot is reserved before the body compiles so nested functions nest
// their own slots after it.
func (c *compiler) addFunction(cc *compileContext) int {
	c.funcs = append(c.funcs, cc)
	return len(c.funcs)
}

func (cc *compileContext) setLine(n syntax.Node) {
	start, _ := n.Span()
	if start.Line > 0 {
		cc.curLine = start.Line
	}
}

func (cc *compileContext) emit(op Opcode, arg ...Value) {
	var a Value
	if len(arg) > 0 {
		a = arg[0]
	}
	cc.ops = append(cc.ops, Op{Code: op, Arg: a})
	cc.lines = append(cc.lines, cc.curLine)
}

func (cc *compileContext) newLabel() string {
	return uuid.NewString()
}

func (cc *compileContext) emitLabel(s string) {
	cc.emit(LABEL, StrValue(s))
}

func (cc *compileContext) currentLoop() (loopFrame, bool) {
	if len(cc.loops) == 0 {
		return loopFrame{}, false
	}
	return cc.loops[len(cc.loops)-1], true
}

func CompilePath(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFile(path, f)
}

func LoadFile(name string, r io.Reader) (*Program, error) {
	synFile, err := FileOpts().Parse(name, r, 0)
	if err != nil {
		return nil, err
	}
	return Compile(synFile)
}

// CompileLiteral compiles source text given as a string.
func CompileLiteral(src string) (*Program, error) {
	synFile, err := FileOpts().Parse("<string>", src, 0)
	if err != nil {
		return nil, err
	}
	return Compile(synFile)
}

// CompileExpr compiles a single expression into a program whose main
// function evaluates and returns it.
func CompileExpr(src string) (*Program, error) {
	e, err := FileOpts().ParseExpr("<expr>", src, 0)
	if err != nil {
		return nil, err
	}
	c := &compiler{defs: make(map[string]int)}
	cc := c.newContext("<module>")
	if err := cc.expr(e); err != nil {
		return nil, err
	}
	cc.emit(RETURN)
	return c.assemble(cc)
}

func Compile(file *syntax.File) (*Program, error) {
	c := &compiler{defs: make(map[string]int)}
	cc := c.newContext("<module>")
	if err := cc.buildFromStatements(file.Stmts); err != nil {
		return nil, err
	}
	return c.assemble(cc)
}

func (c *compiler) assemble(main *compileContext) (*Program, error) {
	p := &Program{Definitions: c.defs}
	f, err := main.intoFunction()
	if err != nil {
		return nil, err
	}
	p.Main = f
	for _, cc := range c.funcs {
		f, err := cc.intoFunction()
		if err != nil {
			return nil, err
		}
		p.Code = append(p.Code, f)
	}
	return p, nil
}

func (cc *compileContext) intoFunction() (*Function, error) {
	f := &Function{Name: cc.name, Params: cc.params}
	offsetmap := make(map[string]int)
	for i, b := range cc.ops {
		if b.Code == LABEL {
			offsetmap[string(b.Arg.(StrValue))] = len(f.Bytecode)
			continue
		}
		f.Bytecode = append(f.Bytecode, b)
		f.Lines = append(f.Lines, cc.lines[i])
	}
	for i, b := range f.Bytecode {
		switch b.Code {
		case JMP, JFALSE, ITER_START, ITER_START_2:
			if v, ok := b.Arg.(StrValue); ok {
				off, found := offsetmap[string(v)]
				if !found {
					return nil, fmt.Errorf("Unresolved jump label in %s", cc.name)
				}
				b.Arg = IntValue(off)
				f.Bytecode[i] = b
			}
		}
	}
	return f, nil
}

func (cc *compileContext) buildFromStatements(stmts []syntax.Stmt) error {
	for _, s := range stmts {
		if err := cc.statement(s); err != nil {
			return err
		}
	}
	return nil
}

func (cc *compileContext) statement(s syntax.Stmt) error {
	cc.setLine(s)

	switch v := s.(type) {
	case *syntax.AssignStmt:
		return cc.assign(v.Op, v.LHS, v.RHS)
	case *syntax.BranchStmt:
		return cc.branch(v)
	case *syntax.DefStmt:
		sub := cc.comp.newContext(v.Name.Name)
		sub.setLine(s)
		var err error
		sub.params, err = getFunctionParams(v.Params)
		if err != nil {
			return err
		}
		codeID := cc.comp.addFunction(sub)
		if err := sub.buildFromStatements(v.Body); err != nil {
			return err
		}
		if len(sub.ops) == 0 || sub.ops[len(sub.ops)-1].Code != RETURN {
			sub.emit(PUSH, None)
			sub.emit(RETURN)
		}
		cc.comp.defs[v.Name.Name] = codeID
		cc.emit(PUSH, FnPtrValue(NewExecPtr(codeID)))
		cc.emit(PUSH, StrValue(v.Name.Name))
		cc.emit(SETVAL)
	case *syntax.ExprStmt:
		if _, ok := v.X.(*syntax.Literal); ok {
			// Opt: don't compile literals only to pop them.
			return nil
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(POP)
	case *syntax.ForStmt:
		forLine := cc.curLine
		idents, err := cc.pushLoopVars(v.Vars)
		if err != nil {
			return err
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		endLabel := cc.newLabel()
		nextLabel := cc.newLabel()
		cc.curLine = forLine
		if idents == 1 {
			cc.emit(ITER_START, StrValue(endLabel))
		} else {
			cc.emit(ITER_START_2, StrValue(endLabel))
		}
		cc.loops = append(cc.loops, loopFrame{isFor: true, next: nextLabel, end: endLabel})
		err = cc.buildFromStatements(v.Body)
		cc.loops = cc.loops[:len(cc.loops)-1]
		if err != nil {
			return err
		}
		// The loop head line re-fires on every iteration, like a
		// CPython line trace event.
		cc.curLine = forLine
		cc.emitLabel(nextLabel)
		cc.emit(ITER_NEXT)
		cc.emitLabel(endLabel)
	case *syntax.WhileStmt:
		whileLine := cc.curLine
		startLabel := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emitLabel(startLabel)
		if err := cc.expr(v.Cond); err != nil {
			return err
		}
		cc.curLine = whileLine
		cc.emit(JFALSE, StrValue(endLabel))
		cc.loops = append(cc.loops, loopFrame{start: startLabel, end: endLabel})
		err := cc.buildFromStatements(v.Body)
		cc.loops = cc.loops[:len(cc.loops)-1]
		if err != nil {
			return err
		}
		cc.curLine = whileLine
		cc.emit(JMP, StrValue(startLabel))
		cc.emitLabel(endLabel)
	case *syntax.IfStmt:
		if err := cc.expr(v.Cond); err != nil {
			return err
		}
		label := cc.newLabel()
		cc.emit(JFALSE, StrValue(label))
		if err := cc.buildFromStatements(v.True); err != nil {
			return err
		}
		if len(v.False) == 0 {
			cc.emitLabel(label)
			return nil
		}
		endLabel := cc.newLabel()
		cc.emit(JMP, StrValue(endLabel))
		cc.emitLabel(label)
		if err := cc.buildFromStatements(v.False); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
	case *syntax.LoadStmt:
		return errors.New("load statements are unsupported")
	case *syntax.ReturnStmt:
		if v.Result == nil {
			cc.emit(PUSH, None)
		} else {
			if err := cc.expr(v.Result); err != nil {
				return err
			}
		}
		cc.emit(RETURN)
	default:
		return fmt.Errorf("Unhandled statement type %T", s)
	}
	return nil
}

func (cc *compileContext) branch(v *syntax.BranchStmt) error {
	switch v.Token {
	case syntax.PASS:
		cc.emit(NOP)
	case syntax.BREAK:
		lf, ok := cc.currentLoop()
		if !ok {
			return errors.New("break outside of a loop")
		}
		if lf.isFor {
			cc.emit(ITER_END)
		} else {
			cc.emit(JMP, StrValue(lf.end))
		}
	case syntax.CONTINUE:
		lf, ok := cc.currentLoop()
		if !ok {
			return errors.New("continue outside of a loop")
		}
		if lf.isFor {
			cc.emit(JMP, StrValue(lf.next))
		} else {
			cc.emit(JMP, StrValue(lf.start))
		}
	default:
		return fmt.Errorf("Unhandled branch token %v", v.Token)
	}
	return nil
}

// pushLoopVars emits the loop variable name(s) for a for statement or a
// comprehension clause and reports how many there were.
func (cc *compileContext) pushLoopVars(vars syntax.Expr) (int, error) {
	switch v := unparen(vars).(type) {
	case *syntax.Ident:
		cc.emit(PUSH, StrValue(v.Name))
		return 1, nil
	case *syntax.TupleExpr:
		if len(v.List) != 2 {
			return 0, errors.New("Only one or two variables are supported in a for target")
		}
		for _, id := range v.List {
			ident, ok := unparen(id).(*syntax.Ident)
			if !ok {
				return 0, errors.New("Non-identifier in for variable")
			}
			cc.emit(PUSH, StrValue(ident.Name))
		}
		return 2, nil
	default:
		return 0, errors.New("Unsupported for variables")
	}
}

func (cc *compileContext) expr(e syntax.Expr) error {
	cc.setLine(e)

	switch v := e.(type) {
	case *syntax.BinaryExpr:
		if v.Op == syntax.AND || v.Op == syntax.OR {
			return cc.shortCircuitBinOp(v)
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		return cc.binOp(v.Op)
	case *syntax.CallExpr:
		if dotExpr, ok := v.Fn.(*syntax.DotExpr); ok {
			// Method call: obj.method(args)
			for _, a := range v.Args {
				if err := cc.callArg(a); err != nil {
					return err
				}
			}
			if err := cc.expr(dotExpr.X); err != nil {
				return err
			}
			cc.emit(PUSH, StrValue(dotExpr.Name.Name))
			cc.emit(CALL_METHOD, IntValue(len(v.Args)))
			return nil
		}
		for _, a := range v.Args {
			if err := cc.callArg(a); err != nil {
				return err
			}
		}
		if err := cc.expr(v.Fn); err != nil {
			return err
		}
		cc.emit(CALL, IntValue(len(v.Args)))
	case *syntax.Comprehension:
		return cc.comprehension(v)
	case *syntax.CondExpr:
		if err := cc.expr(v.Cond); err != nil {
			return err
		}
		label := cc.newLabel()
		cc.emit(JFALSE, StrValue(label))
		if err := cc.expr(v.True); err != nil {
			return err
		}
		endLabel := cc.newLabel()
		cc.emit(JMP, StrValue(endLabel))
		cc.emitLabel(label)
		if err := cc.expr(v.False); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
	case *syntax.DictEntry:
		if err := cc.expr(v.Key); err != nil {
			return err
		}
		if err := cc.expr(v.Value); err != nil {
			return err
		}
		cc.emit(BUILD_TUPLE, IntValue(2))
	case *syntax.DictExpr:
		for _, expr := range v.List {
			if err := cc.expr(expr); err != nil {
				return err
			}
		}
		cc.emit(BUILD_DICT, IntValue(len(v.List)))
	case *syntax.DotExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(PUSH, StrValue(v.Name.Name))
		cc.emit(GETATTR)
	case *syntax.Ident:
		switch v.Name {
		case "True":
			cc.emit(PUSH, BoolTrue)
		case "False":
			cc.emit(PUSH, BoolFalse)
		case "None":
			cc.emit(PUSH, None)
		default:
			cc.emit(PUSH, StrValue(v.Name))
			cc.emit(GETVAL)
		}
	case *syntax.IndexExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		cc.emit(GETATTR)
	case *syntax.LambdaExpr:
		sub := cc.comp.newContext("<lambda>")
		sub.setLine(e)
		var err error
		sub.params, err = getFunctionParams(v.Params)
		if err != nil {
			return err
		}
		codeID := cc.comp.addFunction(sub)
		if err := sub.expr(v.Body); err != nil {
			return err
		}
		sub.emit(RETURN)
		cc.emit(PUSH, FnPtrValue(NewExecPtr(codeID)))
	case *syntax.ListExpr:
		for _, exp := range v.List {
			if err := cc.expr(exp); err != nil {
				return err
			}
		}
		cc.emit(BUILD_LIST, IntValue(len(v.List)))
	case *syntax.Literal:
		val, err := litToValue(v.Value)
		if err != nil {
			return err
		}
		cc.emit(PUSH, val)
	case *syntax.ParenExpr:
		return cc.expr(unparen(v))
	case *syntax.SliceExpr:
		if v.Step != nil {
			return errors.New("Slice step is not supported")
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if v.Lo != nil {
			if err := cc.expr(v.Lo); err != nil {
				return err
			}
		} else {
			cc.emit(PUSH, None)
		}
		if v.Hi != nil {
			if err := cc.expr(v.Hi); err != nil {
				return err
			}
		} else {
			cc.emit(PUSH, None)
		}
		cc.emit(SLICE)
	case *syntax.TupleExpr:
		for _, exp := range v.List {
			if err := cc.expr(exp); err != nil {
				return err
			}
		}
		cc.emit(BUILD_TUPLE, IntValue(len(v.List)))
	case *syntax.UnaryExpr:
		return cc.unary(v)
	default:
		return fmt.Errorf("Unhandled expr type %T", e)
	}
	return nil
}

// comprehension compiles a list or dict comprehension into a synthetic
// zero-visible-argument function, the way CPython does, so the element runs
// in its own frame with its own loop variables. The outermost iterable is
// evaluated in the enclosing frame and passed as the hidden ".0" argument.
func (cc *compileContext) comprehension(v *syntax.Comprehension) error {
	name := "<listcomp>"
	if v.Curly {
		name = "<dictcomp>"
	}
	if len(v.Clauses) == 0 {
		return errors.New("Comprehension without clauses")
	}
	first, ok := v.Clauses[0].(*syntax.ForClause)
	if !ok {
		return errors.New("Comprehension must start with a for clause")
	}
	if err := cc.expr(first.X); err != nil {
		return err
	}
	cc.emit(PUSH, None)
	cc.emit(BUILD_ARG)

	sub := cc.comp.newContext(name)
	sub.setLine(v)
	sub.params = []FunctionParam{{Name: ".0"}}
	codeID := cc.comp.addFunction(sub)

	if name == "<dictcomp>" {
		sub.emit(BUILD_DICT, IntValue(0))
	} else {
		sub.emit(BUILD_LIST, IntValue(0))
	}
	sub.emit(PUSH, StrValue(".acc"))
	sub.emit(SETVAL)
	if err := sub.compClause(v, 0); err != nil {
		return err
	}
	sub.emit(PUSH, StrValue(".acc"))
	sub.emit(GETVAL)
	sub.emit(RETURN)

	cc.emit(PUSH, FnPtrValue(NewExecPtr(codeID)))
	cc.emit(CALL, IntValue(1))
	return nil
}

func (cc *compileContext) compClause(v *syntax.Comprehension, i int) error {
	if i == len(v.Clauses) {
		return cc.compElement(v)
	}
	switch cl := v.Clauses[i].(type) {
	case *syntax.ForClause:
		idents, err := cc.pushLoopVars(cl.Vars)
		if err != nil {
			return err
		}
		if i == 0 {
			cc.emit(PUSH, StrValue(".0"))
			cc.emit(GETVAL)
		} else {
			// Inner iterables evaluate inside the comprehension frame.
			if err := cc.expr(cl.X); err != nil {
				return err
			}
		}
		endLabel := cc.newLabel()
		nextLabel := cc.newLabel()
		if idents == 1 {
			cc.emit(ITER_START, StrValue(endLabel))
		} else {
			cc.emit(ITER_START_2, StrValue(endLabel))
		}
		cc.loops = append(cc.loops, loopFrame{isFor: true, next: nextLabel, end: endLabel})
		err = cc.compClause(v, i+1)
		cc.loops = cc.loops[:len(cc.loops)-1]
		if err != nil {
			return err
		}
		cc.emitLabel(nextLabel)
		cc.emit(ITER_NEXT)
		cc.emitLabel(endLabel)
		return nil
	case *syntax.IfClause:
		if err := cc.expr(cl.Cond); err != nil {
			return err
		}
		lf, ok := cc.currentLoop()
		if !ok {
			return errors.New("Comprehension filter outside a for clause")
		}
		cc.emit(JFALSE, StrValue(lf.next))
		return cc.compClause(v, i+1)
	default:
		return fmt.Errorf("Unhandled comprehension clause %T", cl)
	}
}

func (cc *compileContext) compElement(v *syntax.Comprehension) error {
	if entry, ok := v.Body.(*syntax.DictEntry); ok {
		if err := cc.expr(entry.Value); err != nil {
			return err
		}
		cc.emit(PUSH, StrValue(".acc"))
		cc.emit(GETVAL)
		if err := cc.expr(entry.Key); err != nil {
			return err
		}
		cc.emit(SETATTR)
		return nil
	}
	if err := cc.expr(v.Body); err != nil {
		return err
	}
	cc.emit(PUSH, None)
	cc.emit(BUILD_ARG)
	cc.emit(PUSH, StrValue(".acc"))
	cc.emit(GETVAL)
	cc.emit(PUSH, StrValue("append"))
	cc.emit(CALL_METHOD, IntValue(1))
	cc.emit(POP)
	return nil
}

// shortCircuitBinOp handles AND and OR operators with short-circuit evaluation
func (cc *compileContext) shortCircuitBinOp(e *syntax.BinaryExpr) error {
	if e.Op == syntax.AND {
		// If the left side is false, skip the right side and keep it.
		if err := cc.expr(e.X); err != nil {
			return err
		}
		endLabel := cc.newLabel()
		cc.emit(DUP)
		cc.emit(JFALSE, StrValue(endLabel))
		cc.emit(POP)
		if err := cc.expr(e.Y); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
		return nil
	}
	if e.Op == syntax.OR {
		// If the left side is true, skip the right side and keep it.
		if err := cc.expr(e.X); err != nil {
			return err
		}
		elseLabel := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emit(DUP)
		cc.emit(JFALSE, StrValue(elseLabel))
		cc.emit(JMP, StrValue(endLabel))
		cc.emitLabel(elseLabel)
		cc.emit(POP)
		if err := cc.expr(e.Y); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
		return nil
	}
	return fmt.Errorf("shortCircuitBinOp: unexpected op %v", e.Op)
}

func (cc *compileContext) binOp(op syntax.Token) error {
	switch op {
	case syntax.PLUS:
		cc.emit(ADD)
	case syntax.MINUS:
		cc.emit(SUBTRACT)
	case syntax.STAR:
		cc.emit(MULTIPLY)
	case syntax.SLASH:
		cc.emit(DIVIDE)
	case syntax.SLASHSLASH:
		cc.emit(FLOOR_DIVIDE)
	case syntax.PERCENT:
		cc.emit(MODULO)
	case syntax.LT:
		cc.emit(LT)
	case syntax.GT:
		cc.emit(LTE)
		cc.emit(NOT)
	case syntax.GE:
		cc.emit(LT)
		cc.emit(NOT)
	case syntax.LE:
		cc.emit(LTE)
	case syntax.EQL:
		cc.emit(EQ)
	case syntax.NEQ:
		cc.emit(EQ)
		cc.emit(NOT)
	case syntax.IN:
		cc.emit(IN)
	case syntax.NOT_IN:
		cc.emit(IN)
		cc.emit(NOT)
	default:
		return fmt.Errorf("compileContext: Unhandled binary operation %#v", op)
	}
	return nil
}

func (cc *compileContext) unary(e *syntax.UnaryExpr) error {
	if err := cc.expr(e.X); err != nil {
		return err
	}
	switch e.Op {
	case syntax.NOT:
		cc.emit(NOT)
	case syntax.MINUS:
		// Unary minus: 0 - x
		cc.emit(PUSH, IntValue(0))
		cc.emit(SWAP)
		cc.emit(SUBTRACT)
	case syntax.PLUS:
		// Unary plus is a no-op
	default:
		return fmt.Errorf("compileContext: Unhandled unary operation %#v", e.Op.String())
	}
	return nil
}

func (cc *compileContext) callArg(arg syntax.Expr) error {
	switch v := arg.(type) {
	case *syntax.BinaryExpr:
		if v.Op == syntax.EQ {
			// Keyword argument: name=value
			g, ok := v.X.(*syntax.Ident)
			if !ok {
				return fmt.Errorf("Only identifiers are allowed on the left-hand side of a function call argument")
			}
			if err := cc.expr(v.Y); err != nil {
				return err
			}
			cc.emit(PUSH, StrValue(g.Name))
			cc.emit(BUILD_ARG)
			return nil
		}
	case *syntax.UnaryExpr:
		if v.Op == syntax.STAR || v.Op == syntax.STARSTAR {
			return fmt.Errorf("Splats are currently unsupported")
		}
	}
	if err := cc.expr(arg); err != nil {
		return err
	}
	cc.emit(PUSH, None)
	cc.emit(BUILD_ARG)
	return nil
}

func (cc *compileContext) assign(op syntax.Token, lhs syntax.Expr, rhs syntax.Expr) error {
	if err := cc.expr(rhs); err != nil {
		return err
	}
	if op != syntax.EQ {
		if err := cc.assignSelfReassign(op, lhs); err != nil {
			return err
		}
	}
	return cc.assignTarget(lhs)
}

// assignTarget stores the value on top of the stack into the target,
// recursively unpacking tuple and list patterns.
func (cc *compileContext) assignTarget(lhs syntax.Expr) error {
	switch v := unparen(lhs).(type) {
	case *syntax.Ident:
		if v.Name == "True" || v.Name == "False" || v.Name == "None" {
			return fmt.Errorf("Reassigning `%s` is not allowed", v.Name)
		}
		cc.emit(PUSH, StrValue(v.Name))
		cc.emit(SETVAL)
	case *syntax.TupleExpr:
		return cc.unpackTargets(v.List)
	case *syntax.ListExpr:
		return cc.unpackTargets(v.List)
	case *syntax.IndexExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		cc.emit(SETATTR)
	case *syntax.DotExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(PUSH, StrValue(v.Name.Name))
		cc.emit(SETATTR)
	default:
		return fmt.Errorf("assign: Unhandled LHS expr type %T", lhs)
	}
	return nil
}

func (cc *compileContext) unpackTargets(targets []syntax.Expr) error {
	cc.emit(UNPACK, IntValue(len(targets)))
	// UNPACK leaves the last element on top, so targets assign in reverse.
	for i := len(targets) - 1; i >= 0; i-- {
		if err := cc.assignTarget(targets[i]); err != nil {
			return err
		}
	}
	return nil
}

func (cc *compileContext) assignSelfReassign(op syntax.Token, lhs syntax.Expr) error {
	if _, ok := unparen(lhs).(*syntax.Ident); !ok {
		return fmt.Errorf("Augmented assignment requires a simple name on the left")
	}
	if err := cc.expr(lhs); err != nil {
		return err
	}
	// Stack is [rhs, lhs]; swap so the operator sees lhs OP rhs.
	cc.emit(SWAP)
	switch op {
	case syntax.PLUS_EQ:
		cc.emit(ADD)
	case syntax.MINUS_EQ:
		cc.emit(SUBTRACT)
	case syntax.STAR_EQ:
		cc.emit(MULTIPLY)
	case syntax.SLASH_EQ:
		cc.emit(DIVIDE)
	case syntax.SLASHSLASH_EQ:
		cc.emit(FLOOR_DIVIDE)
	case syntax.PERCENT_EQ:
		cc.emit(MODULO)
	default:
		return fmt.Errorf("%#v assignments unimplemented", op)
	}
	return nil
}

func getFunctionParams(e []syntax.Expr) ([]FunctionParam, error) {
	var out []FunctionParam
	for _, x := range e {
		switch v := x.(type) {
		case *syntax.Ident:
			out = append(out, FunctionParam{Name: v.Name})
		case *syntax.BinaryExpr:
			if v.Op != syntax.EQ {
				return nil, fmt.Errorf("Only assignments are allowed within a function parameter")
			}
			arg, ok := v.X.(*syntax.Ident)
			if !ok {
				return nil, fmt.Errorf("Function parameter names must be identifiers")
			}
			y, ok := v.Y.(*syntax.Literal)
			if !ok {
				return nil, fmt.Errorf("Only literals are supported as default arguments to functions")
			}
			val, err := litToValue(y.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, FunctionParam{Name: arg.Name, Default: val})
		default:
			return nil, fmt.Errorf("Unhandled function param expr type %T", x)
		}
	}
	return out, nil
}

func unparen(e syntax.Expr) syntax.Expr {
	if p, ok := e.(*syntax.ParenExpr); ok {
		return unparen(p.X)
	}
	return e
}

func litToValue(l any) (Value, error) {
	switch t := l.(type) {
	case int64:
		return IntValue(int(t)), nil
	case string:
		return StrValue(t), nil
	case float64:
		return FloatValue(t), nil
	}
	if s, ok := l.(fmt.Stringer); ok && strings.ContainsAny(s.String(), "0123456789") {
		return nil, fmt.Errorf("Integer literal is too large")
	}
	return nil, fmt.Errorf("litToValue: Unsupported literal value type %T", l)
}
