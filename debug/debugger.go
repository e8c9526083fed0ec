package debug

import (
	"bytes"
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stepwise-dev/stepwise/interp"
	"github.com/stepwise-dev/stepwise/scope"
	"github.com/stepwise-dev/stepwise/vm"
)

// Debugger precomputes the whole execution trace at construction and then
// serves it through a forward-only cursor. Compilation failure leaves the
// session inert: finished, zero snapshots, no error escapes.
type Debugger struct {
	code     string
	varnames map[string]bool
	lines    []string

	analyzer  *scope.Analyzer
	formatter *Formatter
	prog      *vm.Program

	trace    []Snapshot
	stepIdx  int
	finished bool

	currentLine int
	locals      map[string]string
	scopeInfo   map[string]string
	typeInfo    map[string]string
	outputLines []string
}

// New builds a debugger for code, surfacing only the whitelisted variable
// names. The trace is computed eagerly, so construction does all the work.
func New(code string, varnames []string) *Debugger {
	d := &Debugger{
		code:        code,
		varnames:    make(map[string]bool, len(varnames)),
		currentLine: -1,
	}
	for _, name := range varnames {
		d.varnames[name] = true
	}
	for _, line := range strings.Split(code, "\n") {
		d.lines = append(d.lines, strings.TrimRight(line, " \t\r"))
	}

	d.analyzer = scope.Analyze(code)
	d.formatter = NewFormatter(scope.Assignments(code))

	prog, err := vm.CompileLiteral(code)
	if err != nil {
		log.Debug().Err(err).Msg("compilation failed, session is inert")
		d.finished = true
		return d
	}
	d.prog = prog
	d.buildTrace()
	return d
}

// Restore rebuilds a debugger from a previously computed snapshot sequence,
// skipping both executions. Step and Reset replay the stored trace; an empty
// sequence yields the same inert state a failed compilation does.
func Restore(code string, snapshots []Snapshot) *Debugger {
	d := &Debugger{
		code:        code,
		currentLine: -1,
		trace:       snapshots,
	}
	for _, line := range strings.Split(code, "\n") {
		d.lines = append(d.lines, strings.TrimRight(line, " \t\r"))
	}
	if len(snapshots) == 0 {
		d.finished = true
	}
	return d
}

func (d *Debugger) buildTrace() {
	d.trace = nil
	var out bytes.Buffer
	ex := interp.NewExecution(d.prog, &out)
	prevLine := -1
	ex.Hook = func(ex *interp.Execution, line int) error {
		lineIdx := line - 1
		if lineIdx < 0 || lineIdx >= len(d.lines) {
			return nil
		}
		// Consecutive re-announcements of a line collapse into one
		// snapshot; loop revisits are separated by body lines and
		// still capture.
		if lineIdx == prevLine || strings.TrimSpace(d.lines[lineIdx]) == "" {
			return nil
		}
		d.trace = append(d.trace, d.capture(ex, lineIdx, out.String()))
		prevLine = lineIdx
		return nil
	}
	if err := ex.Run(context.Background()); err != nil {
		// Snapshots captured before the failure stay valid.
		log.Debug().Err(err).Msg("traced execution stopped early")
	}
	if len(d.trace) > 0 {
		d.appendTerminal()
	}
}

// capture builds one pre-execution snapshot from the live frame.
func (d *Debugger) capture(ex *interp.Execution, lineIdx int, output string) Snapshot {
	frame := ex.Frames.Top()
	isModuleFrame := len(ex.Frames) == 1
	curScope, _ := d.analyzer.ScopeAt(lineIdx + 1)

	merged := make(map[string]vm.Value, len(ex.Globals)+len(frame.Variables))
	for k, v := range ex.Globals {
		merged[k] = v
	}
	for k, v := range frame.Variables {
		merged[k] = v
	}

	snap := Snapshot{
		Line:         lineIdx,
		Locals:       make(map[string]string),
		ScopeInfo:    make(map[string]string),
		TypeInfo:     make(map[string]string),
		Output:       output,
		PreExecution: true,
	}
	for k, v := range merged {
		if !d.varnames[k] || strings.HasPrefix(k, "_") {
			continue
		}
		snap.Locals[k] = d.formatter.Format(k, v)
		snap.TypeInfo[k] = typeLabel(v)
		snap.ScopeInfo[k] = classifyScope(k, isModuleFrame, frame, curScope)
	}
	return snap
}

// appendTerminal re-executes the program without instrumentation and
// appends the clean final state. A failing re-execution just omits it.
func (d *Debugger) appendTerminal() {
	var out bytes.Buffer
	ex := interp.NewExecution(d.prog, &out)
	if err := ex.Run(context.Background()); err != nil {
		log.Debug().Err(err).Msg("terminal re-execution failed, omitting final snapshot")
		return
	}
	snap := Snapshot{
		Line:       len(d.lines) - 1,
		Locals:     make(map[string]string),
		ScopeInfo:  make(map[string]string),
		TypeInfo:   make(map[string]string),
		Output:     out.String(),
		FinalState: true,
	}
	for k, v := range ex.Globals {
		if !d.varnames[k] || strings.HasPrefix(k, "_") {
			continue
		}
		snap.Locals[k] = d.formatter.Format(k, v)
		snap.TypeInfo[k] = typeLabel(v)
		snap.ScopeInfo[k] = "global"
	}
	d.trace = append(d.trace, snap)
}

// Step publishes the snapshot at the cursor and advances. Past the end it
// only pins the finished flag.
func (d *Debugger) Step() {
	if d.finished || d.stepIdx >= len(d.trace) {
		d.finished = true
		return
	}
	cur := d.trace[d.stepIdx]
	d.currentLine = cur.Line
	d.locals = cur.Locals
	d.scopeInfo = cur.ScopeInfo
	d.typeInfo = cur.TypeInfo
	d.outputLines = splitLines(cur.Output)
	d.stepIdx++
	if d.stepIdx >= len(d.trace) || cur.FinalState {
		d.finished = true
	}
}

// Reset rewinds the cursor. A debugger that executed its own trace rebuilds
// it from scratch; a restored one just replays the stored snapshots.
func (d *Debugger) Reset() {
	d.currentLine = -1
	d.locals = nil
	d.scopeInfo = nil
	d.typeInfo = nil
	d.outputLines = nil
	d.stepIdx = 0
	if d.prog != nil {
		d.finished = false
		d.buildTrace()
		return
	}
	if len(d.trace) > 0 {
		d.finished = false
		return
	}
	d.finished = true
}

// State is a pure read of the current displayable state.
func (d *Debugger) State() State {
	return State{
		CurrentLine: d.currentLine,
		Locals:      d.locals,
		ScopeInfo:   d.scopeInfo,
		TypeInfo:    d.typeInfo,
		OutputLines: d.outputLines,
		Lines:       d.lines,
		Finished:    d.finished,
	}
}

// Trace exposes the precomputed snapshot sequence.
func (d *Debugger) Trace() []Snapshot { return d.trace }

func (d *Debugger) Finished() bool { return d.finished }

// Lines returns the source split into right-trimmed lines.
func (d *Debugger) Lines() []string { return d.lines }

// splitLines behaves like Python's splitlines: no trailing empty element
// for output ending in a newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
