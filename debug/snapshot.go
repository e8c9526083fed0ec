// Package debug runs a program once under per-line instrumentation and
// serves the captured snapshots through a step/reset/state cursor.
package debug

// Snapshot is one captured instant of program state. Pre-execution
// snapshots describe the moment just before their line runs; the single
// terminal snapshot describes the state after the whole program finished.
type Snapshot struct {
	Line         int               `msgpack:"line" json:"line"` // 0-based source line index
	Locals       map[string]string `msgpack:"locals" json:"locals"`
	ScopeInfo    map[string]string `msgpack:"scope_info" json:"scope_info"`
	TypeInfo     map[string]string `msgpack:"type_info" json:"type_info"`
	Output       string            `msgpack:"output" json:"output"`
	PreExecution bool              `msgpack:"pre_execution" json:"pre_execution"`
	FinalState   bool              `msgpack:"final_state" json:"final_state"`
}

// State is the displayable record a UI reads after each step.
type State struct {
	CurrentLine int               `json:"current_line"`
	Locals      map[string]string `json:"locals"`
	ScopeInfo   map[string]string `json:"scope_info"`
	TypeInfo    map[string]string `json:"type_info"`
	OutputLines []string          `json:"output_lines"`
	Lines       []string          `json:"lines"`
	Finished    bool              `json:"finished"`
}
