package vm

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Program struct {
	Definitions map[string]int
	Code        []*Function
	Main        *Function
}

func (p *Program) DebugPrint() {
	fmt.Printf("Defs: %#v\n", p.Definitions)
	fmt.Println("*** Main")
	p.Main.DebugPrint()
	for i, f := range p.Code {
		fmt.Printf("*** %d (%s):\n", i, f.Name)
		f.DebugPrint()
	}
}

var ErrEndOfCode = errors.New("End of code block")

func (p *Program) FunctionAt(ptr ExecPtr) *Function {
	if ptr.CodeID() == 0 {
		return p.Main
	}
	return p.Code[ptr.CodeID()-1]
}

func (p *Program) GetInstruction(ptr ExecPtr) (Op, error) {
	f := p.FunctionAt(ptr)
	if len(f.Bytecode) <= ptr.Offset() {
		return Op{}, ErrEndOfCode
	}
	return f.Bytecode[ptr.Offset()], nil
}

// Line reports the 1-based source line of the instruction at ptr, or false
// when ptr is past the end of its function.
func (p *Program) Line(ptr ExecPtr) (int, bool) {
	f := p.FunctionAt(ptr)
	if ptr.Offset() >= len(f.Lines) {
		return 0, false
	}
	return int(f.Lines[ptr.Offset()]), true
}

func (p *Program) Resolve(name string) (ExecPtr, bool) {
	if v, ok := p.Definitions[name]; ok {
		return NewExecPtr(v), true
	}
	return 0, false
}

type Function struct {
	Name     string
	Bytecode []Op
	Lines    []int32 // parallel to Bytecode; 1-based source line per op
	Params   []FunctionParam
}

func (f *Function) DebugPrint() {
	fmt.Printf("Params: %#v\n", f.Params)
	for i, b := range f.Bytecode {
		fmt.Printf("  %03d: L%03d %s\n", i, f.Lines[i], b)
	}
}

type ExecPtr uint64

func (ptr ExecPtr) MarshalJSON() ([]byte, error) {
	out := make(map[string]int)
	out["offset"] = ptr.Offset()
	out["code_id"] = ptr.CodeID()
	return json.Marshal(out)
}

func (ptr ExecPtr) Offset() int {
	return int(0xFFFFFFFF & ptr)
}

func (ptr ExecPtr) CodeID() int {
	return int(ptr >> 32)
}

func (ptr ExecPtr) Inc() ExecPtr {
	return ptr + 1
}

func (ptr ExecPtr) SetOffset(off int) ExecPtr {
	return ExecPtr(uint64(ptr.CodeID())<<32 | uint64(0xFFFFFFFF&off))
}

func (ptr ExecPtr) String() string {
	return fmt.Sprintf("%d:%d", ptr.CodeID(), ptr.Offset())
}

func NewExecPtr(block int) ExecPtr {
	return ExecPtr(uint64(block) << 32)
}

type FunctionParam struct {
	Name    string
	Default Value
}
