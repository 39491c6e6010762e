package vm

import (
	"github.com/rhino1998/smali/pkg/smali"
)

// Step describes one instruction about to run.
type Step struct {
	Seq      int64
	Depth    int
	Class    string
	Method   string
	Pos      int
	Line     int
	Mnemonic string
	Operands []string
}

type Tracer interface {
	Step(step Step) error
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(step Step) error

func (f TracerFunc) Step(step Step) error {
	return f(step)
}

func newStep(seq int64, depth int, m *Method, pos int, inst smali.Instruction) Step {
	return Step{
		Seq:      seq,
		Depth:    depth,
		Class:    m.class.desc,
		Method:   m.Signature(),
		Pos:      pos,
		Line:     inst.Line,
		Mnemonic: inst.Mnemonic,
		Operands: inst.Operands,
	}
}
