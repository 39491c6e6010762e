package smali

import (
	"context"
	"strings"
)

type SwitchTable interface {
	switchTable()
}

// PackedSwitch branches to Targets[value-First].
type PackedSwitch struct {
	First   int64
	Targets []string
}

func (PackedSwitch) switchTable() {}

// SparseSwitch branches to the target paired with the first key equal to the
// value. Keys and Targets are parallel.
type SparseSwitch struct {
	Keys    []Value
	Targets []string
}

func (SparseSwitch) switchTable() {}

// Frame is the state of one method execution. It is owned by the caller; opcode
// handlers only mutate it.
type Frame struct {
	ctx     context.Context
	Machine Machine

	Registers map[string]Value

	// Pos indexes the instruction about to run. Label is set whenever a handler
	// jumps, which tells the loop not to advance sequentially.
	Pos    int
	Label  string
	Labels map[string]int

	SwitchData map[string]SwitchTable
	ArrayData  map[string][]Value

	ReturnValue  Value
	MethodReturn Value
	Error        Value
	Finished     bool
}

func NewFrame(ctx context.Context, m Machine) *Frame {
	return &Frame{
		ctx:        ctx,
		Machine:    m,
		Registers:  make(map[string]Value),
		Labels:     make(map[string]int),
		SwitchData: make(map[string]SwitchTable),
		ArrayData:  make(map[string][]Value),
	}
}

func (f *Frame) Context() context.Context {
	if f.ctx == nil {
		return context.Background()
	}
	return f.ctx
}

func (f *Frame) Get(register string) (Value, error) {
	val, ok := f.Registers[register]
	if !ok {
		return Value{}, Faultf(NoSuchRegister, "register %s has not been assigned", register)
	}

	return val, nil
}

func (f *Frame) Set(register string, val Value) {
	f.Registers[register] = val
}

// LabelName strips the leading colon labels carry in operand position.
func LabelName(label string) string {
	return strings.TrimPrefix(label, ":")
}

// Jump moves the frame to label.
func (f *Frame) Jump(label string) error {
	name := LabelName(label)
	pos, ok := f.Labels[name]
	if !ok {
		return Faultf(NoSuchLabel, "%s", name)
	}

	f.Label = name
	f.Pos = pos
	return nil
}

func (f *Frame) Switch(label string) (SwitchTable, error) {
	name := LabelName(label)
	table, ok := f.SwitchData[name]
	if !ok {
		return nil, Faultf(NoSuchLabel, "no switch data at %s", name)
	}

	return table, nil
}

func (f *Frame) Data(label string) ([]Value, error) {
	name := LabelName(label)
	data, ok := f.ArrayData[name]
	if !ok {
		return nil, Faultf(NoSuchLabel, "no array data at %s", name)
	}

	return data, nil
}
