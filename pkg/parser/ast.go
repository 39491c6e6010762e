package parser

import (
	"slices"

	"github.com/rhino1998/smali/pkg/smali"
)

type Directive string

const (
	DirectiveClass        Directive = ".class"
	DirectiveSuper        Directive = ".super"
	DirectiveSource       Directive = ".source"
	DirectiveImplements   Directive = ".implements"
	DirectiveField        Directive = ".field"
	DirectiveMethod       Directive = ".method"
	DirectiveEnd          Directive = ".end"
	DirectiveRegisters    Directive = ".registers"
	DirectiveLocals       Directive = ".locals"
	DirectiveAnnotation   Directive = ".annotation"
	DirectivePackedSwitch Directive = ".packed-switch"
	DirectiveSparseSwitch Directive = ".sparse-switch"
	DirectiveArrayData    Directive = ".array-data"
	DirectiveCatch        Directive = ".catch"
	DirectiveCatchAll     Directive = ".catchall"
)

// Class is one parsed .smali file.
type Class struct {
	File       string
	Descriptor string
	Super      string
	Source     string
	Flags      []string
	Interfaces []string

	Fields  []Field
	Methods []Method
}

func (c *Class) Static() []Field {
	return slices.DeleteFunc(slices.Clone(c.Fields), func(f Field) bool { return !f.Static() })
}

func (c *Class) Instance() []Field {
	return slices.DeleteFunc(slices.Clone(c.Fields), Field.Static)
}

type Field struct {
	Name  string
	Type  string
	Flags []string

	// Init is the literal text after "=", if any.
	Init *string
	Line int
}

func (f Field) Static() bool {
	return slices.Contains(f.Flags, "static")
}

// Value is the initial value of the field: the parsed Init literal or the
// default for its type.
func (f Field) Value() (smali.Value, error) {
	if f.Init == nil {
		return smali.ParseType(f.Type).Zero(), nil
	}

	return smali.ParseLiteral(*f.Init)
}

type Method struct {
	Name       string
	Descriptor string
	Flags      []string
	Registers  int
	Locals     int
	Line       int

	Body []smali.Instruction

	// Labels maps a label name, without its colon, to the index of the
	// instruction that follows it.
	Labels   map[string]int
	Switches map[string]smali.SwitchTable
	Arrays   map[string][]smali.Value
	Catches  []Catch
}

func (m Method) Signature() string {
	return m.Name + m.Descriptor
}

func (m Method) Static() bool {
	return slices.Contains(m.Flags, "static")
}

// Catch covers the instructions in [Start, End). An empty Type catches
// everything.
type Catch struct {
	Type    string
	Start   string
	End     string
	Handler string
	Line    int
}
