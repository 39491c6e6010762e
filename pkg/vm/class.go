package vm

import (
	"encoding/binary"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/rhino1998/smali/pkg/parser"
	"github.com/rhino1998/smali/pkg/smali"
)

// Class is a loaded class. Classes outside the program (java.lang and
// friends) are synthesized on first reference with no methods or fields.
type Class struct {
	vm    *VM
	desc  string
	super string
	file  string

	methods map[string]*Method
	statics map[string]*smali.Cell
	fields  []parser.Field
}

func (c *Class) Descriptor() string {
	return c.desc
}

func (c *Class) Super() string {
	return c.super
}

func (c *Class) String() string {
	return smali.ParseType(c.desc).JavaName()
}

// Method looks sig up on c and then on each loaded superclass.
func (c *Class) Method(sig string) (smali.Method, bool) {
	for class := range c.hierarchy() {
		if m, ok := class.methods[sig]; ok {
			return m, true
		}
	}

	return nil, false
}

// Field looks up a static field on c and then on each loaded superclass.
func (c *Class) Field(name string) (*smali.Cell, bool) {
	for class := range c.hierarchy() {
		if cell, ok := class.statics[name]; ok {
			return cell, true
		}
	}

	return nil, false
}

func (c *Class) hierarchy() iter.Seq[*Class] {
	return func(yield func(*Class) bool) {
		class := c
		for depth := 0; class != nil && depth < maxHierarchy; depth++ {
			if !yield(class) {
				return
			}

			class = class.vm.classes[class.super]
		}
	}
}

// Methods returns the signatures declared directly on c, sorted.
func (c *Class) Methods() []string {
	return slices.Sorted(maps.Keys(c.methods))
}

const maxHierarchy = 256

type catch struct {
	typ     string
	start   int
	end     int
	handler string
}

type Method struct {
	class      *Class
	name       string
	descriptor string
	static     bool

	params []smali.Type
	ret    smali.Type

	body     []smali.Instruction
	labels   map[string]int
	switches map[string]smali.SwitchTable
	arrays   map[string][]smali.Value
	catches  []catch
}

func newMethod(class *Class, def parser.Method) (*Method, error) {
	params, ret, err := smali.ParseMethodDescriptor(def.Descriptor)
	if err != nil {
		return nil, err
	}

	m := &Method{
		class:      class,
		name:       def.Name,
		descriptor: def.Descriptor,
		static:     def.Static(),
		params:     params,
		ret:        ret,
		body:       def.Body,
		labels:     def.Labels,
		switches:   def.Switches,
		arrays:     def.Arrays,
	}

	for _, c := range def.Catches {
		start, ok := def.Labels[c.Start]
		if !ok {
			return nil, smali.Faultf(smali.NoSuchLabel, "%s", c.Start)
		}

		end, ok := def.Labels[c.End]
		if !ok {
			return nil, smali.Faultf(smali.NoSuchLabel, "%s", c.End)
		}

		if _, ok := def.Labels[c.Handler]; !ok {
			return nil, smali.Faultf(smali.NoSuchLabel, "%s", c.Handler)
		}

		m.catches = append(m.catches, catch{
			typ:     c.Type,
			start:   start,
			end:     end,
			handler: c.Handler,
		})
	}

	return m, nil
}

func (m *Method) Class() smali.Class {
	return m.class
}

func (m *Method) Signature() string {
	return m.name + m.descriptor
}

func (m *Method) Static() bool {
	return m.static
}

func (m *Method) String() string {
	return m.class.desc + "->" + m.Signature()
}

// Instance is a heap object. Identity is a random UUID.
type Instance struct {
	id     uuid.UUID
	class  *Class
	fields map[string]smali.Value
}

func (i *Instance) ID() uuid.UUID {
	return i.id
}

func (i *Instance) Class() smali.Class {
	return i.class
}

func (i *Instance) Get(name string) (smali.Value, bool) {
	val, ok := i.fields[name]
	return val, ok
}

func (i *Instance) Set(name string, val smali.Value) {
	i.fields[name] = val
}

func (i *Instance) HashCode() int32 {
	return int32(binary.BigEndian.Uint32(i.id[:4]))
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s@%x", i.class, uint32(i.HashCode()))
}
