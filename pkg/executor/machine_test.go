package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhino1998/smali/pkg/executor"
	"github.com/rhino1998/smali/pkg/parser"
	"github.com/rhino1998/smali/pkg/smali"
)

type testClass struct {
	desc    string
	super   string
	methods map[string]*testMethod
	statics map[string]*smali.Cell
	fields  map[string]smali.Value
}

func (c *testClass) Descriptor() string { return c.desc }
func (c *testClass) Super() string      { return c.super }

func (c *testClass) Method(sig string) (smali.Method, bool) {
	m, ok := c.methods[sig]
	return m, ok
}

func (c *testClass) Field(name string) (*smali.Cell, bool) {
	cell, ok := c.statics[name]
	return cell, ok
}

type testMethod struct {
	class  *testClass
	sig    string
	static bool
	body   func(receiver smali.Value, args []smali.Value) (smali.Value, error)
}

func (m *testMethod) Class() smali.Class { return m.class }
func (m *testMethod) Signature() string  { return m.sig }
func (m *testMethod) Static() bool       { return m.static }

type testInstance struct {
	class  *testClass
	fields map[string]smali.Value
}

func (i *testInstance) Class() smali.Class { return i.class }

func (i *testInstance) Get(name string) (smali.Value, bool) {
	val, ok := i.fields[name]
	return val, ok
}

func (i *testInstance) Set(name string, val smali.Value) {
	i.fields[name] = val
}

func (i *testInstance) HashCode() int32 { return 7 }

// testMachine records every call it is asked to make.
type testMachine struct {
	classes map[string]*testClass
	calls   []string
}

func newMachine(classes ...*testClass) *testMachine {
	m := &testMachine{classes: make(map[string]*testClass)}
	for _, class := range classes {
		for _, method := range class.methods {
			method.class = class
		}
		m.classes[class.desc] = class
	}
	return m
}

func (m *testMachine) Class(desc string) (smali.Class, error) {
	class, ok := m.classes[desc]
	if !ok {
		return nil, smali.Faultf(smali.NoSuchClass, "class %s not found", desc)
	}
	return class, nil
}

func (m *testMachine) Instantiate(class smali.Class) (smali.Instance, error) {
	c := class.(*testClass)
	inst := &testInstance{class: c, fields: make(map[string]smali.Value)}
	for name, val := range c.fields {
		inst.fields[name] = val
	}
	return inst, nil
}

func (m *testMachine) Call(ctx context.Context, target smali.Method, receiver smali.Value, args ...smali.Value) (smali.Value, error) {
	method := target.(*testMethod)
	m.calls = append(m.calls, method.class.desc+"->"+method.sig)
	return method.body(receiver, args)
}

func newFrame(m smali.Machine) *smali.Frame {
	return smali.NewFrame(context.Background(), m)
}

// exec decodes and dispatches each line against f in order.
func exec(f *smali.Frame, lines ...string) error {
	for _, line := range lines {
		inst, err := parser.ParseInstruction(line)
		if err != nil {
			return err
		}

		err = executor.Dispatch(f, inst.Mnemonic, inst.Operands)
		if err != nil {
			return err
		}
	}

	return nil
}

func mustExec(t *testing.T, f *smali.Frame, lines ...string) {
	t.Helper()
	require.NoError(t, exec(f, lines...))
}

func reg(t *testing.T, f *smali.Frame, name string) smali.Value {
	t.Helper()
	val, err := f.Get(name)
	require.NoError(t, err)
	return val
}
