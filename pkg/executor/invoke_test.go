package executor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhino1998/smali/pkg/executor"
	"github.com/rhino1998/smali/pkg/smali"
)

func constant(val smali.Value) func(smali.Value, []smali.Value) (smali.Value, error) {
	return func(smali.Value, []smali.Value) (smali.Value, error) {
		return val, nil
	}
}

func sum(_ smali.Value, args []smali.Value) (smali.Value, error) {
	a, _ := args[0].AsInt()
	b, _ := args[1].AsInt()
	return smali.Int(a + b), nil
}

func hierarchy() *testMachine {
	return newMachine(
		&testClass{
			desc:  "LParent;",
			super: executor.ObjectClass,
			methods: map[string]*testMethod{
				"name()Ljava/lang/String;": {sig: "name()Ljava/lang/String;", body: constant(smali.String("parent"))},
			},
			fields: map[string]smali.Value{"age": smali.Int(0)},
		},
		&testClass{
			desc:  "LChild;",
			super: "LParent;",
			methods: map[string]*testMethod{
				"name()Ljava/lang/String;": {sig: "name()Ljava/lang/String;", body: constant(smali.String("child"))},
				"sum(II)I":  {sig: "sum(II)I", static: true, body: sum},
				"wide(JI)J": {sig: "wide(JI)J", static: true, body: sum},
			},
			statics: map[string]*smali.Cell{"count": {Value: smali.Int(5)}},
			fields:  map[string]smali.Value{"age": smali.Int(0), "name": smali.Null()},
		},
	)
}

func child(t *testing.T, m *testMachine) smali.Value {
	t.Helper()

	class, err := m.Class("LChild;")
	require.NoError(t, err)

	inst, err := m.Instantiate(class)
	require.NoError(t, err)

	return smali.ObjectRef(inst)
}

func TestInvoke_Static(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	mustExec(t, f,
		"const/4 v0, 0x2",
		"const/4 v1, 0x3",
		"invoke-static {v0, v1}, LChild;->sum(II)I",
		"move-result v2",
	)

	r.Equal(smali.Int(5), reg(t, f, "v2"))
	r.Equal([]string{"LChild;->sum(II)I"}, m.calls)
}

func TestInvoke_Range(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	mustExec(t, f,
		"const/4 v4, 0x2",
		"const/4 v5, 0x3",
		"invoke-static/range {v4 .. v5}, LChild;->sum(II)I",
		"move-result v0",
	)

	r.Equal(smali.Int(5), reg(t, f, "v0"))
}

func TestInvoke_WidePairs(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)

	// The high half of a wide pair is never read, so v1 and v5 stay unassigned.
	mustExec(t, f,
		"const-wide v0, 0x28L",
		"const/4 v2, 0x2",
		"invoke-static {v0, v1, v2}, LChild;->wide(JI)J",
		"move-result-wide v6",
		"const-wide v4, 0x1L",
		"invoke-static/range {v4 .. v6}, LChild;->wide(JI)J",
		"move-result-wide v8",
	)

	r.Equal(smali.Int(42), reg(t, f, "v6"))
	r.Equal(smali.Int(43), reg(t, f, "v8"))
}

func TestInvoke_SuperResolution(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	f.Set("v0", child(t, m))

	// The owner is the receiver's direct superclass, so the call resolves there.
	mustExec(t, f,
		"invoke-super {v0}, LParent;->name()Ljava/lang/String;",
		"move-result-object v1",
		"invoke-virtual {v0}, LChild;->name()Ljava/lang/String;",
		"move-result-object v2",
	)

	r.Equal(smali.String("parent"), reg(t, f, "v1"))
	r.Equal(smali.String("child"), reg(t, f, "v2"))
	r.Equal([]string{"LParent;->name()Ljava/lang/String;", "LChild;->name()Ljava/lang/String;"}, m.calls)
}

func TestInvoke_Faults(t *testing.T) {
	tests := map[string]struct {
		inst string
		err  error
	}{
		"missing method":  {"invoke-virtual {v0}, LChild;->missing()V", smali.ErrNoSuchMethod},
		"missing class":   {"invoke-static {}, LNowhere;->run()V", smali.ErrNoSuchClass},
		"missing native":  {"invoke-virtual {v0}, Ljava/lang/Object;->wait()V", smali.ErrNoSuchMethod},
		"not an object":   {"invoke-virtual {v1}, LChild;->name()Ljava/lang/String;", smali.ErrClassCast},
		"no receiver":     {"invoke-direct {}, LChild;->name()Ljava/lang/String;", smali.ErrBadOperands},
		"bad method ref":  {"invoke-static {}, LChild;", smali.ErrBadOperands},
		"unassigned args": {"invoke-static {v7, v8}, LChild;->sum(II)I", smali.ErrNoSuchRegister},
		"too few args":    {"invoke-static {v1}, LChild;->sum(II)I", smali.ErrBadOperands},
		"too many args":   {"invoke-virtual {v0, v1}, LChild;->name()Ljava/lang/String;", smali.ErrBadOperands},
		"unpaired wide":   {"invoke-static {v1, v1}, LChild;->wide(JI)J", smali.ErrBadOperands},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			m := hierarchy()
			f := newFrame(m)
			f.Set("v0", child(t, m))
			f.Set("v1", smali.Int(1))

			r.ErrorIs(exec(f, test.inst), test.err)
		})
	}
}

func TestInvoke_Native(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	f.Set("v0", child(t, m))
	f.Set("v1", smali.String("hi"))

	mustExec(t, f,
		"invoke-virtual {v1}, Ljava/lang/Object;->toString()Ljava/lang/String;",
		"move-result-object v2",
		"invoke-virtual {v0}, Ljava/lang/Object;->hashCode()I",
		"move-result v3",
		"invoke-virtual {v0}, Ljava/lang/Object;->getClass()Ljava/lang/Class;",
		"move-result-object v4",
		"invoke-virtual {v4}, Ljava/lang/Class;->getSimpleName()Ljava/lang/String;",
		"move-result-object v5",
		"invoke-direct {v0}, Ljava/lang/Object;-><init>()V",
	)

	r.Equal(smali.String("hi"), reg(t, f, "v2"))
	r.Equal(smali.Int(7), reg(t, f, "v3"))
	r.Equal(smali.String("Child"), reg(t, f, "v5"))
	r.Empty(m.calls)
	r.True(executor.IsNative(executor.ClassClass))
	r.False(executor.IsNative("LChild;"))
}

func TestFields(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	f.Set("v0", child(t, m))

	mustExec(t, f,
		"sget v1, LChild;->count:I",
		"add-int/lit8 v1, v1, 0x1",
		"sput v1, LChild;->count:I",
		"iput v1, v0, LChild;->age:I",
		"iget v2, v0, LChild;->age:I",
		"iget-object v3, v0, LChild;->name:Ljava/lang/String;",
	)

	r.Equal(smali.Int(6), m.classes["LChild;"].statics["count"].Value)
	r.Equal(smali.Int(6), reg(t, f, "v2"))
	r.Equal(smali.Null(), reg(t, f, "v3"))

	r.ErrorIs(exec(f, "sget v1, LChild;->missing:I"), smali.ErrNoSuchField)
	r.ErrorIs(exec(f, "iget v1, v0, LChild;->missing:I"), smali.ErrNoSuchField)
	r.ErrorIs(exec(f, "iget v1, v2, LChild;->age:I"), smali.ErrClassCast)
	r.ErrorIs(exec(f, "iput v1, v2, LChild;->age:I"), smali.ErrClassCast)
}

func TestNewInstance(t *testing.T) {
	defaults := map[string]smali.Value{
		"I":                     smali.Int(0),
		"J":                     smali.Int(0),
		"Ljava/lang/Integer;":   smali.Int(0),
		"D":                     smali.Float(0),
		"Ljava/lang/Float;":     smali.Float(0),
		"C":                     smali.String(""),
		"Ljava/lang/String;":    smali.String(""),
		"Ljava/lang/Character;": smali.String(""),
		"Z":                     smali.Bool(false),
		"Ljava/lang/Boolean;":   smali.Bool(false),
	}

	for desc, expected := range defaults {
		t.Run(desc, func(t *testing.T) {
			r := require.New(t)

			f := newFrame(newMachine())
			mustExec(t, f, "new-instance v0, "+desc)
			r.Equal(expected, reg(t, f, "v0"))
		})
	}

	t.Run("class", func(t *testing.T) {
		r := require.New(t)

		m := hierarchy()
		f := newFrame(m)
		mustExec(t, f,
			"new-instance v0, LChild;",
			"new-instance v1, LChild;",
		)

		a, ok := reg(t, f, "v0").AsObject()
		r.True(ok)
		b, ok := reg(t, f, "v1").AsObject()
		r.True(ok)

		r.NotSame(a, b)
		r.Equal("LChild;", a.Class().Descriptor())

		age, ok := a.Get("age")
		r.True(ok)
		r.Equal(smali.Int(0), age)
		r.Empty(m.calls)
	})

	t.Run("missing", func(t *testing.T) {
		r := require.New(t)

		f := newFrame(hierarchy())
		r.ErrorIs(exec(f, "new-instance v0, LMissing;"), smali.ErrNoSuchClass)
	})
}

func TestCheckCast(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	f.Set("v0", child(t, m))
	f.Set("v1", smali.Null())
	f.Set("v2", smali.String("s"))

	mustExec(t, f,
		"check-cast v0, LParent;",
		"check-cast v0, Ljava/lang/Object;",
		"check-cast v1, LChild;",
		"check-cast v2, Ljava/lang/String;",
		"instance-of v3, v0, LParent;",
		"instance-of v4, v1, LParent;",
		"instance-of v5, v2, LParent;",
	)

	r.Equal(smali.Bool(true), reg(t, f, "v3"))
	r.Equal(smali.Bool(false), reg(t, f, "v4"))
	r.Equal(smali.Bool(false), reg(t, f, "v5"))

	r.ErrorIs(exec(f, "check-cast v2, LChild;"), smali.ErrClassCast)
}

func TestMoveAndConst(t *testing.T) {
	r := require.New(t)

	m := hierarchy()
	f := newFrame(m)
	mustExec(t, f,
		`const-string v0, "a, b # c"`,
		"move-object v1, v0",
		"const-wide v2, 0x100000000L",
		"const/high16 v3, 0x7f",
		"const v4, 1.5f",
		"const-class v5, LChild;",
		"monitor-enter v5",
		"monitor-exit v5",
		"nop",
	)

	r.Equal(smali.String("a, b # c"), reg(t, f, "v1"))
	r.Equal(smali.Int(0x100000000), reg(t, f, "v2"))
	r.Equal(smali.Int(0x7f), reg(t, f, "v3"))
	r.Equal(smali.Float(1.5), reg(t, f, "v4"))

	class, ok := reg(t, f, "v5").AsClass()
	r.True(ok)
	r.Equal("LChild;", class.Descriptor())
	r.False(f.Finished)

	mustExec(t, f, "return-void")
	r.True(f.Finished)
	r.Equal(smali.Null(), f.ReturnValue)
}

func TestThrow(t *testing.T) {
	r := require.New(t)

	f := newFrame(newMachine())
	f.Set("v0", smali.String("boom"))

	// throw records the value and leaves unwinding to the caller.
	mustExec(t, f, "throw v0")

	fault, ok := f.Error.AsError()
	r.True(ok)
	r.ErrorIs(fault, smali.ErrRuntimeFault)
	r.Equal(smali.String("boom"), fault.Payload)
	r.False(f.Finished)

	mustExec(t, f,
		"move-exception v1",
		"throw v1",
	)

	rethrown, ok := f.Error.AsError()
	r.True(ok)
	r.NotSame(fault, rethrown)
	r.Equal(fault.Kind, rethrown.Kind)
	r.Equal(fault.Payload, rethrown.Payload)
}
