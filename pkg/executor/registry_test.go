package executor_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhino1998/smali/pkg/executor"
	"github.com/rhino1998/smali/pkg/smali"
)

func TestRegistry_Aliases(t *testing.T) {
	r := require.New(t)
	reg := executor.Default()

	aliases := map[string][]string{
		"move":           {"move/from16", "move-object", "move-wide/16"},
		"return-object":  {"return", "return-wide"},
		"invoke-virtual": {"invoke-super", "invoke-interface/range", "invoke-virtual/range"},
		"const":          {"const/4", "const-string", "const-wide/high16"},
		"shr-int":        {"ushr-int", "shr-long"},
		"shr-int/lit8":   {"ushr-int/lit8"},
		"aget":           {"aget-object", "aget-wide"},
		"iget-object":    {"iget", "iget-boolean"},
	}

	for name, names := range aliases {
		op, err := reg.Lookup(name)
		r.NoError(err)
		r.Equal(name, op.Name)

		for _, alias := range names {
			aliased, err := reg.Lookup(alias)
			r.NoError(err)
			r.Same(op, aliased, "%s should alias %s", alias, name)
		}
	}
}

func TestRegistry_Unknown(t *testing.T) {
	r := require.New(t)

	_, err := executor.Default().Lookup("bogus")
	r.ErrorIs(err, smali.ErrUnknownOpcode)
	r.Contains(err.Error(), "could not find executor for opcode: bogus")

	err = executor.Dispatch(newFrame(newMachine()), "bogus", nil)
	r.ErrorIs(err, smali.ErrUnknownOpcode)
	r.True(smali.UnknownOpcode.Fatal())
}

func TestRegistry_Override(t *testing.T) {
	r := require.New(t)

	reg := executor.NewRegistry()
	first := reg.Register("op", []string{"op/alias"}, func(f *smali.Frame, operands []string) error {
		return fmt.Errorf("first")
	})
	second := reg.Register("op", nil, func(f *smali.Frame, operands []string) error {
		return fmt.Errorf("second")
	})

	err := reg.Dispatch(newFrame(newMachine()), "op", nil)
	r.EqualError(err, "second")

	// The alias still points at the binding it was registered with.
	op, err := reg.Lookup("op/alias")
	r.NoError(err)
	r.Same(first, op)
	r.Equal([]string{"op/alias"}, reg.Names(first))
	r.Equal([]string{"op"}, reg.Names(second))
}

func TestRegistry_Frozen(t *testing.T) {
	r := require.New(t)

	r.Panics(func() {
		executor.Default().Register("nop", nil, nil)
	})

	reg := executor.NewRegistry().Freeze()
	r.Panics(func() {
		reg.Register("nop", nil, nil)
	})
}

func TestRegistry_Opcodes(t *testing.T) {
	r := require.New(t)
	reg := executor.Default()

	ops := reg.Opcodes()
	r.NotEmpty(ops)

	seen := make(map[string]bool)
	for i, op := range ops {
		r.False(seen[op.Name], "duplicate %s", op.Name)
		seen[op.Name] = true

		if i > 0 {
			r.Less(ops[i-1].Name, op.Name)
		}
	}

	move, err := reg.Lookup("move")
	r.NoError(err)
	names := reg.Names(move)
	r.Equal("move", names[0])
	r.Contains(names, "move-object/from16")
}

func TestRegistry_ConcurrentFrames(t *testing.T) {
	r := require.New(t)

	var wg sync.WaitGroup
	errs := make([]error, 32)
	results := make([]smali.Value, 32)

	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			f := newFrame(newMachine())
			f.Set("v0", smali.Int(int64(i)))
			errs[i] = exec(f,
				"mul-int/lit8 v1, v0, 0x2",
				"return v1",
			)
			results[i] = f.ReturnValue
		}()
	}

	wg.Wait()

	for i := range errs {
		r.NoError(errs[i])
		r.Equal(smali.Int(int64(2*i)), results[i])
	}
}

func TestEndToEnd(t *testing.T) {
	r := require.New(t)

	f := newFrame(newMachine())
	mustExec(t, f,
		"const/4 v0, 0x3",
		"const/4 v1, 0x5",
		"add-int v2, v0, v1",
		"return v2",
	)

	r.True(f.Finished)
	r.Equal(smali.Int(8), f.ReturnValue)
}

func TestBadOperands(t *testing.T) {
	r := require.New(t)

	f := newFrame(newMachine())
	err := executor.Dispatch(f, "add-int", []string{"v0", "v1"})
	r.ErrorIs(err, smali.ErrBadOperands)
}

func TestUnassignedRegister(t *testing.T) {
	r := require.New(t)

	f := newFrame(newMachine())
	err := exec(f, "move v0, v9")
	r.ErrorIs(err, smali.ErrNoSuchRegister)
}
