package executor

import (
	"github.com/rhino1998/smali/pkg/smali"
)

func registerMove(r *Registry) {
	r.Register("nop", nil, arity(0, nop))

	r.Register("return-void", []string{
		"return-void-barrier", "return-void-no-barrier",
	}, arity(0, returnVoid))

	r.Register("return-object", []string{
		"return", "return-wide",
	}, arity(1, returnObject))

	r.Register("move", []string{
		"move/from16", "move/16",
		"move-wide", "move-wide/from16", "move-wide/16",
		"move-object", "move-object/from16", "move-object/16",
	}, arity(2, move))

	r.Register("move-result", []string{
		"move-result-object", "move-result-wide",
	}, arity(1, moveResult))

	r.Register("move-exception", nil, arity(1, moveException))

	r.Register("const", []string{
		"const-string", "const-string/jumbo",
		"const/4", "const/16", "const/high16",
		"const-wide", "const-wide/16", "const-wide/32", "const-wide/high16",
	}, arity(2, constant))

	r.Register("const-class", nil, arity(2, constClass))

	r.Register("throw", nil, arity(1, throw))

	// Single-threaded: monitors have nothing to guard.
	r.Register("monitor-enter", []string{"monitor-exit"}, arity(1, func(f *smali.Frame, operands []string) error {
		_, err := f.Get(operands[0])
		return err
	}))
}

func nop(f *smali.Frame, operands []string) error {
	return nil
}

func returnVoid(f *smali.Frame, operands []string) error {
	f.ReturnValue = smali.Null()
	f.Finished = true
	return nil
}

func returnObject(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	f.ReturnValue = val
	f.Finished = true
	return nil
}

func move(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], val)
	return nil
}

func moveResult(f *smali.Frame, operands []string) error {
	f.Set(operands[0], f.MethodReturn)
	return nil
}

func moveException(f *smali.Frame, operands []string) error {
	f.Set(operands[0], f.Error)
	return nil
}

func constant(f *smali.Frame, operands []string) error {
	val, err := smali.ParseLiteral(operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], val)
	return nil
}

func constClass(f *smali.Frame, operands []string) error {
	class, err := f.Machine.Class(operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], smali.ClassRef(class))
	return nil
}

// throw does not fail: the thrown value goes to the error slot and the loop
// running the frame decides how to unwind.
func throw(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	f.Error = smali.ErrorRef(smali.Thrown(val))
	return nil
}
