package executor

import (
	"github.com/rhino1998/smali/pkg/smali"
)

type predicate func(cmp int) bool

func registerControl(r *Registry) {
	r.Register("goto", []string{"goto/16", "goto/32"}, arity(1, jump))

	r.Register("if-eq", nil, arity(3, ifEqual(true)))
	r.Register("if-ne", nil, arity(3, ifEqual(false)))
	r.Register("if-lt", nil, arity(3, ifCompare(func(c int) bool { return c < 0 })))
	r.Register("if-le", nil, arity(3, ifCompare(func(c int) bool { return c <= 0 })))
	r.Register("if-gt", nil, arity(3, ifCompare(func(c int) bool { return c > 0 })))
	r.Register("if-ge", nil, arity(3, ifCompare(func(c int) bool { return c >= 0 })))

	r.Register("if-eqz", nil, arity(2, ifZero(true)))
	r.Register("if-nez", nil, arity(2, ifZero(false)))
	r.Register("if-ltz", nil, arity(2, ifCompareZero(func(c int) bool { return c < 0 })))
	r.Register("if-lez", nil, arity(2, ifCompareZero(func(c int) bool { return c <= 0 })))
	r.Register("if-gtz", nil, arity(2, ifCompareZero(func(c int) bool { return c > 0 })))
	r.Register("if-gez", nil, arity(2, ifCompareZero(func(c int) bool { return c >= 0 })))

	r.Register("packed-switch", nil, arity(2, packedSwitch))
	r.Register("sparse-switch", nil, arity(2, sparseSwitch))
}

func jump(f *smali.Frame, operands []string) error {
	return f.Jump(operands[0])
}

func ifEqual(want bool) Handler {
	return func(f *smali.Frame, operands []string) error {
		left, err := f.Get(operands[0])
		if err != nil {
			return err
		}

		right, err := f.Get(operands[1])
		if err != nil {
			return err
		}

		if left.Equal(right) == want {
			return f.Jump(operands[2])
		}

		return nil
	}
}

func ifCompare(pred predicate) Handler {
	return func(f *smali.Frame, operands []string) error {
		left, err := f.Get(operands[0])
		if err != nil {
			return err
		}

		right, err := f.Get(operands[1])
		if err != nil {
			return err
		}

		return branch(f, left, right, pred, operands[2])
	}
}

// Null and false count as zero for the equality tests, which is how null
// checks are compiled.
func ifZero(want bool) Handler {
	return func(f *smali.Frame, operands []string) error {
		val, err := f.Get(operands[0])
		if err != nil {
			return err
		}

		zero := val.IsNull() || (val.IsNumeric() && val.Equal(smali.Int(0)))
		if zero == want {
			return f.Jump(operands[1])
		}

		return nil
	}
}

func ifCompareZero(pred predicate) Handler {
	return func(f *smali.Frame, operands []string) error {
		val, err := f.Get(operands[0])
		if err != nil {
			return err
		}

		return branch(f, val, smali.Int(0), pred, operands[1])
	}
}

func branch(f *smali.Frame, left, right smali.Value, pred predicate, label string) error {
	cmp, ordered, err := left.Compare(right)
	if err != nil {
		return err
	}

	if ordered && pred(cmp) {
		return f.Jump(label)
	}

	return nil
}

func packedSwitch(f *smali.Frame, operands []string) error {
	table, err := f.Switch(operands[1])
	if err != nil {
		return err
	}

	packed, ok := table.(smali.PackedSwitch)
	if !ok {
		return smali.Faultf(smali.NoSuchLabel, "no packed-switch data at %s", smali.LabelName(operands[1]))
	}

	val, err := integral(f, operands[0])
	if err != nil {
		return err
	}

	index := val - packed.First
	if index < 0 || index >= int64(len(packed.Targets)) {
		return nil
	}

	return f.Jump(packed.Targets[index])
}

func sparseSwitch(f *smali.Frame, operands []string) error {
	table, err := f.Switch(operands[1])
	if err != nil {
		return err
	}

	sparse, ok := table.(smali.SparseSwitch)
	if !ok {
		return smali.Faultf(smali.NoSuchLabel, "no sparse-switch data at %s", smali.LabelName(operands[1]))
	}

	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	for i, key := range sparse.Keys {
		if key.Equal(val) {
			return f.Jump(sparse.Targets[i])
		}
	}

	return nil
}
