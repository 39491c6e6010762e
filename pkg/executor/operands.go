package executor

import (
	"github.com/rhino1998/smali/pkg/smali"
)

func arity(n int, handler Handler) Handler {
	return func(f *smali.Frame, operands []string) error {
		if len(operands) != n {
			return smali.Faultf(smali.BadOperands, "expected %d operands, got %d", n, len(operands))
		}

		return handler(f, operands)
	}
}

func integral(f *smali.Frame, register string) (int64, error) {
	val, err := f.Get(register)
	if err != nil {
		return 0, err
	}

	i, ok := val.Integral()
	if !ok {
		return 0, smali.Faultf(smali.ClassCast, "could not cast %s in %s to int", val.Kind(), register)
	}

	return i, nil
}

func array(f *smali.Frame, register string) (*smali.Array, error) {
	val, err := f.Get(register)
	if err != nil {
		return nil, err
	}

	a, ok := val.AsArray()
	if !ok {
		return nil, smali.Faultf(smali.ClassCast, "could not cast %s in %s to array", val.Kind(), register)
	}

	return a, nil
}

func object(f *smali.Frame, register string) (smali.Instance, error) {
	val, err := f.Get(register)
	if err != nil {
		return nil, err
	}

	o, ok := val.AsObject()
	if !ok {
		return nil, smali.Faultf(smali.ClassCast, "could not cast %s in %s to object", val.Kind(), register)
	}

	return o, nil
}

// literal parses an immediate operand that must be integral.
func literal(text string) (int64, error) {
	val, err := smali.ParseLiteral(text)
	if err != nil {
		return 0, err
	}

	i, ok := val.Integral()
	if !ok {
		return 0, smali.Faultf(smali.BadOperands, "literal %s is not an integer", text)
	}

	return i, nil
}
