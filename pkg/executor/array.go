package executor

import (
	"math"

	"github.com/rhino1998/smali/pkg/smali"
)

// MaxArrayLength is the largest array new-array allocates.
const MaxArrayLength = math.MaxInt32

func registerArrays(r *Registry) {
	r.Register("new-array", nil, arity(3, newArray))
	r.Register("array-length", nil, arity(2, arrayLength))
	r.Register("fill-array-data", nil, arity(2, fillArrayData))

	r.Register("aget", []string{
		"aget-boolean", "aget-byte", "aget-char", "aget-short", "aget-object", "aget-wide",
	}, arity(3, arrayGet))

	r.Register("aput", []string{
		"aput-boolean", "aput-byte", "aput-char", "aput-short", "aput-object", "aput-wide",
	}, arity(3, arrayPut))
}

// newArray fills with 0 for integral, 0.0 for floating and Null for every
// other element type.
func newArray(f *smali.Frame, operands []string) error {
	count, err := integral(f, operands[1])
	if err != nil {
		return err
	}

	if count < 0 {
		return smali.Faultf(smali.IndexOutOfBounds, "negative array size %d", count)
	}

	if count > MaxArrayLength {
		return smali.Faultf(smali.IndexOutOfBounds, "array size %d exceeds %d", count, MaxArrayLength)
	}

	elem := smali.ParseType(operands[2]).Elem()

	var zero smali.Value
	switch {
	case elem.IsIntegral():
		zero = smali.Int(0)
	case elem.IsFloating():
		zero = smali.Float(0)
	default:
		zero = smali.Null()
	}

	elems := make([]smali.Value, count)
	for i := range elems {
		elems[i] = zero
	}

	f.Set(operands[0], smali.ArrayRef(smali.NewArray(elems...)))
	return nil
}

func arrayLength(f *smali.Frame, operands []string) error {
	a, err := array(f, operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], smali.Int(int64(a.Len())))
	return nil
}

func fillArrayData(f *smali.Frame, operands []string) error {
	data, err := f.Data(operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], smali.ArrayRef(smali.NewArray(data...).Clone()))
	return nil
}

func arrayGet(f *smali.Frame, operands []string) error {
	a, err := array(f, operands[1])
	if err != nil {
		return err
	}

	index, err := integral(f, operands[2])
	if err != nil {
		return err
	}

	val, err := a.Get(index)
	if err != nil {
		return err
	}

	f.Set(operands[0], val)
	return nil
}

func arrayPut(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	a, err := array(f, operands[1])
	if err != nil {
		return err
	}

	index, err := integral(f, operands[2])
	if err != nil {
		return err
	}

	return a.Put(index, val)
}
