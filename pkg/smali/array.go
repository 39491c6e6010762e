package smali

// Array is the mutable sequence behind an ArrayRef. It is element-type agnostic
// and may grow by appending at its current length.
type Array struct {
	Elems []Value
}

func NewArray(elems ...Value) *Array {
	return &Array{Elems: elems}
}

func (a *Array) Len() int {
	return len(a.Elems)
}

// Get requires 0 <= index < Len().
func (a *Array) Get(index int64) (Value, error) {
	if index < 0 || index >= int64(len(a.Elems)) {
		return Value{}, Faultf(IndexOutOfBounds, "index %d is out of bounds for length %d", index, len(a.Elems))
	}

	return a.Elems[index], nil
}

// Put overwrites index when it is inside the array and appends when it equals
// Len(); anything else is out of bounds.
func (a *Array) Put(index int64, val Value) error {
	if index < 0 || index > int64(len(a.Elems)) {
		return Faultf(IndexOutOfBounds, "index %d is out of bounds for length %d", index, len(a.Elems))
	}

	if index == int64(len(a.Elems)) {
		a.Elems = append(a.Elems, val)
		return nil
	}

	a.Elems[index] = val
	return nil
}

func (a *Array) Clone() *Array {
	return &Array{Elems: append([]Value(nil), a.Elems...)}
}
