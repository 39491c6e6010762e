package smali

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
	KindObject
	KindClass
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindClass:
		return "class"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the content of a register, field cell or array slot. The zero Value
// is Null.
//
// Integers are 64-bit two's-complement signed values; every integral opcode
// (int, long, short, char, byte) operates on that single width.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	ref  any
}

func Null() Value {
	return Value{}
}

func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

func ArrayRef(a *Array) Value {
	if a == nil {
		return Null()
	}
	return Value{kind: KindArray, ref: a}
}

func ObjectRef(o Instance) Value {
	if o == nil {
		return Null()
	}
	return Value{kind: KindObject, ref: o}
}

func ClassRef(c Class) Value {
	if c == nil {
		return Null()
	}
	return Value{kind: KindClass, ref: c}
}

func ErrorRef(f *Fault) Value {
	if f == nil {
		return Null()
	}
	return Value{kind: KindError, ref: f}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) AsBool() (bool, bool) {
	return v.i != 0, v.kind == KindBool
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsArray() (*Array, bool) {
	a, ok := v.ref.(*Array)
	return a, ok && v.kind == KindArray
}

func (v Value) AsObject() (Instance, bool) {
	o, ok := v.ref.(Instance)
	return o, ok && v.kind == KindObject
}

func (v Value) AsClass() (Class, bool) {
	c, ok := v.ref.(Class)
	return c, ok && v.kind == KindClass
}

func (v Value) AsError() (*Fault, bool) {
	f, ok := v.ref.(*Fault)
	return f, ok && v.kind == KindError
}

// IsNumeric reports whether v takes part in arithmetic. Booleans count as the
// integers 0 and 1.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat || v.kind == KindBool
}

// Integral returns the integer view of an Int or Bool value.
func (v Value) Integral() (int64, bool) {
	switch v.kind {
	case KindInt, KindBool:
		return v.i, true
	default:
		return 0, false
	}
}

// Numeric returns the floating point view of any numeric value.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindInt, KindBool:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal is value equality: numbers compare by magnitude across Int, Float and
// Bool, strings by content and references by identity.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		if v.kind != KindFloat && o.kind != KindFloat {
			return v.i == o.i
		}

		a, _ := v.Numeric()
		b, _ := o.Numeric()
		return a == b
	}

	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	default:
		return v.ref == o.ref
	}
}

// Compare orders two numeric values. It returns an error for any other kind.
// NaN compares unordered: ok is false.
func (v Value) Compare(o Value) (cmp int, ok bool, err error) {
	if !v.IsNumeric() || !o.IsNumeric() {
		return 0, false, Faultf(ClassCast, "cannot compare %s with %s", v.kind, o.kind)
	}

	if v.kind != KindFloat && o.kind != KindFloat {
		switch {
		case v.i < o.i:
			return -1, true, nil
		case v.i > o.i:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	}

	a, _ := v.Numeric()
	b, _ := o.Numeric()
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return 0, false, nil
	case a < b:
		return -1, true, nil
	case a > b:
		return 1, true, nil
	default:
		return 0, true, nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindString:
		return v.s
	case KindArray:
		a := v.ref.(*Array)
		elems := make([]string, 0, a.Len())
		for _, elem := range a.Elems {
			elems = append(elems, elem.GoString())
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case KindObject:
		return fmt.Sprint(v.ref)
	case KindClass:
		return "class " + ParseType(v.ref.(Class).Descriptor()).JavaName()
	case KindError:
		return v.ref.(*Fault).Error()
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}

// GoString quotes strings so nested values stay unambiguous.
func (v Value) GoString() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.String()
}
