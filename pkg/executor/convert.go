package executor

import (
	"encoding/binary"
	"math"

	"github.com/rhino1998/smali/pkg/smali"
)

func registerConversions(r *Registry) {
	r.Register("int-to-long", nil, unary(maskInt(-1)))
	r.Register("int-to-int", []string{"long-to-int"}, unary(maskInt(0xFFFFFFFF)))
	r.Register("int-to-char", []string{"int-to-short"}, unary(maskInt(0xFFFF)))
	r.Register("int-to-byte", nil, unary(intToByte))
	r.Register("int-to-float", []string{"int-to-double", "long-to-float", "long-to-double"}, unary(toFloat))

	r.Register("float-to-int", []string{"double-to-int"}, unary(truncate(math.MinInt32, math.MaxInt32)))
	r.Register("float-to-long", []string{"double-to-long"}, unary(truncate(math.MinInt64, math.MaxInt64)))
	r.Register("float-to-double", nil, unary(toFloat))
	r.Register("double-to-float", nil, unary(func(v smali.Value) (smali.Value, error) {
		f, ok := v.Numeric()
		if !ok {
			return smali.Value{}, smali.Faultf(smali.ClassCast, "could not convert %s to float", v.Kind())
		}
		return smali.Float(float64(float32(f))), nil
	}))
}

// maskInt keeps the bits of mask. -1 (all 64 bits) is the identity.
func maskInt(mask int64) func(smali.Value) (smali.Value, error) {
	return func(v smali.Value) (smali.Value, error) {
		i, ok := v.Integral()
		if !ok {
			return smali.Value{}, smali.Faultf(smali.ClassCast, "could not convert %s to int", v.Kind())
		}
		return smali.Int(i & mask), nil
	}
}

// intToByte reads the source as a 4-byte big-endian signed pattern: a string
// of 4 bytes or an array of 4 integers. A plain integer source is rejected.
func intToByte(v smali.Value) (smali.Value, error) {
	var pattern []byte

	if s, ok := v.AsString(); ok && len(s) == 4 {
		pattern = []byte(s)
	}

	if a, ok := v.AsArray(); ok && a.Len() == 4 {
		for _, elem := range a.Elems {
			b, ok := elem.Integral()
			if !ok {
				break
			}
			pattern = append(pattern, byte(b))
		}
	}

	if len(pattern) != 4 {
		return smali.Value{}, smali.Faultf(smali.ClassCast, "int-to-byte needs a 4-byte big-endian pattern, got %s", v.Kind())
	}

	return smali.Int(int64(int32(binary.BigEndian.Uint32(pattern)))), nil
}

func toFloat(v smali.Value) (smali.Value, error) {
	f, ok := v.Numeric()
	if !ok {
		return smali.Value{}, smali.Faultf(smali.ClassCast, "could not convert %s to float", v.Kind())
	}
	return smali.Float(f), nil
}

// truncate rounds toward zero and saturates at the bounds; NaN becomes 0.
func truncate(lo, hi int64) func(smali.Value) (smali.Value, error) {
	return func(v smali.Value) (smali.Value, error) {
		if i, ok := v.Integral(); ok {
			return smali.Int(min(max(i, lo), hi)), nil
		}

		f, ok := v.AsFloat()
		if !ok {
			return smali.Value{}, smali.Faultf(smali.ClassCast, "could not convert %s to int", v.Kind())
		}

		switch {
		case math.IsNaN(f):
			return smali.Int(0), nil
		case f <= float64(lo):
			return smali.Int(lo), nil
		case f >= float64(hi):
			return smali.Int(hi), nil
		default:
			return smali.Int(int64(math.Trunc(f))), nil
		}
	}
}
