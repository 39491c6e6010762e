package executor_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhino1998/smali/pkg/smali"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		regs     map[string]smali.Value
		inst     string
		expected smali.Value
	}{
		{"add", ints(2, 3), "add-int v2, v0, v1", smali.Int(5)},
		{"sub", ints(2, 3), "sub-long v2, v0, v1", smali.Int(-1)},
		{"mul", ints(-4, 3), "mul-int v2, v0, v1", smali.Int(-12)},
		{"floor div", ints(-7, 2), "div-int v2, v0, v1", smali.Int(-4)},
		{"div", ints(7, 2), "div-long v2, v0, v1", smali.Int(3)},
		{"floor rem", ints(-7, 2), "rem-int v2, v0, v1", smali.Int(1)},
		{"rem negative divisor", ints(7, -2), "rem-int v2, v0, v1", smali.Int(-1)},
		{"and", ints(0b1100, 0b1010), "and-int v2, v0, v1", smali.Int(0b1000)},
		{"or", ints(0b1100, 0b1010), "or-int v2, v0, v1", smali.Int(0b1110)},
		{"xor", ints(0b1100, 0b1010), "xor-long v2, v0, v1", smali.Int(0b0110)},
		{"shl", ints(1, 4), "shl-int v2, v0, v1", smali.Int(16)},
		{"shr", ints(-16, 2), "shr-int v2, v0, v1", smali.Int(-4)},
		{"ushr", ints(-16, 2), "ushr-int v2, v0, v1", smali.Int(-4)},
		{"mixed", map[string]smali.Value{"v0": smali.Int(1), "v1": smali.Float(0.5)}, "add-double v2, v0, v1", smali.Float(1.5)},
		{"float div", ints(1, 4), "div-float v2, v0, v1", smali.Float(0.25)},
		{"bool", map[string]smali.Value{"v0": smali.Bool(true), "v1": smali.Int(1)}, "add-int v2, v0, v1", smali.Int(2)},

		{"2addr", ints(10, 4), "sub-int/2addr v0, v1", smali.Int(6)},
		{"2addr floor div", ints(-9, 4), "div-int/2addr v0, v1", smali.Int(-3)},

		{"lit8", ints(3), "add-int/lit8 v2, v0, 0x4", smali.Int(7)},
		{"lit8 masks", ints(0x1234), "and-int/lit8 v2, v0, -0x1", smali.Int(0x34)},
		{"lit16 masks", ints(0x12345), "and-int/lit16 v2, v0, -0x1", smali.Int(0x2345)},
		{"rsub lit8", ints(3), "rsub-int/lit8 v2, v0, 0xa", smali.Int(7)},
		{"rsub lit16", ints(3), "rsub-int v2, v0, 0x64", smali.Int(97)},
		{"ushr lit8", ints(-8), "ushr-int/lit8 v2, v0, 0x1", smali.Int(-4)},

		{"neg", ints(5), "neg-int v2, v0", smali.Int(-5)},
		{"neg float", map[string]smali.Value{"v0": smali.Float(1.5)}, "neg-double v2, v0", smali.Float(-1.5)},
		{"not", ints(0), "not-int v2, v0", smali.Int(-1)},

		{"cmp less", ints(1, 2), "cmp-long v2, v0, v1", smali.Int(-1)},
		{"cmp equal", ints(2, 2), "cmp-long v2, v0, v1", smali.Int(0)},
		{"cmpl nan", nan(), "cmpl-float v2, v0, v1", smali.Int(-1)},
		{"cmpg nan", nan(), "cmpg-double v2, v0, v1", smali.Int(1)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := require.New(t)

			f := newFrame(newMachine())
			for name, val := range test.regs {
				f.Set(name, val)
			}

			mustExec(t, f, test.inst)

			dest := "v2"
			if len(f.Registers) == len(test.regs) {
				dest = "v0"
			}
			r.Equal(test.expected, reg(t, f, dest))
		})
	}
}

func ints(vals ...int64) map[string]smali.Value {
	regs := make(map[string]smali.Value)
	for i, val := range vals {
		regs["v"+string(rune('0'+i))] = smali.Int(val)
	}
	return regs
}

func nan() map[string]smali.Value {
	return map[string]smali.Value{
		"v0": smali.Float(math.NaN()),
		"v1": smali.Float(1),
	}
}

func TestArithmetic_Faults(t *testing.T) {
	tests := map[string]struct {
		regs map[string]smali.Value
		inst string
		err  error
	}{
		"div zero":       {ints(1, 0), "div-int v2, v0, v1", smali.ErrArithmetic},
		"rem zero":       {ints(1, 0), "rem-long v2, v0, v1", smali.ErrArithmetic},
		"div zero lit8":  {ints(1), "div-int/lit8 v2, v0, 0x0", smali.ErrArithmetic},
		"negative shift": {ints(1, -1), "shl-int v2, v0, v1", smali.ErrArithmetic},
		"string operand": {map[string]smali.Value{"v0": smali.String("a"), "v1": smali.Int(1)}, "add-int v2, v0, v1", smali.ErrClassCast},
		"float bitwise":  {map[string]smali.Value{"v0": smali.Float(1), "v1": smali.Int(1)}, "and-int v2, v0, v1", smali.ErrClassCast},
		"null compare":   {map[string]smali.Value{"v0": smali.Null(), "v1": smali.Int(1)}, "cmp-long v2, v0, v1", smali.ErrClassCast},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			f := newFrame(newMachine())
			for name, val := range test.regs {
				f.Set(name, val)
			}

			r.ErrorIs(exec(f, test.inst), test.err)
		})
	}
}

func TestConversions(t *testing.T) {
	tests := []struct {
		name     string
		src      smali.Value
		inst     string
		expected smali.Value
	}{
		{"int-to-long", smali.Int(-5), "int-to-long v1, v0", smali.Int(-5)},
		{"long-to-int", smali.Int(-1), "long-to-int v1, v0", smali.Int(0xFFFFFFFF)},
		{"int-to-char", smali.Int(0x12345), "int-to-char v1, v0", smali.Int(0x2345)},
		{"int-to-short", smali.Int(-1), "int-to-short v1, v0", smali.Int(0xFFFF)},
		{"int-to-float", smali.Int(3), "int-to-float v1, v0", smali.Float(3)},
		{"float-to-int", smali.Float(-2.7), "float-to-int v1, v0", smali.Int(-2)},
		{"float-to-int saturates", smali.Float(1e20), "double-to-int v1, v0", smali.Int(math.MaxInt32)},
		{"float-to-long nan", smali.Float(math.NaN()), "float-to-long v1, v0", smali.Int(0)},
		{"double-to-float", smali.Float(0.1), "double-to-float v1, v0", smali.Float(float64(float32(0.1)))},
		{"byte pattern string", smali.String("\x00\x00\x01\x00"), "int-to-byte v1, v0", smali.Int(256)},
		{"byte pattern array", smali.ArrayRef(smali.NewArray(smali.Int(0xff), smali.Int(0xff), smali.Int(0xff), smali.Int(0xfe))), "int-to-byte v1, v0", smali.Int(-2)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := require.New(t)

			f := newFrame(newMachine())
			f.Set("v0", test.src)

			mustExec(t, f, test.inst)
			r.Equal(test.expected, reg(t, f, "v1"))
		})
	}
}

func TestConversions_ByteNeedsPattern(t *testing.T) {
	r := require.New(t)

	f := newFrame(newMachine())
	f.Set("v0", smali.Int(300))

	r.ErrorIs(exec(f, "int-to-byte v1, v0"), smali.ErrClassCast)
}
