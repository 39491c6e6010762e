package executor

import (
	"math"

	"github.com/rhino1998/smali/pkg/smali"
)

type binaryOp func(a, b smali.Value) (smali.Value, error)

// numeric applies ints when both operands are integral and floats otherwise.
func numeric(ints func(a, b int64) (int64, error), floats func(a, b float64) float64) binaryOp {
	return func(a, b smali.Value) (smali.Value, error) {
		if !a.IsNumeric() || !b.IsNumeric() {
			return smali.Value{}, smali.Faultf(smali.ClassCast, "unsupported operands %s and %s", a.Kind(), b.Kind())
		}

		x, xok := a.Integral()
		y, yok := b.Integral()
		if xok && yok {
			i, err := ints(x, y)
			if err != nil {
				return smali.Value{}, err
			}
			return smali.Int(i), nil
		}

		fx, _ := a.Numeric()
		fy, _ := b.Numeric()
		return smali.Float(floats(fx, fy)), nil
	}
}

func bitwise(ints func(a, b int64) (int64, error)) binaryOp {
	return func(a, b smali.Value) (smali.Value, error) {
		x, xok := a.Integral()
		y, yok := b.Integral()
		if !xok || !yok {
			return smali.Value{}, smali.Faultf(smali.ClassCast, "unsupported operands %s and %s", a.Kind(), b.Kind())
		}

		i, err := ints(x, y)
		if err != nil {
			return smali.Value{}, err
		}
		return smali.Int(i), nil
	}
}

var (
	opAdd = numeric(
		func(a, b int64) (int64, error) { return a + b, nil },
		func(a, b float64) float64 { return a + b },
	)
	opSub = numeric(
		func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) float64 { return a - b },
	)
	opMul = numeric(
		func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) float64 { return a * b },
	)
	opDiv = numeric(floorDiv, func(a, b float64) float64 { return math.Floor(a / b) })
	opRem = numeric(floorMod, floatMod)

	opAnd = bitwise(func(a, b int64) (int64, error) { return a & b, nil })
	opOr  = bitwise(func(a, b int64) (int64, error) { return a | b, nil })
	opXor = bitwise(func(a, b int64) (int64, error) { return a ^ b, nil })
	opShl = bitwise(func(a, b int64) (int64, error) {
		if b < 0 {
			return 0, smali.Faultf(smali.Arithmetic, "negative shift count %d", b)
		}
		return a << uint64(b), nil
	})
	// Right shifts are arithmetic on the signed 64-bit value; ushr shares this
	// operator.
	opShr = bitwise(func(a, b int64) (int64, error) {
		if b < 0 {
			return 0, smali.Faultf(smali.Arithmetic, "negative shift count %d", b)
		}
		return a >> uint64(b), nil
	})
)

// opFloatDiv is true division: the result is always a Float.
func opFloatDiv(a, b smali.Value) (smali.Value, error) {
	x, xok := a.Numeric()
	y, yok := b.Numeric()
	if !xok || !yok {
		return smali.Value{}, smali.Faultf(smali.ClassCast, "unsupported operands %s and %s", a.Kind(), b.Kind())
	}

	return smali.Float(x / y), nil
}

// floorDiv rounds toward negative infinity.
func floorDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, smali.Faultf(smali.Arithmetic, "integer division or modulo by zero")
	}

	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q, nil
}

// floorMod takes the sign of the divisor, pairing with floorDiv.
func floorMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, smali.Faultf(smali.Arithmetic, "integer division or modulo by zero")
	}

	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m, nil
}

func floatMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// ternary is the 3-address shape: dest = left op right.
func ternary(op binaryOp) Handler {
	return arity(3, func(f *smali.Frame, operands []string) error {
		left, err := f.Get(operands[1])
		if err != nil {
			return err
		}

		right, err := f.Get(operands[2])
		if err != nil {
			return err
		}

		val, err := op(left, right)
		if err != nil {
			return err
		}

		f.Set(operands[0], val)
		return nil
	})
}

// binary2addr is the 2-address shape: dest op= src.
func binary2addr(op binaryOp) Handler {
	return arity(2, func(f *smali.Frame, operands []string) error {
		dest, err := f.Get(operands[0])
		if err != nil {
			return err
		}

		src, err := f.Get(operands[1])
		if err != nil {
			return err
		}

		val, err := op(dest, src)
		if err != nil {
			return err
		}

		f.Set(operands[0], val)
		return nil
	})
}

// binaryLit is the literal-immediate shape. The literal is masked to mask as
// an unsigned value before use, whatever sign it was written with.
func binaryLit(op binaryOp, mask int64, reverse bool) Handler {
	return arity(3, func(f *smali.Frame, operands []string) error {
		left, err := f.Get(operands[1])
		if err != nil {
			return err
		}

		lit, err := literal(operands[2])
		if err != nil {
			return err
		}

		right := smali.Int(lit & mask)
		if reverse {
			left, right = right, left
		}

		val, err := op(left, right)
		if err != nil {
			return err
		}

		f.Set(operands[0], val)
		return nil
	})
}

func unary(op func(smali.Value) (smali.Value, error)) Handler {
	return arity(2, func(f *smali.Frame, operands []string) error {
		src, err := f.Get(operands[1])
		if err != nil {
			return err
		}

		val, err := op(src)
		if err != nil {
			return err
		}

		f.Set(operands[0], val)
		return nil
	})
}

func negate(v smali.Value) (smali.Value, error) {
	if i, ok := v.Integral(); ok {
		return smali.Int(-i), nil
	}

	if x, ok := v.AsFloat(); ok {
		return smali.Float(-x), nil
	}

	return smali.Value{}, smali.Faultf(smali.ClassCast, "bad operand %s for negation", v.Kind())
}

func not(v smali.Value) (smali.Value, error) {
	i, ok := v.Integral()
	if !ok {
		return smali.Value{}, smali.Faultf(smali.ClassCast, "bad operand %s for not", v.Kind())
	}

	return smali.Int(^i), nil
}

// compare produces -1, 0 or 1. Unordered (NaN) operands yield nan.
func compare(nan int64) binaryOp {
	return func(a, b smali.Value) (smali.Value, error) {
		cmp, ordered, err := a.Compare(b)
		if err != nil {
			return smali.Value{}, err
		}

		if !ordered {
			return smali.Int(nan), nil
		}

		return smali.Int(int64(cmp)), nil
	}
}

func registerArithmetic(r *Registry) {
	r.Register("neg-int", []string{"neg-long", "neg-float", "neg-double"}, unary(negate))
	r.Register("not-int", []string{"not-long"}, unary(not))

	r.Register("add-int", []string{"add-long", "add-float", "add-double"}, ternary(opAdd))
	r.Register("sub-int", []string{"sub-long", "sub-float", "sub-double"}, ternary(opSub))
	r.Register("mul-int", []string{"mul-long", "mul-float", "mul-double"}, ternary(opMul))
	r.Register("div-int", []string{"div-long"}, ternary(opDiv))
	r.Register("div-float", []string{"div-double"}, ternary(opFloatDiv))
	r.Register("rem-int", []string{"rem-long", "rem-float", "rem-double"}, ternary(opRem))
	r.Register("and-int", []string{"and-long"}, ternary(opAnd))
	r.Register("or-int", []string{"or-long"}, ternary(opOr))
	r.Register("xor-int", []string{"xor-long"}, ternary(opXor))
	r.Register("shl-int", []string{"shl-long"}, ternary(opShl))
	r.Register("shr-int", []string{"shr-long", "ushr-int", "ushr-long"}, ternary(opShr))

	r.Register("add-int/2addr", []string{"add-long/2addr", "add-float/2addr", "add-double/2addr"}, binary2addr(opAdd))
	r.Register("sub-int/2addr", []string{"sub-long/2addr", "sub-float/2addr", "sub-double/2addr"}, binary2addr(opSub))
	r.Register("mul-int/2addr", []string{"mul-long/2addr", "mul-float/2addr", "mul-double/2addr"}, binary2addr(opMul))
	r.Register("div-int/2addr", []string{"div-long/2addr"}, binary2addr(opDiv))
	r.Register("div-float/2addr", []string{"div-double/2addr"}, binary2addr(opFloatDiv))
	r.Register("rem-int/2addr", []string{"rem-long/2addr", "rem-float/2addr", "rem-double/2addr"}, binary2addr(opRem))
	r.Register("and-int/2addr", []string{"and-long/2addr"}, binary2addr(opAnd))
	r.Register("or-int/2addr", []string{"or-long/2addr"}, binary2addr(opOr))
	r.Register("xor-int/2addr", []string{"xor-long/2addr"}, binary2addr(opXor))
	r.Register("shl-int/2addr", []string{"shl-long/2addr"}, binary2addr(opShl))
	r.Register("shr-int/2addr", []string{"shr-long/2addr", "ushr-int/2addr", "ushr-long/2addr"}, binary2addr(opShr))

	const (
		lit8  = 0xFF
		lit16 = 0xFFFF
	)

	r.Register("add-int/lit8", nil, binaryLit(opAdd, lit8, false))
	r.Register("add-int/lit16", nil, binaryLit(opAdd, lit16, false))
	r.Register("sub-int/lit8", nil, binaryLit(opSub, lit8, false))
	r.Register("sub-int/lit16", nil, binaryLit(opSub, lit16, false))
	r.Register("rsub-int/lit8", nil, binaryLit(opSub, lit8, true))
	r.Register("rsub-int", nil, binaryLit(opSub, lit16, true))
	r.Register("mul-int/lit8", nil, binaryLit(opMul, lit8, false))
	r.Register("mul-int/lit16", nil, binaryLit(opMul, lit16, false))
	r.Register("div-int/lit8", nil, binaryLit(opDiv, lit8, false))
	r.Register("div-int/lit16", nil, binaryLit(opDiv, lit16, false))
	r.Register("rem-int/lit8", nil, binaryLit(opRem, lit8, false))
	r.Register("rem-int/lit16", nil, binaryLit(opRem, lit16, false))
	r.Register("and-int/lit8", nil, binaryLit(opAnd, lit8, false))
	r.Register("and-int/lit16", nil, binaryLit(opAnd, lit16, false))
	r.Register("or-int/lit8", nil, binaryLit(opOr, lit8, false))
	r.Register("or-int/lit16", nil, binaryLit(opOr, lit16, false))
	r.Register("xor-int/lit8", nil, binaryLit(opXor, lit8, false))
	r.Register("xor-int/lit16", nil, binaryLit(opXor, lit16, false))
	r.Register("shl-int/lit8", nil, binaryLit(opShl, lit8, false))
	r.Register("shl-int/lit16", nil, binaryLit(opShl, lit16, false))
	r.Register("shr-int/lit8", []string{"ushr-int/lit8"}, binaryLit(opShr, lit8, false))
	r.Register("shr-int/lit16", nil, binaryLit(opShr, lit16, false))

	r.Register("cmp-long", nil, ternary(compare(0)))
	r.Register("cmpl-float", []string{"cmpl-double"}, ternary(compare(-1)))
	r.Register("cmpg-float", []string{"cmpg-double"}, ternary(compare(1)))
}
