package executor

import (
	"github.com/rhino1998/smali/pkg/smali"
)

type CallKind int

const (
	CallStatic CallKind = iota
	CallDirect
	CallVirtual
)

func (k CallKind) String() string {
	switch k {
	case CallStatic:
		return "static"
	case CallDirect:
		return "direct"
	case CallVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

func registerInvoke(r *Registry) {
	r.Register("invoke-static", []string{"invoke-static/range"}, arity(2, invoke(CallStatic)))
	r.Register("invoke-direct", []string{"invoke-direct/range", "invoke-direct-empty"}, arity(2, invoke(CallDirect)))

	// invoke-super names the superclass as owner, which the receiver rule below
	// already resolves; interfaces resolve like any other virtual call.
	r.Register("invoke-virtual", []string{
		"invoke-virtual/range",
		"invoke-super", "invoke-super/range",
		"invoke-interface", "invoke-interface/range",
	}, arity(2, invoke(CallVirtual)))
}

// invoke resolves "{registers}, Lowner;->name(args)ret" and leaves the result in
// the method-return slot for a following move-result.
func invoke(kind CallKind) Handler {
	return func(f *smali.Frame, operands []string) error {
		regs, err := smali.ParseRegisterList(operands[0])
		if err != nil {
			return err
		}

		ref, err := smali.ParseMethodRef(operands[1])
		if err != nil {
			return err
		}

		sig := ref.Signature()

		if bridge, ok := nativeBridges[ref.Owner]; ok {
			native, ok := bridge[sig]
			if !ok {
				return smali.Faultf(smali.NoSuchMethod, "method '%s' not defined!", sig)
			}

			if len(regs) == 0 {
				return smali.Faultf(smali.BadOperands, "%s->%s needs a receiver", ref.Owner, sig)
			}

			receiver, err := f.Get(regs[0])
			if err != nil {
				return err
			}

			ret, err := native(receiver)
			if err != nil {
				return err
			}

			f.MethodReturn = ret
			return nil
		}

		receiver, args, err := callArgs(f, kind, regs, ref)
		if err != nil {
			return err
		}

		var class smali.Class
		if kind != CallStatic {
			inst, ok := receiver.AsObject()
			if !ok {
				return smali.Faultf(smali.ClassCast, "cannot invoke %s->%s on %s", ref.Owner, sig, receiver.Kind())
			}

			if super := inst.Class().Super(); super != "" && super == ref.Owner {
				class, err = f.Machine.Class(super)
				if err != nil {
					return err
				}
			}
		}

		if class == nil {
			class, err = f.Machine.Class(ref.Owner)
			if err != nil {
				return err
			}
		}

		target, ok := class.Method(sig)
		if !ok {
			return smali.Faultf(smali.NoSuchMethod, "%s->%s", class.Descriptor(), sig)
		}

		ret, err := f.Machine.Call(f.Context(), target, receiver, args...)
		if err != nil {
			return err
		}

		f.MethodReturn = ret
		return nil
	}
}

// callArgs reads the receiver and one Value per parameter of ref. A wide (J or D)
// parameter is listed as a register pair; only the first register is read.
func callArgs(f *smali.Frame, kind CallKind, regs []string, ref smali.MemberRef) (smali.Value, []smali.Value, error) {
	params, _, err := smali.ParseMethodDescriptor(ref.Type)
	if err != nil {
		return smali.Value{}, nil, err
	}

	if kind != CallStatic && len(regs) == 0 {
		return smali.Value{}, nil, smali.Faultf(smali.BadOperands, "%s call to %s->%s needs a receiver", kind, ref.Owner, ref.Signature())
	}

	want := 0
	if kind != CallStatic {
		want++
	}
	for _, param := range params {
		want++
		if param.IsWide() {
			want++
		}
	}

	if len(regs) != want {
		return smali.Value{}, nil, smali.Faultf(smali.BadOperands, "%s->%s takes %d registers, got %d", ref.Owner, ref.Signature(), want, len(regs))
	}

	receiver := smali.Null()
	next := 0
	if kind != CallStatic {
		receiver, err = f.Get(regs[0])
		if err != nil {
			return smali.Value{}, nil, err
		}
		next++
	}

	args := make([]smali.Value, 0, len(params))
	for _, param := range params {
		val, err := f.Get(regs[next])
		if err != nil {
			return smali.Value{}, nil, err
		}
		args = append(args, val)

		next++
		if param.IsWide() {
			next++
		}
	}

	return receiver, args, nil
}
