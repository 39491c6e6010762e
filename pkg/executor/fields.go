package executor

import (
	"github.com/rhino1998/smali/pkg/smali"
)

func registerFields(r *Registry) {
	r.Register("sput-object", []string{
		"sput", "sput-boolean", "sput-short", "sput-char", "sput-byte",
		"sput-volatile", "sput-object-volatile", "sput-wide", "sput-wide-volatile",
	}, arity(2, staticPut))

	r.Register("sget-object", []string{
		"sget", "sget-boolean", "sget-byte", "sget-short", "sget-char",
		"sget-volatile", "sget-object-volatile", "sget-wide", "sget-wide-volatile",
	}, arity(2, staticGet))

	r.Register("iget-object", []string{
		"iget", "iget-boolean", "iget-byte", "iget-char", "iget-short",
		"iget-volatile", "iget-object-volatile", "iget-wide", "iget-wide-volatile",
	}, arity(3, instanceGet))

	r.Register("iput-object", []string{
		"iput", "iput-boolean", "iput-byte", "iput-char", "iput-short",
		"iput-volatile", "iput-object-volatile", "iput-wide", "iput-wide-volatile",
	}, arity(3, instancePut))
}

func staticField(f *smali.Frame, operand string) (*smali.Cell, error) {
	ref, err := smali.ParseFieldRef(operand)
	if err != nil {
		return nil, err
	}

	class, err := f.Machine.Class(ref.Owner)
	if err != nil {
		return nil, err
	}

	cell, ok := class.Field(ref.Name)
	if !ok {
		return nil, smali.Faultf(smali.NoSuchField, "%s->%s", ref.Owner, ref.Name)
	}

	return cell, nil
}

func staticPut(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	cell, err := staticField(f, operands[1])
	if err != nil {
		return err
	}

	cell.Value = val
	return nil
}

func staticGet(f *smali.Frame, operands []string) error {
	cell, err := staticField(f, operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], cell.Value)
	return nil
}

func instanceGet(f *smali.Frame, operands []string) error {
	inst, err := object(f, operands[1])
	if err != nil {
		return err
	}

	ref, err := smali.ParseFieldRef(operands[2])
	if err != nil {
		return err
	}

	val, ok := inst.Get(ref.Name)
	if !ok {
		return smali.Faultf(smali.NoSuchField, "%s has no field %s", inst.Class().Descriptor(), ref.Name)
	}

	f.Set(operands[0], val)
	return nil
}

func instancePut(f *smali.Frame, operands []string) error {
	inst, err := object(f, operands[1])
	if err != nil {
		return err
	}

	ref, err := smali.ParseFieldRef(operands[2])
	if err != nil {
		return err
	}

	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	inst.Set(ref.Name, val)
	return nil
}
