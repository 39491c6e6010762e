package executor

import (
	"github.com/rhino1998/smali/pkg/smali"
)

func registerObjects(r *Registry) {
	r.Register("new-instance", nil, arity(2, newInstance))
	r.Register("check-cast", nil, arity(2, checkCast))
	r.Register("instance-of", nil, arity(3, instanceOf))
}

// boxedDefaults are built without allocating an instance.
var boxedDefaults = map[string]smali.Value{
	"I":                   smali.Int(0),
	"S":                   smali.Int(0),
	"B":                   smali.Int(0),
	"J":                   smali.Int(0),
	"Ljava/lang/Integer;": smali.Int(0),
	"Ljava/lang/Short;":   smali.Int(0),
	"Ljava/lang/Byte;":    smali.Int(0),
	"Ljava/lang/Long;":    smali.Int(0),

	"F":                  smali.Float(0),
	"D":                  smali.Float(0),
	"Ljava/lang/Float;":  smali.Float(0),
	"Ljava/lang/Double;": smali.Float(0),

	"C":                     smali.String(""),
	"Ljava/lang/String;":    smali.String(""),
	"Ljava/lang/Character;": smali.String(""),

	"Z":                   smali.Bool(false),
	"Ljava/lang/Boolean;": smali.Bool(false),
}

// newInstance only allocates and default-initializes. Constructors, with or
// without arguments, run through a separate invoke-direct of <init>.
func newInstance(f *smali.Frame, operands []string) error {
	if val, ok := boxedDefaults[operands[1]]; ok {
		f.Set(operands[0], val)
		return nil
	}

	class, err := f.Machine.Class(operands[1])
	if err != nil {
		return err
	}

	inst, err := f.Machine.Instantiate(class)
	if err != nil {
		return err
	}

	f.Set(operands[0], smali.ObjectRef(inst))
	return nil
}

func checkCast(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[0])
	if err != nil {
		return err
	}

	if val.IsNull() || smali.IsInstance(f.Machine, val, operands[1]) {
		return nil
	}

	return smali.Faultf(smali.ClassCast, "could not cast %s to %s", val.Kind(), operands[1])
}

func instanceOf(f *smali.Frame, operands []string) error {
	val, err := f.Get(operands[1])
	if err != nil {
		return err
	}

	f.Set(operands[0], smali.Bool(smali.IsInstance(f.Machine, val, operands[2])))
	return nil
}
