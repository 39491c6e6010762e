package executor

import (
	"hash/fnv"

	"github.com/rhino1998/smali/pkg/smali"
)

const (
	ObjectClass = "Ljava/lang/Object;"
	ClassClass  = "Ljava/lang/Class;"
)

type nativeFunc func(receiver smali.Value) (smali.Value, error)

var nativeBridges = map[string]map[string]nativeFunc{
	ObjectClass: {
		"toString()Ljava/lang/String;": func(receiver smali.Value) (smali.Value, error) {
			return smali.String(receiver.String()), nil
		},
		"<init>()V": func(receiver smali.Value) (smali.Value, error) {
			return receiver, nil
		},
		"hashCode()I": func(receiver smali.Value) (smali.Value, error) {
			if inst, ok := receiver.AsObject(); ok {
				return smali.Int(int64(inst.HashCode())), nil
			}

			h := fnv.New32a()
			_, _ = h.Write([]byte(receiver.GoString()))
			return smali.Int(int64(int32(h.Sum32()))), nil
		},
		"getClass()Ljava/lang/Class;": func(receiver smali.Value) (smali.Value, error) {
			inst, ok := receiver.AsObject()
			if !ok {
				return smali.Value{}, smali.Faultf(smali.ClassCast, "could not cast %s to object", receiver.Kind())
			}

			return smali.ClassRef(inst.Class()), nil
		},
	},
	ClassClass: {
		"getSimpleName()Ljava/lang/String;": func(receiver smali.Value) (smali.Value, error) {
			class, ok := receiver.AsClass()
			if !ok {
				return smali.Value{}, smali.Faultf(smali.ClassCast, "could not cast %s to class", receiver.Kind())
			}

			return smali.String(smali.ParseType(class.Descriptor()).SimpleName()), nil
		},
		"getName()Ljava/lang/String;": func(receiver smali.Value) (smali.Value, error) {
			class, ok := receiver.AsClass()
			if !ok {
				return smali.Value{}, smali.Faultf(smali.ClassCast, "could not cast %s to class", receiver.Kind())
			}

			return smali.String(smali.ParseType(class.Descriptor()).JavaName()), nil
		},
	},
}

// IsNative reports whether descriptor names one of the built-in bridge
// classes rather than a loaded class.
func IsNative(descriptor string) bool {
	_, ok := nativeBridges[descriptor]
	return ok
}
