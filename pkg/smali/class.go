package smali

import (
	"context"
)

// Cell is a mutable field slot. Writes replace Value wholesale.
type Cell struct {
	Value Value
}

type Class interface {
	// Descriptor is the class type descriptor, e.g. "Lcom/example/Foo;".
	Descriptor() string
	// Super is the descriptor of the direct superclass, or "" for a root.
	Super() string
	Method(signature string) (Method, bool)
	Field(name string) (*Cell, bool)
}

type Method interface {
	Class() Class
	// Signature is name plus descriptor, e.g. "add(II)I".
	Signature() string
	Static() bool
}

// Instance is a dynamic object. Fields are addressed by name.
type Instance interface {
	Class() Class
	Get(name string) (Value, bool)
	Set(name string, val Value)
	HashCode() int32
}

// Machine is what the opcode handlers need from the surrounding VM.
type Machine interface {
	Class(descriptor string) (Class, error)
	// Instantiate allocates an instance with every field at its default.
	Instantiate(class Class) (Instance, error)
	// Call runs target. For static targets receiver is Null and ignored.
	Call(ctx context.Context, target Method, receiver Value, args ...Value) (Value, error)
}

var throwableClasses = map[string]bool{
	"Ljava/lang/Throwable;":        true,
	"Ljava/lang/Exception;":        true,
	"Ljava/lang/RuntimeException;": true,
}

// IsInstance reports whether val is assignable to descriptor. Object classes
// are matched by walking the superclass chain through m.
func IsInstance(m Machine, val Value, descriptor string) bool {
	if val.IsNull() {
		return false
	}

	if descriptor == "Ljava/lang/Object;" {
		return true
	}

	switch val.Kind() {
	case KindString:
		return descriptor == "Ljava/lang/String;" || descriptor == "Ljava/lang/CharSequence;"
	case KindClass:
		return descriptor == "Ljava/lang/Class;"
	case KindArray:
		return ParseType(descriptor).IsArray()
	case KindError:
		fault, _ := val.AsError()
		if throwableClasses[descriptor] || fault.Kind.JavaClass() == descriptor {
			return true
		}
		return fault.Kind == RuntimeFault && fault.Payload.Kind() != KindError && IsInstance(m, fault.Payload, descriptor)
	case KindObject:
		inst, _ := val.AsObject()
		return isSubclass(m, inst.Class(), descriptor)
	default:
		return false
	}
}

func isSubclass(m Machine, class Class, descriptor string) bool {
	for depth := 0; class != nil && depth < maxHierarchyDepth; depth++ {
		if class.Descriptor() == descriptor {
			return true
		}

		super := class.Super()
		if super == "" {
			return false
		}
		if super == descriptor {
			return true
		}

		next, err := m.Class(super)
		if err != nil {
			return false
		}
		class = next
	}

	return false
}

const maxHierarchyDepth = 256
