package smali

import (
	"fmt"
)

type FaultKind string

const (
	UnknownOpcode    FaultKind = "UnknownOpcodeError"
	BadOperands      FaultKind = "BadOperandsError"
	NoSuchLabel      FaultKind = "NoSuchLabelError"
	NoSuchMethod     FaultKind = "NoSuchMethodError"
	NoSuchClass      FaultKind = "NoSuchClassError"
	NoSuchField      FaultKind = "NoSuchFieldError"
	NoSuchRegister   FaultKind = "NoSuchRegisterError"
	ClassCast        FaultKind = "ClassCastError"
	IndexOutOfBounds FaultKind = "IndexOutOfBoundsError"
	Arithmetic       FaultKind = "ArithmeticError"
	RuntimeFault     FaultKind = "RuntimeError"
)

// Fatal kinds point at a decoder or configuration defect rather than at the
// program being executed; they are never routed to catch handlers.
func (k FaultKind) Fatal() bool {
	return k == UnknownOpcode || k == BadOperands
}

// JavaClass is the exception class descriptor a catch clause matches the
// fault against.
func (k FaultKind) JavaClass() string {
	switch k {
	case ClassCast:
		return "Ljava/lang/ClassCastException;"
	case IndexOutOfBounds:
		return "Ljava/lang/ArrayIndexOutOfBoundsException;"
	case Arithmetic:
		return "Ljava/lang/ArithmeticException;"
	case NoSuchMethod:
		return "Ljava/lang/NoSuchMethodError;"
	case NoSuchField:
		return "Ljava/lang/NoSuchFieldError;"
	case NoSuchClass:
		return "Ljava/lang/NoClassDefFoundError;"
	default:
		return "Ljava/lang/RuntimeException;"
	}
}

var (
	ErrUnknownOpcode    = &Fault{Kind: UnknownOpcode}
	ErrBadOperands      = &Fault{Kind: BadOperands}
	ErrNoSuchLabel      = &Fault{Kind: NoSuchLabel}
	ErrNoSuchMethod     = &Fault{Kind: NoSuchMethod}
	ErrNoSuchClass      = &Fault{Kind: NoSuchClass}
	ErrNoSuchField      = &Fault{Kind: NoSuchField}
	ErrNoSuchRegister   = &Fault{Kind: NoSuchRegister}
	ErrClassCast        = &Fault{Kind: ClassCast}
	ErrIndexOutOfBounds = &Fault{Kind: IndexOutOfBounds}
	ErrArithmetic       = &Fault{Kind: Arithmetic}
	ErrRuntimeFault     = &Fault{Kind: RuntimeFault}
)

// Fault is the error every opcode handler raises. RuntimeFault carries the
// thrown Value in Payload.
type Fault struct {
	Kind    FaultKind
	Message string
	Payload Value
}

func Faultf(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Thrown wraps a Value raised by the program. Rethrowing a caught fault yields
// a fresh copy of it.
func Thrown(val Value) *Fault {
	if caught, ok := val.AsError(); ok {
		rethrown := *caught
		return &rethrown
	}

	return &Fault{
		Kind:    RuntimeFault,
		Message: val.String(),
		Payload: val,
	}
}

func (f *Fault) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Is matches any fault of the same kind, so the Err* sentinels work with
// errors.Is.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}

	return t.Kind == f.Kind
}
