package smali

import (
	"math"
	"strconv"
	"strings"
)

// ParseLiteral converts a smali literal token into a Value.
func ParseLiteral(text string) (Value, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Value{}, Faultf(BadOperands, "empty literal")
	}

	switch text {
	case "null":
		return Null(), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	switch text[0] {
	case '"':
		s, err := strconv.Unquote(strings.ReplaceAll(text, `\'`, `'`))
		if err != nil {
			return Value{}, Faultf(BadOperands, "invalid string literal %s", text)
		}
		return String(s), nil
	case '\'':
		s, err := strconv.Unquote(text)
		if err != nil {
			return Value{}, Faultf(BadOperands, "invalid char literal %s", text)
		}
		return String(s), nil
	}

	if f, ok := parseFloatLiteral(text); ok {
		return Float(f), nil
	}

	i, err := parseIntLiteral(text)
	if err != nil {
		return Value{}, err
	}

	return Int(i), nil
}

func parseFloatLiteral(text string) (float64, bool) {
	body := strings.TrimPrefix(strings.TrimPrefix(text, "-"), "+")
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		return 0, false
	}

	trimmed := strings.TrimRight(text, "fFdD")
	switch strings.TrimLeft(trimmed, "+-") {
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		if strings.HasPrefix(trimmed, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	if trimmed == text && !strings.ContainsAny(text, ".eE") {
		return 0, false
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

func parseIntLiteral(text string) (int64, error) {
	digits := strings.TrimRight(text, "lLtTsS")

	negative := false
	switch {
	case strings.HasPrefix(digits, "-"):
		negative = true
		digits = digits[1:]
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}

	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	}

	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, Faultf(BadOperands, "invalid integer literal %s", text)
	}

	if negative {
		return -int64(u), nil
	}

	return int64(u), nil
}

// Type is a field, parameter or array type descriptor.
type Type struct {
	Descriptor string
}

func ParseType(descriptor string) Type {
	return Type{Descriptor: strings.TrimSpace(descriptor)}
}

func (t Type) String() string {
	return t.Descriptor
}

func (t Type) Dims() int {
	return len(t.Descriptor) - len(strings.TrimLeft(t.Descriptor, "["))
}

func (t Type) IsArray() bool {
	return strings.HasPrefix(t.Descriptor, "[")
}

// Elem strips one array dimension.
func (t Type) Elem() Type {
	return Type{Descriptor: strings.TrimPrefix(t.Descriptor, "[")}
}

// Base strips every array dimension.
func (t Type) Base() Type {
	return Type{Descriptor: strings.TrimLeft(t.Descriptor, "[")}
}

func (t Type) IsPrimitive() bool {
	return len(t.Descriptor) == 1 && strings.Contains("ZBSCIJFDV", t.Descriptor)
}

func (t Type) IsIntegral() bool {
	return len(t.Descriptor) == 1 && strings.Contains("BSCIJ", t.Descriptor)
}

func (t Type) IsFloating() bool {
	return t.Descriptor == "F" || t.Descriptor == "D"
}

// IsWide types occupy two registers.
func (t Type) IsWide() bool {
	return t.Descriptor == "J" || t.Descriptor == "D"
}

// Zero is the default value of a field of this type.
func (t Type) Zero() Value {
	switch {
	case t.IsIntegral():
		return Int(0)
	case t.IsFloating():
		return Float(0)
	case t.Descriptor == "Z":
		return Bool(false)
	default:
		return Null()
	}
}

var primitiveNames = map[string]string{
	"Z": "boolean",
	"B": "byte",
	"S": "short",
	"C": "char",
	"I": "int",
	"J": "long",
	"F": "float",
	"D": "double",
	"V": "void",
}

// JavaName renders "Lcom/example/Foo;" as "com.example.Foo" and "[I" as
// "int[]".
func (t Type) JavaName() string {
	base := t.Base().Descriptor
	name, ok := primitiveNames[base]
	if !ok {
		name = strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(base, "L"), ";"), "/", ".")
	}

	return name + strings.Repeat("[]", t.Dims())
}

func (t Type) SimpleName() string {
	name := t.JavaName()
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ParseMethodDescriptor splits "(I[JLjava/lang/String;)V" into parameter and
// return types.
func ParseMethodDescriptor(descriptor string) ([]Type, Type, error) {
	if !strings.HasPrefix(descriptor, "(") {
		return nil, Type{}, Faultf(BadOperands, "invalid method descriptor %q", descriptor)
	}

	end := strings.IndexByte(descriptor, ')')
	if end < 0 {
		return nil, Type{}, Faultf(BadOperands, "invalid method descriptor %q", descriptor)
	}

	var params []Type
	rest := descriptor[1:end]
	for len(rest) > 0 {
		i := 0
		for i < len(rest) && rest[i] == '[' {
			i++
		}
		if i == len(rest) {
			return nil, Type{}, Faultf(BadOperands, "invalid method descriptor %q", descriptor)
		}

		if rest[i] == 'L' {
			semi := strings.IndexByte(rest[i:], ';')
			if semi < 0 {
				return nil, Type{}, Faultf(BadOperands, "invalid method descriptor %q", descriptor)
			}
			i += semi
		}

		params = append(params, Type{Descriptor: rest[:i+1]})
		rest = rest[i+1:]
	}

	return params, ParseType(descriptor[end+1:]), nil
}
