package smali

import (
	"fmt"
	"strings"
)

type Instruction struct {
	Mnemonic string
	Operands []string
	Line     int
}

func (i Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Mnemonic
	}
	return fmt.Sprintf("%s %s", i.Mnemonic, strings.Join(i.Operands, ", "))
}

// ParseRegisterList expands an invoke register operand: "{v0, v1}",
// "{p0 .. p3}" or "{}".
func ParseRegisterList(operand string) ([]string, error) {
	operand = strings.TrimSpace(operand)
	if !strings.HasPrefix(operand, "{") || !strings.HasSuffix(operand, "}") {
		return nil, Faultf(BadOperands, "invalid register list %q", operand)
	}

	inner := strings.TrimSpace(operand[1 : len(operand)-1])
	if inner == "" {
		return nil, nil
	}

	if first, last, ok := strings.Cut(inner, ".."); ok {
		first, last = strings.TrimSpace(first), strings.TrimSpace(last)
		if len(first) < 2 || len(last) < 2 || first[0] != last[0] {
			return nil, Faultf(BadOperands, "invalid register range %q", operand)
		}

		var lo, hi int
		_, err := fmt.Sscanf(first[1:], "%d", &lo)
		if err != nil {
			return nil, Faultf(BadOperands, "invalid register %q", first)
		}
		_, err = fmt.Sscanf(last[1:], "%d", &hi)
		if err != nil {
			return nil, Faultf(BadOperands, "invalid register %q", last)
		}
		if hi < lo {
			return nil, Faultf(BadOperands, "empty register range %q", operand)
		}

		regs := make([]string, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			regs = append(regs, fmt.Sprintf("%c%d", first[0], n))
		}
		return regs, nil
	}

	var regs []string
	for _, reg := range strings.Split(inner, ",") {
		reg = strings.TrimSpace(reg)
		if reg == "" {
			return nil, Faultf(BadOperands, "invalid register list %q", operand)
		}
		regs = append(regs, reg)
	}

	return regs, nil
}

// MemberRef is a parsed "Lowner;->name:type" or "Lowner;->name(args)ret"
// operand.
type MemberRef struct {
	Owner string
	Name  string
	// Type is the field type for field references and the method descriptor
	// "(args)ret" for method references.
	Type string
}

func (m MemberRef) Signature() string {
	return m.Name + m.Type
}

func ParseFieldRef(operand string) (MemberRef, error) {
	owner, member, ok := strings.Cut(operand, "->")
	if !ok {
		return MemberRef{}, Faultf(BadOperands, "invalid field reference %q", operand)
	}

	name, typ, ok := strings.Cut(member, ":")
	if !ok || name == "" {
		return MemberRef{}, Faultf(BadOperands, "invalid field reference %q", operand)
	}

	return MemberRef{Owner: owner, Name: name, Type: typ}, nil
}

func ParseMethodRef(operand string) (MemberRef, error) {
	owner, member, ok := strings.Cut(operand, "->")
	if !ok {
		return MemberRef{}, Faultf(BadOperands, "invalid method reference %q", operand)
	}

	paren := strings.IndexByte(member, '(')
	if paren <= 0 {
		return MemberRef{}, Faultf(BadOperands, "invalid method reference %q", operand)
	}

	return MemberRef{Owner: owner, Name: member[:paren], Type: member[paren:]}, nil
}
