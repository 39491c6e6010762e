package parser

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/rhino1998/smali/pkg/smali"
)

type parser struct {
	scanner *bufio.Scanner
	line    int
	class   *Class
}

// Parse reads a single class from r. file is only used to label the result.
func Parse(file string, r io.Reader) (*Class, error) {
	p := &parser{
		scanner: bufio.NewScanner(r),
		class:   &Class{File: file},
	}
	p.scanner.Buffer(nil, 1<<20)

	err := p.parseClass()
	if err != nil {
		return nil, err
	}

	return p.class, nil
}

func ParseString(file, src string) (*Class, error) {
	return Parse(file, strings.NewReader(src))
}

// ParseFS parses every file in fsys and reports all failures at once, each
// wrapped in a FileError.
func ParseFS(fsys fs.FS, files ...string) ([]*Class, error) {
	errs := newErrorSet()

	var classes []*Class
	for _, file := range files {
		class, err := parseFile(fsys, file)
		if err != nil {
			errs.Add(FileError{File: file, Err: err})
			continue
		}
		classes = append(classes, class)
	}

	return classes, errs.Defer(nil)
}

func parseFile(fsys fs.FS, file string) (*Class, error) {
	f, err := fsys.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(file, f)
}

// Files lists the .smali files under each dir, sorted.
func Files(fsys fs.FS, dirs ...string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := fs.WalkDir(fsys, dir, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() && path.Ext(name) == ".smali" {
				files = append(files, name)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", dir, err)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

func (p *parser) next() (string, bool) {
	for p.scanner.Scan() {
		p.line++
		text := strings.TrimSpace(stripComment(p.scanner.Text()))
		if text != "" {
			return text, true
		}
	}

	return "", false
}

func (p *parser) errorf(format string, args ...any) error {
	return PositionError{
		Position: Position{Line: p.line},
		Err:      fmt.Errorf(format, args...),
	}
}

func (p *parser) parseClass() error {
	for {
		text, ok := p.next()
		if !ok {
			break
		}

		directive, rest := cut(text)
		switch Directive(directive) {
		case DirectiveClass:
			if p.class.Descriptor != "" {
				return p.errorf("%w: second .class", ErrUnexpectedDirective)
			}
			p.class.Flags, p.class.Descriptor = splitLast(rest)
		case DirectiveSuper:
			p.class.Super = rest
		case DirectiveSource:
			source, err := strconv.Unquote(rest)
			if err != nil {
				return p.errorf("%w: bad .source %s", ErrMalformed, rest)
			}
			p.class.Source = source
		case DirectiveImplements:
			p.class.Interfaces = append(p.class.Interfaces, rest)
		case DirectiveField:
			field, err := p.parseField(rest)
			if err != nil {
				return err
			}
			p.class.Fields = append(p.class.Fields, field)
		case DirectiveMethod:
			method, err := p.parseMethod(rest)
			if err != nil {
				return err
			}
			p.class.Methods = append(p.class.Methods, method)
		case DirectiveAnnotation:
			err := p.skip("annotation")
			if err != nil {
				return err
			}
		case DirectiveEnd:
			// Fields carrying annotations are closed explicitly.
			if rest != "field" {
				return p.errorf("%w: .end %s", ErrUnexpectedDirective, rest)
			}
		default:
			return p.errorf("%w: %s", ErrUnexpectedDirective, directive)
		}
	}

	if err := p.scanner.Err(); err != nil {
		return err
	}

	if p.class.Descriptor == "" {
		return p.errorf("%w: missing .class", ErrMalformed)
	}

	return nil
}

func (p *parser) skip(block string) error {
	start := p.line
	for {
		text, ok := p.next()
		if !ok {
			return PositionError{
				Position: Position{Line: start},
				Err:      fmt.Errorf("%w: .%s", ErrUnterminated, block),
			}
		}

		if text == ".end "+block {
			return nil
		}
	}
}

// parseField reads "flags name:type [= literal]".
func (p *parser) parseField(rest string) (Field, error) {
	decl, init, hasInit := strings.Cut(rest, "=")

	flags, member := splitLast(strings.TrimSpace(decl))
	name, typ, ok := strings.Cut(member, ":")
	if !ok || name == "" || typ == "" {
		return Field{}, p.errorf("%w: bad field %q", ErrMalformed, rest)
	}

	field := Field{
		Name:  name,
		Type:  typ,
		Flags: flags,
		Line:  p.line,
	}

	if hasInit {
		literal := strings.TrimSpace(init)
		_, err := smali.ParseLiteral(literal)
		if err != nil {
			return Field{}, p.errorf("bad initial value for %s: %w", name, err)
		}
		field.Init = &literal
	}

	return field, nil
}

var debugDirectives = map[string]bool{
	".line":     true,
	".prologue": true,
	".epilogue": true,
	".local":    true,
	".restart":  true,
	".param":    true,
	".source":   true,
}

func (p *parser) parseMethod(rest string) (Method, error) {
	flags, sig := splitLast(rest)

	open := strings.Index(sig, "(")
	if open <= 0 {
		return Method{}, p.errorf("%w: bad method %q", ErrMalformed, sig)
	}

	method := Method{
		Name:       sig[:open],
		Descriptor: sig[open:],
		Flags:      flags,
		Line:       p.line,
		Labels:     make(map[string]int),
		Switches:   make(map[string]smali.SwitchTable),
		Arrays:     make(map[string][]smali.Value),
	}

	_, _, err := smali.ParseMethodDescriptor(method.Descriptor)
	if err != nil {
		return Method{}, p.errorf("%w", err)
	}

	// Payload directives belong to the labels written directly above them.
	var pending []string

	for {
		text, ok := p.next()
		if !ok {
			return Method{}, PositionError{
				Position: Position{Line: method.Line},
				Err:      fmt.Errorf("%w: .method %s", ErrUnterminated, method.Signature()),
			}
		}

		if strings.HasPrefix(text, ":") {
			label := smali.LabelName(text)
			if _, ok := method.Labels[label]; ok {
				return Method{}, p.errorf("duplicate label %s", label)
			}
			method.Labels[label] = len(method.Body)
			pending = append(pending, label)
			continue
		}

		if !strings.HasPrefix(text, ".") {
			inst, err := ParseInstruction(text)
			if err != nil {
				return Method{}, p.errorf("%w", err)
			}
			inst.Line = p.line

			method.Body = append(method.Body, inst)
			pending = nil
			continue
		}

		directive, rest := cut(text)
		switch Directive(directive) {
		case DirectiveEnd:
			switch rest {
			case "method":
				return method, nil
			case "local", "param":
			default:
				return Method{}, p.errorf("%w: .end %s", ErrUnexpectedDirective, rest)
			}
		case DirectiveRegisters, DirectiveLocals:
			n, err := strconv.Atoi(rest)
			if err != nil {
				return Method{}, p.errorf("%w: %s %s", ErrMalformed, directive, rest)
			}
			if Directive(directive) == DirectiveRegisters {
				method.Registers = n
			} else {
				method.Locals = n
			}
		case DirectiveAnnotation:
			err := p.skip("annotation")
			if err != nil {
				return Method{}, err
			}
		case DirectivePackedSwitch, DirectiveSparseSwitch, DirectiveArrayData:
			if len(pending) == 0 {
				return Method{}, p.errorf("%s without a label", directive)
			}

			err := p.parsePayload(&method, Directive(directive), rest, pending)
			if err != nil {
				return Method{}, err
			}
			pending = nil
		case DirectiveCatch, DirectiveCatchAll:
			catch, err := p.parseCatch(Directive(directive) == DirectiveCatchAll, rest)
			if err != nil {
				return Method{}, err
			}
			method.Catches = append(method.Catches, catch)
		default:
			if !debugDirectives[directive] {
				return Method{}, p.errorf("%w: %s", ErrUnexpectedDirective, directive)
			}
		}
	}
}

func (p *parser) parsePayload(method *Method, directive Directive, rest string, labels []string) error {
	end := ".end " + strings.TrimPrefix(string(directive), ".")

	var lines []string
	for {
		text, ok := p.next()
		if !ok {
			return p.errorf("%w: %s", ErrUnterminated, directive)
		}
		if text == end {
			break
		}
		lines = append(lines, text)
	}

	switch directive {
	case DirectivePackedSwitch:
		first, err := smali.ParseLiteral(rest)
		if err != nil {
			return p.errorf("bad packed-switch base: %w", err)
		}

		low, ok := first.Integral()
		if !ok {
			return p.errorf("%w: packed-switch base %s", ErrMalformed, rest)
		}

		table := smali.PackedSwitch{First: low}
		for _, text := range lines {
			table.Targets = append(table.Targets, smali.LabelName(text))
		}

		for _, label := range labels {
			method.Switches[label] = table
		}
	case DirectiveSparseSwitch:
		var table smali.SparseSwitch
		for _, text := range lines {
			key, target, ok := strings.Cut(text, "->")
			if !ok {
				return p.errorf("%w: sparse-switch entry %q", ErrMalformed, text)
			}

			val, err := smali.ParseLiteral(strings.TrimSpace(key))
			if err != nil {
				return p.errorf("bad sparse-switch key: %w", err)
			}

			table.Keys = append(table.Keys, val)
			table.Targets = append(table.Targets, smali.LabelName(strings.TrimSpace(target)))
		}

		for _, label := range labels {
			method.Switches[label] = table
		}
	case DirectiveArrayData:
		var data []smali.Value
		for _, text := range lines {
			for _, field := range strings.Fields(text) {
				val, err := smali.ParseLiteral(field)
				if err != nil {
					return p.errorf("bad array-data element: %w", err)
				}
				data = append(data, val)
			}
		}

		for _, label := range labels {
			method.Arrays[label] = data
		}
	}

	return nil
}

// parseCatch reads "[Ltype;] {:start .. :end} :handler".
func (p *parser) parseCatch(all bool, rest string) (Catch, error) {
	catch := Catch{Line: p.line}

	if !all {
		catch.Type, rest = cut(rest)
	}

	open := strings.Index(rest, "{")
	end := strings.Index(rest, "}")
	if open < 0 || end < open {
		return Catch{}, p.errorf("%w: catch range %q", ErrMalformed, rest)
	}

	start, stop, ok := strings.Cut(rest[open+1:end], "..")
	if !ok {
		return Catch{}, p.errorf("%w: catch range %q", ErrMalformed, rest)
	}

	catch.Start = smali.LabelName(strings.TrimSpace(start))
	catch.End = smali.LabelName(strings.TrimSpace(stop))
	catch.Handler = smali.LabelName(strings.TrimSpace(rest[end+1:]))

	if catch.Start == "" || catch.End == "" || catch.Handler == "" {
		return Catch{}, p.errorf("%w: catch %q", ErrMalformed, rest)
	}

	return catch, nil
}

// ParseInstruction splits a line into its mnemonic and operands. Operands are
// separated by commas outside braces and quotes.
func ParseInstruction(text string) (smali.Instruction, error) {
	mnemonic, rest := cut(strings.TrimSpace(stripComment(text)))
	if mnemonic == "" {
		return smali.Instruction{}, fmt.Errorf("%w: empty instruction", ErrMalformed)
	}

	operands, err := splitOperands(rest)
	if err != nil {
		return smali.Instruction{}, err
	}

	return smali.Instruction{
		Mnemonic: mnemonic,
		Operands: operands,
	}, nil
}

func splitOperands(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	var operands []string
	var quote rune
	var escaped bool
	depth := 0
	start := 0

	for i, r := range text {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			switch r {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{':
			depth++
		case r == '}':
			depth--
		case r == ',' && depth == 0:
			operands = append(operands, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}

	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced operands %q", ErrMalformed, text)
	}

	return append(operands, strings.TrimSpace(text[start:])), nil
}

// stripComment drops everything from the first # outside a quoted literal.
func stripComment(line string) string {
	var quote rune
	var escaped bool

	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			switch r {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#':
			return line[:i]
		}
	}

	return line
}

func cut(text string) (string, string) {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, ""
	}

	return text[:i], strings.TrimSpace(text[i:])
}

// splitLast separates leading flags from the final token.
func splitLast(text string) ([]string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ""
	}

	return fields[:len(fields)-1], fields[len(fields)-1]
}
