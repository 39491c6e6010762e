package vm

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/rhino1998/smali/pkg/executor"
	"github.com/rhino1998/smali/pkg/parser"
	"github.com/rhino1998/smali/pkg/smali"
	"github.com/rhino1998/smali/pkg/topological"
)

var (
	ErrStackOverflow  = fmt.Errorf("stack overflow")
	ErrStepLimit      = fmt.Errorf("step limit exceeded")
	ErrDuplicateClass = fmt.Errorf("duplicate class")
)

const InitializerSignature = "<clinit>()V"

// VM holds the loaded program and runs methods of it. A VM executes one call
// tree at a time; use a VM per goroutine.
type VM struct {
	logger   *slog.Logger
	Config   Config
	registry *executor.Registry

	classes   map[string]*Class
	synthetic map[string]bool
	unlinked  []*Class

	steps int64
	depth int
}

func New(logger *slog.Logger, config Config) (*VM, error) {
	err := config.Validate(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to validate vm config: %w", err)
	}

	return &VM{
		logger:    logger,
		Config:    config,
		registry:  executor.Default(),
		classes:   make(map[string]*Class),
		synthetic: make(map[string]bool),
	}, nil
}

// Load adds classes to the VM and initializes their static fields. Static
// initializers run on the next Link.
func (v *VM) Load(classes ...*parser.Class) error {
	for _, def := range classes {
		if prev, ok := v.classes[def.Descriptor]; ok && !v.synthetic[def.Descriptor] {
			return fmt.Errorf("%w: %s in %s, already loaded from %s", ErrDuplicateClass, def.Descriptor, def.File, prev.file)
		}

		class := &Class{
			vm:      v,
			desc:    def.Descriptor,
			super:   def.Super,
			file:    def.File,
			methods: make(map[string]*Method),
			statics: make(map[string]*smali.Cell),
			fields:  def.Instance(),
		}

		for _, field := range def.Static() {
			val, err := field.Value()
			if err != nil {
				return fmt.Errorf("failed to initialize %s->%s: %w", def.Descriptor, field.Name, err)
			}
			class.statics[field.Name] = &smali.Cell{Value: val}
		}

		for _, md := range def.Methods {
			m, err := newMethod(class, md)
			if err != nil {
				return fmt.Errorf("failed to load %s->%s: %w", def.Descriptor, md.Signature(), err)
			}

			if _, ok := class.methods[m.Signature()]; ok {
				return fmt.Errorf("duplicate method %s", m)
			}
			class.methods[m.Signature()] = m
		}

		v.classes[class.desc] = class
		delete(v.synthetic, class.desc)
		v.unlinked = append(v.unlinked, class)

		v.logger.Debug("loaded class",
			slog.String("class", class.desc),
			slog.String("super", class.super),
			slog.String("file", class.file),
			slog.Int("methods", len(class.methods)),
		)
	}

	return nil
}

// Link runs the static initializers of every class loaded since the last
// Link, superclasses first.
func (v *VM) Link(ctx context.Context) error {
	order, err := topological.SortFunc(v.unlinked,
		func(c *Class) string { return c.desc },
		func(c *Class) []*Class {
			if super, ok := v.classes[c.super]; ok {
				return []*Class{super}
			}
			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("failed to order classes: %w", err)
	}

	v.unlinked = nil

	for _, class := range order {
		clinit, ok := class.methods[InitializerSignature]
		if !ok {
			continue
		}

		v.logger.Debug("initializing class", slog.String("class", class.desc))

		_, err := v.Call(ctx, clinit, smali.Null())
		if err != nil {
			return fmt.Errorf("failed to initialize %s: %w", class.desc, err)
		}
	}

	return nil
}

// Classes returns the descriptors of every class loaded from source, sorted.
func (v *VM) Classes() []string {
	var descs []string
	for desc := range maps.Keys(v.classes) {
		if !v.synthetic[desc] {
			descs = append(descs, desc)
		}
	}

	slices.Sort(descs)
	return descs
}

var platformPrefixes = []string{"Ljava/", "Ljavax/", "Landroid/", "Ldalvik/", "Lkotlin/"}

func (v *VM) Class(descriptor string) (smali.Class, error) {
	class, err := v.lookup(descriptor)
	if err != nil {
		return nil, err
	}

	return class, nil
}

func (v *VM) lookup(descriptor string) (*Class, error) {
	if class, ok := v.classes[descriptor]; ok {
		return class, nil
	}

	typ := smali.ParseType(descriptor)
	platform := typ.IsArray() || typ.IsPrimitive() || slices.ContainsFunc(platformPrefixes, func(prefix string) bool {
		return strings.HasPrefix(descriptor, prefix)
	})
	if !platform {
		return nil, smali.Faultf(smali.NoSuchClass, "class %s not found", descriptor)
	}

	super := executor.ObjectClass
	if descriptor == executor.ObjectClass || typ.IsPrimitive() {
		super = ""
	}

	class := &Class{
		vm:      v,
		desc:    descriptor,
		super:   super,
		methods: make(map[string]*Method),
		statics: make(map[string]*smali.Cell),
	}

	v.classes[descriptor] = class
	v.synthetic[descriptor] = true

	return class, nil
}

// Instantiate allocates an instance of class with the fields of class and all
// of its superclasses at their initial values.
func (v *VM) Instantiate(class smali.Class) (smali.Instance, error) {
	c, ok := class.(*Class)
	if !ok {
		return nil, fmt.Errorf("cannot instantiate foreign class %s", class.Descriptor())
	}

	inst := &Instance{
		id:     uuid.New(),
		class:  c,
		fields: make(map[string]smali.Value),
	}

	chain := slices.Collect(c.hierarchy())
	slices.Reverse(chain)

	for _, class := range chain {
		for _, field := range class.fields {
			val, err := field.Value()
			if err != nil {
				return nil, fmt.Errorf("failed to initialize %s->%s: %w", class.desc, field.Name, err)
			}
			inst.fields[field.Name] = val
		}
	}

	return inst, nil
}

// Call runs target in a new frame. The receiver is bound to p0 for instance
// methods and the arguments follow it; wide parameters take two registers.
func (v *VM) Call(ctx context.Context, target smali.Method, receiver smali.Value, args ...smali.Value) (smali.Value, error) {
	m, ok := target.(*Method)
	if !ok {
		return smali.Value{}, fmt.Errorf("cannot call foreign method %s", target.Signature())
	}

	if len(args) != len(m.params) {
		return smali.Value{}, smali.Faultf(smali.BadOperands, "%s expects %d arguments, got %d", m, len(m.params), len(args))
	}

	if v.depth >= v.Config.MaxDepth {
		return smali.Value{}, fmt.Errorf("%w calling %s at depth %d", ErrStackOverflow, m, v.depth)
	}

	v.depth++
	defer func() { v.depth-- }()

	f := smali.NewFrame(ctx, v)
	f.Labels = m.labels
	f.SwitchData = m.switches
	f.ArrayData = m.arrays

	reg := 0
	if !m.static {
		f.Set("p0", receiver)
		reg++
	}

	for i, param := range m.params {
		f.Set(fmt.Sprintf("p%d", reg), args[i])
		reg++
		if param.IsWide() {
			reg++
		}
	}

	return v.execute(ctx, m, f)
}

// Run links anything pending and calls sig on the entry class. Parameters are
// passed as empty arrays or type defaults, and instance methods run against a
// fresh instance.
func (v *VM) Run(ctx context.Context, entry, sig string) (smali.Value, error) {
	if len(v.unlinked) > 0 {
		err := v.Link(ctx)
		if err != nil {
			return smali.Value{}, err
		}
	}

	class, err := v.lookup(entry)
	if err != nil {
		return smali.Value{}, err
	}

	target, ok := class.Method(sig)
	if !ok {
		return smali.Value{}, smali.Faultf(smali.NoSuchMethod, "%s->%s", entry, sig)
	}

	m := target.(*Method)

	receiver := smali.Null()
	if !m.static {
		inst, err := v.Instantiate(class)
		if err != nil {
			return smali.Value{}, err
		}
		receiver = smali.ObjectRef(inst)
	}

	args := make([]smali.Value, len(m.params))
	for i, param := range m.params {
		if param.IsArray() {
			args[i] = smali.ArrayRef(smali.NewArray())
		} else {
			args[i] = param.Zero()
		}
	}

	v.steps = 0

	v.logger.Debug("running", slog.String("method", m.String()))

	return v.Call(ctx, m, receiver, args...)
}

// Steps is the number of instructions executed by the current or last Run.
func (v *VM) Steps() int64 {
	return v.steps
}
