package executor

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/rhino1998/smali/pkg/smali"
)

// Handler executes one instruction against f. Handlers must not keep state
// between calls: one Handler serves every frame, including nested and
// concurrent ones.
type Handler func(f *smali.Frame, operands []string) error

type Opcode struct {
	Name    string
	Aliases []string
	Handler Handler
}

func (o *Opcode) String() string {
	return o.Name
}

type Registry struct {
	opcodes map[string]*Opcode
	frozen  bool
}

func NewRegistry() *Registry {
	return &Registry{
		opcodes: make(map[string]*Opcode),
	}
}

// Register binds handler to name and every alias. Registering a name again
// replaces the earlier binding.
func (r *Registry) Register(name string, aliases []string, handler Handler) *Opcode {
	if r.frozen {
		panic(fmt.Sprintf("executor: register %q on a frozen registry", name))
	}

	op := &Opcode{
		Name:    name,
		Aliases: slices.Clone(aliases),
		Handler: handler,
	}

	r.opcodes[name] = op
	for _, alias := range aliases {
		r.opcodes[alias] = op
	}

	return op
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() *Registry {
	r.frozen = true
	return r
}

func (r *Registry) Lookup(name string) (*Opcode, error) {
	op, ok := r.opcodes[name]
	if !ok {
		return nil, smali.Faultf(smali.UnknownOpcode, "could not find executor for opcode: %s", name)
	}

	return op, nil
}

// Dispatch runs the handler bound to name. All effects land in f.
func (r *Registry) Dispatch(f *smali.Frame, name string, operands []string) error {
	op, err := r.Lookup(name)
	if err != nil {
		return err
	}

	return op.Handler(f, operands)
}

// Opcodes returns every distinct opcode, ordered by canonical name.
func (r *Registry) Opcodes() []*Opcode {
	seen := make(map[*Opcode]struct{})
	var ops []*Opcode
	for _, op := range r.opcodes {
		if _, ok := seen[op]; ok {
			continue
		}
		seen[op] = struct{}{}
		ops = append(ops, op)
	}

	slices.SortFunc(ops, func(a, b *Opcode) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return ops
}

// Names returns every mnemonic currently bound to op, canonical name first.
func (r *Registry) Names(op *Opcode) []string {
	var aliases []string
	for name, bound := range r.opcodes {
		if bound == op && name != op.Name {
			aliases = append(aliases, name)
		}
	}
	slices.Sort(aliases)

	if r.opcodes[op.Name] == op {
		return append([]string{op.Name}, aliases...)
	}

	return aliases
}

// Default is the process-wide registry holding every supported opcode. It is
// built on first use and frozen.
var Default = sync.OnceValue(func() *Registry {
	r := NewRegistry()

	registerMove(r)
	registerControl(r)
	registerInvoke(r)
	registerFields(r)
	registerArithmetic(r)
	registerConversions(r)
	registerArrays(r)
	registerObjects(r)

	return r.Freeze()
})

// Dispatch runs an instruction through the Default registry.
func Dispatch(f *smali.Frame, name string, operands []string) error {
	return Default().Dispatch(f, name, operands)
}
