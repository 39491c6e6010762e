package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rhino1998/smali/pkg/smali"
)

// catchable faults are delivered to .catch handlers like thrown values.
func catchable(kind smali.FaultKind) bool {
	switch kind {
	case smali.ClassCast, smali.IndexOutOfBounds, smali.Arithmetic, smali.RuntimeFault:
		return true
	default:
		return false
	}
}

func (v *VM) execute(ctx context.Context, m *Method, f *smali.Frame) (smali.Value, error) {
	debug := v.logger.Handler().Enabled(ctx, slog.LevelDebug)

	for !f.Finished {
		select {
		case <-ctx.Done():
			return smali.Value{}, ctx.Err()
		default:
		}

		// Running off the end of the body returns void.
		if f.Pos >= len(m.body) {
			return smali.Null(), nil
		}

		if v.Config.MaxSteps > 0 && v.steps >= v.Config.MaxSteps {
			return smali.Value{}, fmt.Errorf("%w: %d steps in %s", ErrStepLimit, v.steps, m)
		}
		v.steps++

		pos := f.Pos
		inst := m.body[pos]

		if debug {
			v.logger.Debug("step",
				slog.String("method", m.String()),
				slog.Int("pos", pos),
				slog.Int("line", inst.Line),
				slog.String("inst", inst.String()),
			)
		}

		if v.Config.Tracer != nil {
			err := v.Config.Tracer.Step(newStep(v.steps, v.depth, m, pos, inst))
			if err != nil {
				return smali.Value{}, fmt.Errorf("failed to trace %s: %w", m, err)
			}
		}

		pending, _ := f.Error.AsError()
		f.Label = ""

		err := v.registry.Dispatch(f, inst.Mnemonic, inst.Operands)
		if err != nil {
			var fault *smali.Fault
			if !errors.As(err, &fault) || !catchable(fault.Kind) {
				return smali.Value{}, fmt.Errorf("%s line %d (%s): %w", m, inst.Line, inst.Mnemonic, err)
			}

			f.Error = smali.ErrorRef(fault)
			err = v.unwind(m, f, pos)
			if err != nil {
				return smali.Value{}, err
			}
			continue
		}

		// throw leaves a fresh fault in the error slot.
		if thrown, ok := f.Error.AsError(); ok && thrown != pending {
			err = v.unwind(m, f, pos)
			if err != nil {
				return smali.Value{}, err
			}
			continue
		}

		if f.Label == "" && !f.Finished {
			f.Pos++
		}
	}

	return f.ReturnValue, nil
}

// unwind jumps to the first handler whose range covers pos and whose type
// matches the pending error.
func (v *VM) unwind(m *Method, f *smali.Frame, pos int) error {
	fault, _ := f.Error.AsError()

	for _, c := range m.catches {
		if pos < c.start || pos >= c.end {
			continue
		}

		if c.typ != "" && !smali.IsInstance(v, f.Error, c.typ) {
			continue
		}

		v.logger.Debug("caught",
			slog.String("method", m.String()),
			slog.String("fault", string(fault.Kind)),
			slog.String("handler", c.handler),
		)

		return f.Jump(c.handler)
	}

	return fmt.Errorf("uncaught %w in %s", fault, m)
}
