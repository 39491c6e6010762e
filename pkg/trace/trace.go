// Package trace records the instructions a VM executes as a CBOR sequence.
package trace

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/rhino1998/smali/pkg/vm"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type record struct {
	Seq      int64    `cbor:"1,keyasint"`
	Depth    int      `cbor:"2,keyasint"`
	Class    string   `cbor:"3,keyasint"`
	Method   string   `cbor:"4,keyasint"`
	Pos      int      `cbor:"5,keyasint"`
	Line     int      `cbor:"6,keyasint,omitempty"`
	Mnemonic string   `cbor:"7,keyasint"`
	Operands []string `cbor:"8,keyasint,omitempty"`
}

// Recorder is a vm.Tracer writing one CBOR item per step.
type Recorder struct {
	enc   *cbor.Encoder
	count int64
}

var _ vm.Tracer = (*Recorder)(nil)

func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: encMode.NewEncoder(w)}
}

func (r *Recorder) Step(step vm.Step) error {
	err := r.enc.Encode(record(step))
	if err != nil {
		return fmt.Errorf("trace: failed to record step %d: %w", step.Seq, err)
	}

	r.count++
	return nil
}

// Count is the number of steps recorded so far.
func (r *Recorder) Count() int64 {
	return r.count
}

// Read decodes every step in a recorded sequence.
func Read(rd io.Reader) ([]vm.Step, error) {
	dec := cbor.NewDecoder(rd)

	var steps []vm.Step
	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return steps, nil
		}
		if err != nil {
			return steps, fmt.Errorf("trace: failed to decode step %d: %w", len(steps), err)
		}

		steps = append(steps, vm.Step(rec))
	}
}
