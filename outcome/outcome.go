package outcome

import (
	"fmt"

	"github.com/wippyai/wasm-threadcheck/errors"
)

// Kind separates an explicit exit status from abnormal termination.
type Kind uint8

const (
	// KindExited is an explicit exit status, including 0 for normal completion.
	KindExited Kind = iota
	// KindAborted is abnormal termination: a trap, an unrecovered panic, a signal.
	KindAborted
	// KindTimedOut means the host gave up before the guest terminated.
	KindTimedOut
)

func (k Kind) String() string {
	switch k {
	case KindExited:
		return "exited"
	case KindAborted:
		return "aborted"
	case KindTimedOut:
		return "timed out"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Outcome is how a guest process ended, as observed by its host.
type Outcome struct {
	// Reason describes an abnormal termination (trap message, signal name).
	Reason string
	Kind   Kind
	// Code is the exit status; meaningful only for KindExited.
	Code uint32
}

// Exited is termination with an explicit status.
func Exited(code uint32) Outcome {
	return Outcome{Kind: KindExited, Code: code}
}

// Aborted is abnormal termination.
func Aborted(reason string) Outcome {
	return Outcome{Kind: KindAborted, Reason: reason}
}

// TimedOut is a guest the host had to stop.
func TimedOut() Outcome {
	return Outcome{Kind: KindTimedOut}
}

// Equal compares Kind and, for exits, Code. Reasons are informational.
func (o Outcome) Equal(other Outcome) bool {
	if o.Kind != other.Kind {
		return false
	}
	return o.Kind != KindExited || o.Code == other.Code
}

// Success reports a zero exit status.
func (o Outcome) Success() bool {
	return o.Kind == KindExited && o.Code == 0
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindExited:
		return fmt.Sprintf("exited(%d)", o.Code)
	case KindAborted:
		if o.Reason != "" {
			return "aborted: " + o.Reason
		}
		return "aborted"
	}
	return o.Kind.String()
}

// Expect returns the outcome a conforming host reports for c. Worker
// faults escalate to the whole process, so the _child variants expect the
// same outcome as their main-unit counterparts.
func Expect(c Case) Outcome {
	switch c.Selector {
	case OK, OKChild:
		return Exited(0)
	case Exit, ExitChild:
		return Exited(c.Code)
	case Panic, PanicChild, Unreachable, UnreachableChild:
		return Aborted("")
	}
	panic(fmt.Sprintf("outcome: unhandled selector %d", uint8(c.Selector)))
}

// Verify checks an observed outcome against Expect(c).
func Verify(c Case, observed Outcome) error {
	want := Expect(c)
	if want.Equal(observed) {
		return nil
	}
	err := errors.Mismatch(c.String(), want.String(), observed.String())
	err.Value = observed
	return err
}

// Distinct checks that a host kept abnormal termination observably apart
// from explicit exits: no case expected to abort may have produced the same
// outcome as a case expected to exit. cases and observed are parallel.
func Distinct(cases []Case, observed []Outcome) error {
	if len(cases) != len(observed) {
		return errors.InvalidInput(errors.PhaseVerify,
			fmt.Sprintf("%d cases but %d outcomes", len(cases), len(observed)))
	}
	for i, a := range cases {
		if Expect(a).Kind != KindAborted {
			continue
		}
		for j, e := range cases {
			if Expect(e).Kind != KindExited {
				continue
			}
			if observed[i].Equal(observed[j]) {
				return errors.New(errors.PhaseVerify, errors.KindMismatch).
					Path(a.String(), e.String()).
					Observed(observed[i].String()).
					Detail("abnormal termination indistinguishable from exit").
					Build()
			}
		}
	}
	return nil
}
