package outcome

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/wippyai/wasm-threadcheck/errors"
)

// Selector names one behaviour of the check guest.
type Selector uint8

const (
	Unreachable Selector = iota
	UnreachableChild
	Exit
	ExitChild
	Panic
	PanicChild
	OK
	OKChild
)

// Selectors lists every selector in check order.
var Selectors = []Selector{
	Unreachable, UnreachableChild,
	Exit, ExitChild,
	Panic, PanicChild,
	OK, OKChild,
}

// MaxCode is the largest exit status every host can report faithfully.
const MaxCode = 255

func (s Selector) String() string {
	switch s {
	case Unreachable:
		return "unreachable"
	case UnreachableChild:
		return "unreachable_child"
	case Exit:
		return "exit"
	case ExitChild:
		return "exit_child"
	case Panic:
		return "panic"
	case PanicChild:
		return "panic_child"
	case OK:
		return "ok"
	case OKChild:
		return "ok_child"
	}
	return fmt.Sprintf("selector(%d)", uint8(s))
}

// ParseSelector maps a wire name to its selector.
func ParseSelector(name string) (Selector, error) {
	for _, s := range Selectors {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, errors.New(errors.PhaseParse, errors.KindInvalidInput).
		Value(name).
		Detail("unknown selector %q", name).
		Build()
}

// Valid reports whether s is one of the defined selectors.
func (s Selector) Valid() bool {
	return s <= OKChild
}

// NeedsCode reports whether the selector takes an exit status argument.
func (s Selector) NeedsCode() bool {
	return s == Exit || s == ExitChild
}

// MarshalText encodes the wire name.
func (s Selector) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.InvalidInput(errors.PhaseParse, s.String())
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire name.
func (s *Selector) UnmarshalText(text []byte) error {
	v, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// JSONSchema describes a selector as its wire name.
func (Selector) JSONSchema() *jsonschema.Schema {
	enum := make([]any, len(Selectors))
	for i, sel := range Selectors {
		enum[i] = sel.String()
	}
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        enum,
		Description: "Guest behaviour; exit and exit_child take a code.",
	}
}

// Case is one selector invocation, with the exit status for exit selectors.
type Case struct {
	Selector Selector
	Code     uint32
}

// ParseCase reads a case from guest argv: args[0] is the selector and,
// for exit selectors, args[1] is the decimal status.
func ParseCase(args []string) (Case, error) {
	if len(args) == 0 {
		return Case{}, errors.InvalidInput(errors.PhaseParse, "missing selector argument")
	}
	sel, err := ParseSelector(args[0])
	if err != nil {
		return Case{}, err
	}
	c := Case{Selector: sel}
	if !sel.NeedsCode() {
		return c, nil
	}
	if len(args) < 2 {
		return Case{}, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Path(sel.String()).
			Detail("missing exit status argument").
			Build()
	}
	code, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return Case{}, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Path(sel.String()).
			Value(args[1]).
			Cause(err).
			Detail("exit status %q is not a decimal number", args[1]).
			Build()
	}
	if code > MaxCode {
		return Case{}, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Path(sel.String()).
			Value(code).
			Detail("exit status %d out of range 0..%d", code, MaxCode).
			Build()
	}
	c.Code = uint32(code)
	return c, nil
}

// MustParseCase parses a space separated case such as "exit 42".
func MustParseCase(s string) Case {
	c, err := ParseCase(strings.Fields(s))
	if err != nil {
		panic(err)
	}
	return c
}

// Args renders the case back to guest argv.
func (c Case) Args() []string {
	if c.Selector.NeedsCode() {
		return []string{c.Selector.String(), strconv.FormatUint(uint64(c.Code), 10)}
	}
	return []string{c.Selector.String()}
}

func (c Case) String() string {
	return strings.Join(c.Args(), " ")
}
