package harness

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/outcome"
)

// DefaultTimeout bounds each case when a matrix does not set one.
const DefaultTimeout = 10 * time.Second

var validate = validator.New()

// Duration is a time.Duration written as a Go duration string ("1500ms").
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Per-case timeout as a Go duration, e.g. 10s or 1500ms.",
	}
}

// CaseSpec is one case of a matrix file.
type CaseSpec struct {
	Selector *outcome.Selector `yaml:"selector" json:"selector" validate:"required"`
	Code     *uint32           `yaml:"code,omitempty" json:"code,omitempty" validate:"omitempty,lte=255" jsonschema:"minimum=0,maximum=255,description=Exit status; required for exit and exit_child."`
}

// NewCaseSpec is the matrix form of c.
func NewCaseSpec(c outcome.Case) CaseSpec {
	sel := c.Selector
	cs := CaseSpec{Selector: &sel}
	if sel.NeedsCode() {
		code := c.Code
		cs.Code = &code
	}
	return cs
}

// Case converts s to an outcome case. Exit selectors require a code and
// the others reject one.
func (s CaseSpec) Case() (outcome.Case, error) {
	if s.Selector == nil {
		return outcome.Case{}, errors.Config([]string{"selector"}, "selector is required", nil)
	}
	sel := *s.Selector
	if !sel.Valid() {
		return outcome.Case{}, errors.Config([]string{"selector"}, fmt.Sprintf("unknown selector %d", uint8(sel)), nil)
	}
	switch {
	case sel.NeedsCode() && s.Code == nil:
		return outcome.Case{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(sel.String(), "code").
			Detail("exit selectors require a code").
			Build()
	case !sel.NeedsCode() && s.Code != nil:
		return outcome.Case{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(sel.String(), "code").
			Value(*s.Code).
			Detail("code is only valid for exit selectors").
			Build()
	}
	c := outcome.Case{Selector: sel}
	if s.Code != nil {
		if *s.Code > outcome.MaxCode {
			return outcome.Case{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(sel.String(), "code").
				Value(*s.Code).
				Detail("exit status out of range 0..%d", outcome.MaxCode).
				Build()
		}
		c.Code = *s.Code
	}
	return c, nil
}

// Matrix is a named list of cases run with one per-case timeout.
type Matrix struct {
	Name    string     `yaml:"name" json:"name" validate:"required" jsonschema:"description=Matrix name shown in reports."`
	Timeout Duration   `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"gte=0"`
	Cases   []CaseSpec `yaml:"cases" json:"cases" validate:"required,min=1,dive" jsonschema:"minItems=1"`
}

// DefaultMatrix is the full selector vocabulary with the reference exit
// statuses 42 and 43.
func DefaultMatrix() Matrix {
	m := Matrix{Name: "default", Timeout: Duration(DefaultTimeout)}
	for _, sel := range outcome.Selectors {
		c := outcome.Case{Selector: sel}
		switch sel {
		case outcome.Exit:
			c.Code = 42
		case outcome.ExitChild:
			c.Code = 43
		}
		m.Cases = append(m.Cases, NewCaseSpec(c))
	}
	return m
}

// Validate checks struct tags and selector/code consistency, filling in
// the default timeout.
func (m *Matrix) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Config(strings.Split(fe.Namespace(), "."),
				fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()), err)
		}
		return errors.Config(nil, "invalid matrix", err)
	}
	for i, cs := range m.Cases {
		if _, err := cs.Case(); err != nil {
			return errors.Config([]string{"Matrix", fmt.Sprintf("Cases[%d]", i)}, "invalid case", err)
		}
	}
	if m.Timeout == 0 {
		m.Timeout = Duration(DefaultTimeout)
	}
	return nil
}

// Parse decodes and validates a matrix document. Unknown fields are errors.
func Parse(data []byte) (Matrix, error) {
	var m Matrix
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if stderrors.Is(err, io.EOF) {
			return Matrix{}, errors.Config(nil, "empty matrix document", nil)
		}
		return Matrix{}, errors.ParseFailed("matrix", err)
	}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// LoadMatrix reads and parses a matrix file.
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return Matrix{}, errors.NotFound(errors.PhaseLoad, "matrix", path)
	}
	if err != nil {
		return Matrix{}, errors.Load("read matrix "+path, err)
	}
	return Parse(data)
}
