package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad        Phase = "load"        // reading guest bytes or executables
	PhaseParse       Phase = "parse"       // wasm binary or argv parsing
	PhaseCompile     Phase = "compile"     // wazero compilation
	PhaseLink        Phase = "link"        // import resolution, host modules
	PhaseInstantiate Phase = "instantiate" // module instantiation
	PhaseRun         Phase = "run"         // guest execution
	PhaseConfig      Phase = "config"      // matrix files, flags
	PhaseVerify      Phase = "verify"      // outcome verification
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData    Kind = "invalid_data"
	KindInvalidInput   Kind = "invalid_input"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindMissingImport  Kind = "missing_import"
	KindMissingExport  Kind = "missing_export"
	KindInstantiation  Kind = "instantiation"
	KindNotInitialized Kind = "not_initialized"
	KindMismatch       Kind = "mismatch"
	KindIO             Kind = "io"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Observed string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasPair := e.Expected != "" || e.Observed != ""
	if hasPair {
		b.WriteString(": expected ")
		b.WriteString(orNone(e.Expected))
		b.WriteString(", observed ")
		b.WriteString(orNone(e.Observed))
	}

	if e.Detail != "" {
		if hasPair {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path (matrix field, case name)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets the expected value rendering
func (b *Builder) Expected(s string) *Builder {
	b.err.Expected = s
	return b
}

// Observed sets the observed value rendering
func (b *Builder) Observed(s string) *Builder {
	b.err.Observed = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Mismatch creates an outcome verification error
func Mismatch(name, expected, observed string) *Error {
	return &Error{
		Phase:    PhaseVerify,
		Kind:     KindMismatch,
		Path:     []string{name},
		Expected: expected,
		Observed: observed,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates a not-initialized error for a missing runtime piece
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// MissingExport creates an error for a guest lacking a required entry point
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("guest does not export %q", name),
	}
}

// Link creates a host module registration error
func Link(module string, cause error) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindInstantiation,
		Detail: fmt.Sprintf("instantiate host module %q", module),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Config creates a configuration error at the given field path
func Config(path []string, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved guest import
type MissingImport struct {
	Module string // e.g., "wasi"
	Name   string // e.g., "thread-spawn"
}

// MissingImportsError is returned when a guest imports functions no host module provides
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module.name" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, name := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module: mod,
			Name:   name,
		})
	}
	return result
}

func parseImportKey(key string) (module, name string) {
	mod, name, found := strings.Cut(key, ".")
	if found {
		return mod, name
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[link] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d host function(s):\n", len(e.Imports))

	// Group by module for cleaner output
	byMod := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byMod[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byMod[imp.Module] = append(byMod[imp.Module], imp.Name)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, name := range byMod[mod] {
			b.WriteString("    - ")
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
