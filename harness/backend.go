package harness

import (
	"context"
	"io"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/native"
	"github.com/wippyai/wasm-threadcheck/outcome"
	"github.com/wippyai/wasm-threadcheck/runtime"
)

// Backend runs one case in an isolated guest and reports how it ended.
// Guest outcomes are values; the error is reserved for host failures.
type Backend interface {
	Run(ctx context.Context, c outcome.Case) (outcome.Outcome, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, c outcome.Case) (outcome.Outcome, error)

func (f BackendFunc) Run(ctx context.Context, c outcome.Case) (outcome.Outcome, error) {
	return f(ctx, c)
}

// WasmBackend runs cases on the wazero host. With no Guest it synthesizes
// a wasi-threads guest per case; otherwise Guest is a wasip1-threads
// module that reads the case from its argv.
type WasmBackend struct {
	Runtime *runtime.Runtime
	Guest   []byte
	// Program is argv[0] for Guest; defaults to "threadcheck". NoProgram
	// passes the case argv unchanged, for guests that read the selector
	// from argv[0].
	Program string
	Stdout  io.Writer
	Stderr  io.Writer
	// Trace receives a log of every host function call when set.
	Trace io.Writer
}

// NoProgram as WasmBackend.Program omits the program name from guest argv.
const NoProgram = "-"

func (b *WasmBackend) guestArgs(c outcome.Case) []string {
	switch b.Program {
	case NoProgram:
		return c.Args()
	case "":
		return append([]string{"threadcheck"}, c.Args()...)
	default:
		return append([]string{b.Program}, c.Args()...)
	}
}

func (b *WasmBackend) Run(ctx context.Context, c outcome.Case) (outcome.Outcome, error) {
	if b.Runtime == nil {
		return outcome.Outcome{}, errors.NotInitialized(errors.PhaseRun, "wasm backend runtime")
	}
	cfg := runtime.RunConfig{Stdout: b.Stdout, Stderr: b.Stderr, Trace: b.Trace}
	if b.Guest == nil {
		return b.Runtime.RunCase(ctx, c, cfg)
	}
	cfg.Args = b.guestArgs(c)
	return b.Runtime.Run(ctx, b.Guest, cfg)
}

// NativeBackend runs cases as OS processes of a guest executable.
type NativeBackend struct {
	Runner *native.Runner
}

func (b *NativeBackend) Run(ctx context.Context, c outcome.Case) (outcome.Outcome, error) {
	if b.Runner == nil {
		return outcome.Outcome{}, errors.NotInitialized(errors.PhaseRun, "native backend runner")
	}
	return b.Runner.Run(ctx, c.Args()...)
}
