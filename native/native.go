// Package native runs a guest executable as an OS process and reports how
// it ended.
package native

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/outcome"
)

// TracebackEnv makes the Go runtime of a Go guest raise SIGABRT on an
// unrecovered panic, so a panic is never confused with exit status 2.
const TracebackEnv = "GOTRACEBACK=crash"

// Runner starts one guest process per Run.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
	// Path is the guest executable.
	Path string
	// Dir is the working directory; empty inherits.
	Dir string
	// Env is appended to the host environment.
	Env []string
	// WaitDelay bounds waiting for output pipes after the process exits
	// or is killed.
	WaitDelay time.Duration
}

// Run executes the guest with args (not including the program name).
// A context deadline kills the process and yields a timed out outcome.
func (r *Runner) Run(ctx context.Context, args ...string) (outcome.Outcome, error) {
	if r.Path == "" {
		return outcome.Outcome{}, errors.InvalidInput(errors.PhaseLoad, "guest executable path is empty")
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Dir = r.Dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = append(append(os.Environ(), r.Env...), TracebackEnv)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	if err := cmd.Start(); err != nil {
		return outcome.Outcome{}, errors.Load("start guest "+r.Path, err)
	}
	log.Debug("guest started", zap.String("path", r.Path), zap.Strings("args", args), zap.Int("pid", cmd.Process.Pid))

	err := cmd.Wait()
	if ctx.Err() != nil {
		log.Debug("guest stopped by context", zap.Error(ctx.Err()))
		return outcome.TimedOut(), nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return outcome.Outcome{}, errors.Wrap(errors.PhaseRun, errors.KindIO, err, "wait for guest")
		}
	}

	o := classify(cmd.ProcessState)
	log.Debug("guest finished", zap.Stringer("outcome", o))
	return o, nil
}
