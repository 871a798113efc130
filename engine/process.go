package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/outcome"
)

// abortExitCode closes live instances after a fault. Callers never see it:
// the process outcome is recorded before any instance is closed.
const abortExitCode = 134

// DefaultGrace bounds how long Run waits for thread goroutines to unwind
// after the process has terminated.
const DefaultGrace = 2 * time.Second

// Process is one guest execution: a main instance plus the threads it
// spawns. The first terminal event (main returning, any unit calling
// proc_exit, any unit trapping, the context expiring) decides the
// outcome. Later events are ignored.
type Process struct {
	ctx     context.Context
	engine  *WazeroEngine
	guest   *Guest
	config  wazero.ModuleConfig
	grace   time.Duration
	spawner *threadSpawner

	mu      sync.Mutex
	main    api.Module
	threads map[uint32]api.Module
	result  outcome.Outcome
	ended   bool
	workers sync.WaitGroup
}

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithGrace overrides DefaultGrace.
func WithGrace(d time.Duration) ProcessOption {
	return func(p *Process) { p.grace = d }
}

// NewProcess prepares a guest for execution. cfg carries args, env,
// stdio and mounts for the main instance; threads inherit it under their
// own instance names.
func (e *WazeroEngine) NewProcess(g *Guest, cfg wazero.ModuleConfig, opts ...ProcessOption) *Process {
	if cfg == nil {
		cfg = wazero.NewModuleConfig()
	}
	p := &Process{
		engine:  e,
		guest:   g,
		config:  cfg,
		grace:   DefaultGrace,
		threads: make(map[uint32]api.Module),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run links the guest, calls _start on the main instance and blocks until
// the process has an outcome. Guest behaviour is reported through the
// outcome; the error is reserved for host failures.
func (p *Process) Run(ctx context.Context) (outcome.Outcome, error) {
	p.ctx = ctx
	if err := p.engine.InitWASI(ctx); err != nil {
		return outcome.Outcome{}, err
	}
	if err := p.engine.ProvideMemory(ctx, p.guest); err != nil {
		return outcome.Outcome{}, err
	}
	if p.guest.Threaded() {
		s, err := p.engine.instantiateThreadSpawn(ctx, p)
		if err != nil {
			return outcome.Outcome{}, err
		}
		p.spawner = s
	}

	mod, err := p.engine.runtime.InstantiateModule(ctx, p.guest.compiled,
		p.config.WithName(instanceName(0)).WithStartFunctions())
	if err != nil {
		return outcome.Outcome{}, errors.Instantiation(err)
	}
	p.mu.Lock()
	p.main = mod
	p.mu.Unlock()

	start := mod.ExportedFunction(StartName)
	if start == nil {
		return outcome.Outcome{}, errors.MissingExport(StartName)
	}

	Logger().Debug("process start", zap.String("instance", mod.Name()))
	_, callErr := start.Call(ctx)
	p.settle(ctx, 0, callErr, true)

	p.waitWorkers()
	return p.Outcome(), nil
}

// Outcome returns the recorded outcome. It is only meaningful once Run has
// returned or Exit or Fault has recorded an event.
func (p *Process) Outcome() outcome.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Exit records an explicit exit status.
func (p *Process) Exit(code uint32) bool {
	return p.terminate(outcome.Exited(code))
}

// Fault records abnormal termination.
func (p *Process) Fault(reason string) bool {
	return p.terminate(outcome.Aborted(reason))
}

// settle translates the result of a unit's entry call into a process event.
// A thread returning normally is not an event; the main unit returning
// normally ends the process with status 0.
func (p *Process) settle(ctx context.Context, tid uint32, err error, isMain bool) {
	if err == nil {
		if isMain {
			Logger().Debug("main returned")
			p.terminate(outcome.Exited(0))
		}
		return
	}
	o := classify(ctx, err)
	if p.terminate(o) {
		Logger().Debug("unit terminated process",
			zap.Uint32("tid", tid),
			zap.Stringer("outcome", o))
	}
}

// register tracks a thread instance. It refuses, and closes the instance,
// once the process has ended.
func (p *Process) register(tid uint32, m api.Module) bool {
	p.mu.Lock()
	if !p.ended {
		p.threads[tid] = m
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()
	_ = m.CloseWithExitCode(context.Background(), abortExitCode)
	return false
}

func (p *Process) unregister(tid uint32) {
	p.mu.Lock()
	delete(p.threads, tid)
	p.mu.Unlock()
}

// terminate records o if the process has not ended yet and then closes
// every live instance so blocked or looping units return. It reports
// whether o was recorded.
func (p *Process) terminate(o outcome.Outcome) bool {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return false
	}
	p.ended = true
	p.result = o

	live := make([]api.Module, 0, len(p.threads)+1)
	if p.main != nil {
		live = append(live, p.main)
	}
	for _, m := range p.threads {
		live = append(live, m)
	}
	p.mu.Unlock()

	code := uint32(abortExitCode)
	if o.Kind == outcome.KindExited {
		code = o.Code
	}
	ctx := context.Background()
	for _, m := range live {
		_ = m.CloseWithExitCode(ctx, code)
	}
	return true
}

func (p *Process) terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

func (p *Process) waitWorkers() {
	finished := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(p.grace):
		Logger().Warn("threads still running after process end", zap.Duration("grace", p.grace))
	}
}

// classify maps the error of an entry call to an outcome.
func classify(ctx context.Context, err error) outcome.Outcome {
	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case sys.ExitCodeDeadlineExceeded, sys.ExitCodeContextCanceled:
			return outcome.TimedOut()
		}
		return outcome.Exited(exitErr.ExitCode())
	}
	if ctx.Err() != nil {
		return outcome.TimedOut()
	}
	return outcome.Aborted(trapReason(err))
}

// trapReason keeps the first line of a wazero trap, dropping the stack trace.
func trapReason(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}
