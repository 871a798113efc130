package runtime

import (
	"context"
	"crypto/rand"
	"io"
	"io/fs"
	"reflect"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/engine"
	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/guestwasm"
	"github.com/wippyai/wasm-threadcheck/outcome"
)

// Runtime runs guest processes. Each Run gets a fresh engine so guests
// never share instances or memory; compiled code is shared through one
// compilation cache.
type Runtime struct {
	cache            wazero.CompilationCache
	cacheDir         string
	memoryLimitPages uint32
	grace            time.Duration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithCompilationCacheDir persists compiled guests under dir.
func WithCompilationCacheDir(dir string) Option {
	return func(r *Runtime) { r.cacheDir = dir }
}

// WithMemoryLimitPages caps guest memory, in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(r *Runtime) { r.memoryLimitPages = pages }
}

// WithGrace bounds how long a run waits for threads after the process ends.
func WithGrace(d time.Duration) Option {
	return func(r *Runtime) { r.grace = d }
}

func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	r := &Runtime{grace: engine.DefaultGrace}
	for _, opt := range opts {
		opt(r)
	}

	if r.cacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(r.cacheDir)
		if err != nil {
			return nil, errors.Load("open compilation cache", err)
		}
		r.cache = cache
	} else {
		r.cache = wazero.NewCompilationCache()
	}
	return r, nil
}

// Close releases the compilation cache.
func (r *Runtime) Close(ctx context.Context) error {
	return r.cache.Close(ctx)
}

// RunConfig describes one guest process.
type RunConfig struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Env    map[string]string
	// Mounts maps host directories to guest paths.
	Mounts map[string]string
	// FS preopens in-memory file systems at guest paths.
	FS map[string]fs.FS
	// Args is the full guest argv; Args[0] is visible to the guest.
	Args []string
	// Timeout bounds the run; zero means only ctx applies.
	Timeout time.Duration
	// Trace receives one line per host call and exported guest function
	// entry and return.
	Trace io.Writer
}

// Run executes a guest to termination. Exits, traps and timeouts are
// reported in the outcome; the error is non-nil only when the host could
// not start the guest.
func (r *Runtime) Run(ctx context.Context, wasmBytes []byte, cfg RunConfig) (outcome.Outcome, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if cfg.Trace != nil {
		ctx = withTrace(ctx, cfg.Trace)
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
		Cache:            r.cache,
		MemoryLimitPages: r.memoryLimitPages,
		EnableThreads:    true,
	})
	if err != nil {
		return outcome.Outcome{}, err
	}
	defer eng.Close(context.Background())

	guest, err := eng.Compile(ctx, wasmBytes)
	if err != nil {
		return outcome.Outcome{}, err
	}

	started := time.Now()
	o, err := eng.NewProcess(guest, moduleConfig(cfg), engine.WithGrace(r.grace)).Run(ctx)
	if err != nil {
		return outcome.Outcome{}, err
	}
	engine.Logger().Debug("guest finished",
		zap.Strings("args", cfg.Args),
		zap.Stringer("outcome", o),
		zap.Duration("elapsed", time.Since(started)))
	return o, nil
}

// RunCase runs the synthesized guest for c. cfg.Args defaults to c.Args().
func (r *Runtime) RunCase(ctx context.Context, c outcome.Case, cfg RunConfig) (outcome.Outcome, error) {
	data, err := guestwasm.Build(c)
	if err != nil {
		return outcome.Outcome{}, errors.InvalidInput(errors.PhaseLoad, err.Error())
	}
	if cfg.Args == nil {
		cfg.Args = c.Args()
	}
	return r.Run(ctx, data, cfg)
}

func moduleConfig(cfg RunConfig) wazero.ModuleConfig {
	stdout, stderr := syncWriters(cfg.Stdout, cfg.Stderr)
	mc := wazero.NewModuleConfig().
		WithArgs(cfg.Args...).
		WithStdout(stdout).
		WithStderr(stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader)
	if cfg.Stdin != nil {
		mc = mc.WithStdin(cfg.Stdin)
	}
	for k, v := range cfg.Env {
		mc = mc.WithEnv(k, v)
	}
	if len(cfg.Mounts) > 0 || len(cfg.FS) > 0 {
		fsc := wazero.NewFSConfig()
		for host, guest := range cfg.Mounts {
			fsc = fsc.WithDirMount(host, guest)
		}
		for guest, fsys := range cfg.FS {
			fsc = fsc.WithFSMount(fsys, guest)
		}
		mc = mc.WithFSConfig(fsc)
	}
	return mc
}

// lockedWriter serializes writes from concurrent guest threads.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// syncWriters wraps stdout and stderr, sharing one lock when both are the
// same writer. Nil writers discard.
func syncWriters(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	outMu := &sync.Mutex{}
	errMu := outMu
	if !sameWriter(stdout, stderr) {
		errMu = &sync.Mutex{}
	}
	return &lockedWriter{mu: outMu, w: stdout}, &lockedWriter{mu: errMu, w: stderr}
}

func sameWriter(a, b io.Writer) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b) && reflect.TypeOf(a).Comparable() && a == b
}
