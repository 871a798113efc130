package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/wasm"
)

// Host module and export names of the wasi-threads ABI.
const (
	ThreadsModule   = "wasi"
	ThreadSpawnName = "thread-spawn"
	ThreadStartName = "wasi_thread_start"
	StartName       = "_start"
)

// WazeroEngine owns one wazero runtime. A guest process and every thread it
// spawns live in the same runtime, so engines are not shared between
// processes.
type WazeroEngine struct {
	runtime      wazero.Runtime
	cache        wazero.CompilationCache
	ownsCache    bool
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// Cache is shared with other engines when set. It takes precedence
	// over CompilationCacheDir.
	Cache wazero.CompilationCache

	// CompilationCacheDir persists compiled guests across runs. Empty
	// means no cache.
	CompilationCacheDir string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal: shared
	// memory and atomic instructions.
	EnableThreads bool
}

// NewWazeroEngine creates an engine with threads enabled.
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, &Config{EnableThreads: true})
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration.
// Running guests are always interruptible: cancelling the call context or
// closing the instance makes the call return *sys.ExitError.
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	e := &WazeroEngine{}

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
		switch {
		case cfg.Cache != nil:
			e.cache = cfg.Cache
		case cfg.CompilationCacheDir != "":
			cache, err := wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
			if err != nil {
				return nil, errors.New(errors.PhaseCompile, errors.KindIO).
					Cause(err).
					Detail("open compilation cache %q", cfg.CompilationCacheDir).
					Build()
			}
			e.cache = cache
			e.ownsCache = true
		}
		if e.cache != nil {
			runtimeCfg = runtimeCfg.WithCompilationCache(e.cache)
		}
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return e, nil
}

// Runtime exposes the underlying wazero runtime.
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// Close releases the runtime and every module instantiated in it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.ownsCache {
		if cerr := e.cache.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

// InitWASI instantiates wasi_snapshot_preview1 for this engine's runtime.
// Safe for concurrent calls.
func (e *WazeroEngine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	builder := e.runtime.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	if _, err := builder.Instantiate(ctx); err != nil {
		if e.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
			return errors.Link(wasi_snapshot_preview1.ModuleName, err)
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

// Guest is a compiled guest module plus the parts of its binary the host
// needs to wire it up.
type Guest struct {
	compiled wazero.CompiledModule
	module   *wasm.Module
}

// Compile parses and compiles guest bytes.
func (e *WazeroEngine) Compile(ctx context.Context, wasmBytes []byte) (*Guest, error) {
	m, err := wasm.ParseModule(wasmBytes)
	if stderrors.Is(err, wasm.ErrMemory64) {
		return nil, errors.Unsupported(errors.PhaseParse, "64-bit memory")
	}
	if err != nil {
		return nil, errors.ParseFailed("guest module", err)
	}
	if !m.ExportsFunc(StartName) {
		return nil, errors.MissingExport(StartName)
	}
	if m.ImportsFunc(ThreadsModule, ThreadSpawnName) && !m.ExportsFunc(ThreadStartName) {
		return nil, errors.MissingExport(ThreadStartName)
	}
	if missing := unresolvedImports(m); len(missing) > 0 {
		return nil, errors.NewMissingImportsError(missing)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindInvalidData).
			Cause(err).
			Detail("compile guest").
			Build()
	}
	Logger().Debug("guest compiled",
		zap.Int("imports", len(m.Imports)),
		zap.Bool("threads", m.ImportsFunc(ThreadsModule, ThreadSpawnName)))
	return &Guest{compiled: compiled, module: m}, nil
}

// Threaded reports whether the guest imports thread-spawn.
func (g *Guest) Threaded() bool {
	return g.module.ImportsFunc(ThreadsModule, ThreadSpawnName)
}

// unresolvedImports lists function imports no host module of this engine
// serves, as "module.name" keys.
func unresolvedImports(m *wasm.Module) []string {
	var missing []string
	for _, imp := range m.Imports {
		if imp.Kind != wasm.KindFunc {
			continue
		}
		switch imp.Module {
		case wasi_snapshot_preview1.ModuleName:
			// wazero reports unknown preview1 names at instantiation
		case ThreadsModule:
			if imp.Name != ThreadSpawnName {
				missing = append(missing, imp.Module+"."+imp.Name)
			}
		default:
			missing = append(missing, imp.Module+"."+imp.Name)
		}
	}
	return missing
}

func instanceName(tid uint32) string {
	if tid == 0 {
		return "guest"
	}
	return fmt.Sprintf("guest-thread-%d", tid)
}
