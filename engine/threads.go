package engine

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/errors"
)

// maxThreadID is the largest id wasi-threads allows; ids are positive i32
// values below 2^29.
const maxThreadID = 0x1FFFFFFF

// spawnFailed is returned to the guest when no thread could be started.
const spawnFailed int32 = -1

// threadSpawner serves wasi.thread-spawn for one process. Each spawned
// thread is a fresh instance of the guest module, linked to the same
// provided memory, entered through wasi_thread_start(tid, start_arg).
type threadSpawner struct {
	proc   *Process
	nextID atomic.Uint32
}

func (e *WazeroEngine) instantiateThreadSpawn(ctx context.Context, p *Process) (*threadSpawner, error) {
	s := &threadSpawner{proc: p}
	_, err := e.runtime.NewHostModuleBuilder(ThreadsModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(s.spawn),
			[]api.ValueType{api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		WithParameterNames("start_arg").
		Export(ThreadSpawnName).
		Instantiate(ctx)
	if err != nil {
		return nil, errors.Link(ThreadsModule, err)
	}
	return s, nil
}

func (s *threadSpawner) spawn(_ context.Context, _ api.Module, stack []uint64) {
	startArg := api.DecodeI32(stack[0])
	tid, err := s.start(startArg)
	if err != nil {
		Logger().Debug("thread-spawn failed", zap.Error(err))
		stack[0] = api.EncodeI32(spawnFailed)
		return
	}
	stack[0] = api.EncodeI32(int32(tid))
}

func (s *threadSpawner) start(startArg int32) (uint32, error) {
	p := s.proc
	if p.terminated() {
		return 0, errors.InvalidInput(errors.PhaseRun, "process has terminated")
	}
	tid := s.nextID.Add(1)
	if tid > maxThreadID {
		return 0, errors.New(errors.PhaseRun, errors.KindUnsupported).
			Value(tid).
			Detail("thread ids exhausted").
			Build()
	}

	// p.ctx carries the run deadline; threads stop with the process.
	ctx := p.ctx
	mod, err := p.engine.runtime.InstantiateModule(ctx, p.guest.compiled,
		p.config.WithName(instanceName(tid)).WithStartFunctions())
	if err != nil {
		return 0, errors.Instantiation(err)
	}
	entry := mod.ExportedFunction(ThreadStartName)
	if entry == nil {
		_ = mod.Close(ctx)
		return 0, errors.MissingExport(ThreadStartName)
	}
	if !p.register(tid, mod) {
		return 0, errors.InvalidInput(errors.PhaseRun, "process has terminated")
	}

	p.workers.Add(1)
	go func() {
		defer p.workers.Done()
		defer p.unregister(tid)
		Logger().Debug("thread start", zap.Uint32("tid", tid), zap.Int32("start_arg", startArg))
		_, err := entry.Call(ctx, api.EncodeI32(int32(tid)), api.EncodeI32(startArg))
		p.settle(ctx, tid, err, false)
		Logger().Debug("thread end", zap.Uint32("tid", tid), zap.Error(err))
	}()
	return tid, nil
}
