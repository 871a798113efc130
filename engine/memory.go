package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/wasm"
)

// ProvideMemory satisfies the guest's memory import, if any, by
// instantiating a module under the import's module name that exports a
// memory with exactly the imported limits. Every instance of the guest
// then links against the same memory, which is how threads share it.
func (e *WazeroEngine) ProvideMemory(ctx context.Context, g *Guest) error {
	imp, ok := g.module.ImportedMemory()
	if !ok {
		return nil
	}
	if imp.Memory == nil {
		return errors.InvalidData(errors.PhaseLink, []string{imp.Module, imp.Name}, "memory import without limits")
	}
	limits := imp.Memory.Limits
	if limits.Shared && limits.Max == nil {
		return errors.InvalidData(errors.PhaseLink, []string{imp.Module, imp.Name}, "shared memory requires a maximum")
	}
	if e.runtime.Module(imp.Module) != nil {
		return errors.New(errors.PhaseLink, errors.KindUnsupported).
			Path(imp.Module, imp.Name).
			Detail("module %q already instantiated", imp.Module).
			Build()
	}

	provider := wasm.MemoryProvider(imp.Name, limits)
	cfg := wazero.NewModuleConfig().WithName(imp.Module).WithStartFunctions()
	if _, err := e.runtime.InstantiateWithConfig(ctx, provider, cfg); err != nil {
		return errors.Link(imp.Module, err)
	}
	Logger().Debug("memory provided",
		zap.String("module", imp.Module),
		zap.String("name", imp.Name),
		zap.Uint32("min", limits.Min),
		zap.Bool("shared", limits.Shared))
	return nil
}
