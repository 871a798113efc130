// Package threadcheck checks how a WebAssembly host reports the
// termination of a guest that runs code on spawned threads.
//
// A guest either exits with an explicit status, returns normally (status
// 0), or faults: a trap, an unrecovered panic. A conforming host keeps
// faults observably distinct from every exit status, and propagates a
// fault or exit on any thread to the whole process.
//
// # Packages
//
//	outcome/      selectors, cases, outcomes and their verification
//	wasm/         the module-format subset the host inspects and emits
//	engine/       wazero with shared memory and wasi-threads thread-spawn
//	runtime/      high-level host: run a guest to a termination outcome
//	guestwasm/    synthesized wasi-threads guests for every selector
//	native/       run a guest executable and classify its exit
//	harness/      YAML matrices, backends and reports
//	guest/...     the guest programs, natively in Go
//	errors/       structured errors for host failures
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//		return err
//	}
//	defer rt.Close(ctx)
//
//	o, err := rt.RunCase(ctx, outcome.MustParseCase("exit_child 43"), runtime.RunConfig{})
//	// o == outcome.Exited(43)
//
// The threadcheck command runs the whole matrix:
//
//	threadcheck --backend wasm
//	threadcheck --backend native --guest ./commoncheck
package threadcheck
