// Package runtime is the high-level host for wasi-threads guests.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	o, err := rt.Run(ctx, wasmBytes, runtime.RunConfig{
//	    Args:    []string{"exit_child", "43"},
//	    Stdout:  os.Stdout,
//	    Timeout: 10 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err) // host failure: compile, link, instantiate
//	}
//	fmt.Println(o) // exited(43)
//
// # Outcomes
//
// Guest termination is a value, not an error. A normal return from _start
// is exited(0), proc_exit(N) from any thread is exited(N), a trap in any
// thread is aborted, and a run stopped by its deadline is timed out.
//
// RunCase runs a synthesized guest for one selector case without any
// external toolchain.
//
// # Isolation
//
// Each Run creates its own wazero runtime, so a guest's threads, memory
// and WASI state never leak into another run. Compiled code is shared
// through the Runtime's compilation cache.
package runtime
