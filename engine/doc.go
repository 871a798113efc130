// Package engine hosts wasi-threads guests on wazero.
//
// A WazeroEngine owns one wazero runtime with threads enabled and
// CloseOnContextDone set, so a running guest can always be stopped by
// cancelling its context or closing its instance.
//
// # Process Model
//
// A Process is one guest execution:
//
//  1. ProvideMemory instantiates a module exporting a memory with exactly
//     the limits of the guest's memory import (shared when imported shared)
//  2. the wasi module exports thread-spawn; each call instantiates the
//     compiled guest again under a unique name and runs
//     wasi_thread_start(tid, start_arg) on its own goroutine
//  3. _start runs on the main instance
//
// The first terminal event decides the outcome:
//
//	main returns              exited(0)
//	any unit calls proc_exit  exited(N)
//	any unit traps            aborted
//	context done              timed out
//
// After the first event every live instance is closed and later events are
// ignored. A trap in a worker therefore aborts the whole process.
//
// # Logging
//
// The package logs through a zap logger that defaults to a no-op; install
// one with SetLogger.
package engine
