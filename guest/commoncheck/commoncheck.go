// Package commoncheck is the native check guest: one behaviour per
// selector, with the _child variants performed on a spawned goroutine.
package commoncheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/wippyai/wasm-threadcheck/outcome"
)

// PanicMessage is the value panic and panic_child panic with.
const PanicMessage = "panic!"

// UnreachableMessage is the value unreachable and unreachable_child panic with.
const UnreachableMessage = "internal error: entered unreachable code"

// Env is what a check needs from its process.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Exit ends the process with a status. os.Exit in production; when it
	// returns, Run returns too.
	Exit func(code int)
}

// ProcessEnv binds Env to the current process.
func ProcessEnv() Env {
	return Env{Stdout: os.Stdout, Stderr: os.Stderr, Exit: os.Exit}
}

// Main parses argv (without the program name) and runs the check. Invalid
// arguments are a fault, like any other unrecoverable guest error.
func Main(args []string) {
	// an unrecovered panic raises SIGABRT instead of exiting with status 2
	debug.SetTraceback("crash")

	_ = Run(context.Background(), mustParseCase(args), ProcessEnv())
}

func mustParseCase(args []string) outcome.Case {
	c, err := outcome.ParseCase(args)
	if err != nil {
		panic(err)
	}
	return c
}

// Run performs the behaviour of c. It returns for ok and ok_child once the
// work is done, after Env.Exit returns, or when ctx ends while the main unit
// waits on a worker that never returns.
func Run(ctx context.Context, c outcome.Case, env Env) error {
	switch c.Selector {
	case outcome.Unreachable:
		panic(UnreachableMessage)
	case outcome.UnreachableChild:
		return wait(ctx, spawn(func() { panic(UnreachableMessage) }))
	case outcome.Exit:
		exit(env, c.Code)
		return nil
	case outcome.ExitChild:
		return wait(ctx, spawn(func() { exit(env, c.Code) }))
	case outcome.Panic:
		panic(PanicMessage)
	case outcome.PanicChild:
		return wait(ctx, spawn(func() { panic(PanicMessage) }))
	case outcome.OK:
		fmt.Fprintln(env.Stdout, "ok")
		return nil
	case outcome.OKChild:
		returned := spawn(func() { fmt.Fprintln(env.Stdout, "ok") })
		select {
		case <-returned:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	panic(fmt.Sprintf("commoncheck: unhandled selector %d", uint8(c.Selector)))
}

func exit(env Env, code uint32) {
	fmt.Fprintf(env.Stdout, "exit %d\n", code)
	env.Exit(int(code))
}

// spawn runs fn on a new goroutine. The returned channel closes only if fn
// returns normally; a panicking fn takes the process down first.
func spawn(fn func()) <-chan struct{} {
	returned := make(chan struct{})
	go func() {
		fn()
		close(returned)
	}()
	return returned
}

// wait parks the main unit while the worker decides the process outcome.
func wait(ctx context.Context, returned <-chan struct{}) error {
	select {
	case <-returned:
		// only reachable when Env.Exit returned
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
