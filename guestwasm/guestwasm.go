package guestwasm

import (
	"fmt"

	"github.com/wippyai/wasm-threadcheck/outcome"
	"github.com/wippyai/wasm-threadcheck/wasm"
)

// Import and export names shared with the host.
const (
	wasiModule    = "wasi_snapshot_preview1"
	threadsModule = "wasi"
	memoryModule  = "env"
	memoryName    = "memory"
)

// Function indices: imports first, then definitions.
const (
	fnProcExit uint32 = iota
	fnFdWrite
	fnThreadSpawn
	fnStart
	fnThreadStart
	fnPrint
	fnHang
)

// Type indices.
const (
	typeI32 uint32 = iota // (i32) -> ()
	typeFdWrite           // (i32 i32 i32 i32) -> i32
	typeSpawn             // (i32) -> i32
	typeVoid              // () -> ()
	typeThreadStart       // (i32 i32) -> ()
	typePrint             // (i32 i32 i32) -> ()
)

// Shared memory layout. A region holds an iovec at +0, nwritten at +8 and
// the message bytes from +16; main and worker print from separate regions.
const (
	addrJoin    = 16  // set to 1 by a worker that finished
	addrChannel = 20  // set to 1 once the channel payload is written
	addrIdle    = 24  // never written; target of idle waits
	regionMain  = 64  // main unit print region
	regionChild = 128 // worker print region
	addrPayload = 256 // channel payload

	regionMessage = 16
	regionSize    = 64
)

const (
	fdStdout = 1
	fdStderr = 2
)

// idleWaitNanos bounds each wait in an idle or join loop so the loop
// header is reached regularly and a closed instance stops promptly.
const idleWaitNanos = 10_000_000

// Build returns a wasi-threads guest that behaves as the selector of c
// describes. It imports a 1-page shared env.memory, proc_exit, fd_write and
// wasi.thread-spawn, and exports _start and wasi_thread_start.
func Build(c outcome.Case) ([]byte, error) {
	if !c.Selector.Valid() {
		return nil, fmt.Errorf("guestwasm: invalid selector %d", uint8(c.Selector))
	}
	if c.Selector.NeedsCode() && c.Code > outcome.MaxCode {
		return nil, fmt.Errorf("guestwasm: exit status %d out of range", c.Code)
	}
	main, worker := bodies(c)
	return module(main, worker).Encode(), nil
}

// MustBuild is Build for cases known to be valid.
func MustBuild(c outcome.Case) []byte {
	b, err := Build(c)
	if err != nil {
		panic(err)
	}
	return b
}

func bodies(c outcome.Case) (main, worker *wasm.Code) {
	main, worker = wasm.NewCode(), wasm.NewCode()
	exitMsg := fmt.Sprintf("exit %d\n", c.Code)

	switch c.Selector {
	case outcome.Unreachable:
		main.Unreachable()
	case outcome.UnreachableChild:
		spawn(main)
		main.Call(fnHang)
		worker.Unreachable()
	case outcome.Exit:
		exit(main, regionMain, exitMsg, c.Code)
	case outcome.ExitChild:
		spawn(main)
		main.Call(fnHang)
		exit(worker, regionChild, exitMsg, c.Code)
	case outcome.Panic:
		panicking(main, regionMain)
	case outcome.PanicChild:
		spawn(main)
		main.Call(fnHang)
		panicking(worker, regionChild)
	case outcome.OK:
		printMsg(main, fdStdout, regionMain, "ok\n")
	case outcome.OKChild:
		spawn(main)
		waitFlag(main, addrJoin)
		printMsg(worker, fdStdout, regionChild, "ok\n")
		signal(worker, addrJoin)
	}
	main.End()
	worker.End()
	return main, worker
}

// BuildChannel returns the one-shot channel guest: the worker writes "hi"
// into shared memory and signals; main waits for the signal and prints
// "Got: hi".
func BuildChannel() []byte {
	main, worker := wasm.NewCode(), wasm.NewCode()

	storeString(worker, addrPayload, "hi")
	signal(worker, addrChannel)
	worker.End()

	spawn(main)
	waitFlag(main, addrChannel)
	msg := uint32(regionMain + regionMessage)
	storeString(main, msg, "Got: ")
	// copy the 2-byte payload (a 4-byte load keeps it one instruction)
	main.I32Const(int32(msg + 5)).I32Const(addrPayload).I32Load(0).I32Store(0)
	main.I32Const(int32(msg + 7)).I32Const('\n').I32Store8(0)
	main.I32Const(fdStdout).I32Const(regionMain).I32Const(8).Call(fnPrint)
	main.End()

	return module(main, worker).Encode()
}

func module(main, worker *wasm.Code) *wasm.Module {
	i32 := []wasm.ValType{wasm.ValI32}
	maxPages := uint32(1)
	return &wasm.Module{
		Types: []wasm.FuncType{
			typeI32:         {Params: i32},
			typeFdWrite:     {Params: []wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32, wasm.ValI32}, Results: i32},
			typeSpawn:       {Params: i32, Results: i32},
			typeVoid:        {},
			typeThreadStart: {Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}},
			typePrint:       {Params: []wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32}},
		},
		Imports: []wasm.Import{
			{Module: wasiModule, Name: "proc_exit", Kind: wasm.KindFunc, TypeIdx: typeI32},
			{Module: wasiModule, Name: "fd_write", Kind: wasm.KindFunc, TypeIdx: typeFdWrite},
			{Module: threadsModule, Name: "thread-spawn", Kind: wasm.KindFunc, TypeIdx: typeSpawn},
			{Module: memoryModule, Name: memoryName, Kind: wasm.KindMemory, Memory: &wasm.MemoryType{
				Limits: wasm.Limits{Min: 1, Max: &maxPages, Shared: true},
			}},
		},
		Funcs: []uint32{typeVoid, typeThreadStart, typePrint, typeVoid},
		Exports: []wasm.Export{
			{Name: "_start", Kind: wasm.KindFunc, Idx: fnStart},
			{Name: "wasi_thread_start", Kind: wasm.KindFunc, Idx: fnThreadStart},
		},
		Code: []wasm.FuncBody{
			main.Body(),
			worker.Body(),
			printBody().Body(),
			hangBody().Body(),
		},
	}
}

// printBody is print(fd, region, len): write len message bytes of region
// to fd through the region's own iovec.
func printBody() *wasm.Code {
	const fd, region, n = 0, 1, 2
	return wasm.NewCode().
		LocalGet(region).LocalGet(region).I32Const(regionMessage).I32Add().I32Store(0).
		LocalGet(region).LocalGet(n).I32Store(4).
		LocalGet(fd).LocalGet(region).I32Const(1).LocalGet(region).I32Const(8).I32Add().
		Call(fnFdWrite).Drop().
		End()
}

// hangBody never returns; it parks on addrIdle in bounded waits.
func hangBody() *wasm.Code {
	return wasm.NewCode().
		Loop().
		I32Const(addrIdle).I32Const(0).I64Const(idleWaitNanos).AtomicWait32(0).Drop().
		Br(0).
		End().
		End()
}

func spawn(c *wasm.Code) {
	c.I32Const(0).Call(fnThreadSpawn).
		I32Const(0).I32LtS().
		If().Unreachable().End()
}

// waitFlag blocks until the i32 at addr is non-zero.
func waitFlag(c *wasm.Code, addr int32) {
	c.Block().Loop().
		I32Const(addr).I32AtomicLoad(0).BrIf(1).
		I32Const(addr).I32Const(0).I64Const(idleWaitNanos).AtomicWait32(0).Drop().
		Br(0).
		End().End()
}

// signal sets the i32 at addr to 1 and wakes one waiter.
func signal(c *wasm.Code, addr int32) {
	c.I32Const(addr).I32Const(1).I32AtomicStore(0).
		I32Const(addr).I32Const(1).AtomicNotify(0).Drop()
}

func printMsg(c *wasm.Code, fd int32, region uint32, msg string) {
	if len(msg) > regionSize-regionMessage {
		panic("guestwasm: message exceeds print region")
	}
	storeString(c, region+regionMessage, msg)
	c.I32Const(fd).I32Const(int32(region)).I32Const(int32(len(msg))).Call(fnPrint)
}

func exit(c *wasm.Code, region uint32, msg string, code uint32) {
	printMsg(c, fdStdout, region, msg)
	c.I32Const(int32(code)).Call(fnProcExit)
}

func panicking(c *wasm.Code, region uint32) {
	printMsg(c, fdStderr, region, "panic!\n")
	c.Unreachable()
}

func storeString(c *wasm.Code, addr uint32, s string) {
	for i := 0; i < len(s); i++ {
		c.I32Const(int32(addr) + int32(i)).I32Const(int32(s[i])).I32Store8(0)
	}
}
