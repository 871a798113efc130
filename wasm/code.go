package wasm

import (
	"github.com/wippyai/wasm-threadcheck/wasm/internal/binary"
)

// Code builds a function body instruction by instruction. Methods return
// the receiver so bodies read top to bottom:
//
//	body := wasm.NewCode().
//		I32Const(42).
//		Call(procExit).
//		End()
type Code struct {
	w *binary.Writer
}

// NewCode starts an empty instruction sequence.
func NewCode() *Code {
	return &Code{w: binary.NewWriter()}
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	return c.w.Bytes()
}

// Body wraps the instructions in a FuncBody with the given locals.
func (c *Code) Body(locals ...LocalEntry) FuncBody {
	return FuncBody{Locals: locals, Code: c.Bytes()}
}

func (c *Code) op(b byte) *Code {
	c.w.Byte(b)
	return c
}

// memarg writes alignment (log2 bytes) and offset immediates.
func (c *Code) memarg(align, offset uint32) {
	c.w.WriteU32(align)
	c.w.WriteU32(offset)
}

func (c *Code) Unreachable() *Code { return c.op(OpUnreachable) }
func (c *Code) End() *Code         { return c.op(OpEnd) }
func (c *Code) Drop() *Code        { return c.op(OpDrop) }
func (c *Code) I32LtS() *Code      { return c.op(OpI32LtS) }
func (c *Code) I32Add() *Code      { return c.op(OpI32Add) }

// Block opens a block with an empty result type.
func (c *Code) Block() *Code {
	c.w.Byte(OpBlock)
	c.w.Byte(BlockTypeVoid)
	return c
}

// Loop opens a loop with an empty result type.
func (c *Code) Loop() *Code {
	c.w.Byte(OpLoop)
	c.w.Byte(BlockTypeVoid)
	return c
}

// BrIf branches to the label depth when the top of stack is non-zero.
func (c *Code) BrIf(depth uint32) *Code {
	c.w.Byte(OpBrIf)
	c.w.WriteU32(depth)
	return c
}

// Call calls the function at index fn.
func (c *Code) Call(fn uint32) *Code {
	c.w.Byte(OpCall)
	c.w.WriteU32(fn)
	return c
}

func (c *Code) LocalGet(idx uint32) *Code {
	c.w.Byte(OpLocalGet)
	c.w.WriteU32(idx)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.w.Byte(OpI32Const)
	c.w.WriteS32(v)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.w.Byte(OpI64Const)
	c.w.WriteS64(v)
	return c
}

// I32Load loads 4 bytes at address+offset.
func (c *Code) I32Load(offset uint32) *Code {
	c.w.Byte(OpI32Load)
	c.memarg(2, offset)
	return c
}

// I32Store stores 4 bytes at address+offset.
func (c *Code) I32Store(offset uint32) *Code {
	c.w.Byte(OpI32Store)
	c.memarg(2, offset)
	return c
}

// I32Store8 stores the low byte at address+offset.
func (c *Code) I32Store8(offset uint32) *Code {
	c.w.Byte(OpI32Store8)
	c.memarg(0, offset)
	return c
}

func (c *Code) atomic(sub uint32, offset uint32) *Code {
	c.w.Byte(OpPrefixAtomic)
	c.w.WriteU32(sub)
	// atomic accesses require natural alignment
	c.memarg(2, offset)
	return c
}

// I32AtomicLoad is i32.atomic.load.
func (c *Code) I32AtomicLoad(offset uint32) *Code { return c.atomic(AtomicI32Load, offset) }

// I32AtomicStore is i32.atomic.store.
func (c *Code) I32AtomicStore(offset uint32) *Code { return c.atomic(AtomicI32Store, offset) }

// AtomicWait32 is memory.atomic.wait32: [addr i32, expected i32, timeout_ns i64] -> [i32].
func (c *Code) AtomicWait32(offset uint32) *Code { return c.atomic(AtomicWait32, offset) }

// AtomicNotify is memory.atomic.notify: [addr i32, count i32] -> [i32].
func (c *Code) AtomicNotify(offset uint32) *Code { return c.atomic(AtomicNotify, offset) }
