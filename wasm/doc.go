// Package wasm reads and writes the parts of the WebAssembly binary format
// needed to host threaded guests.
//
// ParseModule decodes type, import, function, memory and export sections
// and skips everything else by size. The host uses it to find the
// guest's memory import, whose limits (including the shared flag) must be
// matched exactly by the memory it provides:
//
//	m, err := wasm.ParseModule(data)
//	if imp, ok := m.ImportedMemory(); ok {
//	    provider := wasm.MemoryProvider(imp.Name, imp.Memory.Limits)
//	    ...
//	}
//
// Module.Encode and the Code builder emit small modules directly, which is
// how synthetic guests and test fixtures are produced without an external
// toolchain:
//
//	body := wasm.NewCode().
//	    I32Const(0).I32Const(0).I64Const(-1).
//	    AtomicWait32(0).Drop().
//	    End()
//
// The threads proposal opcodes (0xFE prefix) cover wait, notify, fence and
// 32-bit atomic load and store.
package wasm
