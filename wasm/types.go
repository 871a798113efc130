package wasm

// Module is the subset of a WebAssembly module that the host inspects and
// that guest builders emit. Sections not listed here are skipped on parse
// and never emitted.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices of defined functions
	Memories []MemoryType
	Exports  []Export
	Code     []FuncBody
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType is a value type encoding.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// Import is an imported definition. Only function and memory descriptors
// are decoded; tables, globals and tags are validated and skipped.
type Import struct {
	Module string
	Name   string
	Kind   byte
	// TypeIdx is set for KindFunc.
	TypeIdx uint32
	// Memory is set for KindMemory.
	Memory *MemoryType
}

// MemoryType describes a linear memory.
type MemoryType struct {
	Limits Limits
}

// Limits are memory size constraints in 64KiB pages.
type Limits struct {
	Max    *uint32
	Min    uint32
	Shared bool
}

// Export is an exported definition.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// LocalEntry declares Count locals of one type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// FuncBody is a function body. Code holds the instruction bytes including
// the terminating end opcode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// ImportedMemory returns the memory import, if any.
func (m *Module) ImportedMemory() (Import, bool) {
	for _, imp := range m.Imports {
		if imp.Kind == KindMemory {
			return imp, true
		}
	}
	return Import{}, false
}

// ImportsFunc reports whether module/name is imported as a function.
func (m *Module) ImportsFunc(module, name string) bool {
	for _, imp := range m.Imports {
		if imp.Kind == KindFunc && imp.Module == module && imp.Name == name {
			return true
		}
	}
	return false
}

// ExportsFunc reports whether a function is exported under name.
func (m *Module) ExportsFunc(name string) bool {
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Name == name {
			return true
		}
	}
	return false
}

// FuncImportCount returns the number of imported functions, which is the
// index of the first defined function.
func (m *Module) FuncImportCount() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Kind == KindFunc {
			n++
		}
	}
	return n
}
