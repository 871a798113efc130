package wasm

import (
	"github.com/wippyai/wasm-threadcheck/wasm/internal/binary"
)

// Encode encodes the module to the WebAssembly binary format.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()

	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.Byte(FuncTypeByte)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		writeSection(w, SectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.WriteName(imp.Module)
			sec.WriteName(imp.Name)
			sec.Byte(imp.Kind)
			switch imp.Kind {
			case KindFunc:
				sec.WriteU32(imp.TypeIdx)
			case KindMemory:
				var mt MemoryType
				if imp.Memory != nil {
					mt = *imp.Memory
				}
				writeLimits(sec, mt.Limits)
			}
		}
		writeSection(w, SectionImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec.WriteU32(typeIdx)
		}
		writeSection(w, SectionFunction, sec.Bytes())
	}

	if len(m.Memories) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(sec, mem.Limits)
		}
		writeSection(w, SectionMemory, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.WriteName(exp.Name)
			sec.Byte(exp.Kind)
			sec.WriteU32(exp.Idx)
		}
		writeSection(w, SectionExport, sec.Bytes())
	}

	if len(m.Code) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Code)))
		for _, body := range m.Code {
			bodyBuf := binary.NewWriter()
			bodyBuf.WriteU32(uint32(len(body.Locals)))
			for _, local := range body.Locals {
				bodyBuf.WriteU32(local.Count)
				bodyBuf.Byte(byte(local.ValType))
			}
			bodyBuf.WriteBytes(body.Code)
			sec.WriteU32(uint32(bodyBuf.Len()))
			sec.WriteBytes(bodyBuf.Bytes())
		}
		writeSection(w, SectionCode, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	var flags byte
	if l.Max != nil {
		flags |= LimitsHasMax
	}
	if l.Shared {
		flags |= LimitsShared
	}
	w.Byte(flags)
	w.WriteU32(l.Min)
	if l.Max != nil {
		w.WriteU32(*l.Max)
	}
}

// MemoryProvider returns a module that defines a single memory with the
// given limits and exports it under name. Hosts instantiate it under the
// module name a guest imports its memory from.
func MemoryProvider(name string, limits Limits) []byte {
	m := &Module{
		Memories: []MemoryType{{Limits: limits}},
		Exports:  []Export{{Name: name, Kind: KindMemory, Idx: 0}},
	}
	return m.Encode()
}
