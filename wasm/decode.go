package wasm

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-threadcheck/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
	ErrMemory64       = errors.New("64-bit limits are not supported")
)

// ParseModule decodes the type, import, function, memory and export
// sections of a WebAssembly binary. All other sections are skipped by
// size, so arbitrary toolchain output can be inspected without decoding
// code or data.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	for r.Len() > 0 {
		sectionID, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("section header", err)
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}
		sr := binary.NewReader(body)

		switch sectionID {
		case SectionType:
			if err := parseTypeSection(sr, m); err != nil {
				return nil, sr.WrapError("type section", err)
			}
		case SectionImport:
			if err := parseImportSection(sr, m); err != nil {
				return nil, sr.WrapError("import section", err)
			}
		case SectionFunction:
			if err := parseFunctionSection(sr, m); err != nil {
				return nil, sr.WrapError("function section", err)
			}
		case SectionMemory:
			if err := parseMemorySection(sr, m); err != nil {
				return nil, sr.WrapError("memory section", err)
			}
		case SectionExport:
			if err := parseExportSection(sr, m); err != nil {
				return nil, sr.WrapError("export section", err)
			}
		case SectionCustom, SectionTable, SectionGlobal, SectionStart, SectionElement,
			SectionCode, SectionData, SectionDataCount, SectionTag:
			// not inspected
		default:
			return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
		}
	}
	return m, nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("type %d: unsupported type form 0x%02x", i, form)
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	types := make([]ValType, count)
	for i := range types {
		if types[i], err = readValType(r); err != nil {
			return nil, err
		}
	}
	return types, nil
}

func parseImportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Kind: kind}
		switch kind {
		case KindFunc:
			if imp.TypeIdx, err = r.ReadU32(); err != nil {
				return err
			}
		case KindMemory:
			limits, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.Memory = &MemoryType{Limits: limits}
		case KindTable:
			if _, err := readValType(r); err != nil {
				return err
			}
			if _, err := readLimits(r); err != nil {
				return err
			}
		case KindGlobal:
			if _, err := readValType(r); err != nil {
				return err
			}
			if _, err := r.ReadByte(); err != nil {
				return err
			}
		case KindTag:
			if _, err := r.ReadByte(); err != nil {
				return err
			}
			if _, err := r.ReadU32(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown import kind: %d", kind)
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

// readValType reads one value type, including the heap type of a typed reference.
func readValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b == byte(ValRefNull) || b == byte(ValRef) {
		if _, err := r.ReadS64(); err != nil {
			return 0, err
		}
	}
	return ValType(b), nil
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, count)
	for i := range m.Funcs {
		if m.Funcs[i], err = r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Memories = make([]MemoryType, count)
	for i := range m.Memories {
		limits, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memories[i] = MemoryType{Limits: limits}
	}
	return nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind > KindTag {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	if flags&LimitsMemory64 != 0 {
		return Limits{}, ErrMemory64
	}

	l := Limits{Shared: flags&LimitsShared != 0}
	if l.Min, err = r.ReadU32(); err != nil {
		return Limits{}, err
	}
	if flags&LimitsHasMax != 0 {
		maxVal, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &maxVal
	}
	if l.Max != nil && l.Min > *l.Max {
		return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, *l.Max)
	}
	return l, nil
}
