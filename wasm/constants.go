package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is "\0asm" read as a little-endian uint32.
	Magic uint32 = 0x6D736100

	// Version is the supported binary format version.
	Version uint32 = 0x01
)

// Section IDs.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
	SectionTag       byte = 13
)

// Import/export descriptor kinds.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
	KindTag    byte = 4
)

// Value types.
const (
	ValI32     ValType = 0x7F
	ValI64     ValType = 0x7E
	ValF32     ValType = 0x7D
	ValF64     ValType = 0x7C
	ValV128    ValType = 0x7B
	ValFuncRef ValType = 0x70
	ValExtern  ValType = 0x6F
	ValRefNull ValType = 0x63 // (ref null ht), followed by a heap type
	ValRef     ValType = 0x64 // (ref ht), followed by a heap type
)

// FuncTypeByte introduces a function type in the type section.
const FuncTypeByte byte = 0x60

// Limits flags.
const (
	LimitsHasMax   byte = 0x01
	LimitsShared   byte = 0x02
	LimitsMemory64 byte = 0x04
)

// BlockTypeVoid is the empty block type.
const BlockTypeVoid byte = 0x40

// Opcodes used by the code builder.
const (
	OpUnreachable byte = 0x00
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpEnd         byte = 0x0B
	OpBrIf        byte = 0x0D
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
	OpLocalGet    byte = 0x20
	OpI32Load     byte = 0x28
	OpI32Store    byte = 0x36
	OpI32Store8   byte = 0x3A
	OpI32Const    byte = 0x41
	OpI64Const    byte = 0x42
	OpI32LtS      byte = 0x48
	OpI32Add      byte = 0x6A

	OpPrefixAtomic byte = 0xFE // threads proposal
)

// Atomic sub-opcodes (0xFE prefix).
const (
	AtomicNotify   uint32 = 0x00
	AtomicWait32   uint32 = 0x01
	AtomicI32Load  uint32 = 0x10
	AtomicI32Store uint32 = 0x17
)
