package code

import "fmt"

// An Opcode identifies an instruction. Single-byte opcodes occupy the low byte; opcodes behind the 0xfc prefix
// are stored as PrefixMisc<<8 | subopcode.
type Opcode uint16

// PrefixMisc is the leading byte of the miscellaneous (bulk table) instructions.
const PrefixMisc = 0xfc

const (
	OpUnreachable  Opcode = 0x00
	OpNop          Opcode = 0x01
	OpEnd          Opcode = 0x0b
	OpReturn       Opcode = 0x0f
	OpCall         Opcode = 0x10
	OpCallIndirect Opcode = 0x11

	OpDrop Opcode = 0x1a

	OpLocalGet Opcode = 0x20

	OpI32Const Opcode = 0x41
	OpI64Const Opcode = 0x42
	OpF32Const Opcode = 0x43
	OpF64Const Opcode = 0x44

	OpTableInit Opcode = PrefixMisc<<8 | 0x0c
	OpElemDrop  Opcode = PrefixMisc<<8 | 0x0d
	OpTableCopy Opcode = PrefixMisc<<8 | 0x0e
	OpTableSize Opcode = PrefixMisc<<8 | 0x10
)

var opcodeNames = map[Opcode]string{
	OpUnreachable:  "unreachable",
	OpNop:          "nop",
	OpEnd:          "end",
	OpReturn:       "return",
	OpCall:         "call",
	OpCallIndirect: "call_indirect",
	OpDrop:         "drop",
	OpLocalGet:     "local.get",
	OpI32Const:     "i32.const",
	OpI64Const:     "i64.const",
	OpF32Const:     "f32.const",
	OpF64Const:     "f64.const",
	OpTableInit:    "table.init",
	OpElemDrop:     "elem.drop",
	OpTableCopy:    "table.copy",
	OpTableSize:    "table.size",
}

// IsPrefixed returns true if the opcode is encoded behind the 0xfc prefix.
func (op Opcode) IsPrefixed() bool {
	return op>>8 == PrefixMisc
}

// Subopcode returns the subopcode of a prefixed opcode.
func (op Opcode) Subopcode() uint32 {
	return uint32(op & 0xff)
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	if op.IsPrefixed() {
		return fmt.Sprintf("<unknown opcode 0xfc %d>", op.Subopcode())
	}
	return fmt.Sprintf("<unknown opcode %#02x>", uint16(op))
}
