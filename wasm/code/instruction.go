package code

import (
	"fmt"
	"math"
)

// An Instruction is a single decoded instruction. Instructions with two index immediates store the first in
// the low 32 bits of Immediate and the second in the high 32 bits, in encoding order.
type Instruction struct {
	Opcode    Opcode `json:"opcode"`
	Immediate uint64 `json:"immediate"`
}

func (i *Instruction) Funcidx() uint32 {
	return uint32(i.Immediate)
}

func (i *Instruction) Localidx() uint32 {
	return uint32(i.Immediate)
}

func (i *Instruction) Typeidx() uint32 {
	return uint32(i.Immediate)
}

func (i *Instruction) Elemidx() uint32 {
	return uint32(i.Immediate)
}

// Tableidx returns the table operand of call_indirect, table.init, or table.size.
func (i *Instruction) Tableidx() uint32 {
	if i.Opcode == OpTableSize {
		return uint32(i.Immediate)
	}
	return uint32(i.Immediate >> 32)
}

// Tables returns the destination and source table operands of table.copy.
func (i *Instruction) Tables() (dst uint32, src uint32) {
	return uint32(i.Immediate), uint32(i.Immediate >> 32)
}

func (i *Instruction) I32() int32 {
	return int32(i.Immediate)
}

func (i *Instruction) I64() int64 {
	return int64(i.Immediate)
}

func (i *Instruction) F32() float32 {
	return math.Float32frombits(uint32(i.Immediate))
}

func (i *Instruction) F64() float64 {
	return math.Float64frombits(i.Immediate)
}

func (i Instruction) String() string {
	switch i.Opcode {
	case OpCall:
		return fmt.Sprintf("call %d", i.Funcidx())
	case OpCallIndirect:
		return fmt.Sprintf("call_indirect %d (type %d)", i.Tableidx(), i.Typeidx())
	case OpLocalGet:
		return fmt.Sprintf("local.get %d", i.Localidx())
	case OpI32Const:
		return fmt.Sprintf("i32.const %d", i.I32())
	case OpI64Const:
		return fmt.Sprintf("i64.const %d", i.I64())
	case OpF32Const:
		return fmt.Sprintf("f32.const %v", i.F32())
	case OpF64Const:
		return fmt.Sprintf("f64.const %v", i.F64())
	case OpTableInit:
		return fmt.Sprintf("table.init %d %d", i.Tableidx(), i.Elemidx())
	case OpElemDrop:
		return fmt.Sprintf("elem.drop %d", i.Elemidx())
	case OpTableCopy:
		dst, src := i.Tables()
		return fmt.Sprintf("table.copy %d %d", dst, src)
	case OpTableSize:
		return fmt.Sprintf("table.size %d", i.Tableidx())
	default:
		return i.Opcode.String()
	}
}

func pair(lo, hi uint32) uint64 {
	return uint64(lo) | uint64(hi)<<32
}

func Unreachable() Instruction { return Instruction{Opcode: OpUnreachable} }
func Nop() Instruction         { return Instruction{Opcode: OpNop} }
func End() Instruction         { return Instruction{Opcode: OpEnd} }
func Return() Instruction      { return Instruction{Opcode: OpReturn} }
func Drop() Instruction        { return Instruction{Opcode: OpDrop} }

func Call(funcidx uint32) Instruction {
	return Instruction{Opcode: OpCall, Immediate: uint64(funcidx)}
}

func CallIndirect(typeidx, tableidx uint32) Instruction {
	return Instruction{Opcode: OpCallIndirect, Immediate: pair(typeidx, tableidx)}
}

func LocalGet(localidx uint32) Instruction {
	return Instruction{Opcode: OpLocalGet, Immediate: uint64(localidx)}
}

func I32Const(v int32) Instruction {
	return Instruction{Opcode: OpI32Const, Immediate: uint64(uint32(v))}
}

func I64Const(v int64) Instruction {
	return Instruction{Opcode: OpI64Const, Immediate: uint64(v)}
}

func F32Const(v float32) Instruction {
	return Instruction{Opcode: OpF32Const, Immediate: uint64(math.Float32bits(v))}
}

func F64Const(v float64) Instruction {
	return Instruction{Opcode: OpF64Const, Immediate: math.Float64bits(v)}
}

func TableInit(elemidx, tableidx uint32) Instruction {
	return Instruction{Opcode: OpTableInit, Immediate: pair(elemidx, tableidx)}
}

func ElemDrop(elemidx uint32) Instruction {
	return Instruction{Opcode: OpElemDrop, Immediate: uint64(elemidx)}
}

func TableCopy(dst, src uint32) Instruction {
	return Instruction{Opcode: OpTableCopy, Immediate: pair(dst, src)}
}

func TableSize(tableidx uint32) Instruction {
	return Instruction{Opcode: OpTableSize, Immediate: uint64(tableidx)}
}
