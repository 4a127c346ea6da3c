package code

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pgavlin/warptab/wasm/leb128"
)

func encodeOpcode(w io.Writer, op Opcode) error {
	if !op.IsPrefixed() {
		_, err := w.Write([]byte{byte(op)})
		return err
	}
	if _, err := w.Write([]byte{PrefixMisc}); err != nil {
		return err
	}
	_, err := leb128.WriteVarUint32(w, op.Subopcode())
	return err
}

func encodeInstruction(w io.Writer, instr Instruction) error {
	if err := encodeOpcode(w, instr.Opcode); err != nil {
		return err
	}

	switch instr.Opcode {
	case OpCall, OpLocalGet, OpElemDrop, OpTableSize:
		// Index encoding
		if _, err := leb128.WriteVarUint32(w, uint32(instr.Immediate)); err != nil {
			return err
		}
	case OpCallIndirect, OpTableInit, OpTableCopy:
		// Two indices, in encoding order
		if _, err := leb128.WriteVarUint32(w, uint32(instr.Immediate)); err != nil {
			return err
		}
		if _, err := leb128.WriteVarUint32(w, uint32(instr.Immediate>>32)); err != nil {
			return err
		}
	case OpI32Const:
		if _, err := leb128.WriteVarint64(w, int64(int32(instr.Immediate))); err != nil {
			return err
		}
	case OpI64Const:
		if _, err := leb128.WriteVarint64(w, int64(instr.Immediate)); err != nil {
			return err
		}
	case OpF32Const:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(instr.Immediate))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	case OpF64Const:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], instr.Immediate)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes the binary encoding of the given instructions to w.
func Encode(w io.Writer, instrs []Instruction) error {
	for _, instr := range instrs {
		if err := encodeInstruction(w, instr); err != nil {
			return err
		}
	}
	return nil
}

// EncodeBytes returns the binary encoding of the given instructions.
func EncodeBytes(instrs ...Instruction) []byte {
	var buf bytes.Buffer
	if err := Encode(&buf, instrs); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
