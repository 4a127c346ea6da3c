package code

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/leb128"
)

var ErrInvalidInstruction = errors.New("wasm: invalid instruction")

// ErrTrailingBytes is returned by Decode if a function body continues past its final end instruction.
var ErrTrailingBytes = errors.New("wasm: unexpected bytes after function end")

type Metrics struct {
	MaxStackDepth    int // The maximum stack depth for the function.
	InstructionCount int // The number of instructions in the function.
}

type decoder struct {
	Scope

	ibuf    []Instruction
	metrics Metrics

	stack       []wasm.ValueType
	unreachable bool
}

type Body struct {
	Instructions []Instruction
	Metrics      Metrics
}

// Decode decodes and validates the given function body. out holds the function's result types.
func Decode(body []byte, scope Scope, out []wasm.ValueType) (Body, error) {
	decoder := decoder{Scope: scope}
	return decoder.decode(body, out)
}

// DecodeInstructions decodes a sequence of instructions without validating them. The sequence need not be
// terminated by an end instruction.
func DecodeInstructions(body []byte) ([]Instruction, error) {
	var instrs []Instruction
	for len(body) != 0 {
		instr, rest, err := decodeInstruction(body)
		if err != nil {
			return nil, err
		}
		instrs, body = append(instrs, instr), rest
	}
	return instrs, nil
}

func decodeIndex(body []byte) (uint32, []byte, error) {
	v, sz, err := leb128.GetVarUint32(body)
	if err != nil {
		return 0, nil, err
	}
	return v, body[sz:], nil
}

func decodeIndexPair(body []byte) (uint64, []byte, error) {
	lo, body, err := decodeIndex(body)
	if err != nil {
		return 0, nil, err
	}
	hi, body, err := decodeIndex(body)
	if err != nil {
		return 0, nil, err
	}
	return pair(lo, hi), body, nil
}

func decodeInstruction(body []byte) (Instruction, []byte, error) {
	if len(body) == 0 {
		return Instruction{}, nil, io.ErrUnexpectedEOF
	}

	op, body := Opcode(body[0]), body[1:]
	if op == PrefixMisc {
		sub, rest, err := decodeIndex(body)
		if err != nil {
			return Instruction{}, nil, err
		}
		if sub > 0xff {
			return Instruction{}, nil, ErrInvalidInstruction
		}
		op, body = PrefixMisc<<8|Opcode(sub), rest
	}

	instr := Instruction{Opcode: op}
	switch op {
	case OpUnreachable, OpNop, OpEnd, OpReturn, OpDrop:
		// No immediates
	case OpCall, OpLocalGet, OpElemDrop, OpTableSize:
		idx, rest, err := decodeIndex(body)
		if err != nil {
			return Instruction{}, nil, err
		}
		instr.Immediate, body = uint64(idx), rest
	case OpCallIndirect, OpTableInit, OpTableCopy:
		imm, rest, err := decodeIndexPair(body)
		if err != nil {
			return Instruction{}, nil, err
		}
		instr.Immediate, body = imm, rest
	case OpI32Const:
		v, sz, err := leb128.GetVarint32(body)
		if err != nil {
			return Instruction{}, nil, err
		}
		instr.Immediate, body = uint64(uint32(v)), body[sz:]
	case OpI64Const:
		v, sz, err := leb128.GetVarint64(body)
		if err != nil {
			return Instruction{}, nil, err
		}
		instr.Immediate, body = uint64(v), body[sz:]
	case OpF32Const:
		if len(body) < 4 {
			return Instruction{}, nil, io.ErrUnexpectedEOF
		}
		instr.Immediate, body = uint64(binary.LittleEndian.Uint32(body)), body[4:]
	case OpF64Const:
		if len(body) < 8 {
			return Instruction{}, nil, io.ErrUnexpectedEOF
		}
		instr.Immediate, body = binary.LittleEndian.Uint64(body), body[8:]
	default:
		return Instruction{}, nil, fmt.Errorf("%w: %v", ErrInvalidInstruction, op)
	}
	return instr, body, nil
}

func (d *decoder) popOpd() (wasm.ValueType, error) {
	if len(d.stack) == 0 {
		if d.unreachable {
			return wasm.ValueTypeT, nil
		}
		return 0, wasm.ValidationError("type mismatch")
	}
	t := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return t, nil
}

func (d *decoder) popOpds(types ...wasm.ValueType) error {
	for i := len(types) - 1; i >= 0; i-- {
		expected := types[i]
		actual, err := d.popOpd()
		if err != nil {
			return err
		}
		if actual != wasm.ValueTypeT && expected != wasm.ValueTypeT && actual != expected {
			return wasm.ValidationError("type mismatch")
		}
	}
	return nil
}

func (d *decoder) pushOpds(types ...wasm.ValueType) {
	d.stack = append(d.stack, types...)

	if len(d.stack) > d.metrics.MaxStackDepth {
		d.metrics.MaxStackDepth = len(d.stack)
	}
}

func (d *decoder) setUnreachable() {
	d.stack = d.stack[:0]
	d.unreachable = true
}

func (d *decoder) tableIndexType(tableidx uint32) (wasm.IndexType, error) {
	t, ok := d.GetTableIndexType(tableidx)
	if !ok {
		return 0, wasm.ValidationError(fmt.Sprintf("unknown table %d", tableidx))
	}
	return t, nil
}

func (d *decoder) checkElement(elemidx uint32) error {
	if !d.HasElement(elemidx) {
		return wasm.ValidationError(fmt.Sprintf("unknown elem segment %d", elemidx))
	}
	return nil
}

func (d *decoder) doStack(i *Instruction) error {
	const (
		I32 = wasm.ValueTypeI32
		I64 = wasm.ValueTypeI64
		F32 = wasm.ValueTypeF32
		F64 = wasm.ValueTypeF64
	)

	switch i.Opcode {
	case OpNop:
		// OK

	case OpUnreachable, OpReturn:
		d.setUnreachable()

	case OpDrop:
		_, err := d.popOpd()
		return err

	case OpLocalGet:
		t, ok := d.GetLocalType(i.Localidx())
		if !ok {
			return wasm.ValidationError(fmt.Sprintf("unknown local %d", i.Localidx()))
		}
		d.pushOpds(t)

	case OpI32Const:
		d.pushOpds(I32)

	case OpI64Const:
		d.pushOpds(I64)

	case OpF32Const:
		d.pushOpds(F32)

	case OpF64Const:
		d.pushOpds(F64)

	case OpCall:
		sig, ok := d.GetFunctionSignature(i.Funcidx())
		if !ok {
			return wasm.ValidationError(fmt.Sprintf("unknown function %d", i.Funcidx()))
		}
		if err := d.popOpds(sig.ParamTypes...); err != nil {
			return err
		}
		d.pushOpds(sig.ReturnTypes...)

	case OpCallIndirect:
		it, err := d.tableIndexType(i.Tableidx())
		if err != nil {
			return err
		}
		sig, ok := d.GetType(i.Typeidx())
		if !ok {
			return wasm.ValidationError("unknown type")
		}
		if err := d.popOpds(it.ValueType()); err != nil {
			return err
		}
		if err := d.popOpds(sig.ParamTypes...); err != nil {
			return err
		}
		d.pushOpds(sig.ReturnTypes...)

	case OpTableInit:
		it, err := d.tableIndexType(i.Tableidx())
		if err != nil {
			return err
		}
		if err := d.checkElement(i.Elemidx()); err != nil {
			return err
		}
		return d.popOpds(it.ValueType(), I32, I32)

	case OpElemDrop:
		return d.checkElement(i.Elemidx())

	case OpTableCopy:
		dst, src := i.Tables()
		dt, err := d.tableIndexType(dst)
		if err != nil {
			return err
		}
		st, err := d.tableIndexType(src)
		if err != nil {
			return err
		}
		return d.popOpds(dt.ValueType(), st.ValueType(), wasm.MinIndexType(dt, st).ValueType())

	case OpTableSize:
		it, err := d.tableIndexType(i.Tableidx())
		if err != nil {
			return err
		}
		d.pushOpds(it.ValueType())

	default:
		return ErrInvalidInstruction
	}
	return nil
}

func (d *decoder) decode(body []byte, out []wasm.ValueType) (Body, error) {
	for {
		instr, rest, err := decodeInstruction(body)
		if err != nil {
			return Body{}, err
		}
		body = rest

		if instr.Opcode == OpEnd {
			if err := d.popOpds(out...); err != nil {
				return Body{}, err
			}
			if len(d.stack) != 0 {
				return Body{}, wasm.ValidationError("type mismatch")
			}
			if len(body) != 0 {
				return Body{}, ErrTrailingBytes
			}
			d.ibuf = append(d.ibuf, instr)
			d.metrics.InstructionCount = len(d.ibuf)
			return Body{Instructions: d.ibuf, Metrics: d.metrics}, nil
		}

		if err := d.doStack(&instr); err != nil {
			return Body{}, err
		}
		d.ibuf = append(d.ibuf, instr)
	}
}
