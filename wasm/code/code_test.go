package code

import (
	"testing"

	"github.com/pgavlin/warptab/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTableInstructions(t *testing.T) {
	cases := []struct {
		instr    Instruction
		expected []byte
	}{
		{TableInit(1, 0), []byte{0xfc, 0x0c, 0x01, 0x00}},
		{TableInit(3, 2), []byte{0xfc, 0x0c, 0x03, 0x02}},
		{ElemDrop(1), []byte{0xfc, 0x0d, 0x01}},
		{TableCopy(0, 1), []byte{0xfc, 0x0e, 0x00, 0x01}},
		{TableCopy(200, 0), []byte{0xfc, 0x0e, 0xc8, 0x01, 0x00}},
		{TableSize(1), []byte{0xfc, 0x10, 0x01}},
		{CallIndirect(0, 1), []byte{0x11, 0x00, 0x01}},
		{I32Const(-1), []byte{0x41, 0x7f}},
		{I64Const(30), []byte{0x42, 0x1e}},
		{F32Const(1), []byte{0x43, 0x00, 0x00, 0x80, 0x3f}},
		{LocalGet(0), []byte{0x20, 0x00}},
	}
	for _, c := range cases {
		t.Run(c.instr.String(), func(t *testing.T) {
			encoded := EncodeBytes(c.instr)
			assert.Equal(t, c.expected, encoded)

			decoded, err := DecodeInstructions(encoded)
			require.NoError(t, err)
			assert.Equal(t, []Instruction{c.instr}, decoded)
		})
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := DecodeInstructions([]byte{0xfc, 0x11, 0x00})
	assert.ErrorIs(t, err, ErrInvalidInstruction)

	_, err = DecodeInstructions([]byte{0x6a})
	assert.ErrorIs(t, err, ErrInvalidInstruction)
}

type testScope struct {
	locals   []wasm.ValueType
	types    []wasm.FunctionSig
	funcs    []wasm.FunctionSig
	tables   []wasm.IndexType
	elements int
}

func (s *testScope) GetLocalType(localidx uint32) (wasm.ValueType, bool) {
	if localidx >= uint32(len(s.locals)) {
		return 0, false
	}
	return s.locals[localidx], true
}

func (s *testScope) GetFunctionSignature(funcidx uint32) (wasm.FunctionSig, bool) {
	if funcidx >= uint32(len(s.funcs)) {
		return wasm.FunctionSig{}, false
	}
	return s.funcs[funcidx], true
}

func (s *testScope) GetType(typeidx uint32) (wasm.FunctionSig, bool) {
	if typeidx >= uint32(len(s.types)) {
		return wasm.FunctionSig{}, false
	}
	return s.types[typeidx], true
}

func (s *testScope) GetTableIndexType(tableidx uint32) (wasm.IndexType, bool) {
	if tableidx >= uint32(len(s.tables)) {
		return 0, false
	}
	return s.tables[tableidx], true
}

func (s *testScope) HasElement(elemidx uint32) bool {
	return elemidx < uint32(s.elements)
}

func TestDecodeValidation(t *testing.T) {
	i32 := []wasm.ValueType{wasm.ValueTypeI32}
	scope := &testScope{
		locals:   i32,
		types:    []wasm.FunctionSig{{ReturnTypes: i32}},
		funcs:    []wasm.FunctionSig{{ReturnTypes: i32}},
		tables:   []wasm.IndexType{wasm.IndexTypeI32, wasm.IndexTypeI64, wasm.IndexTypeI64},
		elements: 2,
	}

	cases := []struct {
		name    string
		body    []Instruction
		out     []wasm.ValueType
		failure string
	}{
		{
			name: "copy i32",
			body: []Instruction{I32Const(0), I32Const(1), I32Const(2), TableCopy(0, 0), End()},
		},
		{
			name: "copy i64",
			body: []Instruction{I64Const(0), I64Const(1), I64Const(2), TableCopy(1, 2), End()},
		},
		{
			name: "copy mixed",
			body: []Instruction{I64Const(0), I32Const(1), I32Const(2), TableCopy(1, 0), End()},
		},
		{
			name:    "copy mixed i64 length",
			body:    []Instruction{I64Const(0), I32Const(1), I64Const(2), TableCopy(1, 0), End()},
			failure: "type mismatch",
		},
		{
			name:    "copy f32 operand",
			body:    []Instruction{F32Const(0), I32Const(1), I32Const(2), TableCopy(0, 0), End()},
			failure: "type mismatch",
		},
		{
			name:    "copy unknown table",
			body:    []Instruction{I32Const(0), I32Const(1), I32Const(2), TableCopy(0, 3), End()},
			failure: "unknown table 3",
		},
		{
			name: "init i64",
			body: []Instruction{I64Const(0), I32Const(1), I32Const(2), TableInit(1, 1), End()},
		},
		{
			name:    "init i64 offset on i32 table",
			body:    []Instruction{I64Const(0), I32Const(1), I32Const(2), TableInit(1, 0), End()},
			failure: "type mismatch",
		},
		{
			name:    "init unknown segment",
			body:    []Instruction{I32Const(0), I32Const(1), I32Const(2), TableInit(4, 0), End()},
			failure: "unknown elem segment 4",
		},
		{
			name:    "drop unknown segment",
			body:    []Instruction{ElemDrop(2), End()},
			failure: "unknown elem segment 2",
		},
		{
			name:    "underflow",
			body:    []Instruction{I32Const(1), I32Const(2), TableInit(0, 0), End()},
			failure: "type mismatch",
		},
		{
			name: "call_indirect",
			body: []Instruction{LocalGet(0), CallIndirect(0, 0), End()},
			out:  i32,
		},
		{
			name:    "call_indirect i32 index on i64 table",
			body:    []Instruction{LocalGet(0), CallIndirect(0, 1), End()},
			out:     i32,
			failure: "type mismatch",
		},
		{
			name:    "leftover operand",
			body:    []Instruction{I32Const(0), End()},
			failure: "type mismatch",
		},
		{
			name: "unreachable is polymorphic",
			body: []Instruction{Unreachable(), TableCopy(0, 0), End()},
			out:  nil,
		},
		{
			name:    "unknown local",
			body:    []Instruction{LocalGet(1), Drop(), End()},
			failure: "unknown local 1",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body, err := Decode(EncodeBytes(c.body...), scope, c.out)
			if c.failure != "" {
				require.Error(t, err)
				assert.Equal(t, c.failure, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.body, body.Instructions)
		})
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	_, err := Decode([]byte{0x0b, 0x01}, &testScope{}, nil)
	assert.Equal(t, ErrTrailingBytes, err)
}

func TestDecodeMissingEnd(t *testing.T) {
	_, err := Decode([]byte{0x01}, &testScope{}, nil)
	assert.Error(t, err)
}
