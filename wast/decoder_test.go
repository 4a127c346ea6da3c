package wast

import (
	"math"
	"testing"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInlineTableSegment(t *testing.T) {
	m, err := decodeModuleText(t, `
(module
  (func $f (result i32) (i32.const 0))
  (table $t i64 funcref (elem $f $f $f))
  (table $u 1 funcref)
  (elem (table $u) (i32.const 0) $f))
`)
	require.NoError(t, err)

	assert.Equal(t, []wasm.Table{
		{ElementType: wasm.ValueTypeFuncref, IndexType: wasm.IndexTypeI64, Limits: wasm.ResizableLimits{HasMaximum: true, Initial: 3, Maximum: 3}},
		{ElementType: wasm.ValueTypeFuncref, IndexType: wasm.IndexTypeI32, Limits: wasm.ResizableLimits{Initial: 1}},
	}, m.Tables)

	// The implicit segment follows the explicit ones.
	assert.Equal(t, []wasm.ElementSegment{
		{
			Mode:   wasm.ElementModeActive,
			Table:  1,
			Offset: code.EncodeBytes(code.I32Const(0), code.End()),
			Elems:  []uint32{0},
		},
		{
			Mode:   wasm.ElementModeActive,
			Table:  0,
			Offset: code.EncodeBytes(code.I64Const(0), code.End()),
			Elems:  []uint32{0, 0, 0},
		},
	}, m.Elements)
}

func TestDecodeFloatConsts(t *testing.T) {
	m, err := decodeModuleText(t, `
(module
  (func (result f64)
    (f32.const 1.5) (drop)
    (f32.const -inf) (drop)
    (f64.const -0x1p-2)))
`)
	require.NoError(t, err)

	require.Len(t, m.Code, 1)
	assert.Equal(t, code.EncodeBytes(
		code.F32Const(1.5), code.Drop(),
		code.F32Const(float32(math.Inf(-1))), code.Drop(),
		code.F64Const(-0.25),
		code.End(),
	), m.Code[0].Code)
}

func TestDecodeScriptModules(t *testing.T) {
	s := parseScriptText(t, `
(module $a (table 2 funcref))
(table i64 1 funcref)
(assert_invalid (module (elem (i32.const 0) func)) "unknown table")
`)
	require.Len(t, s.Commands, 3)

	a, err := s.Commands[0].(ModuleCommand).Decode()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), a.Tables[0].Limits.Initial)

	bare, err := s.Commands[1].(ModuleCommand).Decode()
	require.NoError(t, err)
	assert.Equal(t, wasm.IndexTypeI64, bare.Tables[0].IndexType)

	// Decoding does not validate table references.
	invalid, err := s.Commands[2].(*AssertInvalid).Module.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), invalid.Elements[0].Table)
	assert.Empty(t, invalid.Elements[0].Elems)
}
