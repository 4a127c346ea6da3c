package wast

import (
	"strings"
	"testing"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeModuleText(t *testing.T, text string) (*wasm.Module, error) {
	m, err := ParseModule(NewScanner(strings.NewReader(text)))
	require.NoError(t, err)
	return m.Decode()
}

func TestDecodeTableModule(t *testing.T) {
	m, err := decodeModuleText(t, `
(module
  (type $r (func (result i32)))
  (import "spectest" "table" (table $imp 10 20 funcref))
  (func $f (export "f") (type $r) (i32.const 1))
  (func $g (param $x i32) (result i32) (local.get $x))
  (table $t i64 30 funcref)
  (table $inline (export "inline") funcref (elem $f $g))
  (elem $a (table $t) (i64.const 2) func $g $f)
  (elem $p funcref (ref.func $f) (item ref.func $g) (item (ref.func $f)))
  (elem declare func $g)
  (func (export "ops")
    (table.copy $t $inline (i64.const 0) (i32.const 0) (i32.const 1))
    (table.init $inline $p (i32.const 0) (i32.const 0) (i32.const 1))
    (table.init $a (i32.const 0) (i32.const 0) (i32.const 0))
    (elem.drop $p)
    (call_indirect $t (type $r) (i64.const 0)) (drop)
    (table.size $t) (drop)))
`)
	require.NoError(t, err)

	require.Len(t, m.Types, 3)
	assert.True(t, m.Types[0].Equals(wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}))
	assert.True(t, m.Types[1].Equals(wasm.FunctionSig{
		ParamTypes:  []wasm.ValueType{wasm.ValueTypeI32},
		ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32},
	}))
	assert.True(t, m.Types[2].Equals(wasm.FunctionSig{}))

	assert.Equal(t, []wasm.ImportEntry{{
		ModuleName: "spectest",
		FieldName:  "table",
		Type: wasm.TableImport{Type: wasm.Table{
			ElementType: wasm.ValueTypeFuncref,
			IndexType:   wasm.IndexTypeI32,
			Limits:      wasm.ResizableLimits{HasMaximum: true, Initial: 10, Maximum: 20},
		}},
	}}, m.Imports)

	assert.Equal(t, []uint32{0, 1, 2}, m.Function)

	assert.Equal(t, []wasm.Table{
		{ElementType: wasm.ValueTypeFuncref, IndexType: wasm.IndexTypeI64, Limits: wasm.ResizableLimits{Initial: 30}},
		{ElementType: wasm.ValueTypeFuncref, IndexType: wasm.IndexTypeI32, Limits: wasm.ResizableLimits{HasMaximum: true, Initial: 2, Maximum: 2}},
	}, m.Tables)

	assert.Equal(t, []wasm.ExportEntry{
		{FieldStr: "f", Kind: wasm.ExternalFunction, Index: 0},
		{FieldStr: "ops", Kind: wasm.ExternalFunction, Index: 2},
		{FieldStr: "inline", Kind: wasm.ExternalTable, Index: 2},
	}, m.Exports)

	require.Len(t, m.Elements, 4)
	assert.Equal(t, wasm.ElementSegment{
		Mode:   wasm.ElementModeActive,
		Table:  1,
		Offset: code.EncodeBytes(code.I64Const(2), code.End()),
		Elems:  []uint32{1, 0},
	}, m.Elements[0])
	assert.Equal(t, wasm.ElementModePassive, m.Elements[1].Mode)
	assert.Equal(t, []uint32{0, 1, 0}, m.Elements[1].Elems)
	assert.Equal(t, wasm.ElementModeDeclarative, m.Elements[2].Mode)
	assert.Equal(t, []uint32{1}, m.Elements[2].Elems)
	assert.Equal(t, wasm.ElementSegment{
		Mode:   wasm.ElementModeActive,
		Table:  2,
		Offset: code.EncodeBytes(code.I32Const(0), code.End()),
		Elems:  []uint32{0, 1},
	}, m.Elements[3])

	require.Len(t, m.Code, 3)
	assert.Equal(t, code.EncodeBytes(code.LocalGet(0), code.End()), m.Code[1].Code)
	assert.Equal(t, code.EncodeBytes(
		code.I64Const(0), code.I32Const(0), code.I32Const(1), code.TableCopy(1, 2),
		code.I32Const(0), code.I32Const(0), code.I32Const(1), code.TableInit(1, 2),
		code.I32Const(0), code.I32Const(0), code.I32Const(0), code.TableInit(0, 0),
		code.ElemDrop(1),
		code.I64Const(0), code.CallIndirect(0, 1), code.Drop(),
		code.TableSize(1), code.Drop(),
		code.End(),
	), m.Code[2].Code)
}

func TestDecodeLegacyElem(t *testing.T) {
	m, err := decodeModuleText(t, `
(module
  (table 4 funcref)
  (func $f)
  (elem (i32.const 1) $f $f)
  (elem 0 (offset (i32.const 3)) $f))
`)
	require.NoError(t, err)

	require.Len(t, m.Elements, 2)
	for _, e := range m.Elements {
		assert.Equal(t, wasm.ElementModeActive, e.Mode)
		assert.Equal(t, uint32(0), e.Table)
	}
	assert.Equal(t, []uint32{0, 0}, m.Elements[0].Elems)
	assert.Equal(t, code.EncodeBytes(code.I32Const(3), code.End()), m.Elements[1].Offset)
}

func TestDecodeUnknownNames(t *testing.T) {
	cases := []struct {
		text    string
		message string
	}{
		{`(module (func (call $nope)))`, "unknown function $nope"},
		{`(module (func (table.size $nope) (drop)))`, "unknown table $nope"},
		{`(module (table 1 funcref) (func (elem.drop $nope)))`, "unknown elem segment $nope"},
		{`(module (func (local.get $nope) (drop)))`, "unknown local $nope"},
		{`(module (func (type $nope)))`, "unknown type $nope"},
	}
	for _, c := range cases {
		t.Run(c.message, func(t *testing.T) {
			_, err := decodeModuleText(t, c.text)
			assert.EqualError(t, err, c.message)
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		`(module (table.copy))`,
		`(module (func (table.copy $t0)))`,
		`(module (func (table.init)))`,
		`(module (elem (table 0) func 0))`,
		`(module (func (f32.const nan:0x1)))`,
		`(module (func (i32.const 1.5)))`,
	}
	for _, text := range cases {
		_, err := ParseModule(NewScanner(strings.NewReader(text)))
		assert.Error(t, err, text)
	}
}
