package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
	"github.com/pgavlin/warptab/wasm/validate"
)

var (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
)

func expr(instrs ...code.Instruction) []byte {
	return code.EncodeBytes(instrs...)
}

func i32Const(v int32) []byte {
	return expr(code.I32Const(v), code.End())
}

func i64Const(v int64) []byte {
	return expr(code.I64Const(v), code.End())
}

func funcTable(indexType wasm.IndexType, size uint64) wasm.Table {
	return wasm.Table{
		ElementType: wasm.ValueTypeFuncref,
		IndexType:   indexType,
		Limits:      wasm.ResizableLimits{HasMaximum: true, Initial: size, Maximum: size},
	}
}

// instantiate validates and instantiates the given module in a new store. Additional host modules may be supplied
// by name.
func instantiate(t *testing.T, m *wasm.Module, hosts exec.MapResolver) (exec.Module, error) {
	require.NoError(t, validate.ValidateModule(m, true))

	resolver := exec.MapResolver{"test": NewModuleDefinition(m)}
	for name, def := range hosts {
		resolver[name] = def
	}
	return exec.NewStore(resolver).InstantiateModule("test")
}

func invoke(t *testing.T, mod exec.Module, name string, args ...interface{}) ([]interface{}, error) {
	f, err := mod.GetFunction(name)
	require.NoError(t, err)

	thread := exec.NewThread(64)
	return exec.Invoke(&thread, f, args...)
}

// tableIDs returns the value returned by the function in each slot of a table, or -1 for uninitialized slots.
func tableIDs(t *testing.T, table *exec.Table) []int32 {
	ids := make([]int32, table.Size())
	for i, s := range table.Slots() {
		fn, ok := s.Function()
		if !ok {
			ids[i] = -1
			continue
		}
		thread := exec.NewThread(64)
		results, err := exec.Invoke(&thread, fn)
		require.NoError(t, err)
		ids[i] = results[0].(int32)
	}
	return ids
}

// constFuncs returns n function bodies that return their own index.
func constFuncs(n int) ([]uint32, []wasm.FunctionBody) {
	types, bodies := make([]uint32, n), make([]wasm.FunctionBody, n)
	for i := range bodies {
		bodies[i] = wasm.FunctionBody{Code: i32Const(int32(i))}
	}
	return types, bodies
}

// tableModule returns a module with five functions that return their own index, two i32 tables of size 30 and
// one i64 table of size 30. Table 0 holds (3 1 4 1) at offset 2 and (0 2 2 3 0) at offset 12. Segment 1 is
// passive and holds (2 0 1 4).
func tableModule() *wasm.Module {
	types, bodies := constFuncs(5)

	m := &wasm.Module{
		Types: []wasm.FunctionSig{
			{ReturnTypes: []wasm.ValueType{i32}},
			{ParamTypes: []wasm.ValueType{i32}, ReturnTypes: []wasm.ValueType{i32}},
			{ParamTypes: []wasm.ValueType{i32, i32, i32}},
			{ParamTypes: []wasm.ValueType{i64, i64, i64}},
			{ParamTypes: []wasm.ValueType{i64, i32, i32}},
			{ReturnTypes: []wasm.ValueType{i64}},
		},
		Function: types,
		Code:     bodies,
		Tables: []wasm.Table{
			funcTable(wasm.IndexTypeI32, 30),
			funcTable(wasm.IndexTypeI32, 30),
			funcTable(wasm.IndexTypeI64, 30),
		},
		Elements: []wasm.ElementSegment{
			{Mode: wasm.ElementModeActive, Table: 0, Offset: i32Const(2), Elems: []uint32{3, 1, 4, 1}},
			{Mode: wasm.ElementModePassive, Elems: []uint32{2, 0, 1, 4}},
			{Mode: wasm.ElementModeActive, Table: 0, Offset: i32Const(12), Elems: []uint32{0, 2, 2, 3, 0}},
			{Mode: wasm.ElementModeDeclarative, Elems: []uint32{0}},
		},
		Exports: []wasm.ExportEntry{
			{FieldStr: "t0", Kind: wasm.ExternalTable, Index: 0},
			{FieldStr: "t1", Kind: wasm.ExternalTable, Index: 1},
			{FieldStr: "t64", Kind: wasm.ExternalTable, Index: 2},
		},
	}

	addFunc := func(name string, typeidx uint32, body ...code.Instruction) {
		m.Function = append(m.Function, typeidx)
		m.Code = append(m.Code, wasm.FunctionBody{Code: expr(append(body, code.End())...)})
		m.Exports = append(m.Exports, wasm.ExportEntry{
			FieldStr: name,
			Kind:     wasm.ExternalFunction,
			Index:    uint32(len(m.Function) - 1),
		})
	}

	args3 := []code.Instruction{code.LocalGet(0), code.LocalGet(1), code.LocalGet(2)}
	addFunc("call", 1, code.LocalGet(0), code.CallIndirect(0, 0))
	addFunc("call_unary", 1, code.I32Const(7), code.LocalGet(0), code.CallIndirect(1, 0))
	addFunc("copy", 2, append(args3, code.TableCopy(0, 0))...)
	addFunc("copy_0_1", 2, append(args3, code.TableCopy(0, 1))...)
	addFunc("init", 2, append(args3, code.TableInit(1, 0))...)
	addFunc("drop", 0, code.ElemDrop(1), code.I32Const(0))
	addFunc("drop_active", 0, code.ElemDrop(0), code.I32Const(0))
	addFunc("copy64", 3, append(args3, code.TableCopy(2, 2))...)
	addFunc("copy_64_32", 4, append(args3, code.TableCopy(2, 0))...)
	addFunc("size64", 5, code.TableSize(2))
	return m
}

func TestActiveSegments(t *testing.T) {
	mod, err := instantiate(t, tableModule(), nil)
	require.NoError(t, err)

	t0, err := mod.GetTable("t0")
	require.NoError(t, err)

	expected := make([]int32, 30)
	for i := range expected {
		expected[i] = -1
	}
	copy(expected[2:], []int32{3, 1, 4, 1})
	copy(expected[12:], []int32{0, 2, 2, 3, 0})
	assert.Equal(t, expected, tableIDs(t, t0))

	// Active segments are dropped after they are applied.
	_, err = invoke(t, mod, "drop_active")
	assert.NoError(t, err)
}

func TestElementSegmentLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	exec.SetLogger(zap.New(core))
	defer exec.SetLogger(nil)

	_, err := instantiate(t, tableModule(), nil)
	require.NoError(t, err)

	var applied []map[string]interface{}
	for _, e := range logs.FilterMessage("applied active element segment").All() {
		applied = append(applied, e.ContextMap())
	}
	assert.Equal(t, []map[string]interface{}{
		{"module": "test", "segment": uint32(0), "table": uint32(0), "offset": uint64(2)},
		{"module": "test", "segment": uint32(2), "table": uint32(0), "offset": uint64(12)},
	}, applied)

	dropped := logs.FilterMessage("dropped element segment").All()
	if assert.Len(t, dropped, 1) {
		assert.Equal(t, map[string]interface{}{"module": "test", "segment": uint32(3), "mode": "declarative"}, dropped[0].ContextMap())
	}
}

func TestCallIndirect(t *testing.T) {
	mod, err := instantiate(t, tableModule(), nil)
	require.NoError(t, err)

	results, err := invoke(t, mod, "call", int32(2))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int32(3)}, results)

	_, err = invoke(t, mod, "call", int32(0))
	assert.Equal(t, exec.TrapUninitializedElement, err)

	_, err = invoke(t, mod, "call", int32(30))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)

	_, err = invoke(t, mod, "call", int32(-1))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)

	_, err = invoke(t, mod, "call_unary", int32(2))
	assert.Equal(t, exec.TrapIndirectCallTypeMismatch, err)
}

func TestTableCopyInstruction(t *testing.T) {
	mod, err := instantiate(t, tableModule(), nil)
	require.NoError(t, err)

	t0, err := mod.GetTable("t0")
	require.NoError(t, err)
	before := tableIDs(t, t0)

	// Out of bounds copies trap without modifying the table.
	_, err = invoke(t, mod, "copy", int32(28), int32(1), int32(3))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)
	_, err = invoke(t, mod, "copy", int32(-2), int32(1), int32(2))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)
	_, err = invoke(t, mod, "copy", int32(31), int32(15), int32(0))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)
	assert.Equal(t, before, tableIDs(t, t0))

	_, err = invoke(t, mod, "copy", int32(30), int32(15), int32(0))
	assert.NoError(t, err)

	_, err = invoke(t, mod, "copy", int32(13), int32(2), int32(3))
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 3, 1, 4, 0, -1}, tableIDs(t, t0)[12:18])

	results, err := invoke(t, mod, "call", int32(14))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int32(1)}, results)

	// Uninitialized source slots are copied as uninitialized.
	_, err = invoke(t, mod, "copy_0_1", int32(2), int32(0), int32(4))
	require.NoError(t, err)
	_, err = invoke(t, mod, "call", int32(3))
	assert.Equal(t, exec.TrapUninitializedElement, err)
}

func TestTableInitInstruction(t *testing.T) {
	mod, err := instantiate(t, tableModule(), nil)
	require.NoError(t, err)

	t0, err := mod.GetTable("t0")
	require.NoError(t, err)

	_, err = invoke(t, mod, "init", int32(7), int32(0), int32(4))
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 0, 1, 4}, tableIDs(t, t0)[7:11])

	before := tableIDs(t, t0)
	_, err = invoke(t, mod, "init", int32(28), int32(0), int32(4))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)
	assert.Equal(t, before, tableIDs(t, t0))

	_, err = invoke(t, mod, "drop")
	require.NoError(t, err)
	_, err = invoke(t, mod, "drop")
	require.NoError(t, err)

	_, err = invoke(t, mod, "init", int32(7), int32(0), int32(1))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)
	_, err = invoke(t, mod, "init", int32(30), int32(0), int32(0))
	assert.NoError(t, err)
	assert.Equal(t, before, tableIDs(t, t0))
}

func TestTable64(t *testing.T) {
	mod, err := instantiate(t, tableModule(), nil)
	require.NoError(t, err)

	results, err := invoke(t, mod, "size64")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(30)}, results)

	_, err = invoke(t, mod, "copy64", int64(30), int64(30), int64(0))
	assert.NoError(t, err)
	_, err = invoke(t, mod, "copy64", int64(31), int64(31), int64(0))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)
	_, err = invoke(t, mod, "copy64", int64(1)<<32, int64(0), int64(1))
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)

	// Copy from the i32 table into the i64 table. The length operand is an i32.
	_, err = invoke(t, mod, "copy_64_32", int64(20), int32(2), int32(4))
	require.NoError(t, err)

	t64, err := mod.GetTable("t64")
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 1, 4, 1}, tableIDs(t, t64)[20:24])
}

type hostTables struct {
	Table exec.Table
}

func TestActiveSegmentPartialWrites(t *testing.T) {
	host := &hostTables{Table: exec.NewTable(wasm.IndexTypeI32, 10, 20)}
	hosts := exec.MapResolver{
		"host": exec.NewHostModuleDefinition(func() (*hostTables, error) { return host, nil }),
	}

	types, bodies := constFuncs(3)
	m := &wasm.Module{
		Types: []wasm.FunctionSig{{ReturnTypes: []wasm.ValueType{i32}}},
		Imports: []wasm.ImportEntry{{
			ModuleName: "host",
			FieldName:  "table",
			Type: wasm.TableImport{Type: wasm.Table{
				ElementType: wasm.ValueTypeFuncref,
				Limits:      wasm.ResizableLimits{Initial: 10},
			}},
		}},
		Function: types,
		Code:     bodies,
		Elements: []wasm.ElementSegment{
			{Mode: wasm.ElementModeActive, Offset: i32Const(0), Elems: []uint32{0, 1}},
			{Mode: wasm.ElementModeActive, Offset: i32Const(9), Elems: []uint32{2, 2}},
			{Mode: wasm.ElementModeActive, Offset: i32Const(4), Elems: []uint32{2}},
		},
	}

	_, err := instantiate(t, m, hosts)
	assert.Equal(t, exec.TrapOutOfBoundsTableAccess, err)

	// The first segment's writes remain; the segments after the failing one are not applied.
	assert.Equal(t, []int32{0, 1, -1, -1, -1, -1, -1, -1, -1, -1}, tableIDs(t, &host.Table))
}

func TestImportedTableTypeMismatch(t *testing.T) {
	hosts := exec.MapResolver{
		"host": exec.NewHostModuleDefinition(func() (*hostTables, error) {
			return &hostTables{Table: exec.NewTable(wasm.IndexTypeI32, 10, 20)}, nil
		}),
	}

	m := &wasm.Module{
		Imports: []wasm.ImportEntry{{
			ModuleName: "host",
			FieldName:  "table",
			Type:       wasm.TableImport{Type: funcTable(wasm.IndexTypeI64, 10)},
		}},
	}
	_, err := instantiate(t, m, hosts)
	assert.ErrorIs(t, err, exec.ErrTableType)
}

func TestCallStackExhausted(t *testing.T) {
	m := &wasm.Module{
		Types:    []wasm.FunctionSig{{}},
		Function: []uint32{0},
		Code:     []wasm.FunctionBody{{Code: expr(code.Call(0), code.End())}},
		Exports:  []wasm.ExportEntry{{FieldStr: "loop", Kind: wasm.ExternalFunction, Index: 0}},
	}
	mod, err := instantiate(t, m, nil)
	require.NoError(t, err)

	_, err = invoke(t, mod, "loop")
	assert.Equal(t, exec.TrapCallStackExhausted, err)
}

func TestTableTooLarge(t *testing.T) {
	m := &wasm.Module{
		Tables: []wasm.Table{funcTable(wasm.IndexTypeI64, 1<<40)},
	}
	_, err := instantiate(t, m, nil)
	assert.Equal(t, ErrTableTooLarge, err)
}
