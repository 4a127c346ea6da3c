package wast

import (
	"fmt"
	"strings"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
)

// Decode resolves the module's names and lowers it to its binary representation.
func (m *Module) Decode() (*wasm.Module, error) {
	decoder := moduleDecoder{m: m}
	return decoder.decodeModule()
}

type indexes struct {
	functionTypes map[string]int

	types     []*FuncType
	functions []int
	tables    int
	elems     int
}

func valueTypeKey(t wasm.ValueType) rune {
	switch t {
	case wasm.ValueTypeI32:
		return 'i'
	case wasm.ValueTypeI64:
		return 'I'
	case wasm.ValueTypeF32:
		return 'f'
	case wasm.ValueTypeF64:
		return 'F'
	default:
		panic("unreachable")
	}
}

func functionTypeKey(params []*Param, results []wasm.ValueType) string {
	var b strings.Builder
	b.WriteRune('p')
	for _, p := range params {
		b.WriteRune(valueTypeKey(p.Type))
	}
	b.WriteRune('r')
	for _, t := range results {
		b.WriteRune(valueTypeKey(t))
	}
	return b.String()
}

func (i *indexes) functionType(params []*Param, results []wasm.ValueType) int {
	k := functionTypeKey(params, results)
	if typeidx, ok := i.functionTypes[k]; ok {
		return typeidx
	}
	return i.defType(&Typedef{Params: params, Results: results})
}

func (i *indexes) defType(type_ *Typedef) int {
	i.types = append(i.types, &FuncType{Params: type_.Params, Results: type_.Results})
	typeidx := len(i.types) - 1

	k := functionTypeKey(type_.Params, type_.Results)
	if _, ok := i.functionTypes[k]; !ok {
		i.functionTypes[k] = typeidx
	}
	return typeidx
}

func (i *indexes) defFunction(typeidx int) int {
	i.functions = append(i.functions, typeidx)
	return len(i.functions) - 1
}

func (i *indexes) defTable() int {
	i.tables++
	return i.tables - 1
}

func (i *indexes) defElem() int {
	i.elems++
	return i.elems - 1
}

type names struct {
	types     map[string]int
	functions map[string]int
	tables    map[string]int
	elems     map[string]int
}

type context struct {
	*names

	indexes *indexes
	parent  *context

	locals map[string]int
}

func (c *context) push() *context {
	var idx *indexes
	var nm *names
	if c == nil {
		idx = &indexes{functionTypes: map[string]int{}}
		nm = &names{
			types:     map[string]int{},
			functions: map[string]int{},
			tables:    map[string]int{},
			elems:     map[string]int{},
		}
	} else {
		idx, nm = c.indexes, c.names
	}

	return &context{
		parent:  c,
		indexes: idx,
		names:   nm,
		locals:  map[string]int{},
	}
}

func (c *context) pop() *context {
	return c.parent
}

func (c *context) functionType(type_ *FuncType) int {
	if type_.Var == nil {
		return c.indexes.functionType(type_.Params, type_.Results)
	}
	return c.useType(*type_.Var)
}

func (c *context) defType(name string, type_ *Typedef) {
	index := c.indexes.defType(type_)
	if name != "" {
		c.types[name] = index
	}
}

func (c *context) defFunction(name string, type_ *FuncType) {
	index := c.indexes.defFunction(c.functionType(type_))
	if name != "" {
		c.functions[name] = index
	}
}

func (c *context) defTable(name string) {
	index := c.indexes.defTable()
	if name != "" {
		c.tables[name] = index
	}
}

func (c *context) defElem(name string) {
	index := c.indexes.defElem()
	if name != "" {
		c.elems[name] = index
	}
}

func (c *context) defLocal(name string, index int) {
	if name != "" {
		c.locals[name] = index
	}
}

func (c *context) getType(v Var) *FuncType {
	index := c.useType(v)
	if index >= len(c.indexes.types) {
		panic(fmt.Errorf("unknown type %v", index))
	}
	return c.indexes.types[index]
}

func (c *context) useType(v Var) int {
	if v.Name == "" {
		return int(v.Index)
	}
	if index, ok := c.types[v.Name]; ok {
		return index
	}
	panic(fmt.Errorf("unknown type %v", v.Name))
}

func (c *context) useFunction(v Var) int {
	if v.Name == "" {
		return int(v.Index)
	}
	if index, ok := c.functions[v.Name]; ok {
		return index
	}
	panic(fmt.Errorf("unknown function %v", v.Name))
}

func (c *context) useTable(v Var) int {
	if v.Name == "" {
		return int(v.Index)
	}
	if index, ok := c.tables[v.Name]; ok {
		return index
	}
	panic(fmt.Errorf("unknown table %v", v.Name))
}

func (c *context) useElem(v Var) int {
	if v.Name == "" {
		return int(v.Index)
	}
	if index, ok := c.elems[v.Name]; ok {
		return index
	}
	panic(fmt.Errorf("unknown elem segment %v", v.Name))
}

func (c *context) useLocal(v Var) int {
	if v.Name == "" {
		return int(v.Index)
	}
	if index, ok := c.locals[v.Name]; ok {
		return index
	}
	if c.parent != nil {
		return c.parent.useLocal(v)
	}
	panic(fmt.Errorf("unknown local %v", v.Name))
}

type moduleDecoder struct {
	m *Module

	context *context
}

// pushModuleNames assigns indices to every named entity in the module. Imports precede definitions in each
// index space. Tables with inline elements own an implicit active segment that follows the explicit segments.
func (b *moduleDecoder) pushModuleNames() {
	b.context = b.context.push()

	for _, item := range b.m.Types {
		b.context.defType(item.Name, item)
	}

	for _, item := range b.m.Imports {
		switch external := item.External.(type) {
		case *ExternalFunc:
			b.context.defFunction(external.Name, external.Type)
		case *ExternalTable:
			b.context.defTable(external.Name)
		}
	}
	for _, item := range b.m.Funcs {
		if item.Import != nil {
			b.context.defFunction(item.Name, item.Type)
		}
	}
	for _, item := range b.m.Tables {
		if item.Import != nil {
			b.context.defTable(item.Name)
		}
	}

	for _, item := range b.m.Funcs {
		if item.Import == nil {
			b.context.defFunction(item.Name, item.Type)
		}
	}
	for _, item := range b.m.Tables {
		if item.Import == nil {
			b.context.defTable(item.Name)
		}
	}

	for _, item := range b.m.Elems {
		b.context.defElem(item.Name)
	}
}

func (b *moduleDecoder) pushFuncNames(fn *Func) {
	b.context = b.context.push()

	arity := 0
	if fn.Type.Var != nil {
		typ := b.context.getType(*fn.Type.Var)
		b.defParamNames(typ.Params)
		arity = len(typ.Params)
	} else {
		arity = len(fn.Type.Params)
	}

	b.defParamNames(fn.Type.Params)

	for i, l := range fn.Locals {
		b.context.defLocal(l.Name, arity+i)
	}
}

func (b *moduleDecoder) pop() {
	b.context = b.context.pop()
}

func (b *moduleDecoder) defParamNames(params []*Param) {
	for i, p := range params {
		b.context.defLocal(p.Name, i)
	}
}

func (b *moduleDecoder) decodeModule() (module *wasm.Module, err error) {
	defer func() {
		if x := recover(); x != nil {
			e, ok := x.(error)
			if !ok {
				panic(x)
			}
			module, err = nil, e
		}
	}()

	b.pushModuleNames()

	imports := b.decodeImports()
	functions, bodies := b.decodeFuncs()
	tables := b.decodeTables()
	exports := b.decodeExports()
	elements := b.decodeElems()

	// Types are decoded last: function types that are only used inline are defined while decoding the
	// rest of the module.
	types := b.decodeTypes()

	return &wasm.Module{
		Types:    types,
		Imports:  imports,
		Function: functions,
		Tables:   tables,
		Elements: elements,
		Exports:  exports,
		Code:     bodies,
	}, nil
}

func (b *moduleDecoder) decodeTypes() []wasm.FunctionSig {
	types := make([]wasm.FunctionSig, len(b.context.indexes.types))
	for i, t := range b.context.indexes.types {
		types[i] = b.decodeFunctionSig(t.Params, t.Results)
	}
	return types
}

func (b *moduleDecoder) decodeImports() []wasm.ImportEntry {
	var imports []wasm.ImportEntry
	for _, item := range b.m.Imports {
		var type_ wasm.Import
		switch external := item.External.(type) {
		case *ExternalFunc:
			type_ = wasm.FuncImport{Type: uint32(b.context.functionType(external.Type))}
		case *ExternalTable:
			type_ = wasm.TableImport{Type: b.decodeTableRange(external.IndexType, external.Range)}
		default:
			panic(fmt.Errorf("unexpected import of type %T", external))
		}
		imports = append(imports, wasm.ImportEntry{
			ModuleName: item.Module,
			FieldName:  item.Name,
			Type:       type_,
		})
	}
	for _, item := range b.m.Funcs {
		if item.Import != nil {
			imports = append(imports, wasm.ImportEntry{
				ModuleName: item.Import.Module,
				FieldName:  item.Import.Name,
				Type:       wasm.FuncImport{Type: uint32(b.context.functionType(item.Type))},
			})
		}
	}
	for _, item := range b.m.Tables {
		if item.Import != nil {
			imports = append(imports, wasm.ImportEntry{
				ModuleName: item.Import.Module,
				FieldName:  item.Import.Name,
				Type:       wasm.TableImport{Type: b.decodeTableType(item)},
			})
		}
	}
	return imports
}

func (b *moduleDecoder) decodeFuncs() ([]uint32, []wasm.FunctionBody) {
	var functions []uint32
	var bodies []wasm.FunctionBody
	for _, item := range b.m.Funcs {
		if item.Import != nil {
			continue
		}
		functions = append(functions, uint32(b.context.functionType(item.Type)))
		bodies = append(bodies, b.decodeFunctionBody(item))
	}
	return functions, bodies
}

func (b *moduleDecoder) decodeTables() []wasm.Table {
	var tables []wasm.Table
	for _, item := range b.m.Tables {
		if item.Import == nil {
			tables = append(tables, b.decodeTableType(item))
		}
	}
	return tables
}

func (b *moduleDecoder) decodeExports() []wasm.ExportEntry {
	var exports []wasm.ExportEntry
	for _, item := range b.m.Exports {
		var index int
		switch item.Kind {
		case wasm.ExternalFunction:
			index = b.context.useFunction(item.Var)
		case wasm.ExternalTable:
			index = b.context.useTable(item.Var)
		}
		exports = append(exports, wasm.ExportEntry{
			FieldStr: item.Name,
			Kind:     item.Kind,
			Index:    uint32(index),
		})
	}

	funcidx := 0
	for _, item := range b.m.Funcs {
		if item.Import == nil {
			continue
		}
		for _, name := range item.Exports {
			exports = append(exports, wasm.ExportEntry{FieldStr: name, Kind: wasm.ExternalFunction, Index: uint32(b.funcImports() + funcidx)})
		}
		funcidx++
	}
	funcidx = b.funcImports() + funcidx
	for _, item := range b.m.Funcs {
		if item.Import != nil {
			continue
		}
		for _, name := range item.Exports {
			exports = append(exports, wasm.ExportEntry{FieldStr: name, Kind: wasm.ExternalFunction, Index: uint32(funcidx)})
		}
		funcidx++
	}

	importidx, tableidx := b.tableImports(), b.tableImports()+b.inlineTableImports()
	for _, item := range b.m.Tables {
		var index int
		if item.Import != nil {
			index, importidx = importidx, importidx+1
		} else {
			index, tableidx = tableidx, tableidx+1
		}
		for _, name := range item.Exports {
			exports = append(exports, wasm.ExportEntry{FieldStr: name, Kind: wasm.ExternalTable, Index: uint32(index)})
		}
	}

	return exports
}

func (b *moduleDecoder) funcImports() int {
	n := 0
	for _, item := range b.m.Imports {
		if _, ok := item.External.(*ExternalFunc); ok {
			n++
		}
	}
	return n
}

func (b *moduleDecoder) tableImports() int {
	n := 0
	for _, item := range b.m.Imports {
		if _, ok := item.External.(*ExternalTable); ok {
			n++
		}
	}
	return n
}

func (b *moduleDecoder) inlineTableImports() int {
	n := 0
	for _, item := range b.m.Tables {
		if item.Import != nil {
			n++
		}
	}
	return n
}

func (b *moduleDecoder) decodeElems() []wasm.ElementSegment {
	var segments []wasm.ElementSegment
	for _, elem := range b.m.Elems {
		segment := wasm.ElementSegment{
			Mode:  elem.Mode,
			Elems: b.decodeFuncrefs(elem.Values),
		}
		if elem.Mode == wasm.ElementModeActive {
			if elem.Table != nil {
				segment.Table = uint32(b.context.useTable(*elem.Table))
			}
			segment.Offset = b.decodeBytecode(elem.Offset)
		}
		segments = append(segments, segment)
	}

	tableidx := b.tableImports() + b.inlineTableImports()
	for _, table := range b.m.Tables {
		if table.Import != nil {
			continue
		}
		if len(table.Values) != 0 {
			offset := code.I32Const(0)
			if table.IndexType == wasm.IndexTypeI64 {
				offset = code.I64Const(0)
			}
			segments = append(segments, wasm.ElementSegment{
				Mode:   wasm.ElementModeActive,
				Table:  uint32(tableidx),
				Offset: code.EncodeBytes(offset, code.End()),
				Elems:  b.decodeFuncrefs(table.Values),
			})
		}
		tableidx++
	}

	return segments
}

func (b *moduleDecoder) decodeFuncrefs(values []Var) []uint32 {
	elems := make([]uint32, len(values))
	for i, v := range values {
		elems[i] = uint32(b.context.useFunction(v))
	}
	return elems
}

func (b *moduleDecoder) decodeFunctionSig(params []*Param, results []wasm.ValueType) wasm.FunctionSig {
	paramTypes := make([]wasm.ValueType, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	return wasm.FunctionSig{ParamTypes: paramTypes, ReturnTypes: results}
}

func (b *moduleDecoder) decodeTableType(table *Table) wasm.Table {
	var range_ Range
	if table.Range != nil {
		range_ = *table.Range
	} else {
		n := uint64(len(table.Values))
		range_ = Range{Min: n, Max: &n}
	}
	return b.decodeTableRange(table.IndexType, range_)
}

func (b *moduleDecoder) decodeTableRange(indexType wasm.IndexType, range_ Range) wasm.Table {
	return wasm.Table{
		ElementType: wasm.ValueTypeFuncref,
		IndexType:   indexType,
		Limits:      b.decodeResizableLimits(range_),
	}
}

func (b *moduleDecoder) decodeResizableLimits(range_ Range) wasm.ResizableLimits {
	limits := wasm.ResizableLimits{Initial: range_.Min}
	if range_.Max != nil {
		limits.HasMaximum, limits.Maximum = true, *range_.Max
	}
	return limits
}

func (b *moduleDecoder) decodeFunctionBody(f *Func) wasm.FunctionBody {
	locals := make([]wasm.ValueType, len(f.Locals))
	for i, l := range f.Locals {
		locals[i] = l.Type
	}

	b.pushFuncNames(f)
	defer b.pop()

	return wasm.FunctionBody{
		Locals: locals,
		Code:   b.decodeBytecode(f.Instrs),
	}
}

// decodeBytecode encodes a sequence of instructions followed by an end.
func (b *moduleDecoder) decodeBytecode(instrs []Instr) []byte {
	body := make([]code.Instruction, 0, len(instrs)+1)
	for _, i := range instrs {
		body = append(body, b.decodeInstr(i))
	}
	return code.EncodeBytes(append(body, code.End())...)
}

func (b *moduleDecoder) decodeInstr(instr Instr) code.Instruction {
	switch instr := instr.(type) {
	case *Op:
		return b.decodeOp(instr)
	case *VarOp:
		return b.decodeVarOp(instr)
	case *CallIndirect:
		tableidx := 0
		if instr.Table != nil {
			tableidx = b.context.useTable(*instr.Table)
		}
		typ := instr.Type
		return code.CallIndirect(uint32(b.context.functionType(&typ)), uint32(tableidx))
	case *ConstOp:
		return b.decodeConstOp(instr)
	default:
		panic(fmt.Errorf("unexpected instruction of type %T", instr))
	}
}

func (b *moduleDecoder) decodeOp(op *Op) code.Instruction {
	switch op.Code {
	case UNREACHABLE:
		return code.Unreachable()
	case NOP:
		return code.Nop()
	case RETURN:
		return code.Return()
	case DROP:
		return code.Drop()
	default:
		panic(fmt.Errorf("invalid Op %v", op.Code))
	}
}

func (b *moduleDecoder) decodeVarOp(op *VarOp) code.Instruction {
	switch op.Code {
	case CALL:
		return code.Call(uint32(b.context.useFunction(op.Vars[0])))
	case LOCAL_GET:
		return code.LocalGet(uint32(b.context.useLocal(op.Vars[0])))
	case ELEM_DROP:
		return code.ElemDrop(uint32(b.context.useElem(op.Vars[0])))
	case TABLE_SIZE:
		return code.TableSize(uint32(b.context.useTable(op.Vars[0])))
	case TABLE_INIT:
		tableidx, elemidx := b.context.useTable(op.Vars[0]), b.context.useElem(op.Vars[1])
		return code.TableInit(uint32(elemidx), uint32(tableidx))
	case TABLE_COPY:
		dst, src := b.context.useTable(op.Vars[0]), b.context.useTable(op.Vars[1])
		return code.TableCopy(uint32(dst), uint32(src))
	default:
		panic(fmt.Errorf("invalid VarOp %v", op.Code))
	}
}

func (b *moduleDecoder) decodeConstOp(op *ConstOp) code.Instruction {
	switch op.Code {
	case I32_CONST:
		v, ok := op.Value.(int32)
		if !ok {
			panic(fmt.Errorf("invalid I32 constant %v", op.Value))
		}
		return code.I32Const(v)
	case I64_CONST:
		v, ok := op.Value.(int64)
		if !ok {
			panic(fmt.Errorf("invalid I64 constant %v", op.Value))
		}
		return code.I64Const(v)
	case F32_CONST:
		v, ok := op.Value.(float32)
		if !ok {
			panic(fmt.Errorf("invalid F32 constant %v", op.Value))
		}
		return code.F32Const(v)
	case F64_CONST:
		v, ok := op.Value.(float64)
		if !ok {
			panic(fmt.Errorf("invalid F64 constant %v", op.Value))
		}
		return code.F64Const(v)
	default:
		panic(fmt.Errorf("invalid ConstOp %v", op.Value))
	}
}
