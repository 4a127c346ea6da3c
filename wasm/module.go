package wasm

import "errors"

var ErrEmptyInitExpr = errors.New("wasm: Initializer expression produces no value")

// ValidationError is returned when a module fails validation.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

// InvalidInitExprOpError is returned when a constant expression contains an opcode that is not permitted.
type InvalidInitExprOpError byte

func (e InvalidInitExprOpError) Error() string {
	return "constant expression required"
}

// Module represents a WebAssembly module definition.
type Module struct {
	Types    []FunctionSig
	Imports  []ImportEntry
	Function []uint32 // The type index of each function defined by the module.
	Tables   []Table
	Elements []ElementSegment
	Exports  []ExportEntry
	Code     []FunctionBody
}

// ImportedFunctions returns the type indices of the module's imported functions.
func (m *Module) ImportedFunctions() []uint32 {
	var types []uint32
	for _, i := range m.Imports {
		if f, ok := i.Type.(FuncImport); ok {
			types = append(types, f.Type)
		}
	}
	return types
}

// ImportedTables returns the types of the module's imported tables.
func (m *Module) ImportedTables() []Table {
	var tables []Table
	for _, i := range m.Imports {
		if t, ok := i.Type.(TableImport); ok {
			tables = append(tables, t.Type)
		}
	}
	return tables
}

// FunctionType returns the type index of the function with the given index in the module's function index space.
func (m *Module) FunctionType(funcidx uint32) (uint32, bool) {
	imported := m.ImportedFunctions()
	if funcidx < uint32(len(imported)) {
		return imported[int(funcidx)], true
	}
	funcidx -= uint32(len(imported))
	if funcidx >= uint32(len(m.Function)) {
		return 0, false
	}
	return m.Function[int(funcidx)], true
}

// TableType returns the type of the table with the given index in the module's table index space.
func (m *Module) TableType(tableidx uint32) (Table, bool) {
	imported := m.ImportedTables()
	if tableidx < uint32(len(imported)) {
		return imported[int(tableidx)], true
	}
	tableidx -= uint32(len(imported))
	if tableidx >= uint32(len(m.Tables)) {
		return Table{}, false
	}
	return m.Tables[int(tableidx)], true
}

// NumFunctions returns the size of the module's function index space.
func (m *Module) NumFunctions() int {
	return len(m.ImportedFunctions()) + len(m.Function)
}

// NumTables returns the size of the module's table index space.
func (m *Module) NumTables() int {
	return len(m.ImportedTables()) + len(m.Tables)
}
