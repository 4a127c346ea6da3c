package interpreter

import (
	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
)

// A module holds an instance of a WASM module. Tables and element segments are owned by the instance and
// addressed by their index in the module's index spaces.
type module struct {
	name string // The name of the module.

	types     []wasm.FunctionSig     // The types used by this module.
	functions []function             // The functions defined by this module.
	tables    []*exec.Table          // The module's tables, imported tables first.
	elements  []*exec.ElementSegment // The module's element segments.
	exports   map[string]interface{} // The module's exports.

	importedFunctions []exec.Function // The functions imported by this module.
}

func (m *module) getFunction(index uint32) (exec.Function, bool) {
	if index < uint32(len(m.importedFunctions)) {
		return m.importedFunctions[int(index)], true
	}
	index -= uint32(len(m.importedFunctions))
	if index >= uint32(len(m.functions)) {
		return nil, false
	}
	return &m.functions[int(index)], true
}

func (m *module) getTable(index uint32) (*exec.Table, bool) {
	if index >= uint32(len(m.tables)) || m.tables[int(index)] == nil {
		return nil, false
	}
	return m.tables[int(index)], true
}

func (m *module) getElement(index uint32) (*exec.ElementSegment, bool) {
	if index >= uint32(len(m.elements)) {
		return nil, false
	}
	return m.elements[int(index)], true
}

func (m *module) Name() string {
	return m.name
}

func (m *module) newExportError(name string, importKind wasm.External, export interface{}) error {
	if export == nil {
		return &exec.ExportNotFoundError{ModuleName: m.name, FieldName: name}
	}

	var exportKind wasm.External
	switch export.(type) {
	case exec.Function:
		exportKind = wasm.ExternalFunction
	case *exec.Table:
		exportKind = wasm.ExternalTable
	default:
		panic("unreachable")
	}
	return exec.NewKindMismatchError(m.name, name, importKind, exportKind)
}

func (m *module) GetFunction(name string) (exec.Function, error) {
	export := m.exports[name]
	if function, ok := export.(exec.Function); ok {
		return function, nil
	}
	return nil, m.newExportError(name, wasm.ExternalFunction, export)
}

func (m *module) GetTable(name string) (*exec.Table, error) {
	export := m.exports[name]
	if table, ok := export.(*exec.Table); ok {
		return table, nil
	}
	return nil, m.newExportError(name, wasm.ExternalTable, export)
}

// Tables returns the module's tables in table index order.
func (m *module) Tables() []*exec.Table {
	tables := make([]*exec.Table, len(m.tables))
	copy(tables, m.tables)
	return tables
}
