package interpreter

import (
	"fmt"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
	"go.uber.org/zap"
)

// MaxTableSize is the largest initial table size the interpreter will allocate.
const MaxTableSize = 10_000_000

// ErrTableTooLarge is returned if a module declares a table whose initial size exceeds MaxTableSize.
var ErrTableTooLarge = fmt.Errorf("table size exceeds the implementation limit of %d elements", MaxTableSize)

type moduleDefinition struct {
	mod *wasm.Module
}

// NewModuleDefinition creates a new ModuleDefinition from the given WASM module. The module's functions will be
// executed by the interpreter. The module should be validated before it is instantiated.
func NewModuleDefinition(module *wasm.Module) exec.ModuleDefinition {
	return &moduleDefinition{mod: module}
}

func (def *moduleDefinition) Allocate(name string) (exec.AllocatedModule, error) {
	module := allocatedModule{
		module: &module{
			name:    name,
			types:   def.mod.Types,
			exports: map[string]interface{}{},
		},
		imports:  def.mod.Imports,
		exports:  def.mod.Exports,
		elements: def.mod.Elements,
	}

	// Allocate import entries. Imported tables occupy the first slots of the table index space.
	funcImports, tableImports := 0, 0
	for _, import_ := range def.mod.Imports {
		switch import_.Type.(type) {
		case wasm.FuncImport:
			funcImports++
		case wasm.TableImport:
			tableImports++
		}
	}
	module.importedFunctions = make([]exec.Function, funcImports)
	module.tables = make([]*exec.Table, tableImports, tableImports+len(def.mod.Tables))

	// Allocate functions and tables.
	module.functions = def.allocateFunctions(module.module)

	for _, tableDef := range def.mod.Tables {
		t, err := newTable(tableDef)
		if err != nil {
			return nil, err
		}
		module.tables = append(module.tables, t)
	}

	module.defineExports()
	return &module, nil
}

func newTable(def wasm.Table) (*exec.Table, error) {
	min, max := def.Limits.Initial, def.Limits.Maximum
	if !def.Limits.HasMaximum {
		max = def.IndexType.MaxSize()
	}
	if min > MaxTableSize {
		return nil, ErrTableTooLarge
	}
	t := exec.NewTable(def.IndexType, min, max)
	return &t, nil
}

func (def *moduleDefinition) allocateFunctions(module *module) []function {
	functions := make([]function, len(def.mod.Code))
	for i, body := range def.mod.Code {
		f := &functions[i]

		f.module = module
		f.index = uint32(len(module.importedFunctions) + i)
		f.bytecode = body.Code

		typeIndex := def.mod.Function[i]
		f.signature = def.mod.Types[typeIndex]

		f.locals = make([]wasm.ValueType, 0, len(f.signature.ParamTypes)+len(body.Locals))
		f.locals = append(f.locals, f.signature.ParamTypes...)
		f.locals = append(f.locals, body.Locals...)
	}
	return functions
}

type allocatedModule struct {
	*module

	imports  []wasm.ImportEntry    // The module's imports.
	exports  []wasm.ExportEntry    // The module's exports.
	elements []wasm.ElementSegment // The module's element segments.
}

// defineExports records each export whose target has been allocated or resolved.
func (m *allocatedModule) defineExports() {
	for _, export := range m.exports {
		switch export.Kind {
		case wasm.ExternalFunction:
			if f, ok := m.getFunction(export.Index); ok && f != nil {
				m.module.exports[export.FieldStr] = f
			}
		case wasm.ExternalTable:
			if t, ok := m.getTable(export.Index); ok {
				m.module.exports[export.FieldStr] = t
			}
		}
	}
}

func (m *allocatedModule) Instantiate(imports exec.ImportResolver) (exec.Module, error) {
	// Resolve imports.
	funcidx, tableidx := 0, 0
	for _, import_ := range m.imports {
		switch type_ := import_.Type.(type) {
		case wasm.FuncImport:
			if type_.Type >= uint32(len(m.types)) {
				return nil, wasm.ValidationError("unknown type")
			}
			sig := m.types[int(type_.Type)]
			f, err := imports.ResolveFunction(import_.ModuleName, import_.FieldName, sig)
			if err != nil {
				return nil, err
			}
			m.importedFunctions[funcidx] = f
			funcidx++
		case wasm.TableImport:
			table, err := imports.ResolveTable(import_.ModuleName, import_.FieldName, type_.Type)
			if err != nil {
				return nil, err
			}
			m.tables[tableidx] = table
			tableidx++
		default:
			panic("unreachable")
		}
	}

	m.defineExports()

	if err := m.allocateElementSegments(); err != nil {
		return nil, err
	}
	if err := m.applyElementSegments(); err != nil {
		return nil, err
	}

	return m.module, nil
}

// allocateElementSegments resolves the function references of each element segment.
func (m *allocatedModule) allocateElementSegments() error {
	m.module.elements = make([]*exec.ElementSegment, len(m.elements))
	for i, element := range m.elements {
		entries := make([]exec.Function, len(element.Elems))
		for j, funcidx := range element.Elems {
			f, ok := m.getFunction(funcidx)
			if !ok {
				return wasm.ValidationError(fmt.Sprintf("unknown function %d", funcidx))
			}
			entries[j] = f
		}
		m.module.elements[i] = exec.NewElementSegment(uint32(i), element.Mode, entries)
	}
	return nil
}

// applyElementSegments applies each active segment in order as a table.init followed by an elem.drop.
// Declarative segments are dropped. If an active segment does not fit in its table, the writes of
// earlier segments remain.
func (m *allocatedModule) applyElementSegments() error {
	for _, seg := range m.module.elements {
		switch seg.Mode() {
		case wasm.ElementModeActive:
			element := m.elements[seg.Index()]
			table, ok := m.getTable(element.Table)
			if !ok {
				return exec.InvalidTableIndexError(element.Table)
			}
			offset, err := exec.EvalOffsetExpression(table.IndexType(), element.Offset)
			if err != nil {
				return err
			}
			if err := exec.TableInit(table, seg, offset, 0, seg.Len()); err != nil {
				exec.Logger().Debug("active element segment does not fit",
					zap.String("module", m.name),
					zap.Uint32("segment", seg.Index()),
					zap.Uint32("table", element.Table),
					zap.Uint64("offset", offset),
					zap.Uint64("length", seg.Len()))
				return err
			}
			exec.Logger().Debug("applied active element segment",
				zap.String("module", m.name),
				zap.Uint32("segment", seg.Index()),
				zap.Uint32("table", element.Table),
				zap.Uint64("offset", offset))
			exec.ElemDrop(seg)
		case wasm.ElementModeDeclarative:
			exec.Logger().Debug("dropped element segment",
				zap.String("module", m.name),
				zap.Uint32("segment", seg.Index()),
				zap.Stringer("mode", seg.Mode()))
			exec.ElemDrop(seg)
		}
	}
	return nil
}
