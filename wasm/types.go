package wasm

import (
	"fmt"
	"strings"
)

// ValueType represents the type of a valid value in WASM.
type ValueType int8

const (
	// ValueTypeT is the polymorphic operand type produced after unreachable code.
	ValueTypeT ValueType = 0

	ValueTypeI32     ValueType = 0x7f
	ValueTypeI64     ValueType = 0x7e
	ValueTypeF32     ValueType = 0x7d
	ValueTypeF64     ValueType = 0x7c
	ValueTypeFuncref ValueType = 0x70
)

var valueTypeStrMap = map[ValueType]string{
	ValueTypeT:       "<any>",
	ValueTypeI32:     "i32",
	ValueTypeI64:     "i64",
	ValueTypeF32:     "f32",
	ValueTypeF64:     "f64",
	ValueTypeFuncref: "funcref",
}

func (t ValueType) String() string {
	str, ok := valueTypeStrMap[t]
	if !ok {
		str = fmt.Sprintf("<unknown value_type %d>", int8(t))
	}
	return str
}

// IndexType is the type of the values used to index a table.
type IndexType uint8

const (
	// IndexTypeI32 tables are indexed by i32 values.
	IndexTypeI32 IndexType = iota
	// IndexTypeI64 tables are indexed by i64 values.
	IndexTypeI64
)

// ValueType returns the value type of this index type's operands.
func (t IndexType) ValueType() ValueType {
	if t == IndexTypeI64 {
		return ValueTypeI64
	}
	return ValueTypeI32
}

// MaxSize returns the largest table size addressable by this index type.
func (t IndexType) MaxSize() uint64 {
	if t == IndexTypeI64 {
		return ^uint64(0)
	}
	return 1<<32 - 1
}

func (t IndexType) String() string {
	return t.ValueType().String()
}

// MinIndexType returns the narrower of two index types. It is the type of the length operand of a
// table.copy between tables of the given index types.
func MinIndexType(a, b IndexType) IndexType {
	if a == IndexTypeI64 && b == IndexTypeI64 {
		return IndexTypeI64
	}
	return IndexTypeI32
}

// FunctionSig describes the signature of a declared function in a WASM module.
type FunctionSig struct {
	ParamTypes  []ValueType
	ReturnTypes []ValueType
}

func (f FunctionSig) String() string {
	var b strings.Builder
	b.WriteString("(func")
	if len(f.ParamTypes) != 0 {
		b.WriteString(" (param")
		for _, t := range f.ParamTypes {
			b.WriteByte(' ')
			b.WriteString(t.String())
		}
		b.WriteByte(')')
	}
	if len(f.ReturnTypes) != 0 {
		b.WriteString(" (result")
		for _, t := range f.ReturnTypes {
			b.WriteByte(' ')
			b.WriteString(t.String())
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

// Equals returns true if the two signatures have the same parameter and return types.
func (f FunctionSig) Equals(other FunctionSig) bool {
	if len(f.ParamTypes) != len(other.ParamTypes) || len(f.ReturnTypes) != len(other.ReturnTypes) {
		return false
	}
	for i := range f.ParamTypes {
		if f.ParamTypes[i] != other.ParamTypes[i] {
			return false
		}
	}
	for i := range f.ReturnTypes {
		if f.ReturnTypes[i] != other.ReturnTypes[i] {
			return false
		}
	}
	return true
}

// ResizableLimits describe the size bounds of a table.
type ResizableLimits struct {
	HasMaximum bool
	Initial    uint64
	Maximum    uint64
}

// Table describes a table declared by a module.
type Table struct {
	ElementType ValueType
	IndexType   IndexType
	Limits      ResizableLimits
}

// External describes the kind of the entry being imported or exported.
type External uint8

const (
	ExternalFunction External = 0
	ExternalTable    External = 1
)

func (e External) String() string {
	switch e {
	case ExternalFunction:
		return "function"
	case ExternalTable:
		return "table"
	default:
		return "<unknown external_kind>"
	}
}

// Import is an interface implemented by types that can be imported by a WASM module.
type Import interface {
	Kind() External
	isImport()
}

// ImportEntry describes an import statement in a WASM module.
type ImportEntry struct {
	ModuleName string
	FieldName  string
	Type       Import
}

// FuncImport represents the type of a function import.
type FuncImport struct {
	Type uint32
}

func (FuncImport) Kind() External { return ExternalFunction }
func (FuncImport) isImport()      {}

// TableImport represents the type of a table import.
type TableImport struct {
	Type Table
}

func (TableImport) Kind() External { return ExternalTable }
func (TableImport) isImport()      {}

// ExportEntry represents an exported entry by the module.
type ExportEntry struct {
	FieldStr string
	Kind     External
	Index    uint32
}

// ElementMode describes when an element segment is applied to a table.
type ElementMode uint8

const (
	// ElementModeActive segments are applied to a table during instantiation.
	ElementModeActive ElementMode = iota
	// ElementModePassive segments are applied only by table.init.
	ElementModePassive
	// ElementModeDeclarative segments only forward-declare function references and are dropped during
	// instantiation.
	ElementModeDeclarative
)

func (m ElementMode) String() string {
	switch m {
	case ElementModeActive:
		return "active"
	case ElementModePassive:
		return "passive"
	case ElementModeDeclarative:
		return "declarative"
	default:
		return "<unknown element mode>"
	}
}

// ElementSegment describes a group of function references used to initialize a table.
type ElementSegment struct {
	Mode   ElementMode
	Table  uint32 // The target table of an active segment.
	Offset []byte // The encoded constant expression that computes an active segment's offset.
	Elems  []uint32
}

// FunctionBody holds the locals and encoded body of a function.
type FunctionBody struct {
	Locals []ValueType
	Code   []byte
}
