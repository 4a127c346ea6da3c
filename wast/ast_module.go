package wast

import "github.com/pgavlin/warptab/wasm"

type Module struct {
	Pos Pos

	Name    string
	Types   []*Typedef
	Funcs   []*Func
	Imports []*Import
	Exports []*Export
	Tables  []*Table
	Elems   []*Elem
}

func (m *Module) ModuleName() string {
	return m.Name
}
func (m *Module) CommandPos() Pos {
	return m.Pos
}
func (*Module) isCommand() {}

type Typedef struct {
	Name    string
	Params  []*Param
	Results []wasm.ValueType
}

type Func struct {
	Name    string
	Exports []string
	Import  *InlineImport
	Type    *FuncType
	Locals  []*Local
	Instrs  []Instr
}

type InlineImport struct {
	Module string
	Name   string
}

type Import struct {
	Module   string
	Name     string
	External External
}

type Export struct {
	Name string
	Kind wasm.External
	Var  Var
}

// A Table declares a table. Tables with inline elements are sized to fit them exactly.
type Table struct {
	Name      string
	Exports   []string
	Import    *InlineImport
	IndexType wasm.IndexType
	Range     *Range
	Values    []Var
}

type Elem struct {
	Name   string
	Mode   wasm.ElementMode
	Table  *Var
	Offset []Instr
	Values []Var
}

type Local struct {
	Name string
	Type wasm.ValueType
}

// A Var refers to an entity either by name or by index.
type Var struct {
	Name  string
	Index uint32
}

type Range struct {
	Min uint64
	Max *uint64
}

type FuncType struct {
	Var     *Var
	Params  []*Param
	Results []wasm.ValueType
}

type Param struct {
	Name string
	Type wasm.ValueType
}

type External interface {
	isExternal()
}

type ExternalFunc struct {
	Name string
	Type *FuncType
}

func (*ExternalFunc) isExternal() {}

type ExternalTable struct {
	Name      string
	IndexType wasm.IndexType
	Range     Range
}

func (*ExternalTable) isExternal() {}

type Instr interface {
	isInstr()
}

type Op struct {
	Code TokenKind
}

func (*Op) isInstr() {}

type VarOp struct {
	Code TokenKind
	Vars []Var
}

func (*VarOp) isInstr() {}

type CallIndirect struct {
	Table *Var
	Type  FuncType
}

func (*CallIndirect) isInstr() {}

type ConstOp struct {
	Code  TokenKind
	Value interface{}
}

func (*ConstOp) isInstr() {}
