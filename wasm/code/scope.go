package code

import "github.com/pgavlin/warptab/wasm"

// A Scope resolves the indices referenced by a function body.
type Scope interface {
	GetLocalType(localidx uint32) (wasm.ValueType, bool)
	GetFunctionSignature(funcidx uint32) (wasm.FunctionSig, bool)
	GetType(typeidx uint32) (wasm.FunctionSig, bool)
	GetTableIndexType(tableidx uint32) (wasm.IndexType, bool)
	HasElement(elemidx uint32) bool
}
