package validate

import "github.com/pgavlin/warptab/wasm"

func (v *validator) GetLocalType(localidx uint32) (wasm.ValueType, bool) {
	if localidx >= uint32(len(v.locals)) {
		return 0, false
	}
	return v.locals[int(localidx)], true
}

func (v *validator) GetFunctionSignature(funcidx uint32) (wasm.FunctionSig, bool) {
	typeidx, ok := v.module.FunctionType(funcidx)
	if !ok {
		return wasm.FunctionSig{}, false
	}
	return v.GetType(typeidx)
}

func (v *validator) GetType(typeidx uint32) (wasm.FunctionSig, bool) {
	if typeidx >= uint32(len(v.module.Types)) {
		return wasm.FunctionSig{}, false
	}
	return v.module.Types[int(typeidx)], true
}

func (v *validator) GetTableIndexType(tableidx uint32) (wasm.IndexType, bool) {
	if tableidx >= uint32(len(v.tables)) {
		return 0, false
	}
	return v.tables[int(tableidx)].IndexType, true
}

func (v *validator) HasElement(elemidx uint32) bool {
	return elemidx < uint32(len(v.module.Elements))
}

// SetFunction prepares the validator to check the body of a function with the given signature.
func (v *validator) SetFunction(sig wasm.FunctionSig, body wasm.FunctionBody) {
	v.locals = v.locals[:0]
	v.locals = append(v.locals, sig.ParamTypes...)
	v.locals = append(v.locals, body.Locals...)
}
