package validate

import (
	"fmt"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
)

type validator struct {
	module       *wasm.Module
	validateCode bool

	importedFunctions []uint32
	tables            []wasm.Table

	locals []wasm.ValueType
}

// ValidateModule checks the given module definition. If validateCode is true, each function body is decoded and
// its operands are type-checked.
func ValidateModule(m *wasm.Module, validateCode bool) error {
	v := validator{
		module:            m,
		validateCode:      validateCode,
		importedFunctions: m.ImportedFunctions(),
		tables:            append(m.ImportedTables(), m.Tables...),
	}
	return v.validateModule()
}

func (v *validator) validateModule() error {
	if err := v.validateImports(); err != nil {
		return err
	}
	if err := v.validateFunctions(); err != nil {
		return err
	}
	if err := v.validateTables(); err != nil {
		return err
	}
	if err := v.validateElements(); err != nil {
		return err
	}
	if err := v.validateExports(); err != nil {
		return err
	}
	return nil
}

func (v *validator) validateImports() error {
	for _, entry := range v.module.Imports {
		switch i := entry.Type.(type) {
		case wasm.FuncImport:
			if _, ok := v.GetType(i.Type); !ok {
				return wasm.ValidationError("unknown type")
			}
		case wasm.TableImport:
			if err := v.validateTable(i.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *validator) validateFunctions() error {
	if len(v.module.Function) != len(v.module.Code) {
		return wasm.ValidationError("function and code section have inconsistent lengths")
	}

	for i, typeidx := range v.module.Function {
		sig, ok := v.GetType(typeidx)
		if !ok {
			return wasm.ValidationError("unknown type")
		}

		if !v.validateCode {
			continue
		}

		body := v.module.Code[i]

		v.SetFunction(sig, body)
		if _, err := code.Decode(body.Code, v, sig.ReturnTypes); err != nil {
			return err
		}
	}

	return nil
}

func (v *validator) validateLimits(indexType wasm.IndexType, limits wasm.ResizableLimits) error {
	if limits.HasMaximum && limits.Initial > limits.Maximum {
		return wasm.ValidationError("size minimum must not be greater than maximum")
	}
	if limits.Initial > indexType.MaxSize() || limits.HasMaximum && limits.Maximum > indexType.MaxSize() {
		return wasm.ValidationError(fmt.Sprintf("table size must be at most %d", indexType.MaxSize()))
	}
	return nil
}

func (v *validator) validateTable(t wasm.Table) error {
	if t.ElementType != wasm.ValueTypeFuncref {
		return wasm.ValidationError("malformed reference type")
	}
	return v.validateLimits(t.IndexType, t.Limits)
}

func (v *validator) validateTables() error {
	for _, t := range v.module.Tables {
		if err := v.validateTable(t); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) validateElements() error {
	for _, elem := range v.module.Elements {
		if elem.Mode == wasm.ElementModeActive {
			indexType, ok := v.GetTableIndexType(elem.Table)
			if !ok {
				return wasm.ValidationError(fmt.Sprintf("unknown table %d", elem.Table))
			}
			if err := validateOffsetExpr(elem.Offset, indexType); err != nil {
				return err
			}
		}
		for _, funcidx := range elem.Elems {
			if _, ok := v.GetFunctionSignature(funcidx); !ok {
				return wasm.ValidationError(fmt.Sprintf("unknown function %d", funcidx))
			}
		}
	}
	return nil
}

func validateOffsetExpr(expr []byte, indexType wasm.IndexType) error {
	if len(expr) == 0 {
		return wasm.ErrEmptyInitExpr
	}

	instrs, err := code.DecodeInstructions(expr)
	if err != nil {
		return err
	}
	if len(instrs) == 0 || instrs[len(instrs)-1].Opcode != code.OpEnd {
		return wasm.ValidationError("constant expression required")
	}

	switch len(instrs) {
	case 1:
		return wasm.ValidationError("type mismatch")
	case 2:
		// OK
	default:
		return wasm.ValidationError("constant expression required")
	}

	var t wasm.ValueType
	switch instr := instrs[0]; instr.Opcode {
	case code.OpI32Const:
		t = wasm.ValueTypeI32
	case code.OpI64Const:
		t = wasm.ValueTypeI64
	case code.OpF32Const:
		t = wasm.ValueTypeF32
	case code.OpF64Const:
		t = wasm.ValueTypeF64
	default:
		return wasm.InvalidInitExprOpError(instr.Opcode)
	}
	if t != indexType.ValueType() {
		return wasm.ValidationError("type mismatch")
	}
	return nil
}

func (v *validator) validateExports() error {
	names := map[string]bool{}
	for _, e := range v.module.Exports {
		if names[e.FieldStr] {
			return wasm.ValidationError("duplicate export name")
		}
		names[e.FieldStr] = true

		switch e.Kind {
		case wasm.ExternalFunction:
			if _, ok := v.GetFunctionSignature(e.Index); !ok {
				return wasm.ValidationError(fmt.Sprintf("unknown function %d", e.Index))
			}
		case wasm.ExternalTable:
			if _, ok := v.GetTableIndexType(e.Index); !ok {
				return wasm.ValidationError(fmt.Sprintf("unknown table %d", e.Index))
			}
		default:
			return wasm.ValidationError("malformed export kind")
		}
	}
	return nil
}
