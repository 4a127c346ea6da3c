package exec

import (
	"fmt"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
)

// EvalOffsetExpression evaluates the given encoded constant expression, which must produce a single value of the
// given index type. The result is returned zero-extended to 64 bits.
func EvalOffsetExpression(indexType wasm.IndexType, expr []byte) (uint64, error) {
	if len(expr) == 0 {
		return 0, wasm.ErrEmptyInitExpr
	}

	instrs, err := code.DecodeInstructions(expr)
	if err != nil {
		return 0, err
	}
	if len(instrs) != 2 || instrs[1].Opcode != code.OpEnd {
		return 0, wasm.ValidationError("constant expression required")
	}

	switch instr := instrs[0]; instr.Opcode {
	case code.OpI32Const:
		if indexType != wasm.IndexTypeI32 {
			return 0, wasm.ValidationError("type mismatch")
		}
		return uint64(uint32(instr.I32())), nil
	case code.OpI64Const:
		if indexType != wasm.IndexTypeI64 {
			return 0, wasm.ValidationError("type mismatch")
		}
		return uint64(instr.I64()), nil
	default:
		return 0, fmt.Errorf("%w (%v)", wasm.InvalidInitExprOpError(instr.Opcode), instr.Opcode)
	}
}
