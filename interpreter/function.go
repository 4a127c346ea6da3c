package interpreter

import (
	"fmt"
	"math"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
)

// A function holds a decoded WASM function.
type function struct {
	module    *module            // The function's module.
	index     uint32             // The function's index.
	signature wasm.FunctionSig   // The function signature.
	locals    []wasm.ValueType   // The types of the function's params and locals.
	metrics   code.Metrics       // Metrics for this function's body.
	bytecode  []byte             // The raw bytecode for the function. Discarded after decoding.
	body      []code.Instruction // The decoded body of the function.
}

func (f *function) GetSignature() wasm.FunctionSig {
	return f.signature
}

// decode decodes and type-checks the function's body on first use.
func (f *function) decode() {
	if f.body != nil {
		return
	}

	body, err := code.Decode(f.bytecode, &scope{module: f.module, locals: f.locals}, f.signature.ReturnTypes)
	if err != nil {
		panic(fmt.Errorf("decoding function %d: %w", f.index, err))
	}
	f.body, f.metrics, f.bytecode = body.Instructions, body.Metrics, nil
}

func (f *function) Call(thread *exec.Thread, args ...interface{}) []interface{} {
	if len(args) != len(f.signature.ParamTypes) {
		panic(fmt.Errorf("expected %v args; got %v", len(f.signature.ParamTypes), len(args)))
	}

	rawArgs, rawReturns := make([]uint64, len(args)), make([]uint64, len(f.signature.ReturnTypes))
	for i, v := range args {
		paramType := f.signature.ParamTypes[i]

		switch v := v.(type) {
		case int32:
			if paramType != wasm.ValueTypeI32 {
				panic(fmt.Errorf("cannot assign int32 argument to a parameter of type %v", paramType))
			}
			rawArgs[i] = uint64(uint32(v))
		case int64:
			if paramType != wasm.ValueTypeI64 {
				panic(fmt.Errorf("cannot assign int64 argument to a parameter of type %v", paramType))
			}
			rawArgs[i] = uint64(v)
		case float32:
			if paramType != wasm.ValueTypeF32 {
				panic(fmt.Errorf("cannot assign float32 argument to a parameter of type %v", paramType))
			}
			rawArgs[i] = uint64(math.Float32bits(v))
		case float64:
			if paramType != wasm.ValueTypeF64 {
				panic(fmt.Errorf("cannot assign float64 argument to a parameter of type %v", paramType))
			}
			rawArgs[i] = math.Float64bits(v)
		default:
			panic(fmt.Errorf("cannot assign %T argument to a parameter of type %v", v, paramType))
		}
	}

	f.UncheckedCall(thread, rawArgs, rawReturns)

	returns := make([]interface{}, len(f.signature.ReturnTypes))
	for i, t := range f.signature.ReturnTypes {
		switch t {
		case wasm.ValueTypeI32:
			returns[i] = int32(rawReturns[i])
		case wasm.ValueTypeI64:
			returns[i] = int64(rawReturns[i])
		case wasm.ValueTypeF32:
			returns[i] = math.Float32frombits(uint32(rawReturns[i]))
		case wasm.ValueTypeF64:
			returns[i] = math.Float64frombits(rawReturns[i])
		default:
			panic("unreachable")
		}
	}
	return returns
}

func (f *function) UncheckedCall(thread *exec.Thread, args, returns []uint64) {
	f.decode()

	thread.Enter()
	defer thread.Leave()

	fr := newFrame(thread, f, args)
	fr.run(f.body)
	fr.popn(returns)
}
