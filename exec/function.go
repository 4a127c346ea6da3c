package exec

import (
	"github.com/pgavlin/warptab/wasm"
	"go.uber.org/zap"
)

// Function represents a function that may be exported by a WASM module or stored in a table.
type Function interface {
	// GetSignature returns this function's signature.
	GetSignature() wasm.FunctionSig
	// Call calls the function with the given arguments. If the number and type of the arguments do not match the
	// number and type of the parameters in this function's signature, this method may panic. Traps are raised
	// as panics.
	Call(thread *Thread, args ...interface{}) []interface{}
	// UncheckedCall calls the function with the given arguments. This method's behavior is undefined If the number of
	// arguments/returns does not match the number of parameters/results in this function's signature.
	UncheckedCall(thread *Thread, args, returns []uint64)
}

// Invoke calls the given function and translates any trap it raises into an error.
func Invoke(thread *Thread, f Function, args ...interface{}) (results []interface{}, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = TranslateRecover(x)
			Logger().Debug("invocation trapped",
				zap.Error(err),
				zap.Uint("max_depth", thread.MaxDepth()))
		}
	}()
	return f.Call(thread, args...), nil
}
