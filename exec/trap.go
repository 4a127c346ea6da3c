package exec

import (
	"runtime"
	"strings"
)

// A Trap represents a WASM trap.
type Trap string

func (t Trap) Error() string {
	return string(t)
}

// TrapOutOfBoundsTableAccess indicates a table access or bulk table operation that falls outside of a table
// or element segment.
var TrapOutOfBoundsTableAccess = Trap("out of bounds table access")

// TrapUninitializedElement indicates an attempt to use an uninitialized table element.
var TrapUninitializedElement = Trap("uninitialized element")

// TrapIndirectCallTypeMismatch indicates a mismatch between the expected and actual signature of a function.
var TrapIndirectCallTypeMismatch = Trap("indirect call type mismatch")

// TrapCallStackExhausted indicates call stack exhaustion.
var TrapCallStackExhausted = Trap("call stack exhausted")

// TrapUnreachable indicates execution of unreachable code.
var TrapUnreachable = Trap("unreachable")

// TranslateRuntimeError is a utility function that translates between Go runtime errors and
// WASM traps.
func TranslateRuntimeError(err runtime.Error) (Trap, bool) {
	switch {
	case err == nil:
		return "", false
	case strings.HasPrefix(err.Error(), "runtime error: index out of range"):
		return TrapOutOfBoundsTableAccess, true
	case strings.HasPrefix(err.Error(), "runtime error: slice bounds out of range"):
		return TrapOutOfBoundsTableAccess, true
	default:
		return "", false
	}
}

// TranslateRecover is a utility function that translates the result of a call to recover() into an error.
// Traps and errors are returned as-is, Go runtime errors that correspond to traps are translated, and any
// other value is re-panicked. This function should be called like so:
//
//	defer func() { err = exec.TranslateRecover(recover()) }()
func TranslateRecover(x interface{}) error {
	switch x := x.(type) {
	case nil:
		return nil
	case Trap:
		return x
	case runtime.Error:
		if trap, ok := TranslateRuntimeError(x); ok {
			return trap
		}
		panic(x)
	case error:
		return x
	default:
		panic(x)
	}
}
