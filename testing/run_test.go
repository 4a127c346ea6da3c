package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/interpreter"
	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wast"
)

type recordingReporter struct {
	errors []string
	logs   []string
}

func (r *recordingReporter) Error(args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprint(args...))
}

func (r *recordingReporter) Logf(format string, args ...interface{}) {
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

func runText(t *testing.T, text string, strict bool, ignore ...string) *recordingReporter {
	script, err := wast.ParseScript(wast.NewScanner(strings.NewReader(text)))
	require.NoError(t, err)

	env, err := NewEnvironment(func(m *wasm.Module) (exec.ModuleDefinition, error) {
		return interpreter.NewModuleDefinition(m), nil
	})
	require.NoError(t, err)

	var r recordingReporter
	env.RunScript(&r, script, strict, ignore)
	return &r
}

func TestPassingScript(t *testing.T) {
	r := runText(t, `(module
  (import "spectest" "table" (table 10 funcref))
  (func $seven (result i32) (i32.const 7))
  (elem (i32.const 9) func $seven)
  (func (export "call") (param i32) (result i32)
    (call_indirect (type 0) (local.get 0)))
  (func (export "size") (result i32) (table.size 0)))
(register "m")
(assert_return (invoke "call" (i32.const 9)) (i32.const 7))
(assert_return (invoke "size") (i32.const 10))
(assert_trap (invoke "call" (i32.const 0)) "uninitialized element")
(assert_trap (invoke "call" (i32.const 10)) "out of bounds table access")
(assert_invalid (module (func (table.size 0) (drop))) "unknown table 0")
`, true)
	assert.Empty(t, r.errors)
}

func TestFailingScript(t *testing.T) {
	text := `(module
  (table 1 funcref)
  (func (export "size") (result i32) (table.size 0)))
(assert_return (invoke "size") (i32.const 2))
(assert_trap (invoke "size") "out of bounds table access")
(assert_invalid (module (table 1 funcref)) "unknown table 0")
(assert_invalid (module (func (table.size 0) (drop))) "type mismatch")
(invoke "missing")
`
	r := runText(t, text, true)
	assert.Equal(t, []string{
		"4,1: assert_return: expected [2], got [1]",
		"5,1: assert_trap: action did not trap",
		"6,1: assert_invalid: module was not invalid",
		"7,1: assert_invalid: expected type mismatch, got unknown table 0",
	}, r.errors[:4])
	assert.Len(t, r.errors, 5)

	// Message checks are relaxed outside of strict mode.
	r = runText(t, text, false)
	assert.Len(t, r.errors, 4)

	r = runText(t, text, true, "4,1: assert_return: expected [2], got [1]")
	assert.Len(t, r.errors, 4)
	assert.Equal(t, []string{"ignored: 4,1: assert_return: expected [2], got [1]"}, r.logs)
}

func TestCallStackDepth(t *testing.T) {
	r := runText(t, `(module
  (func $loop (export "loop") (call $loop)))
(assert_trap (invoke "loop") "call stack exhausted")
`, true)
	assert.Empty(t, r.errors)
}
