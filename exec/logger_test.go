package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// trappingFunction raises an unreachable trap when called.
type trappingFunction struct {
	testFunc
}

func (trappingFunction) Call(thread *Thread, args ...interface{}) []interface{} {
	panic(TrapUnreachable)
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))

	thread := NewThread(8)
	_, err := Invoke(&thread, trappingFunction{})
	assert.Equal(t, TrapUnreachable, err)

	entries := logs.FilterMessage("invocation trapped").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, uint64(8), entries[0].ContextMap()["max_depth"])
	}

	SetLogger(nil)
	assert.NotNil(t, Logger())
	assert.NotPanics(t, func() { Logger().Debug("discarded") })
	assert.Equal(t, 1, logs.Len())
}
