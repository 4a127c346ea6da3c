package load

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/warptab/exec"
)

const tableModule = `(module
  (table (export "table") 4 funcref)
  (func $f (export "f") (result i32) (i32.const 3))
  (elem (i32.const 1) func $f))
`

func TestLoadModule(t *testing.T) {
	m, err := LoadModule(strings.NewReader(tableModule))
	require.NoError(t, err)
	assert.Len(t, m.Tables, 1)
	assert.Len(t, m.Elements, 1)

	_, err = LoadModule(strings.NewReader(`(module (func (table.size 0) (drop)))`))
	assert.EqualError(t, err, "unknown table 0")
}

func TestLoadScript(t *testing.T) {
	s, err := LoadScript(strings.NewReader(tableModule + `(assert_return (invoke "f") (i32.const 3))`))
	require.NoError(t, err)
	assert.Len(t, s.Commands, 2)
}

func TestFSResolver(t *testing.T) {
	resolver := NewFSResolver(fstest.MapFS{
		"tables.wat": &fstest.MapFile{Data: []byte(tableModule)},
	}, Interpret)

	store := exec.NewStore(resolver)
	m, err := store.InstantiateModule("tables")
	require.NoError(t, err)

	table, err := m.GetTable("table")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), table.Size())
	assert.Equal(t, uint(1), table.Occupancy().Count())

	_, err = resolver.ResolveModule("missing")
	assert.True(t, errors.Is(err, exec.ErrModuleNotFound))
}
