package testing

import (
	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
)

// SpecTest is the host module imported by scripts as "spectest".
var SpecTest exec.ModuleDefinition = exec.NewHostModuleDefinition(func() (*specTest, error) {
	return &specTest{
		Table: exec.NewTable(wasm.IndexTypeI32, 10, 20),
	}, nil
})

type specTest struct {
	Table exec.Table
}

func (st *specTest) Print() {
}

func (st *specTest) Print_i32(param int32) {
}

func (st *specTest) Print_i64(param int64) {
}

func (st *specTest) Print_i32_i64(param int32, param1 int64) {
}
