package load

import (
	"fmt"
	"io/fs"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/interpreter"
	"github.com/pgavlin/warptab/wasm"
)

type ModuleDefinitionFunc func(m *wasm.Module) (exec.ModuleDefinition, error)

func Interpret(m *wasm.Module) (exec.ModuleDefinition, error) {
	return interpreter.NewModuleDefinition(m), nil
}

// An FSResolver resolves module names to text modules stored in a filesystem.
type FSResolver struct {
	fs             fs.FS
	definitionFunc ModuleDefinitionFunc
}

func NewFSResolver(fs fs.FS, definitionFunc ModuleDefinitionFunc) *FSResolver {
	return &FSResolver{fs: fs, definitionFunc: definitionFunc}
}

func (r *FSResolver) loadModule(name string) (*wasm.Module, error) {
	extensions := []string{".wat", ".wast", ""}
	for _, ext := range extensions {
		if f, err := r.fs.Open(name + ext); err == nil {
			defer f.Close()
			return LoadModule(f)
		}
	}
	return nil, fmt.Errorf("%w: %s", exec.ErrModuleNotFound, name)
}

func (r *FSResolver) ResolveModule(name string) (exec.ModuleDefinition, error) {
	m, err := r.loadModule(name)
	if err != nil {
		return nil, err
	}
	return r.definitionFunc(m)
}
