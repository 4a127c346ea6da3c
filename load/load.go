// Package load reads scripts and modules in the WebAssembly text format.
package load

import (
	"bufio"
	"io"
	"os"

	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/validate"
	"github.com/pgavlin/warptab/wast"
)

// LoadModule reads a single text module and lowers it to its binary representation. The module is validated
// before it is returned.
func LoadModule(r io.Reader) (*wasm.Module, error) {
	syntax, err := wast.ParseModule(wast.NewScanner(bufio.NewReader(r)))
	if err != nil {
		return nil, err
	}
	m, err := syntax.Decode()
	if err != nil {
		return nil, err
	}
	if err := validate.ValidateModule(m, true); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadScript reads a script.
func LoadScript(r io.Reader) (*wast.Script, error) {
	return wast.ParseScript(wast.NewScanner(bufio.NewReader(r)))
}

func LoadScriptFile(path string) (*wast.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadScript(f)
}
