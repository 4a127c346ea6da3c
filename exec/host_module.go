package exec

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/pgavlin/warptab/wasm"
)

type hostModuleDefinition struct {
	instantiate reflect.Value
}

// NewHostModuleDefinition creates a module definition whose instances are Go values. instantiate must be a
// func() (T, error). Each exported method of T becomes an exported function and each exported field of type
// Table becomes an exported table. Export names are the Go names with a lower-case first letter.
func NewHostModuleDefinition(instantiate interface{}) ModuleDefinition {
	f := reflect.ValueOf(instantiate)

	type_ := f.Type()
	if type_.Kind() != reflect.Func || type_.NumIn() != 0 || type_.NumOut() != 2 || !type_.Out(1).ConvertibleTo(reflect.TypeOf((*error)(nil)).Elem()) {
		panic(errors.New("instantiate must be a func() (T, error)"))
	}

	return hostModuleDefinition{instantiate: f}
}

func (def hostModuleDefinition) Allocate(name string) (AllocatedModule, error) {
	v := def.instantiate.Call(nil)
	if err, ok := v[1].Interface().(error); ok && err != nil {
		return nil, err
	}
	return newHostModule(name, v[0]), nil
}

func wasmType(kind reflect.Kind) wasm.ValueType {
	switch kind {
	case reflect.Int32, reflect.Uint32:
		return wasm.ValueTypeI32
	case reflect.Int64, reflect.Uint64:
		return wasm.ValueTypeI64
	default:
		return 0
	}
}

// A HostFunction is a Go method exported as a WASM function. Only integer parameters and results are supported.
type HostFunction struct {
	sig    wasm.FunctionSig
	method reflect.Value
}

func NewHostFunction(method reflect.Value) *HostFunction {
	t := method.Type()

	params := make([]wasm.ValueType, t.NumIn())
	for i, n := 0, t.NumIn(); i < n; i++ {
		vt := wasmType(t.In(i).Kind())
		if vt == 0 {
			panic(fmt.Errorf("cannot export method with parameter type %v", t.In(i)))
		}
		params[i] = vt
	}

	returns := make([]wasm.ValueType, t.NumOut())
	for i, n := 0, t.NumOut(); i < n; i++ {
		vt := wasmType(t.Out(i).Kind())
		if vt == 0 {
			panic(fmt.Errorf("cannot export method with return type %v", t.Out(i)))
		}
		returns[i] = vt
	}

	return &HostFunction{
		sig:    wasm.FunctionSig{ParamTypes: params, ReturnTypes: returns},
		method: method,
	}
}

func (f *HostFunction) GetSignature() wasm.FunctionSig {
	return f.sig
}

func (f *HostFunction) Call(thread *Thread, args ...interface{}) []interface{} {
	vargs := make([]reflect.Value, len(args))
	for i, v := range args {
		vargs[i] = reflect.ValueOf(v)
	}

	vreturns := f.method.Call(vargs)

	returns := make([]interface{}, len(vreturns))
	for i, v := range vreturns {
		returns[i] = v.Interface()
	}
	return returns
}

func (f *HostFunction) UncheckedCall(thread *Thread, args, returns []uint64) {
	if len(args) != len(f.sig.ParamTypes) {
		panic(fmt.Errorf("expected %v args; got %v", len(f.sig.ParamTypes), len(args)))
	}

	t := f.method.Type()

	vargs := make([]reflect.Value, len(args))
	for i, v := range args {
		switch f.sig.ParamTypes[i] {
		case wasm.ValueTypeI32:
			vargs[i] = reflect.ValueOf(uint32(v)).Convert(t.In(i))
		default:
			vargs[i] = reflect.ValueOf(v).Convert(t.In(i))
		}
	}

	vreturns := f.method.Call(vargs)

	for i, v := range vreturns {
		switch v.Kind() {
		case reflect.Uint32, reflect.Uint64:
			returns[i] = v.Uint()
		case reflect.Int32:
			returns[i] = uint64(uint32(v.Int()))
		default:
			returns[i] = uint64(v.Int())
		}
	}
}

type hostModule struct {
	name    string
	exports map[string]interface{}
}

var tableType = reflect.TypeOf((*Table)(nil)).Elem()

func isExported(n string) bool {
	r, _ := utf8.DecodeRuneInString(n)
	return unicode.IsUpper(r)
}

func exportName(n string) string {
	runes := []rune(n)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func newHostModule(name string, v reflect.Value) *hostModule {
	m := hostModule{
		name:    name,
		exports: map[string]interface{}{},
	}

	value := v
	for value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if value.Kind() == reflect.Struct {
		t := value.Type()
		for i, n := 0, t.NumField(); i < n; i++ {
			f := t.Field(i)
			if isExported(f.Name) && f.Type == tableType {
				m.exports[exportName(f.Name)] = value.Field(i).Addr().Interface().(*Table)
			}
		}
	}

	t := v.Type()
	for i, n := 0, t.NumMethod(); i < n; i++ {
		if name := t.Method(i).Name; isExported(name) {
			m.exports[exportName(name)] = NewHostFunction(v.Method(i))
		}
	}

	return &m
}

func (m *hostModule) Instantiate(imports ImportResolver) (Module, error) {
	return m, nil
}

func (m *hostModule) Name() string {
	return m.name
}

func (m *hostModule) export(name string, kind wasm.External) (interface{}, error) {
	export, ok := m.exports[name]
	if !ok {
		return nil, &ExportNotFoundError{ModuleName: m.name, FieldName: name}
	}
	actual := wasm.ExternalFunction
	if _, ok := export.(*Table); ok {
		actual = wasm.ExternalTable
	}
	if actual != kind {
		return nil, NewKindMismatchError(m.name, name, kind, actual)
	}
	return export, nil
}

func (m *hostModule) GetFunction(name string) (Function, error) {
	export, err := m.export(name, wasm.ExternalFunction)
	if err != nil {
		return nil, err
	}
	return export.(Function), nil
}

func (m *hostModule) GetTable(name string) (*Table, error) {
	export, err := m.export(name, wasm.ExternalTable)
	if err != nil {
		return nil, err
	}
	return export.(*Table), nil
}

func (m *hostModule) Tables() []*Table {
	var names []string
	for name, export := range m.exports {
		if _, ok := export.(*Table); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	tables := make([]*Table, len(names))
	for i, name := range names {
		tables[i] = m.exports[name].(*Table)
	}
	return tables
}
