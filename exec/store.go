package exec

import (
	"errors"
	"fmt"

	"github.com/pgavlin/warptab/wasm"
	"go.uber.org/zap"
)

var ErrModuleNotFound = errors.New("module not found")

// ErrTableType is returned if an imported table does not match the type of its import declaration.
var ErrTableType = errors.New("incompatible import type")

// InvalidImportError is returned when the export of a resolved module doesn't
// match the signature of its import declaration.
type InvalidImportError struct {
	ModuleName string
	FieldName  string
	Expected   wasm.FunctionSig
	Actual     wasm.FunctionSig
}

func (e *InvalidImportError) Error() string {
	return fmt.Sprintf("wasm: invalid signature for import '%s' in module %s: expected %v, got %v", e.FieldName, e.ModuleName, e.Expected, e.Actual)
}

// A ModuleResolver resolves module names to module definitions.
type ModuleResolver interface {
	// ResolveModule resolves the given module name to a module definition.
	ResolveModule(name string) (ModuleDefinition, error)
}

// A MapResolver is a ModuleResolver that maps module names to definitions using the contents of a map.
type MapResolver map[string]ModuleDefinition

// ResolveModule resolves the given module name to a module definition.
func (r MapResolver) ResolveModule(name string) (ModuleDefinition, error) {
	def, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return def, nil
}

// A ChainResolver resolves module names using each of its resolvers in order. Resolvers that do not know a
// module name must return an error that wraps ErrModuleNotFound.
type ChainResolver []ModuleResolver

// ResolveModule resolves the given module name to a module definition.
func (r ChainResolver) ResolveModule(name string) (ModuleDefinition, error) {
	for _, resolver := range r {
		def, err := resolver.ResolveModule(name)
		if !errors.Is(err, ErrModuleNotFound) {
			return def, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}

// A Store is responsible for instantiating modules. A Store is not safe for concurrent use.
type Store struct {
	resolver ModuleResolver
	handlers []ModuleEventHandler
	modules  map[string]Module
}

// NewStore creates a new store that will use the given resolver to resolve modules.
func NewStore(resolver ModuleResolver, handlers ...ModuleEventHandler) *Store {
	return &Store{
		resolver: resolver,
		handlers: handlers,
		modules:  map[string]Module{},
	}
}

func (s *Store) allocateModule(def ModuleDefinition, name string) (AllocatedModule, error) {
	a, err := def.Allocate(name)
	if err != nil {
		return nil, err
	}
	for _, h := range s.handlers {
		if err = h.ModuleAllocated(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (s *Store) instantiateModule(a AllocatedModule, resolver *resolver) (Module, error) {
	m, err := a.Instantiate(resolver)
	if err != nil {
		Logger().Debug("instantiation failed", zap.String("module", a.Name()), zap.Error(err))
		return nil, err
	}
	for _, h := range s.handlers {
		if err = h.ModuleInstantiated(m); err != nil {
			return nil, err
		}
	}
	Logger().Debug("module instantiated", zap.String("module", m.Name()))
	return m, nil
}

// InstantiateModule instantiates the given module. The name is resolved to a module definition using the store's ModuleResolver.
func (s *Store) InstantiateModule(name string) (Module, error) {
	if m, ok := s.modules[name]; ok {
		return m, nil
	}

	definition, err := s.resolver.ResolveModule(name)
	if err != nil {
		return nil, err
	}
	return s.InstantiateModuleDefinition(name, definition)
}

// RegisterModule registers an instantiated module with the store, replacing any existing module with the same name.
func (s *Store) RegisterModule(name string, module Module) {
	Logger().Debug("module registered", zap.String("name", name), zap.String("module", module.Name()))
	s.modules[name] = module
}

// Module returns the instantiated module registered under the given name, if any.
func (s *Store) Module(name string) (Module, bool) {
	m, ok := s.modules[name]
	return m, ok
}

// InstantiateModuleDefinition instantiates the given module definition.
func (s *Store) InstantiateModuleDefinition(name string, def ModuleDefinition) (Module, error) {
	a, err := s.allocateModule(def, name)
	if err != nil {
		return nil, err
	}

	m, err := s.instantiateModule(a, newResolver(s, a))
	if err != nil {
		return nil, err
	}
	s.modules[name] = m
	return m, nil
}

type resolver struct {
	s *Store

	allocated map[string]AllocatedModule
}

func newResolver(s *Store, m AllocatedModule) *resolver {
	return &resolver{
		s:         s,
		allocated: map[string]AllocatedModule{m.Name(): m},
	}
}

func (r *resolver) instantiateModule(moduleName string) (Module, error) {
	if m, ok := r.s.modules[moduleName]; ok {
		return m, nil
	}
	if m, ok := r.allocated[moduleName]; ok {
		return Module(m), nil
	}

	def, err := r.s.resolver.ResolveModule(moduleName)
	if err != nil {
		return nil, err
	}

	a, err := r.s.allocateModule(def, moduleName)
	if err != nil {
		return nil, err
	}
	r.allocated[moduleName] = a

	m, err := r.s.instantiateModule(a, r)
	if err != nil {
		return nil, err
	}
	r.s.modules[moduleName] = m

	return m, nil
}

func (r *resolver) ResolveFunction(moduleName, functionName string, type_ wasm.FunctionSig) (Function, error) {
	m, err := r.instantiateModule(moduleName)
	if err != nil {
		return nil, err
	}
	f, err := m.GetFunction(functionName)
	if err != nil {
		return nil, err
	}
	if !f.GetSignature().Equals(type_) {
		return nil, &InvalidImportError{
			ModuleName: moduleName,
			FieldName:  functionName,
			Expected:   type_,
			Actual:     f.GetSignature(),
		}
	}
	return f, nil
}

func (r *resolver) ResolveTable(moduleName, tableName string, type_ wasm.Table) (*Table, error) {
	m, err := r.instantiateModule(moduleName)
	if err != nil {
		return nil, err
	}
	table, err := m.GetTable(tableName)
	if err != nil {
		return nil, err
	}
	if table.indexType != type_.IndexType || !limitsMatch(table.Size(), table.max, type_.Limits) {
		return nil, ErrTableType
	}
	return table, nil
}

func limitsMatch(size, max uint64, expected wasm.ResizableLimits) bool {
	return size >= expected.Initial && (!expected.HasMaximum || max <= expected.Maximum)
}
