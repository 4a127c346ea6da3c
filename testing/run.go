package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/validate"
	"github.com/pgavlin/warptab/wast"
)

type Loader func(m *wasm.Module) (exec.ModuleDefinition, error)

// A Reporter receives the failures of a script. *testing.T is a Reporter.
type Reporter interface {
	Error(args ...interface{})
	Logf(format string, args ...interface{})
}

type Environment struct {
	modules map[string]exec.Module

	loader   Loader
	resolver exec.ModuleResolver
	store    *exec.Store
	maxDepth uint

	ignore map[string]bool
}

func RunScript(t *testing.T, loader Loader, path string, strict bool, ignore []string) {
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening script: %v", err)
	}
	defer f.Close()

	s, err := wast.ParseScript(wast.NewScanner(f))
	if err != nil {
		t.Fatalf("parsing script: %v", err)
	}

	env, err := NewEnvironment(loader)
	if err != nil {
		t.Fatalf("creating environment: %v", err)
	}

	env.RunScript(t, s, strict, ignore)
}

// NewEnvironment creates a script environment that loads modules with the given loader. The handlers are
// notified of every module the environment's store allocates or instantiates.
func NewEnvironment(loader Loader, handlers ...exec.ModuleEventHandler) (*Environment, error) {
	return NewEnvironmentWithResolver(loader, nil, handlers...)
}

// NewEnvironmentWithResolver creates a script environment that resolves imports of unregistered modules other
// than "spectest" with the given resolver.
func NewEnvironmentWithResolver(loader Loader, modules exec.ModuleResolver, handlers ...exec.ModuleEventHandler) (*Environment, error) {
	resolver := exec.ChainResolver{exec.MapResolver{"spectest": SpecTest}}
	if modules != nil {
		resolver = append(resolver, modules)
	}
	store := exec.NewStore(resolver, handlers...)
	spectest, err := store.InstantiateModule("spectest")
	if err != nil {
		return nil, err
	}
	return &Environment{
		modules:  map[string]exec.Module{"spectest": spectest},
		loader:   loader,
		resolver: resolver,
		store:    store,
		maxDepth: DefaultMaxDepth,
	}, nil
}

// SetMaxDepth sets the call depth limit for invocations.
func (e *Environment) SetMaxDepth(maxDepth uint) {
	e.maxDepth = maxDepth
}

func (e *Environment) instantiateModule(name string, definition exec.ModuleDefinition) error {
	m, err := e.store.InstantiateModuleDefinition(name, definition)
	if err != nil {
		return err
	}

	e.modules[""], e.modules[name] = m, m
	return nil
}

func (e *Environment) InstantiateModule(t Reporter, pos *wast.Pos, name string, definition exec.ModuleDefinition) {
	if err := e.instantiateModule(name, definition); err != nil {
		e.errorf(t, posOrDefault(pos), "unexpected error: %v", err)
	}
}

func (e *Environment) Register(export, module string) {
	e.store.RegisterModule(export, e.modules[module])
}

func (e *Environment) AssertReturn(t Reporter, pos *wast.Pos, action Action, expected ...interface{}) {
	p := posOrDefault(pos)
	results, err := e.runAction(action)
	if err != nil {
		e.errorf(t, action.Pos(), "%v", err)
		return
	}
	if len(results) != len(expected) {
		e.errorf(t, p, "assert_return: expected %v results, got %v", len(expected), len(results))
		return
	}
	for i, v := range expected {
		if results[i] != v {
			e.errorf(t, p, "assert_return: expected %v, got %v", expected, results)
			return
		}
	}
}

// AssertTrap asserts that the given action fails with the given message. Module actions fail if their
// instantiation traps.
func (e *Environment) AssertTrap(t Reporter, pos *wast.Pos, action Action, failure string) {
	p := posOrDefault(pos)

	_, err := e.runAction(action)
	if err == nil {
		e.errorf(t, p, "assert_trap: action did not trap")
	} else if err.Error() != failure {
		e.errorf(t, p, "assert_trap: expected %v, got %v", failure, err.Error())
	}
}

func (e *Environment) AssertInvalid(t Reporter, pos *wast.Pos, module wast.ModuleCommand, failure string, strict bool) {
	p := posOrDefault(pos)

	m, err := module.Decode()
	if err != nil {
		if strict {
			e.errorf(t, p, "assert_invalid: module was malformed (%v)", err)
		}
		return
	}

	err = validate.ValidateModule(m, true)
	if err == nil {
		e.errorf(t, p, "assert_invalid: module was not invalid")
	} else if strict && err.Error() != failure {
		e.errorf(t, p, "assert_invalid: expected %v, got %v", failure, err.Error())
	}
}

func (e *Environment) RunScript(t Reporter, script *wast.Script, strict bool, ignore []string) {
	e.ignore = map[string]bool{}
	for _, ignore := range ignore {
		e.ignore[ignore] = true
	}

	for _, command := range script.Commands {
		e.RunCommand(t, command, strict)
	}
}

func (e *Environment) errorf(t Reporter, pos wast.Pos, msg string, args ...interface{}) {
	msg = fmt.Sprintf("%v,%v: %s", pos.Line, pos.Column, fmt.Sprintf(msg, args...))
	if e.ignore[msg] {
		t.Logf("ignored: %s", msg)
	} else {
		t.Error(msg)
	}
}

func (e *Environment) RunCommand(t Reporter, command wast.Command, strict bool) {
	pos := command.CommandPos()

	switch command := command.(type) {
	case *wast.Register:
		e.Register(command.Export, command.Name)
	case *wast.AssertReturn:
		e.AssertReturn(t, &pos, e.action(command.Action), command.Results...)
	case *wast.AssertTrap:
		e.AssertTrap(t, &pos, e.action(command.Command), command.Failure)
	case *wast.AssertInvalid:
		e.AssertInvalid(t, &pos, command.Module, command.Failure, strict)
	default:
		if _, err := e.runAction(e.action(command)); err != nil {
			e.errorf(t, pos, "unexpected error: %v", err)
		}
	}
}

func (e *Environment) action(command wast.Command) Action {
	switch command := command.(type) {
	case wast.ModuleCommand:
		return &decodeAndInstantiate{ModuleCommand: command}
	case *wast.Invoke:
		return &invoke{Invoke: *command}
	default:
		panic("unreachable")
	}
}

func (e *Environment) runAction(action Action) (results []interface{}, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = exec.TranslateRecover(x)
		}
	}()
	return action.Run(e)
}
