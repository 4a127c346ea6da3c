package wast

import "github.com/pgavlin/warptab/wasm"

type Command interface {
	CommandPos() Pos

	isCommand()
}

type Script struct {
	Commands []Command
}

type ModuleCommand interface {
	Command

	Decode() (*wasm.Module, error)
	ModuleName() string
}

type Register struct {
	Pos Pos

	Export string
	Name   string
}

func (r *Register) CommandPos() Pos {
	return r.Pos
}

func (*Register) isCommand() {}

type Action interface {
	Command
	isAction()
}

type Invoke struct {
	Pos Pos

	Name   string
	Export string
	Args   []interface{}
}

func (i *Invoke) CommandPos() Pos {
	return i.Pos
}

func (*Invoke) isCommand() {}
func (*Invoke) isAction()  {}

type AssertReturn struct {
	Pos Pos

	Action  Action
	Results []interface{}
}

func (a *AssertReturn) CommandPos() Pos {
	return a.Pos
}

func (*AssertReturn) isCommand() {}

// An AssertTrap asserts that an action or a module instantiation traps with the given failure message.
type AssertTrap struct {
	Pos Pos

	Command Command
	Failure string
}

func (a *AssertTrap) CommandPos() Pos {
	return a.Pos
}

func (*AssertTrap) isCommand() {}

// An AssertInvalid asserts that a module fails validation with the given failure message.
type AssertInvalid struct {
	Pos Pos

	Module  ModuleCommand
	Failure string
}

func (a *AssertInvalid) CommandPos() Pos {
	return a.Pos
}

func (*AssertInvalid) isCommand() {}
