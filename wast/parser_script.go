package wast

// ParseScript parses a script from the given scanner.
func ParseScript(scanner *Scanner) (script *Script, err error) {
	defer func() {
		if v := recover(); v != nil {
			e, ok := v.(error)
			if !ok {
				panic(v)
			}
			err = e
		}
	}()

	p := parser{s: scanner}
	p.start()
	return p.parseScript(), nil
}

func (p *parser) parseScript() *Script {
	var commands []Command
	for p.tok.Kind != EOF {
		commands = append(commands, p.parseCommand())
	}
	p.expect(EOF)
	return &Script{Commands: commands}
}

func (p *parser) parseCommand() Command {
	if p.tok.Kind == '(' {
		switch p.peek() {
		case TYPE, FUNC, IMPORT, EXPORT, TABLE, ELEM:
			pos := p.tok.Pos
			m := p.parseModuleBody("")
			m.Pos = pos
			return m
		}
	}

	pos := p.tok.Pos
	p.expect('(')

	switch p.tok.Kind {
	case MODULE:
		return p.parseModule(pos)
	case REGISTER:
		return p.parseRegister(pos)
	case INVOKE:
		return p.parseInvoke(pos)
	case ASSERT_RETURN:
		return p.parseAssertReturn(pos)
	case ASSERT_TRAP:
		return p.parseAssertTrap(pos)
	case ASSERT_INVALID:
		return p.parseAssertInvalid(pos)
	default:
		panic(p.errorf("expected module, action, or assertion"))
	}
}

func (p *parser) parseRegister(pos Pos) *Register {
	p.expect(REGISTER)
	defer p.closeSExpr()

	export := p.expect(STRING).(string)
	name, _ := p.maybe(VAR).(string)
	return &Register{
		Pos:    pos,
		Export: export,
		Name:   name,
	}
}

func (p *parser) parseAction(pos Pos) Action {
	p.expect('(')

	switch p.tok.Kind {
	case INVOKE:
		return p.parseInvoke(pos)
	default:
		panic(p.errorf("expected INVOKE"))
	}
}

func (p *parser) parseConst() interface{} {
	p.expect('(')
	defer p.closeSExpr()

	switch p.tok.Kind {
	case I32_CONST, I64_CONST, F32_CONST, F64_CONST:
		return p.parseOp().(*ConstOp).Value
	default:
		panic(p.errorf("expected I32_CONST, I64_CONST, F32_CONST, or F64_CONST"))
	}
}

func (p *parser) parseInvoke(pos Pos) *Invoke {
	defer p.closeSExpr()
	p.scan()

	name, _ := p.maybe(VAR).(string)

	export := p.expect(STRING).(string)

	var args []interface{}
	for p.tok.Kind != ')' {
		args = append(args, p.parseConst())
	}

	return &Invoke{
		Pos:    pos,
		Name:   name,
		Export: export,
		Args:   args,
	}
}

func (p *parser) parseAssertReturn(pos Pos) *AssertReturn {
	p.expect(ASSERT_RETURN)
	defer p.closeSExpr()

	action := p.parseAction(p.tok.Pos)

	var results []interface{}
	for p.tok.Kind != ')' {
		results = append(results, p.parseConst())
	}

	return &AssertReturn{
		Pos:     pos,
		Action:  action,
		Results: results,
	}
}

func (p *parser) parseAssertTrap(pos Pos) *AssertTrap {
	p.expect(ASSERT_TRAP)
	defer p.closeSExpr()

	cmdPos := p.tok.Pos
	p.expect('(')

	var command Command
	switch p.tok.Kind {
	case INVOKE:
		command = p.parseInvoke(cmdPos)
	case MODULE:
		command = p.parseModule(cmdPos)
	default:
		panic(p.errorf("expected INVOKE or MODULE"))
	}

	return &AssertTrap{
		Pos:     pos,
		Command: command,
		Failure: p.expect(STRING).(string),
	}
}

func (p *parser) parseAssertInvalid(pos Pos) *AssertInvalid {
	p.expect(ASSERT_INVALID)
	defer p.closeSExpr()

	modulePos := p.tok.Pos
	p.expect('(')
	module := p.parseModule(modulePos)

	return &AssertInvalid{
		Pos:     pos,
		Module:  module,
		Failure: p.expect(STRING).(string),
	}
}
