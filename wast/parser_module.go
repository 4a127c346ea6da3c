package wast

import "github.com/pgavlin/warptab/wasm"

// ParseModule parses a single module from the given scanner.
func ParseModule(scanner *Scanner) (module *Module, err error) {
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
	pos := p.tok.Pos
	p.expect('(')
	m := p.parseModule(pos)
	p.expect(EOF)
	return m, nil
}

func (p *parser) parseModule(pos Pos) *Module {
	p.expect(MODULE)

	name, _ := p.maybe(VAR).(string)

	m := p.parseModuleBody(name)
	m.Pos = pos

	p.expect(')')
	return m
}

func (p *parser) parseModuleBody(name string) *Module {
	m := Module{Name: name}

fields:
	for p.tok.Kind == '(' {
		switch p.peek() {
		case TYPE:
			m.Types = append(m.Types, p.parseTypedef())
		case FUNC:
			m.Funcs = append(m.Funcs, p.parseFunc())
		case IMPORT:
			m.Imports = append(m.Imports, p.parseImport())
		case EXPORT:
			m.Exports = append(m.Exports, p.parseExport())
		case TABLE:
			m.Tables = append(m.Tables, p.parseTable())
		case ELEM:
			m.Elems = append(m.Elems, p.parseElem())
		default:
			break fields
		}
	}

	return &m
}

func (p *parser) parseTypedef() *Typedef {
	p.expectSExpr(TYPE)
	defer p.closeSExpr()

	name, _ := p.maybe(VAR).(string)

	p.expectSExpr(FUNC)
	defer p.closeSExpr()

	return &Typedef{
		Name:    name,
		Params:  p.parseParams(),
		Results: p.parseResults(),
	}
}

func (p *parser) parseFunc() *Func {
	p.expectSExpr(FUNC)
	defer p.closeSExpr()

	name, _ := p.maybe(VAR).(string)

	exports := p.parseInlineExports()
	import_ := p.parseInlineImport()
	typ := p.parseFuncType()

	locals, instrs := []*Local(nil), []Instr(nil)
	if import_ == nil {
		locals, instrs = p.parseLocals(), p.parseInstrs(')')
	}

	return &Func{
		Name:    name,
		Exports: exports,
		Import:  import_,
		Type:    typ,
		Locals:  locals,
		Instrs:  instrs,
	}
}

func (p *parser) parseImport() *Import {
	p.expectSExpr(IMPORT)
	defer p.closeSExpr()

	module, name := p.expect(STRING).(string), p.expect(STRING).(string)

	var external External
	switch p.peek() {
	case FUNC:
		external = p.parseExternalFunc()
	case TABLE:
		external = p.parseExternalTable()
	default:
		p.scan()
		panic(p.errorf("expected FUNC or TABLE"))
	}

	return &Import{
		Module:   module,
		Name:     name,
		External: external,
	}
}

func (p *parser) parseExport() *Export {
	p.expectSExpr(EXPORT)
	defer p.closeSExpr()

	name := p.expect(STRING).(string)

	p.expect('(')
	defer p.closeSExpr()

	var external wasm.External
	switch p.tok.Kind {
	case FUNC:
		external = wasm.ExternalFunction
	case TABLE:
		external = wasm.ExternalTable
	default:
		panic(p.errorf("expected FUNC or TABLE"))
	}
	p.scan()

	return &Export{
		Name: name,
		Kind: external,
		Var:  *p.expectVar(),
	}
}

func (p *parser) parseIndexType() wasm.IndexType {
	switch p.tok.Kind {
	case I64:
		p.scan()
		return wasm.IndexTypeI64
	case I32:
		p.scan()
	}
	return wasm.IndexTypeI32
}

func (p *parser) parseTable() *Table {
	p.expectSExpr(TABLE)
	defer p.closeSExpr()

	name, _ := p.maybe(VAR).(string)

	exports := p.parseInlineExports()
	import_ := p.parseInlineImport()
	indexType := p.parseIndexType()

	if import_ == nil && p.tok.Kind == FUNCREF {
		p.scan()

		p.expectSExpr(ELEM)
		defer p.closeSExpr()

		var values []Var
		for p.tok.Kind != ')' {
			values = append(values, *p.expectVar())
		}

		return &Table{
			Name:      name,
			Exports:   exports,
			IndexType: indexType,
			Values:    values,
		}
	}

	rng := p.parseRange()
	p.expect(FUNCREF)

	return &Table{
		Name:      name,
		Exports:   exports,
		Import:    import_,
		IndexType: indexType,
		Range:     rng,
	}
}

func (p *parser) parseElem() *Elem {
	p.expectSExpr(ELEM)
	defer p.closeSExpr()

	elem := Elem{Mode: wasm.ElementModePassive}
	elem.Name, _ = p.maybe(VAR).(string)

	switch {
	case p.tok.Kind == INT && p.peek() == '(':
		// Legacy table index
		elem.Table, elem.Mode = p.parseVar(), wasm.ElementModeActive
	case p.tok.Kind == DECLARE:
		p.scan()
		elem.Mode = wasm.ElementModeDeclarative
	case p.scanSExpr(TABLE):
		elem.Table, elem.Mode = p.expectVar(), wasm.ElementModeActive
		p.closeSExpr()
	}

	if elem.Mode != wasm.ElementModeDeclarative && p.tok.Kind == '(' {
		if p.scanSExpr(OFFSET) {
			elem.Offset = p.parseInstrs(')')
			p.closeSExpr()
		} else {
			elem.Offset = p.parseExpr()
		}
		elem.Mode = wasm.ElementModeActive
	}
	if elem.Mode == wasm.ElementModeActive && elem.Offset == nil {
		panic(p.errorf("expected offset expression"))
	}

	switch p.tok.Kind {
	case FUNC:
		p.scan()
		fallthrough
	default:
		for p.tok.Kind != ')' {
			elem.Values = append(elem.Values, *p.expectVar())
		}
	case FUNCREF:
		p.scan()
		for p.tok.Kind != ')' {
			elem.Values = append(elem.Values, *p.parseElemExpr())
		}
	}

	return &elem
}

func (p *parser) parseElemExpr() *Var {
	p.expect('(')
	defer p.closeSExpr()

	if p.tok.Kind == ITEM {
		p.scan()
		if p.scanSExpr(REF_FUNC) {
			defer p.closeSExpr()
			return p.expectVar()
		}
	}

	p.expect(REF_FUNC)
	return p.expectVar()
}

func (p *parser) parseInlineExports() []string {
	var exports []string
	for p.scanSExpr(EXPORT) {
		exports = append(exports, p.expect(STRING).(string))
		p.closeSExpr()
	}
	return exports
}

func (p *parser) parseInlineImport() *InlineImport {
	if !p.scanSExpr(IMPORT) {
		return nil
	}
	defer p.closeSExpr()

	return &InlineImport{
		Module: p.expect(STRING).(string),
		Name:   p.expect(STRING).(string),
	}
}

func (p *parser) parseExpr() []Instr {
	p.expect('(')
	defer p.closeSExpr()

	final := p.parseOp()
	var instrs []Instr
	for p.tok.Kind != ')' {
		instrs = append(instrs, p.parseExpr()...)
	}

	return append(instrs, final)
}

func (p *parser) parseExternalFunc() *ExternalFunc {
	p.expectSExpr(FUNC)
	defer p.closeSExpr()

	name, _ := p.maybe(VAR).(string)
	return &ExternalFunc{
		Name: name,
		Type: p.parseFuncType(),
	}
}

func (p *parser) parseExternalTable() *ExternalTable {
	p.expectSExpr(TABLE)
	defer p.closeSExpr()

	name, _ := p.maybe(VAR).(string)
	indexType := p.parseIndexType()
	rng := p.parseRange()

	p.expect(FUNCREF)

	return &ExternalTable{
		Name:      name,
		IndexType: indexType,
		Range:     *rng,
	}
}

func (p *parser) parseFuncType() *FuncType {
	var var_ *Var
	if p.scanSExpr(TYPE) {
		var_ = p.expectVar()
		p.closeSExpr()
	}

	return &FuncType{
		Var:     var_,
		Params:  p.parseParams(),
		Results: p.parseResults(),
	}
}

func (p *parser) parseInstrs(term ...TokenKind) []Instr {
	var instrs []Instr
	for !any(p.tok.Kind, term) {
		switch p.tok.Kind {
		case '(':
			instrs = append(instrs, p.parseExpr()...)
		default:
			instrs = append(instrs, p.parseOp())
		}
	}
	return instrs
}

func (p *parser) parseLocals() []*Local {
	var locals []*Local
	for p.scanSExpr(LOCAL) {
		if p.tok.Kind == VAR {
			locals = append(locals, &Local{
				Name: p.expect(VAR).(string),
				Type: p.parseValType(),
			})
		} else {
			for p.tok.Kind != ')' {
				locals = append(locals, &Local{Type: p.parseValType()})
			}
		}
		p.closeSExpr()
	}
	return locals
}

func (p *parser) parseParams() []*Param {
	var params []*Param
	for p.scanSExpr(PARAM) {
		if p.tok.Kind == VAR {
			params = append(params, &Param{
				Name: p.expect(VAR).(string),
				Type: p.parseValType(),
			})
		} else {
			for p.tok.Kind != ')' {
				params = append(params, &Param{Type: p.parseValType()})
			}
		}
		p.closeSExpr()
	}
	return params
}

func (p *parser) parseRange() *Range {
	min := p.expectU(64)

	var max *uint64
	if p.tok.Kind == INT {
		m := p.expectU(64)
		max = &m
	}

	return &Range{
		Min: min,
		Max: max,
	}
}

func (p *parser) parseResults() []wasm.ValueType {
	var results []wasm.ValueType
	for p.scanSExpr(RESULT) {
		for p.tok.Kind != ')' {
			results = append(results, p.parseValType())
		}
		p.closeSExpr()
	}
	return results
}

func (p *parser) parseValType() wasm.ValueType {
	switch p.tok.Kind {
	case I32:
		p.scan()
		return wasm.ValueTypeI32
	case I64:
		p.scan()
		return wasm.ValueTypeI64
	case F32:
		p.scan()
		return wasm.ValueTypeF32
	case F64:
		p.scan()
		return wasm.ValueTypeF64
	default:
		panic(p.errorf("expected I32, I64, F32, or F64"))
	}
}

func (p *parser) parseVar() *Var {
	switch p.tok.Kind {
	case INT:
		return &Var{Index: uint32(p.expectU(32))}
	case VAR:
		return &Var{Name: p.expect(VAR).(string)}
	default:
		return nil
	}
}

func (p *parser) expectVar() *Var {
	v := p.parseVar()
	if v == nil {
		panic(p.errorf("expected INT or VAR"))
	}
	return v
}

// parseVars parses at most max optional vars.
func (p *parser) parseVars(max int) []Var {
	var vars []Var
	for len(vars) < max {
		v := p.parseVar()
		if v == nil {
			break
		}
		vars = append(vars, *v)
	}
	return vars
}

func (p *parser) parseOp() Instr {
	switch p.tok.Kind {
	case CALL_INDIRECT:
		p.scan()

		table := p.parseVar()
		typ := p.parseFuncType()
		return &CallIndirect{Table: table, Type: *typ}

	case CALL, LOCAL_GET, ELEM_DROP:
		code := p.tok.Kind
		p.scan()

		return &VarOp{Code: code, Vars: []Var{*p.expectVar()}}

	case TABLE_SIZE:
		p.scan()

		vars := p.parseVars(1)
		if len(vars) == 0 {
			vars = []Var{{}}
		}
		return &VarOp{Code: TABLE_SIZE, Vars: vars}

	case TABLE_COPY:
		p.scan()

		vars := p.parseVars(2)
		switch len(vars) {
		case 0:
			vars = []Var{{}, {}}
		case 1:
			panic(p.errorf("expected INT or VAR"))
		}
		return &VarOp{Code: TABLE_COPY, Vars: vars}

	case TABLE_INIT:
		p.scan()

		// The table operand is optional and precedes the segment operand.
		vars := p.parseVars(2)
		switch len(vars) {
		case 0:
			panic(p.errorf("expected INT or VAR"))
		case 1:
			vars = []Var{{}, vars[0]}
		}
		return &VarOp{Code: TABLE_INIT, Vars: vars}

	case I32_CONST:
		p.scan()

		v, ok := p.I32()
		if !ok {
			panic(p.errorf("expected INT"))
		}
		p.scan()
		return &ConstOp{Code: I32_CONST, Value: v}

	case I64_CONST:
		p.scan()

		v, ok := p.I64()
		if !ok {
			panic(p.errorf("expected INT"))
		}
		p.scan()
		return &ConstOp{Code: I64_CONST, Value: v}

	case F32_CONST:
		p.scan()
		return &ConstOp{Code: F32_CONST, Value: float32(p.expectFloat(32))}

	case F64_CONST:
		p.scan()
		return &ConstOp{Code: F64_CONST, Value: p.expectFloat(64)}

	case UNREACHABLE, NOP, RETURN, DROP:
		code := p.tok.Kind
		p.scan()
		return &Op{Code: code}

	default:
		panic(p.errorf("unknown operator %v", p.tok.Kind))
	}
}
