package wast

import (
	"fmt"
	"math"
)

func any(t TokenKind, x []TokenKind) bool {
	for _, k := range x {
		if t == k {
			return true
		}
	}
	return false
}

type parser struct {
	s   *Scanner
	tok *Token
}

func (p *parser) start() {
	p.scan()
	p.scan()
}

func (p *parser) scan() {
	p.tok = p.s.token()
	if p.tok.Kind == ERROR {
		if err, ok := p.tok.Value.(error); ok {
			panic(p.errorf("%v", err))
		}
	}
	if _, err := p.s.Scan(); err != nil {
		panic(err)
	}
}

func (p *parser) peek() TokenKind {
	return p.s.tok
}

func (p *parser) peekSExpr(word TokenKind) bool {
	return p.tok.Kind == '(' && p.peek() == word
}

func (p *parser) scanSExpr(word TokenKind) bool {
	if p.peekSExpr(word) {
		p.scan()
		p.scan()
		return true
	}
	return false
}

func (p *parser) expectSExpr(word TokenKind) {
	p.expect('(', word)
}

func (p *parser) closeSExpr() {
	p.expect(')')
}

func (p *parser) expectU(bitSize int) uint64 {
	b, ok := p.tok.Value.(*BigInt)
	if p.tok.Kind != INT || !ok {
		panic(p.errorf("expected INT"))
	}
	v, err := b.U(bitSize)
	if err != nil {
		panic(p.errorf("%v", err))
	}
	p.scan()
	return v
}

func (p *parser) I32() (int32, bool) {
	v, ok := p.tok.Value.(*BigInt)
	if !ok {
		return 0, false
	}
	i, err := v.I()
	if err != nil {
		panic(p.errorf("%v", err))
	}
	if i < math.MinInt32 || i > math.MaxUint32 {
		panic(p.errorf("i32 constant out of range"))
	}
	return int32(i), true
}

func (p *parser) I64() (int64, bool) {
	v, ok := p.tok.Value.(*BigInt)
	if !ok {
		return 0, false
	}
	i, err := v.I()
	if err != nil {
		panic(p.errorf("%v", err))
	}
	return i, true
}

// expectFloat consumes an INT or FLOAT literal and returns it rounded to a float of the given bit size.
func (p *parser) expectFloat(bitSize int) float64 {
	var f float64
	var err error
	switch v := p.tok.Value.(type) {
	case *BigInt:
		f, err = v.F(bitSize)
	case *FloatLit:
		f, err = v.F(bitSize)
	default:
		panic(p.errorf("expected INT or FLOAT"))
	}
	if err != nil {
		panic(p.errorf("%v", err))
	}
	p.scan()
	return f
}

func (p *parser) errorf(s string, args ...interface{}) error {
	return fmt.Errorf("%v,%v: %s", p.tok.Pos.Line, p.tok.Pos.Column, fmt.Sprintf(s, args...))
}

func (p *parser) expect(kinds ...TokenKind) interface{} {
	var v interface{}
	for _, k := range kinds {
		if p.tok.Kind != k {
			panic(p.errorf("expected %v, got %v", k, p.tok.Kind))
		}
		v = p.tok.Value
		p.scan()
	}
	return v
}

func (p *parser) maybe(kinds ...TokenKind) interface{} {
	var v interface{}
	for _, k := range kinds {
		if p.tok.Kind != k {
			break
		}
		v = p.tok.Value
		p.scan()
	}
	return v
}
