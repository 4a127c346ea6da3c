// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wast

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Scanner struct {
	r *bufio.Reader

	buf [2]rune
	err [2]error
	nb  int

	line, column int

	tok   TokenKind
	text  bytes.Buffer
	value interface{}
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r), line: 1}
}

func (s *Scanner) Pos() Pos {
	return Pos{Line: s.line, Column: s.column}
}

func (s *Scanner) Text() string {
	return s.text.String()
}

func (s *Scanner) readRune() (rune, error) {
	c, _, err := s.r.ReadRune()
	if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *Scanner) peek() rune {
	if s.nb == 0 {
		s.buf[0], s.err[0] = s.readRune()
		s.nb = 1
	}
	return s.buf[0]
}

func (s *Scanner) peek2() (rune, rune) {
	for s.nb < 2 {
		s.buf[s.nb], s.err[s.nb] = s.readRune()
		s.nb++
	}
	return s.buf[0], s.buf[1]
}

// skip consumes the next rune. Columns count the runes consumed on the current line, so a position is the
// column of the last rune of the token that ends there.
func (s *Scanner) skip() {
	if s.nb == 0 {
		panic("expected a buffered rune")
	}
	r := s.buf[0]
	s.nb--
	s.buf[0], s.err[0] = s.buf[1], s.err[1]
	if r == '\n' {
		s.line, s.column = s.line+1, 0
	} else {
		s.column++
	}
}

func (s *Scanner) chomp() rune {
	if s.nb == 0 {
		s.peek()
	}
	r := s.buf[0]
	s.skip()
	s.text.WriteRune(r)
	return r
}

func (s *Scanner) scanNum(b *strings.Builder, isDigit func(rune) bool) {
	for {
		m, n := s.peek2()
		if m == '_' && isDigit(n) {
			s.chomp()
			s.chomp()
			b.WriteRune(n)
		} else if isDigit(m) {
			s.chomp()
			b.WriteRune(m)
		} else {
			break
		}
	}
}

// scanNumeric scans an integer or float literal. Integers become INT tokens holding a *BigInt; literals with a
// fraction or exponent, and inf and nan, become FLOAT tokens holding a *FloatLit.
func (s *Scanner) scanNumeric() TokenKind {
	var b strings.Builder

	// Already positioned at a '+', '-', or digit
	sign := s.peek()
	if sign == '+' || sign == '-' {
		s.chomp()
		b.WriteRune(sign)
	}

	switch m, n := s.peek2(); {
	case m == '0' && n == 'x':
		s.chomp()
		s.chomp()
		return s.scanLiteral(&b, 16, isHexDigit, 'p', 'P')
	case isDigit(m):
		return s.scanLiteral(&b, 10, isDigit, 'e', 'E')
	case isLetter(m):
		s.scanWord()
		return s.scanSpecialFloat(s.Text())
	default:
		return TokenKind(sign)
	}
}

func (s *Scanner) scanLiteral(b *strings.Builder, base int, digit func(rune) bool, exp, expUpper rune) TokenKind {
	s.scanNum(b, digit)

	isFloat := false
	if s.peek() == '.' {
		isFloat = true
		b.WriteRune(s.chomp())
		s.scanNum(b, digit)
	}
	if n := s.peek(); n == exp || n == expUpper {
		isFloat = true
		b.WriteRune(s.chomp())
		if sign := s.peek(); sign == '+' || sign == '-' {
			b.WriteRune(s.chomp())
		}
		s.scanNum(b, isDigit)
	}

	if n := s.peek(); isLetter(n) || n == '.' || n == '_' {
		s.value = fmt.Errorf("unsupported numeric literal %q", s.Text())
		return ERROR
	}

	if isFloat {
		s.value = &FloatLit{text: b.String(), base: base}
		return FLOAT
	}
	s.value = &BigInt{text: b.String(), base: base}
	return INT
}

// scanSpecialFloat finishes a literal spelled with letters: inf and nan, optionally signed. NaN payloads are not
// supported.
func (s *Scanner) scanSpecialFloat(text string) TokenKind {
	switch strings.TrimLeft(text, "+-") {
	case "inf", "nan":
		s.value = &FloatLit{text: text, base: 10}
		return FLOAT
	default:
		s.value = fmt.Errorf("unsupported numeric literal %q", text)
		return ERROR
	}
}

func (s *Scanner) scanString() TokenKind {
	// Already positioned at a '"'
	s.chomp()

	var b strings.Builder
	for {
		if s.peek() == 0 && s.err[0] != nil {
			s.value = errors.New("unterminated string")
			return ERROR
		}

		n := s.chomp()
		if n == '"' {
			break
		}
		if n != '\\' {
			b.WriteRune(n)
			continue
		}

		n = s.chomp()
		switch n {
		case 'n':
			b.WriteRune('\n')
		case 'r':
			b.WriteRune('\r')
		case 't':
			b.WriteRune('\t')
		case '\\', '\'', '"':
			b.WriteRune(n)
		default:
			if isHexDigit(n) {
				hi, lo := n, s.chomp()
				b.WriteByte(byte(hexNibble(hi)<<4 | hexNibble(lo)))
			} else {
				b.WriteRune('\\')
				b.WriteRune(n)
			}
		}
	}

	s.value = b.String()
	return STRING
}

func (s *Scanner) scanName() TokenKind {
	// Already positioned at a '$'
	s.chomp()
	s.scanWord()

	s.value = s.text.String()
	return VAR
}

// scanWord consumes the rest of a keyword or name.
func (s *Scanner) scanWord() {
	for {
		n := s.peek()
		if !isLetter(n) && !isDigit(n) && !isSymbol(n) && n != '_' {
			return
		}
		s.chomp()
	}
}

func (s *Scanner) scanKeyword() TokenKind {
	// Already positioned at a letter
	s.chomp()
	s.scanWord()

	kw := s.text.String()
	if tk, ok := tokenKindOf[kw]; ok {
		return tk
	}
	if kw == "inf" || kw == "nan" {
		return s.scanSpecialFloat(kw)
	}

	s.value = fmt.Errorf("unknown keyword %q", kw)
	return ERROR
}

func (s *Scanner) scanLineComment() {
	// Already positioned at ;;
	s.skip()
	s.skip()

	for {
		n := s.peek()
		if n == 0 && s.err[0] != nil {
			break
		}
		s.skip()
		if n == '\n' {
			break
		}
	}
}

func (s *Scanner) scanBlockComment() {
	// Already positioned at (;
	s.skip()
	s.skip()

	nest := 1
	for {
		m, n := s.peek2()
		if m == '(' && n == ';' {
			s.skip()
			s.skip()
			nest++
		} else if m == ';' && n == ')' {
			s.skip()
			s.skip()
			nest--
			if nest == 0 {
				break
			}
		} else if m == 0 && s.err[0] != nil {
			break
		} else {
			s.skip()
		}
	}
}

func (s *Scanner) scan() (TokenKind, error) {
	s.text.Reset()
	s.value = nil

	for {
		m, n := s.peek2()
		switch {
		case isDigit(m) || m == '-' || m == '+':
			return s.scanNumeric(), nil
		case m == '$':
			return s.scanName(), nil
		case m >= 'a' && m <= 'z':
			return s.scanKeyword(), nil
		case m == '"':
			return s.scanString(), nil
		case m == ';' && n == ';':
			s.scanLineComment()
		case m == '(' && n == ';':
			s.scanBlockComment()
		case m == '(' || m == ')':
			s.chomp()
			return TokenKind(m), nil
		case isSpace(m):
			s.skip()
		case m == 0 && s.err[0] != nil:
			if err := s.err[0]; err != io.EOF {
				return ERROR, err
			}
			return EOF, nil
		case m == utf8.RuneError:
			return ERROR, errors.New("malformed UTF-8 encoding")
		default:
			return ERROR, fmt.Errorf("%v,%v: unexpected character '%c'", s.line, s.column, m)
		}
	}
}

func (s *Scanner) token() *Token {
	return &Token{Kind: s.tok, Text: s.Text(), Pos: s.Pos(), Value: s.value}
}

func (s *Scanner) Scan() (*Token, error) {
	tok, err := s.scan()
	s.tok = tok

	if err != nil {
		return nil, err
	}
	return s.token(), nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || r >= 'A' && r <= 'F' || r >= 'a' && r <= 'f'
}

func isLetter(r rune) bool {
	return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
}

func isSymbol(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '\\', '^', '~', '=', '<', '>', '!', '?', '@', '#', '$', '%', '&', '|', ':', '`', '.', '\'':
		return true
	}
	return false
}

func hexNibble(r rune) uint64 {
	if r >= 'A' && r <= 'F' {
		return uint64(r - 'A' + 10)
	} else if r >= 'a' && r <= 'f' {
		return uint64(r - 'a' + 10)
	} else if isDigit(r) {
		return uint64(r - '0')
	}
	return 0
}

// A BigInt is an integer literal whose width is not known until it is used.
type BigInt struct {
	text string
	base int
}

// I returns the literal as a 64-bit integer. Unsigned literals that do not fit in an int64 wrap.
func (b *BigInt) I() (int64, error) {
	if b.text[0] == '-' {
		// parse as a signed integer
		return strconv.ParseInt(b.text, b.base, 64)
	}

	text := b.text
	if b.text[0] == '+' {
		text = text[1:]
	}

	// parse as an unsigned integer
	v, err := strconv.ParseUint(text, b.base, 64)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// U returns the literal as an unsigned integer of the given bit size.
func (b *BigInt) U(bitSize int) (uint64, error) {
	if b.text[0] == '-' {
		return 0, fmt.Errorf("%q is not an unsigned integer", b.text)
	}
	return strconv.ParseUint(strings.TrimPrefix(b.text, "+"), b.base, bitSize)
}

// A FloatLit is a float literal whose width is not known until it is used.
type FloatLit struct {
	text string
	base int
}

// F returns the literal rounded to a float of the given bit size.
func (f *FloatLit) F(bitSize int) (float64, error) {
	return parseFloat(f.text, f.base, bitSize)
}

// F returns the integer literal as a float of the given bit size.
func (b *BigInt) F(bitSize int) (float64, error) {
	return parseFloat(b.text, b.base, bitSize)
}

func parseFloat(text string, base, bitSize int) (float64, error) {
	if strings.TrimLeft(text, "+-") == "nan" {
		nan := math.NaN()
		if text[0] == '-' {
			nan = math.Copysign(nan, -1)
		}
		return nan, nil
	}
	if base == 16 {
		sign := ""
		if text[0] == '+' || text[0] == '-' {
			sign, text = text[:1], text[1:]
		}
		if !strings.ContainsAny(text, "pP") {
			text += "p0"
		}
		text = sign + "0x" + text
	}
	return strconv.ParseFloat(text, bitSize)
}
