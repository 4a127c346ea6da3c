// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wast

import (
	"fmt"
	"unicode"
)

type Pos struct {
	Line, Column int
}

type Token struct {
	Kind  TokenKind
	Pos   Pos
	Text  string
	Value interface{}
}

func (t *Token) String() string {
	switch t.Kind {
	case EOF:
		return "<EOF>"
	default:
		return fmt.Sprintf("<%v %q>", t.Kind, t.Text)
	}
}

type TokenKind rune

const (
	INVALID TokenKind = iota + unicode.MaxRune
	ASSERT_INVALID
	ASSERT_RETURN
	ASSERT_TRAP
	CALL
	CALL_INDIRECT
	DECLARE
	DROP
	ELEM
	ELEM_DROP
	END
	EOF
	ERROR
	EXPORT
	F32
	F32_CONST
	F64
	F64_CONST
	FLOAT
	FUNC
	FUNCREF
	I32
	I32_CONST
	I64
	I64_CONST
	IMPORT
	INT
	INVOKE
	ITEM
	LOCAL
	LOCAL_GET
	MODULE
	NOP
	OFFSET
	PARAM
	REF_FUNC
	REGISTER
	RESULT
	RETURN
	STRING
	TABLE
	TABLE_COPY
	TABLE_INIT
	TABLE_SIZE
	TYPE
	UNREACHABLE
	VAR
)

var tokenKindOf = map[string]TokenKind{
	"assert_invalid": ASSERT_INVALID,
	"assert_return":  ASSERT_RETURN,
	"assert_trap":    ASSERT_TRAP,
	"call":           CALL,
	"call_indirect":  CALL_INDIRECT,
	"declare":        DECLARE,
	"drop":           DROP,
	"elem":           ELEM,
	"elem.drop":      ELEM_DROP,
	"end":            END,
	"export":         EXPORT,
	"f32":            F32,
	"f32.const":      F32_CONST,
	"f64":            F64,
	"f64.const":      F64_CONST,
	"func":           FUNC,
	"funcref":        FUNCREF,
	"i32":            I32,
	"i32.const":      I32_CONST,
	"i64":            I64,
	"i64.const":      I64_CONST,
	"import":         IMPORT,
	"invoke":         INVOKE,
	"item":           ITEM,
	"local":          LOCAL,
	"local.get":      LOCAL_GET,
	"module":         MODULE,
	"nop":            NOP,
	"offset":         OFFSET,
	"param":          PARAM,
	"ref.func":       REF_FUNC,
	"register":       REGISTER,
	"result":         RESULT,
	"return":         RETURN,
	"table":          TABLE,
	"table.copy":     TABLE_COPY,
	"table.init":     TABLE_INIT,
	"table.size":     TABLE_SIZE,
	"type":           TYPE,
	"unreachable":    UNREACHABLE,
}

var tokenKindNames = map[TokenKind]string{
	INVALID: "INVALID",
	EOF:     "EOF",
	ERROR:   "ERROR",
	INT:     "INT",
	FLOAT:   "FLOAT",
	STRING:  "STRING",
	VAR:     "VAR",
}

func init() {
	for kw, k := range tokenKindOf {
		tokenKindNames[k] = kw
	}
}

func (t TokenKind) String() string {
	if name, ok := tokenKindNames[t]; ok {
		return name
	}
	return string([]rune{rune(t)})
}
