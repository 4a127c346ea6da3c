// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leb128

import (
	"bytes"
	"fmt"
	"testing"
)

var casesUint = []struct {
	v uint32
	b []byte
}{
	{v: 8, b: []byte{0x08}},
	{v: 127, b: []byte{0x7f}},
	{v: 128, b: []byte{0x80, 0x01}},
	{v: 624485, b: []byte{0xe5, 0x8e, 0x26}},
	{v: 0xffffffff, b: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
}

var casesInt = []struct {
	v int64
	b []byte
}{
	{v: -165675008, b: []byte{0x80, 0x80, 0x80, 0xb1, 0x7f}},
	{v: -624485, b: []byte{0x9b, 0xf1, 0x59}},
	{v: -127, b: []byte{0x81, 0x7f}},
	{v: -1, b: []byte{0x7f}},
	{v: 0, b: []byte{0x00}},
	{v: 63, b: []byte{0x3f}},
	{v: 64, b: []byte{0xc0, 0x00}},
	{v: 0x7fffffff, b: []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
}

func TestReadVarUint32(t *testing.T) {
	for _, c := range casesUint {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			n, err := ReadVarUint32(bytes.NewReader(c.b))
			if err != nil {
				t.Fatal(err)
			}
			if n != c.v {
				t.Fatalf("got = %d; want = %d", n, c.v)
			}
		})
	}
}

func TestReadVarint64(t *testing.T) {
	for _, c := range casesInt {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			n, err := ReadVarint64(bytes.NewReader(c.b))
			if err != nil {
				t.Fatal(err)
			}
			if n != c.v {
				t.Fatalf("got = %d; want = %d", n, c.v)
			}
		})
	}
}

func TestGetVarUint32(t *testing.T) {
	for _, c := range casesUint {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			// Trailing bytes must not be consumed.
			n, sz, err := GetVarUint32(append(append([]byte{}, c.b...), 0xaa))
			if err != nil {
				t.Fatal(err)
			}
			if n != c.v || sz != len(c.b) {
				t.Fatalf("got = (%d, %d); want = (%d, %d)", n, sz, c.v, len(c.b))
			}
		})
	}
}

func TestReadOverflow(t *testing.T) {
	if _, err := ReadVarUint32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x1f})); err != ErrIntegerTooLarge {
		t.Fatalf("expected ErrIntegerTooLarge, got %v", err)
	}
	if _, err := ReadVarUint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00})); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := ReadVarint32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x4f})); err != ErrIntegerTooLarge {
		t.Fatalf("expected ErrIntegerTooLarge, got %v", err)
	}
}

func TestGetTruncated(t *testing.T) {
	if _, _, err := GetVarint64([]byte{0x80, 0x80}); err == nil {
		t.Fatal("expected an error")
	}
}
