// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leb128

import "io"

// WriteVarUint32 writes a LEB128 encoded unsigned 32-bit integer to w and returns the number of bytes written.
func WriteVarUint32(w io.Writer, cur uint32) (int, error) {
	return WriteVarUint64(w, uint64(cur))
}

// WriteVarUint64 writes a LEB128 encoded unsigned 64-bit integer to w and returns the number of bytes written.
func WriteVarUint64(w io.Writer, cur uint64) (int, error) {
	var out []byte
	for {
		b := byte(cur & 0x7f)
		cur >>= 7
		if cur != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if cur == 0 {
			break
		}
	}
	return w.Write(out)
}

// WriteVarint64 writes a LEB128 encoded signed 64-bit integer to w and returns the number of bytes written.
func WriteVarint64(w io.Writer, v int64) (int, error) {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			out = append(out, b)
			break
		}
		out = append(out, b|0x80)
	}
	return w.Write(out)
}
