// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package leb128 provides functions for reading and writing integer values
// encoded in the Little Endian Base 128 (LEB128) format.
package leb128

import (
	"errors"
	"io"
)

var (
	ErrOverflow        = errors.New("leb128: integer representation too long")
	ErrIntegerTooLarge = errors.New("leb128: integer too large")
)

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readVarUint(r io.Reader, n uint) (uint64, error) {
	var res uint64
	for shift := uint(0); ; shift += 7 {
		b, err := readByte(r)
		if err != nil {
			return 0, err
		}
		if shift >= n {
			return 0, ErrOverflow
		}
		if n-shift < 7 && uint64(b&0x7f)>>(n-shift) != 0 {
			return 0, ErrIntegerTooLarge
		}
		res |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return res, nil
		}
	}
}

func readVarint(r io.Reader, n uint) (int64, error) {
	var res int64
	var shift uint
	var b byte
	for {
		var err error
		if b, err = readByte(r); err != nil {
			return 0, err
		}
		if shift >= n {
			return 0, ErrOverflow
		}
		if n-shift < 7 {
			// The unused bits of the final byte must be a sign extension of the value.
			rest := int8(b<<1) >> (n - shift)
			if rest != 0 && rest != -1 {
				return 0, ErrIntegerTooLarge
			}
		}
		res |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		res |= -1 << shift
	}
	return res, nil
}

// ReadVarUint32 reads a LEB128 encoded unsigned 32-bit integer from r.
func ReadVarUint32(r io.Reader) (uint32, error) {
	v, err := readVarUint(r, 32)
	return uint32(v), err
}

// ReadVarUint64 reads a LEB128 encoded unsigned 64-bit integer from r.
func ReadVarUint64(r io.Reader) (uint64, error) {
	return readVarUint(r, 64)
}

// ReadVarint32 reads a LEB128 encoded signed 32-bit integer from r.
func ReadVarint32(r io.Reader) (int32, error) {
	v, err := readVarint(r, 32)
	return int32(v), err
}

// ReadVarint64 reads a LEB128 encoded signed 64-bit integer from r.
func ReadVarint64(r io.Reader) (int64, error) {
	return readVarint(r, 64)
}

type sliceReader struct {
	b []byte
	n int
}

func (s *sliceReader) ReadByte() (byte, error) {
	if s.n >= len(s.b) {
		return 0, io.ErrUnexpectedEOF
	}
	b := s.b[s.n]
	s.n++
	return b, nil
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = b
	return 1, nil
}

// GetVarUint32 decodes a LEB128 encoded unsigned 32-bit integer from the front of b. It returns the value and
// the number of bytes consumed.
func GetVarUint32(b []byte) (uint32, int, error) {
	r := sliceReader{b: b}
	v, err := ReadVarUint32(&r)
	return v, r.n, err
}

// GetVarUint64 decodes a LEB128 encoded unsigned 64-bit integer from the front of b.
func GetVarUint64(b []byte) (uint64, int, error) {
	r := sliceReader{b: b}
	v, err := ReadVarUint64(&r)
	return v, r.n, err
}

// GetVarint32 decodes a LEB128 encoded signed 32-bit integer from the front of b.
func GetVarint32(b []byte) (int32, int, error) {
	r := sliceReader{b: b}
	v, err := ReadVarint32(&r)
	return v, r.n, err
}

// GetVarint64 decodes a LEB128 encoded signed 64-bit integer from the front of b.
func GetVarint64(b []byte) (int64, int, error) {
	r := sliceReader{b: b}
	v, err := ReadVarint64(&r)
	return v, r.n, err
}
