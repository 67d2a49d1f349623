// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package encoding

import (
	"encoding/binary"
	"math"
)

// Encoder writes fields sequentially into a fixed-size output buffer and never writes past its end. The first failure
// is sticky.
type Encoder struct {
	err    error
	output []byte
	offset int
}

// NewEncoder returns an Encoder writing into output.
func NewEncoder(output []byte) *Encoder {
	return &Encoder{output: output}
}

func (e *Encoder) next(length int) []byte {
	if e.err != nil {
		return nil
	}

	if len(e.output)-e.offset < length {
		e.err = ErrShortBuffer
		return nil
	}

	out := e.output[e.offset : e.offset+length]
	e.offset += length

	return out
}

// Uint8 writes a single byte.
func (e *Encoder) Uint8(v uint8) {
	if b := e.next(Uint8Length); b != nil {
		b[0] = v
	}
}

// Uint32 writes a little-endian uint32.
func (e *Encoder) Uint32(v uint32) {
	if b := e.next(Uint32Length); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// Uint64 writes a little-endian uint64.
func (e *Encoder) Uint64(v uint64) {
	if b := e.next(Uint64Length); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// Uint32BE writes a big-endian uint32.
func (e *Encoder) Uint32BE(v uint32) {
	if b := e.next(Uint32Length); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

// Uint64BE writes a big-endian uint64.
func (e *Encoder) Uint64BE(v uint64) {
	if b := e.next(Uint64Length); b != nil {
		binary.BigEndian.PutUint64(b, v)
	}
}

// Bytes writes in as is.
func (e *Encoder) Bytes(in []byte) {
	if b := e.next(len(in)); b != nil {
		copy(b, in)
	}
}

// Vector writes in prefixed with its 32-bit length.
func (e *Encoder) Vector(in []byte) {
	if uint64(len(in)) > math.MaxUint32 {
		if e.err == nil {
			e.err = ErrVectorLength
		}

		return
	}

	e.Uint32(uint32(len(in)))
	e.Bytes(in)
}

// Offset returns the number of bytes written so far.
func (e *Encoder) Offset() int {
	return e.offset
}

// Err returns the first error encountered, if any.
func (e *Encoder) Err() error {
	return e.err
}
