// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package encoding

import "encoding/binary"

// Decoder reads fields sequentially from an input buffer. Every read is checked against the end of the buffer. The
// first failure is sticky: subsequent reads return zero values and Err reports the failure.
type Decoder struct {
	err    error
	input  []byte
	offset int
}

// NewDecoder returns a Decoder reading from input.
func NewDecoder(input []byte) *Decoder {
	return &Decoder{input: input}
}

func (d *Decoder) next(length int) []byte {
	if d.err != nil {
		return nil
	}

	if length < 0 || len(d.input)-d.offset < length {
		d.err = ErrShortBuffer
		return nil
	}

	out := d.input[d.offset : d.offset+length]
	d.offset += length

	return out
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() uint8 {
	b := d.next(Uint8Length)
	if b == nil {
		return 0
	}

	return b[0]
}

// Uint32 reads a little-endian uint32.
func (d *Decoder) Uint32() uint32 {
	b := d.next(Uint32Length)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

// Uint64 reads a little-endian uint64.
func (d *Decoder) Uint64() uint64 {
	b := d.next(Uint64Length)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

// Uint32BE reads a big-endian uint32.
func (d *Decoder) Uint32BE() uint32 {
	b := d.next(Uint32Length)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint32(b)
}

// Uint64BE reads a big-endian uint64.
func (d *Decoder) Uint64BE() uint64 {
	b := d.next(Uint64Length)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint64(b)
}

// Bytes returns a copy of the next length bytes.
func (d *Decoder) Bytes(length int) []byte {
	b := d.next(length)
	if b == nil {
		return nil
	}

	out := make([]byte, length)
	copy(out, b)

	return out
}

// Vector reads a 32-bit length-prefixed vector and returns a copy of its content. A zero-length vector yields nil.
func (d *Decoder) Vector() []byte {
	if d.err != nil {
		return nil
	}

	content, total, err := DecodeVector(d.input[d.offset:])
	if err != nil {
		d.err = err
		return nil
	}

	d.offset += total

	if len(content) == 0 {
		return nil
	}

	out := make([]byte, len(content))
	copy(out, content)

	return out
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.input) - d.offset
}

// Offset returns the number of bytes read so far.
func (d *Decoder) Offset() int {
	return d.offset
}

// Err returns the first error encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}
