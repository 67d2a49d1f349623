// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package encoding provides the bounds-checked, byte-oriented encoding primitives used by the wire messages and the
// persisted formats. Integers are little-endian unless a function name says otherwise.
package encoding

import (
	"encoding/binary"
	"errors"
)

const (
	// Uint8Length is the encoded length of a uint8.
	Uint8Length = 1

	// Uint32Length is the encoded length of a uint32.
	Uint32Length = 4

	// Uint64Length is the encoded length of a uint64.
	Uint64Length = 8
)

var (
	// ErrShortBuffer indicates that a read or a write would go past the end of the buffer.
	ErrShortBuffer = errors.New("buffer too short")

	// ErrVectorLength indicates that a vector is too long to be encoded with a 32-bit length prefix.
	ErrVectorLength = errors.New("vector too long for its length prefix")
)

// VectorLength returns the encoded length of a length-prefixed vector holding length bytes.
func VectorLength(length int) uint32 {
	return Uint32Length + uint32(length)
}

// DecodeVector reads a 32-bit length-prefixed vector at the start of in and returns its content and the total amount
// of bytes consumed. The content is a sub-slice of in.
func DecodeVector(in []byte) ([]byte, int, error) {
	if len(in) < Uint32Length {
		return nil, 0, ErrShortBuffer
	}

	dataLen := uint64(binary.LittleEndian.Uint32(in))
	if uint64(len(in)-Uint32Length) < dataLen {
		return nil, 0, ErrShortBuffer
	}

	total := Uint32Length + int(dataLen)

	return in[Uint32Length:total], total, nil
}

// Concatenate takes the variadic array of input and returns a concatenation of it.
func Concatenate(input ...[]byte) []byte {
	length := 0
	for _, b := range input {
		length += len(b)
	}

	buf := make([]byte, 0, length)

	for _, in := range input {
		buf = append(buf, in...)
	}

	return buf
}
