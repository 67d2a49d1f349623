// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package message

import (
	"github.com/bytemare/gatekeeper/internal"
	"github.com/bytemare/gatekeeper/internal/encoding"
)

// SizedBuffer owns a byte buffer carried by a message. A SizedBuffer of length 0 is absent: there is no way to build
// a present but empty buffer, so absence survives a serialization round trip.
//
// Ownership is exclusive. Take moves the content to a new SizedBuffer and leaves the source absent.
type SizedBuffer struct {
	data []byte
}

// NewSizedBuffer returns a SizedBuffer taking ownership of b. The caller must not use b afterwards.
// An empty b yields an absent buffer.
func NewSizedBuffer(b []byte) SizedBuffer {
	if len(b) == 0 {
		return SizedBuffer{}
	}

	return SizedBuffer{data: b}
}

// CopySizedBuffer returns a SizedBuffer holding a copy of b.
func CopySizedBuffer(b []byte) SizedBuffer {
	if len(b) == 0 {
		return SizedBuffer{}
	}

	data := make([]byte, len(b))
	copy(data, b)

	return SizedBuffer{data: data}
}

// Bytes returns the content of the buffer, nil if absent. The returned slice is still owned by the buffer.
func (s *SizedBuffer) Bytes() []byte {
	return s.data
}

// Len returns the length of the buffer.
func (s *SizedBuffer) Len() uint32 {
	return uint32(len(s.data))
}

// Present returns whether the buffer holds data.
func (s *SizedBuffer) Present() bool {
	return len(s.data) != 0
}

// Take transfers the content to the returned SizedBuffer and leaves s absent.
func (s *SizedBuffer) Take() SizedBuffer {
	out := SizedBuffer{data: s.data}
	s.data = nil

	return out
}

// Clear wipes the content and leaves s absent.
func (s *SizedBuffer) Clear() {
	internal.ClearSlice(&s.data)
}

func (s *SizedBuffer) serializedSize() uint32 {
	return encoding.VectorLength(len(s.data))
}
