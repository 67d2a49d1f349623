// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package encoding

import (
	"bytes"
	"errors"
	"testing"
)

func encodeVector(in []byte) []byte {
	out := make([]byte, VectorLength(len(in)))
	NewEncoder(out).Vector(in)

	return out
}

func TestVector(t *testing.T) {
	in := []byte("hunter2")
	encoded := encodeVector(in)

	if uint32(len(encoded)) != VectorLength(len(in)) {
		t.Fatalf("unexpected vector length %d", len(encoded))
	}

	decoded, n, err := DecodeVector(encoded)
	if err != nil {
		t.Fatal(err)
	}

	if n != len(encoded) || !bytes.Equal(decoded, in) {
		t.Fatalf("vector mismatch: %x (%d)", decoded, n)
	}
}

func TestDecodeVector_Short(t *testing.T) {
	encoded := encodeVector([]byte("hunter2"))

	for i := range len(encoded) {
		if _, _, err := DecodeVector(encoded[:i]); !errors.Is(err, ErrShortBuffer) {
			t.Fatalf("expected short buffer error at length %d, got %v", i, err)
		}
	}
}

func TestDecodeVector_HugeLength(t *testing.T) {
	if _, _, err := DecodeVector([]byte{0xff, 0xff, 0xff, 0xff, 0x00}); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected short buffer error, got %v", err)
	}
}

func TestEncoderDecoder(t *testing.T) {
	out := make([]byte, 1+4+8+4+8+4+3+2)
	e := NewEncoder(out)
	e.Uint8(7)
	e.Uint32(0xdeadbeef)
	e.Uint64(0x0102030405060708)
	e.Uint32BE(1)
	e.Uint64BE(2)
	e.Vector([]byte("abc"))
	e.Bytes([]byte{9, 9})

	if err := e.Err(); err != nil {
		t.Fatal(err)
	}

	if e.Offset() != len(out) {
		t.Fatalf("expected %d bytes written, got %d", len(out), e.Offset())
	}

	if !bytes.Equal(out[17:21], []byte{0, 0, 0, 1}) {
		t.Fatalf("big-endian encoding mismatch: %x", out[17:21])
	}

	d := NewDecoder(out)
	if d.Uint8() != 7 || d.Uint32() != 0xdeadbeef || d.Uint64() != 0x0102030405060708 ||
		d.Uint32BE() != 1 || d.Uint64BE() != 2 {
		t.Fatal("integer mismatch")
	}

	if v := d.Vector(); !bytes.Equal(v, []byte("abc")) {
		t.Fatalf("vector mismatch: %q", v)
	}

	if b := d.Bytes(2); !bytes.Equal(b, []byte{9, 9}) {
		t.Fatalf("bytes mismatch: %x", b)
	}

	if d.Err() != nil || d.Remaining() != 0 {
		t.Fatalf("unexpected decoder state: %v, %d remaining", d.Err(), d.Remaining())
	}
}

func TestEncoder_Overflow(t *testing.T) {
	out := make([]byte, 3)
	e := NewEncoder(out)
	e.Uint32(1)

	if !errors.Is(e.Err(), ErrShortBuffer) {
		t.Fatalf("expected short buffer error, got %v", e.Err())
	}

	// sticky
	e.Uint8(1)

	if e.Offset() != 0 || out[0] != 0 {
		t.Fatal("encoder wrote after failure")
	}
}

func TestDecoder_Sticky(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	_ = d.Uint32()

	if !errors.Is(d.Err(), ErrShortBuffer) {
		t.Fatalf("expected short buffer error, got %v", d.Err())
	}

	if d.Uint8() != 0 || d.Offset() != 0 {
		t.Fatal("decoder read after failure")
	}
}

func TestDecoder_EmptyVectorIsNil(t *testing.T) {
	d := NewDecoder(encodeVector(nil))
	if v := d.Vector(); v != nil {
		t.Fatalf("expected nil, got %x", v)
	}
}

func TestConcatenate(t *testing.T) {
	if out := Concatenate([]byte("a"), nil, []byte("bc")); string(out) != "abc" {
		t.Fatalf("unexpected concatenation %q", out)
	}
}
