// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package internal

import (
	"bytes"
	"crypto"
	"testing"
)

// TestClearSlice_Basic confirms byte slices are zeroed and cleared, ensuring passwords are not left in memory.
func TestClearSlice_Basic(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i + 1)
	}

	alias := b

	ClearSlice(&b)
	if b != nil {
		t.Fatal("expected slice pointer to be nil after ClearSlice")
	}

	if !bytes.Equal(alias, make([]byte, 32)) {
		t.Fatal("expected backing array to be zeroed")
	}
}

func TestMac(t *testing.T) {
	m := NewMac(crypto.SHA256)
	if m.Size() != SignatureLength {
		t.Fatalf("unexpected MAC size %d", m.Size())
	}

	a := m.MAC([]byte("key-a"), []byte("message"))
	b := m.MAC([]byte("key-b"), []byte("message"))

	if bytes.Equal(a, b) {
		t.Fatal("different keys yielded the same MAC")
	}

	if !bytes.Equal(a, m.MAC([]byte("key-a"), []byte("message"))) {
		t.Fatal("MAC is not deterministic")
	}
}

func TestKDF(t *testing.T) {
	k := NewKDF(crypto.SHA256)
	prk := k.Extract(nil, []byte("master"))

	if len(prk) != k.Size() {
		t.Fatalf("unexpected PRK length %d", len(prk))
	}

	a := k.Expand(prk, []byte("a"), 32)
	b := k.Expand(prk, []byte("b"), 32)

	if len(a) != 32 || bytes.Equal(a, b) {
		t.Fatal("expansion is not domain separated")
	}
}
