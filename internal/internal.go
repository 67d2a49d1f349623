// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package internal provides structures and functions to operate GateKeeper that are not part of the public API.
package internal

import (
	cryptorand "crypto/rand"
	"fmt"
	"runtime"
)

// SignatureLength is the length of password handle signatures and auth token MACs.
const SignatureLength = 32

// RandomBytes returns random bytes of length len (wrapper for crypto/rand).
func RandomBytes(length int) []byte {
	r := make([]byte, length)
	if _, err := cryptorand.Read(r); err != nil {
		// We can as well not panic and try again in a loop
		panic(fmt.Errorf("unexpected error in generating random bytes : %w", err))
	}

	return r
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// ClearSlice wipes the slice and sets it to nil.
func ClearSlice(b *[]byte) {
	if b == nil {
		return
	}

	Wipe(*b)
	*b = nil
}
