// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper

import (
	"errors"

	"github.com/bytemare/gatekeeper/internal"
	"github.com/bytemare/gatekeeper/internal/encoding"
)

const (
	// HandleVersion is the version of the password handles produced by Enroll.
	HandleVersion = 2

	// HandleFlagThrottleSecure marks a handle whose failure record lives in secure storage.
	HandleFlagThrottleSecure = uint64(1)

	// PasswordHandleLength is the length of a serialized password handle.
	PasswordHandleLength = encoding.Uint8Length + 3*encoding.Uint64Length + internal.SignatureLength +
		encoding.Uint8Length

	// handleVersionThrottle is the first handle version whose verification is throttled.
	handleVersionThrottle = 2

	// handleVersionMin is the oldest handle version still accepted.
	handleVersionMin = 1

	handleMetadataLength = encoding.Uint8Length + 2*encoding.Uint64Length
)

var (
	errHandleLength  = errors.New("invalid password handle length")
	errHandleVersion = errors.New("unsupported password handle version")
	errHandleBoolean = errors.New("hardware_backed is not a boolean")
)

// PasswordHandle is an enrolled credential. It serializes to a packed, little-endian blob:
//
//	u8 version | u64 secure_user_id | u64 flags | u64 salt | [32]signature | u8 hardware_backed
//
// The signature covers version, secure_user_id, flags and the password. hardware_backed is not signed.
type PasswordHandle struct {
	Signature      [internal.SignatureLength]byte
	SecureUserID   SecureID
	Flags          uint64
	Salt           uint64
	Version        uint8
	HardwareBacked bool
}

// Throttled reports whether verifications against the handle are throttled.
func (h *PasswordHandle) Throttled() bool {
	return h.Version >= handleVersionThrottle
}

// ThrottleSecure reports whether the handle's failure record lives in secure storage.
func (h *PasswordHandle) ThrottleSecure() bool {
	return h.Throttled() && h.Flags&HandleFlagThrottleSecure != 0
}

// Serialize returns the packed encoding of the handle.
func (h *PasswordHandle) Serialize() []byte {
	out := make([]byte, PasswordHandleLength)
	e := encoding.NewEncoder(out)
	h.writeMetadata(e)
	e.Uint64(h.Salt)
	e.Bytes(h.Signature[:])

	var hw uint8
	if h.HardwareBacked {
		hw = 1
	}

	e.Uint8(hw)

	return out
}

func (h *PasswordHandle) writeMetadata(e *encoding.Encoder) {
	e.Uint8(h.Version)
	e.Uint64(uint64(h.SecureUserID))
	e.Uint64(h.Flags)
}

// signedMessage returns version || secure_user_id || flags || password.
func (h *PasswordHandle) signedMessage(password []byte) []byte {
	out := make([]byte, handleMetadataLength+len(password))
	e := encoding.NewEncoder(out)
	h.writeMetadata(e)
	e.Bytes(password)

	return out
}

func (h *PasswordHandle) saltBytes() []byte {
	out := make([]byte, encoding.Uint64Length)
	encoding.NewEncoder(out).Uint64(h.Salt)

	return out
}

// DeserializePasswordHandle decodes a packed password handle. It does not check the signature.
func DeserializePasswordHandle(input []byte) (*PasswordHandle, error) {
	if len(input) != PasswordHandleLength {
		return nil, ErrPasswordHandle.Join(errHandleLength)
	}

	h := &PasswordHandle{}
	d := encoding.NewDecoder(input)
	h.Version = d.Uint8()
	h.SecureUserID = SecureID(d.Uint64())
	h.Flags = d.Uint64()
	h.Salt = d.Uint64()
	copy(h.Signature[:], d.Bytes(internal.SignatureLength))
	hw := d.Uint8()

	if err := d.Err(); err != nil {
		return nil, ErrPasswordHandle.Join(err)
	}

	if h.Version < handleVersionMin || h.Version > HandleVersion {
		return nil, ErrPasswordHandle.Join(errHandleVersion)
	}

	switch hw {
	case 0:
	case 1:
		h.HardwareBacked = true
	default:
		return nil, ErrPasswordHandle.Join(errHandleBoolean)
	}

	return h, nil
}
