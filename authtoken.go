// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper

import (
	"crypto/hmac"
	"errors"

	"github.com/bytemare/gatekeeper/internal"
	"github.com/bytemare/gatekeeper/internal/encoding"
)

const (
	// AuthTokenVersion is the version of the auth tokens minted by Verify.
	AuthTokenVersion = 0

	// AuthenticatorTypePassword identifies password authentication in auth tokens.
	AuthenticatorTypePassword = uint32(1)

	// AuthTokenLength is the length of a serialized auth token.
	AuthTokenLength = authTokenSignedLength + internal.SignatureLength

	authTokenSignedLength = encoding.Uint8Length + 3*encoding.Uint64Length + encoding.Uint32Length +
		encoding.Uint64Length
)

var (
	errTokenLength    = errors.New("invalid auth token length")
	errTokenVersion   = errors.New("unsupported auth token version")
	errTokenSignature = errors.New("auth token signature mismatch")
)

// AuthToken is the signed proof of a successful verification. It serializes to:
//
//	u8 version | u64 challenge | u64 secure_user_id | u64 authenticator_id | u32 authenticator_type (big-endian)
//	| u64 timestamp (big-endian) | [32]hmac
//
// The first three integers are little-endian. The HMAC covers every preceding byte and is computed with the auth
// token key, never with the password key.
type AuthToken struct {
	HMAC              [internal.SignatureLength]byte
	Challenge         uint64
	SecureUserID      SecureID
	AuthenticatorID   uint64
	Timestamp         uint64
	AuthenticatorType uint32
	Version           uint8
}

// Serialize returns the packed encoding of the token.
func (t *AuthToken) Serialize() []byte {
	out := make([]byte, AuthTokenLength)
	e := encoding.NewEncoder(out)
	t.writeSigned(e)
	e.Bytes(t.HMAC[:])

	return out
}

// SignedBytes returns the part of the serialized token covered by the HMAC.
func (t *AuthToken) SignedBytes() []byte {
	out := make([]byte, authTokenSignedLength)
	t.writeSigned(encoding.NewEncoder(out))

	return out
}

func (t *AuthToken) writeSigned(e *encoding.Encoder) {
	e.Uint8(t.Version)
	e.Uint64(t.Challenge)
	e.Uint64(uint64(t.SecureUserID))
	e.Uint64(t.AuthenticatorID)
	e.Uint32BE(t.AuthenticatorType)
	e.Uint64BE(t.Timestamp)
}

// ParseAuthToken decodes a serialized auth token. It does not check the HMAC.
func ParseAuthToken(input []byte) (*AuthToken, error) {
	if len(input) != AuthTokenLength {
		return nil, ErrAuthToken.Join(errTokenLength)
	}

	t := &AuthToken{}
	d := encoding.NewDecoder(input)
	t.Version = d.Uint8()
	t.Challenge = d.Uint64()
	t.SecureUserID = SecureID(d.Uint64())
	t.AuthenticatorID = d.Uint64()
	t.AuthenticatorType = d.Uint32BE()
	t.Timestamp = d.Uint64BE()
	copy(t.HMAC[:], d.Bytes(internal.SignatureLength))

	if err := d.Err(); err != nil {
		return nil, ErrAuthToken.Join(err)
	}

	if t.Version != AuthTokenVersion {
		return nil, ErrAuthToken.Join(errTokenVersion)
	}

	return t, nil
}

// VerifyAuthToken parses token and checks its HMAC against the auth token key of device.
func VerifyAuthToken(device Device, token []byte) (*AuthToken, error) {
	t, err := ParseAuthToken(token)
	if err != nil {
		return nil, err
	}

	key, err := device.AuthTokenKey()
	if err != nil {
		return nil, ErrDevice.Join(err)
	}

	expected, err := device.ComputeSignature(key, t.SignedBytes())
	if err != nil {
		return nil, ErrDevice.Join(err)
	}

	if !hmac.Equal(expected, t.HMAC[:]) {
		return nil, ErrAuthToken.Join(errTokenSignature)
	}

	return t, nil
}
