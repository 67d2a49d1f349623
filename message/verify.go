// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package message

import "github.com/bytemare/gatekeeper/internal/encoding"

// VerifyRequest asks to verify ProvidedPassword against PasswordHandle. Challenge is bound into the auth token.
type VerifyRequest struct {
	PasswordHandle   SizedBuffer
	ProvidedPassword SizedBuffer
	Header
	Challenge uint64
}

// NewVerifyRequest returns a VerifyRequest taking ownership of the given buffers.
func NewVerifyRequest(userID uint32, challenge uint64, passwordHandle, providedPassword []byte) *VerifyRequest {
	return &VerifyRequest{
		Header:           Header{UserID: userID},
		Challenge:        challenge,
		PasswordHandle:   NewSizedBuffer(passwordHandle),
		ProvidedPassword: NewSizedBuffer(providedPassword),
	}
}

// ClearPasswords wipes the password material held by the request.
func (r *VerifyRequest) ClearPasswords() {
	r.ProvidedPassword.Clear()
}

// SerializedSize returns the exact length of the serialized message.
func (r *VerifyRequest) SerializedSize() uint32 {
	return serializedSize(&r.Header, r)
}

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *VerifyRequest) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, r)
}

// Serialize returns the serialized message.
func (r *VerifyRequest) Serialize() []byte {
	return serialize(&r.Header, r)
}

// Deserialize decodes input into the message.
func (r *VerifyRequest) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, r)
}

func (r *VerifyRequest) nonErrorSerializedSize() uint32 {
	return encoding.Uint64Length +
		r.PasswordHandle.serializedSize() +
		r.ProvidedPassword.serializedSize()
}

func (r *VerifyRequest) nonErrorSerialize(e *encoding.Encoder) {
	e.Uint64(r.Challenge)
	e.Vector(r.PasswordHandle.Bytes())
	e.Vector(r.ProvidedPassword.Bytes())
}

func (r *VerifyRequest) nonErrorDeserialize(d *encoding.Decoder) error {
	r.Challenge = d.Uint64()
	r.PasswordHandle = NewSizedBuffer(d.Vector())
	r.ProvidedPassword = NewSizedBuffer(d.Vector())

	return nil
}

func (r *VerifyRequest) reset() {
	r.Challenge = 0
	r.PasswordHandle = SizedBuffer{}
	r.ClearPasswords()
}

// VerifyResponse carries the auth token minted on a successful verification. RequestReenroll signals that the
// password handle uses an outdated format and should be re-enrolled.
type VerifyResponse struct {
	AuthToken SizedBuffer
	Header
	RequestReenroll bool
}

// NewVerifyResponse returns a VerifyResponse taking ownership of authToken.
func NewVerifyResponse(userID uint32, authToken []byte) *VerifyResponse {
	return &VerifyResponse{
		Header:    Header{UserID: userID},
		AuthToken: NewSizedBuffer(authToken),
	}
}

// SetVerificationToken moves token into the response.
func (r *VerifyResponse) SetVerificationToken(token SizedBuffer) {
	r.AuthToken = token
}

// SerializedSize returns the exact length of the serialized message.
func (r *VerifyResponse) SerializedSize() uint32 {
	return serializedSize(&r.Header, r)
}

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *VerifyResponse) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, r)
}

// Serialize returns the serialized message.
func (r *VerifyResponse) Serialize() []byte {
	return serialize(&r.Header, r)
}

// Deserialize decodes input into the message.
func (r *VerifyResponse) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, r)
}

func (r *VerifyResponse) nonErrorSerializedSize() uint32 {
	return r.AuthToken.serializedSize() + encoding.Uint8Length
}

func (r *VerifyResponse) nonErrorSerialize(e *encoding.Encoder) {
	e.Vector(r.AuthToken.Bytes())

	var reenroll uint8
	if r.RequestReenroll {
		reenroll = 1
	}

	e.Uint8(reenroll)
}

func (r *VerifyResponse) nonErrorDeserialize(d *encoding.Decoder) error {
	r.AuthToken = NewSizedBuffer(d.Vector())

	switch d.Uint8() {
	case 0:
		r.RequestReenroll = false
	case 1:
		r.RequestReenroll = true
	default:
		return errReenrollBoolean
	}

	return nil
}

func (r *VerifyResponse) reset() {
	r.AuthToken = SizedBuffer{}
	r.RequestReenroll = false
}
