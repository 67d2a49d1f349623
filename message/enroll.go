// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package message

import "github.com/bytemare/gatekeeper/internal/encoding"

// EnrollRequest asks to enroll ProvidedPassword. When changing an existing password, PasswordHandle holds the
// current handle and EnrolledPassword the current password.
type EnrollRequest struct {
	ProvidedPassword SizedBuffer
	EnrolledPassword SizedBuffer
	PasswordHandle   SizedBuffer
	Header
}

// NewEnrollRequest returns an EnrollRequest taking ownership of the given buffers. passwordHandle and
// enrolledPassword may be nil for a first enrollment.
func NewEnrollRequest(userID uint32, passwordHandle, providedPassword, enrolledPassword []byte) *EnrollRequest {
	return &EnrollRequest{
		Header:           Header{UserID: userID},
		ProvidedPassword: NewSizedBuffer(providedPassword),
		EnrolledPassword: NewSizedBuffer(enrolledPassword),
		PasswordHandle:   NewSizedBuffer(passwordHandle),
	}
}

// ClearPasswords wipes the password material held by the request.
func (r *EnrollRequest) ClearPasswords() {
	r.ProvidedPassword.Clear()
	r.EnrolledPassword.Clear()
}

// SerializedSize returns the exact length of the serialized message.
func (r *EnrollRequest) SerializedSize() uint32 {
	return serializedSize(&r.Header, r)
}

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *EnrollRequest) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, r)
}

// Serialize returns the serialized message.
func (r *EnrollRequest) Serialize() []byte {
	return serialize(&r.Header, r)
}

// Deserialize decodes input into the message.
func (r *EnrollRequest) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, r)
}

func (r *EnrollRequest) nonErrorSerializedSize() uint32 {
	return r.ProvidedPassword.serializedSize() +
		r.EnrolledPassword.serializedSize() +
		r.PasswordHandle.serializedSize()
}

func (r *EnrollRequest) nonErrorSerialize(e *encoding.Encoder) {
	e.Vector(r.ProvidedPassword.Bytes())
	e.Vector(r.EnrolledPassword.Bytes())
	e.Vector(r.PasswordHandle.Bytes())
}

func (r *EnrollRequest) nonErrorDeserialize(d *encoding.Decoder) error {
	r.ProvidedPassword = NewSizedBuffer(d.Vector())
	r.EnrolledPassword = NewSizedBuffer(d.Vector())
	r.PasswordHandle = NewSizedBuffer(d.Vector())

	return nil
}

func (r *EnrollRequest) reset() {
	r.ClearPasswords()
	r.PasswordHandle = SizedBuffer{}
}

// EnrollResponse carries the handle of the newly enrolled password.
type EnrollResponse struct {
	EnrolledPasswordHandle SizedBuffer
	Header
}

// NewEnrollResponse returns an EnrollResponse taking ownership of handle.
func NewEnrollResponse(userID uint32, handle []byte) *EnrollResponse {
	return &EnrollResponse{
		Header:                 Header{UserID: userID},
		EnrolledPasswordHandle: NewSizedBuffer(handle),
	}
}

// SetEnrolledPasswordHandle moves handle into the response.
func (r *EnrollResponse) SetEnrolledPasswordHandle(handle SizedBuffer) {
	r.EnrolledPasswordHandle = handle
}

// SerializedSize returns the exact length of the serialized message.
func (r *EnrollResponse) SerializedSize() uint32 {
	return serializedSize(&r.Header, r)
}

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *EnrollResponse) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, r)
}

// Serialize returns the serialized message.
func (r *EnrollResponse) Serialize() []byte {
	return serialize(&r.Header, r)
}

// Deserialize decodes input into the message.
func (r *EnrollResponse) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, r)
}

func (r *EnrollResponse) nonErrorSerializedSize() uint32 {
	return r.EnrolledPasswordHandle.serializedSize()
}

func (r *EnrollResponse) nonErrorSerialize(e *encoding.Encoder) {
	e.Vector(r.EnrolledPasswordHandle.Bytes())
}

func (r *EnrollResponse) nonErrorDeserialize(d *encoding.Decoder) error {
	r.EnrolledPasswordHandle = NewSizedBuffer(d.Vector())
	return nil
}

func (r *EnrollResponse) reset() {
	r.EnrolledPasswordHandle = SizedBuffer{}
}
