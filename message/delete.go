// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package message

import "github.com/bytemare/gatekeeper/internal/encoding"

// headerOnly is the payload of messages without payload fields.
type headerOnly struct{}

func (headerOnly) nonErrorSerializedSize() uint32 { return 0 }

func (headerOnly) nonErrorSerialize(*encoding.Encoder) {}

func (headerOnly) nonErrorDeserialize(*encoding.Decoder) error { return nil }

func (headerOnly) reset() {}

// DeleteUserRequest asks to drop the failure records of UserID.
type DeleteUserRequest struct {
	Header
}

// NewDeleteUserRequest returns a DeleteUserRequest for userID.
func NewDeleteUserRequest(userID uint32) *DeleteUserRequest {
	return &DeleteUserRequest{Header: Header{UserID: userID}}
}

// SerializedSize returns the exact length of the serialized message.
func (r *DeleteUserRequest) SerializedSize() uint32 { return serializedSize(&r.Header, headerOnly{}) }

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *DeleteUserRequest) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, headerOnly{})
}

// Serialize returns the serialized message.
func (r *DeleteUserRequest) Serialize() []byte { return serialize(&r.Header, headerOnly{}) }

// Deserialize decodes input into the message.
func (r *DeleteUserRequest) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, headerOnly{})
}

// DeleteUserResponse reports the outcome of a DeleteUserRequest.
type DeleteUserResponse struct {
	Header
}

// SerializedSize returns the exact length of the serialized message.
func (r *DeleteUserResponse) SerializedSize() uint32 { return serializedSize(&r.Header, headerOnly{}) }

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *DeleteUserResponse) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, headerOnly{})
}

// Serialize returns the serialized message.
func (r *DeleteUserResponse) Serialize() []byte { return serialize(&r.Header, headerOnly{}) }

// Deserialize decodes input into the message.
func (r *DeleteUserResponse) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, headerOnly{})
}

// DeleteAllUsersRequest asks to drop every failure record.
type DeleteAllUsersRequest struct {
	Header
}

// SerializedSize returns the exact length of the serialized message.
func (r *DeleteAllUsersRequest) SerializedSize() uint32 {
	return serializedSize(&r.Header, headerOnly{})
}

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *DeleteAllUsersRequest) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, headerOnly{})
}

// Serialize returns the serialized message.
func (r *DeleteAllUsersRequest) Serialize() []byte { return serialize(&r.Header, headerOnly{}) }

// Deserialize decodes input into the message.
func (r *DeleteAllUsersRequest) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, headerOnly{})
}

// DeleteAllUsersResponse reports the outcome of a DeleteAllUsersRequest.
type DeleteAllUsersResponse struct {
	Header
}

// SerializedSize returns the exact length of the serialized message.
func (r *DeleteAllUsersResponse) SerializedSize() uint32 {
	return serializedSize(&r.Header, headerOnly{})
}

// SerializeTo writes the message into buf and returns the number of bytes written.
func (r *DeleteAllUsersResponse) SerializeTo(buf []byte) (uint32, error) {
	return serializeTo(buf, &r.Header, headerOnly{})
}

// Serialize returns the serialized message.
func (r *DeleteAllUsersResponse) Serialize() []byte { return serialize(&r.Header, headerOnly{}) }

// Deserialize decodes input into the message.
func (r *DeleteAllUsersResponse) Deserialize(input []byte) error {
	return deserialize(input, &r.Header, headerOnly{})
}
