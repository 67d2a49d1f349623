// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package message provides the GateKeeper wire messages and their binary serialization.
//
// Every message starts with a header:
//
//	u32 error | u32 user_id | [u32 retry_timeout, only if error is ErrorRetry]
//
// The message payload follows only if error is ErrorNone. Integers are little-endian, buffers are prefixed by their
// 32-bit length.
package message

import (
	"fmt"

	"github.com/bytemare/gatekeeper/internal/encoding"
)

// Message is implemented by all requests and responses.
type Message interface {
	// SerializedSize returns the exact length of the serialized message.
	SerializedSize() uint32

	// SerializeTo writes the message into buf and returns the number of bytes written. It fails without writing past
	// the end of buf if buf is shorter than SerializedSize.
	SerializeTo(buf []byte) (uint32, error)

	// Serialize returns the serialized message.
	Serialize() []byte

	// Deserialize decodes input into the message. Any failure wraps ErrInvalid and leaves the message zeroed.
	Deserialize(input []byte) error
}

// Header holds the fields common to all messages.
type Header struct {
	// Error is the status of the message. Payload fields are only serialized for ErrorNone.
	Error Error

	// UserID is the caller-scoped user identifier. It is not a secure user id.
	UserID uint32

	// RetryTimeout is the time in milliseconds the caller must wait before retrying. It is only meaningful if
	// Error is ErrorRetry.
	RetryTimeout uint32
}

// SetRetryTimeout marks the message as throttled and sets the timeout in milliseconds.
func (h *Header) SetRetryTimeout(ms uint32) {
	h.Error = ErrorRetry
	h.RetryTimeout = ms
}

// SetError sets the error code of the message.
func (h *Header) SetError(e Error) {
	h.Error = e
	if e != ErrorRetry {
		h.RetryTimeout = 0
	}
}

// SetUserID sets the user id the message is addressed to.
func (h *Header) SetUserID(uid uint32) {
	h.UserID = uid
}

func (h *Header) serializedSize() uint32 {
	size := uint32(2 * encoding.Uint32Length)
	if h.Error == ErrorRetry {
		size += encoding.Uint32Length
	}

	return size
}

func (h *Header) serialize(e *encoding.Encoder) {
	e.Uint32(uint32(h.Error))
	e.Uint32(h.UserID)

	if h.Error == ErrorRetry {
		e.Uint32(h.RetryTimeout)
	}
}

func (h *Header) deserialize(d *encoding.Decoder) error {
	*h = Header{}
	h.Error = Error(d.Uint32())
	h.UserID = d.Uint32()

	if err := d.Err(); err != nil {
		return err
	}

	if !h.Error.Valid() {
		return errErrorCode
	}

	if h.Error == ErrorRetry {
		h.RetryTimeout = d.Uint32()
	}

	return d.Err()
}

// ParseHeader decodes the header at the start of input and ignores whatever follows. It lets a caller address a
// response to a request whose payload does not parse.
func ParseHeader(input []byte) (Header, error) {
	var h Header
	if err := h.deserialize(encoding.NewDecoder(input)); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return h, nil
}

// payload is implemented by the message-specific part of each message.
type payload interface {
	nonErrorSerializedSize() uint32
	nonErrorSerialize(e *encoding.Encoder)
	nonErrorDeserialize(d *encoding.Decoder) error
	reset()
}

func serializedSize(h *Header, p payload) uint32 {
	size := h.serializedSize()
	if h.Error == ErrorNone {
		size += p.nonErrorSerializedSize()
	}

	return size
}

func serializeTo(buf []byte, h *Header, p payload) (uint32, error) {
	if uint32(len(buf)) < serializedSize(h, p) {
		return 0, encoding.ErrShortBuffer
	}

	e := encoding.NewEncoder(buf)
	h.serialize(e)

	if h.Error == ErrorNone {
		p.nonErrorSerialize(e)
	}

	if err := e.Err(); err != nil {
		return 0, err
	}

	return uint32(e.Offset()), nil
}

func serialize(h *Header, p payload) []byte {
	buf := make([]byte, serializedSize(h, p))
	if _, err := serializeTo(buf, h, p); err != nil {
		// The buffer is allocated to the exact serialized size.
		panic(err)
	}

	return buf
}

func deserialize(input []byte, h *Header, p payload) error {
	p.reset()

	d := encoding.NewDecoder(input)
	if err := h.deserialize(d); err != nil {
		*h = Header{}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if h.Error != ErrorNone {
		return nil
	}

	err := p.nonErrorDeserialize(d)
	if err == nil {
		err = d.Err()
	}

	if err == nil && d.Remaining() != 0 {
		err = errTrailingBytes
	}

	if err != nil {
		*h = Header{}
		p.reset()

		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}
