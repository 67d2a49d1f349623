// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package message

import "errors"

// ErrInvalid wraps every deserialization failure. It corresponds to ErrorInvalid on the wire.
var ErrInvalid = errors.New("invalid message")

var (
	errErrorCode       = errors.New("unknown error code")
	errTrailingBytes   = errors.New("trailing bytes after payload")
	errReenrollBoolean = errors.New("request_reenroll is not a boolean")
)

// Error is the protocol-level status carried in every message header.
type Error uint32

const (
	// ErrorNone indicates success.
	ErrorNone Error = iota

	// ErrorInvalid indicates bad credentials, a malformed message, or a signature mismatch.
	ErrorInvalid

	// ErrorRetry indicates that the request was throttled. The message carries the retry timeout.
	ErrorRetry

	// ErrorUnknown indicates an internal failure, e.g. of the failure record storage.
	ErrorUnknown
)

// Valid returns whether e is a known error code.
func (e Error) Valid() bool {
	return e <= ErrorUnknown
}

// String returns the string representation of the Error.
func (e Error) String() string {
	switch e {
	case ErrorNone:
		return "none"
	case ErrorInvalid:
		return "invalid"
	case ErrorRetry:
		return "retry"
	case ErrorUnknown:
		return "unknown"
	default:
		return "unrecognized"
	}
}
