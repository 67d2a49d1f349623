// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper

// SecureID is the stable identity bound to a password handle. It persists across password changes and scopes
// failure records and auth tokens. It is distinct from the caller-scoped user id carried in messages.
type SecureID uint64

// Device provides the cryptographic primitives and the clock the engine relies on. Implementations must be safe for
// concurrent use.
type Device interface {
	// AuthTokenKey returns the key used to sign auth tokens. It must differ from PasswordKey.
	AuthTokenKey() ([]byte, error)

	// PasswordKey returns the key used to sign password handles.
	PasswordKey() ([]byte, error)

	// ComputePasswordSignature returns the 32-byte signature of message, which embeds the password, under key and
	// salt. Implementations are expected to harden the password, e.g. with a key stretching function.
	ComputePasswordSignature(key, message, salt []byte) ([]byte, error)

	// ComputeSignature returns the 32-byte MAC of message under key.
	ComputeSignature(key, message []byte) ([]byte, error)

	// Random fills b with random bytes.
	Random(b []byte) error

	// MillisecondsSinceBoot returns a monotonic timestamp. It may go backwards across reboots.
	MillisecondsSinceBoot() uint64

	// IsHardwareBacked reports whether the keys are protected by hardware.
	IsHardwareBacked() bool
}

// FailureRecordStore persists failure records. There is at most one record per secure user id and storage class.
// Implementations must be safe for concurrent use. The engine serializes the read-modify-write of a given record.
//
// The secure flag selects the storage class. A store without secure storage returns ErrSecureStorageUnavailable for
// secure operations.
type FailureRecordStore interface {
	// GetFailureRecord returns the record for sid. A missing record yields a nil record and a nil error.
	GetFailureRecord(uid uint32, sid SecureID, secure bool) (*FailureRecord, error)

	// WriteFailureRecord persists record, keyed by its secure user id.
	WriteFailureRecord(uid uint32, record *FailureRecord, secure bool) error

	// ClearFailureRecord resets the record for sid.
	ClearFailureRecord(uid uint32, sid SecureID, secure bool) error

	// DeleteUser drops all records written for uid.
	DeleteUser(uid uint32) error

	// DeleteAllUsers drops all records.
	DeleteAllUsers() error
}
