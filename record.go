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
	"math"

	"github.com/bytemare/gatekeeper/internal/encoding"
)

// FailureRecordLength is the length of a serialized failure record.
const FailureRecordLength = 2*encoding.Uint64Length + encoding.Uint32Length

var errRecordLength = errors.New("invalid failure record length")

// FailureRecord counts the failed verifications of a secure user id. It serializes to a packed, little-endian blob:
//
//	u64 secure_user_id | u64 last_checked_timestamp | u32 failure_counter
type FailureRecord struct {
	SecureUserID SecureID

	// LastCheckedTimestamp is the time of the last counted attempt, in milliseconds since boot.
	LastCheckedTimestamp uint64
	FailureCounter       uint32
}

// Serialize returns the packed encoding of the record.
func (r *FailureRecord) Serialize() []byte {
	out := make([]byte, FailureRecordLength)
	e := encoding.NewEncoder(out)
	e.Uint64(uint64(r.SecureUserID))
	e.Uint64(r.LastCheckedTimestamp)
	e.Uint32(r.FailureCounter)

	return out
}

// DeserializeFailureRecord decodes a packed failure record.
func DeserializeFailureRecord(input []byte) (*FailureRecord, error) {
	if len(input) != FailureRecordLength {
		return nil, ErrFailureRecord.Join(errRecordLength)
	}

	d := encoding.NewDecoder(input)
	r := &FailureRecord{
		SecureUserID:         SecureID(d.Uint64()),
		LastCheckedTimestamp: d.Uint64(),
		FailureCounter:       d.Uint32(),
	}

	if err := d.Err(); err != nil {
		return nil, ErrFailureRecord.Join(err)
	}

	return r, nil
}

// increment counts a failed attempt at timestamp.
func (r *FailureRecord) increment(sid SecureID, timestamp uint64) {
	r.SecureUserID = sid
	r.LastCheckedTimestamp = timestamp

	if r.FailureCounter < math.MaxUint32 {
		r.FailureCounter++
	}
}
