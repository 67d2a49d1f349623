// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package records provides an in-memory gatekeeper.FailureRecordStore.
package records

import (
	"sync"

	"github.com/bytemare/gatekeeper"
)

type recordKey struct {
	sid    gatekeeper.SecureID
	secure bool
}

type entry struct {
	record gatekeeper.FailureRecord
	uid    uint32
}

// Store keeps failure records in memory. Records are lost when the process exits, which resets throttling. It is
// safe for concurrent use.
type Store struct {
	records map[recordKey]*entry
	users   *users
	mu      sync.RWMutex
	secure  bool
}

// New returns an empty store. If secure is false, operations on secure storage return
// gatekeeper.ErrSecureStorageUnavailable.
func New(secure bool) *Store {
	return &Store{
		records: make(map[recordKey]*entry),
		users:   newUsers(),
		secure:  secure,
	}
}

func (s *Store) check(secure bool) error {
	if secure && !s.secure {
		return gatekeeper.ErrSecureStorageUnavailable
	}

	return nil
}

// GetFailureRecord returns a copy of the record for sid, or nil if there is none.
func (s *Store) GetFailureRecord(_ uint32, sid gatekeeper.SecureID, secure bool) (*gatekeeper.FailureRecord, error) {
	if err := s.check(secure); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[recordKey{sid: sid, secure: secure}]
	if !ok {
		return nil, nil
	}

	r := e.record

	return &r, nil
}

// WriteFailureRecord stores a copy of record.
func (s *Store) WriteFailureRecord(uid uint32, record *gatekeeper.FailureRecord, secure bool) error {
	if err := s.check(secure); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{sid: record.SecureUserID, secure: secure}
	s.records[key] = &entry{record: *record, uid: uid}
	s.users.add(uid, key)

	return nil
}

// ClearFailureRecord resets the record for sid to a zero counter.
func (s *Store) ClearFailureRecord(uid uint32, sid gatekeeper.SecureID, secure bool) error {
	return s.WriteFailureRecord(uid, &gatekeeper.FailureRecord{SecureUserID: sid}, secure)
}

// DeleteUser drops every record written for uid.
func (s *Store) DeleteUser(uid uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.users.remove(uid) {
		if e, ok := s.records[key]; ok && e.uid == uid {
			delete(s.records, key)
		}
	}

	return nil
}

// DeleteAllUsers drops every record.
func (s *Store) DeleteAllUsers() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.records)
	s.users = newUsers()

	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

var _ gatekeeper.FailureRecordStore = (*Store)(nil)
