// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package records_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/bytemare/gatekeeper"
	"github.com/bytemare/gatekeeper/records"
)

func TestStore_GetMissing(t *testing.T) {
	s := records.New(true)

	r, err := s.GetFailureRecord(1, 42, true)
	if err != nil || r != nil {
		t.Fatalf("expected no record, got %v, %v", r, err)
	}
}

func TestStore_WriteGetClear(t *testing.T) {
	for _, secure := range []bool{false, true} {
		s := records.New(true)
		in := &gatekeeper.FailureRecord{SecureUserID: 42, LastCheckedTimestamp: 1000, FailureCounter: 3}

		if err := s.WriteFailureRecord(1, in, secure); err != nil {
			t.Fatal(err)
		}

		in.FailureCounter = 99

		out, err := s.GetFailureRecord(1, 42, secure)
		if err != nil {
			t.Fatal(err)
		}

		if out.FailureCounter != 3 || out.LastCheckedTimestamp != 1000 {
			t.Fatalf("unexpected record %+v", out)
		}

		if r, _ := s.GetFailureRecord(1, 42, !secure); r != nil {
			t.Fatal("storage classes must be distinct")
		}

		if err = s.ClearFailureRecord(1, 42, secure); err != nil {
			t.Fatal(err)
		}

		out, _ = s.GetFailureRecord(1, 42, secure)
		if out == nil || out.FailureCounter != 0 || out.SecureUserID != 42 {
			t.Fatalf("unexpected cleared record %+v", out)
		}
	}
}

func TestStore_NoSecureStorage(t *testing.T) {
	s := records.New(false)

	if err := s.ClearFailureRecord(1, 42, true); !errors.Is(err, gatekeeper.ErrSecureStorageUnavailable) {
		t.Fatalf("expected secure storage error, got %v", err)
	}

	if _, err := s.GetFailureRecord(1, 42, true); !errors.Is(err, gatekeeper.ErrSecureStorageUnavailable) {
		t.Fatalf("expected secure storage error, got %v", err)
	}

	if err := s.ClearFailureRecord(1, 42, false); err != nil {
		t.Fatal(err)
	}
}

func TestStore_DeleteUser(t *testing.T) {
	s := records.New(true)
	_ = s.WriteFailureRecord(1, &gatekeeper.FailureRecord{SecureUserID: 10}, true)
	_ = s.WriteFailureRecord(1, &gatekeeper.FailureRecord{SecureUserID: 11}, false)
	_ = s.WriteFailureRecord(2, &gatekeeper.FailureRecord{SecureUserID: 20}, true)

	if err := s.DeleteUser(1); err != nil {
		t.Fatal(err)
	}

	if s.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", s.Len())
	}

	if r, _ := s.GetFailureRecord(2, 20, true); r == nil {
		t.Fatal("other user's record was deleted")
	}

	if err := s.DeleteAllUsers(); err != nil {
		t.Fatal(err)
	}

	if s.Len() != 0 {
		t.Fatalf("expected no record, got %d", s.Len())
	}
}

func TestStore_DeleteUser_Rewritten(t *testing.T) {
	s := records.New(true)
	_ = s.WriteFailureRecord(1, &gatekeeper.FailureRecord{SecureUserID: 10}, true)
	_ = s.WriteFailureRecord(2, &gatekeeper.FailureRecord{SecureUserID: 10}, true)

	_ = s.DeleteUser(1)

	if r, _ := s.GetFailureRecord(2, 10, true); r == nil {
		t.Fatal("record last written by another user was deleted")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := records.New(true)

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func(sid gatekeeper.SecureID) {
			defer wg.Done()

			for j := range uint32(100) {
				_ = s.WriteFailureRecord(uint32(sid), &gatekeeper.FailureRecord{SecureUserID: sid, FailureCounter: j}, true)
				_, _ = s.GetFailureRecord(uint32(sid), sid, true)
			}
		}(gatekeeper.SecureID(i + 1))
	}

	wg.Wait()

	if s.Len() != 16 {
		t.Fatalf("expected 16 records, got %d", s.Len())
	}
}
