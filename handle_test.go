// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bytemare/gatekeeper"
	"github.com/bytemare/gatekeeper/message"
)

func TestPasswordHandle_Layout(t *testing.T) {
	h := &gatekeeper.PasswordHandle{
		Version:        gatekeeper.HandleVersion,
		SecureUserID:   0x0102030405060708,
		Flags:          gatekeeper.HandleFlagThrottleSecure,
		Salt:           0x1112131415161718,
		HardwareBacked: true,
	}
	h.Signature[0] = 0xaa
	h.Signature[31] = 0xbb

	b := h.Serialize()
	if len(b) != gatekeeper.PasswordHandleLength || gatekeeper.PasswordHandleLength != 58 {
		t.Fatalf("unexpected length %d", len(b))
	}

	if b[0] != 2 || binary.LittleEndian.Uint64(b[1:9]) != 0x0102030405060708 ||
		binary.LittleEndian.Uint64(b[9:17]) != 1 || binary.LittleEndian.Uint64(b[17:25]) != 0x1112131415161718 ||
		b[25] != 0xaa || b[56] != 0xbb || b[57] != 1 {
		t.Fatalf("unexpected layout %x", b)
	}

	out, err := gatekeeper.DeserializePasswordHandle(b)
	if err != nil {
		t.Fatal(err)
	}

	if *out != *h {
		t.Fatalf("got %+v, want %+v", out, h)
	}
}

func TestPasswordHandle_Invalid(t *testing.T) {
	valid := (&gatekeeper.PasswordHandle{Version: 2}).Serialize()

	tests := map[string][]byte{
		"empty":           nil,
		"short":           valid[:57],
		"version 0":       append([]byte{0}, valid[1:]...),
		"version 3":       append([]byte{3}, valid[1:]...),
		"hardware_backed": append(bytes.Clone(valid[:57]), 2),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := gatekeeper.DeserializePasswordHandle(input); !errors.Is(err, gatekeeper.ErrPasswordHandle) {
				t.Fatalf("expected password handle error, got %v", err)
			}
		})
	}
}

func TestPasswordHandle_Throttled(t *testing.T) {
	v1 := &gatekeeper.PasswordHandle{Version: 1, Flags: gatekeeper.HandleFlagThrottleSecure}
	v2 := &gatekeeper.PasswordHandle{Version: 2, Flags: gatekeeper.HandleFlagThrottleSecure}

	if v1.Throttled() || v1.ThrottleSecure() {
		t.Fatal("version 1 handles are not throttled")
	}

	if !v2.Throttled() || !v2.ThrottleSecure() {
		t.Fatal("version 2 handles are throttled")
	}
}

func TestVerify_VersionOneHandle(t *testing.T) {
	e := newEngine(t, true)

	h, err := e.CreatePasswordHandle(99, 1234, 0, 1, []byte(testPassword))
	if err != nil {
		t.Fatal(err)
	}

	handle := h.Serialize()

	// Old handles are never throttled.
	for range 10 {
		resp := e.verify(t, handle, 1, wrongPass)
		expectError(t, &resp.Header, message.ErrorInvalid)
	}

	if e.store.Len() != 0 {
		t.Fatal("failure record written for an unthrottled handle")
	}

	resp := e.verify(t, handle, 1, testPassword)
	expectError(t, &resp.Header, message.ErrorNone)

	if !resp.RequestReenroll {
		t.Fatal("old handle version must request re-enrollment")
	}

	// Re-enrolling upgrades the handle and keeps the secure user id.
	enrolled := e.enroll(t, handle, "upgraded", testPassword)
	expectError(t, &enrolled.Header, message.ErrorNone)

	upgraded, _ := gatekeeper.DeserializePasswordHandle(enrolled.EnrolledPasswordHandle.Bytes())
	if upgraded.Version != gatekeeper.HandleVersion || upgraded.SecureUserID != 1234 {
		t.Fatalf("unexpected upgraded handle %+v", upgraded)
	}

	resp = e.verify(t, enrolled.EnrolledPasswordHandle.Bytes(), 1, "upgraded")
	expectError(t, &resp.Header, message.ErrorNone)

	if resp.RequestReenroll {
		t.Fatal("current handle version must not request re-enrollment")
	}
}

// foreignStore returns a record naming another secure user id.
type foreignStore struct {
	gatekeeper.FailureRecordStore
}

func (s foreignStore) GetFailureRecord(_ uint32, sid gatekeeper.SecureID, _ bool) (*gatekeeper.FailureRecord, error) {
	return &gatekeeper.FailureRecord{
		SecureUserID:         sid + 1,
		LastCheckedTimestamp: startTime,
		FailureCounter:       100,
	}, nil
}

func TestVerify_ForeignFailureRecord(t *testing.T) {
	e := newEngine(t, true)
	handle := e.mustEnroll(t, testPassword)

	g, err := gatekeeper.DefaultConfiguration().GateKeeper(e.device, foreignStore{e.store})
	if err != nil {
		t.Fatal(err)
	}

	resp := g.Verify(message.NewVerifyRequest(testUID, 1, bytes.Clone(handle), []byte(testPassword)))
	expectError(t, &resp.Header, message.ErrorNone)
}

func TestLocksReleased(t *testing.T) {
	e := newEngine(t, true)
	handle := e.mustEnroll(t, testPassword)

	e.verify(t, handle, 1, wrongPass)
	e.verify(t, handle, 1, testPassword)
	e.enroll(t, handle, "new", testPassword)
	e.verify(t, []byte("garbage"), 1, testPassword)

	if n := e.LiveLocks(); n != 0 {
		t.Fatalf("expected no live lock, got %d", n)
	}
}

func TestFailureRecord_Serialization(t *testing.T) {
	r := &gatekeeper.FailureRecord{SecureUserID: 7, LastCheckedTimestamp: 8, FailureCounter: 9}
	b := r.Serialize()

	if len(b) != gatekeeper.FailureRecordLength || gatekeeper.FailureRecordLength != 20 {
		t.Fatalf("unexpected length %d", len(b))
	}

	if binary.LittleEndian.Uint64(b) != 7 || binary.LittleEndian.Uint64(b[8:]) != 8 ||
		binary.LittleEndian.Uint32(b[16:]) != 9 {
		t.Fatalf("unexpected layout %x", b)
	}

	out, err := gatekeeper.DeserializeFailureRecord(b)
	if err != nil || *out != *r {
		t.Fatalf("got %+v, %v", out, err)
	}

	if _, err = gatekeeper.DeserializeFailureRecord(b[:19]); !errors.Is(err, gatekeeper.ErrFailureRecord) {
		t.Fatalf("expected failure record error, got %v", err)
	}
}

func TestAuthToken_Layout(t *testing.T) {
	token := &gatekeeper.AuthToken{
		Version:           gatekeeper.AuthTokenVersion,
		Challenge:         1,
		SecureUserID:      2,
		AuthenticatorID:   3,
		AuthenticatorType: gatekeeper.AuthenticatorTypePassword,
		Timestamp:         4,
	}

	b := token.Serialize()
	if len(b) != gatekeeper.AuthTokenLength || gatekeeper.AuthTokenLength != 69 {
		t.Fatalf("unexpected length %d", len(b))
	}

	if b[0] != 0 || binary.LittleEndian.Uint64(b[1:]) != 1 || binary.LittleEndian.Uint64(b[9:]) != 2 ||
		binary.LittleEndian.Uint64(b[17:]) != 3 || binary.BigEndian.Uint32(b[25:]) != 1 ||
		binary.BigEndian.Uint64(b[29:]) != 4 {
		t.Fatalf("unexpected layout %x", b)
	}

	if !bytes.Equal(token.SignedBytes(), b[:37]) {
		t.Fatal("signed bytes must be the token prefix")
	}

	out, err := gatekeeper.ParseAuthToken(b)
	if err != nil || *out != *token {
		t.Fatalf("got %+v, %v", out, err)
	}

	if _, err = gatekeeper.ParseAuthToken(b[:68]); !errors.Is(err, gatekeeper.ErrAuthToken) {
		t.Fatalf("expected auth token error, got %v", err)
	}
}
