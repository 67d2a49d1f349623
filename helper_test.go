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
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/bytemare/gatekeeper"
	"github.com/bytemare/gatekeeper/message"
	"github.com/bytemare/gatekeeper/records"
	"github.com/bytemare/gatekeeper/soft"
)

const (
	testUID      = uint32(3857)
	testPassword = "hunter2"
	wrongPass    = "wrong"
	startTime    = uint64(1_000_000)
)

var (
	testMasterSecret = bytes.Repeat([]byte{0x5a}, 32)
	errInjected      = errors.New("injected failure")
)

type clock struct {
	now atomic.Uint64
}

func newClock() *clock {
	c := &clock{}
	c.now.Store(startTime)

	return c
}

func (c *clock) Now() uint64 { return c.now.Load() }

func (c *clock) Advance(ms uint64) { c.now.Add(ms) }

func (c *clock) Set(ms uint64) { c.now.Store(ms) }

type testEngine struct {
	*gatekeeper.GateKeeper
	device *soft.Device
	store  *records.Store
	clock  *clock
}

type engineOption func(conf *gatekeeper.Configuration)

func withAuthenticatorID(id uint64) engineOption {
	return func(conf *gatekeeper.Configuration) { conf.AuthenticatorID = id }
}

func newDevice(t *testing.T, c *clock) *soft.Device {
	t.Helper()

	conf := soft.DefaultConfiguration()
	conf.KSF = 0
	conf.Clock = c.Now

	d, err := conf.Device(testMasterSecret)
	if err != nil {
		t.Fatal(err)
	}

	return d
}

func newEngine(t *testing.T, secure bool, opts ...engineOption) *testEngine {
	t.Helper()

	c := newClock()
	device := newDevice(t, c)
	store := records.New(secure)

	conf := gatekeeper.DefaultConfiguration()
	conf.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, opt := range opts {
		opt(conf)
	}

	g, err := conf.GateKeeper(device, store)
	if err != nil {
		t.Fatal(err)
	}

	return &testEngine{GateKeeper: g, device: device, store: store, clock: c}
}

func (e *testEngine) enroll(t *testing.T, handle []byte, provided, enrolled string) *message.EnrollResponse {
	t.Helper()

	return e.Enroll(message.NewEnrollRequest(testUID, bytes.Clone(handle), []byte(provided), []byte(enrolled)))
}

func (e *testEngine) mustEnroll(t *testing.T, password string) []byte {
	t.Helper()

	resp := e.enroll(t, nil, password, "")
	if resp.Error != message.ErrorNone {
		t.Fatalf("enrollment failed: %s", resp.Error)
	}

	if resp.EnrolledPasswordHandle.Len() != gatekeeper.PasswordHandleLength {
		t.Fatalf("unexpected handle length %d", resp.EnrolledPasswordHandle.Len())
	}

	return resp.EnrolledPasswordHandle.Bytes()
}

func (e *testEngine) verify(t *testing.T, handle []byte, challenge uint64, password string) *message.VerifyResponse {
	t.Helper()

	return e.Verify(message.NewVerifyRequest(testUID, challenge, bytes.Clone(handle), []byte(password)))
}

func (e *testEngine) failureCounter(t *testing.T, handle []byte) uint32 {
	t.Helper()

	h, err := gatekeeper.DeserializePasswordHandle(handle)
	if err != nil {
		t.Fatal(err)
	}

	r, err := e.store.GetFailureRecord(testUID, h.SecureUserID, h.ThrottleSecure())
	if err != nil {
		t.Fatal(err)
	}

	if r == nil {
		return 0
	}

	return r.FailureCounter
}

func expectError(t *testing.T, h *message.Header, expected message.Error) {
	t.Helper()

	if h.Error != expected {
		t.Fatalf("expected error %s, got %s", expected, h.Error)
	}
}

func expectRetry(t *testing.T, h *message.Header, timeout uint32) {
	t.Helper()

	expectError(t, h, message.ErrorRetry)

	if h.RetryTimeout != timeout {
		t.Fatalf("expected retry timeout %d, got %d", timeout, h.RetryTimeout)
	}
}

// faultyDevice wraps a device and fails the selected primitives.
type faultyDevice struct {
	gatekeeper.Device
	failRandom    bool
	failPassword  bool
	failAuthToken bool
}

func (d *faultyDevice) Random(b []byte) error {
	if d.failRandom {
		return errInjected
	}

	return d.Device.Random(b)
}

func (d *faultyDevice) PasswordKey() ([]byte, error) {
	if d.failPassword {
		return nil, errInjected
	}

	return d.Device.PasswordKey()
}

func (d *faultyDevice) AuthTokenKey() ([]byte, error) {
	if d.failAuthToken {
		return nil, errInjected
	}

	return d.Device.AuthTokenKey()
}

// faultyStore wraps a store and fails writes when asked to.
type faultyStore struct {
	gatekeeper.FailureRecordStore
	failWrite atomic.Bool
	failRead  atomic.Bool
}

func (s *faultyStore) GetFailureRecord(uid uint32, sid gatekeeper.SecureID, secure bool) (*gatekeeper.FailureRecord, error) {
	if s.failRead.Load() {
		return nil, errInjected
	}

	return s.FailureRecordStore.GetFailureRecord(uid, sid, secure)
}

func (s *faultyStore) WriteFailureRecord(uid uint32, record *gatekeeper.FailureRecord, secure bool) error {
	if s.failWrite.Load() {
		return errInjected
	}

	return s.FailureRecordStore.WriteFailureRecord(uid, record, secure)
}

func (s *faultyStore) ClearFailureRecord(uid uint32, sid gatekeeper.SecureID, secure bool) error {
	if s.failWrite.Load() {
		return errInjected
	}

	return s.FailureRecordStore.ClearFailureRecord(uid, sid, secure)
}

func (s *faultyStore) DeleteUser(uid uint32) error {
	if s.failWrite.Load() {
		return errInjected
	}

	return s.FailureRecordStore.DeleteUser(uid)
}

func (s *faultyStore) DeleteAllUsers() error {
	if s.failWrite.Load() {
		return errInjected
	}

	return s.FailureRecordStore.DeleteAllUsers()
}

func newFaultyEngine(t *testing.T, device *faultyDevice, store *faultyStore) *gatekeeper.GateKeeper {
	t.Helper()

	c := newClock()

	if device.Device == nil {
		device.Device = newDevice(t, c)
	}

	if store.FailureRecordStore == nil {
		store.FailureRecordStore = records.New(true)
	}

	conf := gatekeeper.DefaultConfiguration()
	conf.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	g, err := conf.GateKeeper(device, store)
	if err != nil {
		t.Fatal(err)
	}

	return g
}
