// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package gatekeeper implements the GateKeeper password enrollment and verification protocol.
//
// Enroll turns a password into a password handle: an opaque, versioned blob bound to a stable secure user id and
// signed with a password key. Verify checks a candidate password against a handle and, on success, mints an auth
// token signed with a distinct auth token key. Failed verifications are counted in per-user failure records and
// throttled: while a retry timeout is pending, requests are rejected with message.ErrorRetry without comparing the
// password.
//
// The engine does not implement cryptographic primitives or persistent storage. It consumes them through the Device
// and FailureRecordStore interfaces. The soft package provides a software Device, the records and sqlite packages
// provide failure record stores.
package gatekeeper
