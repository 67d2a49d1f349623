// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper

// CreatePasswordHandle exposes handle creation at an arbitrary version.
func (g *GateKeeper) CreatePasswordHandle(salt uint64, sid SecureID, flags uint64, version uint8, password []byte) (
	*PasswordHandle, error,
) {
	return g.createPasswordHandle(salt, sid, flags, version, password)
}

// LiveLocks returns the number of per-user locks currently held or awaited.
func (g *GateKeeper) LiveLocks() int {
	return g.locks.size()
}

// ValidateThrottlePolicy exposes policy validation.
func ValidateThrottlePolicy(p *ThrottlePolicy) error {
	return p.validate()
}
