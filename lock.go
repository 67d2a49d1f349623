// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper

import "sync"

// userLocks hands out one mutex per secure user id. Entries are reference counted and dropped when unused.
type userLocks struct {
	locks map[SecureID]*userLock
	mu    sync.Mutex
}

type userLock struct {
	refs int
	mu   sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[SecureID]*userLock)}
}

// lock acquires the mutex of sid and returns its release function.
func (l *userLocks) lock(sid SecureID) func() {
	l.mu.Lock()

	entry, ok := l.locks[sid]
	if !ok {
		entry = &userLock{}
		l.locks[sid] = entry
	}

	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--

		if entry.refs == 0 {
			delete(l.locks, sid)
		}

		l.mu.Unlock()
	}
}

// size returns the number of live entries.
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
