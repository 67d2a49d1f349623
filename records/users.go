// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package records

// users indexes record keys by the user id that wrote them. It is guarded by the store's mutex.
type users struct {
	keys map[uint32]map[recordKey]struct{}
}

func newUsers() *users {
	return &users{keys: make(map[uint32]map[recordKey]struct{})}
}

func (u *users) add(uid uint32, key recordKey) {
	set, ok := u.keys[uid]
	if !ok {
		set = make(map[recordKey]struct{})
		u.keys[uid] = set
	}

	set[key] = struct{}{}
}

// remove drops uid from the index and returns the keys it wrote.
func (u *users) remove(uid uint32) []recordKey {
	set := u.keys[uid]
	delete(u.keys, uid)

	out := make([]recordKey, 0, len(set))
	for key := range set {
		out = append(out, key)
	}

	return out
}
