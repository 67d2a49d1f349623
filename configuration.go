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
	"log/slog"
)

var (
	errNilDevice = errors.New("nil device")
	errNilStore  = errors.New("nil failure record store")
)

// Configuration holds the engine parameters.
type Configuration struct {
	// Logger receives internal failures. Password material is never logged. Defaults to slog.Default().
	Logger *slog.Logger

	// Throttle is the retry timeout policy.
	Throttle ThrottlePolicy

	// AuthenticatorID is bound into every auth token.
	AuthenticatorID uint64
}

// DefaultConfiguration returns a default configuration.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Logger:          nil,
		Throttle:        DefaultThrottlePolicy(),
		AuthenticatorID: 0,
	}
}

// GateKeeper returns an engine using device for cryptographic primitives and store for failure records.
func (c *Configuration) GateKeeper(device Device, store FailureRecordStore) (*GateKeeper, error) {
	if device == nil {
		return nil, ErrConfiguration.Join(errNilDevice)
	}

	if store == nil {
		return nil, ErrConfiguration.Join(errNilStore)
	}

	if err := c.Throttle.validate(); err != nil {
		return nil, ErrConfiguration.Join(err)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GateKeeper{
		device:          device,
		store:           store,
		logger:          logger,
		locks:           newUserLocks(),
		throttle:        c.Throttle,
		authenticatorID: c.AuthenticatorID,
	}, nil
}
