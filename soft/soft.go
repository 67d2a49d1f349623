// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package soft implements a software gatekeeper.Device. Keys are derived from a master secret held in memory, which
// offers no protection against an attacker able to read the process memory.
package soft

import (
	"crypto"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/bytemare/ksf"

	"github.com/bytemare/gatekeeper"
	"github.com/bytemare/gatekeeper/internal"
	"github.com/bytemare/gatekeeper/internal/encoding"
	iksf "github.com/bytemare/gatekeeper/internal/ksf"
)

var (
	// ErrConfiguration indicates an invalid device configuration.
	ErrConfiguration = errors.New("invalid soft device configuration")

	// ErrMasterSecret indicates a master secret that is too short.
	ErrMasterSecret = errors.New("master secret too short")

	errHashSize = errors.New("hash output must be 32 bytes")
)

var (
	labelAuthTokenKey = []byte("GateKeeper AuthTokenKey")
	labelPasswordKey  = []byte("GateKeeper PasswordKey")
)

// Configuration selects the primitives of a Device.
type Configuration struct {
	// Clock returns milliseconds since boot. Defaults to a monotonic clock started by Device.
	Clock func() uint64

	// KSFParameters overrides the default parameters of KSF.
	KSFParameters []int

	// Hash is used for HMAC and HKDF. Its output must be 32 bytes.
	Hash crypto.Hash

	// KSF hardens passwords before they are signed. The zero value disables hardening.
	KSF ksf.Identifier
}

// DefaultConfiguration returns HMAC-SHA256 signatures over scrypt-hardened passwords.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Clock:         nil,
		KSFParameters: nil,
		Hash:          crypto.SHA256,
		KSF:           ksf.Scrypt,
	}
}

// Device is a software gatekeeper.Device. It is safe for concurrent use.
type Device struct {
	clock        func() uint64
	mac          *internal.Mac
	ksf          *iksf.KSF
	authTokenKey []byte
	passwordKey  []byte
	hardens      bool
}

// Device returns a device whose keys are derived from masterSecret. masterSecret must be at least as long as the
// hash output, and is not retained.
func (c *Configuration) Device(masterSecret []byte) (*Device, error) {
	if !c.Hash.Available() {
		return nil, fmt.Errorf("%w: hash %d unavailable", ErrConfiguration, c.Hash)
	}

	if c.Hash.Size() != internal.SignatureLength {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errHashSize)
	}

	if len(masterSecret) < c.Hash.Size() {
		return nil, ErrMasterSecret
	}

	stretch, err := iksf.NewKSF(c.KSF, c.KSFParameters...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	kdf := internal.NewKDF(c.Hash)
	prk := kdf.Extract(nil, masterSecret)
	defer internal.Wipe(prk)

	clock := c.Clock
	if clock == nil {
		clock = monotonicClock()
	}

	return &Device{
		clock:        clock,
		mac:          internal.NewMac(c.Hash),
		ksf:          stretch,
		authTokenKey: kdf.Expand(prk, labelAuthTokenKey, kdf.Size()),
		passwordKey:  kdf.Expand(prk, labelPasswordKey, kdf.Size()),
		hardens:      c.KSF != 0,
	}, nil
}

func monotonicClock() func() uint64 {
	start := time.Now()

	return func() uint64 {
		return uint64(time.Since(start).Milliseconds())
	}
}

// AuthTokenKey returns a copy of the auth token key.
func (d *Device) AuthTokenKey() ([]byte, error) {
	return append([]byte(nil), d.authTokenKey...), nil
}

// PasswordKey returns a copy of the password key.
func (d *Device) PasswordKey() ([]byte, error) {
	return append([]byte(nil), d.passwordKey...), nil
}

// ComputePasswordSignature returns HMAC(key, salt || KSF(message, salt)).
func (d *Device) ComputePasswordSignature(key, message, salt []byte) ([]byte, error) {
	hardened := d.ksf.Harden(message, salt, d.mac.Size())
	input := encoding.Concatenate(salt, hardened)
	signature := d.mac.MAC(key, input)

	internal.Wipe(input)

	if d.hardens {
		internal.Wipe(hardened)
	}

	return signature, nil
}

// ComputeSignature returns HMAC(key, message).
func (d *Device) ComputeSignature(key, message []byte) ([]byte, error) {
	return d.mac.MAC(key, message), nil
}

// Random fills b from crypto/rand.
func (d *Device) Random(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("reading random bytes: %w", err)
	}

	return nil
}

// MillisecondsSinceBoot returns the configured clock.
func (d *Device) MillisecondsSinceBoot() uint64 {
	return d.clock()
}

// IsHardwareBacked returns false.
func (d *Device) IsHardwareBacked() bool {
	return false
}

// Wipe zeroes the keys held by the device. The device must not be used afterwards.
func (d *Device) Wipe() {
	internal.Wipe(d.authTokenKey)
	internal.Wipe(d.passwordKey)
}

var _ gatekeeper.Device = (*Device)(nil)
