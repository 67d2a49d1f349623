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
	"math"
	"time"
)

var (
	errThrottleBase      = errors.New("base timeout must be positive and not exceed the maximum timeout")
	errThrottleMax       = errors.New("maximum timeout does not fit in 32-bit milliseconds")
	errThrottleStep      = errors.New("escalation step must be positive")
	errThrottleEscalated = errors.New("escalation must start after the free attempts")
)

// ThrottlePolicy maps a failure counter to the time the caller must wait before the next attempt:
//
//	counter <= FreeAttempts      no wait
//	counter <  EscalationStart   BaseTimeout
//	otherwise                    BaseTimeout doubled once per EscalationStep failures past EscalationStart, plus
//	                             once, capped to MaxTimeout
//
// The timeout never decreases when the counter grows.
type ThrottlePolicy struct {
	BaseTimeout     time.Duration
	MaxTimeout      time.Duration
	FreeAttempts    uint32
	EscalationStart uint32
	EscalationStep  uint32
}

// DefaultThrottlePolicy returns the default policy: 4 free attempts, 30 seconds up to 30 failures, then doubling every
// 10 failures up to a day.
func DefaultThrottlePolicy() ThrottlePolicy {
	return ThrottlePolicy{
		BaseTimeout:     30 * time.Second,
		MaxTimeout:      24 * time.Hour,
		FreeAttempts:    4,
		EscalationStart: 30,
		EscalationStep:  10,
	}
}

func (p *ThrottlePolicy) validate() error {
	if p.MaxTimeout.Milliseconds() > math.MaxUint32 {
		return errThrottleMax
	}

	if p.BaseTimeout.Milliseconds() <= 0 || p.BaseTimeout > p.MaxTimeout {
		return errThrottleBase
	}

	if p.EscalationStep == 0 {
		return errThrottleStep
	}

	if p.EscalationStart <= p.FreeAttempts {
		return errThrottleEscalated
	}

	return nil
}

// ComputeRetryTimeout returns the wait, in milliseconds, required after the failures counted in record.
func (p *ThrottlePolicy) ComputeRetryTimeout(record *FailureRecord) uint32 {
	counter := record.FailureCounter
	base := uint64(p.BaseTimeout.Milliseconds())
	maxTimeout := uint64(p.MaxTimeout.Milliseconds())

	switch {
	case counter <= p.FreeAttempts:
		return 0
	case counter < p.EscalationStart:
		return uint32(base)
	}

	shift := (counter-p.EscalationStart)/p.EscalationStep + 1
	if shift >= 32 {
		return uint32(maxTimeout)
	}

	// base fits in 32 bits, so the shift cannot overflow.
	return uint32(min(base<<shift, maxTimeout))
}
