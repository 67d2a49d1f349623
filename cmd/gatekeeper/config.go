// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytemare/ksf"

	"github.com/bytemare/gatekeeper"
)

const (
	EnvDatabasePath     = "GK_DB_PATH"
	EnvDatabasePassword = "GK_DB_PASSWORD"
	EnvKSF              = "GK_KSF"
	EnvAuthenticatorID  = "GK_AUTHENTICATOR_ID"
	EnvFreeAttempts     = "GK_THROTTLE_FREE_ATTEMPTS"
	EnvBaseTimeout      = "GK_THROTTLE_BASE_TIMEOUT"
	EnvMaxTimeout       = "GK_THROTTLE_MAX_TIMEOUT"
	EnvDebug            = "GK_DEBUG"

	KSFNone     = "none"
	KSFScrypt   = "scrypt"
	KSFArgon2id = "argon2id"
	KSFPBKDF2   = "pbkdf2"
)

var ksfNames = map[string]ksf.Identifier{
	KSFNone:     0,
	KSFScrypt:   ksf.Scrypt,
	KSFArgon2id: ksf.Argon2id,
	KSFPBKDF2:   ksf.PBKDF2Sha512,
}

// Config holds the runtime configuration loaded from environment variables. Flags override it.
type Config struct {
	DatabasePath     string
	DatabasePassword string
	KSF              string
	AuthenticatorID  uint64
	Throttle         gatekeeper.ThrottlePolicy
	Debug            bool
}

// LoadFromEnv loads and validates configuration from environment variables. A variable that is set but does not
// parse is an error.
func LoadFromEnv() (Config, error) {
	var env envParser

	throttle := gatekeeper.DefaultThrottlePolicy()
	throttle.FreeAttempts = uint32(env.uintOrDefault(EnvFreeAttempts, uint64(throttle.FreeAttempts), 32))
	throttle.BaseTimeout = env.durationOrDefault(EnvBaseTimeout, throttle.BaseTimeout)
	throttle.MaxTimeout = env.durationOrDefault(EnvMaxTimeout, throttle.MaxTimeout)

	cfg := Config{
		DatabasePath:     envOrDefault(EnvDatabasePath, "gatekeeper.db"),
		DatabasePassword: os.Getenv(EnvDatabasePassword),
		KSF:              strings.ToLower(envOrDefault(EnvKSF, KSFScrypt)),
		AuthenticatorID:  env.uintOrDefault(EnvAuthenticatorID, 0, 64),
		Throttle:         throttle,
		Debug:            env.boolOrDefault(EnvDebug, false),
	}

	if env.err != nil {
		return Config{}, env.err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent. The throttle policy is checked by the engine.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("invalid %s: must not be empty", EnvDatabasePath)
	}
	if _, ok := ksfNames[c.KSF]; !ok {
		return fmt.Errorf("invalid %s: must be one of %q, %q, %q or %q", EnvKSF, KSFNone, KSFScrypt, KSFArgon2id, KSFPBKDF2)
	}
	if c.Throttle.FreeAttempts >= c.Throttle.EscalationStart {
		return fmt.Errorf("invalid %s: must be below %d", EnvFreeAttempts, c.Throttle.EscalationStart)
	}
	return nil
}

// KSFIdentifier returns the key stretching function selected by the configuration.
func (c Config) KSFIdentifier() ksf.Identifier {
	return ksfNames[c.KSF]
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envParser reads typed environment variables and keeps the first parse error.
type envParser struct {
	err error
}

func (p *envParser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (p *envParser) fail(key, value string, err error) {
	p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
}

func (p *envParser) uintOrDefault(key string, fallback uint64, bitSize int) uint64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *envParser) boolOrDefault(key string, fallback bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *envParser) durationOrDefault(key string, fallback time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}
