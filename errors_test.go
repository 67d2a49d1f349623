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
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/bytemare/gatekeeper"
)

func TestErrorJoin_IsAndAs(t *testing.T) {
	err := gatekeeper.ErrStorage.Join(errInjected, gatekeeper.ErrSecureStorageUnavailable)

	if !errors.Is(err, gatekeeper.ErrStorage) {
		t.Fatal("expected errors.Is(err, ErrStorage) to be true")
	}
	if !errors.Is(err, errInjected) || !errors.Is(err, gatekeeper.ErrSecureStorageUnavailable) {
		t.Fatal("expected the causes to be discoverable")
	}
	if errors.Is(err, gatekeeper.ErrFailureRecord) {
		t.Fatal("errors sharing a code but not a message must not match")
	}

	var code gatekeeper.ErrorCode
	if !errors.As(err, &code) {
		t.Fatal("expected errors.As(err, *ErrorCode) to succeed")
	}
	if code != gatekeeper.ErrCodeStorage {
		t.Fatalf("expected code %v, got %v", gatekeeper.ErrCodeStorage, code)
	}

	var gkErr *gatekeeper.Error
	if !errors.As(err, &gkErr) || gkErr != gatekeeper.ErrStorage {
		t.Fatal("expected errors.As(err, **Error) to succeed")
	}
}

func TestErrorCode_String(t *testing.T) {
	codes := map[gatekeeper.ErrorCode]string{
		gatekeeper.ErrCodeUnknown:        "unknown_error",
		gatekeeper.ErrCodeConfiguration:  "configuration_error",
		gatekeeper.ErrCodeDevice:         "device_error",
		gatekeeper.ErrCodeStorage:        "storage_error",
		gatekeeper.ErrCodePasswordHandle: "password_handle_error",
		gatekeeper.ErrCodeAuthToken:      "auth_token_error",
		gatekeeper.ErrorCode(200):        "unknown_error",
	}

	for code, expected := range codes {
		if code.String() != expected || code.Error() != expected {
			t.Errorf("code %d: expected %q, got %q", code, expected, code.String())
		}
	}

	if gatekeeper.ErrDevice.Error() != "device error" {
		t.Fatalf("unexpected default message %q", gatekeeper.ErrDevice.Error())
	}
}

func TestError_Format(t *testing.T) {
	err := gatekeeper.ErrCodeDevice.New("key unavailable", errInjected)

	if s := fmt.Sprintf("%v", err); s != "key unavailable" {
		t.Fatalf("unexpected %%v output %q", s)
	}

	if s := fmt.Sprintf("%q", err); s != `"key unavailable"` {
		t.Fatalf("unexpected %%q output %q", s)
	}

	verbose := fmt.Sprintf("%+v", err)
	if !strings.Contains(verbose, "code=2(device_error)") || !strings.Contains(verbose, errInjected.Error()) {
		t.Fatalf("unexpected %%+v output %q", verbose)
	}
}

func TestError_LogValue(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Error("failure", "error", gatekeeper.ErrCodeStorage.New("", errInjected))

	out := buf.String()
	if !strings.Contains(out, "error.code_name=storage_error") || !strings.Contains(out, "injected failure") {
		t.Fatalf("unexpected log output %q", out)
	}
}
