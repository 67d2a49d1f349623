// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package gatekeeper

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bytemare/gatekeeper/internal"
	"github.com/bytemare/gatekeeper/internal/encoding"
	"github.com/bytemare/gatekeeper/message"
)

// secureIDAttempts bounds the draws of a non-zero secure user id.
const secureIDAttempts = 8

var (
	errSignatureLength = errors.New("signature has invalid length")
	errZeroSecureID    = errors.New("could not draw a non-zero secure user id")
)

// GateKeeper enrolls and verifies passwords. It is safe for concurrent use. Requests for distinct secure user ids
// run in parallel; requests for the same secure user id are serialized.
type GateKeeper struct {
	device          Device
	store           FailureRecordStore
	logger          *slog.Logger
	locks           *userLocks
	throttle        ThrottlePolicy
	authenticatorID uint64
}

// Enroll creates a password handle for the provided password. If the request carries an existing handle, the
// enrolled password must verify against it: the new handle then keeps the same secure user id. Password material in
// the request is wiped before Enroll returns.
func (g *GateKeeper) Enroll(req *message.EnrollRequest) *message.EnrollResponse {
	resp := &message.EnrollResponse{Header: message.Header{UserID: req.UserID}}

	defer req.ClearPasswords()

	if req.Error != message.ErrorNone || !req.ProvidedPassword.Present() {
		resp.SetError(message.ErrorInvalid)
		return resp
	}

	uid := req.UserID

	var sid SecureID

	if req.PasswordHandle.Present() {
		handle, err := DeserializePasswordHandle(req.PasswordHandle.Bytes())
		if err != nil {
			g.logger.Debug("enroll: rejecting password handle", "uid", uid, "error", err)
			resp.SetError(message.ErrorInvalid)

			return resp
		}

		sid = handle.SecureUserID

		unlock := g.locks.lock(sid)
		defer unlock()

		if !g.checkEnrolledPassword(uid, handle, req.EnrolledPassword.Bytes(), &resp.Header) {
			return resp
		}
	} else {
		var err error

		sid, err = g.newSecureID()
		if err != nil {
			g.logger.Error("enroll: drawing secure user id", "uid", uid, "error", err)
			resp.SetError(message.ErrorUnknown)

			return resp
		}

		unlock := g.locks.lock(sid)
		defer unlock()
	}

	flags, err := g.resetThrottling(uid, sid)
	if err != nil {
		g.logger.Error("enroll: clearing failure record", "uid", uid, "error", err)
		resp.SetError(message.ErrorUnknown)

		return resp
	}

	salt, err := g.randomUint64()
	if err != nil {
		g.logger.Error("enroll: drawing salt", "uid", uid, "error", err)
		resp.SetError(message.ErrorUnknown)

		return resp
	}

	handle, err := g.createPasswordHandle(salt, sid, flags, HandleVersion, req.ProvidedPassword.Bytes())
	if err != nil {
		g.logger.Error("enroll: signing password handle", "uid", uid, "error", err)
		resp.SetError(message.ErrorUnknown)

		return resp
	}

	resp.SetEnrolledPasswordHandle(message.NewSizedBuffer(handle.Serialize()))

	return resp
}

// checkEnrolledPassword verifies the current password of a password change, counting the attempt like a Verify.
// It returns false and sets the response error if the change must not proceed.
func (g *GateKeeper) checkEnrolledPassword(
	uid uint32,
	handle *PasswordHandle,
	password []byte,
	resp *message.Header,
) bool {
	var timeout uint32

	if handle.Throttled() {
		record, retry, err := g.countAttempt(uid, handle)
		if err != nil {
			g.logger.Error("enroll: updating failure record", "uid", uid, "error", err)
			resp.SetError(message.ErrorUnknown)

			return false
		}

		if retry != 0 {
			resp.SetRetryTimeout(retry)
			return false
		}

		timeout = g.throttle.ComputeRetryTimeout(record)
	}

	ok, err := g.doVerify(handle, password)
	if err != nil {
		g.logger.Error("enroll: verifying current password", "uid", uid, "error", err)
		resp.SetError(message.ErrorUnknown)

		return false
	}

	if !ok {
		if timeout != 0 {
			resp.SetRetryTimeout(timeout)
		} else {
			resp.SetError(message.ErrorInvalid)
		}

		return false
	}

	return true
}

// resetThrottling clears the failure record of sid, preferably in secure storage, and returns the handle flags
// matching the storage used.
func (g *GateKeeper) resetThrottling(uid uint32, sid SecureID) (uint64, error) {
	err := g.store.ClearFailureRecord(uid, sid, true)
	if err == nil {
		return HandleFlagThrottleSecure, nil
	}

	if !errors.Is(err, ErrSecureStorageUnavailable) {
		return 0, ErrStorage.Join(err)
	}

	if err = g.store.ClearFailureRecord(uid, sid, false); err != nil {
		return 0, ErrStorage.Join(err)
	}

	return 0, nil
}

// Verify checks the provided password against the password handle and mints an auth token on success. Throttled
// requests return message.ErrorRetry without comparing the password. Password material in the request is wiped
// before Verify returns.
func (g *GateKeeper) Verify(req *message.VerifyRequest) *message.VerifyResponse {
	resp := &message.VerifyResponse{Header: message.Header{UserID: req.UserID}}

	defer req.ClearPasswords()

	if req.Error != message.ErrorNone {
		resp.SetError(message.ErrorInvalid)
		return resp
	}

	uid := req.UserID

	handle, err := DeserializePasswordHandle(req.PasswordHandle.Bytes())
	if err != nil {
		g.logger.Debug("verify: rejecting password handle", "uid", uid, "error", err)
		resp.SetError(message.ErrorInvalid)

		return resp
	}

	unlock := g.locks.lock(handle.SecureUserID)
	defer unlock()

	// The attempt is counted before the comparison, so that interrupting a failed attempt cannot erase it.
	var record *FailureRecord

	if handle.Throttled() {
		var retry uint32

		record, retry, err = g.countAttempt(uid, handle)
		if err != nil {
			g.logger.Error("verify: updating failure record", "uid", uid, "error", err)
			resp.SetError(message.ErrorUnknown)

			return resp
		}

		if retry != 0 {
			resp.SetRetryTimeout(retry)
			return resp
		}
	}

	// The timestamp is taken after the comparison, which may be slow.
	ok, err := g.doVerify(handle, req.ProvidedPassword.Bytes())
	if err != nil {
		g.logger.Error("verify: computing password signature", "uid", uid, "error", err)
		resp.SetError(message.ErrorUnknown)

		return resp
	}

	if !ok {
		if record != nil {
			if timeout := g.throttle.ComputeRetryTimeout(record); timeout != 0 {
				resp.SetRetryTimeout(timeout)
				return resp
			}
		}

		resp.SetError(message.ErrorInvalid)

		return resp
	}

	token, err := g.mintAuthToken(handle.SecureUserID, req.Challenge, g.device.MillisecondsSinceBoot())
	if err != nil {
		g.logger.Error("verify: minting auth token", "uid", uid, "error", err)
		resp.SetError(message.ErrorUnknown)

		return resp
	}

	if handle.Throttled() {
		if err = g.store.ClearFailureRecord(uid, handle.SecureUserID, handle.ThrottleSecure()); err != nil {
			g.logger.Warn("verify: clearing failure record", "uid", uid, "error", err)
		}
	}

	resp.SetVerificationToken(message.NewSizedBuffer(token))
	resp.RequestReenroll = handle.Version < HandleVersion

	return resp
}

// countAttempt applies the throttle check and, if the attempt may proceed, counts it in the failure record. A
// non-zero retry means the attempt is rejected and must not be compared.
func (g *GateKeeper) countAttempt(uid uint32, handle *PasswordHandle) (*FailureRecord, uint32, error) {
	sid := handle.SecureUserID
	secure := handle.ThrottleSecure()
	now := g.device.MillisecondsSinceBoot()

	record, err := g.getFailureRecord(uid, sid, secure)
	if err != nil {
		return nil, 0, err
	}

	retry, err := g.throttleRequest(uid, now, record, secure)
	if err != nil || retry != 0 {
		return record, retry, err
	}

	if err = g.incrementFailureRecord(uid, sid, now, record, secure); err != nil {
		return nil, 0, err
	}

	return record, 0, nil
}

func (g *GateKeeper) getFailureRecord(uid uint32, sid SecureID, secure bool) (*FailureRecord, error) {
	record, err := g.store.GetFailureRecord(uid, sid, secure)
	if err != nil {
		return nil, ErrStorage.Join(err)
	}

	// A record left by another secure user id does not count against this one.
	if record == nil || record.SecureUserID != sid {
		record = &FailureRecord{SecureUserID: sid}
	}

	return record, nil
}

// throttleRequest returns the remaining wait if record has a pending timeout at timestamp. If the clock went
// backwards, e.g. after a reboot, the window is restarted at timestamp and the full timeout is returned.
func (g *GateKeeper) throttleRequest(uid uint32, timestamp uint64, record *FailureRecord, secure bool) (uint32, error) {
	timeout := g.throttle.ComputeRetryTimeout(record)
	if timeout == 0 {
		return 0, nil
	}

	lastChecked := record.LastCheckedTimestamp

	switch {
	case timestamp > lastChecked && timestamp < lastChecked+uint64(timeout):
		return uint32(lastChecked + uint64(timeout) - timestamp), nil
	case timestamp <= lastChecked:
		record.LastCheckedTimestamp = timestamp
		if err := g.store.WriteFailureRecord(uid, record, secure); err != nil {
			return 0, ErrStorage.Join(err)
		}

		return timeout, nil
	default:
		return 0, nil
	}
}

func (g *GateKeeper) incrementFailureRecord(
	uid uint32,
	sid SecureID,
	timestamp uint64,
	record *FailureRecord,
	secure bool,
) error {
	record.increment(sid, timestamp)

	if err := g.store.WriteFailureRecord(uid, record, secure); err != nil {
		return ErrStorage.Join(err)
	}

	return nil
}

// createPasswordHandle builds and signs a handle for password.
func (g *GateKeeper) createPasswordHandle(
	salt uint64,
	sid SecureID,
	flags uint64,
	version uint8,
	password []byte,
) (*PasswordHandle, error) {
	handle := &PasswordHandle{
		Version:        version,
		SecureUserID:   sid,
		Flags:          flags,
		Salt:           salt,
		HardwareBacked: g.device.IsHardwareBacked(),
	}

	signature, err := g.passwordSignature(handle, password)
	if err != nil {
		return nil, err
	}

	copy(handle.Signature[:], signature)

	return handle, nil
}

func (g *GateKeeper) passwordSignature(handle *PasswordHandle, password []byte) ([]byte, error) {
	key, err := g.device.PasswordKey()
	if err != nil {
		return nil, ErrDevice.Join(err)
	}

	toSign := handle.signedMessage(password)
	defer internal.Wipe(toSign)

	signature, err := g.device.ComputePasswordSignature(key, toSign, handle.saltBytes())
	if err != nil {
		return nil, ErrDevice.Join(err)
	}

	if len(signature) != internal.SignatureLength {
		return nil, ErrDevice.Join(errSignatureLength)
	}

	return signature, nil
}

// doVerify recomputes the signature of handle over password and compares it in constant time. A tampered handle
// fails the same way as a wrong password.
func (g *GateKeeper) doVerify(handle *PasswordHandle, password []byte) (bool, error) {
	if len(password) == 0 {
		return false, nil
	}

	signature, err := g.passwordSignature(handle, password)
	if err != nil {
		return false, err
	}

	return hmac.Equal(signature, handle.Signature[:]), nil
}

// mintAuthToken returns a serialized auth token signed with the auth token key.
func (g *GateKeeper) mintAuthToken(sid SecureID, challenge, timestamp uint64) ([]byte, error) {
	token := &AuthToken{
		Version:           AuthTokenVersion,
		Challenge:         challenge,
		SecureUserID:      sid,
		AuthenticatorID:   g.authenticatorID,
		AuthenticatorType: AuthenticatorTypePassword,
		Timestamp:         timestamp,
	}

	key, err := g.device.AuthTokenKey()
	if err != nil {
		return nil, ErrDevice.Join(err)
	}

	mac, err := g.device.ComputeSignature(key, token.SignedBytes())
	if err != nil {
		return nil, ErrDevice.Join(err)
	}

	if len(mac) != internal.SignatureLength {
		return nil, ErrDevice.Join(errSignatureLength)
	}

	copy(token.HMAC[:], mac)

	return token.Serialize(), nil
}

// VerifyAuthToken checks a token minted by this engine.
func (g *GateKeeper) VerifyAuthToken(token []byte) (*AuthToken, error) {
	return VerifyAuthToken(g.device, token)
}

func (g *GateKeeper) randomUint64() (uint64, error) {
	b := make([]byte, encoding.Uint64Length)
	if err := g.device.Random(b); err != nil {
		return 0, ErrDevice.Join(err)
	}

	return encoding.NewDecoder(b).Uint64(), nil
}

func (g *GateKeeper) newSecureID() (SecureID, error) {
	for range secureIDAttempts {
		v, err := g.randomUint64()
		if err != nil {
			return 0, err
		}

		if v != 0 {
			return SecureID(v), nil
		}
	}

	return 0, ErrDevice.Join(errZeroSecureID)
}

// DeleteUser drops the failure records of the request's user id.
func (g *GateKeeper) DeleteUser(req *message.DeleteUserRequest) *message.DeleteUserResponse {
	resp := &message.DeleteUserResponse{Header: message.Header{UserID: req.UserID}}

	if req.Error != message.ErrorNone {
		resp.SetError(message.ErrorInvalid)
		return resp
	}

	if err := g.store.DeleteUser(req.UserID); err != nil {
		g.logger.Error("delete user", "uid", req.UserID, "error", ErrStorage.Join(err))
		resp.SetError(message.ErrorUnknown)
	}

	return resp
}

// DeleteAllUsers drops every failure record.
func (g *GateKeeper) DeleteAllUsers(req *message.DeleteAllUsersRequest) *message.DeleteAllUsersResponse {
	resp := &message.DeleteAllUsersResponse{Header: message.Header{UserID: req.UserID}}

	if req.Error != message.ErrorNone {
		resp.SetError(message.ErrorInvalid)
		return resp
	}

	if err := g.store.DeleteAllUsers(); err != nil {
		g.logger.Error("delete all users", "error", ErrStorage.Join(err))
		resp.SetError(message.ErrorUnknown)
	}

	return resp
}

// Command identifies a request type for Handle.
type Command uint32

const (
	// CommandEnroll expects an EnrollRequest.
	CommandEnroll Command = iota

	// CommandVerify expects a VerifyRequest.
	CommandVerify

	// CommandDeleteUser expects a DeleteUserRequest.
	CommandDeleteUser

	// CommandDeleteAllUsers expects a DeleteAllUsersRequest.
	CommandDeleteAllUsers
)

// String returns the name of the command.
func (c Command) String() string {
	switch c {
	case CommandEnroll:
		return "enroll"
	case CommandVerify:
		return "verify"
	case CommandDeleteUser:
		return "delete_user"
	case CommandDeleteAllUsers:
		return "delete_all_users"
	default:
		return fmt.Sprintf("command(%d)", uint32(c))
	}
}

// Handle deserializes request according to cmd, runs it, and returns the serialized response. A request that does
// not parse yields a response with message.ErrorInvalid. Only an unknown command returns an error.
func (g *GateKeeper) Handle(cmd Command, request []byte) ([]byte, error) {
	switch cmd {
	case CommandEnroll:
		req := &message.EnrollRequest{}
		if err := req.Deserialize(request); err != nil {
			return invalidResponse(&message.EnrollResponse{}, g.logger, cmd, request, err), nil
		}

		return g.Enroll(req).Serialize(), nil
	case CommandVerify:
		req := &message.VerifyRequest{}
		if err := req.Deserialize(request); err != nil {
			return invalidResponse(&message.VerifyResponse{}, g.logger, cmd, request, err), nil
		}

		return g.Verify(req).Serialize(), nil
	case CommandDeleteUser:
		req := &message.DeleteUserRequest{}
		if err := req.Deserialize(request); err != nil {
			return invalidResponse(&message.DeleteUserResponse{}, g.logger, cmd, request, err), nil
		}

		return g.DeleteUser(req).Serialize(), nil
	case CommandDeleteAllUsers:
		req := &message.DeleteAllUsersRequest{}
		if err := req.Deserialize(request); err != nil {
			return invalidResponse(&message.DeleteAllUsersResponse{}, g.logger, cmd, request, err), nil
		}

		return g.DeleteAllUsers(req).Serialize(), nil
	default:
		return nil, ErrUnknownCommand.Join(fmt.Errorf("%s", cmd))
	}
}

type invalidResponder interface {
	message.Message
	SetError(e message.Error)
	SetUserID(uid uint32)
}

// invalidResponse answers a request that does not parse. The user id is echoed when the request header is readable.
func invalidResponse(resp invalidResponder, logger *slog.Logger, cmd Command, request []byte, err error) []byte {
	var uid uint32
	if h, hErr := message.ParseHeader(request); hErr == nil {
		uid = h.UserID
	}

	logger.Debug("rejecting malformed request", "command", cmd.String(), "uid", uid, "error", err)
	resp.SetUserID(uid)
	resp.SetError(message.ErrorInvalid)

	return resp.Serialize()
}
