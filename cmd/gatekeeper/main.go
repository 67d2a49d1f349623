// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-FileCopyrightText: (C) 2020-2025 Daniel Bourdrez
// SPDX-License-Identifier: Apache-2.0

// Package main implements a command line gatekeeper backed by a SQLite database.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bytemare/gatekeeper"
	"github.com/bytemare/gatekeeper/message"
	"github.com/bytemare/gatekeeper/soft"
	"github.com/bytemare/gatekeeper/sqlite"
)

const masterSecretType = "gatekeeper_master"

var flags = flag.NewFlagSet("root", flag.ContinueOnError)

var (
	debug  bool
	dbPath string

	uid       uint
	challenge uint64
)

var (
	enrollFlags = flag.NewFlagSet("enroll", flag.ContinueOnError)
	verifyFlags = flag.NewFlagSet("verify", flag.ContinueOnError)
	deleteFlags = flag.NewFlagSet("delete-user", flag.ContinueOnError)
)

func init() {
	flags.BoolVar(&debug, "debug", false, "Run subcommand with debug enabled")
	flags.StringVar(&dbPath, "db", "", "SQLite database path (overrides "+EnvDatabasePath+")")
	flags.Usage = usage

	for _, fs := range []*flag.FlagSet{enrollFlags, verifyFlags, deleteFlags} {
		fs.UintVar(&uid, "uid", 0, "User id")
		fs.Usage = func() {}
	}
	verifyFlags.Uint64Var(&challenge, "challenge", 0, "Challenge bound into the auth token")
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `
Usage:
  gatekeeper [global_options] [enroll|verify|delete-user|delete-all] [--] [options]

Global options:
%s
Enroll and delete-user options:
%s
Verify options:
%s
Environment:
  %s, %s, %s (none|scrypt|argon2id|pbkdf2),
  %s, %s, %s, %s, %s
`, options(flags), options(enrollFlags), options(verifyFlags),
		EnvDatabasePath, EnvDatabasePassword, EnvKSF, EnvAuthenticatorID,
		EnvFreeAttempts, EnvBaseTimeout, EnvMaxTimeout, EnvDebug)
}

func options(flags *flag.FlagSet) string {
	oldOutput := flags.Output()
	defer flags.SetOutput(oldOutput)

	var buf bytes.Buffer
	flags.SetOutput(&buf)
	flags.PrintDefaults()

	return buf.String()
}

func main() {
	if err := flags.Parse(os.Args[1:]); err != nil {
		usage()
		os.Exit(1)
	}

	sub := flags.Arg(0)
	var args []string
	if flags.NArg() > 1 {
		args = flags.Args()[1:]
		if flags.Arg(1) == "--" {
			args = flags.Args()[2:]
		}
	}

	var (
		fs  *flag.FlagSet
		run func(*app) error
	)
	switch sub {
	case "enroll":
		fs, run = enrollFlags, (*app).enroll
	case "verify":
		fs, run = verifyFlags, (*app).verify
	case "delete-user":
		fs, run = deleteFlags, (*app).deleteUser
	case "delete-all":
		fs, run = flag.NewFlagSet("delete-all", flag.ContinueOnError), (*app).deleteAll
	default:
		if sub != "" {
			_, _ = fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		}
		usage()
		os.Exit(1)
	}

	if err := fs.Parse(args); err != nil {
		usage()
		os.Exit(1)
	}

	if err := execute(run); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s error: %v\n", sub, err)
		os.Exit(2)
	}
}

func execute(run func(*app) error) error {
	cfg, err := LoadFromEnv()
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if debug || cfg.Debug {
		level.Set(slog.LevelDebug)
	}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return run(a)
}

type app struct {
	ctx    context.Context
	db     *sqlite.DB
	device *soft.Device
	gk     *gatekeeper.GateKeeper
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	db, err := sqlite.Open(cfg.DatabasePath, cfg.DatabasePassword)
	if err != nil {
		return nil, err
	}
	if debug || cfg.Debug {
		db.DebugLog = os.Stderr
	}

	secret, err := db.LoadOrStoreSecret(ctx, masterSecretType, 32)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	devConf := soft.DefaultConfiguration()
	devConf.KSF = cfg.KSFIdentifier()
	// The database outlives the process, so failure timestamps use the wall clock.
	devConf.Clock = func() uint64 { return uint64(time.Now().UnixMilli()) }

	device, err := devConf.Device(secret)
	clear(secret)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gkConf := gatekeeper.DefaultConfiguration()
	gkConf.Logger = slog.Default()
	gkConf.Throttle = cfg.Throttle
	gkConf.AuthenticatorID = cfg.AuthenticatorID

	gk, err := gkConf.GateKeeper(device, db)
	if err != nil {
		device.Wipe()
		_ = db.Close()
		return nil, err
	}

	return &app{ctx: ctx, db: db, device: device, gk: gk}, nil
}

func (a *app) close() {
	a.device.Wipe()
	_ = a.db.Close()
}

func (a *app) userID() (uint32, error) {
	if uint64(uid) > uint64(^uint32(0)) {
		return 0, fmt.Errorf("uid %d out of range", uid)
	}
	return uint32(uid), nil
}

// call serializes req, runs it through the byte-level dispatcher, and deserializes the response into resp.
func (a *app) call(cmd gatekeeper.Command, req, resp message.Message) error {
	raw := req.Serialize()
	defer clear(raw)

	out, err := a.gk.Handle(cmd, raw)
	if err != nil {
		return err
	}
	return resp.Deserialize(out)
}

func responseError(h *message.Header) error {
	switch h.Error {
	case message.ErrorNone:
		return nil
	case message.ErrorRetry:
		return fmt.Errorf("too many failed attempts, retry in %s", time.Duration(h.RetryTimeout)*time.Millisecond)
	case message.ErrorInvalid:
		return errors.New("invalid request or wrong password")
	default:
		return fmt.Errorf("request failed: %s", h.Error)
	}
}

func (a *app) enroll() error {
	userID, err := a.userID()
	if err != nil {
		return err
	}

	handle, err := a.db.PasswordHandle(a.ctx, userID)
	if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
		return err
	}

	var current []byte
	if handle != nil {
		if current, err = readPassword("Current password: "); err != nil {
			return err
		}
	}

	provided, err := readPassword("New password: ")
	if err != nil {
		return err
	}

	req := message.NewEnrollRequest(userID, handle, provided, current)
	defer req.ClearPasswords()

	resp := &message.EnrollResponse{}
	if err := a.call(gatekeeper.CommandEnroll, req, resp); err != nil {
		return err
	}
	if err := responseError(&resp.Header); err != nil {
		return err
	}

	if err := a.db.SetPasswordHandle(a.ctx, userID, resp.EnrolledPasswordHandle.Bytes()); err != nil {
		return fmt.Errorf("storing password handle: %w", err)
	}

	slog.Info("enrolled", "uid", userID)

	return nil
}

func (a *app) verify() error {
	userID, err := a.userID()
	if err != nil {
		return err
	}

	handle, err := a.db.PasswordHandle(a.ctx, userID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return fmt.Errorf("uid %d is not enrolled", userID)
	} else if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	req := message.NewVerifyRequest(userID, challenge, handle, password)
	defer req.ClearPasswords()

	resp := &message.VerifyResponse{}
	if err := a.call(gatekeeper.CommandVerify, req, resp); err != nil {
		return err
	}
	if err := responseError(&resp.Header); err != nil {
		return err
	}

	token, err := a.gk.VerifyAuthToken(resp.AuthToken.Bytes())
	if err != nil {
		return err
	}

	slog.Info("verified", "uid", userID, "sid", uint64(token.SecureUserID), "challenge", token.Challenge)
	fmt.Println(hex.EncodeToString(resp.AuthToken.Bytes()))

	if resp.RequestReenroll {
		slog.Warn("password handle is outdated, enroll again to upgrade it", "uid", userID)
	}

	return nil
}

func (a *app) deleteUser() error {
	userID, err := a.userID()
	if err != nil {
		return err
	}

	resp := &message.DeleteUserResponse{}
	if err := a.call(gatekeeper.CommandDeleteUser, message.NewDeleteUserRequest(userID), resp); err != nil {
		return err
	}
	if err := responseError(&resp.Header); err != nil {
		return err
	}

	slog.Info("deleted", "uid", userID)

	return nil
}

func (a *app) deleteAll() error {
	resp := &message.DeleteAllUsersResponse{}
	if err := a.call(gatekeeper.CommandDeleteAllUsers, &message.DeleteAllUsersRequest{}, resp); err != nil {
		return err
	}
	if err := responseError(&resp.Header); err != nil {
		return err
	}

	slog.Info("deleted all users")

	return nil
}
