// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-FileCopyrightText: (C) 2020-2025 Daniel Bourdrez
// SPDX-License-Identifier: Apache-2.0

// Package sqlite implements gatekeeper persistence with a SQLite database: failure records, enrolled password
// handles, and device secrets.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/bytemare/gatekeeper"
	"github.com/bytemare/gatekeeper/internal"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// DB implements gatekeeper persistence.
type DB struct {
	// Log all SQL queries to this optional writer.
	DebugLog io.Writer

	db *sql.DB

	// secure reports whether the database file is encrypted, which backs the secure storage class.
	secure bool
}

// New creates a DB. The expected tables must be created before the database is used. If secure is false, secure
// failure record operations return gatekeeper.ErrSecureStorageUnavailable.
func New(db *sql.DB, secure bool) *DB { return &DB{db: db, secure: secure} }

// Init ensures all tables are created. It does not recognize if tables have been created with invalid schemas.
func Init(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS secrets
			( type TEXT PRIMARY KEY
			, secret BLOB NOT NULL
			)`,
		`CREATE TABLE IF NOT EXISTS failure_records
			( sid INTEGER NOT NULL
			, secure INTEGER NOT NULL
			, uid INTEGER NOT NULL
			, record BLOB NOT NULL
			, PRIMARY KEY(sid, secure)
			)`,
		`CREATE INDEX IF NOT EXISTS failure_records_uid
			ON failure_records(uid)`,
		`CREATE TABLE IF NOT EXISTS password_handles
			( uid INTEGER PRIMARY KEY
			, handle BLOB NOT NULL
			)`,
	}
	for _, sql := range stmts {
		if _, err := db.Exec(sql); err != nil {
			_ = db.Close()
			if strings.Contains(err.Error(), "file is not a database") {
				return fmt.Errorf("file is not a database: likely due to incorrect or missing database password")
			}
			return fmt.Errorf("error creating tables: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error { return db.db.Close() }

type debugLogKey struct{}

func (db *DB) debugCtx(parent context.Context) context.Context {
	return context.WithValue(parent, debugLogKey{}, db.DebugLog)
}

func debug(ctx context.Context, format string, a ...any) {
	w, ok := ctx.Value(debugLogKey{}).(io.Writer)
	if !ok || w == nil {
		return
	}
	msg := strings.TrimSpace(fmt.Sprintf(format, a...))
	_, _ = fmt.Fprintln(w, msg)
}

var _ gatekeeper.FailureRecordStore = (*DB)(nil)

// LoadOrStoreSecret returns the secret of the given type, generating and storing size random bytes on first use.
// Concurrent callers observe the same secret.
func (db *DB) LoadOrStoreSecret(ctx context.Context, typ string, size int) ([]byte, error) {
	// Insert (or ignore) a new secret
	secret := internal.RandomBytes(size)
	if err := db.insertOrIgnore(ctx, "secrets", map[string]any{"type": typ, "secret": secret}); err != nil {
		return nil, fmt.Errorf("error writing %s secret: %w", typ, err)
	}

	// Read secret
	if err := db.query(ctx, "secrets", []string{"secret"}, map[string]any{"type": typ}, &secret); err != nil {
		return nil, fmt.Errorf("error reading %s secret: %w", typ, err)
	}
	return secret, nil
}

func (db *DB) checkSecure(secure bool) error {
	if secure && !db.secure {
		return gatekeeper.ErrSecureStorageUnavailable
	}
	return nil
}

// GetFailureRecord implements gatekeeper.FailureRecordStore.
func (db *DB) GetFailureRecord(_ uint32, sid gatekeeper.SecureID, secure bool) (*gatekeeper.FailureRecord, error) {
	if err := db.checkSecure(secure); err != nil {
		return nil, err
	}

	var blob []byte
	err := db.query(context.Background(), "failure_records", []string{"record"},
		map[string]any{"sid": int64(sid), "secure": secure}, &blob)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return gatekeeper.DeserializeFailureRecord(blob)
}

// WriteFailureRecord implements gatekeeper.FailureRecordStore.
func (db *DB) WriteFailureRecord(uid uint32, record *gatekeeper.FailureRecord, secure bool) error {
	if err := db.checkSecure(secure); err != nil {
		return err
	}

	return db.upsert(context.Background(), "failure_records", map[string]any{
		"sid":    int64(record.SecureUserID),
		"secure": secure,
		"uid":    int64(uid),
		"record": record.Serialize(),
	}, []string{"sid", "secure"})
}

// ClearFailureRecord implements gatekeeper.FailureRecordStore.
func (db *DB) ClearFailureRecord(uid uint32, sid gatekeeper.SecureID, secure bool) error {
	return db.WriteFailureRecord(uid, &gatekeeper.FailureRecord{SecureUserID: sid}, secure)
}

// DeleteUser drops the failure records and the password handle of uid.
func (db *DB) DeleteUser(uid uint32) error {
	ctx := db.debugCtx(context.Background())

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	where := map[string]any{"uid": int64(uid)}
	if err := remove(ctx, tx, "failure_records", where); err != nil {
		return fmt.Errorf("error deleting failure records: %w", err)
	}
	if err := remove(ctx, tx, "password_handles", where); err != nil {
		return fmt.Errorf("error deleting password handle: %w", err)
	}

	return tx.Commit()
}

// DeleteAllUsers drops every failure record and password handle. Secrets are kept.
func (db *DB) DeleteAllUsers() error {
	ctx := db.debugCtx(context.Background())

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"failure_records", "password_handles"} {
		query := "DELETE FROM " + table
		debug(ctx, "sqlite: %s", query)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error deleting from %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// PasswordHandle returns the password handle enrolled for uid.
func (db *DB) PasswordHandle(ctx context.Context, uid uint32) ([]byte, error) {
	var handle []byte
	if err := db.query(ctx, "password_handles", []string{"handle"}, map[string]any{"uid": int64(uid)}, &handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// SetPasswordHandle stores the password handle enrolled for uid, replacing any previous one.
func (db *DB) SetPasswordHandle(ctx context.Context, uid uint32, handle []byte) error {
	return db.upsert(ctx, "password_handles", map[string]any{"uid": int64(uid), "handle": handle}, []string{"uid"})
}

func (db *DB) insertOrIgnore(ctx context.Context, table string, kvs map[string]any) error {
	return insert(db.debugCtx(ctx), db.db, table, kvs, []string{})
}

func (db *DB) upsert(ctx context.Context, table string, kvs map[string]any, conflictKeys []string) error {
	return insert(db.debugCtx(ctx), db.db, table, kvs, conflictKeys)
}

func (db *DB) query(ctx context.Context, table string, columns []string, where map[string]any, into ...any) error {
	return query(db.debugCtx(ctx), db.db, table, columns, where, into...)
}

// Allows using *sql.DB or *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Allows using *sql.DB or *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// If upsertOnConflict is an empty slice (non-nil), then do an INSERT OR IGNORE
func insert(ctx context.Context, db execer, table string, kvs map[string]any, upsertOnConflict []string) error {
	var orIgnore string
	if upsertOnConflict != nil && len(upsertOnConflict) == 0 {
		orIgnore = "OR IGNORE "
	}

	columns := slices.Sorted(maps.Keys(kvs))
	args := make([]any, len(columns))
	for i, name := range columns {
		args[i] = kvs[name]
	}
	markers := slices.Repeat([]string{"?"}, len(columns))

	var upsert string
	if len(upsertOnConflict) > 0 {
		var updates []string
		for _, key := range columns {
			if !slices.Contains(upsertOnConflict, key) {
				updates = append(updates, fmt.Sprintf("`%s` = excluded.`%s`", key, key))
			}
		}

		upsert = fmt.Sprintf(" ON CONFLICT(`%s`) DO UPDATE SET ", strings.Join(upsertOnConflict, "`, `"))
		upsert += strings.Join(updates, ", ")
	}

	query := fmt.Sprintf(
		"INSERT %sINTO %s (%s) VALUES (%s)%s",
		orIgnore,
		table,
		"`"+strings.Join(columns, "`, `")+"`",
		strings.Join(markers, ", "),
		upsert,
	)
	debug(ctx, "sqlite: %s", query)
	_, err := db.ExecContext(ctx, query, args...)
	return err
}

func query(ctx context.Context, db querier, table string, columns []string, where map[string]any, into ...any) error {
	if len(columns) != len(into) {
		panic("programming error - query must have the same number of columns and values")
	}

	whereKeys := slices.Sorted(maps.Keys(where))
	clauses := make([]string, len(whereKeys))
	for i, key := range whereKeys {
		clauses[i] = "`" + key + "` = ?"
	}
	whereVals := make([]any, len(whereKeys))
	for i, key := range whereKeys {
		whereVals[i] = where[key]
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s`,
		"`"+strings.Join(columns, "`, `")+"`",
		table,
		strings.Join(clauses, " AND "),
	)
	debug(ctx, "sqlite: %s\n%+v", query, where)

	row := db.QueryRowContext(ctx, query, whereVals...)
	if err := row.Scan(into...); errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("error querying DB: %w", err)
	}
	return nil
}

func remove(ctx context.Context, db execer, table string, where map[string]any) error {
	whereKeys := slices.Sorted(maps.Keys(where))
	clauses := make([]string, len(whereKeys))
	for i, key := range whereKeys {
		clauses[i] = "`" + key + "` = ?"
	}
	whereVals := make([]any, len(whereKeys))
	for i, key := range whereKeys {
		whereVals[i] = where[key]
	}

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE %s`,
		table,
		strings.Join(clauses, " AND "),
	)
	debug(ctx, "sqlite: %s\n%+v", query, whereVals)

	_, err := db.ExecContext(ctx, query, whereVals...)
	return err
}
