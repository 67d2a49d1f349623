// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-FileCopyrightText: (C) 2020-2025 Daniel Bourdrez
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/ncruces/go-sqlite3/driver"    // Load database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"   // Load sqlite WASM binary
	_ "github.com/ncruces/go-sqlite3/vfs/xts" // Encryption VFS
)

// busyTimeout is how long, in milliseconds, a connection waits on a lock held by another connection.
const busyTimeout = 10000

// Open creates or opens a SQLite database file. If a password is specified, then the xts VFS will be used with a
// text key, and the database backs the secure failure record storage class.
//
// The returned DB is safe for concurrent use: statements share a single connection and wait on busy locks, so
// verifications of distinct users never fail with a locked database.
func Open(filename, password string) (*DB, error) {
	query := fmt.Sprintf("?_pragma=foreign_keys(on)&_pragma=busy_timeout(%d)&_txlock=immediate", busyTimeout)
	if password != "" {
		query += fmt.Sprintf("&vfs=xts&_pragma=textkey(%q)&_pragma=temp_store(memory)", password)
	}
	connector, err := (&driver.SQLite{}).OpenConnector("file:" + filepath.Clean(filename) + query)
	if err != nil {
		return nil, fmt.Errorf("error creating sqlite connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		return nil, err
	}
	return New(db, password != ""), nil
}
