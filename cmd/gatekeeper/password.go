// SPDX-License-Identifier: MIT
//
// Copyright (C) 2020-2025 Daniel Bourdrez. All Rights Reserved.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// readPassword prompts on stderr and reads a password without echo from a terminal, or one line from a pipe.
func readPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(os.Stderr)

		return pw, err
	}

	line, err := stdin.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return bytes.TrimRight(line, "\r\n"), nil
}
