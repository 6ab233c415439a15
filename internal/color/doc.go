// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps strings in ANSI escape codes for the result tree and the
// console log handler.
//
// Colour is on when stdout is a terminal. NO_COLOR disables it and takes
// precedence over FORCE_COLOR, which enables it off-terminal.
package color
