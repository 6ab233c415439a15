// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package builders contains the named implementations that targets run.
//
// A builder receives the project it runs in and a map of options.
// Anything it logs through the context logger reaches the scheduling parent,
// whichever backend executed it.
//
// Built-in builders:
//
//   - shell: runs options.command through the platform shell in the project root.
//   - noop: succeeds.
//   - fail: fails with options.message.
//   - sleep: waits for options.duration, or until cancelled.
package builders
