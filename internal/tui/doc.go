// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui shows a live tree of the schedule while it runs: each node's
// status and elapsed time, and the latest log line of each running target.
//
// The tree is built from progress events, so nodes appear as they start.
package tui
