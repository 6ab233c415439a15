// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package protocol is the message contract between a scheduling parent and a worker.
//
// A parent sends one request (run a target, or run a builder directly).
// The worker answers on the same channel with any number of log messages followed by
// exactly one outcome. A channel that closes before an outcome arrives is a failed task.
//
// The same Message type travels over in-memory port pairs (worker goroutines)
// and over JSON lines on a pipe pair (worker processes).
package protocol
