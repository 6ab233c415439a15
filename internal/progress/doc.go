// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries live events about schedule nodes (started, output,
// completed, failed, skipped) from the tree scheduler to whoever is watching,
// typically the TUI.
package progress
