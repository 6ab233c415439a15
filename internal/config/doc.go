// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config turns a schedule file into a scheduler.Definition.
package config
