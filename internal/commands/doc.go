// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package commands defines how schedule file entries become schedule tree nodes.
// Each entry type (serial, parallel, target, builder) lives in its own
// subpackage with a Commander that decodes the YAML and builds the node.
package commands
