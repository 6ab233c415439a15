// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package workspace loads the projects and targets that gantry can run.
//
// A workspace is one or more HCL files:
//
//	project "app" {
//	  root = "apps/app"
//
//	  target "build" {
//	    builder = "shell"
//	    options = { command = "go build ./..." }
//
//	    configuration "production" {
//	      options = { command = "go build -trimpath ./..." }
//	    }
//	  }
//	}
//
// Expressions can read environment variables through env.NAME and call a few
// string functions (upper, lower, join, format, concat).
package workspace
