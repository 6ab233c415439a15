// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The level is shared by every logger created here and is read from the
// GANTRY_LOG_LEVEL environment variable (DEBUG, INFO, WARN or ERROR, default WARN).
// The default handler is a console handler that prints attributes as coloured JSON.
package ctxlog
