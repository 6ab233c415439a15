// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"

	escPrefix = "\033["
	escSuffix = "m"
	escReset  = "\033[0m"
)

// Code is an SGR parameter.
type Code int

// Text attributes.
const (
	Reset Code = 0
	Bold  Code = 1
	Faint Code = 2
)

// Foreground colors.
const (
	FgRed     Code = 31
	FgGreen   Code = 32
	FgYellow  Code = 33
	FgBlue    Code = 34
	FgMagenta Code = 35
	FgCyan    Code = 36
	FgWhite   Code = 37

	FgHiBlack   Code = 90
	FgHiRed     Code = 91
	FgHiMagenta Code = 95
	FgHiWhite   Code = 97
)

var enabled = colorCapable()

// Enabled reports whether color output was detected at start-up.
func Enabled() bool {
	return enabled
}

// SetEnabled overrides detection, e.g. when output goes to a file.
func SetEnabled(v bool) {
	enabled = v
}

// Sequence renders the escape sequence for the codes, even when color is disabled.
func Sequence(codes ...Code) string {
	sb := strings.Builder{}
	sb.WriteString(escPrefix)

	for i, c := range codes {
		if i > 0 {
			sb.WriteByte(';')
		}

		sb.WriteString(strconv.Itoa(int(c)))
	}

	sb.WriteString(escSuffix)

	return sb.String()
}

// Colorize wraps str in the codes followed by a reset.
// It returns str unchanged when color is disabled.
func Colorize(str string, codes ...Code) string {
	if !enabled || len(codes) == 0 {
		return str
	}

	return Sequence(codes...) + str + escReset
}

// Start returns the escape sequence for codes without a trailing reset,
// or an empty string when color is disabled.
func Start(codes ...Code) string {
	if !enabled {
		return ""
	}

	return Sequence(codes...)
}

// End returns the reset sequence, or an empty string when color is disabled.
func End() string {
	if !enabled {
		return ""
	}

	return escReset
}

func colorCapable() bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}
