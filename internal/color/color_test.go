// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorCapable(t *testing.T) {
	t.Setenv(NoColor, "1")
	assert.False(t, colorCapable(), "NO_COLOR should disable color")

	t.Setenv(ForceColor, "1")
	assert.False(t, colorCapable(), "NO_COLOR should win over FORCE_COLOR")

	t.Setenv(NoColor, "")
	assert.True(t, colorCapable(), "FORCE_COLOR should enable color")
}

func TestColorize(t *testing.T) {
	prev := Enabled()
	t.Cleanup(func() { SetEnabled(prev) })

	SetEnabled(false)
	assert.Equal(t, "plain", Colorize("plain", FgRed))
	assert.Empty(t, Start(Bold))
	assert.Empty(t, End())

	SetEnabled(true)
	assert.Equal(t, "\033[1;31mx\033[0m", Colorize("x", Bold, FgRed))
	assert.Equal(t, "\033[32m", Start(FgGreen))
	assert.Equal(t, "plain", Colorize("plain"))
}
