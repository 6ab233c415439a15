// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package linewriter splits a byte stream into lines as it is written.
// Builders use it to turn process output into one log entry per line.
package linewriter

import (
	"bytes"
	"sync"
)

// MaxLineLength bounds a single line. Longer lines are emitted in pieces.
const MaxLineLength = 64 * 1024

// Writer calls a function for every complete line written to it and remembers the last one.
// It is safe for concurrent use.
type Writer struct {
	onLine   func(string)
	partial  bytes.Buffer
	lastLine string
	lines    int
	mu       sync.Mutex
}

// New returns a Writer calling onLine for each line, without the trailing newline.
// A trailing carriage return is removed too.
func New(onLine func(string)) *Writer {
	return &Writer{onLine: onLine}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			w.partial.Write(rest)

			for w.partial.Len() >= MaxLineLength {
				w.emit(string(w.partial.Next(MaxLineLength)))
			}

			break
		}

		w.partial.Write(rest[:i])
		w.emit(w.partial.String())
		w.partial.Reset()

		rest = rest[i+1:]
	}

	return len(p), nil
}

// Flush emits any partial line left after the last newline.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.partial.Len() == 0 {
		return
	}

	w.emit(w.partial.String())
	w.partial.Reset()
}

func (w *Writer) emit(line string) {
	line = trimCR(line)
	w.lastLine = line
	w.lines++

	if w.onLine != nil {
		w.onLine(line)
	}
}

// LastLine returns the last complete line, truncated to maxLength with "..." when maxLength > 3.
func (w *Writer) LastLine(maxLength int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if maxLength > 3 && len(w.lastLine) > maxLength {
		return w.lastLine[:maxLength-3] + "..."
	}

	return w.lastLine
}

// Lines returns how many lines have been emitted.
func (w *Writer) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lines
}

func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}

	return s
}
