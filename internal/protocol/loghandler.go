// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// LogHandler is a slog.Handler that turns records into LogEntry values and passes them to emit.
// Workers use it so that builder output travels to the parent over the task channel.
type LogHandler struct {
	level  slog.Leveler
	emit   func(LogEntry)
	attrs  map[string]any
	prefix string
}

// NewLogHandler returns a handler emitting entries at or above level.
func NewLogHandler(level slog.Leveler, emit func(LogEntry)) *LogHandler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &LogHandler{level: level, emit: emit, attrs: map[string]any{}}
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		attrs[k] = v
	}

	r.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.prefix, a)
		return true
	})

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	e := LogEntry{Time: t, Level: r.Level, Message: r.Message}
	if len(attrs) > 0 {
		e.Attrs = attrs
	}

	h.emit(e)

	return nil
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(as []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range as {
		addAttr(c.attrs, c.prefix, a)
	}

	return c
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := h.clone()
	c.prefix = h.prefix + name + "."

	return c
}

func (h *LogHandler) clone() *LogHandler {
	c := *h
	c.attrs = make(map[string]any, len(h.attrs))

	for k, v := range h.attrs {
		c.attrs[k] = v
	}

	return &c
}

func addAttr(m map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			addAttr(m, p, ga)
		}

		return
	}

	m[prefix+a.Key] = plainValue(a.Value)
}

// plainValue converts v into something that survives a JSON round trip.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	}

	a := v.Any()
	if err, ok := a.(error); ok {
		return err.Error()
	}

	if _, err := json.Marshal(a); err != nil {
		return fmt.Sprint(a)
	}

	return a
}
