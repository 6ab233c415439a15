// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package protocol

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/target"
)

var (
	// ErrUnexpectedMessage is returned when a message is not valid for where it was received.
	ErrUnexpectedMessage = errors.New("unexpected protocol message")
	// ErrNoResult is the failure recorded when a channel closes before an outcome arrives.
	ErrNoResult = errors.New("child exited without producing a result")
)

// MessageType tags a Message.
type MessageType string

// Message types.
const (
	TypeRunTarget  MessageType = "run-target"
	TypeRunBuilder MessageType = "run-builder"
	TypeLog        MessageType = "log"
	TypeOutcome    MessageType = "outcome"
)

// Outcome is the terminal result of a task or a tree node.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Succeeded returns a successful outcome.
func Succeeded() Outcome {
	return Outcome{Success: true}
}

// Failed returns a failed outcome carrying err's message.
func Failed(err error) Outcome {
	if err == nil {
		err = errors.New("unknown error")
	}

	return Outcome{Error: err.Error()}
}

// Err returns nil for a successful outcome and an error otherwise.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}

	if o.Error == "" {
		return errors.New("task failed")
	}

	return errors.New(o.Error)
}

// LogEntry is a structured log record produced by a worker.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   slog.Level     `json:"level"`
	Message string         `json:"msg"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Args returns the attributes as alternating key/value arguments in key order.
func (e LogEntry) Args() []any {
	keys := slices.Sorted(maps.Keys(e.Attrs))
	args := make([]any, 0, len(keys)*2) //nolint:mnd

	for _, k := range keys {
		args = append(args, k, e.Attrs[k])
	}

	return args
}

// Message is the unit exchanged over a Channel.
type Message struct {
	ID   uint64      `json:"id"`
	Type MessageType `json:"type"`

	// run-target
	Target string `json:"target,omitempty"`

	// run-builder
	Builder       string     `json:"builder,omitempty"`
	Project       string     `json:"project,omitempty"`
	TargetContext *target.ID `json:"targetContext,omitempty"`

	Options map[string]any `json:"options,omitempty"`
	Log     *LogEntry      `json:"log,omitempty"`
	Outcome *Outcome       `json:"outcome,omitempty"`
}

// NewRunTarget builds a request to run a target string with extra options.
func NewRunTarget(id uint64, spec string, options map[string]any) Message {
	return Message{ID: id, Type: TypeRunTarget, Target: spec, Options: options}
}

// NewRunBuilder builds a request to run a transient builder.
func NewRunBuilder(id uint64, t target.Transient, targetContext *target.ID) Message {
	return Message{
		ID:            id,
		Type:          TypeRunBuilder,
		Builder:       t.Builder,
		Project:       t.Project,
		Options:       t.Options,
		TargetContext: targetContext,
	}
}

// NewLog wraps a log entry for request id.
func NewLog(id uint64, e LogEntry) Message {
	return Message{ID: id, Type: TypeLog, Log: &e}
}

// NewOutcome wraps an outcome for request id.
func NewOutcome(id uint64, o Outcome) Message {
	return Message{ID: id, Type: TypeOutcome, Outcome: &o}
}

// IsRequest reports whether the message asks a worker to do something.
func (m Message) IsRequest() bool {
	return m.Type == TypeRunTarget || m.Type == TypeRunBuilder
}

// ValidateRequest checks a message received by a worker.
func (m Message) ValidateRequest() error {
	switch m.Type {
	case TypeRunTarget:
		if m.Target == "" {
			return fmt.Errorf("%w: %s without target", ErrUnexpectedMessage, m.Type)
		}
	case TypeRunBuilder:
		if m.Builder == "" {
			return fmt.Errorf("%w: %s without builder", ErrUnexpectedMessage, m.Type)
		}
	default:
		return fmt.Errorf("%w: worker received %q", ErrUnexpectedMessage, m.Type)
	}

	return nil
}

// ValidateReply checks a message received by a parent.
func (m Message) ValidateReply() error {
	switch m.Type {
	case TypeLog:
		if m.Log == nil {
			return fmt.Errorf("%w: log message without entry", ErrUnexpectedMessage)
		}
	case TypeOutcome:
		if m.Outcome == nil {
			return fmt.Errorf("%w: outcome message without outcome", ErrUnexpectedMessage)
		}
	default:
		return fmt.Errorf("%w: parent received %q", ErrUnexpectedMessage, m.Type)
	}

	return nil
}
